package main

import (
	"github.com/ashureev/planbridge/internal/cli"
)

// Version information (injected by ldflags)
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func main() {
	cli.SetVersion(Version, Commit, Date)
	cli.Execute()
}
