// Package cli implements planctl, the admin command line for the planbridge
// session database.
package cli

import (
	"fmt"
	"os"

	"github.com/ashureev/planbridge/internal/store"
	"github.com/spf13/cobra"
)

var (
	dbPath      string
	versionInfo string
)

// SetVersion sets the version information from build-time ldflags
func SetVersion(version, commit, date string) {
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	rootCmd.Version = versionInfo
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "planctl",
	Short: "Inspect and maintain business plan sessions",
	Long: `planctl - inspect and maintain the planbridge session database

List sessions, read or export generated plans, preview the prompt sent for a
section, generate sections from the command line and free stuck claims.`,
	SilenceUsage: true,
}

func init() {
	defaultDB := os.Getenv("DB_PATH")
	if defaultDB == "" {
		defaultDB = "./data/planbridge.db"
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "Database path")
}

func openStore() (*store.SQLiteStore, error) {
	repo, err := store.NewSQLite(dbPath, store.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return repo, nil
}
