package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/ashureev/planbridge/internal/plan"
	"github.com/spf13/cobra"
)

var reapLease time.Duration

var reapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Release generation claims older than the lease",
	Long: `Return sections stuck in "generating" to "pending" so they can be generated
again. The server does this periodically; use this after a crash.

Examples:
  planctl reap
  planctl reap --lease 0s`,
	RunE: runReap,
}

func init() {
	rootCmd.AddCommand(reapCmd)
	reapCmd.Flags().DurationVar(&reapLease, "lease", plan.DefaultClaimLease, "Release claims older than this")
}

func runReap(cmd *cobra.Command, args []string) error {
	repo, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		_ = repo.Close()
	}()

	released, err := plan.ReapStaleClaims(context.Background(), repo, reapLease)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Released %d claim(s)\n", released)
	return nil
}
