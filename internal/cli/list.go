package cli

import (
	"context"
	"fmt"

	"github.com/ashureev/planbridge/internal/domain"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	Long: `List sessions, most recently updated first, with form progress and the
number of generated sections.

Examples:
  planctl list
  planctl list --limit 10`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum number of sessions to display")
}

func runList(cmd *cobra.Command, args []string) error {
	repo, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		_ = repo.Close()
	}()

	sessions, err := repo.ListSessions(context.Background(), listLimit)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions found.")
		return nil
	}

	fmt.Fprintf(out, "Showing %d session(s)\n\n", len(sessions))
	for i, s := range sessions {
		fmt.Fprint(out, formatSummary(i+1, s))
	}
	return nil
}

func formatSummary(n int, s domain.SessionSummary) string {
	sections := fmt.Sprintf("%d/%d", s.SectionsCompleted, len(domain.Sections))
	sectionStyle := pendingStyle
	if s.SectionsCompleted == len(domain.Sections) {
		sectionStyle = doneStyle
	}

	return fmt.Sprintf("[%d] %s\n    %s %s %3d%%\n    %s %s\n    %s %s (%s)\n\n",
		n, idStyle.Render(s.ID),
		labelStyle.Render("Forms:   "), progressBar(s.OverallProgress), s.OverallProgress,
		labelStyle.Render("Sections:"), sectionStyle.Render(sections),
		labelStyle.Render("Updated: "), humanize.Time(s.UpdatedAt), s.Language,
	)
}
