package cli

import (
	"context"
	"fmt"

	"github.com/ashureev/planbridge/internal/plan"
	"github.com/ashureev/planbridge/internal/progress"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var showRaw bool

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session's progress and generated plan",
	Long: `Show form progress and the generated sections of a session.

The plan is rendered as markdown when stdout is a terminal. Use --raw to print
the markdown source.

Examples:
  planctl show 0ccfddc4-00e7-443a-bb82-58ede5936619
  planctl show 0ccfddc4-00e7-443a-bb82-58ede5936619 --raw | less`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "Print markdown without rendering")
}

func runShow(cmd *cobra.Command, args []string) error {
	repo, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		_ = repo.Close()
	}()

	session, err := repo.GetSession(context.Background(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	report := progress.Of(session)
	fmt.Fprintf(out, "%s\n", idStyle.Render(session.ID))
	fmt.Fprintf(out, "%s %s %d%%\n", labelStyle.Render("Forms:    "), progressBar(report.OverallProgress), report.OverallProgress)
	if len(report.FormsRemaining) > 0 {
		fmt.Fprintf(out, "%s %v\n", labelStyle.Render("Missing:  "), report.FormsRemaining)
	}
	fmt.Fprintf(out, "%s %d/%d\n", labelStyle.Render("Sections: "), len(report.SectionsCompleted), len(report.SectionsCompleted)+len(report.SectionsPending))
	fmt.Fprintf(out, "%s %s\n\n", labelStyle.Render("Updated:  "), humanize.Time(session.UpdatedAt))

	md := plan.RenderMarkdown(session)
	if !showRaw && isStdoutTTY() {
		md = renderMarkdown(md)
	}
	fmt.Fprint(out, md)
	return nil
}
