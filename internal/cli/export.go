package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ashureev/planbridge/internal/plan"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session's plan to markdown",
	Long: `Export the generated sections of a session to a markdown file.

By default exports to the current directory as plan-<id>.md.
Use --output to specify a custom path.

Examples:
  planctl export 0ccfddc4-00e7-443a-bb82-58ede5936619
  planctl export 0ccfddc4-00e7-443a-bb82-58ede5936619 -o plan.md`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (default: plan-<id>.md in current directory)")
}

func runExport(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	repo, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		_ = repo.Close()
	}()

	session, err := repo.GetSession(context.Background(), sessionID)
	if err != nil {
		return err
	}

	outputPath := exportOutput
	if outputPath == "" {
		shortID := sessionID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}
		outputPath = fmt.Sprintf("plan-%s.md", shortID)
	}
	if !filepath.IsAbs(outputPath) {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		outputPath = filepath.Join(cwd, outputPath)
	}

	md := plan.RenderMarkdown(session)
	if err := os.WriteFile(outputPath, []byte(md), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported plan to %s (%s)\n", outputPath, humanize.Bytes(uint64(len(md))))
	return nil
}
