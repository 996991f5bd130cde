package cli

import (
	"context"
	"fmt"

	"github.com/ashureev/planbridge/internal/plan"
	"github.com/ashureev/planbridge/internal/prompt"
	"github.com/spf13/cobra"
)

var promptCatalog string

var promptCmd = &cobra.Command{
	Use:   "prompt <session-id> <section>",
	Short: "Print the prompt that would be sent for a section",
	Long: `Render the generation prompt for one section of a session without calling
the generator. Useful when editing a prompt catalog.

Examples:
  planctl prompt 0ccfddc4-00e7-443a-bb82-58ede5936619 marketing
  planctl prompt 0ccfddc4-00e7-443a-bb82-58ede5936619 finance --catalog prompts.yaml`,
	Args: cobra.ExactArgs(2),
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().StringVar(&promptCatalog, "catalog", "", "Prompt catalog override (TOML or YAML)")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	builder, err := loadBuilder(promptCatalog)
	if err != nil {
		return err
	}

	repo, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		_ = repo.Close()
	}()

	// Previews never reach the generator.
	svc := plan.NewService(repo, nil, builder, plan.Options{})
	text, err := svc.PreviewPrompt(context.Background(), args[0], args[1])
	if err != nil {
		return err
	}
	if !builder.HasInstruction(args[1]) {
		fmt.Fprintf(cmd.ErrOrStderr(), "note: %s has no dedicated instruction, using the fallback\n", args[1])
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func loadBuilder(path string) (*prompt.Builder, error) {
	catalog, err := prompt.LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	return prompt.NewBuilder(catalog)
}
