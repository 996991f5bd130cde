package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/ashureev/planbridge/internal/config"
	"github.com/ashureev/planbridge/internal/generator"
	"github.com/ashureev/planbridge/internal/plan"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	generateAll     bool
	generateCatalog string
)

var generateCmd = &cobra.Command{
	Use:   "generate <session-id> [section]",
	Short: "Generate one section or the full plan",
	Long: `Generate a section (or, with --all, every pending section) using the
generator configured through CLAUDE_* environment variables or .env.

Examples:
  planctl generate 0ccfddc4-00e7-443a-bb82-58ede5936619 marketing
  planctl generate 0ccfddc4-00e7-443a-bb82-58ede5936619 --all`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().BoolVar(&generateAll, "all", false, "Generate every pending section in plan order")
	generateCmd.Flags().StringVar(&generateCatalog, "catalog", "", "Prompt catalog override (TOML or YAML)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if generateAll == (len(args) == 2) {
		return fmt.Errorf("pass either a section or --all")
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	gen := generator.NewAnthropicClient(generator.AnthropicConfig{
		APIKey:     cfg.Generator.APIKey,
		BaseURL:    cfg.Generator.BaseURL,
		Model:      cfg.Generator.Model,
		APIVersion: cfg.Generator.APIVersion,
		Timeout:    cfg.Generation.Timeout,
	})
	return generateWith(cmd, gen, cfg.Generator.MaxTokens, cfg.Generation.ClaimLease, args)
}

func generateWith(cmd *cobra.Command, gen generator.Generator, maxTokens int, lease time.Duration, args []string) error {
	builder, err := loadBuilder(generateCatalog)
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

	// Generation is not canceled once dispatched. An interrupt kills the
	// process and the claim is freed by the reaper after the lease.
	ctx := context.Background()
	svc := plan.NewService(repo, gen, builder, plan.Options{MaxTokens: maxTokens, ClaimLease: lease})
	out := cmd.OutOrStdout()

	if generateAll {
		res, err := svc.GenerateFullPlan(ctx, args[0])
		fmt.Fprintf(out, "Generated: %v\nSkipped:   %v\n", res.Generated, res.Skipped)
		if err != nil {
			return fmt.Errorf("stopped at %s: %w", res.Failed, err)
		}
		return nil
	}

	text, err := svc.GenerateSection(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintln(out, text)
	return nil
}
