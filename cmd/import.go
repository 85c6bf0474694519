package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/learnbot/internal/excel"
)

var importSheet string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import questions, learners or response history from .xlsx or .csv",
}

func importRunner(kind string, run func(ctx context.Context, cfg excel.ImportConfig) (*excel.ImportResult, error)) *cobra.Command {
	return &cobra.Command{
		Use:   kind + " <file>",
		Short: "Import " + kind,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := excel.DefaultImportConfig(args[0])
			cfg.SheetName = importSheet
			result, err := run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			printImportResult(cmd, result)
			return nil
		},
	}
}

func printImportResult(cmd *cobra.Command, r *excel.ImportResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✅ Processed %d rows: %d created, %d updated, %d skipped\n", r.TotalProcessed, r.Created, r.Updated, r.Skipped)
	for _, e := range r.Errors {
		fmt.Fprintln(out, "⚠️", e)
	}
}

func init() {
	importCmd.PersistentFlags().StringVar(&importSheet, "sheet", "", "sheet to read from an .xlsx file (default: first sheet)")

	importCmd.AddCommand(
		importRunner("questions", func(ctx context.Context, cfg excel.ImportConfig) (*excel.ImportResult, error) {
			return excel.ImportQuestions(ctx, cfg, current.question)
		}),
		importRunner("learners", func(ctx context.Context, cfg excel.ImportConfig) (*excel.ImportResult, error) {
			return excel.ImportLearners(ctx, cfg, current.learners)
		}),
		importRunner("responses", func(ctx context.Context, cfg excel.ImportConfig) (*excel.ImportResult, error) {
			return excel.ImportResponses(ctx, cfg, current.service)
		}),
	)
	rootCmd.AddCommand(importCmd)
}
