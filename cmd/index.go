package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed extracted document text into the vector index",
	Long: `index embeds documents whose text has been extracted but not yet
vectorized. Each batch is committed before the next one starts, so an
interrupted run resumes without losing completed work. Re-running on a
fully indexed corpus writes nothing.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runIndex(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(ctx context.Context) error {
	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.Logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	stats, err := a.Indexer().Run(ctx)
	if err != nil {
		return fmt.Errorf("indexing documents: %w", err)
	}

	fmt.Printf("Embedded %d documents in %d batches\n", stats.Embedded, stats.Batches)
	return nil
}
