package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Download PDFs and extract their text",
	Long: `process selects documents whose text has not been extracted yet,
downloads their PDF content from the gateway, and stores the extracted
text. Documents that fail to download or parse are skipped and picked
up again by a later run.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runProcess(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
}

func runProcess(ctx context.Context) error {
	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.Logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	stats, err := a.Processor().Run(ctx)
	if err != nil {
		return fmt.Errorf("processing documents: %w", err)
	}

	fmt.Printf("Processed %d documents, skipped %d, in %d batches\n",
		stats.Processed, stats.Skipped, stats.Batches)
	return nil
}
