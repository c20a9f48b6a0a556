// Package cmd contains the CLI entry points: the ingestion pipelines
// and the query server.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ragmart/ragmart/internal/app"
	"github.com/ragmart/ragmart/internal/config"
	"github.com/ragmart/ragmart/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "ragmart",
	Short: "Question answering over Dutch parliamentary documents",
	Long: `ragmart answers natural-language questions about documents of the
Dutch parliament. It collects document metadata from the public OData
gateway, extracts text from the published PDFs, embeds the text into a
vector index, and serves grounded answers over HTTP.

Typical workflow:

  ragmart collect    # pull document metadata
  ragmart process    # download PDFs and extract text
  ragmart index      # embed extracted text
  ragmart serve      # answer questions`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setupApp loads configuration and initializes the application.
func setupApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{JSON: cfg.LogJSON})

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing application: %w", err)
	}
	return a, nil
}
