// Package app wires configuration, storage, and the Genkit runtime
// into the ingestion and query pipelines.
package app

import (
	"context"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ragmart/ragmart/internal/answer"
	"github.com/ragmart/ragmart/internal/api"
	"github.com/ragmart/ragmart/internal/config"
	"github.com/ragmart/ragmart/internal/corpus"
	"github.com/ragmart/ragmart/internal/embedding"
	"github.com/ragmart/ragmart/internal/indexer"
	"github.com/ragmart/ragmart/internal/ingest"
	"github.com/ragmart/ragmart/internal/log"
	"github.com/ragmart/ragmart/internal/rag"
)

// App is the application container. Components are built once in Setup
// and handed to the command layer.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Store     *corpus.Store
	Source    *ingest.Client
	Embedding *embedding.Service

	cancel context.CancelFunc
}

// Close releases all resources. Safe to call on a partially
// initialized App.
func (a *App) Close() error {
	a.Logger.Info("shutting down")

	if a.cancel != nil {
		a.cancel()
	}
	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database pool closed")
	}
	return nil
}

// Collector builds the metadata collection pipeline.
func (a *App) Collector() *ingest.Collector {
	return ingest.NewCollector(a.Source, a.Store, a.Logger)
}

// Processor builds the document download/extraction pipeline.
func (a *App) Processor() *ingest.Processor {
	return ingest.NewProcessor(a.Source, a.Store, ingest.ProcessorConfig{
		BatchSize: a.Config.BatchSize,
	}, a.Logger)
}

// Indexer builds the embedding pipeline.
func (a *App) Indexer() *indexer.Indexer {
	return indexer.New(a.Store, a.Embedding, indexer.Config{
		BatchSize:    a.Config.BatchSize,
		EmbedTimeout: time.Duration(a.Config.EmbedTimeoutMs) * time.Millisecond,
	}, a.Logger)
}

// Retriever builds the query-time retriever.
func (a *App) Retriever() *rag.Retriever {
	return rag.NewRetriever(a.Embedding, a.Store, a.Config.TopK, a.Logger)
}

// Assembler builds the prompt assembler with citation links pointing
// at the source gateway.
func (a *App) Assembler() *rag.Assembler {
	return rag.NewAssembler(a.Source.ResourceURL)
}

// Generator builds the answer generator.
func (a *App) Generator() *answer.Generator {
	return answer.NewGenerator(a.Genkit, answer.Config{
		ModelName:   a.qualifiedModelName(),
		Temperature: a.Config.Temperature,
		MaxTokens:   a.Config.MaxTokens,
	}, a.Logger)
}

// Server builds the HTTP server around the query pipeline.
func (a *App) Server() (*api.Server, error) {
	return api.NewServer(api.ServerConfig{
		Logger:     a.Logger,
		Retriever:  a.Retriever(),
		Assembler:  a.Assembler(),
		Generator:  a.Generator(),
		Pool:       a.DBPool,
		Counter:    a.Store,
		TrustProxy: a.Config.TrustProxy,
		RateBurst:  a.Config.RateBurst,
	})
}

// qualifiedModelName prefixes the configured model with its provider,
// the form Genkit uses for lookup.
func (a *App) qualifiedModelName() string {
	switch a.Config.Provider {
	case config.ProviderOllama:
		return "ollama/" + a.Config.ModelName
	default:
		return "googleai/" + a.Config.ModelName
	}
}
