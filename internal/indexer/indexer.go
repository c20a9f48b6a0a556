// Package indexer implements the incremental document embedding pipeline.
//
// Each run pulls batches of documents that have text but no embedding yet,
// embeds every batch in one remote call, and writes the vectors back. The
// "no embedding row yet" predicate is the only checkpoint: a run that fails
// partway leaves no partial batch behind, and the next run re-selects
// exactly the documents that are still missing. Re-running against an
// unchanged, fully embedded corpus writes nothing.
//
// Concurrent runs against the same corpus are not mutually excluded here;
// the store's insert path absorbs double-writes, but callers should ensure
// a single writer.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ragmart/ragmart/internal/corpus"
)

// Store is the corpus access the pipeline needs.
type Store interface {
	UnembeddedBatch(ctx context.Context, limit, offset int) ([]corpus.Document, error)
	InsertEmbeddings(ctx context.Context, embs []corpus.Embedding) error
}

// Embedder generates one vector per input text, order-preserving, in a
// single batched call.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Stats summarizes one pipeline run.
type Stats struct {
	Embedded int // documents embedded
	Batches  int // batches written
}

// Config holds pipeline tuning parameters.
type Config struct {
	BatchSize    int           // documents per batch (default 10)
	EmbedTimeout time.Duration // bound on each remote embedding call (default 60s)
}

// Indexer runs the incremental embedding pipeline.
type Indexer struct {
	store        Store
	embedder     Embedder
	batchSize    int
	embedTimeout time.Duration
	logger       *slog.Logger
}

// New creates an Indexer. A nil logger falls back to slog.Default().
func New(store Store, embedder Embedder, cfg Config, logger *slog.Logger) *Indexer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		store:        store,
		embedder:     embedder,
		batchSize:    cfg.BatchSize,
		embedTimeout: cfg.EmbedTimeout,
		logger:       logger,
	}
}

// Run processes batches until no unembedded documents remain. An embedding
// failure is a whole-batch failure: nothing from that batch is written and
// the run stops; the next invocation re-selects the same documents. Each
// successful batch is durable before the next batch begins.
func (ix *Indexer) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	offset := 0

	for {
		docs, err := ix.store.UnembeddedBatch(ctx, ix.batchSize, offset)
		if err != nil {
			return stats, fmt.Errorf("selecting batch at offset %d: %w", offset, err)
		}
		if len(docs) == 0 {
			ix.logger.Info("embedding run complete",
				"embedded", stats.Embedded, "batches", stats.Batches)
			return stats, nil
		}

		texts := make([]string, len(docs))
		for i, d := range docs {
			texts[i] = d.Body
		}

		// Fail closed: the remote call must not hang the pipeline.
		embedCtx, cancel := context.WithTimeout(ctx, ix.embedTimeout)
		vectors, err := ix.embedder.EmbedBatch(embedCtx, texts)
		cancel()
		if err != nil {
			ix.logger.Error("embedding batch failed, no rows written",
				"offset", offset, "batch", len(docs), "error", err)
			return stats, fmt.Errorf("embedding batch at offset %d: %w", offset, err)
		}

		embs := make([]corpus.Embedding, len(docs))
		for i, d := range docs {
			embs[i] = corpus.Embedding{DocumentID: d.ID, Vector: vectors[i]}
		}

		if err := ix.store.InsertEmbeddings(ctx, embs); err != nil {
			return stats, fmt.Errorf("writing batch at offset %d: %w", offset, err)
		}

		stats.Embedded += len(docs)
		stats.Batches++
		ix.logger.Debug("batch embedded", "offset", offset, "documents", len(docs))

		offset += ix.batchSize
	}
}
