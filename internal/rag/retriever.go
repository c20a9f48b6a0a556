package rag

import (
	"context"

	"github.com/ragmart/ragmart/internal/corpus"
	"github.com/ragmart/ragmart/internal/log"
)

// QueryEmbedder converts a query string into a vector.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// MatchStore finds the documents nearest to a query vector.
type MatchStore interface {
	NearestDocuments(ctx context.Context, vector []float32, k int) ([]corpus.Match, error)
}

// Retriever maps a question to its top-k supporting passages.
//
// Retrieval failure is deliberately non-fatal: an unreachable store or
// a failed query embedding degrades to an empty match set, and the
// prompt assembler falls back to answering without grounding.
type Retriever struct {
	embedder QueryEmbedder
	store    MatchStore
	topK     int
	logger   log.Logger
}

// NewRetriever creates a retriever returning at most topK matches.
func NewRetriever(embedder QueryEmbedder, store MatchStore, topK int, logger log.Logger) *Retriever {
	if topK <= 0 {
		topK = 3
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Retriever{
		embedder: embedder,
		store:    store,
		topK:     topK,
		logger:   logger,
	}
}

// Retrieve returns the passages nearest to the query, distance
// ascending. Fewer than topK embedded documents yield fewer matches.
// On any failure it logs and returns an empty set.
func (r *Retriever) Retrieve(ctx context.Context, query string) []corpus.Match {
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		r.logger.Warn("query embedding failed, answering without grounding",
			"error", err)
		return nil
	}

	matches, err := r.store.NearestDocuments(ctx, vector, r.topK)
	if err != nil {
		r.logger.Warn("similarity search failed, answering without grounding",
			"error", err)
		return nil
	}

	r.logger.Debug("retrieval complete", "matches", len(matches))
	return matches
}
