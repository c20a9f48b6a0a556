// Package embedding adapts a Genkit ai.Embedder to the batched embedding
// boundary used by the ingestion pipeline and the retriever.
package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
)

// Service wraps a Genkit embedder with batch semantics: one remote call per
// batch, order-preserving, one vector per input text.
type Service struct {
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates an embedding Service. A nil logger falls back to slog.Default().
func New(embedder ai.Embedder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{embedder: embedder, logger: logger}
}

// EmbedBatch embeds all texts in a single request and returns one vector per
// input, in input order. Any failure is a whole-batch failure: no partial
// results are returned.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	docs := make([]*ai.Document, len(texts))
	for i, text := range texts {
		docs[i] = ai.DocumentFromText(text, nil)
	}

	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return nil, fmt.Errorf("embedding batch of %d texts: %w", len(texts), err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Embedding) == 0 {
			return nil, fmt.Errorf("embedder returned empty vector at position %d", i)
		}
		vectors[i] = e.Embedding
	}

	s.logger.Debug("embedded batch", "texts", len(texts), "dimensions", len(vectors[0]))
	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
