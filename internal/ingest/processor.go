package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/ragmart/ragmart/internal/corpus"
	"github.com/ragmart/ragmart/internal/log"
)

// ProcessorStore is the subset of the corpus store the processor needs.
type ProcessorStore interface {
	UnprocessedBatch(ctx context.Context, limit, offset int) ([]corpus.Document, error)
	SetBody(ctx context.Context, id, body string) error
}

// ResourceFetcher downloads a document's binary content.
type ResourceFetcher interface {
	Resource(ctx context.Context, id string) ([]byte, error)
}

// ProcessorStats summarizes one processing run.
type ProcessorStats struct {
	Batches   int
	Processed int
	Skipped   int
}

// ProcessorConfig configures a document processor.
type ProcessorConfig struct {
	// BatchSize is how many documents are selected per round.
	BatchSize int
}

// Processor downloads PDF documents and stores their extracted text.
// A document that cannot be downloaded or parsed is skipped and stays
// in the unprocessed set for a later run.
type Processor struct {
	source    ResourceFetcher
	store     ProcessorStore
	batchSize int
	extract   func([]byte) (string, error)
	logger    log.Logger
}

// NewProcessor creates a document processor.
func NewProcessor(source ResourceFetcher, store ProcessorStore, cfg ProcessorConfig, logger log.Logger) *Processor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Processor{
		source:    source,
		store:     store,
		batchSize: cfg.BatchSize,
		extract:   ExtractText,
		logger:    logger,
	}
}

// Run processes unprocessed documents batch by batch until the
// selection comes back empty. Individual failures do not stop the run.
func (p *Processor) Run(ctx context.Context) (ProcessorStats, error) {
	var stats ProcessorStats
	offset := 0

	for {
		docs, err := p.store.UnprocessedBatch(ctx, p.batchSize, offset)
		if err != nil {
			return stats, fmt.Errorf("select unprocessed documents: %w", err)
		}
		if len(docs) == 0 {
			p.logger.Info("document processing complete",
				"batches", stats.Batches,
				"processed", stats.Processed,
				"skipped", stats.Skipped)
			return stats, nil
		}

		for _, doc := range docs {
			if err := ctx.Err(); err != nil {
				return stats, err
			}

			if err := p.processOne(ctx, doc.ID); err != nil {
				stats.Skipped++
				p.logger.Warn("document skipped",
					"document_id", doc.ID,
					"error", err)
				continue
			}
			stats.Processed++
		}

		stats.Batches++
		offset += p.batchSize
	}
}

func (p *Processor) processOne(ctx context.Context, id string) error {
	data, err := p.source.Resource(ctx, id)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	text, err := p.extract(data)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	text = normalizeText(text)
	if err := p.store.SetBody(ctx, id, text); err != nil {
		return fmt.Errorf("persist text: %w", err)
	}

	return nil
}

// normalizeText strips NUL bytes, which postgres text columns reject,
// and collapses Windows line endings.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return s
}
