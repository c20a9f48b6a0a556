package ingest

import (
	"context"
	"fmt"

	"github.com/ragmart/ragmart/internal/corpus"
	"github.com/ragmart/ragmart/internal/log"
)

// CollectorStore is the subset of the corpus store the collector needs.
type CollectorStore interface {
	CountDocuments(ctx context.Context) (int64, error)
	InsertDocuments(ctx context.Context, docs []corpus.Document) (int64, error)
}

// MetadataSource pages through a remote document entity set.
type MetadataSource interface {
	FetchPage(ctx context.Context, skip int) ([]DocumentMeta, error)
	PageSize() int
}

// CollectorStats summarizes one collection run.
type CollectorStats struct {
	Pages   int
	Fetched int
	Written int
}

// Collector pulls document metadata from the gateway into the corpus.
// Runs are resumable: collection restarts where the local count left
// off, and rows already present are absorbed by the store.
type Collector struct {
	source MetadataSource
	store  CollectorStore
	logger log.Logger
}

// NewCollector creates a metadata collector.
func NewCollector(source MetadataSource, store CollectorStore, logger log.Logger) *Collector {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Collector{source: source, store: store, logger: logger}
}

// Run collects metadata pages until the remote entity set is
// exhausted. Each page is persisted before the next is fetched, so an
// interrupted run loses at most one page of work.
func (c *Collector) Run(ctx context.Context) (CollectorStats, error) {
	var stats CollectorStats

	count, err := c.store.CountDocuments(ctx)
	if err != nil {
		return stats, fmt.Errorf("determine resume offset: %w", err)
	}
	skip := int(count)
	c.logger.Info("metadata collection starting", "skip", skip)

	for {
		metas, err := c.source.FetchPage(ctx, skip)
		if err != nil {
			return stats, fmt.Errorf("collect metadata: %w", err)
		}
		if len(metas) == 0 {
			c.logger.Info("metadata collection complete",
				"pages", stats.Pages,
				"fetched", stats.Fetched,
				"written", stats.Written)
			return stats, nil
		}

		docs := make([]corpus.Document, len(metas))
		for i, m := range metas {
			docs[i] = corpus.Document{
				ID:          m.ID,
				Title:       m.Title,
				Subject:     m.Subject,
				ContentType: m.ContentType,
			}
		}

		written, err := c.store.InsertDocuments(ctx, docs)
		if err != nil {
			return stats, fmt.Errorf("persist metadata page at skip %d: %w", skip, err)
		}

		stats.Pages++
		stats.Fetched += len(metas)
		stats.Written += int(written)
		skip += len(metas)

		c.logger.Debug("metadata page persisted",
			"skip", skip,
			"page_docs", len(metas),
			"written", written)
	}
}
