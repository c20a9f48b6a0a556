// Package corpus implements the document corpus store on PostgreSQL.
//
// Two tables back the store: documents (raw text and metadata) and
// embeddings (one fixed-length vector per document, pgvector column).
// All similarity work happens server-side: nearest-neighbour retrieval is a
// single parameterized aggregate query, never a client-side scan.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ErrDimensionMismatch indicates a vector whose length does not match the
// embeddings column.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Store manages documents and embeddings with PostgreSQL + pgvector.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a Store backed by the given connection pool.
// A nil logger falls back to slog.Default().
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// InsertDocuments inserts document metadata rows, skipping identifiers that
// already exist. Returns the number of rows actually written, so callers can
// detect duplicate-only batches.
func (s *Store) InsertDocuments(ctx context.Context, docs []Document) (int64, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, d := range docs {
		batch.Queue(
			`INSERT INTO documents (id, title, subject, content_type)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO NOTHING`,
			d.ID, d.Title, d.Subject, d.ContentType,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer func() {
		if err := br.Close(); err != nil {
			s.logger.Warn("closing document insert batch", "error", err)
		}
	}()

	var written int64
	for range docs {
		tag, err := br.Exec()
		if err != nil {
			return written, fmt.Errorf("inserting documents: %w", err)
		}
		written += tag.RowsAffected()
	}

	s.logger.Debug("inserted documents", "batch", len(docs), "written", written)
	return written, nil
}

// UnprocessedBatch returns up to limit PDF documents that have no extracted
// text yet, ordered by identifier for deterministic pagination.
func (s *Store) UnprocessedBatch(ctx context.Context, limit, offset int) ([]Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, COALESCE(title, ''), COALESCE(subject, '')
		 FROM documents
		 WHERE content_type = 'application/pdf' AND body IS NULL
		 ORDER BY id
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("selecting unprocessed documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Title, &d.Subject); err != nil {
			return nil, fmt.Errorf("scanning unprocessed document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading unprocessed documents: %w", err)
	}
	return docs, nil
}

// SetBody stores the extracted text for a document, marking it eligible for
// embedding.
func (s *Store) SetBody(ctx context.Context, id, body string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET body = $2 WHERE id = $1`, id, body)
	if err != nil {
		return fmt.Errorf("setting body for document %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("setting body: document %q not found", id)
	}
	return nil
}

// UnembeddedBatch returns up to limit documents that have text but no
// embedding row yet. The NOT IN predicate is the pipeline's resumption
// marker: re-running after a failure re-selects the same documents.
func (s *Store) UnembeddedBatch(ctx context.Context, limit, offset int) ([]Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, body
		 FROM documents
		 WHERE body IS NOT NULL
		   AND id NOT IN (SELECT document_id FROM embeddings)
		 ORDER BY id
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("selecting unembedded documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Body); err != nil {
			return nil, fmt.Errorf("scanning unembedded document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading unembedded documents: %w", err)
	}
	return docs, nil
}

// InsertEmbeddings writes one batch of embeddings in a single transaction:
// the batch is durable before the caller moves on, and a failure writes
// nothing. ON CONFLICT DO NOTHING absorbs double-writes from concurrent
// ingestion runs.
func (s *Store) InsertEmbeddings(ctx context.Context, embs []Embedding) error {
	if len(embs) == 0 {
		return nil
	}
	for _, e := range embs {
		if len(e.Vector) != VectorDimension {
			return fmt.Errorf("%w: document %q has %d dimensions, want %d",
				ErrDimensionMismatch, e.DocumentID, len(e.Vector), VectorDimension)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning embedding transaction: %w", err)
	}
	defer func() {
		// No-op after a successful commit.
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Warn("rolling back embedding transaction", "error", err)
		}
	}()

	batch := &pgx.Batch{}
	for _, e := range embs {
		batch.Queue(
			`INSERT INTO embeddings (document_id, embedding)
			 VALUES ($1, $2)
			 ON CONFLICT (document_id) DO NOTHING`,
			e.DocumentID, pgvector.NewVector(e.Vector),
		)
	}

	br := tx.SendBatch(ctx, batch)
	for range embs {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("inserting embeddings: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("closing embedding batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing embeddings: %w", err)
	}

	s.logger.Debug("inserted embeddings", "count", len(embs))
	return nil
}

// NearestDocuments returns the k documents closest to the query vector by
// euclidean distance, ascending. The distance computation runs entirely
// server-side as one statement; the query vector binds as a typed pgvector
// parameter. Equal distances keep the store's natural order.
func (s *Store) NearestDocuments(ctx context.Context, vec []float32, k int) ([]Match, error) {
	if len(vec) != VectorDimension {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, want %d",
			ErrDimensionMismatch, len(vec), VectorDimension)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT d.id, d.body, e.embedding <-> $1 AS distance
		 FROM embeddings e
		 JOIN documents d ON d.id = e.document_id
		 ORDER BY distance
		 LIMIT $2`,
		pgvector.NewVector(vec), k,
	)
	if err != nil {
		return nil, fmt.Errorf("querying nearest documents: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Text, &m.Distance); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading matches: %w", err)
	}
	return matches, nil
}

// CountDocuments returns the number of stored documents. The collector uses
// it as the resume offset for paginated source fetches.
func (s *Store) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

// CountEmbeddings returns the number of embedded documents.
func (s *Store) CountEmbeddings(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting embeddings: %w", err)
	}
	return count, nil
}
