package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ragmart/ragmart/internal/corpus"
	"github.com/ragmart/ragmart/internal/log"
)

type fakeProcessorStore struct {
	unprocessed []corpus.Document
	bodies      map[string]string
	offsets     []int
}

func (s *fakeProcessorStore) UnprocessedBatch(_ context.Context, limit, offset int) ([]corpus.Document, error) {
	s.offsets = append(s.offsets, offset)

	var remaining []corpus.Document
	for _, d := range s.unprocessed {
		if _, done := s.bodies[d.ID]; !done {
			remaining = append(remaining, d)
		}
	}
	if offset >= len(remaining) {
		return nil, nil
	}
	end := min(offset+limit, len(remaining))
	return remaining[offset:end], nil
}

func (s *fakeProcessorStore) SetBody(_ context.Context, id, body string) error {
	if s.bodies == nil {
		s.bodies = make(map[string]string)
	}
	s.bodies[id] = body
	return nil
}

type fakeResourceFetcher struct {
	failIDs map[string]bool
}

func (f *fakeResourceFetcher) Resource(_ context.Context, id string) ([]byte, error) {
	if f.failIDs[id] {
		return nil, errors.New("resource unavailable")
	}
	return []byte("pdf bytes of " + id), nil
}

func newTestProcessor(store *fakeProcessorStore, fetcher *fakeResourceFetcher, batchSize int) *Processor {
	p := NewProcessor(fetcher, store, ProcessorConfig{BatchSize: batchSize}, log.NewNop())
	// Stand-in extraction: the PDF parser is covered separately.
	p.extract = func(data []byte) (string, error) {
		return "text from " + string(data), nil
	}
	return p
}

func pdfDocs(ids ...string) []corpus.Document {
	docs := make([]corpus.Document, len(ids))
	for i, id := range ids {
		docs[i] = corpus.Document{ID: id, ContentType: "application/pdf"}
	}
	return docs
}

func TestProcessorRun(t *testing.T) {
	store := &fakeProcessorStore{unprocessed: pdfDocs("a", "b", "c")}
	p := newTestProcessor(store, &fakeResourceFetcher{}, 10)

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Processed != 3 || stats.Skipped != 0 {
		t.Errorf("stats = %+v, want 3 processed", stats)
	}
	if got := store.bodies["b"]; got != "text from pdf bytes of b" {
		t.Errorf("body for b = %q", got)
	}
}

func TestProcessorRun_FailedDocumentsAreSkippedNotFatal(t *testing.T) {
	store := &fakeProcessorStore{unprocessed: pdfDocs("a", "b", "c")}
	fetcher := &fakeResourceFetcher{failIDs: map[string]bool{"b": true}}
	p := newTestProcessor(store, fetcher, 10)

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Processed != 2 || stats.Skipped != 1 {
		t.Errorf("stats = %+v, want 2 processed 1 skipped", stats)
	}
	if _, ok := store.bodies["b"]; ok {
		t.Error("failed document must stay unprocessed")
	}
}

func TestProcessorRun_ExtractionFailureSkips(t *testing.T) {
	store := &fakeProcessorStore{unprocessed: pdfDocs("a")}
	p := newTestProcessor(store, &fakeResourceFetcher{}, 10)
	p.extract = func([]byte) (string, error) {
		return "", fmt.Errorf("broken document: %w", ErrNoText)
	}

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Skipped != 1 || len(store.bodies) != 0 {
		t.Errorf("stats = %+v, bodies = %v, want the document skipped", stats, store.bodies)
	}
}

func TestProcessorRun_OffsetAdvancesPerBatch(t *testing.T) {
	store := &fakeProcessorStore{unprocessed: pdfDocs("a", "b", "c", "d")}
	// Every document fails, so the unprocessed set never shrinks and
	// the advancing offset alone must terminate the run.
	fetcher := &fakeResourceFetcher{failIDs: map[string]bool{"a": true, "b": true, "c": true, "d": true}}
	p := newTestProcessor(store, fetcher, 2)

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Skipped != 4 {
		t.Errorf("skipped = %d, want 4", stats.Skipped)
	}
	wantOffsets := []int{0, 2, 4}
	if len(store.offsets) != len(wantOffsets) {
		t.Fatalf("offsets = %v, want %v", store.offsets, wantOffsets)
	}
	for i, want := range wantOffsets {
		if store.offsets[i] != want {
			t.Errorf("offsets = %v, want %v", store.offsets, wantOffsets)
			break
		}
	}
}

func TestProcessorRun_EmptySelection(t *testing.T) {
	store := &fakeProcessorStore{}
	p := newTestProcessor(store, &fakeResourceFetcher{}, 10)

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Processed != 0 || stats.Batches != 0 {
		t.Errorf("stats = %+v, want no work", stats)
	}
}

func TestNormalizeText(t *testing.T) {
	in := "line one\r\nline\x00 two"
	got := normalizeText(in)
	if strings.Contains(got, "\x00") || strings.Contains(got, "\r") {
		t.Errorf("normalizeText(%q) = %q, want NUL and CR removed", in, got)
	}
	if got != "line one\nline two" {
		t.Errorf("normalizeText = %q", got)
	}
}
