package corpus_test

import (
	"context"
	"testing"

	"github.com/ragmart/ragmart/internal/corpus"
	"github.com/ragmart/ragmart/internal/log"
	"github.com/ragmart/ragmart/internal/testutil"
)

// unitVec builds a vector whose first component is x and all others zero,
// so the euclidean distance between two such vectors is |x1 - x2|.
func unitVec(x float32) []float32 {
	v := make([]float32, corpus.VectorDimension)
	v[0] = x
	return v
}

func setupStore(t *testing.T) *corpus.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	db := testutil.SetupTestDB(t)
	return corpus.New(db.Pool, log.NewNop())
}

func TestInsertDocuments_Deduplicates(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	docs := []corpus.Document{
		{ID: "doc-1", Title: "Motie A", Subject: "Begroting", ContentType: "application/pdf"},
		{ID: "doc-2", Title: "Motie B", Subject: "Zorg", ContentType: "application/pdf"},
	}

	written, err := store.InsertDocuments(ctx, docs)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if written != 2 {
		t.Errorf("first insert written = %d, want 2", written)
	}

	// Same batch again: everything is a duplicate.
	written, err = store.InsertDocuments(ctx, docs)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if written != 0 {
		t.Errorf("duplicate insert written = %d, want 0", written)
	}

	count, err := store.CountDocuments(ctx)
	if err != nil {
		t.Fatalf("counting: %v", err)
	}
	if count != 2 {
		t.Errorf("document count = %d, want 2", count)
	}
}

func TestUnprocessedBatch_And_SetBody(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	docs := []corpus.Document{
		{ID: "pdf-1", ContentType: "application/pdf"},
		{ID: "pdf-2", ContentType: "application/pdf"},
		{ID: "html-1", ContentType: "text/html"}, // not a PDF, never selected
	}
	if _, err := store.InsertDocuments(ctx, docs); err != nil {
		t.Fatalf("inserting: %v", err)
	}

	batch, err := store.UnprocessedBatch(ctx, 10, 0)
	if err != nil {
		t.Fatalf("unprocessed batch: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("unprocessed = %d docs, want 2", len(batch))
	}

	if err := store.SetBody(ctx, "pdf-1", "extracted text"); err != nil {
		t.Fatalf("set body: %v", err)
	}

	batch, err = store.UnprocessedBatch(ctx, 10, 0)
	if err != nil {
		t.Fatalf("unprocessed batch: %v", err)
	}
	if len(batch) != 1 || batch[0].ID != "pdf-2" {
		t.Errorf("after SetBody, unprocessed = %+v, want only pdf-2", batch)
	}

	if err := store.SetBody(ctx, "missing", "text"); err == nil {
		t.Error("SetBody on unknown document should fail")
	}
}

func TestUnembeddedBatch_IsResumptionMarker(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	docs := []corpus.Document{
		{ID: "a", ContentType: "application/pdf"},
		{ID: "b", ContentType: "application/pdf"},
		{ID: "c", ContentType: "application/pdf"},
	}
	if _, err := store.InsertDocuments(ctx, docs); err != nil {
		t.Fatalf("inserting: %v", err)
	}
	for _, id := range []string{"a", "b"} {
		if err := store.SetBody(ctx, id, "text of "+id); err != nil {
			t.Fatalf("set body: %v", err)
		}
	}

	// Only documents with text are eligible.
	batch, err := store.UnembeddedBatch(ctx, 10, 0)
	if err != nil {
		t.Fatalf("unembedded batch: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("unembedded = %d docs, want 2", len(batch))
	}

	// Embedding one document removes it from the selection set.
	err = store.InsertEmbeddings(ctx, []corpus.Embedding{{DocumentID: "a", Vector: unitVec(1)}})
	if err != nil {
		t.Fatalf("inserting embedding: %v", err)
	}

	batch, err = store.UnembeddedBatch(ctx, 10, 0)
	if err != nil {
		t.Fatalf("unembedded batch: %v", err)
	}
	if len(batch) != 1 || batch[0].ID != "b" {
		t.Errorf("after embedding a, unembedded = %+v, want only b", batch)
	}
}

func TestInsertEmbeddings_AbsorbsDoubleWrites(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if _, err := store.InsertDocuments(ctx, []corpus.Document{{ID: "a"}}); err != nil {
		t.Fatalf("inserting: %v", err)
	}
	if err := store.SetBody(ctx, "a", "text"); err != nil {
		t.Fatalf("set body: %v", err)
	}

	emb := []corpus.Embedding{{DocumentID: "a", Vector: unitVec(1)}}
	if err := store.InsertEmbeddings(ctx, emb); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	// A second ingestion run writing the same batch must be harmless.
	if err := store.InsertEmbeddings(ctx, emb); err != nil {
		t.Fatalf("double write: %v", err)
	}

	count, err := store.CountEmbeddings(ctx)
	if err != nil {
		t.Fatalf("counting: %v", err)
	}
	if count != 1 {
		t.Errorf("embedding count = %d, want exactly 1 per document", count)
	}
}

func TestInsertEmbeddings_RejectsWrongDimension(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	err := store.InsertEmbeddings(ctx, []corpus.Embedding{
		{DocumentID: "a", Vector: []float32{1, 2, 3}},
	})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestNearestDocuments_OrdersByAscendingDistance(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	// Three documents at distances 0.1, 0.5 and 0.9 from the query vector.
	docs := []corpus.Document{{ID: "near"}, {ID: "mid"}, {ID: "far"}}
	if _, err := store.InsertDocuments(ctx, docs); err != nil {
		t.Fatalf("inserting: %v", err)
	}
	positions := map[string]float32{"near": 0.1, "mid": 0.5, "far": 0.9}
	for id, x := range positions {
		if err := store.SetBody(ctx, id, "body of "+id); err != nil {
			t.Fatalf("set body: %v", err)
		}
		err := store.InsertEmbeddings(ctx, []corpus.Embedding{{DocumentID: id, Vector: unitVec(x)}})
		if err != nil {
			t.Fatalf("inserting embedding: %v", err)
		}
	}

	matches, err := store.NearestDocuments(ctx, unitVec(0), 2)
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(matches))
	}
	if matches[0].ID != "near" || matches[1].ID != "mid" {
		t.Errorf("order = [%s %s], want [near mid]", matches[0].ID, matches[1].ID)
	}
	if matches[0].Distance > matches[1].Distance {
		t.Errorf("distances not ascending: %v > %v", matches[0].Distance, matches[1].Distance)
	}
	if matches[0].Text != "body of near" {
		t.Errorf("match text = %q, want document body", matches[0].Text)
	}
}

func TestNearestDocuments_FewerThanK(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	// Empty corpus: no matches, no error, no padding.
	matches, err := store.NearestDocuments(ctx, unitVec(0), 5)
	if err != nil {
		t.Fatalf("nearest on empty corpus: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("matches = %d, want 0", len(matches))
	}

	if _, err := store.InsertDocuments(ctx, []corpus.Document{{ID: "only"}}); err != nil {
		t.Fatalf("inserting: %v", err)
	}
	if err := store.SetBody(ctx, "only", "body"); err != nil {
		t.Fatalf("set body: %v", err)
	}
	err = store.InsertEmbeddings(ctx, []corpus.Embedding{{DocumentID: "only", Vector: unitVec(1)}})
	if err != nil {
		t.Fatalf("inserting embedding: %v", err)
	}

	matches, err = store.NearestDocuments(ctx, unitVec(0), 5)
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("matches = %d, want all available (1)", len(matches))
	}
}
