package corpus

import "time"

// VectorDimension is the fixed embedding dimensionality. It must match the
// vector(768) column in db/migrations and the configured embedder model.
const VectorDimension = 768

// Document is one government document in the corpus. Rows are created by the
// metadata collector with an empty body; the processor fills Body after text
// extraction. Documents are immutable once processed and never deleted.
type Document struct {
	ID          string
	Title       string
	Subject     string
	ContentType string
	Body        string // empty until the processor has extracted text
	CreatedAt   time.Time
}

// Embedding is the fixed-length vector for one document. At most one
// embedding exists per document; the presence of a row is the sole
// "has been embedded" marker.
type Embedding struct {
	DocumentID string
	Vector     []float32
}

// Match is one retrieval result: a document and its euclidean distance to
// the query vector. Matches are ordered by ascending distance.
type Match struct {
	ID       string
	Text     string
	Distance float64
}
