package api

import (
	"fmt"
	"net/http"

	"github.com/ragmart/ragmart/internal/rag"
)

// stream answers a question as plain text, written incrementally.
// Citations come first as a source block, then the generated answer.
// Once streaming has begun the status line is committed, so failures
// are embedded in the stream as text instead of an error status.
func (h *queryHandler) stream(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	msgs, citations := h.assemble(r.Context(), req)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)
	flush := func() {
		if canFlush {
			flusher.Flush()
		}
	}

	if block := sourceBlock(citations); block != "" {
		if _, err := fmt.Fprint(w, block); err != nil {
			return
		}
		flush()
	}

	for fragment := range h.generator.Stream(r.Context(), msgs) {
		if _, err := fmt.Fprint(w, fragment.Text); err != nil {
			// Consumer went away; the break cancels generation.
			h.logger.Debug("stream consumer disconnected", "error", err)
			return
		}
		flush()
	}
}

// sourceBlock renders citations as a plain-text preamble.
func sourceBlock(citations []rag.Citation) string {
	if len(citations) == 0 {
		return ""
	}
	block := "Bronnen:\n"
	for _, c := range citations {
		block += fmt.Sprintf("- %s (afstand %.3f): %s\n", c.ID, c.Distance, c.Link)
	}
	return block + "\n"
}
