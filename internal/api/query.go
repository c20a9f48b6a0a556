package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"net/http"

	"github.com/ragmart/ragmart/internal/answer"
	"github.com/ragmart/ragmart/internal/corpus"
	"github.com/ragmart/ragmart/internal/log"
	"github.com/ragmart/ragmart/internal/rag"
)

// maxQueryBodySize caps a query request body at 1 MiB.
const maxQueryBodySize = 1 << 20

// Retriever finds supporting passages for a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string) []corpus.Match
}

// Generator produces answers, materialized or streamed.
type Generator interface {
	Complete(ctx context.Context, msgs []rag.Message) (string, error)
	Stream(ctx context.Context, msgs []rag.Message) iter.Seq[answer.Fragment]
}

// queryRequest is the payload of both query endpoints.
type queryRequest struct {
	Query   string        `json:"query"`
	History []rag.Message `json:"history,omitempty"`
}

// queryResponse is the reply of the materialized query endpoint.
type queryResponse struct {
	Response string         `json:"response"`
	Sources  []rag.Citation `json:"sources"`
}

type queryHandler struct {
	retriever Retriever
	assembler *rag.Assembler
	generator Generator
	logger    log.Logger
}

func (h *queryHandler) decode(w http.ResponseWriter, r *http.Request) (*queryRequest, bool) {
	var req queryRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxQueryBodySize))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON", h.logger)
		return nil, false
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query must not be empty", h.logger)
		return nil, false
	}
	for _, m := range req.History {
		if m.Role != rag.RoleUser && m.Role != rag.RoleAssistant {
			writeError(w, http.StatusBadRequest, "invalid_request", "history roles must be user or assistant", h.logger)
			return nil, false
		}
	}
	return &req, true
}

// assemble runs retrieval and prompt assembly for a validated request.
func (h *queryHandler) assemble(ctx context.Context, req *queryRequest) ([]rag.Message, []rag.Citation) {
	matches := h.retriever.Retrieve(ctx, req.Query)
	msgs := h.assembler.BuildMessages(req.Query, matches, req.History)
	citations := h.assembler.Citations(matches)
	if citations == nil {
		// Marshals as an empty list rather than null.
		citations = []rag.Citation{}
	}
	return msgs, citations
}

// query answers a question in a single JSON response.
func (h *queryHandler) query(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	msgs, citations := h.assemble(r.Context(), req)

	text, err := h.generator.Complete(r.Context(), msgs)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		h.logger.Error("generation failed", "error", err)
		writeError(w, http.StatusBadGateway, "generation_failed", "the model could not produce an answer", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Response: text,
		Sources:  citations,
	}, h.logger)
}
