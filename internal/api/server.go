// Package api exposes the question-answering pipeline over HTTP.
package api

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ragmart/ragmart/internal/log"
	"github.com/ragmart/ragmart/internal/rag"
)

// ServerConfig contains configuration for creating the HTTP server.
type ServerConfig struct {
	Logger     log.Logger
	Retriever  Retriever      // Required
	Assembler  *rag.Assembler // Required
	Generator  Generator      // Required
	Pool       *pgxpool.Pool  // Optional: nil disables the DB check in /readyz
	Counter    CorpusCounter  // Optional: nil omits corpus counts in /readyz
	TrustProxy bool           // Trust X-Real-IP/X-Forwarded-For headers
	RateBurst  int            // Rate limiter burst per IP (0 = default 60)
}

// Server is the HTTP server for the query API.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if cfg.Assembler == nil {
		return nil, errors.New("assembler is required")
	}
	if cfg.Generator == nil {
		return nil, errors.New("generator is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.Config{})
	}

	qh := &queryHandler{
		retriever: cfg.Retriever,
		assembler: cfg.Assembler,
		generator: cfg.Generator,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/query", qh.query)
	mux.HandleFunc("POST /api/v1/query/stream", qh.stream)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack, outermost first:
	//   Recovery -> RequestID -> Logging -> RateLimit -> Routes
	// RequestID sits before Logging so request_id is available in
	// log attributes.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /healthz", health(logger))
	topMux.Handle("GET /readyz", readiness(cfg.Pool, cfg.Counter, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
