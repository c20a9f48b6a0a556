package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ragmart/ragmart/internal/log"
)

// CorpusCounter reports corpus size for the readiness probe.
type CorpusCounter interface {
	CountDocuments(ctx context.Context) (int64, error)
	CountEmbeddings(ctx context.Context) (int64, error)
}

type readyResponse struct {
	Status     string `json:"status"`
	Documents  int64  `json:"documents,omitempty"`
	Embeddings int64  `json:"embeddings,omitempty"`
}

// health reports process liveness for container probes.
func health(logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	}
}

// readiness reports whether the server can serve queries. With a pool
// configured it pings the database and includes corpus counts; without
// one it reduces to liveness.
func readiness(pool *pgxpool.Pool, counter CorpusCounter, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				logger.Warn("readiness check failed", "error", err)
				writeError(w, http.StatusServiceUnavailable, "not_ready", "database unreachable", logger)
				return
			}
		}

		resp := readyResponse{Status: "ready"}
		if counter != nil {
			docs, err := counter.CountDocuments(ctx)
			if err != nil {
				logger.Warn("readiness count failed", "error", err)
				writeError(w, http.StatusServiceUnavailable, "not_ready", "corpus unreachable", logger)
				return
			}
			embs, err := counter.CountEmbeddings(ctx)
			if err != nil {
				logger.Warn("readiness count failed", "error", err)
				writeError(w, http.StatusServiceUnavailable, "not_ready", "corpus unreachable", logger)
				return
			}
			resp.Documents = docs
			resp.Embeddings = embs
		}

		writeJSON(w, http.StatusOK, resp, logger)
	}
}
