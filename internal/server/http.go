package server

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/studyforge/examgen/internal/config"
)

// WSUpgrader handles WebSocket upgrades (configure CORS/security as needed).
var WSUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: implement proper origin checking for production
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// NewHTTPServer wires the API routes. pool and rdb may be nil when the
// respective backends are disabled; health checks then skip them.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, pool *pgxpool.Pool, rdb *redis.Client, handlers *ExamHandlers) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), pool, rdb); err != nil {
			logger.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, `{"status":"degraded"}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/exams/generate", handlers.StartGeneration)
	mux.HandleFunc("/v1/exams/{id}", handlers.GetExam)
	mux.HandleFunc("/v1/runs/{id}", handlers.GetRun)
	mux.HandleFunc("/ws/runs/{id}", handlers.WatchRun)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: corsMiddleware(cfg.CORS, mux),
	}
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, rdb *redis.Client) error {
	if pool != nil {
		if err := pool.Ping(ctx); err != nil {
			return err
		}
	}
	if rdb != nil {
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	return nil
}
