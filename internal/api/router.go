package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brainnova/brainnova-score/internal/config"
	"github.com/brainnova/brainnova-score/internal/metrics"
)

func NewRouter(res Resolver, local LocalScorer, m *metrics.Metrics, cfg config.ServerConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(RateLimitMiddleware(cfg.RateLimitPerMinute))

	scores := NewScoreHandler(res, local, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Method(http.MethodPost, "/brainnova-score", m.WrapHandler("/api/v1/brainnova-score", http.HandlerFunc(scores.Resolve)))
		r.Method(http.MethodPost, "/brainnova-score/local", m.WrapHandler("/api/v1/brainnova-score/local", http.HandlerFunc(scores.Local)))
		r.Method(http.MethodGet, "/hierarchy", m.WrapHandler("/api/v1/hierarchy", http.HandlerFunc(scores.Hierarchy)))
	})

	return r
}

// Pinger reports whether the data store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

func NewMetricsRouter(p Pinger, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := p.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}
