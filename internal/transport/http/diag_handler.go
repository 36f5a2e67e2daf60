package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"instragg/internal/aggregation"
	"instragg/pkg/contracts"
)

// StatsFunc supplies a point-in-time snapshot of the engine counters.
type StatsFunc func() aggregation.Stats

// DiagHandler serves the pull-only diagnostics surface for a long
// ingestion run: health, engine counters, and Prometheus metrics.
type DiagHandler struct {
	stats   StatsFunc
	started time.Time
	logger  *slog.Logger
}

// NewDiagHandler creates a diagnostics handler.
func NewDiagHandler(stats StatsFunc, logger *slog.Logger) *DiagHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiagHandler{
		stats:   stats,
		started: time.Now(),
		logger:  logger.With(slog.String("handler", "diag")),
	}
}

// NewRouter builds the diagnostics router: /healthz, /api/stats and
// /metrics backed by the given Prometheus registry.
func NewRouter(h *DiagHandler, registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Get("/api/stats", h.Stats)
	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	return r
}

// Health handles GET /healthz
func (h *DiagHandler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status":  "ok",
		"version": contracts.Version,
		"uptime":  time.Since(h.started).String(),
	})
}

// Stats handles GET /api/stats
func (h *DiagHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]interface{}{"error": "stats unavailable"})
		return
	}
	render.JSON(w, r, h.stats())
}

// Serve starts the diagnostics listener in the background and returns the
// server so the caller can shut it down.
func Serve(addr string, handler http.Handler, logger *slog.Logger) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("diagnostics server stopped", slog.String("error", err.Error()))
		}
	}()
	return srv
}
