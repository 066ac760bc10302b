package rest

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig tunes the outer HTTP surface.
type RouterConfig struct {
	Logger            *slog.Logger
	RequestsPerSecond int
	BurstSize         int
}

// NewRouter wires the API routes with logging, recovery and per-IP rate
// limiting. The health and metrics endpoints bypass the rate limiter.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 20
	}

	api := http.NewServeMux()
	api.HandleFunc("POST /api/v1/bills", h.HandleIngestBill)
	api.HandleFunc("POST /api/v1/maintenance/sweep", h.HandleSweep)

	limited := chain(api, rateLimitMiddleware(cfg.RequestsPerSecond, cfg.BurstSize))

	mux := http.NewServeMux()
	mux.Handle("/api/", limited)
	mux.HandleFunc("GET /healthz", h.HandleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return chain(mux,
		recoveryMiddleware(logger),
		loggingMiddleware(logger),
	)
}
