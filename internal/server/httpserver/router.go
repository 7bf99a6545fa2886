// Package httpserver provides the HTTP/HTTPS server for data-scribbler.
package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/jeff-tyrrill/data-scribbler/internal/server/httpserver/handler"
	"github.com/jeff-tyrrill/data-scribbler/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Handler serves /api, /data and the health checks.
	Handler *handler.Handler

	// Metrics is exposed on /metrics and receives request metrics (optional).
	Metrics *metric.Registry

	// Limiter throttles requests per client IP (optional).
	Limiter *RateLimiter

	// Logger for request logging.
	Logger *slog.Logger

	// CORSOrigins is the list of allowed CORS origins (empty = allow all).
	CORSOrigins []string

	// MetricsToken guards /metrics with a bearer token (empty = open).
	MetricsToken string
}

// NewRouter creates the HTTP router with all routes and middleware.
//
// Order: Recover -> CORS -> RequestID -> RateLimit -> Audit -> mux.
// Health checks and /metrics skip the rate limiter.
//
// @design DS-0301, DS-0302
func NewRouter(cfg *RouterConfig) http.Handler {
	var observer RequestObserver
	if cfg.Metrics != nil {
		observer = cfg.Metrics
	}

	mux := http.NewServeMux()

	limited := []Middleware{}
	if cfg.Limiter != nil {
		limited = append(limited, cfg.Limiter.Middleware())
	}
	limited = append(limited, Audit(observer))

	api := Chain(cfg.Handler, limited...)
	mux.Handle("/api", api)
	mux.Handle("/data/", api)

	probes := Chain(cfg.Handler, Audit(observer))
	mux.Handle("GET /health", probes)
	mux.Handle("GET /ready", probes)

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics.Handler(), MetricsAuth(cfg.MetricsToken), Audit(nil)))
	}

	return Chain(mux,
		Recover(),
		CORS(cfg.CORSOrigins),
		RequestID(cfg.Logger),
	)
}
