// Package httpserver provides the HTTP/HTTPS server for data-scribbler.
package httpserver

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/oklog/ulid/v2"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/jeff-tyrrill/data-scribbler/internal/telemetry/logger"
	"github.com/jeff-tyrrill/data-scribbler/pkg/cmap"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain chains multiple middlewares together. The first middleware is the
// outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RequestID tags each request with an id and a request-scoped logger.
// A client supplied X-Request-ID is kept when it is short and printable.
func RequestID(base *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(HeaderRequestID)
			if !validRequestID(requestID) {
				requestID = ulid.Make().String()
			}
			w.Header().Set(HeaderRequestID, requestID)

			ctx := logger.WithRequestID(r.Context(), requestID)
			if base != nil {
				ctx = logger.WithLogger(ctx, base)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, c := range id {
		if c < 0x21 || c > 0x7e {
			return false
		}
	}
	return true
}

// RateLimiter is a per-IP token bucket.
//
// @design DS-0301
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	clients *cmap.Map[string, *clientLimiter]
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomicTime
}

// DefaultLimiterIdleTTL is how long an idle client's bucket is kept.
const DefaultLimiterIdleTTL = 10 * time.Minute

// NewRateLimiter creates a limiter allowing rps requests per second per
// client IP with the given burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: DefaultLimiterIdleTTL,
		now:     time.Now,
		clients: cmap.New[string, *clientLimiter](),
	}
}

// Allow reports whether a request from ip may proceed.
func (l *RateLimiter) Allow(ip string) bool {
	now := l.now()
	c, ok := l.clients.Get(ip)
	if !ok {
		c, _ = l.clients.GetOrSet(ip, &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)})
	}
	c.lastSeen.Store(now)
	return c.limiter.AllowN(now, 1)
}

// Len returns the number of tracked clients.
func (l *RateLimiter) Len() int {
	return l.clients.Count()
}

// Sweep drops buckets idle for longer than the idle TTL.
func (l *RateLimiter) Sweep() int {
	cutoff := l.now().Add(-l.idleTTL)
	stale := func(c *clientLimiter) bool { return c.lastSeen.Load().Before(cutoff) }

	var keys []string
	l.clients.Range(func(ip string, c *clientLimiter) bool {
		if stale(c) {
			keys = append(keys, ip)
		}
		return true
	})

	removed := 0
	for _, ip := range keys {
		if l.clients.DeleteIf(ip, stale) {
			removed++
		}
	}
	return removed
}

// Cleanup sweeps idle buckets every interval until ctx is done.
func (l *RateLimiter) Cleanup(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Middleware rejects requests over the limit with 429.
func (l *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(getClientIP(r)) {
				w.Header().Set("Retry-After", "1")
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestObserver records finished requests. metric.Registry implements it.
type RequestObserver interface {
	RequestFinished(method, route string, code int, elapsed time.Duration)
}

// Audit logs every request and reports it to obs (optional).
//
// The route label is the matched ServeMux pattern, so it must run inside
// RequestID and pass its request unchanged to the mux.
func Audit(obs RequestObserver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)

			route := r.Pattern
			if route == "" {
				route = "other"
			}
			if obs != nil {
				obs.RequestFinished(r.Method, route, m.Code, m.Duration)
			}

			attrs := []any{
				"method", r.Method,
				"path", logger.RedactString(r.URL.Path),
				"route", route,
				"status", m.Code,
				"bytes", m.Written,
				"duration_ms", m.Duration.Milliseconds(),
				"client_ip", getClientIP(r),
			}

			log := logger.FromContext(r.Context())
			switch {
			case m.Code >= 500:
				log.ErrorContext(r.Context(), "request completed with error", attrs...)
			case m.Code >= 400:
				log.WarnContext(r.Context(), "request completed with client error", attrs...)
			default:
				log.DebugContext(r.Context(), "request completed", attrs...)
			}
		})
	}
}

// Recover recovers from panics and returns 500.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.FromContext(r.Context()).ErrorContext(r.Context(), "panic recovered",
						"error", err,
						"path", logger.RedactString(r.URL.Path),
					)
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// CORS adds Cross-Origin Resource Sharing headers. An empty list allows
// every origin, which suits a public editor front end.
func CORS(allowedOrigins []string) Middleware {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", HeaderRequestID},
		ExposedHeaders: []string{HeaderRequestID},
		MaxAge:         86400,
	})
	return c.Handler
}

// MetricsAuth guards the metrics endpoint with a static bearer token.
// An empty token leaves the endpoint open.
func MetricsAuth(token string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="metrics"`)
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// SplitHostPort handles IPv6 addresses like [::1]:8080.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
