package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/service"
	"github.com/jeff-tyrrill/data-scribbler/internal/server/httpserver/handler"
	"github.com/jeff-tyrrill/data-scribbler/internal/storage/memory"
	"github.com/jeff-tyrrill/data-scribbler/internal/telemetry/logger"
	"github.com/jeff-tyrrill/data-scribbler/internal/telemetry/metric"
)

func newTestRouter(t *testing.T, cfg RouterConfig) (http.Handler, *metric.Registry) {
	t.Helper()
	metrics := metric.NewRegistry()
	svc := service.NewDocumentService(memory.New(), service.DefaultDocumentServiceConfig(), service.WithObserver(metrics))
	h, err := handler.New(handler.Config{Documents: svc, Recorder: metrics, Logger: logger.Discard()})
	if err != nil {
		t.Fatal(err)
	}
	cfg.Handler = h
	cfg.Metrics = metrics
	cfg.Logger = logger.Discard()
	return NewRouter(&cfg), metrics
}

func TestNewRouter_Save(t *testing.T) {
	router, metrics := newTestRouter(t, RouterConfig{})

	body := `{"version":1,"function":"save","id":"","action":{"id":0,"fullStateAtoms":{"root":0},"jumpTo":null}}`
	req := httptest.NewRequest("POST", "/api", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"message":"success"`) {
		t.Fatalf("save = %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(HeaderRequestID) == "" {
		t.Error("response has no request id")
	}

	if got := testutil.ToFloat64(metrics.SaveOutcomes.WithLabelValues("success")); got != 1 {
		t.Errorf("saves_total{success} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("POST", "POST /api", "200")); got != 1 {
		t.Errorf("requests_total{POST /api} = %v, want 1", got)
	}
}

func TestNewRouter_Routes(t *testing.T) {
	router, _ := newTestRouter(t, RouterConfig{MetricsToken: "t0ken"})

	tests := []struct {
		name   string
		method string
		path   string
		auth   string
		want   int
	}{
		{"health", "GET", "/health", "", http.StatusOK},
		{"ready", "GET", "/ready", "", http.StatusOK},
		{"api wrong method", "GET", "/api", "", http.StatusMethodNotAllowed},
		{"unknown data document", "GET", "/data/aa/aa/aaaaaaaaaaaaaaaaaaaaaaaaaaaa/latest.json", "", http.StatusNotFound},
		{"unknown path", "GET", "/sessions", "", http.StatusNotFound},
		{"metrics without token", "GET", "/metrics", "", http.StatusUnauthorized},
		{"metrics with token", "GET", "/metrics", "Bearer t0ken", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
			}
		})
	}
}

func TestNewRouter_RateLimitSkipsProbes(t *testing.T) {
	router, _ := newTestRouter(t, RouterConfig{Limiter: NewRateLimiter(0.001, 1)})

	do := func(method, path string) int {
		req := httptest.NewRequest(method, path, strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do("POST", "/api"); code != http.StatusOK {
		t.Fatalf("first /api = %d, want 200", code)
	}
	if code := do("POST", "/api"); code != http.StatusTooManyRequests {
		t.Errorf("second /api = %d, want 429", code)
	}
	for i := 0; i < 3; i++ {
		if code := do("GET", "/health"); code != http.StatusOK {
			t.Errorf("/health = %d, want 200", code)
		}
	}
}
