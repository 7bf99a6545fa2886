// Package metric provides Prometheus metrics for data-scribbler.
package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "scribbler"

// Registry holds all application metrics.
//
// Registry satisfies service.Observer, so it can be passed straight to
// service.WithObserver.
type Registry struct {
	registry *prometheus.Registry

	// Document metrics
	SaveOutcomes   *prometheus.CounterVec
	AppendDuration *prometheus.HistogramVec
	LeaseReclaims  prometheus.Counter
	SyncRecords    *prometheus.HistogramVec

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with every application metric plus the
// Go runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		SaveOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "document",
			Name:      "saves_total",
			Help:      "Save requests by client-visible outcome.",
		}, []string{"message"}),

		AppendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "version",
			Name:      "append_duration_seconds",
			Help:      "Time spent committing one version record.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"outcome"}),

		LeaseReclaims: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "version",
			Name:      "lease_reclaims_total",
			Help:      "Abandoned in-progress appends removed by another writer.",
		}),

		SyncRecords: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "sync",
			Name:      "records",
			Help:      "Records returned per update request.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"mode"}),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	r.registry.MustRegister(
		r.SaveOutcomes,
		r.AppendDuration,
		r.LeaseReclaims,
		r.SyncRecords,
		r.RequestsTotal,
		r.RequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		NewBuildInfoCollector(),
	)
	return r
}

// Registerer returns the registerer for components that export their own
// metrics, such as the badger backend.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Gatherer returns the underlying gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		Registry: r.registry,
	})
}

// AppendFinished records one VersionStore append.
func (r *Registry) AppendFinished(outcome string, elapsed time.Duration) {
	r.AppendDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// LeaseReclaimed counts a reclaimed lease.
func (r *Registry) LeaseReclaimed() {
	r.LeaseReclaims.Inc()
}

// SyncServed records the size of one sync response.
func (r *Registry) SyncServed(mode string, records int) {
	r.SyncRecords.WithLabelValues(mode).Observe(float64(records))
}

// SaveFinished counts a save by the message returned to the client.
func (r *Registry) SaveFinished(message string) {
	r.SaveOutcomes.WithLabelValues(message).Inc()
}

// RequestFinished records one HTTP request.
func (r *Registry) RequestFinished(method, route string, code int, elapsed time.Duration) {
	r.RequestsTotal.WithLabelValues(method, route, statusLabel(code)).Inc()
	r.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func statusLabel(code int) string {
	if t := http.StatusText(code); t == "" {
		return "unknown"
	}
	return strconv.Itoa(code)
}
