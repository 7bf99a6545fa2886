// Package metric provides Prometheus metrics for data-scribbler.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Registry, service observer and HTTP handler
//   - collector.go: Build information collector
//
// Metrics include:
//
//   - Save outcomes by client message
//   - Append latency by outcome, and abandoned-lease reclaims
//   - Records served per sync by mode
//   - HTTP request counts and latencies by route
//   - Badger engine statistics when that driver is selected
//
// Metrics are exposed at /metrics in Prometheus format.
//
// @req RQ-0403
// @design DS-0402
package metric
