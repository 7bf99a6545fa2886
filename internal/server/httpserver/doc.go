// Package httpserver provides the HTTP/HTTPS server for data-scribbler.
//
// This package serves the editor API using stdlib net/http:
//
//   - POST /api: update and save calls, see package handler
//   - GET /data/{aa}/{bb}/{rest}/latest.json: the polled latest pointer
//   - Health endpoints: /health, /ready, /metrics
//
// Features:
//
//   - Optional TLS termination
//   - Middleware chain: Recover, CORS, RequestID, RateLimit, Audit
//   - Graceful shutdown with configurable timeout
//   - Prometheus metrics integration
//
// @req RQ-0301
// @design DS-0301
package httpserver
