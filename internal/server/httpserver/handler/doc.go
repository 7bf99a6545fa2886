// Package handler provides HTTP request handlers for data-scribbler.
//
// This package contains handlers for all HTTP endpoints:
//
//   - api.go: POST /api, the update and save functions
//   - data.go: GET /data/..., pointer polling
//   - health.go: Health and readiness checks
//
// The /api contract predates this server: every outcome, including
// malformed input, is HTTP 200 with a "message" field the client switches
// on. Transport failures (oversized body, rate limit) are the only non-200
// answers.
//
// @req RQ-0301
// @design DS-0301
package handler
