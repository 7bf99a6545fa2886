// Package handler provides HTTP request handlers for data-scribbler.
package handler

import (
	"net/http"
	"time"
)

// handleHealth handles GET /health.
//
// @design DS-0301
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Time:    time.Now().UTC().Format(time.RFC3339),
		Version: h.version,
	})
}

// handleReady handles GET /ready.
//
// @design DS-0301
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if !h.ready.Load() {
		h.writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "draining",
			Time:   time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ready",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
