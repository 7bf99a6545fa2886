// Package handler provides HTTP request handlers for data-scribbler.
//
// @req RQ-0301
// @design DS-0301
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/service"
)

// DefaultMaxRequestBytes caps a request body before it is decoded.
const DefaultMaxRequestBytes = 2 << 20

// SaveRecorder counts save outcomes. metric.Registry implements it.
type SaveRecorder interface {
	SaveFinished(message string)
}

type nopRecorder struct{}

func (nopRecorder) SaveFinished(string) {}

// Config holds the dependencies of a Handler.
type Config struct {
	Documents *service.DocumentService
	Logger    *slog.Logger

	// Recorder receives save outcomes (optional).
	Recorder SaveRecorder

	// MaxRequestBytes caps the /api body. Default: 2 MiB
	MaxRequestBytes int64

	// Version is reported by /health.
	Version string
}

// Handler serves the API, the pointer files and health checks.
//
// @design DS-0301
type Handler struct {
	docs     *service.DocumentService
	logger   *slog.Logger
	recorder SaveRecorder
	schema   *jsonschema.Schema
	maxBody  int64
	version  string
	ready    atomic.Bool
	mux      *http.ServeMux
}

// New creates a new Handler. It fails only if the embedded request schema
// does not compile.
func New(cfg Config) (*Handler, error) {
	schema, err := compileEnvelopeSchema()
	if err != nil {
		return nil, err
	}

	h := &Handler{
		docs:     cfg.Documents,
		logger:   cfg.Logger,
		recorder: cfg.Recorder,
		schema:   schema,
		maxBody:  cfg.MaxRequestBytes,
		version:  cfg.Version,
		mux:      http.NewServeMux(),
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.recorder == nil {
		h.recorder = nopRecorder{}
	}
	if h.maxBody <= 0 {
		h.maxBody = DefaultMaxRequestBytes
	}
	h.ready.Store(true)

	h.registerRoutes()
	return h, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// SetReady flips the /ready answer. The server clears it while draining.
func (h *Handler) SetReady(ready bool) {
	h.ready.Store(ready)
}

// registerRoutes registers all HTTP routes.
func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	h.mux.HandleFunc("POST /api", h.handleAPI)
	h.mux.HandleFunc("GET /data/{aa}/{bb}/{rest}/{file}", h.handleData)
}

// writeJSON writes v as the JSON response body.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeMessage answers /api with a bare outcome.
func (h *Handler) writeMessage(w http.ResponseWriter, message string) {
	h.writeJSON(w, http.StatusOK, MessageResponse{Message: message})
}

// writePlain writes a short non-JSON status body.
func writePlain(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	fmt.Fprintln(w, http.StatusText(status))
}
