// Package handler provides HTTP request handlers for data-scribbler.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/domain"
	"github.com/jeff-tyrrill/data-scribbler/internal/telemetry/logger"
)

// Files of the public data tree.
const (
	latestFile = "latest.json"
	statusFile = "status.json"
)

// handleData handles GET /data/{aa}/{bb}/{rest}/{file}.
//
// Only the latest pointer is public. status.json links a read-only id to
// its edit id and is refused, so holding a read-only id never reveals the
// capability to write.
func (h *Handler) handleData(w http.ResponseWriter, r *http.Request) {
	aa, bb, rest := r.PathValue("aa"), r.PathValue("bb"), r.PathValue("rest")
	if len(aa) != 2 || len(bb) != 2 {
		writePlain(w, http.StatusNotFound)
		return
	}
	id, err := domain.ParseDocumentID(aa + bb + rest)
	if err != nil {
		writePlain(w, http.StatusNotFound)
		return
	}

	switch r.PathValue("file") {
	case latestFile:
	case statusFile:
		writePlain(w, http.StatusForbidden)
		return
	default:
		writePlain(w, http.StatusNotFound)
		return
	}

	version, err := h.docs.Latest().Read(r.Context(), id)
	if err != nil {
		if !errors.Is(err, domain.ErrDocumentNotFound) {
			logger.FromContext(r.Context()).ErrorContext(r.Context(), "read latest pointer", "error", err)
			writePlain(w, http.StatusInternalServerError)
			return
		}
		writePlain(w, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(strconv.FormatInt(version, 10)))
}
