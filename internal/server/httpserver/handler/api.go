// Package handler provides HTTP request handlers for data-scribbler.
package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/domain"
	"github.com/jeff-tyrrill/data-scribbler/internal/core/service"
	"github.com/jeff-tyrrill/data-scribbler/internal/telemetry/logger"
)

// handleAPI handles POST /api.
//
// @design DS-0302
func (h *Handler) handleAPI(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writePlain(w, http.StatusRequestEntityTooLarge)
			return
		}
		log.WarnContext(r.Context(), "read request body", "error", err)
		h.writeMessage(w, MessageError)
		return
	}

	env, err := decodeEnvelope(h.schema, body)
	if err != nil {
		log.DebugContext(r.Context(), "invalid request envelope", "error", err)
		h.writeMessage(w, MessageError)
		return
	}

	switch env.Function {
	case FunctionUpdate:
		h.update(w, r, env)
	case FunctionSave:
		h.save(w, r, env)
	default:
		h.writeMessage(w, MessageError)
	}
}

// update returns the actions the client is missing. latest == -1 asks for
// an initial load.
func (h *Handler) update(w http.ResponseWriter, r *http.Request, env *Envelope) {
	baseline := service.InitialLoad()
	if *env.Latest != domain.NoVersion {
		baseline = service.Since(*env.Latest)
	}

	result, err := h.docs.Update(r.Context(), &service.UpdateRequest{
		ID:       env.ID,
		Baseline: baseline,
	})
	if err != nil {
		h.logOutcome(r, "update failed", err)
		h.writeMessage(w, MessageError)
		return
	}

	h.writeJSON(w, http.StatusOK, UpdateResponse{
		Message:    MessageSuccess,
		Actions:    result.Records,
		IsReadOnly: result.IsReadOnly,
		ReadOnlyID: result.ReadOnlyID,
	})
}

// save commits one action, creating the document first when id is empty.
func (h *Handler) save(w http.ResponseWriter, r *http.Request, env *Envelope) {
	action, err := domain.ParseAction(env.Action)
	if err != nil {
		h.logOutcome(r, "invalid action", err)
		h.finishSave(w, MessageError)
		return
	}

	result, err := h.docs.Save(r.Context(), &service.SaveRequest{
		ID:     env.ID,
		Action: action,
	})
	if err != nil {
		message := saveMessage(err)
		if message == MessageError {
			h.logOutcome(r, "save failed", err)
		}
		h.finishSave(w, message)
		return
	}

	h.recorder.SaveFinished(MessageSuccess)
	h.writeJSON(w, http.StatusOK, SaveResponse{
		Message:    MessageSuccess,
		ID:         result.ID,
		ReadOnlyID: result.ReadOnlyID,
		When:       result.When,
	})
}

func (h *Handler) finishSave(w http.ResponseWriter, message string) {
	h.recorder.SaveFinished(message)
	h.writeMessage(w, message)
}

// saveMessage maps a save error onto the client outcome.
func saveMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrPayloadTooLarge):
		return MessageTooBig
	case errors.Is(err, domain.ErrCheckpointRequired):
		return MessageNeedFullAtoms
	case domain.IsConflict(err):
		return MessageRejected
	default:
		return MessageError
	}
}

// logOutcome logs client mistakes at debug and server faults at error.
func (h *Handler) logOutcome(r *http.Request, msg string, err error) {
	log := logger.FromContext(r.Context())
	code := domain.GetErrorCode(err)
	if errors.Is(err, domain.ErrStorageError) || errors.Is(err, domain.ErrInternalServer) || code == "" {
		log.ErrorContext(r.Context(), msg, "code", code, "error", err)
		return
	}
	log.DebugContext(r.Context(), msg, "code", code, "error", err)
}
