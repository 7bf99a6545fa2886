// Package handler provides HTTP request handlers for data-scribbler.
package handler

import (
	"encoding/json"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/domain"
)

// Functions accepted in the request envelope.
const (
	FunctionUpdate = "update"
	FunctionSave   = "save"
)

// Messages returned in every /api response.
const (
	MessageSuccess       = "success"
	MessageError         = "error"
	MessageTooBig        = "tooBig"
	MessageNeedFullAtoms = "needFullAtoms"
	MessageRejected      = "rejected"
)

// Envelope is the body of POST /api.
//
// @design DS-0302
type Envelope struct {
	// Version of the client protocol; accepted and otherwise ignored.
	Version  int             `json:"version,omitempty"`
	Function string          `json:"function"`
	ID       string          `json:"id"`
	Latest   *int64          `json:"latest,omitempty"`
	Action   json.RawMessage `json:"action,omitempty"`
}

// MessageResponse is the bare outcome of a failed call.
type MessageResponse struct {
	Message string `json:"message"`
}

// UpdateResponse answers a successful update.
//
// @design DS-0302
type UpdateResponse struct {
	Message    string                  `json:"message"`
	Actions    []*domain.VersionRecord `json:"actions"`
	IsReadOnly bool                    `json:"isReadOnly"`
	ReadOnlyID domain.DocumentID       `json:"readOnlyId"`
}

// SaveResponse answers a successful save.
//
// @design DS-0302
type SaveResponse struct {
	Message    string            `json:"message"`
	ID         domain.DocumentID `json:"id"`
	ReadOnlyID domain.DocumentID `json:"readOnlyId"`
	When       int64             `json:"when"`
}

// HealthResponse is the body of /health and /ready.
type HealthResponse struct {
	Status  string `json:"status"`
	Time    string `json:"time"`
	Version string `json:"version,omitempty"`
}
