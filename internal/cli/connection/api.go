// Package connection provides the scribbler-cli client for a data-scribbler
// server.
package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Messages the server returns from /api.
const (
	MessageSuccess       = "success"
	MessageError         = "error"
	MessageTooBig        = "tooBig"
	MessageNeedFullAtoms = "needFullAtoms"
	MessageRejected      = "rejected"
)

// OutcomeError is a non-success /api message.
type OutcomeError struct {
	Function string
	Message  string
}

func (e *OutcomeError) Error() string {
	return fmt.Sprintf("%s: server answered %q", e.Function, e.Message)
}

// IsRejected reports whether err is a lost version race, which the caller
// resolves by saving under the next number.
func IsRejected(err error) bool {
	var oe *OutcomeError
	return errors.As(err, &oe) && oe.Message == MessageRejected
}

// ErrNotFound is returned by Latest for an unknown document.
var ErrNotFound = errors.New("document not found")

// UpdateResult is the answer to an update call.
type UpdateResult struct {
	Actions    []json.RawMessage `json:"actions" yaml:"-"`
	IsReadOnly bool              `json:"isReadOnly" yaml:"isReadOnly"`
	ReadOnlyID string            `json:"readOnlyId" yaml:"readOnlyId"`
}

// SaveResult is the answer to a save call.
type SaveResult struct {
	ID         string `json:"id" yaml:"id"`
	ReadOnlyID string `json:"readOnlyId" yaml:"readOnlyId"`
	When       int64  `json:"when" yaml:"when"`
}

// HealthResult is the body of /health.
type HealthResult struct {
	Status  string `json:"status" yaml:"status"`
	Time    string `json:"time" yaml:"time"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
}

type envelope struct {
	Version  int             `json:"version"`
	Function string          `json:"function"`
	ID       string          `json:"id"`
	Latest   *int64          `json:"latest,omitempty"`
	Action   json.RawMessage `json:"action,omitempty"`
}

// protocolVersion is sent in every envelope.
const protocolVersion = 1

// Update fetches the records after latest; -1 asks for an initial load.
func (c *HTTPClient) Update(ctx context.Context, id string, latest int64) (*UpdateResult, error) {
	var out struct {
		Message string `json:"message"`
		UpdateResult
	}
	if err := c.call(ctx, &envelope{Version: protocolVersion, Function: "update", ID: id, Latest: &latest}, &out); err != nil {
		return nil, err
	}
	if out.Message != MessageSuccess {
		return nil, &OutcomeError{Function: "update", Message: out.Message}
	}
	return &out.UpdateResult, nil
}

// Save commits action to id, or to a new document when id is empty.
func (c *HTTPClient) Save(ctx context.Context, id string, action json.RawMessage) (*SaveResult, error) {
	var out struct {
		Message string `json:"message"`
		SaveResult
	}
	if err := c.call(ctx, &envelope{Version: protocolVersion, Function: "save", ID: id, Action: action}, &out); err != nil {
		return nil, err
	}
	if out.Message != MessageSuccess {
		return nil, &OutcomeError{Function: "save", Message: out.Message}
	}
	return &out.SaveResult, nil
}

// Latest reads the polled pointer of id.
func (c *HTTPClient) Latest(ctx context.Context, id string) (int64, error) {
	if len(id) < 5 {
		return 0, fmt.Errorf("invalid document id %q", id)
	}
	resp, err := c.Get(ctx, "/data/"+id[:2]+"/"+id[2:4]+"/"+id[4:]+"/latest.json")
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 404 {
		return 0, ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return 0, &StatusError{Code: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return 0, fmt.Errorf("read pointer: %w", err)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse pointer: %w", err)
	}
	return n, nil
}

// Health queries /health.
func (c *HTTPClient) Health(ctx context.Context) (*HealthResult, error) {
	resp, err := c.Get(ctx, "/health")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	var out HealthResult
	if err := ParseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) call(ctx context.Context, env *envelope, target any) error {
	resp, err := c.Post(ctx, "/api", env)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return ParseResponse(resp, target)
}
