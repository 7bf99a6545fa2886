// Package domain defines the core domain models for the version store.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
// Codes follow the format DS-<AREA>-<NNNN>; the numeric part mirrors the
// closest HTTP status so handlers and logs agree on severity.
type DomainError struct {
	Code    string // Error code (e.g., "DS-VER-4090")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Storage sentinels
//
// Backends return these (optionally wrapped); services translate them into
// the outcome taxonomy below.
// ============================================================================

var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates an exclusive create lost to an existing resource.
	ErrAlreadyExists = errors.New("resource already exists")
)

// ============================================================================
// Document Errors (DOC)
// ============================================================================

var (
	// ErrInvalidDocumentID indicates the id does not match the 32-char lowercase alphanumeric format.
	ErrInvalidDocumentID = NewDomainError("DS-DOC-4001", "invalid document id")

	// ErrDocumentNotFound indicates the document has no latest pointer (never created).
	ErrDocumentNotFound = NewDomainError("DS-DOC-4040", "document not found")
)

// ============================================================================
// Version Errors (VER)
// ============================================================================

var (
	// ErrInvalidAction indicates the action payload is malformed.
	ErrInvalidAction = NewDomainError("DS-VER-4001", "invalid action")

	// ErrVersionConflict indicates the version number is already claimed.
	ErrVersionConflict = NewDomainError("DS-VER-4090", "version already claimed")

	// ErrReadOnlyTarget indicates a save was attempted against a read-only id.
	ErrReadOnlyTarget = NewDomainError("DS-VER-4091", "document is read-only")

	// ErrPayloadTooLarge indicates the serialized action exceeds the size limit.
	ErrPayloadTooLarge = NewDomainError("DS-VER-4130", "action too large")

	// ErrCheckpointRequired indicates the save must carry a full-state snapshot.
	ErrCheckpointRequired = NewDomainError("DS-VER-4280", "full state snapshot required")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrBadRequest indicates a malformed request envelope.
	ErrBadRequest = NewDomainError("DS-SYS-4000", "bad request")

	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("DS-SYS-5000", "internal server error")

	// ErrStorageError indicates a storage layer error.
	ErrStorageError = NewDomainError("DS-SYS-5001", "storage error")
)

// IsConflict reports whether err is one of the outcomes a client resolves by
// choosing a new version number.
func IsConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrReadOnlyTarget)
}
