package service

import (
	"context"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/domain"
)

// Store defines the storage capabilities the services are built on.
//
// Implementations return domain.ErrNotFound for missing resources and
// domain.ErrAlreadyExists when an exclusive create loses. Every method must
// be safe for concurrent use; no method may hold a lock across calls.
//
// @design DS-0103
type Store interface {
	// CreateLocation prepares storage for a document id.
	// An existing location is not an error.
	CreateLocation(ctx context.Context, id domain.DocumentID) error

	// ReadStatus returns the status record of id.
	ReadStatus(ctx context.Context, id domain.DocumentID) (*domain.StatusRecord, error)

	// WriteStatus atomically replaces the status record of id.
	WriteStatus(ctx context.Context, id domain.DocumentID, status *domain.StatusRecord) error

	// Touch refreshes the access time of the status record.
	Touch(ctx context.Context, id domain.DocumentID) error

	// ReadLatest returns the published latest pointer of id.
	ReadLatest(ctx context.Context, id domain.DocumentID) (int64, error)

	// WriteLatest atomically replaces the latest pointer of id.
	WriteLatest(ctx context.Context, id domain.DocumentID, version int64) error

	// ListVersions returns the committed version numbers of id in any order.
	ListVersions(ctx context.Context, id domain.DocumentID) ([]int64, error)

	// HasVersion reports whether version n of id is committed.
	HasVersion(ctx context.Context, id domain.DocumentID, n int64) (bool, error)

	// ReadVersion returns the stored bytes of committed version n.
	ReadVersion(ctx context.Context, id domain.DocumentID, n int64) ([]byte, error)

	// AcquireLease exclusively creates the in-progress lease for slot n.
	AcquireLease(ctx context.Context, id domain.DocumentID, n int64, lease domain.Lease) error

	// ReadLease returns the current lease for slot n.
	ReadLease(ctx context.Context, id domain.DocumentID, n int64) (*domain.Lease, error)

	// ReleaseLease deletes the lease for slot n only if it is held by writer.
	// It reports whether a lease was removed.
	ReleaseLease(ctx context.Context, id domain.DocumentID, n int64, writer string) (bool, error)

	// StageVersion durably writes data to a location private to writer.
	// Staged data is never visible as a committed version.
	StageVersion(ctx context.Context, id domain.DocumentID, n int64, writer string, data []byte) error

	// DiscardStaged removes the staged data of writer, if any.
	DiscardStaged(ctx context.Context, id domain.DocumentID, n int64, writer string) error

	// PublishVersion atomically makes the staged data of writer the
	// committed version n. It never replaces a committed version: if one
	// exists it returns domain.ErrAlreadyExists.
	PublishVersion(ctx context.Context, id domain.DocumentID, n int64, writer string) error
}
