package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/domain"
	"github.com/jeff-tyrrill/data-scribbler/pkg/token"
)

// DocumentRegistry creates documents.
type DocumentRegistry struct {
	store  Store
	latest *LatestIndex
	logger *slog.Logger

	// newID returns a fresh document id.
	newID func() (string, error)
}

// NewDocumentRegistry creates a new DocumentRegistry.
func NewDocumentRegistry(store Store, latest *LatestIndex, opts ...Option) *DocumentRegistry {
	o := buildOptions(opts)
	return &DocumentRegistry{
		store:  store,
		latest: latest,
		logger: o.logger,
		newID:  token.Generate,
	}
}

// Create allocates an edit id and a read-only id, links them through their
// status records and initialises both latest pointers to NoVersion.
//
// The ids are random capabilities; collisions are not checked. If any
// status or pointer write fails the pair is not returned.
func (r *DocumentRegistry) Create(ctx context.Context) (*domain.DocumentPair, error) {
	editID, err := r.mintID()
	if err != nil {
		return nil, err
	}
	readOnlyID, err := r.mintID()
	if err != nil {
		return nil, err
	}

	for _, id := range []domain.DocumentID{editID, readOnlyID} {
		if err := r.store.CreateLocation(ctx, id); err != nil {
			return nil, storageError(err)
		}
	}

	if err := r.store.WriteStatus(ctx, editID, &domain.StatusRecord{
		IsReadOnly: false,
		ReadOnlyID: readOnlyID,
	}); err != nil {
		return nil, storageError(err)
	}
	if err := r.store.WriteStatus(ctx, readOnlyID, &domain.StatusRecord{
		IsReadOnly: true,
		EditID:     editID,
	}); err != nil {
		return nil, storageError(err)
	}

	if _, err := r.latest.Publish(ctx, editID); err != nil {
		return nil, err
	}

	r.logger.Info("document created", "doc", editID, "read_only", readOnlyID)
	return &domain.DocumentPair{EditID: editID, ReadOnlyID: readOnlyID}, nil
}

func (r *DocumentRegistry) mintID() (domain.DocumentID, error) {
	raw, err := r.newID()
	if err != nil {
		return "", domain.ErrInternalServer.WithCause(fmt.Errorf("generate id: %w", err))
	}
	return domain.ParseDocumentID(raw)
}
