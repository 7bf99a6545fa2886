package service

import (
	"context"
	"log/slog"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/domain"
)

// DefaultMaxActionBytes is the largest accepted serialized action.
const DefaultMaxActionBytes = 512 << 10

// DocumentService orchestrates saves and updates across the components.
//
// A save flows DocumentRegistry (new documents only) → CheckpointPolicy →
// VersionStore → LatestIndex. An update flows straight into SyncReader.
//
// @req RQ-0102
// @design DS-0103
type DocumentService struct {
	store      Store
	registry   *DocumentRegistry
	checkpoint *CheckpointPolicy
	versions   *VersionStore
	latest     *LatestIndex
	sync       *SyncReader
	logger     *slog.Logger

	maxActionBytes int
}

// DocumentServiceConfig carries the tunables of every component.
type DocumentServiceConfig struct {
	MaxActionBytes int
	Versions       VersionStoreConfig
	Checkpoint     CheckpointConfig
	Sync           SyncConfig
}

// DefaultDocumentServiceConfig returns the default configuration.
func DefaultDocumentServiceConfig() DocumentServiceConfig {
	return DocumentServiceConfig{
		MaxActionBytes: DefaultMaxActionBytes,
		Versions:       DefaultVersionStoreConfig(),
		Checkpoint:     DefaultCheckpointConfig(),
		Sync:           DefaultSyncConfig(),
	}
}

// NewDocumentService wires all components over store.
func NewDocumentService(store Store, cfg DocumentServiceConfig, opts ...Option) *DocumentService {
	o := buildOptions(opts)
	latest := NewLatestIndex(store, opts...)
	return &DocumentService{
		store:          store,
		registry:       NewDocumentRegistry(store, latest, opts...),
		checkpoint:     NewCheckpointPolicy(store, cfg.Checkpoint),
		versions:       NewVersionStore(store, cfg.Versions, opts...),
		latest:         latest,
		sync:           NewSyncReader(store, cfg.Sync, opts...),
		logger:         o.logger,
		maxActionBytes: cfg.MaxActionBytes,
	}
}

// Latest returns the latest index, for pointer polling.
func (s *DocumentService) Latest() *LatestIndex {
	return s.latest
}

// Registry returns the document registry.
func (s *DocumentService) Registry() *DocumentRegistry {
	return s.registry
}

// ============================================================================
// Save
// ============================================================================

// SaveRequest submits one action.
type SaveRequest struct {
	ID     string // edit id, or empty to create a new document
	Action *domain.Action
}

// SaveResult describes a committed action.
type SaveResult struct {
	ID         domain.DocumentID
	ReadOnlyID domain.DocumentID
	Version    int64
	When       int64 // commit time, unix milliseconds
	Latest     int64 // pointer after publish
}

// Save validates and commits an action.
//
// Errors map onto the client outcomes: ErrPayloadTooLarge (tooBig),
// ErrCheckpointRequired (needFullAtoms), ErrVersionConflict and
// ErrReadOnlyTarget (rejected); anything else is a generic error.
func (s *DocumentService) Save(ctx context.Context, req *SaveRequest) (*SaveResult, error) {
	if req.Action == nil {
		return nil, domain.ErrInvalidAction.WithDetails("action is required")
	}
	if req.Action.ID < 0 {
		return nil, domain.ErrInvalidAction.WithDetails("version number must be >= 0")
	}

	var id domain.DocumentID
	if req.ID == "" {
		pair, err := s.registry.Create(ctx)
		if err != nil {
			return nil, err
		}
		id = pair.EditID
	} else {
		parsed, err := domain.ParseDocumentID(req.ID)
		if err != nil {
			return nil, err
		}
		id = parsed
	}

	if _, err := s.latest.Read(ctx, id); err != nil {
		return nil, err
	}

	size, err := req.Action.Size()
	if err != nil {
		return nil, domain.ErrInvalidAction.WithCause(err)
	}
	if size > s.maxActionBytes {
		return nil, domain.ErrPayloadTooLarge.WithDetails("action is larger than the limit")
	}

	status, err := s.store.ReadStatus(ctx, id)
	if err != nil {
		return nil, storageError(err)
	}
	if status.IsReadOnly {
		return nil, domain.ErrReadOnlyTarget
	}

	required, err := s.checkpoint.Required(ctx, id, req.Action)
	if err != nil {
		return nil, err
	}
	if required {
		return nil, domain.ErrCheckpointRequired
	}

	rec, err := s.versions.Append(ctx, id, req.Action)
	if err != nil {
		return nil, err
	}

	// The record is committed; a failed pointer write only delays pollers
	// until the next publish.
	latest, err := s.latest.Publish(ctx, id)
	if err != nil {
		s.logger.Warn("publish latest pointer", "doc", id, "version", rec.ID, "error", err)
		latest = rec.ID
	}

	return &SaveResult{
		ID:         id,
		ReadOnlyID: status.ReadOnlyID,
		Version:    rec.ID,
		When:       rec.When,
		Latest:     latest,
	}, nil
}

// ============================================================================
// Update
// ============================================================================

// UpdateRequest asks for history after a baseline.
type UpdateRequest struct {
	ID       string
	Baseline Baseline
}

// Update returns the records the client is missing.
func (s *DocumentService) Update(ctx context.Context, req *UpdateRequest) (*SyncResult, error) {
	id, err := domain.ParseDocumentID(req.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.latest.Read(ctx, id); err != nil {
		return nil, err
	}

	if err := s.store.Touch(ctx, id); err != nil {
		s.logger.Warn("touch status", "doc", id, "error", err)
	}

	return s.sync.Read(ctx, id, req.Baseline)
}
