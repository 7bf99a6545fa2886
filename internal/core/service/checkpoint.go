package service

import (
	"context"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/domain"
)

// CheckpointConfig holds the replay bounds that force a new snapshot.
type CheckpointConfig struct {
	// MaxActions is the number of non-snapshot records after which a
	// snapshot is required. Default: 25
	MaxActions int

	// MaxBytes is the serialized size of non-snapshot records after which
	// a snapshot is required. Default: 204800
	MaxBytes int
}

// DefaultCheckpointConfig returns the default checkpoint thresholds.
func DefaultCheckpointConfig() CheckpointConfig {
	return CheckpointConfig{
		MaxActions: 25,
		MaxBytes:   200 << 10,
	}
}

// CheckpointPolicy decides whether a save must carry a full-state snapshot
// so that replay from the nearest snapshot stays bounded.
type CheckpointPolicy struct {
	store Store
	cfg   CheckpointConfig
}

// NewCheckpointPolicy creates a new CheckpointPolicy.
func NewCheckpointPolicy(store Store, cfg CheckpointConfig) *CheckpointPolicy {
	return &CheckpointPolicy{store: store, cfg: cfg}
}

// Required reports whether action must be resubmitted with a snapshot.
//
// A snapshot never needs another one; a jump always does. Otherwise the
// committed history is walked newest first: reaching a snapshot before
// either threshold answers false, reaching a threshold first answers true,
// and running out of history also answers true.
func (p *CheckpointPolicy) Required(ctx context.Context, id domain.DocumentID, action *domain.Action) (bool, error) {
	switch action.Kind {
	case domain.ActionSnapshot:
		return false, nil
	case domain.ActionJump:
		return true, nil
	}

	versions, err := p.store.ListVersions(ctx, id)
	if err != nil {
		return false, storageError(err)
	}
	sortDescending(versions)

	count, size := 0, 0
	for _, n := range versions {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		data, err := p.store.ReadVersion(ctx, id, n)
		if err != nil {
			return false, storageError(err)
		}
		rec, err := domain.DecodeVersionRecord(data)
		if err != nil {
			return false, domain.ErrStorageError.WithCause(err)
		}

		if rec.IsSnapshot() {
			return false, nil
		}
		count++
		size += rec.Size()
		if count >= p.cfg.MaxActions || size >= p.cfg.MaxBytes {
			return true, nil
		}
	}
	return true, nil
}
