package service

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/domain"
)

// Append outcomes reported to the Observer.
const (
	OutcomeCommitted = "committed"
	OutcomeConflict  = "conflict"
	OutcomeReadOnly  = "read_only"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

// VersionStoreConfig tunes lease reclaim.
type VersionStoreConfig struct {
	// ReclaimDebounce is the minimum age of a lease before it may be
	// reclaimed. Default: 500ms
	ReclaimDebounce time.Duration

	// ReclaimJitter is the upper bound of a random extra delay added per
	// attempt so competing reclaimers do not act in lockstep.
	// Default: 250ms
	ReclaimJitter time.Duration
}

// DefaultVersionStoreConfig returns the default reclaim timing.
func DefaultVersionStoreConfig() VersionStoreConfig {
	return VersionStoreConfig{
		ReclaimDebounce: 500 * time.Millisecond,
		ReclaimJitter:   250 * time.Millisecond,
	}
}

// VersionStore is the append-only version log.
//
// Each (document, version) slot is claimed through an exclusive lease,
// the record is staged durably under the writer's identity, and then
// published with create-if-absent. Of any number of concurrent appends for
// one slot exactly one commits; the rest fail with ErrVersionConflict.
//
// @design DS-0103
type VersionStore struct {
	store    Store
	cfg      VersionStoreConfig
	logger   *slog.Logger
	now      func() time.Time
	observer Observer

	// sleep blocks for d or until ctx is done.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewVersionStore creates a new VersionStore.
func NewVersionStore(store Store, cfg VersionStoreConfig, opts ...Option) *VersionStore {
	o := buildOptions(opts)
	return &VersionStore{
		store:    store,
		cfg:      cfg,
		logger:   o.logger,
		now:      o.now,
		observer: o.observer,
		sleep:    sleepContext,
	}
}

// Append commits action as version action.ID of document id.
//
// The commit time is taken when Append is called. On any failure no
// committed record is left behind and the caller must pick a new version
// number (conflict) or give up.
func (s *VersionStore) Append(ctx context.Context, id domain.DocumentID, action *domain.Action) (rec *domain.VersionRecord, err error) {
	start := time.Now()
	defer func() {
		s.observer.AppendFinished(appendOutcome(err), time.Since(start))
	}()

	if action == nil || action.ID < 0 {
		return nil, domain.ErrInvalidAction.WithDetails("version number must be >= 0")
	}
	n := action.ID

	status, err := s.store.ReadStatus(ctx, id)
	if err != nil {
		return nil, storageError(err)
	}
	if status.IsReadOnly {
		return nil, domain.ErrReadOnlyTarget
	}

	rec = domain.NewVersionRecord(action, s.now().UnixMilli())
	data, err := rec.Encode()
	if err != nil {
		return nil, domain.ErrInvalidAction.WithCause(err)
	}

	if err := s.checkVacant(ctx, id, n); err != nil {
		return nil, err
	}

	writer := ulid.Make().String()
	if err := s.claim(ctx, id, n, writer); err != nil {
		return nil, err
	}
	defer s.release(ctx, id, n, writer)

	if err := s.store.StageVersion(ctx, id, n, writer, data); err != nil {
		s.discard(ctx, id, n, writer)
		return nil, storageError(err)
	}

	// A writer whose lease was reclaimed may have committed meanwhile.
	if err := s.checkVacant(ctx, id, n); err != nil {
		s.discard(ctx, id, n, writer)
		return nil, err
	}

	if err := s.store.PublishVersion(ctx, id, n, writer); err != nil {
		s.discard(ctx, id, n, writer)
		// ErrNotFound: our lease was reclaimed and the staged record with it.
		if errors.Is(err, domain.ErrAlreadyExists) || errors.Is(err, domain.ErrNotFound) {
			return nil, conflictError(n)
		}
		return nil, storageError(err)
	}

	s.logger.Debug("version committed",
		"doc", id,
		"version", n,
		"kind", action.Kind.String(),
		"bytes", len(data))
	return rec, nil
}

func (s *VersionStore) checkVacant(ctx context.Context, id domain.DocumentID, n int64) error {
	committed, err := s.store.HasVersion(ctx, id, n)
	if err != nil {
		return storageError(err)
	}
	if committed {
		return conflictError(n)
	}
	return nil
}

// claim takes the lease for slot n, first reclaiming an abandoned one.
func (s *VersionStore) claim(ctx context.Context, id domain.DocumentID, n int64, writer string) error {
	held, err := s.store.ReadLease(ctx, id, n)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return storageError(err)
	default:
		if err := s.reclaim(ctx, id, n, held); err != nil {
			return err
		}
	}

	lease := domain.Lease{Writer: writer, Started: s.now().UnixMilli()}
	if err := s.store.AcquireLease(ctx, id, n, lease); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return conflictError(n)
		}
		return storageError(err)
	}
	return nil
}

// reclaim waits until held is stale and removes it if it still belongs to
// the same writer. A lease that changed hands is left alone; the following
// acquire then fails with a conflict.
func (s *VersionStore) reclaim(ctx context.Context, id domain.DocumentID, n int64, held *domain.Lease) error {
	staleAfter := s.staleAfter()
	if now := s.now(); !held.IsStale(now, staleAfter) {
		wait := held.StaleAt(staleAfter).Sub(now)
		s.logger.Debug("waiting for in-progress append",
			"doc", id,
			"version", n,
			"wait", wait)
		if err := s.sleep(ctx, wait); err != nil {
			return err
		}
	}

	if err := s.checkVacant(ctx, id, n); err != nil {
		return err
	}

	removed, err := s.store.ReleaseLease(ctx, id, n, held.Writer)
	if err != nil {
		return storageError(err)
	}
	if removed {
		// The crashed writer may have staged its record before dying.
		s.discard(ctx, id, n, held.Writer)
		s.observer.LeaseReclaimed()
		s.logger.Info("reclaimed abandoned append",
			"doc", id,
			"version", n,
			"writer", held.Writer,
			"age", s.now().Sub(time.UnixMilli(held.Started)))
	}
	return nil
}

func (s *VersionStore) staleAfter() time.Duration {
	d := s.cfg.ReclaimDebounce
	if s.cfg.ReclaimJitter > 0 {
		d += rand.N(s.cfg.ReclaimJitter)
	}
	return d
}

// release drops our lease. It runs after the outcome is decided, so it
// must not be cut short by the caller's cancellation.
func (s *VersionStore) release(ctx context.Context, id domain.DocumentID, n int64, writer string) {
	if _, err := s.store.ReleaseLease(context.WithoutCancel(ctx), id, n, writer); err != nil {
		s.logger.Warn("release lease", "doc", id, "version", n, "error", err)
	}
}

func (s *VersionStore) discard(ctx context.Context, id domain.DocumentID, n int64, writer string) {
	if err := s.store.DiscardStaged(context.WithoutCancel(ctx), id, n, writer); err != nil {
		s.logger.Warn("discard staged record", "doc", id, "version", n, "error", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func appendOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeCommitted
	case errors.Is(err, domain.ErrVersionConflict):
		return OutcomeConflict
	case errors.Is(err, domain.ErrReadOnlyTarget):
		return OutcomeReadOnly
	case errors.Is(err, domain.ErrInvalidAction):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}
