package service

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/domain"
)

// maxPublishRounds bounds how often Publish re-scans after a write that
// raced with another commit.
const maxPublishRounds = 3

// LatestIndex maintains the pollable latest pointer of each document.
//
// The pointer is never incremented: it is recomputed from the committed
// version numbers on every publish, so it converges on the true maximum no
// matter how publishes interleave.
type LatestIndex struct {
	store  Store
	logger *slog.Logger
}

// NewLatestIndex creates a new LatestIndex.
func NewLatestIndex(store Store, opts ...Option) *LatestIndex {
	o := buildOptions(opts)
	return &LatestIndex{store: store, logger: o.logger}
}

// Recompute returns the highest committed version number of id, or
// domain.NoVersion when there is none. It has no side effects.
func (l *LatestIndex) Recompute(ctx context.Context, id domain.DocumentID) (int64, error) {
	versions, err := l.store.ListVersions(ctx, id)
	if err != nil {
		return 0, storageError(err)
	}
	highest := domain.NoVersion
	for _, n := range versions {
		if n > highest {
			highest = n
		}
	}
	return highest, nil
}

// Publish recomputes the pointer of the document owning id and writes it
// for both the edit id and its read-only mirror where it changed.
// It returns the published value.
func (l *LatestIndex) Publish(ctx context.Context, id domain.DocumentID) (int64, error) {
	status, err := l.store.ReadStatus(ctx, id)
	if err != nil {
		return 0, storageError(err)
	}
	editID := status.VersionSource(id)

	targets := []domain.DocumentID{editID}
	if status.IsReadOnly {
		targets = append(targets, id)
	} else if status.ReadOnlyID != "" {
		targets = append(targets, status.ReadOnlyID)
	}

	var highest int64
	for round := 0; round < maxPublishRounds; round++ {
		highest, err = l.Recompute(ctx, editID)
		if err != nil {
			return 0, err
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, target := range targets {
			g.Go(func() error {
				return l.publishOne(gctx, target, highest)
			})
		}
		if err := g.Wait(); err != nil {
			return 0, err
		}

		// A commit that landed while we wrote may have been overwritten
		// by our older value; re-scan until the pointer is stable.
		again, err := l.Recompute(ctx, editID)
		if err != nil {
			return 0, err
		}
		if again == highest {
			return highest, nil
		}
		l.logger.Debug("latest pointer moved during publish",
			"doc", editID,
			"published", highest,
			"now", again)
	}
	return highest, nil
}

func (l *LatestIndex) publishOne(ctx context.Context, id domain.DocumentID, version int64) error {
	current, err := l.store.ReadLatest(ctx, id)
	switch {
	case err == nil && current == version:
		return nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return storageError(err)
	}
	if err := l.store.WriteLatest(ctx, id, version); err != nil {
		return storageError(err)
	}
	return nil
}

// Read returns the published pointer of id.
func (l *LatestIndex) Read(ctx context.Context, id domain.DocumentID) (int64, error) {
	v, err := l.store.ReadLatest(ctx, id)
	if err != nil {
		return 0, storageError(err)
	}
	return v, nil
}
