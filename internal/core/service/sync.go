package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/domain"
)

// Baseline says what the client already has.
//
// The two modes truncate differently and are kept apart on purpose:
// InitialLoad extends the window back to a snapshot, Since never does.
type Baseline struct {
	initial bool
	after   int64
}

// InitialLoad is the baseline of a client with no state.
func InitialLoad() Baseline {
	return Baseline{initial: true, after: domain.NoVersion}
}

// Since is the baseline of a client that has applied every version up to n.
func Since(n int64) Baseline {
	return Baseline{after: n}
}

// IsInitial reports whether b is InitialLoad.
func (b Baseline) IsInitial() bool {
	return b.initial
}

// After returns the highest version the client already has.
func (b Baseline) After() int64 {
	return b.after
}

// String implements fmt.Stringer.
func (b Baseline) String() string {
	if b.initial {
		return "initial"
	}
	return "since:" + strconv.FormatInt(b.after, 10)
}

// SyncConfig bounds how far back an initial load reaches beyond the
// newest snapshot.
type SyncConfig struct {
	// SizeBuffer is the serialized size that must be exceeded.
	// Default: 204800
	SizeBuffer int

	// AgeBuffer is the record age that must be exceeded.
	// Default: 20m
	AgeBuffer time.Duration
}

// DefaultSyncConfig returns the default initial-load buffers.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		SizeBuffer: 200 << 10,
		AgeBuffer:  20 * time.Minute,
	}
}

// SyncResult is a window of history, newest first.
type SyncResult struct {
	Records    []*domain.VersionRecord
	IsReadOnly bool
	ReadOnlyID domain.DocumentID
}

// SyncReader serves bounded windows of a document's history.
// It never writes.
type SyncReader struct {
	store    Store
	cfg      SyncConfig
	logger   *slog.Logger
	now      func() time.Time
	observer Observer
}

// NewSyncReader creates a new SyncReader.
func NewSyncReader(store Store, cfg SyncConfig, opts ...Option) *SyncReader {
	o := buildOptions(opts)
	return &SyncReader{
		store:    store,
		cfg:      cfg,
		logger:   o.logger,
		now:      o.now,
		observer: o.observer,
	}
}

// Read returns the records of id newer than the baseline.
//
// A read-only id reads its edit id's records but reports its own status.
// For InitialLoad the walk continues past the newest snapshot until both
// buffers are exceeded, then stops after the next snapshot, so the oldest
// returned record is a snapshot whenever history has one.
func (r *SyncReader) Read(ctx context.Context, id domain.DocumentID, baseline Baseline) (*SyncResult, error) {
	status, err := r.store.ReadStatus(ctx, id)
	if err != nil {
		return nil, storageError(err)
	}
	source := status.VersionSource(id)

	versions, err := r.store.ListVersions(ctx, source)
	if err != nil {
		return nil, storageError(err)
	}
	sortDescending(versions)

	result := &SyncResult{
		Records:    make([]*domain.VersionRecord, 0),
		IsReadOnly: status.IsReadOnly,
		ReadOnlyID: status.ReadOnlyID,
	}

	var (
		now          = r.now().UnixMilli()
		ageBuffer    = r.cfg.AgeBuffer.Milliseconds()
		seenSnapshot bool
		sizeReached  bool
		ageReached   bool
		accumulated  int
	)
	for _, n := range versions {
		if n <= baseline.after {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := r.store.ReadVersion(ctx, source, n)
		if err != nil {
			return nil, storageError(err)
		}
		rec, err := domain.DecodeVersionRecord(data)
		if err != nil {
			return nil, domain.ErrStorageError.WithCause(err)
		}
		result.Records = append(result.Records, rec)

		if !baseline.initial {
			continue
		}

		if rec.IsSnapshot() {
			if seenSnapshot && sizeReached && ageReached {
				break
			}
			seenSnapshot = true
		}
		if seenSnapshot {
			accumulated += rec.Size()
			if accumulated > r.cfg.SizeBuffer {
				sizeReached = true
			}
			if now-rec.When > ageBuffer {
				ageReached = true
			}
		}
	}

	r.observer.SyncServed(syncMode(baseline), len(result.Records))
	return result, nil
}

func syncMode(b Baseline) string {
	if b.initial {
		return "initial"
	}
	return "incremental"
}
