package memory

import (
	"context"
	"time"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/domain"
	"github.com/jeff-tyrrill/data-scribbler/pkg/cmap"
)

type slotKey struct {
	id domain.DocumentID
	n  int64
}

type stageKey struct {
	slotKey
	writer string
}

// Store provides in-memory document storage.
type Store struct {
	// Document locations and their small mutable resources.
	locations *cmap.Map[domain.DocumentID, struct{}]
	statuses  *cmap.Map[domain.DocumentID, domain.StatusRecord]
	latest    *cmap.Map[domain.DocumentID, int64]
	accessed  *cmap.Map[domain.DocumentID, time.Time]

	// Version slots.
	records *cmap.Map[slotKey, []byte]
	leases  *cmap.Map[slotKey, domain.Lease]
	staged  *cmap.Map[stageKey, []byte]

	// Secondary index: DocumentID -> committed version numbers
	versions *DocumentIndex

	shardCount int
	now        func() time.Time
}

// Option configures the Store.
type Option func(*Store)

// WithShardCount sets the shard count of every internal map.
func WithShardCount(n int) Option {
	return func(s *Store) {
		s.shardCount = n
	}
}

// WithClock sets the clock used for access times.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a new in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		shardCount: cmap.DefaultShardCount,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.locations = cmap.NewWithShards[domain.DocumentID, struct{}](s.shardCount)
	s.statuses = cmap.NewWithShards[domain.DocumentID, domain.StatusRecord](s.shardCount)
	s.latest = cmap.NewWithShards[domain.DocumentID, int64](s.shardCount)
	s.accessed = cmap.NewWithShards[domain.DocumentID, time.Time](s.shardCount)
	s.records = cmap.NewWithShards[slotKey, []byte](s.shardCount)
	s.leases = cmap.NewWithShards[slotKey, domain.Lease](s.shardCount)
	s.staged = cmap.NewWithShards[stageKey, []byte](s.shardCount)
	s.versions = NewDocumentIndex()
	return s
}

// CreateLocation registers id. Registering twice is not an error.
func (s *Store) CreateLocation(_ context.Context, id domain.DocumentID) error {
	s.locations.SetIfAbsent(id, struct{}{})
	return nil
}

// ReadStatus returns the status record of id.
func (s *Store) ReadStatus(_ context.Context, id domain.DocumentID) (*domain.StatusRecord, error) {
	status, ok := s.statuses.Get(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &status, nil
}

// WriteStatus replaces the status record of id.
func (s *Store) WriteStatus(_ context.Context, id domain.DocumentID, status *domain.StatusRecord) error {
	if !s.locations.Has(id) {
		return domain.ErrNotFound
	}
	s.statuses.Set(id, *status)
	return nil
}

// Touch refreshes the access time of id's status record.
func (s *Store) Touch(_ context.Context, id domain.DocumentID) error {
	if !s.statuses.Has(id) {
		return domain.ErrNotFound
	}
	s.accessed.Set(id, s.now())
	return nil
}

// AccessedAt returns the last Touch time of id.
func (s *Store) AccessedAt(id domain.DocumentID) (time.Time, bool) {
	return s.accessed.Get(id)
}

// ReadLatest returns the latest pointer of id.
func (s *Store) ReadLatest(_ context.Context, id domain.DocumentID) (int64, error) {
	v, ok := s.latest.Get(id)
	if !ok {
		return 0, domain.ErrNotFound
	}
	return v, nil
}

// WriteLatest replaces the latest pointer of id.
func (s *Store) WriteLatest(_ context.Context, id domain.DocumentID, version int64) error {
	if !s.locations.Has(id) {
		return domain.ErrNotFound
	}
	s.latest.Set(id, version)
	return nil
}

// ListVersions returns the committed version numbers of id.
func (s *Store) ListVersions(_ context.Context, id domain.DocumentID) ([]int64, error) {
	if !s.locations.Has(id) {
		return nil, domain.ErrNotFound
	}
	return s.versions.Get(id), nil
}

// HasVersion reports whether version n of id is committed.
func (s *Store) HasVersion(_ context.Context, id domain.DocumentID, n int64) (bool, error) {
	return s.records.Has(slotKey{id, n}), nil
}

// ReadVersion returns a copy of committed version n.
func (s *Store) ReadVersion(_ context.Context, id domain.DocumentID, n int64) ([]byte, error) {
	data, ok := s.records.Get(slotKey{id, n})
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// AcquireLease exclusively creates the lease for slot n.
func (s *Store) AcquireLease(_ context.Context, id domain.DocumentID, n int64, lease domain.Lease) error {
	if !s.locations.Has(id) {
		return domain.ErrNotFound
	}
	if !s.leases.SetIfAbsent(slotKey{id, n}, lease) {
		return domain.ErrAlreadyExists
	}
	return nil
}

// ReadLease returns the current lease for slot n.
func (s *Store) ReadLease(_ context.Context, id domain.DocumentID, n int64) (*domain.Lease, error) {
	lease, ok := s.leases.Get(slotKey{id, n})
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &lease, nil
}

// ReleaseLease deletes the lease for slot n if writer holds it.
func (s *Store) ReleaseLease(_ context.Context, id domain.DocumentID, n int64, writer string) (bool, error) {
	removed := s.leases.DeleteIf(slotKey{id, n}, func(cur domain.Lease) bool {
		return cur.Writer == writer
	})
	return removed, nil
}

// StageVersion keeps a private copy of data for writer.
func (s *Store) StageVersion(_ context.Context, id domain.DocumentID, n int64, writer string, data []byte) error {
	if !s.locations.Has(id) {
		return domain.ErrNotFound
	}
	s.staged.Set(stageKey{slotKey{id, n}, writer}, append([]byte(nil), data...))
	return nil
}

// DiscardStaged drops writer's staged data.
func (s *Store) DiscardStaged(_ context.Context, id domain.DocumentID, n int64, writer string) error {
	s.staged.Delete(stageKey{slotKey{id, n}, writer})
	return nil
}

// PublishVersion moves writer's staged data into the committed slot if the
// slot is empty.
func (s *Store) PublishVersion(_ context.Context, id domain.DocumentID, n int64, writer string) error {
	data, ok := s.staged.Pop(stageKey{slotKey{id, n}, writer})
	if !ok {
		return domain.ErrNotFound
	}
	if !s.records.SetIfAbsent(slotKey{id, n}, data) {
		return domain.ErrAlreadyExists
	}
	s.versions.Add(id, n)
	return nil
}

// Close releases nothing; it exists to satisfy the backend contract.
func (s *Store) Close() error {
	return nil
}
