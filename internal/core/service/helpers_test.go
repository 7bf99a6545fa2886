package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/domain"
	"github.com/jeff-tyrrill/data-scribbler/internal/storage/memory"
)

// fakeClock is a settable clock shared by services and tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingObserver collects Observer calls.
type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
	reclaims int
	syncs    []string
}

func (o *recordingObserver) AppendFinished(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) LeaseReclaimed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reclaims++
}

func (o *recordingObserver) SyncServed(mode string, records int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.syncs = append(o.syncs, fmt.Sprintf("%s:%d", mode, records))
}

func (o *recordingObserver) Reclaims() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reclaims
}

func plainAction(t *testing.T, n int64) *domain.Action {
	t.Helper()
	a, err := domain.NewAction(n, map[string]any{
		"steps":          []any{map[string]any{"op": "insert", "at": n}},
		"fullStateAtoms": nil,
		"jumpTo":         nil,
	})
	if err != nil {
		t.Fatalf("NewAction(%d) error = %v", n, err)
	}
	return a
}

func snapshotAction(t *testing.T, n int64) *domain.Action {
	t.Helper()
	a, err := domain.NewAction(n, map[string]any{
		"steps":          []any{},
		"fullStateAtoms": map[string]any{"root": n},
		"jumpTo":         nil,
	})
	if err != nil {
		t.Fatalf("NewAction(%d) error = %v", n, err)
	}
	return a
}

func jumpAction(t *testing.T, n, target int64) *domain.Action {
	t.Helper()
	a, err := domain.NewAction(n, map[string]any{"jumpTo": target})
	if err != nil {
		t.Fatalf("NewAction(%d) error = %v", n, err)
	}
	return a
}

// fixture bundles a memory store, a clock and a created document.
type fixture struct {
	store    *memory.Store
	clock    *fakeClock
	observer *recordingObserver
	opts     []Option
	pair     *domain.DocumentPair
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.New(),
		clock:    newFakeClock(),
		observer: &recordingObserver{},
	}
	f.opts = []Option{WithClock(f.clock.Now), WithObserver(f.observer)}

	registry := NewDocumentRegistry(f.store, NewLatestIndex(f.store, f.opts...), f.opts...)
	pair, err := registry.Create(context.Background())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	f.pair = pair
	return f
}

// commit stores a record directly, bypassing every policy.
func (f *fixture) commit(t *testing.T, a *domain.Action) *domain.VersionRecord {
	t.Helper()
	ctx := context.Background()
	rec := domain.NewVersionRecord(a, f.clock.Now().UnixMilli())
	data, err := rec.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if err := f.store.StageVersion(ctx, f.pair.EditID, a.ID, "fixture", data); err != nil {
		t.Fatal(err)
	}
	if err := f.store.PublishVersion(ctx, f.pair.EditID, a.ID, "fixture"); err != nil {
		t.Fatalf("PublishVersion(%d) error = %v", a.ID, err)
	}
	return rec
}

func ids(records []*domain.VersionRecord) []int64 {
	out := make([]int64, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// faultyStore overrides selected Store methods.
type faultyStore struct {
	Store
	writeStatus func(id domain.DocumentID) error
	writeLatest func(id domain.DocumentID) error

	mu           sync.Mutex
	latestWrites int
}

func (s *faultyStore) WriteStatus(ctx context.Context, id domain.DocumentID, status *domain.StatusRecord) error {
	if s.writeStatus != nil {
		if err := s.writeStatus(id); err != nil {
			return err
		}
	}
	return s.Store.WriteStatus(ctx, id, status)
}

func (s *faultyStore) WriteLatest(ctx context.Context, id domain.DocumentID, v int64) error {
	s.mu.Lock()
	s.latestWrites++
	s.mu.Unlock()
	if s.writeLatest != nil {
		if err := s.writeLatest(id); err != nil {
			return err
		}
	}
	return s.Store.WriteLatest(ctx, id, v)
}

func (s *faultyStore) LatestWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestWrites
}

func domainActionWithEmptyState(n int64) (*domain.Action, error) {
	return domain.NewAction(n, map[string]any{"fullStateAtoms": map[string]any{}})
}
