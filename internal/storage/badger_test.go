package storage

import (
	"context"
	"log/slog"
	"testing"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/domain"
	"github.com/jeff-tyrrill/data-scribbler/internal/core/service"
	"github.com/jeff-tyrrill/data-scribbler/internal/storage/storagetest"
)

func newTestBadger(t *testing.T, dir string) *BadgerBackend {
	t.Helper()
	cfg := DefaultConfig(dir)
	cfg.Driver = DriverBadger
	cfg.Badger.GCInterval = "1h" // keep GC out of the way
	cfg.Badger.ValueLogFileSize = 16 << 20

	b, err := NewBadgerBackend(cfg, slog.Default())
	if err != nil {
		t.Fatalf("NewBadgerBackend() error = %v", err)
	}
	return b
}

func TestBadgerBackend_Conformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) service.Store {
		b := newTestBadger(t, t.TempDir())
		t.Cleanup(func() { b.Close() })
		return b
	})
}

func TestBadgerBackend_Persistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	id := domain.DocumentID(testID)

	b := newTestBadger(t, dir)
	if err := b.CreateLocation(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := b.StageVersion(ctx, id, 42, "w", []byte(`{"id":42}`)); err != nil {
		t.Fatal(err)
	}
	if err := b.PublishVersion(ctx, id, 42, "w"); err != nil {
		t.Fatal(err)
	}
	if err := b.WriteLatest(ctx, id, 42); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	b = newTestBadger(t, dir)
	defer b.Close()

	latest, err := b.ReadLatest(ctx, id)
	if err != nil || latest != 42 {
		t.Fatalf("ReadLatest() = (%d, %v), want (42, nil)", latest, err)
	}
	versions, err := b.ListVersions(ctx, id)
	if err != nil || len(versions) != 1 || versions[0] != 42 {
		t.Fatalf("ListVersions() = (%v, %v), want [42]", versions, err)
	}
}

func TestBadgerBackend_ListVersionsIsPerDocument(t *testing.T) {
	b := newTestBadger(t, t.TempDir())
	defer b.Close()
	ctx := context.Background()

	a := domain.DocumentID("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	// Shares a's id as a byte prefix only through the separator.
	c := domain.DocumentID("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaab")
	for _, id := range []domain.DocumentID{a, c} {
		if err := b.CreateLocation(ctx, id); err != nil {
			t.Fatal(err)
		}
	}
	for _, n := range []int64{1, 256, 70000} {
		_ = b.StageVersion(ctx, a, n, "w", []byte(`{}`))
		if err := b.PublishVersion(ctx, a, n, "w"); err != nil {
			t.Fatal(err)
		}
	}

	got, err := b.ListVersions(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{1, 256, 70000}
	if len(got) != len(want) {
		t.Fatalf("ListVersions(a) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ListVersions(a)[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	if got, _ := b.ListVersions(ctx, c); len(got) != 0 {
		t.Errorf("ListVersions(c) = %v, want empty", got)
	}
}

func TestBadgerBackend_ClosedOperations(t *testing.T) {
	b := newTestBadger(t, t.TempDir())
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := b.ReadLatest(context.Background(), testID); err != ErrClosed {
		t.Errorf("ReadLatest() after Close error = %v, want ErrClosed", err)
	}
}
