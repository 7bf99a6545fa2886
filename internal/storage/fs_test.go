package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/domain"
	"github.com/jeff-tyrrill/data-scribbler/internal/core/service"
	"github.com/jeff-tyrrill/data-scribbler/internal/storage/storagetest"
)

func newTestFS(t *testing.T) *FSBackend {
	t.Helper()
	b, err := NewFSBackend(t.TempDir(), slog.Default())
	if err != nil {
		t.Fatalf("NewFSBackend() error = %v", err)
	}
	return b
}

func TestFSBackend_Conformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) service.Store {
		return newTestFS(t)
	})
}

func TestFSBackend_Layout(t *testing.T) {
	b := newTestFS(t)
	ctx := context.Background()
	id := domain.DocumentID(testID)

	if err := b.CreateLocation(ctx, id); err != nil {
		t.Fatalf("CreateLocation() error = %v", err)
	}
	if err := b.WriteLatest(ctx, id, domain.NoVersion); err != nil {
		t.Fatalf("WriteLatest() error = %v", err)
	}
	if err := b.WriteStatus(ctx, id, &domain.StatusRecord{ReadOnlyID: "r"}); err != nil {
		t.Fatalf("WriteStatus() error = %v", err)
	}

	dir, _ := b.Resolver().Dir(testID)
	latest, err := os.ReadFile(filepath.Join(dir, LatestFile))
	if err != nil {
		t.Fatalf("read latest.json: %v", err)
	}
	if string(latest) != "-1" {
		t.Errorf("latest.json = %q, want %q", latest, "-1")
	}

	status, err := os.ReadFile(filepath.Join(dir, StatusFile))
	if err != nil {
		t.Fatalf("read status.json: %v", err)
	}
	if string(status) != `{"isReadOnly":false,"readOnlyId":"r"}` {
		t.Errorf("status.json = %s", status)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".write-") {
			t.Errorf("temporary file %s left behind", e.Name())
		}
	}
}

func TestFSBackend_PublishRemovesStaged(t *testing.T) {
	b := newTestFS(t)
	ctx := context.Background()
	id := domain.DocumentID(testID)
	_ = b.CreateLocation(ctx, id)

	if err := b.StageVersion(ctx, id, 3, "w", []byte(`{"id":3}`)); err != nil {
		t.Fatalf("StageVersion() error = %v", err)
	}
	if err := b.PublishVersion(ctx, id, 3, "w"); err != nil {
		t.Fatalf("PublishVersion() error = %v", err)
	}

	dir, _ := b.Resolver().Dir(testID)
	if _, err := os.Stat(filepath.Join(dir, StagedFile(3, "w"))); !os.IsNotExist(err) {
		t.Errorf("staged file still present: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, VersionFile(3))); err != nil {
		t.Errorf("committed file missing: %v", err)
	}
}

func TestFSBackend_ReclaimRemovesCrashedWritersFiles(t *testing.T) {
	b := newTestFS(t)
	ctx := context.Background()
	id := domain.DocumentID(testID)
	_ = b.CreateLocation(ctx, id)
	if err := b.WriteStatus(ctx, id, &domain.StatusRecord{ReadOnlyID: "r"}); err != nil {
		t.Fatal(err)
	}

	// The writer died after staging but before publishing.
	crashed := domain.Lease{Writer: "crashed", Started: time.Now().Add(-time.Hour).UnixMilli()}
	if err := b.AcquireLease(ctx, id, 5, crashed); err != nil {
		t.Fatal(err)
	}
	if err := b.StageVersion(ctx, id, 5, "crashed", []byte(`{"id":5,"when":1}`)); err != nil {
		t.Fatal(err)
	}

	action, err := domain.ParseAction([]byte(`{"id":5,"steps":[]}`))
	if err != nil {
		t.Fatal(err)
	}
	vs := service.NewVersionStore(b, service.DefaultVersionStoreConfig())
	if _, err := vs.Append(ctx, id, action); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	dir, _ := b.Resolver().Dir(testID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "temp-") {
			t.Errorf("leftover in-progress file %s", e.Name())
		}
	}
	if _, err := os.Stat(filepath.Join(dir, VersionFile(5))); err != nil {
		t.Errorf("committed file missing: %v", err)
	}
}

func TestFSBackend_ForeignArtifactReadsAsAnonymousLease(t *testing.T) {
	b := newTestFS(t)
	ctx := context.Background()
	id := domain.DocumentID(testID)
	_ = b.CreateLocation(ctx, id)

	// A crashed writer may leave a partial record under the lease name.
	dir, _ := b.Resolver().Dir(testID)
	path := filepath.Join(dir, LeaseFile(8))
	if err := os.WriteFile(path, []byte(`{"id":8,"ste`), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	lease, err := b.ReadLease(ctx, id, 8)
	if err != nil {
		t.Fatalf("ReadLease() error = %v", err)
	}
	if lease.Writer != "" {
		t.Errorf("Writer = %q, want empty", lease.Writer)
	}
	if lease.Started != old.UnixMilli() {
		t.Errorf("Started = %d, want %d", lease.Started, old.UnixMilli())
	}

	removed, err := b.ReleaseLease(ctx, id, 8, "")
	if err != nil || !removed {
		t.Fatalf("ReleaseLease() = (%v, %v), want (true, nil)", removed, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("artifact still present: %v", err)
	}
}

func TestFSBackend_ReleaseMismatchRestoresLease(t *testing.T) {
	b := newTestFS(t)
	ctx := context.Background()
	id := domain.DocumentID(testID)
	_ = b.CreateLocation(ctx, id)

	if err := b.AcquireLease(ctx, id, 1, domain.Lease{Writer: "owner", Started: 5}); err != nil {
		t.Fatal(err)
	}
	if removed, err := b.ReleaseLease(ctx, id, 1, "intruder"); err != nil || removed {
		t.Fatalf("ReleaseLease() = (%v, %v), want (false, nil)", removed, err)
	}

	dir, _ := b.Resolver().Dir(testID)
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.Contains(e.Name(), ".reclaim-") {
			t.Errorf("claimed copy %s left behind", e.Name())
		}
	}

	lease, err := b.ReadLease(ctx, id, 1)
	if err != nil || lease.Writer != "owner" {
		t.Fatalf("ReadLease() = (%+v, %v), want owner", lease, err)
	}
}

func TestFSBackend_RejectsInvalidID(t *testing.T) {
	b := newTestFS(t)
	ctx := context.Background()

	if err := b.CreateLocation(ctx, "../escape"); err == nil {
		t.Error("CreateLocation() accepted an invalid id")
	}
	if _, err := b.ListVersions(ctx, "ABC"); err == nil {
		t.Error("ListVersions() accepted an invalid id")
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		driver  string
		wantErr bool
	}{
		{"", false},
		{DriverFS, false},
		{DriverMemory, false},
		{DriverBadger, false},
		{"bolt", true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			cfg := DefaultConfig(filepath.Join(dir, "d-"+tt.driver))
			cfg.Driver = tt.driver
			b, err := Open(cfg, slog.Default())
			if tt.wantErr {
				if err == nil {
					t.Fatal("Open() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if err := b.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
	}
}
