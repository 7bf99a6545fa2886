package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/domain"
	"github.com/jeff-tyrrill/data-scribbler/pkg/token"
)

const (
	dirPerm  = 0o750
	filePerm = 0o644
)

// FSBackend stores each document in its own sharded directory.
//
// Exclusive create is os.Link onto a name that must not exist; atomic
// replace is write-to-temp, fsync, rename. Directories are fsynced after
// every visibility change.
type FSBackend struct {
	resolver *Resolver
	logger   *slog.Logger
	now      func() time.Time
}

// NewFSBackend creates a filesystem backend rooted at dir.
func NewFSBackend(dir string, logger *slog.Logger) (*FSBackend, error) {
	if dir == "" {
		return nil, fmt.Errorf("fs: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("fs: create root: %w", err)
	}

	logger.Info("fs backend started", "dir", dir)
	return &FSBackend{
		resolver: NewResolver(dir),
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Resolver returns the address resolver of the backend.
func (b *FSBackend) Resolver() *Resolver {
	return b.resolver
}

// CreateLocation creates the document directory.
func (b *FSBackend) CreateLocation(_ context.Context, id domain.DocumentID) error {
	dir, err := b.resolver.Dir(string(id))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("fs: create location: %w", err)
	}
	return nil
}

// ReadStatus reads status.json.
func (b *FSBackend) ReadStatus(_ context.Context, id domain.DocumentID) (*domain.StatusRecord, error) {
	data, err := b.readFile(id, StatusFile)
	if err != nil {
		return nil, err
	}
	var status domain.StatusRecord
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("fs: decode status: %w", err)
	}
	return &status, nil
}

// WriteStatus atomically replaces status.json.
func (b *FSBackend) WriteStatus(_ context.Context, id domain.DocumentID, status *domain.StatusRecord) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("fs: encode status: %w", err)
	}
	return b.writeAtomic(id, StatusFile, data)
}

// Touch sets the access and modification times of status.json to now.
func (b *FSBackend) Touch(_ context.Context, id domain.DocumentID) error {
	path, err := b.resolver.Path(string(id), StatusFile)
	if err != nil {
		return err
	}
	now := b.now()
	if err := os.Chtimes(path, now, now); err != nil {
		return mapNotExist(err)
	}
	return nil
}

// ReadLatest reads latest.json.
func (b *FSBackend) ReadLatest(_ context.Context, id domain.DocumentID) (int64, error) {
	data, err := b.readFile(id, LatestFile)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("fs: decode latest: %w", err)
	}
	return v, nil
}

// WriteLatest atomically replaces latest.json.
func (b *FSBackend) WriteLatest(_ context.Context, id domain.DocumentID, version int64) error {
	return b.writeAtomic(id, LatestFile, []byte(strconv.FormatInt(version, 10)))
}

// ListVersions scans the document directory for committed version files.
func (b *FSBackend) ListVersions(_ context.Context, id domain.DocumentID) ([]int64, error) {
	dir, err := b.resolver.Dir(string(id))
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, mapNotExist(err)
	}

	versions := make([]int64, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if n, ok := ParseVersionFile(e.Name()); ok {
			versions = append(versions, n)
		}
	}
	return versions, nil
}

// HasVersion reports whether <n>.json exists.
func (b *FSBackend) HasVersion(_ context.Context, id domain.DocumentID, n int64) (bool, error) {
	path, err := b.resolver.Path(string(id), VersionFile(n))
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ReadVersion reads <n>.json.
func (b *FSBackend) ReadVersion(_ context.Context, id domain.DocumentID, n int64) ([]byte, error) {
	return b.readFile(id, VersionFile(n))
}

// AcquireLease links a fully written lease file onto temp-<n>.json.
// The link fails if the name exists, so the lease is never observed
// half-written.
func (b *FSBackend) AcquireLease(_ context.Context, id domain.DocumentID, n int64, lease domain.Lease) error {
	dir, err := b.resolver.Dir(string(id))
	if err != nil {
		return err
	}
	data, err := json.Marshal(lease)
	if err != nil {
		return fmt.Errorf("fs: encode lease: %w", err)
	}

	tmp, err := writeTemp(dir, data)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	if err := os.Link(tmp, filepath.Join(dir, LeaseFile(n))); err != nil {
		return mapLinkErr(err)
	}
	return syncDir(dir)
}

// ReadLease reads temp-<n>.json.
//
// An artifact that is not a lease (for instance a half-written record
// left by an older writer) is reported with an empty writer, started at
// the file's modification time.
func (b *FSBackend) ReadLease(_ context.Context, id domain.DocumentID, n int64) (*domain.Lease, error) {
	path, err := b.resolver.Path(string(id), LeaseFile(n))
	if err != nil {
		return nil, err
	}
	return readLeaseFile(path)
}

// ReleaseLease removes temp-<n>.json if writer holds it.
//
// The lease is first claimed by renaming it to a private name, so two
// reclaimers can never both remove it. A claimed lease that belongs to
// someone else is linked back; if the slot was re-acquired meanwhile the
// claimed copy is dropped, which is safe because publication is
// create-if-absent.
func (b *FSBackend) ReleaseLease(_ context.Context, id domain.DocumentID, n int64, writer string) (bool, error) {
	dir, err := b.resolver.Dir(string(id))
	if err != nil {
		return false, err
	}
	path := filepath.Join(dir, LeaseFile(n))

	suffix, err := token.GenerateWithLength(16)
	if err != nil {
		return false, err
	}
	claimed := path + ".reclaim-" + suffix
	if err := os.Rename(path, claimed); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("fs: claim lease: %w", err)
	}
	defer os.Remove(claimed)

	held, err := readLeaseFile(claimed)
	if err != nil {
		return false, err
	}
	if held.Writer == writer {
		return true, syncDir(dir)
	}

	if err := os.Link(claimed, path); err != nil && !errors.Is(err, fs.ErrExist) {
		return false, fmt.Errorf("fs: restore lease: %w", err)
	}
	return false, nil
}

// StageVersion writes and fsyncs temp-<n>-<writer>.json.
func (b *FSBackend) StageVersion(_ context.Context, id domain.DocumentID, n int64, writer string, data []byte) error {
	path, err := b.resolver.Path(string(id), StagedFile(n, writer))
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if err != nil {
		return mapNotExist(err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("fs: write staged: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("fs: sync staged: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("fs: close staged: %w", err)
	}
	return nil
}

// DiscardStaged removes temp-<n>-<writer>.json.
func (b *FSBackend) DiscardStaged(_ context.Context, id domain.DocumentID, n int64, writer string) error {
	path, err := b.resolver.Path(string(id), StagedFile(n, writer))
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// PublishVersion links the staged file onto <n>.json. The link never
// replaces an existing record; the staged name is removed afterwards.
func (b *FSBackend) PublishVersion(_ context.Context, id domain.DocumentID, n int64, writer string) error {
	dir, err := b.resolver.Dir(string(id))
	if err != nil {
		return err
	}
	staged := filepath.Join(dir, StagedFile(n, writer))

	if err := os.Link(staged, filepath.Join(dir, VersionFile(n))); err != nil {
		return mapLinkErr(err)
	}
	if err := syncDir(dir); err != nil {
		return err
	}
	if err := os.Remove(staged); err != nil {
		b.logger.Warn("remove staged record", "file", StagedFile(n, writer), "error", err)
	}
	return nil
}

// Close releases nothing; files are closed after every operation.
func (b *FSBackend) Close() error {
	return nil
}

func (b *FSBackend) readFile(id domain.DocumentID, name string) ([]byte, error) {
	path, err := b.resolver.Path(string(id), name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, mapNotExist(err)
	}
	return data, nil
}

// writeAtomic replaces name in id's directory with data.
func (b *FSBackend) writeAtomic(id domain.DocumentID, name string, data []byte) error {
	dir, err := b.resolver.Dir(string(id))
	if err != nil {
		return err
	}

	tmp, err := writeTemp(dir, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("fs: rename %s: %w", name, err)
	}
	return syncDir(dir)
}

// writeTemp writes data to a fresh fsynced file in dir and returns its path.
func writeTemp(dir string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, writePattern)
	if err != nil {
		return "", mapNotExist(err)
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("fs: write temp: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("fs: sync temp: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("fs: close temp: %w", err)
	}
	if err := os.Chmod(tmp, filePerm); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}

func readLeaseFile(path string) (*domain.Lease, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, mapNotExist(err)
	}

	var lease domain.Lease
	if err := json.Unmarshal(data, &lease); err == nil && lease.Writer != "" {
		return &lease, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, mapNotExist(err)
	}
	return &domain.Lease{Started: info.ModTime().UnixMilli()}, nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("fs: sync dir: %w", err)
	}
	return nil
}

func mapNotExist(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	return err
}

func mapLinkErr(err error) error {
	switch {
	case errors.Is(err, fs.ErrExist):
		return domain.ErrAlreadyExists
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	default:
		return err
	}
}
