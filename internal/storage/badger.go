package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/domain"
)

// Key prefixes. Version numbers are encoded big-endian so a prefix scan
// yields them in ascending order.
const (
	prefixLocation = "loc/"
	prefixStatus   = "status/"
	prefixAccess   = "access/"
	prefixLatest   = "latest/"
	prefixVersion  = "ver/"
	prefixLease    = "lease/"
	prefixStaged   = "stage/"

	conflictRetries = 8
)

// ErrClosed is returned by operations on a closed backend.
var ErrClosed = errors.New("badger backend closed")

// BadgerBackend stores documents in an embedded Badger database.
//
// Exclusive create and compare-and-delete run inside update transactions
// with conflict detection; a transaction that loses a race is retried and
// then observes the winner's write.
type BadgerBackend struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger
	now    func() time.Time
	closed atomic.Bool

	// Metrics (internal counters)
	lastGCTime atomic.Int64 // Unix milliseconds
	gcRuns     atomic.Uint64

	// Prometheus metrics
	metricsLSMSize      prometheus.Gauge
	metricsValueLogSize prometheus.Gauge
	metricsLastGCTime   prometheus.Gauge
	metricsGCRuns       prometheus.Counter

	// Shutdown
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBadgerBackend opens (or creates) a Badger database under cfg.Dir.
func NewBadgerBackend(cfg Config, logger *slog.Logger) (*BadgerBackend, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = &badgerLogger{logger: logger}
	opts.BlockCacheSize = cfg.Badger.CacheSize
	opts.ValueLogFileSize = cfg.Badger.ValueLogFileSize
	opts.SyncWrites = cfg.Badger.SyncWrites
	opts.DetectConflicts = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	b := &BadgerBackend{
		db:     db,
		cfg:    cfg.Badger,
		logger: logger,
		now:    time.Now,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go b.gcLoop()

	logger.Info("badger backend started",
		"dir", cfg.Dir,
		"cache_size", cfg.Badger.CacheSize,
		"sync_writes", cfg.Badger.SyncWrites,
		"gc_interval", cfg.Badger.GCInterval)

	return b, nil
}

func docKey(prefix string, id domain.DocumentID) []byte {
	return []byte(prefix + string(id))
}

func slotKey(prefix string, id domain.DocumentID, n int64) []byte {
	k := make([]byte, 0, len(prefix)+len(id)+9)
	k = append(k, prefix...)
	k = append(k, id...)
	k = append(k, '/')
	return binary.BigEndian.AppendUint64(k, uint64(n))
}

func stagedKey(id domain.DocumentID, n int64, writer string) []byte {
	k := slotKey(prefixStaged, id, n)
	k = append(k, '/')
	return append(k, writer...)
}

// update runs fn in a read-write transaction, retrying on conflicts.
func (b *BadgerBackend) update(fn func(txn *badger.Txn) error) error {
	if b.closed.Load() {
		return ErrClosed
	}
	var err error
	for i := 0; i < conflictRetries; i++ {
		err = b.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func (b *BadgerBackend) get(key []byte) ([]byte, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		value, err = getValue(txn, key)
		return err
	})
	return value, err
}

func getValue(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

// setIn writes key only if the document location exists.
func (b *BadgerBackend) setIn(id domain.DocumentID, key, value []byte) error {
	return b.update(func(txn *badger.Txn) error {
		ok, err := exists(txn, docKey(prefixLocation, id))
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}
		return txn.Set(key, value)
	})
}

// CreateLocation registers id. Registering twice is not an error.
func (b *BadgerBackend) CreateLocation(_ context.Context, id domain.DocumentID) error {
	return b.update(func(txn *badger.Txn) error {
		ok, err := exists(txn, docKey(prefixLocation, id))
		if err != nil || ok {
			return err
		}
		return txn.Set(docKey(prefixLocation, id), nil)
	})
}

// ReadStatus returns the status record of id.
func (b *BadgerBackend) ReadStatus(_ context.Context, id domain.DocumentID) (*domain.StatusRecord, error) {
	data, err := b.get(docKey(prefixStatus, id))
	if err != nil {
		return nil, err
	}
	var status domain.StatusRecord
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("badger: decode status: %w", err)
	}
	return &status, nil
}

// WriteStatus replaces the status record of id.
func (b *BadgerBackend) WriteStatus(_ context.Context, id domain.DocumentID, status *domain.StatusRecord) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("badger: encode status: %w", err)
	}
	return b.setIn(id, docKey(prefixStatus, id), data)
}

// Touch records the access time of id's status record.
func (b *BadgerBackend) Touch(_ context.Context, id domain.DocumentID) error {
	return b.update(func(txn *badger.Txn) error {
		ok, err := exists(txn, docKey(prefixStatus, id))
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}
		ms := strconv.FormatInt(b.now().UnixMilli(), 10)
		return txn.Set(docKey(prefixAccess, id), []byte(ms))
	})
}

// ReadLatest returns the latest pointer of id.
func (b *BadgerBackend) ReadLatest(_ context.Context, id domain.DocumentID) (int64, error) {
	data, err := b.get(docKey(prefixLatest, id))
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("badger: decode latest: %w", err)
	}
	return v, nil
}

// WriteLatest replaces the latest pointer of id.
func (b *BadgerBackend) WriteLatest(_ context.Context, id domain.DocumentID, version int64) error {
	return b.setIn(id, docKey(prefixLatest, id), []byte(strconv.FormatInt(version, 10)))
}

// ListVersions scans the version keys of id.
func (b *BadgerBackend) ListVersions(_ context.Context, id domain.DocumentID) ([]int64, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	var versions []int64
	err := b.db.View(func(txn *badger.Txn) error {
		ok, err := exists(txn, docKey(prefixLocation, id))
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}

		prefix := append(docKey(prefixVersion, id), '/')
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		versions = make([]int64, 0)
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			if len(key) != len(prefix)+8 {
				continue
			}
			versions = append(versions, int64(binary.BigEndian.Uint64(key[len(prefix):])))
		}
		return nil
	})
	return versions, err
}

// HasVersion reports whether version n of id is committed.
func (b *BadgerBackend) HasVersion(_ context.Context, id domain.DocumentID, n int64) (bool, error) {
	if b.closed.Load() {
		return false, ErrClosed
	}
	var ok bool
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		ok, err = exists(txn, slotKey(prefixVersion, id, n))
		return err
	})
	return ok, err
}

// ReadVersion returns committed version n.
func (b *BadgerBackend) ReadVersion(_ context.Context, id domain.DocumentID, n int64) ([]byte, error) {
	return b.get(slotKey(prefixVersion, id, n))
}

// AcquireLease creates the lease for slot n if no lease exists.
func (b *BadgerBackend) AcquireLease(_ context.Context, id domain.DocumentID, n int64, lease domain.Lease) error {
	data, err := json.Marshal(lease)
	if err != nil {
		return fmt.Errorf("badger: encode lease: %w", err)
	}
	return b.update(func(txn *badger.Txn) error {
		ok, err := exists(txn, docKey(prefixLocation, id))
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}
		key := slotKey(prefixLease, id, n)
		held, err := exists(txn, key)
		if err != nil {
			return err
		}
		if held {
			return domain.ErrAlreadyExists
		}
		return txn.Set(key, data)
	})
}

// ReadLease returns the current lease for slot n.
func (b *BadgerBackend) ReadLease(_ context.Context, id domain.DocumentID, n int64) (*domain.Lease, error) {
	data, err := b.get(slotKey(prefixLease, id, n))
	if err != nil {
		return nil, err
	}
	var lease domain.Lease
	if err := json.Unmarshal(data, &lease); err != nil {
		return nil, fmt.Errorf("badger: decode lease: %w", err)
	}
	return &lease, nil
}

// ReleaseLease deletes the lease for slot n if writer holds it.
func (b *BadgerBackend) ReleaseLease(_ context.Context, id domain.DocumentID, n int64, writer string) (bool, error) {
	var removed bool
	err := b.update(func(txn *badger.Txn) error {
		removed = false
		key := slotKey(prefixLease, id, n)
		data, err := getValue(txn, key)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var lease domain.Lease
		if err := json.Unmarshal(data, &lease); err != nil {
			return fmt.Errorf("badger: decode lease: %w", err)
		}
		if lease.Writer != writer {
			return nil
		}
		removed = true
		return txn.Delete(key)
	})
	return removed, err
}

// StageVersion stores data under writer's private key.
func (b *BadgerBackend) StageVersion(_ context.Context, id domain.DocumentID, n int64, writer string, data []byte) error {
	return b.setIn(id, stagedKey(id, n, writer), data)
}

// DiscardStaged removes writer's staged data.
func (b *BadgerBackend) DiscardStaged(_ context.Context, id domain.DocumentID, n int64, writer string) error {
	return b.update(func(txn *badger.Txn) error {
		return txn.Delete(stagedKey(id, n, writer))
	})
}

// PublishVersion moves writer's staged data to version n if the slot is
// empty, in one transaction.
func (b *BadgerBackend) PublishVersion(_ context.Context, id domain.DocumentID, n int64, writer string) error {
	return b.update(func(txn *badger.Txn) error {
		skey := stagedKey(id, n, writer)
		data, err := getValue(txn, skey)
		if err != nil {
			return err
		}
		vkey := slotKey(prefixVersion, id, n)
		taken, err := exists(txn, vkey)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrAlreadyExists
		}
		if err := txn.Set(vkey, data); err != nil {
			return err
		}
		return txn.Delete(skey)
	})
}

// GC runs value log garbage collection until nothing is left to rewrite.
func (b *BadgerBackend) GC(ctx context.Context) error {
	start := time.Now()
	runs := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := b.db.RunValueLogGC(b.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				break
			}
			return fmt.Errorf("gc: %w", err)
		}
		runs++
	}

	b.lastGCTime.Store(time.Now().UnixMilli())
	b.gcRuns.Add(uint64(runs))
	if b.metricsGCRuns != nil {
		b.metricsGCRuns.Add(float64(runs))
	}

	b.logger.Debug("gc completed",
		"rewrites", runs,
		"elapsed", time.Since(start))
	return nil
}

// Close gracefully shuts down the backend.
func (b *BadgerBackend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.logger.Info("shutting down badger backend")

	close(b.stopCh)
	<-b.doneCh

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

// RegisterMetrics registers Badger size and GC metrics with Prometheus.
// Returns the backend for method chaining.
func (b *BadgerBackend) RegisterMetrics(registry prometheus.Registerer) *BadgerBackend {
	b.metricsLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "scribbler",
		Subsystem: "badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	})
	b.metricsValueLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "scribbler",
		Subsystem: "badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	})
	b.metricsLastGCTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "scribbler",
		Subsystem: "badger",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last Badger GC run",
	})
	b.metricsGCRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scribbler",
		Subsystem: "badger",
		Name:      "gc_rewrites_total",
		Help:      "Value log files rewritten by Badger garbage collection",
	})

	registry.MustRegister(
		b.metricsLSMSize,
		b.metricsValueLogSize,
		b.metricsLastGCTime,
		b.metricsGCRuns,
	)
	b.updateSizeMetrics()
	return b
}

func (b *BadgerBackend) updateSizeMetrics() {
	if b.metricsLSMSize == nil || b.closed.Load() {
		return
	}
	lsm, vlog := b.db.Size()
	b.metricsLSMSize.Set(float64(lsm))
	b.metricsValueLogSize.Set(float64(vlog))
	if last := b.lastGCTime.Load(); last > 0 {
		b.metricsLastGCTime.Set(float64(last) / 1000.0)
	}
}

// gcLoop runs periodic garbage collection and refreshes size metrics.
func (b *BadgerBackend) gcLoop() {
	defer close(b.doneCh)

	interval, err := time.ParseDuration(b.cfg.GCInterval)
	if err != nil || interval <= 0 {
		b.logger.Error("invalid gc_interval, using default 10m", "value", b.cfg.GCInterval)
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if err := b.GC(ctx); err != nil {
				b.logger.Error("auto gc failed", "error", err)
			}
			cancel()
			b.updateSizeMetrics()

		case <-b.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
