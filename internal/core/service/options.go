package service

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/domain"
)

// Observer receives service-level measurements. The metric package
// provides the Prometheus implementation.
type Observer interface {
	// AppendFinished is called once per VersionStore.Append.
	AppendFinished(outcome string, elapsed time.Duration)

	// LeaseReclaimed is called when an abandoned in-progress lease is removed.
	LeaseReclaimed()

	// SyncServed is called once per successful SyncReader.Read.
	SyncServed(mode string, records int)
}

type nopObserver struct{}

func (nopObserver) AppendFinished(string, time.Duration) {}
func (nopObserver) LeaseReclaimed()                      {}
func (nopObserver) SyncServed(string, int)               {}

// Option configures a service.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	now      func() time.Time
	observer Observer
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock sets the clock. Commit times and staleness use it.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithObserver sets the measurement sink.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:   slog.Default(),
		now:      time.Now,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// storageError folds backend failures into the domain taxonomy.
// Missing resources mean the document does not exist.
func storageError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrDocumentNotFound.WithCause(err)
	}
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}
	return domain.ErrStorageError.WithCause(err)
}

func conflictError(n int64) error {
	return domain.ErrVersionConflict.WithDetails(fmt.Sprintf("version %d", n))
}

// sortDescending orders version numbers newest first.
func sortDescending(versions []int64) {
	sort.Slice(versions, func(i, j int) bool { return versions[i] > versions[j] })
}
