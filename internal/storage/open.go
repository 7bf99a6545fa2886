package storage

import (
	"fmt"
	"log/slog"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/service"
	"github.com/jeff-tyrrill/data-scribbler/internal/storage/memory"
)

// Backend is a service.Store that owns resources.
type Backend interface {
	service.Store

	// Close releases the backend's resources.
	Close() error
}

var (
	_ Backend = (*FSBackend)(nil)
	_ Backend = (*BadgerBackend)(nil)
	_ Backend = (*memory.Store)(nil)
)

// Open creates the backend selected by cfg.Driver.
func Open(cfg Config, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "storage", "driver", cfg.Driver)

	switch cfg.Driver {
	case "", DriverFS:
		return NewFSBackend(cfg.Dir, logger)
	case DriverBadger:
		return NewBadgerBackend(cfg, logger)
	case DriverMemory:
		logger.Warn("memory backend selected, documents will not survive a restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}
