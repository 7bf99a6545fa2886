// Package config defines the server configuration structure.
package config

import (
	"github.com/jeff-tyrrill/data-scribbler/internal/core/service"
	"github.com/jeff-tyrrill/data-scribbler/internal/storage"
)

// ToStorageConfig maps the storage section onto storage.Config.
func ToStorageConfig(cfg *ServerConfig) storage.Config {
	sc := storage.DefaultConfig(cfg.Storage.DataDir)
	sc.Driver = cfg.Storage.Driver
	sc.Badger.GCInterval = cfg.Storage.Badger.GCInterval
	sc.Badger.GCThreshold = cfg.Storage.Badger.GCThreshold
	sc.Badger.SyncWrites = cfg.Storage.Badger.SyncWrites
	if cfg.Storage.Badger.CacheSize > 0 {
		sc.Badger.CacheSize = cfg.Storage.Badger.CacheSize
	}
	return sc
}

// ToServiceConfig maps the policy sections onto the document service.
func ToServiceConfig(cfg *ServerConfig) service.DocumentServiceConfig {
	return service.DocumentServiceConfig{
		MaxActionBytes: cfg.Storage.MaxActionBytes,
		Versions: service.VersionStoreConfig{
			ReclaimDebounce: cfg.Storage.ReclaimDebounce,
			ReclaimJitter:   cfg.Storage.ReclaimJitter,
		},
		Checkpoint: service.CheckpointConfig{
			MaxActions: cfg.Checkpoint.MaxActions,
			MaxBytes:   cfg.Checkpoint.MaxBytes,
		},
		Sync: service.SyncConfig{
			SizeBuffer: cfg.Sync.SizeBuffer,
			AgeBuffer:  cfg.Sync.AgeBuffer,
		},
	}
}
