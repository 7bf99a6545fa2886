// Package config defines the server configuration structure.
package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:5080"
	DefaultRateLimit       = 20
	DefaultRateBurst       = 40
	DefaultMaxRequestBytes = 2 << 20
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	DefaultDriver          = "fs"
	DefaultDataDir         = "/var/lib/scribbler-server/data"
	DefaultMaxActionBytes  = 512 << 10
	DefaultReclaimDebounce = 500 * time.Millisecond
	DefaultReclaimJitter   = 250 * time.Millisecond

	DefaultBadgerGCInterval  = "10m"
	DefaultBadgerGCThreshold = 0.5
	DefaultBadgerCacheSize   = 64 << 20

	DefaultCheckpointMaxActions = 25
	DefaultCheckpointMaxBytes   = 200 << 10

	DefaultSyncSizeBuffer = 200 << 10
	DefaultSyncAgeBuffer  = 20 * time.Minute

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:            DefaultHTTPAddr,
				RateLimit:       DefaultRateLimit,
				RateBurst:       DefaultRateBurst,
				MaxRequestBytes: DefaultMaxRequestBytes,
				ReadTimeout:     DefaultReadTimeout,
				WriteTimeout:    DefaultWriteTimeout,
				ShutdownTimeout: DefaultShutdownTimeout,
			},
		},
		Storage: StorageSection{
			Driver:          DefaultDriver,
			DataDir:         DefaultDataDir,
			MaxActionBytes:  DefaultMaxActionBytes,
			ReclaimDebounce: DefaultReclaimDebounce,
			ReclaimJitter:   DefaultReclaimJitter,
			Badger: BadgerSection{
				GCInterval:  DefaultBadgerGCInterval,
				GCThreshold: DefaultBadgerGCThreshold,
				CacheSize:   DefaultBadgerCacheSize,
				SyncWrites:  true,
			},
		},
		Checkpoint: CheckpointSection{
			MaxActions: DefaultCheckpointMaxActions,
			MaxBytes:   DefaultCheckpointMaxBytes,
		},
		Sync: SyncSection{
			SizeBuffer: DefaultSyncSizeBuffer,
			AgeBuffer:  DefaultSyncAgeBuffer,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
