// Package config defines the server configuration structure.
package config

import "time"

// ServerConfig is the root configuration for scribbler-server.
type ServerConfig struct {
	Server     ServerSection     `koanf:"server"`
	Storage    StorageSection    `koanf:"storage"`
	Checkpoint CheckpointSection `koanf:"checkpoint"`
	Sync       SyncSection       `koanf:"sync"`
	Log        LogSection        `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`

	// CORSOrigins lists the origins allowed to call the API from a browser.
	// Empty allows any origin.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimit is the sustained request rate per client IP (req/s).
	// Zero disables rate limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`

	// MaxRequestBytes caps the request body before decoding.
	// Default: 2 MiB
	MaxRequestBytes int64 `koanf:"max_request_bytes"`

	// MetricsToken, when set, is required as a bearer token on /metrics.
	MetricsToken string `koanf:"metrics_token"`

	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StorageSection configures the version store backend.
type StorageSection struct {
	// Driver is one of "fs", "badger" or "memory".
	Driver  string `koanf:"driver"`
	DataDir string `koanf:"data_dir"`

	// MaxActionBytes is the largest accepted serialized action.
	// Default: 524288
	MaxActionBytes int `koanf:"max_action_bytes"`

	// ReclaimDebounce is the minimum age of an in-progress append before
	// another writer may reclaim it.
	ReclaimDebounce time.Duration `koanf:"reclaim_debounce"`
	ReclaimJitter   time.Duration `koanf:"reclaim_jitter"`

	Badger BadgerSection `koanf:"badger"`
}

// BadgerSection tunes the badger driver.
type BadgerSection struct {
	GCInterval  string  `koanf:"gc_interval"`
	GCThreshold float64 `koanf:"gc_threshold"`
	CacheSize   int64   `koanf:"cache_size"`
	SyncWrites  bool    `koanf:"sync_writes"`
}

// CheckpointSection configures when a snapshot is demanded.
type CheckpointSection struct {
	MaxActions int `koanf:"max_actions"`
	MaxBytes   int `koanf:"max_bytes"`
}

// SyncSection configures the initial-load window.
type SyncSection struct {
	SizeBuffer int           `koanf:"size_buffer"`
	AgeBuffer  time.Duration `koanf:"age_buffer"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
