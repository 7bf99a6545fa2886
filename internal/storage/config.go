package storage

// Driver names accepted by Open.
const (
	DriverFS     = "fs"
	DriverBadger = "badger"
	DriverMemory = "memory"
)

// Config selects and configures a storage backend.
type Config struct {
	// Driver is one of "fs", "badger" or "memory".
	// Default: "fs"
	Driver string

	// Dir is the storage root directory (unused by memory).
	Dir string

	// Badger-specific configuration
	Badger BadgerConfig
}

// BadgerConfig contains Badger-specific tuning parameters.
type BadgerConfig struct {
	// GCInterval is the interval between value log GC runs.
	// Default: 10m
	GCInterval string

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 64MB
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 256MB
	ValueLogFileSize int64

	// SyncWrites fsyncs every commit. Version records must be durable
	// before they are acknowledged, so this defaults to true.
	SyncWrites bool
}

// DefaultConfig returns the default storage configuration.
func DefaultConfig(dir string) Config {
	return Config{
		Driver: DriverFS,
		Dir:    dir,
		Badger: DefaultBadgerConfig(),
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       "10m",
		GCThreshold:      0.5,
		CacheSize:        64 << 20,  // 64MB
		ValueLogFileSize: 256 << 20, // 256MB
		SyncWrites:       true,
	}
}
