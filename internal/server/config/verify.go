// Package config defines the server configuration structure.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"slices"
	"time"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyPolicy(cfg); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyServer(cfg *ServerSection) error {
	if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
		return fmt.Errorf("server.http.addr: %w", err)
	}
	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		return errors.New("server.http.tls_cert_file and tls_key_file must be set together")
	}
	for _, f := range []string{cfg.HTTP.TLSCertFile, cfg.HTTP.TLSKeyFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("server.http tls file: %w", err)
		}
	}
	if cfg.HTTP.RateLimit < 0 {
		return errors.New("server.http.rate_limit must not be negative")
	}
	if cfg.HTTP.RateLimit > 0 && cfg.HTTP.RateBurst < 1 {
		return errors.New("server.http.rate_burst must be at least 1")
	}
	if cfg.HTTP.MaxRequestBytes < 1 {
		return errors.New("server.http.max_request_bytes must be positive")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if !slices.Contains([]string{"fs", "badger", "memory"}, cfg.Driver) {
		return fmt.Errorf("storage.driver %q is not one of fs, badger, memory", cfg.Driver)
	}

	if cfg.Driver != "memory" {
		if cfg.DataDir == "" {
			return errors.New("storage.data_dir is required")
		}

		// Check if data directory exists or can be created
		if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
			return errors.New("cannot create data directory: " + err.Error())
		}
	}

	if cfg.MaxActionBytes < 1 {
		return errors.New("storage.max_action_bytes must be positive")
	}
	if cfg.ReclaimDebounce <= 0 {
		return errors.New("storage.reclaim_debounce must be positive")
	}
	if cfg.ReclaimJitter < 0 {
		return errors.New("storage.reclaim_jitter must not be negative")
	}
	if cfg.Driver == "badger" {
		if _, err := time.ParseDuration(cfg.Badger.GCInterval); err != nil {
			return fmt.Errorf("storage.badger.gc_interval: %w", err)
		}
		if cfg.Badger.GCThreshold <= 0 || cfg.Badger.GCThreshold >= 1 {
			return errors.New("storage.badger.gc_threshold must be between 0 and 1")
		}
	}
	return nil
}

func verifyPolicy(cfg *ServerConfig) error {
	if cfg.Checkpoint.MaxActions < 1 {
		return errors.New("checkpoint.max_actions must be at least 1")
	}
	if cfg.Checkpoint.MaxBytes < 1 {
		return errors.New("checkpoint.max_bytes must be positive")
	}
	if cfg.Sync.SizeBuffer < 0 || cfg.Sync.AgeBuffer < 0 {
		return errors.New("sync buffers must not be negative")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.Level) {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level)
	}
	if cfg.Format != "json" && cfg.Format != "text" {
		return fmt.Errorf("log.format %q is not json or text", cfg.Format)
	}
	return nil
}
