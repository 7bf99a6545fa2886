package confloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	Server struct {
		HTTP struct {
			Addr    string `koanf:"addr"`
			Enabled bool   `koanf:"enabled"`
		} `koanf:"http"`
	} `koanf:"server"`
	Storage struct {
		DataDir         string        `koanf:"data_dir"`
		ReclaimDebounce time.Duration `koanf:"reclaim_debounce"`
	} `koanf:"storage"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	if l.envPrefix != DefaultEnvPrefix {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, DefaultEnvPrefix)
	}

	l = NewLoader(WithEnvPrefix("TEST_"), WithConfigFile("/path/to/config.yaml"))
	if l.envPrefix != "TEST_" {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, "TEST_")
	}
	if l.filePath != "/path/to/config.yaml" {
		t.Errorf("filePath = %q, want %q", l.filePath, "/path/to/config.yaml")
	}
}

func TestLoader_LoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  http:
    addr: "0.0.0.0:5080"
    enabled: true
storage:
  data_dir: /srv/data
`)

	l := NewLoader()
	if err := l.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if addr := l.GetString("server.http.addr"); addr != "0.0.0.0:5080" {
		t.Errorf("server.http.addr = %q, want %q", addr, "0.0.0.0:5080")
	}
	if !l.GetBool("server.http.enabled") {
		t.Error("server.http.enabled should be true")
	}
}

func TestLoader_LoadFile_Errors(t *testing.T) {
	l := NewLoader()
	if err := l.LoadFile("/nonexistent/config.yaml"); err == nil {
		t.Error("LoadFile() should return error for nonexistent file")
	}
	if err := l.LoadFile(""); err != nil {
		t.Errorf("LoadFile(\"\") should not error, got: %v", err)
	}
	if err := l.LoadFile(writeConfig(t, "server: [unclosed")); err == nil {
		t.Error("LoadFile() should return error for invalid YAML")
	}
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"SCRIBBLER_STORAGE__DATA_DIR", "storage.data_dir"},
		{"SCRIBBLER_SERVER__HTTP__ADDR", "server.http.addr"},
		{"SCRIBBLER_LOG__LEVEL", "log.level"},
		{"SCRIBBLER_DEBUG", "debug"},
	}

	for _, tt := range tests {
		if got := envKey(DefaultEnvPrefix, tt.name); got != tt.want {
			t.Errorf("envKey(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestLoader_Load_Priority(t *testing.T) {
	path := writeConfig(t, `
server:
  http:
    addr: "0.0.0.0:5080"
storage:
  data_dir: /from/file
  reclaim_debounce: 2s
`)
	t.Setenv("SCRIBBLER_STORAGE__DATA_DIR", "/from/env")
	t.Setenv("SCRIBBLER_SERVER__HTTP__ADDR", "127.0.0.1:9000")

	var cfg testConfig
	cfg.Server.HTTP.Enabled = true // default survives absent keys

	l := NewLoader(
		WithConfigFile(path),
		WithOverrides(map[string]any{"server.http.addr": "127.0.0.1:7000"}),
	)
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !l.IsLoaded() {
		t.Error("IsLoaded() = false after Load")
	}
	if cfg.Storage.DataDir != "/from/env" {
		t.Errorf("DataDir = %q, env should override file", cfg.Storage.DataDir)
	}
	if cfg.Server.HTTP.Addr != "127.0.0.1:7000" {
		t.Errorf("Addr = %q, overrides should win", cfg.Server.HTTP.Addr)
	}
	if cfg.Storage.ReclaimDebounce != 2*time.Second {
		t.Errorf("ReclaimDebounce = %v, want 2s", cfg.Storage.ReclaimDebounce)
	}
	if !cfg.Server.HTTP.Enabled {
		t.Error("default value was lost")
	}
}

func TestLoader_LoadMap(t *testing.T) {
	l := NewLoader()
	if err := l.LoadMap(map[string]any{"server.http.addr": ":1"}); err != nil {
		t.Fatal(err)
	}

	if got := l.GetString("server.http.addr"); got != ":1" {
		t.Errorf("server.http.addr = %q, want :1", got)
	}
	if len(l.Keys()) != 1 {
		t.Errorf("Keys() = %v", l.Keys())
	}
}

func TestMapProvider_ReadBytes(t *testing.T) {
	if _, err := (mapProvider{}).ReadBytes(); err != ErrReadBytesNotSupported {
		t.Errorf("ReadBytes() error = %v", err)
	}
}
