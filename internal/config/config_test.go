package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		fn   func(*Config)
	}{
		{"missing database", func(c *Config) { c.Database = nil }},
		{"empty db path", func(c *Config) { c.Database.Path = "" }},
		{"zero db timeout", func(c *Config) { c.Database.Timeout = 0 }},
		{"missing http", func(c *Config) { c.HTTP = nil }},
		{"port too high", func(c *Config) { c.HTTP.Port = 70000 }},
		{"port zero", func(c *Config) { c.HTTP.Port = 0 }},
		{"zero ping interval", func(c *Config) { c.WebSocket.PingInterval = 0 }},
		{"zero feed buffer", func(c *Config) { c.Feed.BufferSize = 0 }},
		{"negative presence interval", func(c *Config) { c.Presence.MinInterval = -time.Second }},
		{"missing scenario", func(c *Config) { c.Scenario = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.fn(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LIFEPATH_HTTP_PORT", "9090")
	t.Setenv("LIFEPATH_DATABASE_PATH", "/tmp/env.db")
	t.Setenv("LIFEPATH_PRESENCE_MIN_INTERVAL", "250ms")
	t.Setenv("LIFEPATH_FEED_BUFFER_SIZE", "32")

	cfg := LoadFromEnv()
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
	if cfg.Database.Path != "/tmp/env.db" {
		t.Errorf("db path = %s", cfg.Database.Path)
	}
	if cfg.Presence.MinInterval != 250*time.Millisecond {
		t.Errorf("presence interval = %v", cfg.Presence.MinInterval)
	}
	if cfg.Feed.BufferSize != 32 {
		t.Errorf("feed buffer = %d", cfg.Feed.BufferSize)
	}
}

func TestLoadFromEnv_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("LIFEPATH_HTTP_PORT", "not-a-number")
	t.Setenv("LIFEPATH_DATABASE_TIMEOUT", "soon")

	cfg := LoadFromEnv()
	def := DefaultConfig()
	if cfg.HTTP.Port != def.HTTP.Port {
		t.Errorf("port = %d, want default %d", cfg.HTTP.Port, def.HTTP.Port)
	}
	if cfg.Database.Timeout != def.Database.Timeout {
		t.Errorf("timeout = %v, want default %v", cfg.Database.Timeout, def.Database.Timeout)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"http": {"port": 9999, "read_timeout": "45s"},
		"database": {"path": "/tmp/file.db", "timeout": "1m"},
		"feed": {"buffer_size": 64},
		"presence": {"min_interval": "2s"}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.HTTP.Port != 9999 || cfg.HTTP.ReadTimeout != 45*time.Second {
		t.Errorf("http = %+v", cfg.HTTP)
	}
	if cfg.Database.Path != "/tmp/file.db" || cfg.Database.Timeout != time.Minute {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.Feed.BufferSize != 64 {
		t.Errorf("feed = %+v", cfg.Feed)
	}
	if cfg.Presence.MinInterval != 2*time.Second {
		t.Errorf("presence = %+v", cfg.Presence)
	}
	// Sections not in the file keep their defaults.
	if cfg.WebSocket.PingInterval != DefaultConfig().WebSocket.PingInterval {
		t.Errorf("websocket = %+v", cfg.WebSocket)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(bad); err == nil {
		t.Error("expected error for malformed file")
	}
}

func TestLoad_FileWinsOverEnv(t *testing.T) {
	t.Setenv("LIFEPATH_HTTP_PORT", "9090")

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"http": {"port": 7777}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load(path)
	if cfg.HTTP.Port != 7777 {
		t.Errorf("port = %d, want file value 7777", cfg.HTTP.Port)
	}

	// Without a file the environment applies.
	cfg = Load("")
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port = %d, want env value 9090", cfg.HTTP.Port)
	}

	// An unreadable file falls back to the environment.
	cfg = Load(filepath.Join(t.TempDir(), "missing.json"))
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port = %d, want env fallback 9090", cfg.HTTP.Port)
	}
}
