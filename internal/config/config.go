package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the system-wide settings coordinator. Precedence is
// defaults → environment → file.
type Config struct {
	Database  *DatabaseConfig  `json:"database"`
	HTTP      *HTTPConfig      `json:"http"`
	WebSocket *WebSocketConfig `json:"websocket"`
	Feed      *FeedConfig      `json:"feed"`
	Presence  *PresenceConfig  `json:"presence"`
	Scenario  *ScenarioConfig  `json:"scenario"`
}

type DatabaseConfig struct {
	Path    string        `json:"path"`
	Timeout time.Duration `json:"timeout"`
}

type HTTPConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

type WebSocketConfig struct {
	PingInterval time.Duration `json:"ping_interval"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// FeedConfig controls per-subscriber snapshot buffering. When a subscriber
// falls behind, older snapshots are coalesced into the latest one.
type FeedConfig struct {
	BufferSize int `json:"buffer_size"`
}

// PresenceConfig controls the best-effort presence write throttle.
type PresenceConfig struct {
	MinInterval time.Duration `json:"min_interval"`
}

// ScenarioConfig points at an optional scenario content file. When empty the
// built-in sample scenario is the only content available.
type ScenarioConfig struct {
	Path string `json:"path"`
}

// DefaultConfig returns production-ready defaults for classroom scale.
func DefaultConfig() *Config {
	return &Config{
		Database: &DatabaseConfig{
			Path:    "./lifepath.db",
			Timeout: 30 * time.Second,
		},
		HTTP: &HTTPConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		WebSocket: &WebSocketConfig{
			PingInterval: 30 * time.Second,
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Feed: &FeedConfig{
			BufferSize: 16,
		},
		Presence: &PresenceConfig{
			MinInterval: 500 * time.Millisecond,
		},
		Scenario: &ScenarioConfig{
			Path: "",
		},
	}
}

// Validate checks the configuration before any component is initialized.
func (c *Config) Validate() error {
	if c.Database == nil {
		return fmt.Errorf("database configuration is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Database.Timeout <= 0 {
		return fmt.Errorf("database timeout must be positive")
	}
	if c.HTTP == nil {
		return fmt.Errorf("HTTP configuration is required")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}
	if c.HTTP.ReadTimeout <= 0 {
		return fmt.Errorf("HTTP read timeout must be positive")
	}
	if c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP write timeout must be positive")
	}
	if c.WebSocket == nil {
		return fmt.Errorf("WebSocket configuration is required")
	}
	if c.WebSocket.PingInterval <= 0 {
		return fmt.Errorf("WebSocket ping interval must be positive")
	}
	if c.WebSocket.ReadTimeout <= 0 {
		return fmt.Errorf("WebSocket read timeout must be positive")
	}
	if c.WebSocket.WriteTimeout <= 0 {
		return fmt.Errorf("WebSocket write timeout must be positive")
	}
	if c.Feed == nil || c.Feed.BufferSize <= 0 {
		return fmt.Errorf("feed buffer size must be positive")
	}
	if c.Presence == nil || c.Presence.MinInterval < 0 {
		return fmt.Errorf("presence min interval cannot be negative")
	}
	if c.Scenario == nil {
		return fmt.Errorf("scenario configuration is required")
	}
	return nil
}

// LoadFromEnv returns defaults overridden by LIFEPATH_* environment
// variables. Malformed values fall back silently to the default.
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("LIFEPATH_HTTP_HOST"); v != "" {
		cfg.HTTP.Host = v
	}
	if v := os.Getenv("LIFEPATH_HTTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Port = p
		}
	}
	if v := os.Getenv("LIFEPATH_HTTP_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.ReadTimeout = d
		}
	}
	if v := os.Getenv("LIFEPATH_HTTP_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.WriteTimeout = d
		}
	}
	if v := os.Getenv("LIFEPATH_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("LIFEPATH_DATABASE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Database.Timeout = d
		}
	}
	if v := os.Getenv("LIFEPATH_WEBSOCKET_PING_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.WebSocket.PingInterval = d
		}
	}
	if v := os.Getenv("LIFEPATH_WEBSOCKET_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.WebSocket.ReadTimeout = d
		}
	}
	if v := os.Getenv("LIFEPATH_WEBSOCKET_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.WebSocket.WriteTimeout = d
		}
	}
	if v := os.Getenv("LIFEPATH_FEED_BUFFER_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Feed.BufferSize = n
		}
	}
	if v := os.Getenv("LIFEPATH_PRESENCE_MIN_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Presence.MinInterval = d
		}
	}
	if v := os.Getenv("LIFEPATH_SCENARIO_PATH"); v != "" {
		cfg.Scenario.Path = v
	}

	return cfg
}

// configFile mirrors Config for JSON parsing; durations are strings.
type configFile struct {
	Database *struct {
		Path    string `json:"path"`
		Timeout string `json:"timeout"`
	} `json:"database"`
	HTTP *struct {
		Host         string `json:"host"`
		Port         int    `json:"port"`
		ReadTimeout  string `json:"read_timeout"`
		WriteTimeout string `json:"write_timeout"`
	} `json:"http"`
	WebSocket *struct {
		PingInterval string `json:"ping_interval"`
		ReadTimeout  string `json:"read_timeout"`
		WriteTimeout string `json:"write_timeout"`
	} `json:"websocket"`
	Feed *struct {
		BufferSize int `json:"buffer_size"`
	} `json:"feed"`
	Presence *struct {
		MinInterval string `json:"min_interval"`
	} `json:"presence"`
	Scenario *struct {
		Path string `json:"path"`
	} `json:"scenario"`
}

// LoadFromFile loads configuration from a JSON file on top of defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file configFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg := DefaultConfig()

	if file.Database != nil {
		if file.Database.Path != "" {
			cfg.Database.Path = file.Database.Path
		}
		applyDuration(&cfg.Database.Timeout, file.Database.Timeout)
	}
	if file.HTTP != nil {
		if file.HTTP.Host != "" {
			cfg.HTTP.Host = file.HTTP.Host
		}
		if file.HTTP.Port > 0 {
			cfg.HTTP.Port = file.HTTP.Port
		}
		applyDuration(&cfg.HTTP.ReadTimeout, file.HTTP.ReadTimeout)
		applyDuration(&cfg.HTTP.WriteTimeout, file.HTTP.WriteTimeout)
	}
	if file.WebSocket != nil {
		applyDuration(&cfg.WebSocket.PingInterval, file.WebSocket.PingInterval)
		applyDuration(&cfg.WebSocket.ReadTimeout, file.WebSocket.ReadTimeout)
		applyDuration(&cfg.WebSocket.WriteTimeout, file.WebSocket.WriteTimeout)
	}
	if file.Feed != nil && file.Feed.BufferSize > 0 {
		cfg.Feed.BufferSize = file.Feed.BufferSize
	}
	if file.Presence != nil {
		applyDuration(&cfg.Presence.MinInterval, file.Presence.MinInterval)
	}
	if file.Scenario != nil && file.Scenario.Path != "" {
		cfg.Scenario.Path = file.Scenario.Path
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

// Load resolves configuration with file > environment > defaults precedence.
// File errors are ignored so environment and defaults still apply.
func Load(path string) *Config {
	cfg := LoadFromEnv()
	if path != "" {
		if fileCfg, err := LoadFromFile(path); err == nil {
			cfg = fileCfg
		}
	}
	return cfg
}

func applyDuration(dst *time.Duration, raw string) {
	if raw == "" {
		return
	}
	if d, err := time.ParseDuration(raw); err == nil {
		*dst = d
	}
}
