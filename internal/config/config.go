// Package config provides configuration types and defaults for povtrack.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// APIConfig holds settings for the report API collaborator.
type APIConfig struct {
	// BaseURL is the root of the POV report API (e.g. "https://pov.example.com").
	BaseURL string `mapstructure:"base_url"`

	// Key is sent as the X-API-Key header on every request.
	Key string `mapstructure:"key"`

	// Timeout bounds a single fetch request.
	Timeout time.Duration `mapstructure:"timeout"`

	// CacheTTL controls how long fetched reports are served from the
	// in-memory cache before hitting the API again. Zero disables caching.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// UIConfig holds user interface configuration options.
type UIConfig struct {
	ShowRecent    bool `mapstructure:"show_recent"`
	ShowStatusBar bool `mapstructure:"show_status_bar"`
}

// ThemeConfig holds theme customization options.
type ThemeConfig struct {
	// Mode forces light or dark mode. If empty, uses terminal detection.
	// Valid values: "light", "dark", ""
	Mode string `mapstructure:"mode"`

	// Preset names a built-in color preset; empty means default.
	Preset string `mapstructure:"preset"`

	// Colors are per-token hex overrides applied after the preset,
	// e.g. "text.primary": "#E0DEF4".
	Colors map[string]string `mapstructure:"colors"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`

	// Path overrides the default log file location.
	Path string `mapstructure:"path"`
}

// TelemetryConfig holds trace exporter configuration.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// OTLPEndpoint, when set, exports spans over OTLP gRPC instead of the
	// local trace file.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// Config holds all configuration options for povtrack.
type Config struct {
	// StorePath is the SQLite database file backing the workflow slot store.
	StorePath string `mapstructure:"store_path"`

	// SlotKey names the persisted workflow slot within the store.
	SlotKey string `mapstructure:"slot_key"`

	// UserID identifies the caller to the report API. Fetches that require
	// an identity are skipped while it is empty.
	UserID string `mapstructure:"user_id"`

	// PersistDebounce is the coalescing window for workflow persistence writes.
	PersistDebounce time.Duration `mapstructure:"persist_debounce"`

	// AutoRefresh re-hydrates the recent-reports cache when the store file
	// changes on disk (another povtrack process wrote it).
	AutoRefresh         bool          `mapstructure:"auto_refresh"`
	AutoRefreshDebounce time.Duration `mapstructure:"auto_refresh_debounce"`

	API       APIConfig       `mapstructure:"api"`
	UI        UIConfig        `mapstructure:"ui"`
	Theme     ThemeConfig     `mapstructure:"theme"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// DefaultDataDir returns the povtrack data directory under the user's home.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".povtrack"
	}
	return filepath.Join(home, ".povtrack")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	dataDir := DefaultDataDir()
	return Config{
		StorePath:           filepath.Join(dataDir, "povtrack.db"),
		SlotKey:             "workflow",
		PersistDebounce:     500 * time.Millisecond,
		AutoRefresh:         true,
		AutoRefreshDebounce: 1 * time.Second,
		API: APIConfig{
			Timeout:  30 * time.Second,
			CacheTTL: 5 * time.Minute,
		},
		UI: UIConfig{
			ShowRecent:    true,
			ShowStatusBar: true,
		},
		Log: LogConfig{
			Level: "info",
			Path:  filepath.Join(dataDir, "povtrack.log"),
		},
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.StorePath == "" {
		return fmt.Errorf("store_path is required")
	}
	if c.SlotKey == "" {
		return fmt.Errorf("slot_key is required")
	}
	if c.PersistDebounce < 0 {
		return fmt.Errorf("persist_debounce cannot be negative")
	}
	if c.AutoRefresh && c.AutoRefreshDebounce <= 0 {
		return fmt.Errorf("auto_refresh_debounce must be positive when auto_refresh is enabled")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.API.CacheTTL < 0 {
		return fmt.Errorf("api.cache_ttl cannot be negative")
	}
	switch c.Theme.Mode {
	case "", "light", "dark":
	default:
		return fmt.Errorf("theme.mode must be \"light\", \"dark\", or empty, got %q", c.Theme.Mode)
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# povtrack Configuration

# SQLite file backing the persisted workflow slot
# store_path: ~/.povtrack/povtrack.db

# Named slot within the store (one workflow per slot)
slot_key: workflow

# Your POV API user id; report and title fetches are skipped while unset
# user_id: 6f1c...

# Coalescing window for workflow persistence writes
persist_debounce: 500ms

# Re-hydrate recent reports when another povtrack process writes the store
auto_refresh: true
auto_refresh_debounce: 1s

# Report API collaborator
api:
  # base_url: https://pov.example.com
  # key: your-api-key
  timeout: 30s
  cache_ttl: 5m

# UI settings
ui:
  show_recent: true      # Show the recent-reports panel
  show_status_bar: true  # Show status bar at bottom

# Theme configuration
theme:
  # Force light or dark mode; empty uses terminal detection
  # mode: dark
  # Built-in presets: default, nord, high-contrast
  # preset: nord
  # Per-token overrides, applied after the preset
  # colors:
  #   text.primary: "#E0DEF4"

# Logging (file-backed; the TUI owns stdout)
log:
  level: info
  # path: ~/.povtrack/povtrack.log

# Tracing (off by default; stdout-file exporter unless otlp_endpoint is set)
telemetry:
  enabled: false
  # otlp_endpoint: localhost:4317
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
