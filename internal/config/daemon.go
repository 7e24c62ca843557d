package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// MinRotateInterval is the lowest rotation interval the daemon will use.
const MinRotateInterval = 15 * time.Second

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "1s", "500ms", "1m", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	// Try parsing as integer (milliseconds) for backwards compatibility
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '1s', '500ms', '1m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DaemonConfig is the configuration for presenced.
// Loaded from ~/.config/presence/presenced.toml
type DaemonConfig struct {
	Login         LoginConfig        `toml:"login"`
	Rotation      RotationConfig     `toml:"rotation"`
	Notifications NotificationConfig `toml:"notifications"`
	Watch         WatchConfig        `toml:"watch"`
	Discord       DiscordConfig      `toml:"discord"`
	History       HistoryConfig      `toml:"history"`
}

// LoginConfig controls the IPC login retry policy.
type LoginConfig struct {
	Attempts       int      `toml:"attempts"`        // Bounded retry count (>= 1)
	Delay          Duration `toml:"delay"`           // Fixed pause between attempts
	RequestTimeout Duration `toml:"request_timeout"` // Per IPC request deadline
}

// RotationConfig controls phrase rotation.
type RotationConfig struct {
	MinInterval Duration `toml:"min_interval"` // Floor for rotateSec, never below 15s
}

// NotificationConfig controls desktop notifications for status events.
type NotificationConfig struct {
	Enabled     bool     `toml:"enabled"`
	MinInterval Duration `toml:"min_interval"` // Rate limit for identical notifications
}

// WatchConfig controls hot-reload of the presence document.
type WatchConfig struct {
	Config   bool     `toml:"config"`
	Debounce Duration `toml:"debounce"`
}

// DiscordConfig controls the IPC transport.
type DiscordConfig struct {
	Socket string `toml:"socket"` // Explicit socket path; empty = auto-discover
}

// HistoryConfig controls the status history log.
type HistoryConfig struct {
	Enabled    bool `toml:"enabled"`
	MaxEntries int  `toml:"max_entries"` // Entries kept after compaction
}

// DefaultDaemonConfig returns a new DaemonConfig with default values.
func DefaultDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		Login: LoginConfig{
			Attempts:       30,
			Delay:          Duration(time.Second),
			RequestTimeout: Duration(10 * time.Second),
		},
		Rotation: RotationConfig{
			MinInterval: Duration(MinRotateInterval),
		},
		Notifications: NotificationConfig{
			Enabled:     true,
			MinInterval: Duration(5 * time.Second),
		},
		Watch: WatchConfig{
			Config:   true,
			Debounce: Duration(250 * time.Millisecond),
		},
		History: HistoryConfig{
			Enabled:    true,
			MaxEntries: 500,
		},
	}
}

// LoadDaemonConfig loads the daemon configuration from path.
// If path is empty, uses the default path. Returns defaults if the file doesn't exist.
func LoadDaemonConfig(path string) (*DaemonConfig, error) {
	if path == "" {
		path = DaemonConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultDaemonConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	config := DefaultDaemonConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveDaemonConfig writes the daemon configuration to path.
func SaveDaemonConfig(path string, config *DaemonConfig) error {
	if path == "" {
		path = DaemonConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *DaemonConfig) Validate() error {
	if c.Login.Attempts < 1 || c.Login.Attempts > 1000 {
		return fmt.Errorf("login attempts must be between 1 and 1000, got %d", c.Login.Attempts)
	}
	if c.Login.Delay.Duration() < 0 {
		return fmt.Errorf("login delay cannot be negative, got %s", c.Login.Delay.Duration())
	}
	if c.Login.RequestTimeout.Duration() <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.Login.RequestTimeout.Duration())
	}
	if c.Rotation.MinInterval.Duration() < MinRotateInterval {
		return fmt.Errorf("rotation min_interval must be at least %s, got %s",
			MinRotateInterval, c.Rotation.MinInterval.Duration())
	}
	if c.Notifications.MinInterval.Duration() < 0 {
		return fmt.Errorf("notifications min_interval cannot be negative")
	}
	if c.Watch.Debounce.Duration() < 0 {
		return fmt.Errorf("watch debounce cannot be negative")
	}
	if c.History.MaxEntries < 1 {
		return fmt.Errorf("history max_entries must be at least 1, got %d", c.History.MaxEntries)
	}
	return nil
}
