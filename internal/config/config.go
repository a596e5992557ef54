// Package config loads praxis configuration from file, environment,
// and defaults, in that order of increasing precedence for the
// environment and decreasing for defaults.
package config

import (
	"time"
)

// Config is the full praxis configuration.
type Config struct {
	// KB configures the knowledge-base tree.
	KB KBConfig `yaml:"kb" mapstructure:"kb"`

	// Database configures the SQLite cache.
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Server configures the event stream server.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Daemon configures the file watcher.
	Daemon DaemonConfig `yaml:"daemon" mapstructure:"daemon"`

	// Events configures the in-process event hub.
	Events EventsConfig `yaml:"events" mapstructure:"events"`

	// Log configures log output.
	Log LogConfig `yaml:"log" mapstructure:"log"`
}

// KBConfig locates the knowledge base.
type KBConfig struct {
	// Root is the knowledge-base directory to scan and watch.
	Root string `yaml:"root" mapstructure:"root"`

	// Organization is the fallback owner for projects whose frontmatter
	// names none. kb.toml at the root overrides this.
	Organization string `yaml:"organization" mapstructure:"organization"`
}

// DatabaseConfig locates the SQLite cache database.
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the stream server.
type ServerConfig struct {
	// Addr to listen on for WebSocket and NDJSON clients.
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// DaemonConfig configures the watch-and-reconcile loop.
type DaemonConfig struct {
	// Debounce is how long the change queue must stay quiet before a
	// reconcile runs.
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`

	// Resync is the interval for full reconciles without file events.
	// Zero disables periodic resync.
	Resync time.Duration `yaml:"resync" mapstructure:"resync"`
}

// EventsConfig configures the hub's buffering.
type EventsConfig struct {
	// Capacity is how many recent events are kept for late joiners.
	Capacity int `yaml:"capacity" mapstructure:"capacity"`

	// SubscriberBuffer is the per-subscriber channel depth.
	SubscriberBuffer int `yaml:"subscriber_buffer" mapstructure:"subscriber_buffer"`
}

// LogConfig configures log output.
type LogConfig struct {
	// File receives logs when set; empty logs to stderr. The file is
	// size-rotated.
	File string `yaml:"file" mapstructure:"file"`

	// MaxSizeMB is the rotation threshold for the log file.
	MaxSizeMB int `yaml:"max_size_mb" mapstructure:"max_size_mb"`

	// MaxBackups is how many rotated files to keep.
	MaxBackups int `yaml:"max_backups" mapstructure:"max_backups"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		KB: KBConfig{
			Root:         ".",
			Organization: "personal",
		},
		Database: DatabaseConfig{
			Path: ".praxis/praxis.db",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8787",
		},
		Daemon: DaemonConfig{
			Debounce: 250 * time.Millisecond,
			Resync:   5 * time.Minute,
		},
		Events: EventsConfig{
			Capacity:         100,
			SubscriberBuffer: 16,
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}
