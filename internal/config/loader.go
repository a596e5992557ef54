package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// FileName is the per-tree config file looked up in the working
// directory.
const FileName = "praxis.yaml"

// Load reads configuration with standard precedence: defaults, then the
// config file, then PRAXIS_* environment variables.
//
// path names an explicit config file; when empty, praxis.yaml in the
// working directory is used if present, falling back to the global
// config under the home directory. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("PRAXIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Viper only reports env-supplied keys it knows about, so declare
	// every key with its default.
	v.SetDefault("kb.root", cfg.KB.Root)
	v.SetDefault("kb.organization", cfg.KB.Organization)
	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("daemon.debounce", cfg.Daemon.Debounce)
	v.SetDefault("daemon.resync", cfg.Daemon.Resync)
	v.SetDefault("events.capacity", cfg.Events.Capacity)
	v.SetDefault("events.subscriber_buffer", cfg.Events.SubscriberBuffer)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.max_size_mb", cfg.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", cfg.Log.MaxBackups)

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if cwd, err := os.Getwd(); err == nil {
		local := filepath.Join(cwd, FileName)
		if _, err := os.Stat(local); err == nil {
			return local
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		global := filepath.Join(home, ".praxis", "config.yaml")
		if _, err := os.Stat(global); err == nil {
			return global
		}
	}
	return ""
}

// GlobalConfigPath returns the path of the per-user config file.
func GlobalConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".praxis", "config.yaml")
}

// WriteDefault writes a commented starter configuration to path,
// creating parent directories as needed. Refuses to overwrite.
func WriteDefault(path string, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content := fmt.Sprintf(`# praxis configuration

kb:
  # Knowledge-base directory to scan and watch.
  root: %s
  # Fallback organization for projects that name none. kb.toml in the
  # knowledge-base root overrides this.
  organization: %s

database:
  path: %s

server:
  # Address the event stream server listens on.
  addr: %s

daemon:
  # How long the change queue must stay quiet before a reconcile runs.
  debounce: %s
  # Full reconcile interval without file events. 0 disables.
  resync: %s

events:
  # Recent events kept for late-joining stream clients.
  capacity: %d
  subscriber_buffer: %d

log:
  # Log file path; empty logs to stderr.
  file: %q
  max_size_mb: %d
  max_backups: %d
`,
		cfg.KB.Root, cfg.KB.Organization,
		cfg.Database.Path,
		cfg.Server.Addr,
		cfg.Daemon.Debounce, cfg.Daemon.Resync,
		cfg.Events.Capacity, cfg.Events.SubscriberBuffer,
		cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
