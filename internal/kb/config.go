package kb

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ConfigFileName is the optional per-knowledge-base config file at the root.
const ConfigFileName = "kb.toml"

// Config holds knowledge-base level settings read from kb.toml.
type Config struct {
	// Organization is the default organization for projects whose
	// frontmatter doesn't name one.
	Organization string `toml:"organization"`

	// Ignore lists extra directory names to skip during scanning,
	// in addition to the built-in ignore set.
	Ignore []string `toml:"ignore"`
}

// DefaultConfig returns the settings used when kb.toml is absent.
func DefaultConfig() *Config {
	return &Config{
		Organization: "personal",
	}
}

// LoadConfig reads kb.toml from the knowledge-base root.
//
// A missing file is not an error; defaults are returned. A file that exists
// but cannot be parsed is an error — a broken kb.toml should be fixed, not
// silently ignored.
func LoadConfig(root string) (*Config, error) {
	path := filepath.Join(root, ConfigFileName)

	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if cfg.Organization == "" {
		cfg.Organization = DefaultConfig().Organization
	}

	return cfg, nil
}
