package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if cfg.KB.Organization != "personal" {
		t.Errorf("Expected organization 'personal', got %q", cfg.KB.Organization)
	}
	if cfg.Server.Addr != "127.0.0.1:8787" {
		t.Errorf("Expected default addr, got %q", cfg.Server.Addr)
	}
	if cfg.Daemon.Debounce != 250*time.Millisecond {
		t.Errorf("Expected 250ms debounce, got %v", cfg.Daemon.Debounce)
	}
	if cfg.Events.Capacity != 100 {
		t.Errorf("Expected capacity 100, got %d", cfg.Events.Capacity)
	}
}

func TestLoadExplicitMissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "praxis.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoadNoFileUsesDefaults(t *testing.T) {
	// No praxis.yaml in the working directory and no global config.
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.KB.Organization != "personal" {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "praxis.yaml")
	content := `
kb:
  root: /srv/kb
  organization: acme
server:
  addr: "0.0.0.0:9000"
daemon:
  debounce: 1s
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.KB.Root != "/srv/kb" {
		t.Errorf("KB.Root = %q", cfg.KB.Root)
	}
	if cfg.KB.Organization != "acme" {
		t.Errorf("KB.Organization = %q", cfg.KB.Organization)
	}
	if cfg.Server.Addr != "0.0.0.0:9000" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.Daemon.Debounce != time.Second {
		t.Errorf("Daemon.Debounce = %v", cfg.Daemon.Debounce)
	}
	// Keys the file doesn't mention keep their defaults.
	if cfg.Events.Capacity != 100 {
		t.Errorf("Events.Capacity = %d", cfg.Events.Capacity)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "praxis.yaml")
	if err := os.WriteFile(path, []byte("kb:\n  organization: acme\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PRAXIS_KB_ORGANIZATION", "fromenv")
	t.Setenv("PRAXIS_SERVER_ADDR", "127.0.0.1:7000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.KB.Organization != "fromenv" {
		t.Errorf("env should override file, got %q", cfg.KB.Organization)
	}
	if cfg.Server.Addr != "127.0.0.1:7000" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "praxis.yaml")
	if err := os.WriteFile(path, []byte("kb: [unclosed\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "praxis.yaml")

	if err := WriteDefault(path, nil); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}

	// The generated file round-trips through Load.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if cfg.KB.Organization != "personal" {
		t.Errorf("round-trip organization = %q", cfg.KB.Organization)
	}
	if cfg.Daemon.Resync != 5*time.Minute {
		t.Errorf("round-trip resync = %v", cfg.Daemon.Resync)
	}

	// A second write must refuse to clobber.
	if err := WriteDefault(path, nil); err == nil {
		t.Error("expected error when config already exists")
	}
}
