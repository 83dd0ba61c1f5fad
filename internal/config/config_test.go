package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tbag/internal/config"
)

func TestDefaultNormalizesAndValidates(t *testing.T) {
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.GPIO.Driver = "mock"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if _, err := os.Stat(cfg.Paths.DataDir); err != nil {
		t.Fatalf("data dir missing: %v", err)
	}
	if got := cfg.DatabasePath(); !strings.HasSuffix(got, "tbag.db") {
		t.Fatalf("unexpected database path %q", got)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be reported missing")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.Device.ID == "" {
		t.Fatal("expected default device id")
	}
	if cfg.Device.PresenceTimeoutSec != 120 {
		t.Fatalf("expected default presence timeout, got %d", cfg.Device.PresenceTimeoutSec)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[device]
id = "bench-3"
presence_timeout = 30

[gpio]
driver = "mock"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Device.ID != "bench-3" {
		t.Fatalf("expected device id override, got %q", cfg.Device.ID)
	}
	if cfg.Device.PresenceTimeoutSec != 30 {
		t.Fatalf("expected presence timeout override, got %d", cfg.Device.PresenceTimeoutSec)
	}
	if cfg.GPIO.Driver != "mock" {
		t.Fatalf("expected mock driver, got %q", cfg.GPIO.Driver)
	}
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[gpio]\ndriver = \"banana\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unsupported gpio driver")
	}
}

func TestCreateSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if err := config.CreateSample(path); err == nil {
		t.Fatal("expected error when sample already exists")
	}
}
