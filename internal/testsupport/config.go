package testsupport

import (
	"path/filepath"
	"testing"

	"tbag/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// The mock GPIO driver is selected so tests never touch hardware.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ProjectsDir = filepath.Join(base, "projects")
	cfg.Paths.ComponentsDir = filepath.Join(base, "components")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Device.ID = "test-kiosk"
	cfg.GPIO.Driver = "mock"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithDeviceID overrides the kiosk device identity on the test config.
func WithDeviceID(id string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Device.ID = id
	}
}

// WithAPIToken sets a bearer token requirement on the test config.
func WithAPIToken(token string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Paths.APIToken = token
	}
}
