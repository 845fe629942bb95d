package testsupport

import (
	"path/filepath"
	"testing"

	"labwatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Timings are shortened so pipeline tests settle quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WatchDir = filepath.Join(base, "input_files")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Watcher.DebounceMillis = 20
	cfgVal.Dispatcher.PollTimeoutMillis = 20

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithPolicy sets the default acceptance policy.
func WithPolicy(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Evaluation.DefaultPolicy = name
	}
}

// WithCategories replaces the configured categories.
func WithCategories(categories ...config.Category) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Categories = categories
	}
}

// WithSinkBuffer overrides the result sink capacity.
func WithSinkBuffer(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dispatcher.SinkBuffer = n
	}
}

// WithResultsDisabled turns off the SQLite results history.
func WithResultsDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Results.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
