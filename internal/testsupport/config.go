package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"splice/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.BaseDir = filepath.Join(base, "splice")
	cfgVal.Paths.WatchFolder = filepath.Join(base, "splice", "watch", "fcpxml")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Daemon.PollIntervalMS = 20
	cfgVal.Daemon.StopTimeoutSeconds = 2
	cfgVal.Daemon.StartTimeoutSeconds = 2
	cfgVal.Bridge.Enabled = false
	cfgVal.Bridge.TimeoutSeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWatchFolder points deliveries at a watch-folder outside the base directory.
func WithWatchFolder(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.WatchFolder = filepath.Join(b.baseDir, name)
	}
}

// WithoutLedger disables the SQLite job history.
func WithoutLedger() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ledger.Enabled = false
	}
}

// WithoutRetention removes rendered documents from out/ after delivery.
func WithoutRetention() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Delivery.RetainOutput = false
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. An empty script writes stubs that exit 0.
func WithStubbedBinaries(script string, names ...string) ConfigOption {
	return func(b *configBuilder) {
		if script == "" {
			script = "#!/bin/sh\nexit 0\n"
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.BaseDir)
}
