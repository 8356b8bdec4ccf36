package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directory layout used for delivery.
type Paths struct {
	BaseDir     string `toml:"base_dir"`
	WatchFolder string `toml:"watch_folder"`
	LogDir      string `toml:"log_dir"`
}

// Daemon contains configuration for the background delivery loop.
type Daemon struct {
	PollIntervalMS      int `toml:"poll_interval_ms"`
	StopTimeoutSeconds  int `toml:"stop_timeout_seconds"`
	StartTimeoutSeconds int `toml:"start_timeout_seconds"`
}

// Delivery contains configuration for one-shot and queued injections.
type Delivery struct {
	RetainOutput bool `toml:"retain_output"`
}

// Bridge contains configuration for the CommandPost automation bridge.
type Bridge struct {
	Enabled        bool   `toml:"enabled"`
	CmdpostPath    string `toml:"cmdpost_path"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Ledger contains configuration for the SQLite job history.
type Ledger struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for splice.
//
// Configuration sections by subsystem:
//   - Paths: base directory, watch-folder override, log directory
//   - Daemon: poll interval and start/stop bounds
//   - Delivery: whether rendered documents are kept after delivery
//   - Bridge: CommandPost binary and call timeout
//   - Ledger: SQLite job history toggle
//   - Logging: log format, level, and retention
type Config struct {
	Paths    Paths    `toml:"paths"`
	Daemon   Daemon   `toml:"daemon"`
	Delivery Delivery `toml:"delivery"`
	Bridge   Bridge   `toml:"bridge"`
	Ledger   Ledger   `toml:"ledger"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("splice.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the base, log, and watch directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.BaseDir, c.Paths.LogDir, c.Paths.WatchFolder} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LedgerPath returns the SQLite job history location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.BaseDir, "ledger.db")
}

// DaemonLogPath returns the log file used by a detached daemon started at t.
func (c *Config) DaemonLogPath(t time.Time) string {
	return filepath.Join(c.Paths.LogDir, fmt.Sprintf("splice-daemon-%s.log", t.Format("20060102-150405")))
}

// PollInterval returns the daemon poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Daemon.PollIntervalMS) * time.Millisecond
}

// StopTimeout returns how long `daemon stop` waits for the process to exit.
func (c *Config) StopTimeout() time.Duration {
	return time.Duration(c.Daemon.StopTimeoutSeconds) * time.Second
}

// StartTimeout returns how long a detached start waits for the pid file.
func (c *Config) StartTimeout() time.Duration {
	return time.Duration(c.Daemon.StartTimeoutSeconds) * time.Second
}

// BridgeTimeout bounds every CommandPost call.
func (c *Config) BridgeTimeout() time.Duration {
	return time.Duration(c.Bridge.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// ErrConfigExists is returned by CreateSample when the target exists and
// overwrite is false.
var ErrConfigExists = errors.New("config file already exists")

// CreateSample writes the embedded sample configuration to path, creating
// parent directories.
func CreateSample(path string, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}
	if err != nil {
		return fmt.Errorf("open sample config: %w", err)
	}
	if _, err := file.WriteString(sampleConfig); err != nil {
		file.Close()
		return fmt.Errorf("write sample config: %w", err)
	}
	return file.Close()
}
