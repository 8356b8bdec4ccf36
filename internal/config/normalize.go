package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeBridge(); err != nil {
		return err
	}
	c.normalizeDaemon()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("SPLICE_BASE_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.BaseDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.BaseDir) == "" {
		c.Paths.BaseDir = defaultBaseDir
	}
	var err error
	if c.Paths.BaseDir, err = expandPath(c.Paths.BaseDir); err != nil {
		return fmt.Errorf("paths.base_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WatchFolder) == "" {
		c.Paths.WatchFolder = filepath.Join(c.Paths.BaseDir, "watch", "fcpxml")
	}
	if c.Paths.WatchFolder, err = expandPath(c.Paths.WatchFolder); err != nil {
		return fmt.Errorf("paths.watch_folder: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.BaseDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBridge() error {
	c.Bridge.CmdpostPath = strings.TrimSpace(c.Bridge.CmdpostPath)
	if c.Bridge.CmdpostPath == "" {
		if value, ok := os.LookupEnv("SPLICE_CMDPOST_PATH"); ok {
			c.Bridge.CmdpostPath = strings.TrimSpace(value)
		}
	}
	if c.Bridge.CmdpostPath != "" {
		var err error
		if c.Bridge.CmdpostPath, err = expandPath(c.Bridge.CmdpostPath); err != nil {
			return fmt.Errorf("bridge.cmdpost_path: %w", err)
		}
	}
	if c.Bridge.TimeoutSeconds == 0 {
		c.Bridge.TimeoutSeconds = defaultBridgeTimeout
	}
	return nil
}

func (c *Config) normalizeDaemon() {
	if c.Daemon.StartTimeoutSeconds == 0 {
		c.Daemon.StartTimeoutSeconds = defaultStartTimeoutSeconds
	}
	if c.Daemon.StopTimeoutSeconds == 0 {
		c.Daemon.StopTimeoutSeconds = defaultStopTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
