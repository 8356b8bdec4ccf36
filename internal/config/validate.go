package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDaemon(); err != nil {
		return err
	}
	if err := c.validateBridge(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.BaseDir) == "" {
		return errors.New("paths.base_dir must be set")
	}
	if c.Paths.WatchFolder == c.Paths.BaseDir {
		return errors.New("paths.watch_folder must differ from paths.base_dir")
	}
	return nil
}

func (c *Config) validateDaemon() error {
	return ensurePositiveMap(map[string]int{
		"daemon.poll_interval_ms":      c.Daemon.PollIntervalMS,
		"daemon.stop_timeout_seconds":  c.Daemon.StopTimeoutSeconds,
		"daemon.start_timeout_seconds": c.Daemon.StartTimeoutSeconds,
	})
}

func (c *Config) validateBridge() error {
	if c.Bridge.TimeoutSeconds <= 0 {
		return errors.New("bridge.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
