package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"splice/internal/bridge"
	"splice/internal/config"
	"splice/internal/daemon"
	"splice/internal/delivery"
	"splice/internal/ledger"
	"splice/internal/logging"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		if exists {
			c.configPath = resolved
		}
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// cliLogger logs to stderr so stdout carries only command output.
func (c *commandContext) cliLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, _ := c.ensureConfig()
		logger, err := logging.NewFromConfig(cfg, "")
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

// openLedger opens the job history when enabled. Failures only log: the
// ledger mirrors job records and never gates delivery.
func (c *commandContext) openLedger(cfg *config.Config, logger *slog.Logger) *ledger.Store {
	if cfg == nil || !cfg.Ledger.Enabled {
		return nil
	}
	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		logging.WarnWithContext(logger, "job ledger unavailable", "ledger_open_failed",
			logging.Error(err),
			logging.Path(cfg.LedgerPath()),
			logging.String(logging.FieldImpact, "job history not recorded for this command"),
		)
		return nil
	}
	return store
}

// withManager runs fn with a delivery manager backed by the configured ledger.
func (c *commandContext) withManager(logger *slog.Logger, fn func(*config.Config, *delivery.Manager, *ledger.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store := c.openLedger(cfg, logger)
	if store != nil {
		defer store.Close()
	}
	var opts []delivery.Option
	if store != nil {
		opts = append(opts, delivery.WithLedger(store))
	}
	mgr, err := delivery.NewManager(cfg, logger, opts...)
	if err != nil {
		return err
	}
	return fn(cfg, mgr, store)
}

// withDaemon runs fn with a daemon handle for the configured base directory.
func (c *commandContext) withDaemon(logger *slog.Logger, fn func(*config.Config, *daemon.Daemon) error) error {
	return c.withManager(logger, func(cfg *config.Config, mgr *delivery.Manager, _ *ledger.Store) error {
		d, err := daemon.New(cfg, mgr, logger)
		if err != nil {
			return err
		}
		return fn(cfg, d)
	})
}

func (c *commandContext) bridgeClient(cfg *config.Config) *bridge.Client {
	return bridge.New(cfg)
}

// checkBridge warns when CommandPost will not pick up a delivered document.
func (c *commandContext) checkBridge(ctx context.Context, cfg *config.Config, logger *slog.Logger) {
	if cfg == nil || !cfg.Bridge.Enabled {
		return
	}
	enabled, err := c.bridgeClient(cfg).AutoImportEnabled(ctx)
	switch {
	case err != nil:
		logging.WarnWithContext(logger, "commandpost bridge check failed", "bridge_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run `splice bridge setup` or import the document manually"),
			logging.String(logging.FieldImpact, "Final Cut Pro may not import the delivered document"),
		)
	case !enabled:
		logging.WarnWithContext(logger, "commandpost auto-import disabled", "bridge_auto_import_disabled",
			logging.String(logging.FieldErrorHint, "run `splice bridge setup`"),
			logging.String(logging.FieldImpact, "Final Cut Pro will not import the delivered document automatically"),
		)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
