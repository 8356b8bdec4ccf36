package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"splice/internal/config"
	"splice/internal/daemon"
	"splice/internal/delivery"
	"splice/internal/ledger"
	"splice/internal/logging"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the background delivery daemon",
	}
	daemonCmd.AddCommand(newDaemonStartCommand(ctx))
	daemonCmd.AddCommand(newDaemonStopCommand(ctx))
	daemonCmd.AddCommand(newDaemonStatusCommand(ctx))
	daemonCmd.AddCommand(newDaemonRunCommand(ctx))
	return daemonCmd
}

func newDaemonStartCommand(ctx *commandContext) *cobra.Command {
	var detach bool
	var pollInterval time.Duration

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the delivery daemon",
		Long: "Start the delivery daemon. Without --detach it runs in the foreground until\n" +
			"interrupted; with --detach it starts in a new session and this command returns\n" +
			"once the daemon reports itself running.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !detach {
				return runDaemonForeground(cmd, ctx, pollInterval)
			}

			stdout := cmd.OutOrStdout()
			return ctx.withDaemon(ctx.cliLogger(), func(_ *config.Config, d *daemon.Daemon) error {
				pid, err := d.Start(cmd.Context(), daemon.StartOptions{
					Detach:       true,
					PollInterval: pollInterval,
					ConfigPath:   ctx.configPath,
				})
				if errors.Is(err, daemon.ErrAlreadyRunning) {
					fmt.Fprintf(stdout, "Daemon already running (pid %d)\n", pid)
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", pid)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&detach, "detach", "d", false, "Run the daemon in the background")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 0, "Delay between queue scans (defaults to daemon.poll_interval_ms)")
	return cmd
}

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var pollInterval time.Duration

	cmd := &cobra.Command{
		Use:    "run",
		Short:  "Run the daemon loop in this process",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonForeground(cmd, ctx, pollInterval)
		},
	}
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 0, "Delay between queue scans")
	return cmd
}

// runDaemonForeground owns the process until SIGINT/SIGTERM. Logs go to stderr
// and to a per-run file under log_dir.
func runDaemonForeground(cmd *cobra.Command, ctx *commandContext, pollInterval time.Duration) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := daemonLogger(cfg)
	if err != nil {
		return err
	}

	return ctx.withManager(logger, func(cfg *config.Config, mgr *delivery.Manager, store *ledger.Store) error {
		d, err := daemon.New(cfg, mgr, logger)
		if err != nil {
			return err
		}
		pruneLedger(cmd.Context(), cfg, store, logger)
		err = d.Run(cmd.Context(), daemon.Options{PollInterval: pollInterval})
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			return fmt.Errorf("%w (pid %d)", err, d.Status().PID)
		}
		return err
	})
}

func daemonLogger(cfg *config.Config) (*slog.Logger, error) {
	logPath := cfg.DaemonLogPath(time.Now())
	logger, err := logging.NewFromConfig(cfg, logPath)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "splice-daemon-*.log", Exclude: []string{logPath}},
	)
	return logger, nil
}

// pruneLedger drops job history older than the log retention window.
func pruneLedger(ctx context.Context, cfg *config.Config, store *ledger.Store, logger *slog.Logger) {
	if store == nil || cfg.Logging.RetentionDays <= 0 {
		return
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -cfg.Logging.RetentionDays)
	removed, err := store.Prune(ctx, cutoff)
	if err != nil {
		logging.WarnWithContext(logger, "ledger prune failed", "ledger_prune_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "old job history remains in the ledger"),
		)
		return
	}
	if removed > 0 {
		logger.Info("ledger pruned",
			logging.String(logging.FieldEventType, "ledger_pruned"),
			logging.Int64("events", removed),
		)
	}
}

func newDaemonStopCommand(ctx *commandContext) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the delivery daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withDaemon(ctx.cliLogger(), func(_ *config.Config, d *daemon.Daemon) error {
				pid, err := d.Stop(cmd.Context(), timeout)
				switch {
				case errors.Is(err, daemon.ErrNotRunning):
					fmt.Fprintln(stdout, "Daemon is not running")
					return nil
				case errors.Is(err, daemon.ErrStopTimeout):
					return fmt.Errorf("daemon (pid %d) did not exit; pid file removed: %w", pid, err)
				case err != nil:
					return err
				}
				fmt.Fprintf(stdout, "Daemon stopped (pid %d)\n", pid)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "How long to wait for the daemon to exit (defaults to daemon.stop_timeout_seconds)")
	return cmd
}

type daemonStatusReport struct {
	Running       bool           `json:"running"`
	PID           int            `json:"pid,omitempty"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	WatchFolder   string         `json:"watch_folder"`
	JobsProcessed int            `json:"jobs_processed"`
	LastJobAt     *time.Time     `json:"last_job_at,omitempty"`
	PendingJobs   int            `json:"pending_jobs"`
	JobCounts     map[string]int `json:"job_counts,omitempty"`
}

func newDaemonStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := ctx.cliLogger()
			return ctx.withManager(logger, func(cfg *config.Config, mgr *delivery.Manager, store *ledger.Store) error {
				d, err := daemon.New(cfg, mgr, logger)
				if err != nil {
					return err
				}
				status := d.Status()
				report := daemonStatusReport{
					Running:     status.Running,
					WatchFolder: cfg.Paths.WatchFolder,
				}
				if status.Running {
					report.PID = status.PID
				}
				if state := status.State; state != nil {
					started := state.StartedAt
					report.StartedAt = &started
					report.JobsProcessed = state.JobsProcessed
					report.LastJobAt = state.LastJobAt
					if state.WatchFolder != "" {
						report.WatchFolder = state.WatchFolder
					}
				}
				if pending, err := d.PendingCount(); err == nil {
					report.PendingJobs = pending
				}

				if store != nil {
					if counts, err := store.Counts(cmd.Context()); err == nil && len(counts) > 0 {
						report.JobCounts = counts
					}
				}

				if ctx.jsonOutput() {
					return writeJSON(cmd, report)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				if !report.Running {
					fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "not running", colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, "running (pid "+strconv.Itoa(report.PID)+")", colorize))
				}
				if report.StartedAt != nil {
					fmt.Fprintln(out, renderStatusLine("Started", statusInfo, formatTimestamp(*report.StartedAt), colorize))
				}
				fmt.Fprintln(out, renderStatusLine("Watch folder", statusInfo, report.WatchFolder, colorize))
				fmt.Fprintln(out, renderStatusLine("Jobs processed", statusInfo, strconv.Itoa(report.JobsProcessed), colorize))
				if report.LastJobAt != nil {
					fmt.Fprintln(out, renderStatusLine("Last job", statusInfo, formatTimestamp(*report.LastJobAt), colorize))
				}
				pendingKind := statusInfo
				if report.PendingJobs > 0 && !report.Running {
					pendingKind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine("Pending", pendingKind, strconv.Itoa(report.PendingJobs), colorize))
				if len(report.JobCounts) > 0 {
					rows := make([][]string, 0, len(report.JobCounts))
					for _, st := range delivery.AllStatuses() {
						if n, ok := report.JobCounts[st.String()]; ok {
							rows = append(rows, []string{jobStatusText(st, colorize), strconv.Itoa(n)})
						}
					}
					fmt.Fprintln(out)
					fmt.Fprintln(out, renderTable([]tableColumn{
						{header: "Status"},
						{header: "Jobs", align: alignRight},
					}, rows))
				}
				return nil
			})
		},
	}
}
