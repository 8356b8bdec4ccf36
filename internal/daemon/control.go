package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"splice/internal/logging"
)

const stopPollInterval = 100 * time.Millisecond

// StartOptions controls how the daemon is launched.
type StartOptions struct {
	Detach       bool
	PollInterval time.Duration
	// Executable is the binary re-executed in detached mode. Defaults to the
	// current executable.
	Executable string
	// ConfigPath is forwarded to the detached process with --config.
	ConfigPath string
}

// Start launches the daemon. In the foreground it blocks in Run; detached it
// re-executes `<binary> daemon run` in a new session and waits until the child
// reports itself running. The returned pid is the daemon's.
func (d *Daemon) Start(ctx context.Context, opts StartOptions) (int, error) {
	if status := d.Status(); status.Running {
		return status.PID, ErrAlreadyRunning
	}
	if !opts.Detach {
		return os.Getpid(), d.Run(ctx, Options{PollInterval: opts.PollInterval})
	}

	executable := strings.TrimSpace(opts.Executable)
	if executable == "" {
		resolved, err := os.Executable()
		if err != nil {
			return 0, fmt.Errorf("resolve executable: %w", err)
		}
		executable = resolved
	}

	args := []string{"daemon", "run"}
	if cfgPath := strings.TrimSpace(opts.ConfigPath); cfgPath != "" {
		args = append(args, "--config", cfgPath)
	}
	if opts.PollInterval > 0 {
		args = append(args, "--poll-interval", opts.PollInterval.String())
	}

	proc := exec.Command(executable, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return 0, fmt.Errorf("launch daemon: %w", err)
	}
	childPID := proc.Process.Pid
	exited := make(chan error, 1)
	go func() { exited <- proc.Wait() }()

	pid, err := d.waitForStart(ctx, exited)
	if err != nil {
		return childPID, err
	}
	d.logger.Info("detached daemon started",
		logging.String(logging.FieldEventType, "daemon_detached"),
		logging.Int("pid", pid),
	)
	return pid, nil
}

func (d *Daemon) waitForStart(ctx context.Context, exited <-chan error) (int, error) {
	timeout := d.cfg.StartTimeout()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(stopPollInterval)
	defer ticker.Stop()

	for {
		if status := d.Status(); status.Running {
			return status.PID, nil
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case err := <-exited:
			if err == nil {
				err = errors.New("exited before becoming ready")
			}
			return 0, fmt.Errorf("daemon failed to start: %w", err)
		case <-deadline.C:
			return 0, fmt.Errorf("daemon failed to start: not running after %s", timeout)
		case <-ticker.C:
		}
	}
}

// Stop sends SIGTERM to the recorded daemon and waits up to timeout for it to
// exit, polling every 100ms. A pid whose process is gone or does not hold the
// daemon lock is stale: its pid file is removed and ErrNotRunning returned.
// Otherwise the pid file is removed whether or not the process exits in time.
func (d *Daemon) Stop(ctx context.Context, timeout time.Duration) (int, error) {
	pid, err := readPID(d.layout.PIDFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			_ = os.Remove(d.layout.PIDFile)
		}
		return 0, ErrNotRunning
	}
	// A live pid without the lock was reused by an unrelated process.
	if !processAlive(pid) || !lockHeld(d.layout.LockFile) {
		_ = os.Remove(d.layout.PIDFile)
		return pid, ErrNotRunning
	}
	if pid == os.Getpid() {
		return pid, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}
	defer os.Remove(d.layout.PIDFile)

	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return pid, nil
		}
		return pid, fmt.Errorf("signal daemon %d: %w", pid, err)
	}

	if timeout <= 0 {
		timeout = d.cfg.StopTimeout()
	}
	deadline := time.Now().Add(timeout)
	for processAlive(pid) {
		if time.Now().After(deadline) {
			logging.WarnWithContext(d.logger, "daemon ignored SIGTERM", "daemon_stop_timeout",
				logging.Int("pid", pid),
				logging.Duration("timeout", timeout),
				logging.String(logging.FieldErrorHint, fmt.Sprintf("kill -9 %d", pid)),
				logging.String(logging.FieldImpact, "daemon may still be running without a pid file"),
			)
			return pid, ErrStopTimeout
		}
		select {
		case <-ctx.Done():
			return pid, ctx.Err()
		case <-time.After(stopPollInterval):
		}
	}
	d.logger.Info("daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stop_requested"),
		logging.Int("pid", pid),
	)
	return pid, nil
}
