package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"splice/internal/delivery"
	"splice/internal/fileutil"
	"splice/internal/logging"
)

const lockRetryDelay = 50 * time.Millisecond

// Options configures the run loop.
type Options struct {
	// PollInterval overrides the configured delay between queue drains.
	PollInterval time.Duration
}

// Run owns the process until ctx is cancelled or SIGINT/SIGTERM arrives. It
// takes the daemon lock, advertises the pid and state files, and drains the
// queue every poll interval. Both files are removed on exit.
func (d *Daemon) Run(ctx context.Context, opts Options) error {
	if d.Status().Running {
		return ErrAlreadyRunning
	}

	// Signals are caught before the pid file makes this process visible to Stop.
	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lock := flock.New(d.layout.LockFile)
	lockCtx, cancelLock := context.WithTimeout(signalCtx, 10*lockRetryDelay)
	locked, err := lock.TryLockContext(lockCtx, lockRetryDelay)
	cancelLock()
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(err))
		}
	}()

	pid := os.Getpid()
	if err := writePIDFile(d.layout.PIDFile, pid); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(d.layout.PIDFile)

	d.state = &State{
		PID:         pid,
		StartedAt:   d.now(),
		WatchFolder: d.layout.WatchFolder,
	}
	defer func() { d.state = nil }()
	if err := d.saveState(); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	defer os.Remove(d.layout.StateFile)

	interval := opts.PollInterval
	if interval <= 0 {
		interval = d.cfg.PollInterval()
	}
	d.logger.Info("splice daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.Int("pid", pid),
		logging.String("watch_folder", d.layout.WatchFolder),
		logging.Duration("poll_interval", interval),
	)

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-signalCtx.Done():
			d.logger.Info("splice daemon shutting down",
				logging.String(logging.FieldEventType, "daemon_stopped"),
				logging.Int("jobs_processed", d.state.JobsProcessed),
			)
			return nil
		case <-timer.C:
		}
		if _, err := d.Drain(signalCtx); err != nil {
			logging.WarnWithContext(d.logger, "queue drain failed", "queue_drain_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on "+d.layout.PendingDir),
				logging.String(logging.FieldImpact, "pending jobs wait for the next poll"),
			)
		}
		timer.Reset(interval)
	}
}

// Drain processes every pending descriptor in name order and returns how many
// were handled. Removing the descriptor is the commit point. A descriptor that
// cannot be processed leaves a <stem>_error.txt sidecar and is removed anyway.
func (d *Daemon) Drain(ctx context.Context) (int, error) {
	paths, err := d.manager.Pending()
	if err != nil {
		return 0, err
	}

	handled := 0
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		if err := d.process(ctx, path); err != nil {
			d.quarantine(path, err)
		}
		handled++
	}
	return handled, nil
}

func (d *Daemon) process(ctx context.Context, path string) error {
	descriptor, err := delivery.ReadDescriptor(path)
	if err != nil {
		return err
	}
	job, err := d.manager.Deliver(ctx, descriptor)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove descriptor: %w", err)
	}

	if d.state != nil {
		at := d.now()
		d.state.JobsProcessed++
		d.state.LastJobAt = &at
		if err := d.saveState(); err != nil {
			d.logger.Debug("state update failed", logging.Error(err))
		}
	}
	logging.WithContext(logging.WithJobID(ctx, job.ID), d.logger).Info("queued job processed",
		logging.String(logging.FieldEventType, "job_processed"),
		logging.String("status", job.Status.String()),
	)
	return nil
}

func (d *Daemon) quarantine(path string, cause error) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	errorPath := d.layout.ErrorPath(stem)
	logging.WarnWithContext(d.logger, "pending job failed", "pending_job_failed",
		logging.Path(path),
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, "see "+errorPath),
		logging.String(logging.FieldImpact, "descriptor removed from the queue"),
	)
	if err := fileutil.WriteFileAtomic(errorPath, []byte(cause.Error()+"\n"), 0o644); err != nil {
		d.logger.Debug("error sidecar not written", logging.Error(err))
	}
	if err := fileutil.RemoveIfExists(path); err != nil {
		d.logger.Debug("descriptor removal failed", logging.Error(err))
	}
}

func (d *Daemon) saveState() error {
	return fileutil.WriteJSONAtomic(d.layout.StateFile, d.state)
}
