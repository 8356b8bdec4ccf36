package daemon

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"splice/internal/config"
	"splice/internal/delivery"
	"splice/internal/fileutil"
	"splice/internal/logging"
)

var (
	// ErrAlreadyRunning is returned when a live daemon already owns the base directory.
	ErrAlreadyRunning = errors.New("daemon already running")
	// ErrNotRunning is returned when there is no live daemon to stop.
	ErrNotRunning = errors.New("daemon not running")
	// ErrStopTimeout is returned when the daemon outlives the stop timeout.
	ErrStopTimeout = errors.New("daemon did not stop before timeout")
)

// State is the progress snapshot a running daemon keeps in daemon.state.
type State struct {
	PID           int        `json:"pid"`
	StartedAt     time.Time  `json:"started_at"`
	WatchFolder   string     `json:"watch_folder"`
	JobsProcessed int        `json:"jobs_processed"`
	LastJobAt     *time.Time `json:"last_job_at,omitempty"`
}

// Status represents daemon runtime information as seen from any process.
type Status struct {
	Running bool
	PID     int
	State   *State
}

// Daemon drains the delivery queue for one base directory.
type Daemon struct {
	cfg     *config.Config
	layout  delivery.Layout
	manager *delivery.Manager
	logger  *slog.Logger
	now     func() time.Time

	// state is only set while Run owns the process.
	state *State
}

// New constructs a daemon bound to the manager's layout.
func New(cfg *config.Config, manager *delivery.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || manager == nil {
		return nil, errors.New("daemon requires config and delivery manager")
	}
	return &Daemon{
		cfg:     cfg,
		layout:  manager.Layout(),
		manager: manager,
		logger:  logging.NewComponentLogger(logger, "daemon"),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Status reports whether a daemon is live. Running requires the pid file, a
// process answering the zero signal, and the daemon lock being held.
func (d *Daemon) Status() Status {
	pid, err := readPID(d.layout.PIDFile)
	if err != nil {
		return Status{}
	}
	status := Status{PID: pid}
	if !processAlive(pid) || !lockHeld(d.layout.LockFile) {
		return status
	}
	status.Running = true
	var state State
	if err := fileutil.ReadJSON(d.layout.StateFile, &state); err == nil {
		status.State = &state
	}
	return status
}

// PendingCount returns the number of descriptors waiting in the queue.
func (d *Daemon) PendingCount() (int, error) {
	paths, err := d.manager.Pending()
	if err != nil {
		return 0, err
	}
	return len(paths), nil
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid file %s: %w", path, err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("invalid pid %d in %s", pid, path)
	}
	return pid, nil
}

func writePIDFile(path string, pid int) error {
	return fileutil.WriteFileAtomic(path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

// processAlive probes pid with signal 0. EPERM still means the process exists.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// lockHeld reports whether another open file description holds the daemon lock.
func lockHeld(path string) bool {
	probe := flock.New(path)
	locked, err := probe.TryLock()
	if err != nil {
		// Unable to probe; trust the pid check.
		return true
	}
	if locked {
		_ = probe.Unlock()
		return false
	}
	return true
}
