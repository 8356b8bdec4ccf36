package daemon_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"splice/internal/config"
	"splice/internal/daemon"
	"splice/internal/delivery"
	"splice/internal/logging"
	"splice/internal/testsupport"
)

func newDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *delivery.Manager) {
	t.Helper()
	mgr := testsupport.NewManager(t, cfg)
	d, err := daemon.New(cfg, mgr, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d, mgr
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStatusBeforeStart(t *testing.T) {
	d, _ := newDaemon(t, testsupport.NewConfig(t))
	status := d.Status()
	if status.Running || status.PID != 0 || status.State != nil {
		t.Fatalf("unexpected status %#v", status)
	}
}

func TestStopWhenNotRunning(t *testing.T) {
	d, mgr := newDaemon(t, testsupport.NewConfig(t))
	if _, err := d.Stop(context.Background(), time.Second); !errors.Is(err, daemon.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}

	// A stale pid from an exited process is cleaned up.
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Skipf("cannot run helper process: %v", err)
	}
	pidFile := mgr.Layout().PIDFile
	testsupport.WriteFile(t, pidFile, []byte(strconv.Itoa(cmd.Process.Pid)))
	if _, err := d.Stop(context.Background(), time.Second); !errors.Is(err, daemon.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning for stale pid, got %v", err)
	}
	if _, err := os.Stat(pidFile); !os.IsNotExist(err) {
		t.Fatal("expected stale pid file removed")
	}
}

func TestRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, mgr := newDaemon(t, cfg)
	layout := mgr.Layout()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, daemon.Options{PollInterval: 20 * time.Millisecond}) }()

	waitFor(t, "daemon running", func() bool { return d.Status().Running })

	status := d.Status()
	if status.PID != os.Getpid() {
		t.Fatalf("pid = %d, want %d", status.PID, os.Getpid())
	}
	if status.State == nil || status.State.WatchFolder != layout.WatchFolder {
		t.Fatalf("unexpected state %#v", status.State)
	}

	if _, err := d.Start(context.Background(), daemon.StartOptions{}); !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("second start: expected ErrAlreadyRunning, got %v", err)
	}
	other, _ := newDaemon(t, cfg)
	if err := other.Run(context.Background(), daemon.Options{}); !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("second run: expected ErrAlreadyRunning, got %v", err)
	}

	id, err := mgr.Submit(context.Background(), testsupport.SampleDocument(t), delivery.SubmitOptions{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitFor(t, "queued job delivered", func() bool {
		_, err := os.Stat(layout.WatchPath(id))
		return err == nil
	})
	waitFor(t, "state updated", func() bool {
		st := d.Status().State
		return st != nil && st.JobsProcessed == 1 && st.LastJobAt != nil
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	for _, path := range []string{layout.PIDFile, layout.StateFile} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("expected %s removed on exit", filepath.Base(path))
		}
	}
	if d.Status().Running {
		t.Fatal("daemon should not report running after exit")
	}
}

func TestDrainProcessesInNameOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, mgr := newDaemon(t, cfg)
	layout := mgr.Layout()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 2; i++ {
		id, err := mgr.Submit(ctx, testsupport.SampleDocument(t), delivery.SubmitOptions{})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		ids = append(ids, id)
	}
	// Second job's document disappears before the drain.
	if err := os.Remove(layout.OutPath(ids[1])); err != nil {
		t.Fatal(err)
	}

	handled, err := d.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if handled != 2 {
		t.Fatalf("handled = %d, want 2", handled)
	}
	if got := testsupport.DirNames(t, layout.PendingDir); len(got) != 0 {
		t.Fatalf("pending dir not drained: %v", got)
	}

	first, err := mgr.Job(ids[0])
	if err != nil || first.Status != delivery.StatusInjected {
		t.Fatalf("first job = %#v, %v", first, err)
	}
	second, err := mgr.Job(ids[1])
	if err != nil || second.Status != delivery.StatusFailed || second.Error != delivery.ReasonDocumentMissing {
		t.Fatalf("second job = %#v, %v", second, err)
	}
	if _, err := os.Stat(layout.StateFile); !os.IsNotExist(err) {
		t.Fatal("drain outside Run should not write daemon.state")
	}
}

func TestDrainQuarantinesBadDescriptor(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, mgr := newDaemon(t, cfg)
	layout := mgr.Layout()

	bad := filepath.Join(layout.PendingDir, "broken.json")
	testsupport.WriteFile(t, bad, []byte("{nope"))

	handled, err := d.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if handled != 1 {
		t.Fatalf("handled = %d", handled)
	}
	if _, err := os.Stat(bad); !os.IsNotExist(err) {
		t.Fatal("expected bad descriptor removed")
	}
	sidecar := testsupport.ReadFile(t, layout.ErrorPath("broken"))
	if !strings.Contains(sidecar, "broken.json") {
		t.Fatalf("unexpected error sidecar %q", sidecar)
	}
}

// startLockHolder re-executes the test binary as a process that holds the
// daemon lock, and records its pid in the pid file.
func startLockHolder(t *testing.T, layout delivery.Layout) (*exec.Cmd, <-chan struct{}) {
	t.Helper()
	cmd := exec.Command(os.Args[0])
	cmd.Env = append(os.Environ(), helperEnv+"=lock", helperLockEnv+"="+layout.LockFile)
	if err := cmd.Start(); err != nil {
		t.Fatalf("start lock holder: %v", err)
	}
	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()
	t.Cleanup(func() { _ = cmd.Process.Kill() })
	testsupport.WriteFile(t, layout.PIDFile, []byte(strconv.Itoa(cmd.Process.Pid)+"\n"))
	return cmd, exited
}

func TestStopTerminatesProcess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, mgr := newDaemon(t, cfg)

	cmd, exited := startLockHolder(t, mgr.Layout())
	waitFor(t, "lock holder running", func() bool { return d.Status().Running })

	pid, err := d.Stop(context.Background(), 2*time.Second)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if pid != cmd.Process.Pid {
		t.Fatalf("pid = %d, want %d", pid, cmd.Process.Pid)
	}
	select {
	case <-exited:
	case <-time.After(3 * time.Second):
		t.Fatal("lock holder still running after Stop")
	}
	if _, err := os.Stat(mgr.Layout().PIDFile); !os.IsNotExist(err) {
		t.Fatal("expected pid file removed")
	}
}

func TestStopLeavesUnrelatedProcessAlone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, mgr := newDaemon(t, cfg)

	// The pid file names a live process that never took the daemon lock.
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot start helper process: %v", err)
	}
	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()
	t.Cleanup(func() { _ = cmd.Process.Kill() })
	testsupport.WriteFile(t, mgr.Layout().PIDFile, []byte(strconv.Itoa(cmd.Process.Pid)+"\n"))

	if d.Status().Running {
		t.Fatal("unlocked pid must not read as running")
	}
	pid, err := d.Stop(context.Background(), time.Second)
	if !errors.Is(err, daemon.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
	if pid != cmd.Process.Pid {
		t.Fatalf("pid = %d, want %d", pid, cmd.Process.Pid)
	}
	if _, err := os.Stat(mgr.Layout().PIDFile); !os.IsNotExist(err) {
		t.Fatal("expected stale pid file removed")
	}
	select {
	case <-exited:
		t.Fatal("Stop signalled a process that does not hold the daemon lock")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestRunStopsOnSignal(t *testing.T) {
	for _, sig := range []syscall.Signal{syscall.SIGTERM, syscall.SIGINT} {
		t.Run(sig.String(), func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			d, mgr := newDaemon(t, cfg)
			layout := mgr.Layout()

			done := make(chan error, 1)
			go func() { done <- d.Run(context.Background(), daemon.Options{PollInterval: 20 * time.Millisecond}) }()
			waitFor(t, "daemon running", func() bool { return d.Status().Running })

			if err := syscall.Kill(os.Getpid(), sig); err != nil {
				t.Fatalf("signal self: %v", err)
			}
			select {
			case err := <-done:
				if err != nil {
					t.Fatalf("Run returned error: %v", err)
				}
			case <-time.After(3 * time.Second):
				t.Fatalf("Run did not return after %s", sig)
			}
			for _, path := range []string{layout.PIDFile, layout.StateFile} {
				if _, err := os.Stat(path); !os.IsNotExist(err) {
					t.Fatalf("expected %s removed on %s", filepath.Base(path), sig)
				}
			}
		})
	}
}

func TestStartDetachedThenStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, mgr := newDaemon(t, cfg)
	layout := mgr.Layout()
	cfgPath := writeConfigFile(t, cfg)
	t.Setenv(helperEnv, "daemon")

	pid, err := d.Start(context.Background(), daemon.StartOptions{Detach: true, ConfigPath: cfgPath})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		if d.Status().Running {
			_ = syscall.Kill(pid, syscall.SIGKILL)
		}
	})
	if pid == os.Getpid() {
		t.Fatal("detached daemon reported the test process pid")
	}
	status := d.Status()
	if !status.Running || status.PID != pid {
		t.Fatalf("unexpected status %#v", status)
	}

	id, err := mgr.Submit(context.Background(), testsupport.SampleDocument(t), delivery.SubmitOptions{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitFor(t, "detached daemon delivered job", func() bool {
		_, err := os.Stat(layout.WatchPath(id))
		return err == nil
	})

	stopped, err := d.Stop(context.Background(), 3*time.Second)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if stopped != pid {
		t.Fatalf("stopped pid = %d, want %d", stopped, pid)
	}
	for _, path := range []string{layout.PIDFile, layout.StateFile} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("expected %s removed after stop", filepath.Base(path))
		}
	}
	if d.Status().Running {
		t.Fatal("daemon still reported running after stop")
	}
}

func TestDrainResumesProcessingJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, mgr := newDaemon(t, cfg)
	layout := mgr.Layout()
	ctx := context.Background()

	id, err := mgr.Submit(ctx, testsupport.SampleDocument(t), delivery.SubmitOptions{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	// Simulate a daemon that saved the processing record and then died.
	job, err := mgr.Job(id)
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	job.Status = delivery.StatusProcessing
	data, err := json.Marshal(job)
	if err != nil {
		t.Fatal(err)
	}
	testsupport.WriteFile(t, layout.JobPath(id), data)

	if _, err := d.Drain(ctx); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	resumed, err := mgr.Job(id)
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	if resumed.Status != delivery.StatusInjected {
		t.Fatalf("status = %s, want injected", resumed.Status)
	}
	if _, err := os.Stat(layout.WatchPath(id)); err != nil {
		t.Fatalf("watch-folder copy missing: %v", err)
	}
	if _, err := os.Stat(layout.ErrorPath(id)); !os.IsNotExist(err) {
		t.Fatal("resumed job should not leave an error sidecar")
	}
	if got := testsupport.DirNames(t, layout.PendingDir); len(got) != 0 {
		t.Fatalf("pending dir not drained: %v", got)
	}
}

func TestStatusIgnoresPIDWithoutLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, mgr := newDaemon(t, cfg)

	// Our own pid is alive, but no daemon holds the lock.
	testsupport.WriteFile(t, mgr.Layout().PIDFile, []byte(strconv.Itoa(os.Getpid())))
	status := d.Status()
	if status.Running {
		t.Fatal("pid without lock must not read as running")
	}
	if status.PID != os.Getpid() {
		t.Fatalf("pid = %d", status.PID)
	}
}

func TestStartDetachedReportsEarlyExit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newDaemon(t, cfg)

	stub := filepath.Join(testsupport.BaseDir(cfg), "fake-splice")
	testsupport.WriteFile(t, stub, []byte("#!/bin/sh\nexit 3\n"))
	if err := os.Chmod(stub, 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := d.Start(context.Background(), daemon.StartOptions{Detach: true, Executable: stub})
	if err == nil || !strings.Contains(err.Error(), "daemon failed to start") {
		t.Fatalf("expected start failure, got %v", err)
	}
}
