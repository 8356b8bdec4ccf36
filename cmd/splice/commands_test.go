package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"splice/internal/delivery"
	"splice/internal/intent"
	"splice/internal/rational"
	"splice/internal/testsupport"
)

func TestCompileToStdout(t *testing.T) {
	env := setupCLITestEnv(t)
	intentPath := writeIntentFile(t, env)

	out, _, err := runCLI(t, []string{"compile", intentPath}, env.configPath)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	requireContains(t, out, "<!DOCTYPE fcpxml>")
	requireContains(t, out, `<project name="Sample">`)
}

func TestCompileFromStdinJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.baseDir, "out", "sample.fcpxml")

	out, _, err := runCLIWithInput(t, []string{"--json", "compile", "-", "-o", target}, env.configPath, testsupport.SampleIntentJSON)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	var report compileReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if report.Output != target {
		t.Fatalf("output = %q, want %q", report.Output, target)
	}
	if report.Document != "" {
		t.Fatal("document should be omitted when written to a file")
	}
	requireContains(t, testsupport.ReadFile(t, target), "<fcpxml version=")
}

func TestCompileRejectsInvalidIntent(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLIWithInput(t, []string{"compile", "-"}, env.configPath, `{"assets": [{"id": "r1", "path": "/media/a.mov"}]}`)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if code := exitCode(err); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}

	// Unreadable input is an ordinary failure.
	_, _, err = runCLI(t, []string{"compile", filepath.Join(env.baseDir, "missing.json")}, env.configPath)
	if err == nil || exitCode(err) != 1 {
		t.Fatalf("missing intent: err = %v, exit code = %d", err, exitCode(err))
	}
}

func TestInjectOneShot(t *testing.T) {
	env := setupCLITestEnv(t)
	intentPath := writeIntentFile(t, env)

	out, _, err := runCLI(t, []string{"inject", intentPath, "--instruction", "rough cut"}, env.configPath)
	if err != nil {
		t.Fatalf("inject: %v", err)
	}
	requireContains(t, out, "Job ID: ")
	requireContains(t, out, "Delivered to watch folder: ")

	delivered := testsupport.DirNames(t, env.cfg.Paths.WatchFolder)
	if len(delivered) != 1 || !strings.HasSuffix(delivered[0], ".fcpxml") {
		t.Fatalf("watch folder = %v, want one document", delivered)
	}

	out, _, err = runCLI(t, []string{"--json", "jobs", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	var jobs []delivery.Job
	if err := json.Unmarshal([]byte(out), &jobs); err != nil {
		t.Fatalf("decode jobs: %v\n%s", err, out)
	}
	if len(jobs) != 1 || jobs[0].Status != delivery.StatusInjected || jobs[0].Instruction != "rough cut" {
		t.Fatalf("jobs = %+v", jobs)
	}
}

func TestInjectAsyncQueuesJob(t *testing.T) {
	env := setupCLITestEnv(t)
	intentPath := writeIntentFile(t, env)

	out, _, err := runCLI(t, []string{"inject", intentPath, "--async"}, env.configPath)
	if err != nil {
		t.Fatalf("inject --async: %v", err)
	}
	requireContains(t, out, "Job queued: ")
	requireContains(t, out, "Daemon is not running")
	id := strings.TrimSpace(strings.SplitN(strings.TrimPrefix(out, "Job queued: "), "\n", 2)[0])

	if names := testsupport.DirNames(t, env.cfg.Paths.WatchFolder); len(names) != 0 {
		t.Fatalf("watch folder = %v, want empty before the daemon runs", names)
	}
	pending := testsupport.DirNames(t, filepath.Join(env.cfg.Paths.BaseDir, "pending"))
	if len(pending) != 1 || pending[0] != id+".json" {
		t.Fatalf("pending = %v, want %s.json", pending, id)
	}

	out, _, err = runCLI(t, []string{"jobs", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	requireContains(t, out, id)
	requireContains(t, out, "pending")

	out, _, err = runCLI(t, []string{"--json", "jobs", "show", id}, env.configPath)
	if err != nil {
		t.Fatalf("jobs show: %v", err)
	}
	var detail struct {
		ID      string `json:"job_id"`
		Status  string `json:"status"`
		History []struct {
			Status string `json:"status"`
		} `json:"history"`
	}
	if err := json.Unmarshal([]byte(out), &detail); err != nil {
		t.Fatalf("decode job: %v\n%s", err, out)
	}
	if detail.ID != id || detail.Status != "pending" {
		t.Fatalf("detail = %+v", detail)
	}
	if len(detail.History) != 1 || detail.History[0].Status != "pending" {
		t.Fatalf("history = %+v, want one pending event", detail.History)
	}

	out, _, err = runCLI(t, []string{"--json", "daemon", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("daemon status: %v", err)
	}
	var status daemonStatusReport
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if status.Running || status.PendingJobs != 1 {
		t.Fatalf("status = %+v, want stopped with one pending job", status)
	}
}

func TestJobsShowUnknown(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"jobs", "show", "missing"}, env.configPath)
	if err == nil {
		t.Fatal("expected error for unknown job")
	}
}

func TestDaemonStopAndStatusWhenNotRunning(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"daemon", "stop"}, env.configPath)
	if err != nil {
		t.Fatalf("daemon stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")

	out, _, err = runCLI(t, []string{"daemon", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("daemon status: %v", err)
	}
	requireContains(t, out, "not running")
	requireContains(t, out, env.cfg.Paths.WatchFolder)
}

func TestSimpleCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	clipA := filepath.Join(env.baseDir, "media", "a.mov")
	clipB := filepath.Join(env.baseDir, "media", "b.wav")
	testsupport.WriteFile(t, clipA, []byte("video"))
	testsupport.WriteFile(t, clipB, []byte("audio"))

	out, stderr, err := runCLI(t, []string{"simple", clipA, clipB, "--name", "Assembly", "--print-intent"}, env.configPath)
	if err != nil {
		t.Fatalf("simple: %v", err)
	}
	requireContains(t, out, `<project name="Assembly">`)
	requireContains(t, stderr, `"name": "Assembly"`)
}

func TestSimpleCommandMissingMedia(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"simple", filepath.Join(env.baseDir, "nope.mov")}, env.configPath)
	if err == nil {
		t.Fatal("expected error for missing media")
	}
	requireContains(t, err.Error(), "media files not found")
}

func TestSimpleCommandInject(t *testing.T) {
	env := setupCLITestEnv(t)
	clip := filepath.Join(env.baseDir, "media", "a.mov")
	testsupport.WriteFile(t, clip, []byte("video"))

	out, _, err := runCLI(t, []string{"simple", clip, "--inject"}, env.configPath)
	if err != nil {
		t.Fatalf("simple --inject: %v", err)
	}
	requireContains(t, out, "Job ID: ")
	if names := testsupport.DirNames(t, env.cfg.Paths.WatchFolder); len(names) != 1 {
		t.Fatalf("watch folder = %v, want one document", names)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.cfg.Paths.BaseDir)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, env.configPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, env.configPath); err == nil {
		t.Fatal("expected error when config exists without --overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, env.configPath); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestBridgeStatusOffMac(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("bridge status differs on macOS")
	}
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"--json", "bridge", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("bridge status: %v", err)
	}
	var status struct {
		MacOS  bool     `json:"macos"`
		Ready  bool     `json:"ready"`
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if status.MacOS || status.Ready || len(status.Errors) == 0 {
		t.Fatalf("status = %+v, want unavailable", status)
	}
}

func TestInjectCustomWatchFolderWithoutLedger(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithWatchFolder("editor-watch"), testsupport.WithoutLedger())
	intentPath := writeIntentFile(t, env)

	out, _, err := runCLI(t, []string{"--json", "inject", intentPath, "--no-retain"}, env.configPath)
	if err != nil {
		t.Fatalf("inject: %v", err)
	}
	var report injectReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if filepath.Dir(report.Path) != filepath.Join(env.baseDir, "editor-watch") {
		t.Fatalf("delivered path = %s, want inside editor-watch", report.Path)
	}
	if names := testsupport.DirNames(t, filepath.Join(env.cfg.Paths.BaseDir, "out")); len(names) != 0 {
		t.Fatalf("out = %v, want empty with --no-retain", names)
	}
	if _, err := os.Stat(env.cfg.LedgerPath()); !os.IsNotExist(err) {
		t.Fatalf("ledger should not be created when disabled: %v", err)
	}

	out, _, err = runCLI(t, []string{"--json", "jobs", "show", report.JobID}, env.configPath)
	if err != nil {
		t.Fatalf("jobs show: %v", err)
	}
	if strings.Contains(out, `"history"`) {
		t.Fatalf("history should be omitted without a ledger:\n%s", out)
	}
}

func TestExitCodeClassifiesErrors(t *testing.T) {
	_, parseErr := rational.Parse("12/0s")
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"schema", &intent.SchemaError{Field: "version", Reason: "must be \"1\""}, 2},
		{"wrapped rational", fmt.Errorf("segment offset: %w", parseErr), 2},
		{"plain", errors.New("disk full"), 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCode(tc.err); got != tc.want {
				t.Fatalf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}
