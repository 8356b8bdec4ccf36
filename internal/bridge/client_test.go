package bridge_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"splice/internal/bridge"
	"splice/internal/testsupport"
)

type fakeExecutor struct {
	outputs []string
	err     error
	calls   []string
	binary  string
}

func (f *fakeExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	f.binary = binary
	f.calls = append(f.calls, strings.Join(args, " "))
	if f.err != nil {
		return nil, f.err
	}
	if len(f.outputs) == 0 {
		return nil, nil
	}
	out := f.outputs[0]
	f.outputs = f.outputs[1:]
	return []byte(out + "\n"), nil
}

func newMacClient(t *testing.T, exec *fakeExecutor) (*bridge.Client, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("", bridge.CLIName))
	app := filepath.Join(testsupport.BaseDir(cfg), "CommandPost.app")
	if err := os.MkdirAll(app, 0o755); err != nil {
		t.Fatal(err)
	}
	client := bridge.New(cfg,
		bridge.WithExecutor(exec),
		bridge.WithPlatform("darwin"),
		bridge.WithInstallPaths(nil, []string{app}),
	)
	return client, cfg.Paths.WatchFolder
}

func TestNonMacHostIsUnavailable(t *testing.T) {
	exec := &fakeExecutor{}
	cfg := testsupport.NewConfig(t)
	client := bridge.New(cfg, bridge.WithExecutor(exec), bridge.WithPlatform("linux"))

	if _, err := client.AutoImportEnabled(context.Background()); !errors.Is(err, bridge.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	status := client.Status(context.Background())
	if status.MacOS || status.Ready() || len(status.Errors) != 1 {
		t.Fatalf("unexpected status %#v", status)
	}
	if len(exec.calls) != 0 {
		t.Fatalf("no cmdpost calls expected, got %v", exec.calls)
	}
}

func TestConfiguredPathWins(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("", bridge.CLIName))
	custom := filepath.Join(testsupport.BaseDir(cfg), "custom-cmdpost")
	testsupport.WriteFile(t, custom, []byte("#!/bin/sh\n"))
	if err := os.Chmod(custom, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg.Bridge.CmdpostPath = custom

	if got := bridge.New(cfg).Binary(); got != custom {
		t.Fatalf("binary = %q, want %q", got, custom)
	}

	cfg.Bridge.CmdpostPath = ""
	if got := bridge.New(cfg).Binary(); filepath.Base(got) != bridge.CLIName {
		t.Fatalf("expected PATH lookup, got %q", got)
	}
}

func TestAutoImportEnabled(t *testing.T) {
	cases := []struct {
		output  string
		want    bool
		wantErr error
	}{
		{output: "true", want: true},
		{output: "false", want: false},
		{output: "unknown", wantErr: bridge.ErrPluginNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.output, func(t *testing.T) {
			exec := &fakeExecutor{outputs: []string{tc.output}}
			client, _ := newMacClient(t, exec)
			got, err := client.AutoImportEnabled(context.Background())
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("AutoImportEnabled = %v, %v", got, err)
			}
			if !strings.HasPrefix(exec.calls[0], "-c ") {
				t.Fatalf("unexpected args %q", exec.calls[0])
			}
		})
	}
}

func TestEnsureWatchFolderEscapesPath(t *testing.T) {
	exec := &fakeExecutor{outputs: []string{"added"}}
	client, watch := newMacClient(t, exec)

	if err := client.EnsureWatchFolder(context.Background()); err != nil {
		t.Fatalf("EnsureWatchFolder: %v", err)
	}
	if info, err := os.Stat(watch); err != nil || !info.IsDir() {
		t.Fatalf("watch folder not created: %v", err)
	}
	if !strings.Contains(exec.calls[0], `addWatchFolder("`+watch+`")`) {
		t.Fatalf("script missing watch folder: %s", exec.calls[0])
	}

	exec.outputs = []string{"method_not_found"}
	if err := client.EnsureWatchFolder(context.Background()); err == nil || !strings.Contains(err.Error(), "manually") {
		t.Fatalf("expected manual-setup error, got %v", err)
	}
}

func TestConfigureAutoImportReportsPluginMissing(t *testing.T) {
	exec := &fakeExecutor{outputs: []string{"plugin_not_found"}}
	client, _ := newMacClient(t, exec)
	if err := client.ConfigureAutoImport(context.Background(), true); !errors.Is(err, bridge.ErrPluginNotFound) {
		t.Fatalf("expected ErrPluginNotFound, got %v", err)
	}
	if !strings.Contains(exec.calls[0], "automaticallyImport(true)") {
		t.Fatalf("unexpected script %s", exec.calls[0])
	}
}

func TestBootstrapRunsEveryStep(t *testing.T) {
	exec := &fakeExecutor{outputs: []string{"configured", "added"}}
	client, _ := newMacClient(t, exec)

	steps := client.Bootstrap(context.Background())
	if len(steps) != 3 {
		t.Fatalf("steps = %#v", steps)
	}
	for _, step := range steps {
		if !step.OK {
			t.Fatalf("step failed: %#v", step)
		}
	}

	status := client.Status(context.Background())
	if status.Ready() {
		t.Fatal("status should not be ready once the fake runs out of responses")
	}
	if !status.WatchFolderConfigured || !status.CLIAvailable || !status.AppInstalled {
		t.Fatalf("unexpected status %#v", status)
	}
}

func TestStatusReady(t *testing.T) {
	exec := &fakeExecutor{outputs: []string{"true"}}
	client, watch := newMacClient(t, exec)
	if err := os.MkdirAll(watch, 0o755); err != nil {
		t.Fatal(err)
	}
	status := client.Status(context.Background())
	if !status.Ready() {
		t.Fatalf("expected ready status, got %#v", status)
	}
}

func TestRunHonoursTimeout(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("", bridge.CLIName))
	cfg.Bridge.TimeoutSeconds = 1
	client := bridge.New(cfg,
		bridge.WithPlatform("darwin"),
		bridge.WithExecutor(blockingExecutor{}),
	)
	start := time.Now()
	if _, err := client.AutoImportEnabled(context.Background()); err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Fatal("timeout not enforced")
	}
}

type blockingExecutor struct{}

func (blockingExecutor) Run(ctx context.Context, _ string, _ []string) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
