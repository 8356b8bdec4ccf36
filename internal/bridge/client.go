package bridge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"splice/internal/config"
)

// CLIName is the CommandPost command-line helper.
const CLIName = "cmdpost"

const defaultTimeout = 10 * time.Second

var (
	// ErrUnavailable is returned when CommandPost cannot be reached from this host.
	ErrUnavailable = errors.New("commandpost bridge unavailable")
	// ErrPluginNotFound is returned when CommandPost lacks the FCPXML watch-folder plugin.
	ErrPluginNotFound = errors.New("fcpxml watch folder plugin not found in CommandPost")
)

// Executor abstracts command execution for the bridge.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// commandExecutor executes commands using os/exec.
type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	return cmd.Output()
}

// Client drives cmdpost for one watch-folder.
type Client struct {
	binary      string
	watchFolder string
	timeout     time.Duration
	exec        Executor
	goos        string
	knownPaths  []string
	appPaths    []string
}

// Option customizes a Client.
type Option func(*Client)

// WithExecutor replaces command execution, mainly for tests.
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithPlatform overrides the detected operating system.
func WithPlatform(goos string) Option {
	return func(c *Client) {
		c.goos = goos
	}
}

// WithInstallPaths overrides the locations searched for cmdpost and the
// CommandPost application bundle.
func WithInstallPaths(cliPaths, appPaths []string) Option {
	return func(c *Client) {
		c.knownPaths = cliPaths
		c.appPaths = appPaths
	}
}

// New builds a client from configuration. The cmdpost binary is resolved from
// the configured path, then PATH, then the known install locations.
func New(cfg *config.Config, opts ...Option) *Client {
	home, _ := os.UserHomeDir()
	c := &Client{
		exec: commandExecutor{},
		goos: runtime.GOOS,
		knownPaths: []string{
			"/Applications/CommandPost.app/Contents/Resources/extensions/hs/cmdpost",
			"/usr/local/bin/cmdpost",
			filepath.Join(home, "Applications/CommandPost.app/Contents/Resources/extensions/hs/cmdpost"),
		},
		appPaths: []string{
			"/Applications/CommandPost.app",
			filepath.Join(home, "Applications/CommandPost.app"),
		},
		timeout: defaultTimeout,
	}
	if cfg != nil {
		c.watchFolder = cfg.Paths.WatchFolder
		if timeout := cfg.BridgeTimeout(); timeout > 0 {
			c.timeout = timeout
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	configured := ""
	if cfg != nil {
		configured = cfg.Bridge.CmdpostPath
	}
	c.binary = c.findCLI(configured)
	return c
}

// Binary returns the resolved cmdpost path, or "" when none was found.
func (c *Client) Binary() string {
	return c.binary
}

// WatchFolder returns the folder registered with CommandPost.
func (c *Client) WatchFolder() string {
	return c.watchFolder
}

func (c *Client) findCLI(configured string) string {
	if configured = strings.TrimSpace(configured); configured != "" {
		if isExecutable(configured) {
			return configured
		}
		return ""
	}
	if path, err := exec.LookPath(CLIName); err == nil {
		return path
	}
	for _, path := range c.knownPaths {
		if isExecutable(path) {
			return path
		}
	}
	return ""
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return unix.Access(path, unix.X_OK) == nil
}

func (c *Client) macOS() bool {
	return c.goos == "darwin"
}

func (c *Client) appInstalled() bool {
	for _, path := range c.appPaths {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return true
		}
	}
	return false
}

// available reports why the bridge cannot be used, or nil.
func (c *Client) available() error {
	if !c.macOS() {
		return fmt.Errorf("%w: CommandPost is only available on macOS", ErrUnavailable)
	}
	if c.binary == "" {
		return fmt.Errorf("%w: cmdpost CLI not found", ErrUnavailable)
	}
	return nil
}

// run executes a Lua snippet through cmdpost and returns trimmed stdout.
func (c *Client) run(ctx context.Context, script string) (string, error) {
	if err := c.available(); err != nil {
		return "", err
	}
	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.exec.Run(runCtx, c.binary, []string{"-c", script})
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("cmdpost timed out after %s", c.timeout)
		}
		return "", fmt.Errorf("cmdpost: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
