package delivery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"splice/internal/config"
)

const (
	documentExt   = ".fcpxml"
	recordExt     = ".json"
	intentSuffix  = "_intent.json"
	errorSuffix   = "_error.txt"
	pidFileName   = "daemon.pid"
	stateFileName = "daemon.state"
	lockFileName  = "daemon.lock"
)

// Layout resolves every path splice reads or writes beneath the base directory.
type Layout struct {
	BaseDir     string
	JobsDir     string
	OutDir      string
	PendingDir  string
	WatchFolder string
	PIDFile     string
	StateFile   string
	LockFile    string
	LedgerFile  string
}

// NewLayout derives the layout from a base directory and an optional
// watch-folder override.
func NewLayout(baseDir, watchFolder string) Layout {
	if strings.TrimSpace(watchFolder) == "" {
		watchFolder = filepath.Join(baseDir, "watch", "fcpxml")
	}
	return Layout{
		BaseDir:     baseDir,
		JobsDir:     filepath.Join(baseDir, "jobs"),
		OutDir:      filepath.Join(baseDir, "out"),
		PendingDir:  filepath.Join(baseDir, "pending"),
		WatchFolder: watchFolder,
		PIDFile:     filepath.Join(baseDir, pidFileName),
		StateFile:   filepath.Join(baseDir, stateFileName),
		LockFile:    filepath.Join(baseDir, lockFileName),
		LedgerFile:  filepath.Join(baseDir, "ledger.db"),
	}
}

// LayoutFromConfig builds the layout for a loaded configuration.
func LayoutFromConfig(cfg *config.Config) Layout {
	layout := NewLayout(cfg.Paths.BaseDir, cfg.Paths.WatchFolder)
	layout.LedgerFile = cfg.LedgerPath()
	return layout
}

// Ensure creates the job, output, pending, and watch-folder directories.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.JobsDir, l.OutDir, l.PendingDir, l.WatchFolder} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func (l Layout) JobPath(id string) string {
	return filepath.Join(l.JobsDir, id+recordExt)
}

func (l Layout) IntentPath(id string) string {
	return filepath.Join(l.JobsDir, id+intentSuffix)
}

func (l Layout) OutPath(id string) string {
	return filepath.Join(l.OutDir, id+documentExt)
}

func (l Layout) WatchPath(id string) string {
	return filepath.Join(l.WatchFolder, id+documentExt)
}

func (l Layout) DescriptorPath(id string) string {
	return filepath.Join(l.PendingDir, id+recordExt)
}

// ErrorPath names the sidecar written when a pending descriptor cannot be
// processed. stem is the descriptor file name without its extension.
func (l Layout) ErrorPath(stem string) string {
	return filepath.Join(l.PendingDir, stem+errorSuffix)
}
