package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// RetentionTarget selects files in Dir whose names match Pattern. Paths in
// Exclude are never removed, typically the log file currently being written.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CleanupOldLogs removes matching files last modified more than retentionDays
// ago and returns how many were removed. Zero days disables pruning.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) int {
	if retentionDays <= 0 {
		return 0
	}
	if logger == nil {
		logger = NewNop()
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	removed := 0
	for _, target := range targets {
		for _, path := range target.expired(cutoff) {
			if err := os.Remove(path); err != nil {
				WarnWithContext(logger, "log retention remove failed", "log_retention_failed",
					Path(path),
					Error(err),
					String(FieldErrorHint, "check ownership of log_dir"),
					String(FieldImpact, "old log file remains on disk"),
				)
				continue
			}
			removed++
			logger.Debug("log pruned", Path(path), String(FieldEventType, "log_pruned"))
		}
	}
	return removed
}

func (t RetentionTarget) expired(cutoff time.Time) []string {
	if t.Dir == "" {
		return nil
	}
	pattern := t.Pattern
	if pattern == "" {
		pattern = "*"
	}
	matches, err := filepath.Glob(filepath.Join(t.Dir, pattern))
	if err != nil {
		return nil
	}

	skip := make(map[string]bool, len(t.Exclude))
	for _, p := range t.Exclude {
		if abs, err := filepath.Abs(p); err == nil {
			skip[abs] = true
		}
	}

	var out []string
	for _, match := range matches {
		abs, err := filepath.Abs(match)
		if err != nil || skip[abs] {
			continue
		}
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		out = append(out, abs)
	}
	return out
}
