package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PruneRunLogs removes files in dir matching pattern whose modification time
// is older than retentionDays. keep is never removed. A retentionDays value of
// 0 disables pruning.
func PruneRunLogs(logger *slog.Logger, dir, pattern string, retentionDays int, keep string) int {
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return 0
	}
	if keep != "" {
		if abs, err := filepath.Abs(keep); err == nil {
			keep = abs
		}
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	removed := 0
	for _, path := range matches {
		if abs, err := filepath.Abs(path); err == nil && abs == keep {
			continue
		}
		info, err := os.Lstat(path)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String(FieldPath, path),
				Error(err),
				String(FieldErrorHint, "check file permissions and log_dir ownership"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("log pruned", String(FieldPath, path), String(FieldEventType, "log_pruned"))
		}
	}
	return removed
}
