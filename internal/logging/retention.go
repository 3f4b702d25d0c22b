package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PruneDailyLogs removes daily log files in dir last written more than
// retentionDays ago. The file in use today is never removed. A retention of
// zero keeps everything. It returns how many files were removed.
func PruneDailyLogs(logger *slog.Logger, dir string, retentionDays int, now time.Time) int {
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	matches, err := filepath.Glob(filepath.Join(dir, LogFilePattern))
	if err != nil {
		return 0
	}
	cutoff := now.AddDate(0, 0, -retentionDays)
	current := DailyLogPath(dir, now)
	pruned := 0
	for _, path := range matches {
		if path == current {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "could not prune old log file", "log_prune_failed",
				String("path", path),
				Error(err),
				String(FieldImpact, "the old log file stays on disk"),
				String(FieldErrorHint, "check ownership of log_dir"),
			)
			continue
		}
		pruned++
	}
	if pruned > 0 && logger != nil {
		logger.Debug("old log files pruned",
			String(FieldEventType, "logs_pruned"),
			Int("file_count", pruned),
			Int("retention_days", retentionDays),
		)
	}
	return pruned
}
