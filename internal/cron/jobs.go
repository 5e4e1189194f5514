package cron

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// HistoryPruner is the subset of the history store needed by cron jobs.
type HistoryPruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// HistoryPruneJob deletes runs older than Retention.
type HistoryPruneJob struct {
	Store        HistoryPruner
	Retention    time.Duration
	Logger       *slog.Logger
	ScheduleExpr string           // empty = default "0 3 * * *"
	Now          func() time.Time // nil = time.Now
}

// Compile-time interface check.
var _ Job = (*HistoryPruneJob)(nil)

// Name implements Job.
func (j *HistoryPruneJob) Name() string { return "history_prune" }

// Schedule implements Job.
func (j *HistoryPruneJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "0 3 * * *"
}

// Run implements Job.
func (j *HistoryPruneJob) Run(ctx context.Context) error {
	if j.Retention <= 0 {
		return nil
	}
	cutoff := now(j.Now).Add(-j.Retention)
	n, err := j.Store.Prune(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cron: history prune: %w", err)
	}
	if n > 0 {
		logger(j.Logger).Info("cron: pruned history", "count", n, "cutoff", cutoff)
	}
	return nil
}

// ReportCleanupJob removes report files older than Retention from a
// directory.
type ReportCleanupJob struct {
	Dir          string
	Retention    time.Duration
	Logger       *slog.Logger
	ScheduleExpr string           // empty = default "30 3 * * *"
	Now          func() time.Time // nil = time.Now
}

// Compile-time interface check.
var _ Job = (*ReportCleanupJob)(nil)

// Name implements Job.
func (j *ReportCleanupJob) Name() string { return "report_cleanup" }

// Schedule implements Job.
func (j *ReportCleanupJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "30 3 * * *"
}

// Run implements Job.
func (j *ReportCleanupJob) Run(ctx context.Context) error {
	if j.Retention <= 0 || j.Dir == "" {
		return nil
	}

	entries, err := os.ReadDir(j.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cron: report cleanup: %w", err)
	}

	cutoff := now(j.Now).Add(-j.Retention)
	var removed int
	for _, de := range entries {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cron: report cleanup cancelled: %w", err)
		}
		if de.IsDir() {
			continue
		}
		info, err := de.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(j.Dir, de.Name())); err != nil {
			logger(j.Logger).Warn("cron: remove report", "file", de.Name(), "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		logger(j.Logger).Info("cron: removed old reports", "count", removed)
	}
	return nil
}

func now(fn func() time.Time) time.Time {
	if fn != nil {
		return fn()
	}
	return time.Now()
}

func logger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}
