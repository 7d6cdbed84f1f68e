package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tempsweep/internal/autodetect"
	"tempsweep/internal/cleanup"
	"tempsweep/internal/config"
	"tempsweep/internal/database"
	"tempsweep/internal/disk"
	"tempsweep/internal/fsops"
	"tempsweep/internal/logging"
	"tempsweep/internal/metrics"
	"tempsweep/internal/safety"
)

// Runner wires one invocation together. Optional sinks are skipped when nil.
type Runner struct {
	Logger    *logging.Logger
	Metrics   *metrics.Metrics
	History   *database.HistoryDB
	Validator *safety.Validator
	Detector  *autodetect.Detector
	Deleter   fsops.Deleter // nil = real filesystem

	now  func() time.Time
	free func(string) (disk.Usage, error)
}

// NewRunner creates a runner with the real validator, detector and clock.
func NewRunner(logger *logging.Logger) *Runner {
	return &Runner{
		Logger:    logger,
		Validator: safety.NewValidator(nil),
		Detector:  autodetect.New(),
		now:       time.Now,
		free:      disk.GetDiskUsage,
	}
}

// RunOnce performs a single cleanup of cfg.Path. cfg must already be
// validated. Per-item failures are reported in the summary; the error is set
// only when the run was refused or interrupted.
func (r *Runner) RunOnce(ctx context.Context, cfg *config.Config) (cleanup.Summary, error) {
	if cfg == nil {
		return cleanup.Summary{}, errors.New("nil config")
	}
	logger := r.Logger

	root, err := r.Validator.ValidateRoot(cfg.Path)
	if err != nil {
		return cleanup.Summary{}, fmt.Errorf("refusing to clean %s: %w", cfg.Path, err)
	}
	cfg.Path = root

	select {
	case <-ctx.Done():
		return cleanup.Summary{}, ctx.Err()
	default:
	}

	logger.Info("Temp path: %s", root)
	if cfg.DryRun() {
		logger.Info("Mode: dry run (nothing will be deleted, pass --run to delete)")
	} else {
		logger.Info("Mode: execute")
	}
	if cfg.DeleteAll {
		logger.Warn("Delete-all: every entry directly under %s will be removed regardless of age", root)
	}

	freeBefore := r.readFree(root, "before")

	parallelism := r.parallelism(cfg, root)

	if cfg.ThrottleBytes > 0 {
		logger.Info("Throttling: %d bytes/sec", cfg.ThrottleBytes)
	}

	engine := cleanup.NewEngine(logger)
	if r.Deleter != nil {
		engine.SetDeleter(r.Deleter)
	}
	policy := fsops.DefaultPolicy()
	policy.Attempts = cfg.Retry.Attempts
	policy.Delay = cfg.RetryDelay()
	engine.SetRetryPolicy(policy)

	started := r.now()
	summary, runErr := engine.Run(ctx, cfg.Request(started, parallelism))
	aborted := runErr != nil
	if aborted {
		logger.Warn("Run interrupted: %v", runErr)
	}

	freeAfter := r.readFree(root, "after")

	if r.Metrics != nil {
		r.Metrics.ObserveRun(summary, r.now())
		if cfg.MetricsFile != "" {
			if err := r.Metrics.WriteTextfile(cfg.MetricsFile); err != nil {
				logger.Error("Failed to write metrics: %v", err)
			}
		}
	}

	if r.History != nil {
		rec := database.NewRunRecord(root, started, summary, aborted)
		rec.FreeBefore = freeBefore
		rec.FreeAfter = freeAfter
		if _, err := r.History.RecordRun(rec); err != nil {
			// Don't fail the run if the audit write fails
			logger.Error("Failed to record run history: %v", err)
		}
	}

	logSummary(logger, summary)
	return summary, runErr
}

// parallelism resolves the worker count: an explicit choice wins, then the
// benchmark when enabled, then 1. A dry run never benchmarks because the
// scratch directory would touch the root.
func (r *Runner) parallelism(cfg *config.Config, root string) int {
	logger := r.Logger
	if cfg.ParallelChosen() {
		if cfg.Parallel > 1 {
			logger.Info("Parallelism: %d", cfg.Parallel)
		}
		return cfg.Parallel
	}
	if !cfg.AutoDetect {
		return 1
	}
	if cfg.DryRun() {
		logger.Verbose("Auto-detect skipped in dry run")
		return 1
	}

	res, err := r.Detector.Detect(root)
	if err != nil {
		logger.Error("Auto-detect failed, running sequentially: %v", err)
		return 1
	}
	if r.Metrics != nil {
		r.Metrics.RecordAutodetect(res.PerDelete)
	}
	logger.Verbose("Auto-detect: %s per delete", res.PerDelete)
	logger.Info("Parallelism: %d", res.Parallelism)
	return res.Parallelism
}

func (r *Runner) readFree(root, phase string) *int64 {
	u, err := r.free(root)
	if err != nil {
		r.Logger.Verbose("Free space unavailable for %s: %v", root, err)
		return nil
	}
	free := int64(u.FreeBytes)
	r.Logger.Info("Free space %s: %s (%.1f%% used)", phase, disk.FormatBytes(free), u.UsedPercent())
	if r.Metrics != nil {
		r.Metrics.RecordFreeBytes(phase, u.FreeBytes)
	}
	return &free
}

func logSummary(logger *logging.Logger, s cleanup.Summary) {
	if s.DryRun {
		logger.Info("Dry run complete: %d candidates, %d would be deleted, %d failed, in %s",
			s.Candidates, s.DryRunSkipped, s.Failures(), s.Duration.Round(time.Millisecond))
		return
	}
	logger.Info("Cleanup complete: %d files and %d directories deleted, %s freed, %d failed (%d transient, %d fatal), in %s",
		s.FilesDeleted, s.DirsDeleted, disk.FormatBytes(s.BytesFreed),
		s.Failures(), s.FailedTransient, s.FailedFatal, s.Duration.Round(time.Millisecond))
	if s.ListErrors > 0 {
		logger.Warn("%d directories could not be listed and were skipped", s.ListErrors)
	}
	if s.ThrottleWait > 0 {
		logger.Info("Throttle wait: %s", s.ThrottleWait.Round(time.Millisecond))
	}
}
