package metrics

import (
	"strconv"
	"time"

	"tempsweep/internal/cleanup"
)

// ObserveRun folds a finished run into the collectors.
func (m *Metrics) ObserveRun(s cleanup.Summary, finished time.Time) {
	m.RunDuration.Observe(s.Duration.Seconds())
	m.BytesFreedTotal.Add(float64(s.BytesFreed))
	m.FilesDeletedTotal.Add(float64(s.FilesDeleted))
	m.DirsDeletedTotal.Add(float64(s.DirsDeleted))
	m.DryRunSkippedTotal.Add(float64(s.DryRunSkipped))
	m.FailuresTotal.WithLabelValues("transient").Add(float64(s.FailedTransient))
	m.FailuresTotal.WithLabelValues("fatal").Add(float64(s.FailedFatal))
	for reason, n := range s.DeletedByReason {
		m.DeletedByReason.WithLabelValues(reason).Add(float64(n))
	}
	m.ListErrorsTotal.Add(float64(s.ListErrors))
	m.Candidates.Set(float64(s.Candidates))
	m.Parallelism.Set(float64(s.Parallelism))
	m.ThrottleWait.Set(s.ThrottleWait.Seconds())
	m.LastRunTimestamp.Set(float64(finished.Unix()))
	m.SetCleanupMode(s.Mode.String(), s.DryRun)
}

// SetCleanupMode resets all mode gauges to 0, then sets the active mode to 1
func (m *Metrics) SetCleanupMode(mode string, dryRun bool) {
	m.LastMode.Reset()
	m.LastMode.WithLabelValues(mode, strconv.FormatBool(dryRun)).Set(1)
}

// RecordFreeBytes records free space for phase "before" or "after".
func (m *Metrics) RecordFreeBytes(phase string, free uint64) {
	m.FreeBytes.WithLabelValues(phase).Set(float64(free))
}

// RecordAutodetect records the benchmark's average delete time.
func (m *Metrics) RecordAutodetect(perDelete time.Duration) {
	m.AutodetectDelete.Observe(perDelete.Seconds())
}
