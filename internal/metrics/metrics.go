package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tempsweep"

// Metrics holds the collectors for one process. Each instance owns its
// registry so runs and tests never collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	RunDuration        prometheus.Histogram
	BytesFreedTotal    prometheus.Counter
	FilesDeletedTotal  prometheus.Counter
	DirsDeletedTotal   prometheus.Counter
	DryRunSkippedTotal prometheus.Counter
	FailuresTotal      *prometheus.CounterVec // kind: transient, fatal
	DeletedByReason    *prometheus.CounterVec // reason: age_threshold, delete_all
	ListErrorsTotal    prometheus.Counter
	Candidates         prometheus.Gauge
	Parallelism        prometheus.Gauge
	ThrottleWait       prometheus.Gauge
	FreeBytes          *prometheus.GaugeVec // phase: before, after
	LastRunTimestamp   prometheus.Gauge
	LastMode           *prometheus.GaugeVec
	AutodetectDelete   prometheus.Histogram
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		RunDuration: NewDurationHistogram(
			"run_duration_seconds",
			"Duration of cleanup runs in seconds.",
			DurationBuckets,
		),
		BytesFreedTotal: NewCounter(
			"bytes_freed_total",
			"Total bytes freed by deleted files.",
		),
		FilesDeletedTotal: NewCounter(
			"files_deleted_total",
			"Total number of files deleted.",
		),
		DirsDeletedTotal: NewCounter(
			"dirs_deleted_total",
			"Total number of directories removed.",
		),
		DryRunSkippedTotal: NewCounter(
			"dry_run_skipped_total",
			"Total number of entries reported but left in place by dry-run.",
		),
		FailuresTotal: NewCounterVec(
			"failures_total",
			"Total number of entries that could not be deleted.",
			[]string{"kind"},
		),
		DeletedByReason: NewCounterVec(
			"deleted_by_reason_total",
			"Total number of entries deleted, by selection reason.",
			[]string{"reason"},
		),
		ListErrorsTotal: NewCounter(
			"list_errors_total",
			"Total number of directories skipped because they could not be listed.",
		),
		Candidates: NewGauge(
			"last_run_candidates",
			"Number of candidates selected by the last run.",
		),
		Parallelism: NewGauge(
			"last_run_parallelism",
			"Worker count used by the last run.",
		),
		ThrottleWait: NewGauge(
			"last_run_throttle_wait_seconds",
			"Time spent waiting on the byte throttle during the last run.",
		),
		FreeBytes: NewGaugeVec(
			"free_bytes",
			"Free bytes on the filesystem holding the root.",
			[]string{"phase"},
		),
		LastRunTimestamp: NewGauge(
			"last_run_timestamp_seconds",
			"Timestamp of the last run (Unix epoch seconds).",
		),
		LastMode: NewGaugeVec(
			"last_run_mode",
			"Mode of the last run (1 for the active mode).",
			[]string{"mode", "dry_run"},
		),
		AutodetectDelete: NewDurationHistogram(
			"autodetect_delete_seconds",
			"Average single-delete time measured by the parallelism benchmark.",
			DeleteBuckets,
		),
	}

	m.registry.MustRegister(
		m.RunDuration,
		m.BytesFreedTotal,
		m.FilesDeletedTotal,
		m.DirsDeletedTotal,
		m.DryRunSkippedTotal,
		m.FailuresTotal,
		m.DeletedByReason,
		m.ListErrorsTotal,
		m.Candidates,
		m.Parallelism,
		m.ThrottleWait,
		m.FreeBytes,
		m.LastRunTimestamp,
		m.LastMode,
		m.AutodetectDelete,
	)
	return m
}

// Registry exposes the gatherer, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in the text exposition format, suitable
// for the node_exporter textfile collector. The write is atomic.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
