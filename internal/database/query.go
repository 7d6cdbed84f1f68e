package database

import (
	"database/sql"
	"time"
)

const runColumns = `
	id, started_at, root, mode, dry_run, aborted, parallelism,
	candidates, files_deleted, dirs_deleted, dry_run_skipped,
	failed_transient, failed_fatal, bytes_freed,
	throttle_wait_ms, duration_ms, free_before, free_after`

// GetRecentRuns returns the most recent runs, newest first
func (d *HistoryDB) GetRecentRuns(limit int) ([]RunRecord, error) {
	return d.queryRuns(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
}

// RunStats holds aggregated statistics
type RunStats struct {
	Runs            int
	DryRuns         int
	Aborted         int
	FilesDeleted    int64
	DirsDeleted     int64
	Failures        int64
	TotalSpaceFreed int64
	StartDate       time.Time
	EndDate         time.Time
}

// GetRunStats aggregates all runs started in the last days days
func (d *HistoryDB) GetRunStats(days int) (*RunStats, error) {
	now := time.Now().UTC()
	since := now.AddDate(0, 0, -days)

	stats := &RunStats{
		StartDate: since,
		EndDate:   now,
	}

	err := d.db.QueryRow(`
		SELECT
			COUNT(*),
			COUNT(CASE WHEN dry_run = 1 THEN 1 END),
			COUNT(CASE WHEN aborted = 1 THEN 1 END),
			COALESCE(SUM(files_deleted), 0),
			COALESCE(SUM(dirs_deleted), 0),
			COALESCE(SUM(failed_transient + failed_fatal), 0),
			COALESCE(SUM(bytes_freed), 0)
		FROM runs
		WHERE started_at >= ?
	`, since).Scan(
		&stats.Runs, &stats.DryRuns, &stats.Aborted,
		&stats.FilesDeleted, &stats.DirsDeleted, &stats.Failures,
		&stats.TotalSpaceFreed,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// DeleteOldRuns removes runs started more than olderThanDays days ago
func (d *HistoryDB) DeleteOldRuns(olderThanDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	res, err := d.db.Exec(`DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *HistoryDB) queryRuns(query string, args ...interface{}) ([]RunRecord, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		var freeBefore, freeAfter sql.NullInt64

		err := rows.Scan(
			&r.ID, &r.StartedAt, &r.Root, &r.Mode, &r.DryRun, &r.Aborted, &r.Parallelism,
			&r.Candidates, &r.FilesDeleted, &r.DirsDeleted, &r.DryRunSkipped,
			&r.FailedTransient, &r.FailedFatal, &r.BytesFreed,
			&r.ThrottleWaitMs, &r.DurationMs, &freeBefore, &freeAfter,
		)
		if err != nil {
			return nil, err
		}

		if freeBefore.Valid {
			r.FreeBefore = &freeBefore.Int64
		}
		if freeAfter.Valid {
			r.FreeAfter = &freeAfter.Int64
		}

		records = append(records, r)
	}

	return records, rows.Err()
}
