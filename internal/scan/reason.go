package scan

import (
	"fmt"
	"time"
)

// DeletionReason captures why an entry was selected for deletion.
type DeletionReason struct {
	// Primary reasons (nil/false if not applicable)
	AgeThreshold *AgeReason
	DeleteAll    bool
}

// AgeReason indicates the entry was older than the cutoff.
type AgeReason struct {
	Cutoff        time.Time
	ActualAgeDays int // age at scan time, whole days
}

// HasReason returns true if any deletion reason applies.
func (dr DeletionReason) HasReason() bool {
	return dr.AgeThreshold != nil || dr.DeleteAll
}

// ToLogString formats the reason for log lines.
// Example: "age_threshold: 400d (cutoff=2024-06-08)"
func (dr DeletionReason) ToLogString() string {
	switch {
	case dr.DeleteAll:
		return "delete_all"
	case dr.AgeThreshold != nil:
		return fmt.Sprintf("age_threshold: %dd (cutoff=%s)",
			dr.AgeThreshold.ActualAgeDays,
			dr.AgeThreshold.Cutoff.UTC().Format("2006-01-02"),
		)
	default:
		return "unknown"
	}
}

// GetPrimaryReason returns a short label for grouping.
func (dr DeletionReason) GetPrimaryReason() string {
	switch {
	case dr.DeleteAll:
		return "delete_all"
	case dr.AgeThreshold != nil:
		return "age_threshold"
	default:
		return "unknown"
	}
}

func ageReason(modTime, cutoff, now time.Time) DeletionReason {
	return DeletionReason{
		AgeThreshold: &AgeReason{
			Cutoff:        cutoff,
			ActualAgeDays: int(now.Sub(modTime).Hours() / 24),
		},
	}
}
