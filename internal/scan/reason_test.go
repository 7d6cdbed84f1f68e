package scan

import (
	"testing"
	"time"
)

func TestDeletionReason_HasReason(t *testing.T) {
	tests := []struct {
		name   string
		reason DeletionReason
		want   bool
	}{
		{
			name:   "no reasons",
			reason: DeletionReason{},
			want:   false,
		},
		{
			name: "age only",
			reason: DeletionReason{
				AgeThreshold: &AgeReason{Cutoff: time.Now(), ActualAgeDays: 10},
			},
			want: true,
		},
		{
			name:   "delete all",
			reason: DeletionReason{DeleteAll: true},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.reason.HasReason(); got != tt.want {
				t.Errorf("HasReason() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeletionReason_ToLogString(t *testing.T) {
	cutoff := time.Date(2024, 6, 8, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		reason DeletionReason
		want   string
	}{
		{
			name:   "empty",
			reason: DeletionReason{},
			want:   "unknown",
		},
		{
			name:   "age",
			reason: DeletionReason{AgeThreshold: &AgeReason{Cutoff: cutoff, ActualAgeDays: 400}},
			want:   "age_threshold: 400d (cutoff=2024-06-08)",
		},
		{
			name:   "delete all",
			reason: DeletionReason{DeleteAll: true},
			want:   "delete_all",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.reason.ToLogString(); got != tt.want {
				t.Errorf("ToLogString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeletionReason_GetPrimaryReason(t *testing.T) {
	if got := (DeletionReason{DeleteAll: true}).GetPrimaryReason(); got != "delete_all" {
		t.Errorf("got %q", got)
	}
	if got := (DeletionReason{AgeThreshold: &AgeReason{}}).GetPrimaryReason(); got != "age_threshold" {
		t.Errorf("got %q", got)
	}
	if got := (DeletionReason{}).GetPrimaryReason(); got != "unknown" {
		t.Errorf("got %q", got)
	}
}

func TestAgeReason_WholeDays(t *testing.T) {
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	r := ageReason(now.Add(-49*time.Hour), now.Add(-24*time.Hour), now)
	if r.AgeThreshold == nil || r.AgeThreshold.ActualAgeDays != 2 {
		t.Fatalf("unexpected reason: %+v", r)
	}
	if !r.AgeThreshold.Cutoff.Equal(now.Add(-24 * time.Hour)) {
		t.Errorf("Cutoff = %v", r.AgeThreshold.Cutoff)
	}
}
