package cleanup

import (
	"fmt"
	"time"

	"tempsweep/internal/fsops"
)

// Mode selects how candidates are chosen.
type Mode int

const (
	// ModeAgeFiltered deletes files older than the cutoff and prunes empty
	// directories bottom-up.
	ModeAgeFiltered Mode = iota
	// ModeDeleteAll removes every immediate child of the root regardless of age.
	ModeDeleteAll
)

func (m Mode) String() string {
	if m == ModeDeleteAll {
		return "delete_all"
	}
	return "age_filtered"
}

// Request drives one cleanup run. It is built once and never modified.
type Request struct {
	Root          string
	Cutoff        time.Time
	Mode          Mode
	DryRun        bool
	Parallelism   int
	ThrottleBytes int64 // bytes per second, 0 = unlimited
	Exclude       []string
}

func (r Request) validate() error {
	if r.Root == "" {
		return fmt.Errorf("%w: empty root", ErrInvalidRequest)
	}
	if r.Parallelism < 1 {
		return fmt.Errorf("%w: parallelism %d", ErrInvalidRequest, r.Parallelism)
	}
	if r.ThrottleBytes < 0 {
		return fmt.Errorf("%w: throttle %d", ErrInvalidRequest, r.ThrottleBytes)
	}
	return nil
}

// Summary aggregates outcome counts for one run.
type Summary struct {
	Mode            Mode
	DryRun          bool
	Parallelism     int
	Candidates      int
	FilesDeleted    int
	DirsDeleted     int
	DryRunSkipped   int
	FailedTransient int
	FailedFatal     int
	BytesFreed      int64
	// DeletedByReason counts deleted entries by their primary selection
	// reason. Pruned directories carry no reason and are not included.
	DeletedByReason map[string]int
	// ListErrors counts directories skipped because they could not be read.
	ListErrors      int
	ThrottleWait    time.Duration
	Duration        time.Duration
}

// Failures returns the total number of failed candidates.
func (s Summary) Failures() int {
	return s.FailedTransient + s.FailedFatal
}

// tally is the per-run mutable counter set shared by workers.
type tally struct {
	files, dirs, dry, transient, fatal int
	bytes                              int64
	reasons                            map[string]int
}

func (t *tally) reason(label string) {
	if t.reasons == nil {
		t.reasons = make(map[string]int)
	}
	t.reasons[label]++
}

func (t *tally) add(o fsops.Outcome, isDir bool, size int64) {
	switch o {
	case fsops.OutcomeDeleted:
		if isDir {
			t.dirs++
		} else {
			t.files++
			t.bytes += size
		}
	case fsops.OutcomeSkippedDryRun:
		t.dry++
	case fsops.OutcomeFailedTransient:
		t.transient++
	case fsops.OutcomeFailedFatal:
		t.fatal++
	}
}
