package fsops

// Outcome is the result of a single deletion attempt on one candidate.
type Outcome int

const (
	OutcomeDeleted Outcome = iota
	OutcomeSkippedDryRun
	// OutcomeFailedTransient means every retry hit a transient error.
	OutcomeFailedTransient
	// OutcomeFailedFatal means a non-retryable error stopped the attempt.
	OutcomeFailedFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDeleted:
		return "deleted"
	case OutcomeSkippedDryRun:
		return "dry_run"
	case OutcomeFailedTransient:
		return "failed_transient"
	case OutcomeFailedFatal:
		return "failed_fatal"
	default:
		return "unknown"
	}
}

// Failed reports whether the outcome counts as a failure.
func (o Outcome) Failed() bool {
	return o == OutcomeFailedTransient || o == OutcomeFailedFatal
}
