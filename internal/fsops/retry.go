package fsops

import (
	"errors"
	"fmt"
	"io/fs"
	"time"
)

// Default retry budget for a single file delete.
const (
	DefaultAttempts = 3
	DefaultDelay    = 200 * time.Millisecond
)

// Policy bounds how an operation is retried.
type Policy struct {
	Attempts    int
	Delay       time.Duration
	IsTransient func(error) bool
	Sleep       func(time.Duration)
}

// DefaultPolicy returns the 3 x 200ms policy with the platform classifier.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:    DefaultAttempts,
		Delay:       DefaultDelay,
		IsTransient: IsTransient,
		Sleep:       time.Sleep,
	}
}

// Retry runs op until it succeeds, fails with a non-transient error, or the
// attempt budget is spent. It never panics on op errors; the returned error
// is the last one observed.
func Retry(p Policy, op func() error) (Outcome, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	classify := p.IsTransient
	if classify == nil {
		classify = IsTransient
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var last error
	for i := 1; i <= attempts; i++ {
		err := op()
		if err == nil {
			return OutcomeDeleted, nil
		}
		if !classify(err) {
			return OutcomeFailedFatal, err
		}
		last = err
		if i < attempts {
			sleep(p.Delay)
		}
	}
	return OutcomeFailedTransient, fmt.Errorf("gave up after %d attempts: %w", attempts, last)
}

// Retryer deletes single files through a Deleter with a retry policy.
type Retryer struct {
	deleter Deleter
	policy  Policy
}

// NewRetryer creates a Retryer. A nil deleter uses the real filesystem.
func NewRetryer(d Deleter, p Policy) *Retryer {
	if d == nil {
		d = OSDeleter{}
	}
	return &Retryer{deleter: d, policy: p}
}

// Delete removes one file. A file that is already gone counts as deleted.
func (r *Retryer) Delete(path string) (Outcome, error) {
	return Retry(r.policy, func() error {
		// Best effort: a failed chmod surfaces through Remove anyway.
		_ = r.deleter.ClearReadOnly(path)
		err := r.deleter.Remove(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	})
}
