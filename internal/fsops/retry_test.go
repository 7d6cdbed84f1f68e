package fsops

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBusy = errors.New("busy")

func testPolicy(sleeps *[]time.Duration) Policy {
	return Policy{
		Attempts:    DefaultAttempts,
		Delay:       DefaultDelay,
		IsTransient: func(err error) bool { return errors.Is(err, errBusy) },
		Sleep:       func(d time.Duration) { *sleeps = append(*sleeps, d) },
	}
}

func TestRetryerDelete(t *testing.T) {
	const path = "/tmp/x/file.tmp"
	busy := &fs.PathError{Op: "remove", Path: path, Err: errBusy}
	denied := &fs.PathError{Op: "remove", Path: path, Err: errors.New("is a directory")}

	tests := []struct {
		name       string
		errs       []error
		want       Outcome
		wantRemove int
		wantSleeps int
	}{
		{name: "first attempt", want: OutcomeDeleted, wantRemove: 1},
		{name: "transient then success", errs: []error{busy, busy}, want: OutcomeDeleted, wantRemove: 3, wantSleeps: 2},
		{name: "transient exhausted", errs: []error{busy, busy, busy}, want: OutcomeFailedTransient, wantRemove: 3, wantSleeps: 2},
		{name: "fatal short-circuits", errs: []error{denied}, want: OutcomeFailedFatal, wantRemove: 1},
		{name: "already gone", errs: []error{&fs.PathError{Op: "remove", Path: path, Err: fs.ErrNotExist}}, want: OutcomeDeleted, wantRemove: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &FakeDeleter{Errs: map[string][]error{path: tt.errs}}
			var sleeps []time.Duration
			r := NewRetryer(fake, testPolicy(&sleeps))

			got, err := r.Delete(path)

			assert.Equal(t, tt.want, got)
			assert.Len(t, fake.Removes(), tt.wantRemove)
			assert.Len(t, sleeps, tt.wantSleeps)
			for _, d := range sleeps {
				assert.Equal(t, DefaultDelay, d)
			}
			if tt.want.Failed() {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRetryerClearsReadOnlyBeforeEachAttempt(t *testing.T) {
	const path = "/tmp/x/ro.tmp"
	busy := &fs.PathError{Op: "remove", Path: path, Err: errBusy}
	fake := &FakeDeleter{Errs: map[string][]error{path: {busy}}}
	var sleeps []time.Duration

	_, err := NewRetryer(fake, testPolicy(&sleeps)).Delete(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"chmod:" + path, "rm:" + path, "chmod:" + path, "rm:" + path}, fake.Calls)
}

func TestRetryExhaustedWrapsLastError(t *testing.T) {
	var sleeps []time.Duration
	outcome, err := Retry(testPolicy(&sleeps), func() error { return errBusy })

	assert.Equal(t, OutcomeFailedTransient, outcome)
	assert.ErrorIs(t, err, errBusy)
	assert.Contains(t, err.Error(), "3 attempts")
}

func TestRetryZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	outcome, err := Retry(Policy{Attempts: 0, IsTransient: func(error) bool { return true }, Sleep: func(time.Duration) {}}, func() error {
		calls++
		return errBusy
	})

	assert.Equal(t, OutcomeFailedTransient, outcome)
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestOSDeleterRemovesReadOnlyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "readonly.tmp")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o400))

	outcome, err := NewRetryer(OSDeleter{}, DefaultPolicy()).Delete(path)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeleted, outcome)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestOSDeleterClearReadOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "readonly.tmp")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o400))

	require.NoError(t, OSDeleter{}.ClearReadOnly(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0o200)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "deleted", OutcomeDeleted.String())
	assert.Equal(t, "dry_run", OutcomeSkippedDryRun.String())
	assert.Equal(t, "failed_transient", OutcomeFailedTransient.String())
	assert.Equal(t, "failed_fatal", OutcomeFailedFatal.String())
	assert.False(t, OutcomeSkippedDryRun.Failed())
	assert.True(t, OutcomeFailedFatal.Failed())
}
