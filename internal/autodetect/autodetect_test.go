package autodetect

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommend(t *testing.T) {
	tests := []struct {
		name string
		per  time.Duration
		cpus int
		want int
	}{
		{"very fast", time.Millisecond, 4, 8},
		{"very fast single cpu", time.Millisecond, 1, 2},
		{"very fast no cpu info", 0, 0, 2},
		{"boundary fast", 5 * time.Millisecond, 4, 4},
		{"medium", 10 * time.Millisecond, 4, 4},
		{"medium no cpu info", 10 * time.Millisecond, 0, 1},
		{"boundary slow", 20 * time.Millisecond, 4, 1},
		{"slow", time.Second, 16, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Recommend(tt.per, tt.cpus))
		})
	}
}

// steppingClock advances by step on every reading.
type steppingClock struct {
	t    time.Time
	step time.Duration
}

func (c *steppingClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func TestDetect_RemovesScratchDir(t *testing.T) {
	root := t.TempDir()
	d := New()
	d.numCPU = func() int { return 3 }

	res, err := d.Detect(root)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Parallelism, 1)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDetect_UsesMeasuredTime(t *testing.T) {
	root := t.TempDir()
	d := New()
	d.numCPU = func() int { return 3 }
	// start and end readings are 40ms apart: 10ms per delete
	clock := &steppingClock{t: time.Unix(0, 0), step: 40 * time.Millisecond}
	d.now = clock.now

	res, err := d.Detect(root)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Millisecond, res.PerDelete)
	assert.Equal(t, 3, res.Parallelism)
}

func TestDetect_PartialWriteFailureStillCleansUp(t *testing.T) {
	root := t.TempDir()
	d := New()
	calls := 0
	d.writeFile = func(name string, data []byte, perm os.FileMode) error {
		calls++
		if calls == 3 {
			return errors.New("disk full")
		}
		return os.WriteFile(name, data, perm)
	}

	_, err := d.Detect(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDetect_UnwritableRoot(t *testing.T) {
	_, err := New().Detect(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
