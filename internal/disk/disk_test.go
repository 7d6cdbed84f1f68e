package disk

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsedPercent(t *testing.T) {
	assert.Equal(t, 0.0, Usage{}.UsedPercent())
	assert.InDelta(t, 75.0, Usage{TotalBytes: 400, FreeBytes: 100}.UsedPercent(), 0.001)
	assert.Equal(t, 0.0, Usage{TotalBytes: 10, FreeBytes: 20}.UsedPercent())
}

func TestGetDiskUsage(t *testing.T) {
	u, err := GetDiskUsage(t.TempDir())
	if errors.Is(err, ErrUnsupported) {
		t.Skip(err)
	}
	require.NoError(t, err)
	assert.Greater(t, u.TotalBytes, uint64(0))
	assert.LessOrEqual(t, u.FreeBytes, u.TotalBytes)
}

func TestGetDiskUsage_Missing(t *testing.T) {
	_, err := GetDiskUsage(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 << 40, "3.0 TB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.in))
	}
}
