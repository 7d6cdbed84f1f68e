package disk

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned where free space cannot be queried for the platform.
var ErrUnsupported = errors.New("disk usage not supported on this platform")

// Usage describes the filesystem holding a path.
type Usage struct {
	TotalBytes uint64
	FreeBytes  uint64 // available to unprivileged users
}

// UsedPercent returns the percentage of disk space used.
func (u Usage) UsedPercent() float64 {
	if u.TotalBytes == 0 {
		return 0
	}
	used := u.TotalBytes - min(u.FreeBytes, u.TotalBytes)
	return float64(used) / float64(u.TotalBytes) * 100.0
}

// GetDiskUsage reports total and free bytes for the filesystem holding path.
func GetDiskUsage(path string) (Usage, error) {
	return statfs(path)
}

// FormatBytes renders a byte count with a binary unit, e.g. "1.5 MB".
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
