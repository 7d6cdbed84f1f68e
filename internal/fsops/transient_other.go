//go:build !unix && !windows

package fsops

import (
	"errors"
	"io/fs"
)

// IsTransient treats only access denials as retryable on platforms without
// a richer errno set.
func IsTransient(err error) bool {
	return err != nil && errors.Is(err, fs.ErrPermission)
}
