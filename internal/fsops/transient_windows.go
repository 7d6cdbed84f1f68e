//go:build windows

package fsops

import (
	"errors"
	"io/fs"

	"golang.org/x/sys/windows"
)

// IsTransient reports whether a delete error is worth retrying: sharing and
// lock violations from another process holding the handle, and access
// denials that may clear once that handle is closed.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, fs.ErrPermission) {
		return true
	}
	return errors.Is(err, windows.ERROR_SHARING_VIOLATION) ||
		errors.Is(err, windows.ERROR_LOCK_VIOLATION)
}
