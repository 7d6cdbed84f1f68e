//go:build unix

package fsops

import (
	"errors"
	"io/fs"
	"syscall"

	"golang.org/x/sys/unix"
)

// IsTransient reports whether a delete error is worth retrying: lock or
// handle contention, interrupted calls and access denials that may clear
// once another process lets go of the file.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, fs.ErrPermission) {
		return true
	}
	for _, errno := range []syscall.Errno{unix.EBUSY, unix.ETXTBSY, unix.EAGAIN, unix.EINTR} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
