//go:build unix

package fsops

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestIsTransientUnix(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"busy", &fs.PathError{Op: "remove", Path: "/x", Err: unix.EBUSY}, true},
		{"text busy", &fs.PathError{Op: "remove", Path: "/x", Err: unix.ETXTBSY}, true},
		{"access denied", &fs.PathError{Op: "remove", Path: "/x", Err: unix.EACCES}, true},
		{"not permitted", &fs.PathError{Op: "remove", Path: "/x", Err: unix.EPERM}, true},
		{"not empty", &fs.PathError{Op: "remove", Path: "/x", Err: unix.ENOTEMPTY}, false},
		{"not exist", &fs.PathError{Op: "remove", Path: "/x", Err: unix.ENOENT}, false},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
