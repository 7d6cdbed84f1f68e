//go:build !linux && !darwin && !freebsd && !windows

package disk

func statfs(string) (Usage, error) {
	return Usage{}, ErrUnsupported
}
