package fsops

import (
	"strings"
	"sync"
)

// FakeDeleter implements Deleter for testing
// Records all delete calls without performing actual deletions
type FakeDeleter struct {
	mu    sync.Mutex
	Calls []string

	// Errs queues errors returned by Remove/RemoveAll per path, one per call.
	// Once a queue is drained the call succeeds.
	Errs map[string][]error
}

func (f *FakeDeleter) Remove(path string) error {
	return f.record("rm:", path)
}

func (f *FakeDeleter) RemoveAll(path string) error {
	return f.record("rmall:", path)
}

func (f *FakeDeleter) ClearReadOnly(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "chmod:"+path)
	return nil
}

// Removes returns only the rm/rmall calls, in order.
func (f *FakeDeleter) Removes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.Calls {
		if strings.HasPrefix(c, "rm:") || strings.HasPrefix(c, "rmall:") {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeDeleter) record(op, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, op+path)
	if q := f.Errs[path]; len(q) > 0 {
		f.Errs[path] = q[1:]
		return q[0]
	}
	return nil
}
