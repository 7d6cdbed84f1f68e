package fsops

// Deleter abstracts filesystem delete operations
// Enables mocking in tests to prove dry-run never deletes
type Deleter interface {
	Remove(path string) error
	RemoveAll(path string) error
	// ClearReadOnly lifts a read-only restriction on a regular file so that
	// permission bits alone do not block its removal.
	ClearReadOnly(path string) error
}
