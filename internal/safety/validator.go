package safety

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidPath   = errors.New("invalid path")
	ErrProtectedPath = errors.New("protected path")
	ErrRootMissing   = errors.New("root does not exist")
	ErrNotDirectory  = errors.New("root is not a directory")
)

// Validator guards the cleanup root before any traversal starts
type Validator struct {
	ProtectedPaths []string
}

// NewValidator creates a validator with the default protected set plus extras
func NewValidator(extraProtected []string) *Validator {
	return &Validator{
		ProtectedPaths: defaultProtected(extraProtected),
	}
}

// ValidateRoot is the single gate for a cleanup root. It returns the
// normalized root, or a typed error when the root must not be swept.
func (v *Validator) ValidateRoot(path string) (string, error) {
	// 1. Normalize path to absolute, cleaned form
	p, err := NormalizePath(path)
	if err != nil {
		return "", err
	}

	// 2. Block protected paths (system-critical)
	if IsProtectedPath(p, v.ProtectedPaths) || isHome(p) {
		return "", fmt.Errorf("%w: %s", ErrProtectedPath, p)
	}

	// 3. Must be an existing directory (symlinked roots are resolved)
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrRootMissing, p)
	}
	if err != nil {
		return "", fmt.Errorf("stat root %s: %w", p, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotDirectory, p)
	}

	// 4. A symlinked root must not land on a protected path either
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		return "", fmt.Errorf("resolve root %s: %w", p, err)
	}
	if IsProtectedPath(resolved, v.ProtectedPaths) || isHome(resolved) {
		return "", fmt.Errorf("%w: %s resolves to %s", ErrProtectedPath, p, resolved)
	}

	return p, nil
}

// NormalizePath converts path to absolute, cleaned form
func NormalizePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrInvalidPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", ErrInvalidPath
	}
	return filepath.Clean(abs), nil
}

// IsWithinRoot reports whether path lies strictly below root. The root
// itself is never a deletion target.
func IsWithinRoot(path, root string) bool {
	p := filepath.Clean(path)
	r := filepath.Clean(root)
	return p != r && hasPathPrefix(p, r)
}

// IsProtectedPath checks if path matches protected system paths
func IsProtectedPath(path string, protected []string) bool {
	p := filepath.Clean(path)

	// Hard block: filesystem root (volume root on windows)
	if p == string(os.PathSeparator) || p == filepath.VolumeName(p)+string(os.PathSeparator) {
		return true
	}

	for _, prot := range protected {
		if hasPathPrefix(p, prot) {
			return true
		}
	}
	return false
}

// hasPathPrefix checks if path equals prefix or lies below it
func hasPathPrefix(path, prefix string) bool {
	path = filepath.Clean(path)
	prefix = filepath.Clean(prefix)

	if path == prefix {
		return true
	}
	if strings.HasSuffix(prefix, string(os.PathSeparator)) {
		return strings.HasPrefix(path, prefix)
	}
	return strings.HasPrefix(path, prefix+string(os.PathSeparator))
}

func isHome(path string) bool {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return false
	}
	return filepath.Clean(home) == path
}

// defaultProtected returns the base set of protected paths plus any extras
func defaultProtected(extra []string) []string {
	base := []string{
		"/etc",
		"/bin",
		"/usr",
		"/boot",
		"/lib",
		"/lib64",
		"/sbin",
		"/proc",
		"/sys",
		"/dev",
	}
	if sysRoot := os.Getenv("SystemRoot"); sysRoot != "" {
		base = append(base, sysRoot)
	}
	return append(base, extra...)
}
