package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/IGLOU-EU/go-wildcard"
)

// Logger is the subset of the run logger the traversal needs.
type Logger interface {
	Error(format string, args ...any)
	Verbose(format string, args ...any)
}

// Kind distinguishes file and directory candidates.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
)

func (k Kind) String() string {
	if k == KindDirectory {
		return "directory"
	}
	return "file"
}

// Candidate is one entry handed to the deletion engine. Symlinks and other
// non-directory entries are files: they are removed as links, never followed.
type Candidate struct {
	Path           string
	Kind           Kind
	ModTime        time.Time
	Size           int64
	DeletionReason DeletionReason
}

func (c Candidate) IsDir() bool {
	return c.Kind == KindDirectory
}

// Result holds the candidate sets produced by one traversal.
type Result struct {
	// Files eligible for deletion, in traversal order.
	Files []Candidate
	// Directories visited below the root (age-filtered), or the immediate
	// subdirectories of the root (delete-all).
	Directories []Candidate
	// ListErrors counts directories whose listing failed and were skipped.
	ListErrors int
}

// Scanner walks directory trees and classifies entries.
type Scanner struct {
	logger  Logger
	exclude []string
	now     func() time.Time
	readDir func(string) ([]os.DirEntry, error)
}

// NewScanner creates a Scanner. Entries whose full path or base name match
// one of the wildcard patterns are never returned and never descended.
func NewScanner(logger Logger, exclude []string) *Scanner {
	return &Scanner{
		logger:  logger,
		exclude: exclude,
		now:     time.Now,
		readDir: os.ReadDir,
	}
}

// Excluded reports whether path matches an exclusion pattern.
func (s *Scanner) Excluded(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range s.exclude {
		if wildcard.Match(pattern, path) || wildcard.Match(pattern, base) {
			return true
		}
	}
	return false
}

// WalkAged walks the whole tree below root with an explicit stack and selects
// files last modified before cutoff. Every visited subdirectory is recorded
// for pruning. A directory that cannot be listed is logged and its subtree
// skipped.
func (s *Scanner) WalkAged(root string, cutoff time.Time) Result {
	now := s.now()
	return s.walk(root, func(path string, info fs.FileInfo) (DeletionReason, bool) {
		if !info.ModTime().Before(cutoff) {
			return DeletionReason{}, false
		}
		return ageReason(info.ModTime(), cutoff, now), true
	})
}

// WalkAll walks the whole tree below root and selects every file. Used to
// pick apart a subtree whose recursive removal failed.
func (s *Scanner) WalkAll(root string) Result {
	return s.walk(root, func(string, fs.FileInfo) (DeletionReason, bool) {
		return DeletionReason{DeleteAll: true}, true
	})
}

// ListTop lists only the immediate children of root. Each subdirectory is a
// single unit to be removed as a whole subtree, so age does not apply.
func (s *Scanner) ListTop(root string) Result {
	var res Result
	files, dirs, ok := s.list(root)
	if !ok {
		res.ListErrors++
		return res
	}
	reason := DeletionReason{DeleteAll: true}
	for _, f := range files {
		info, err := f.entry.Info()
		if err != nil {
			s.logger.Error("Skipping file %s: %v", f.path, err)
			continue
		}
		res.Files = append(res.Files, fileCandidate(f.path, info, reason))
	}
	for _, d := range dirs {
		c := Candidate{Path: d.path, Kind: KindDirectory, DeletionReason: reason}
		if info, err := d.entry.Info(); err == nil {
			c.ModTime = info.ModTime()
		}
		res.Directories = append(res.Directories, c)
	}
	return res
}

type listed struct {
	path  string
	entry os.DirEntry
}

func (s *Scanner) walk(root string, selectFile func(string, fs.FileInfo) (DeletionReason, bool)) Result {
	var res Result
	stack := []string{root}

	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		files, dirs, ok := s.list(dir)
		if !ok {
			res.ListErrors++
			continue
		}

		for _, f := range files {
			info, err := f.entry.Info()
			if err != nil {
				s.logger.Error("Skipping file %s: %v", f.path, err)
				continue
			}
			reason, selected := selectFile(f.path, info)
			if !selected {
				continue
			}
			res.Files = append(res.Files, fileCandidate(f.path, info, reason))
		}

		for _, d := range dirs {
			c := Candidate{Path: d.path, Kind: KindDirectory}
			if info, err := d.entry.Info(); err == nil {
				c.ModTime = info.ModTime()
			}
			res.Directories = append(res.Directories, c)
			stack = append(stack, d.path)
		}
	}
	return res
}

// list splits a directory's entries into files and subdirectories, dropping
// excluded ones. ok is false when the directory could not be read.
func (s *Scanner) list(dir string) (files, dirs []listed, ok bool) {
	entries, err := s.readDir(dir)
	if err != nil {
		s.logger.Error("Skipping directory %s: %v", dir, err)
		return nil, nil, false
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if s.Excluded(path) {
			s.logger.Verbose("Excluded %s", path)
			continue
		}
		if e.IsDir() {
			dirs = append(dirs, listed{path: path, entry: e})
		} else {
			files = append(files, listed{path: path, entry: e})
		}
	}
	return files, dirs, true
}

func fileCandidate(path string, info fs.FileInfo, reason DeletionReason) Candidate {
	return Candidate{
		Path:           path,
		Kind:           KindFile,
		ModTime:        info.ModTime(),
		Size:           info.Size(),
		DeletionReason: reason,
	}
}

// Depth counts path separators; deeper paths sort first when pruning.
func Depth(path string) int {
	return strings.Count(filepath.Clean(path), string(os.PathSeparator))
}
