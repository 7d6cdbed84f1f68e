package cleanup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tempsweep/internal/fsops"
	"tempsweep/internal/limiter"
	"tempsweep/internal/safety"
	"tempsweep/internal/scan"
)

// Logger is the notification sink used by the engine.
type Logger interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	Dry(format string, args ...any)
	Verbose(format string, args ...any)
}

// Engine executes cleanup requests.
type Engine struct {
	logger  Logger
	deleter fsops.Deleter
	policy  fsops.Policy
	now     func() time.Time
}

// NewEngine creates an engine backed by the real filesystem.
func NewEngine(logger Logger) *Engine {
	return &Engine{
		logger:  logger,
		deleter: fsops.OSDeleter{},
		policy:  fsops.DefaultPolicy(),
		now:     time.Now,
	}
}

// SetDeleter swaps the filesystem mutation seam. Tests use fsops.FakeDeleter.
func (e *Engine) SetDeleter(d fsops.Deleter) {
	e.deleter = d
}

// SetRetryPolicy overrides the per-file retry policy.
func (e *Engine) SetRetryPolicy(p fsops.Policy) {
	e.policy = p
}

// run is the state of one Run call.
type run struct {
	*Engine
	req      Request
	scanner  *scan.Scanner
	retryer  *fsops.Retryer
	throttle *limiter.TokenBucket

	mu         sync.Mutex
	t          tally
	listErrors int
}

// Run executes one cleanup pass. Per-item failures are counted in the
// summary, never returned. The error is non-nil only for an invalid request
// or when ctx was cancelled, in which case the summary covers the units that
// were dispatched before cancellation.
func (e *Engine) Run(ctx context.Context, req Request) (Summary, error) {
	if err := req.validate(); err != nil {
		return Summary{}, err
	}

	start := e.now()
	r := &run{
		Engine:  e,
		req:     req,
		scanner: scan.NewScanner(e.logger, req.Exclude),
		retryer: fsops.NewRetryer(e.deleter, e.policy),
	}
	if req.ThrottleBytes > 0 {
		r.throttle = limiter.NewTokenBucket(req.ThrottleBytes)
	}

	var candidates int
	switch req.Mode {
	case ModeDeleteAll:
		candidates = r.deleteAll(ctx)
	default:
		candidates = r.ageFiltered(ctx)
	}

	s := Summary{
		Mode:            req.Mode,
		DryRun:          req.DryRun,
		Parallelism:     req.Parallelism,
		Candidates:      candidates,
		FilesDeleted:    r.t.files,
		DirsDeleted:     r.t.dirs,
		DryRunSkipped:   r.t.dry,
		FailedTransient: r.t.transient,
		FailedFatal:     r.t.fatal,
		BytesFreed:      r.t.bytes,
		DeletedByReason: r.t.reasons,
		ListErrors:      r.listErrors,
		Duration:        e.now().Sub(start),
	}
	if r.throttle != nil {
		s.ThrottleWait = r.throttle.Waited()
	}
	return s, ctx.Err()
}

func (r *run) record(o fsops.Outcome, isDir bool, size int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.t.add(o, isDir, size)
}

// deleted records a successful removal of c, grouped by why it was selected.
func (r *run) deleted(c scan.Candidate, size int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.t.add(fsops.OutcomeDeleted, c.IsDir(), size)
	if c.DeletionReason.HasReason() {
		r.t.reason(c.DeletionReason.GetPrimaryReason())
	}
}

func (r *run) ageFiltered(ctx context.Context) int {
	res := r.scanner.WalkAged(r.req.Root, r.req.Cutoff)
	r.listErrors = res.ListErrors
	r.logger.Verbose("Found %d files older than %s and %d directories",
		len(res.Files), r.req.Cutoff.UTC().Format(time.RFC3339), len(res.Directories))

	r.dispatch(ctx, len(res.Files), func(i int) {
		r.deleteFile(ctx, res.Files[i])
	})
	if ctx.Err() == nil {
		r.prune(ctx, res.Directories)
	}
	return len(res.Files)
}

func (r *run) deleteAll(ctx context.Context) int {
	res := r.scanner.ListTop(r.req.Root)
	r.listErrors = res.ListErrors
	units := make([]scan.Candidate, 0, len(res.Files)+len(res.Directories))
	units = append(units, res.Files...)
	units = append(units, res.Directories...)

	r.dispatch(ctx, len(units), func(i int) {
		if c := units[i]; c.IsDir() {
			r.deleteTree(c)
		} else {
			r.deleteFile(ctx, c)
		}
	})
	return len(units)
}

// dispatch runs n units, sequentially in order when parallelism is 1 and on a
// bounded pool otherwise. A cancelled ctx stops further dispatch; units
// already started run to completion.
func (r *run) dispatch(ctx context.Context, n int, unit func(i int)) {
	if r.req.Parallelism <= 1 {
		for i := 0; i < n; i++ {
			if ctx.Err() != nil {
				return
			}
			r.safely(i, unit)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(r.req.Parallelism)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			r.safely(i, unit)
			return nil
		})
	}
	_ = g.Wait()
}

func (r *run) safely(i int, unit func(int)) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Unexpected failure in unit %d: %v", i, p)
			r.record(fsops.OutcomeFailedFatal, false, 0)
		}
	}()
	unit(i)
}

func (r *run) inRoot(path string) bool {
	if safety.IsWithinRoot(path, r.req.Root) {
		return true
	}
	r.logger.Error("Refusing %s: outside %s", path, r.req.Root)
	r.record(fsops.OutcomeFailedFatal, false, 0)
	return false
}

func (r *run) deleteFile(ctx context.Context, c scan.Candidate) {
	if !r.inRoot(c.Path) {
		return
	}
	if r.req.DryRun {
		r.logger.Dry("Would delete %s", c.Path)
		r.logAction("DRY_RUN", c, c.Size)
		r.record(fsops.OutcomeSkippedDryRun, false, 0)
		return
	}

	var size int64
	info, err := os.Lstat(c.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		r.logger.Verbose("Already gone %s", c.Path)
		r.deleted(c, 0)
		return
	case err == nil:
		size = info.Size()
	}

	if r.throttle != nil && size > 0 {
		if err := r.throttle.Acquire(ctx, size); err != nil {
			r.logger.Warn("Not deleting %s: %v", c.Path, err)
			return
		}
	}

	outcome, err := r.retryer.Delete(c.Path)
	if outcome.Failed() {
		r.logger.Error("Failed to delete %s (%s): %v", c.Path, outcome, err)
		r.record(outcome, false, 0)
		return
	}
	r.logAction("DELETE", c, size)
	r.deleted(c, size)
}

// prune removes empty, aged directories in one pass, deepest first. A
// directory that only becomes empty after a shallower one is examined waits
// for the next run.
func (r *run) prune(ctx context.Context, dirs []scan.Candidate) {
	ordered := make([]scan.Candidate, len(dirs))
	copy(ordered, dirs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return scan.Depth(ordered[i].Path) > scan.Depth(ordered[j].Path)
	})

	for _, d := range ordered {
		if ctx.Err() != nil {
			return
		}
		if !r.inRoot(d.Path) {
			continue
		}
		empty, err := isEmptyDir(d.Path)
		if err != nil {
			r.logger.Verbose("Skipping prune of %s: %v", d.Path, err)
			continue
		}
		if !empty {
			continue
		}
		info, err := os.Lstat(d.Path)
		if err != nil || !info.ModTime().Before(r.req.Cutoff) {
			continue
		}

		if r.req.DryRun {
			r.logger.Dry("Would remove empty directory %s", d.Path)
			r.record(fsops.OutcomeSkippedDryRun, true, 0)
			continue
		}
		if err := r.deleter.Remove(d.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			r.logger.Error("Failed to remove directory %s: %v", d.Path, err)
			r.record(fsops.OutcomeFailedFatal, true, 0)
			continue
		}
		r.logAction("DELETE", d, 0)
		r.deleted(d, 0)
	}
}

// deleteTree removes one immediate subdirectory of the root in delete-all
// mode. When the recursive removal fails the subtree is picked apart entry by
// entry; whatever is left is reported.
func (r *run) deleteTree(c scan.Candidate) {
	if !r.inRoot(c.Path) {
		return
	}
	if r.req.DryRun {
		r.logger.Dry("Would delete directory %s", c.Path)
		r.logAction("DRY_RUN", c, 0)
		r.record(fsops.OutcomeSkippedDryRun, true, 0)
		return
	}

	err := r.deleter.RemoveAll(c.Path)
	if err == nil {
		r.logAction("DELETE", c, 0)
		r.deleted(c, 0)
		return
	}
	r.logger.Warn("Recursive delete of %s failed, removing entries individually: %v", c.Path, err)

	res := r.scanner.WalkAll(c.Path)
	r.mu.Lock()
	r.listErrors += res.ListErrors
	r.mu.Unlock()
	var freed int64
	for _, f := range res.Files {
		var size int64
		if info, err := os.Lstat(f.Path); err == nil {
			size = info.Size()
		}
		_ = r.deleter.ClearReadOnly(f.Path)
		if err := r.deleter.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			r.logger.Error("Could not delete %s: %v", f.Path, err)
			continue
		}
		freed += size
	}

	sort.SliceStable(res.Directories, func(i, j int) bool {
		return scan.Depth(res.Directories[i].Path) > scan.Depth(res.Directories[j].Path)
	})
	for _, d := range res.Directories {
		if err := r.deleter.Remove(d.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			r.logger.Error("Could not remove directory %s: %v", d.Path, err)
		}
	}

	r.mu.Lock()
	r.t.bytes += freed
	r.mu.Unlock()

	if err := r.deleter.Remove(c.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		r.logger.Error("Residue remains in %s: %v", c.Path, err)
		r.record(fsops.OutcomeFailedFatal, true, 0)
		return
	}
	r.logAction("DELETE", c, freed)
	r.deleted(c, 0)
}

// logAction writes the verbose trace line for one processed entry:
// action path=... object=... size=... deletion_reason="..."
func (r *run) logAction(action string, c scan.Candidate, size int64) {
	line := fmt.Sprintf("%s path=%s object=%s size=%d", action, c.Path, c.Kind, size)
	if c.DeletionReason.HasReason() {
		escaped := strings.ReplaceAll(c.DeletionReason.ToLogString(), `"`, `\"`)
		line += fmt.Sprintf(` deletion_reason="%s"`, escaped)
	}
	r.logger.Verbose("%s", line)
}

func isEmptyDir(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}
