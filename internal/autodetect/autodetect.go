// Package autodetect picks a deletion parallelism by timing a few deletes on
// the target filesystem.
package autodetect

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"tempsweep/internal/fsops"
)

// Benchmark shape.
const (
	SampleFiles = 4
	SampleSize  = 64 * 1024

	scratchPattern = "tempsweep_autodetect_*"
)

// Thresholds on the average time of one delete.
const (
	FastDelete   = 5 * time.Millisecond
	MediumDelete = 20 * time.Millisecond
)

// Detector runs the benchmark. The zero value is not usable; call New.
type Detector struct {
	deleter   fsops.Deleter
	writeFile func(name string, data []byte, perm os.FileMode) error
	now       func() time.Time
	numCPU    func() int
}

// New creates a detector using the real filesystem.
func New() *Detector {
	return &Detector{
		deleter:   fsops.OSDeleter{},
		writeFile: os.WriteFile,
		now:       time.Now,
		numCPU:    runtime.NumCPU,
	}
}

// Result reports the benchmark measurement and its recommendation.
type Result struct {
	PerDelete   time.Duration
	Parallelism int
}

// Detect writes SampleFiles files of SampleSize bytes into a fresh scratch
// directory under root, deletes them sequentially and recommends a
// parallelism from the average delete time. The scratch directory is removed
// on every path out of this function.
func (d *Detector) Detect(root string) (res Result, err error) {
	dir, err := os.MkdirTemp(root, scratchPattern)
	if err != nil {
		return Result{}, fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		if rmErr := d.deleter.RemoveAll(dir); rmErr != nil && err == nil {
			err = fmt.Errorf("remove scratch dir %s: %w", dir, rmErr)
		}
	}()

	data := make([]byte, SampleSize)
	files := make([]string, 0, SampleFiles)
	for i := 0; i < SampleFiles; i++ {
		f := filepath.Join(dir, strconv.Itoa(i)+".tmp")
		if err := d.writeFile(f, data, 0o600); err != nil {
			return Result{}, fmt.Errorf("write sample %s: %w", f, err)
		}
		files = append(files, f)
	}

	start := d.now()
	for _, f := range files {
		if err := d.deleter.Remove(f); err != nil {
			return Result{}, fmt.Errorf("delete sample %s: %w", f, err)
		}
	}
	per := d.now().Sub(start) / SampleFiles

	return Result{PerDelete: per, Parallelism: Recommend(per, d.numCPU())}, nil
}

// Recommend maps an average delete time to a parallelism.
func Recommend(perDelete time.Duration, cpus int) int {
	switch {
	case perDelete < FastDelete:
		return max(2, 2*cpus)
	case perDelete < MediumDelete:
		return max(1, cpus)
	default:
		return 1
	}
}
