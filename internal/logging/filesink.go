package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// FlushInterval is how often the background writer drains the queue.
	FlushInterval = 100 * time.Millisecond
	queueSize     = 4096
)

// Rotation controls how the mirrored log file is rotated.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// FileSink mirrors log lines to a file from a single background goroutine so
// producers never wait on file I/O. Lines are timestamped at enqueue time.
type FileSink struct {
	w        io.WriteCloser
	queue    chan string
	interval time.Duration
	now      func() time.Time

	mu       sync.RWMutex
	closed   bool
	deadline time.Time
	done     chan struct{}
	stopped  chan struct{}
	dropped  atomic.Int64
}

// OpenFileSink opens path for appending through a rotating writer and starts
// the background flusher. The parent directory is created if missing.
func OpenFileSink(path string, rot Rotation) (*FileSink, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve log path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	// Open once up front so a bad path fails here rather than silently later.
	f, err := os.OpenFile(abs, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	f.Close()

	w := &lumberjack.Logger{
		Filename:   abs,
		MaxSize:    rot.MaxSizeMB,
		MaxBackups: rot.MaxBackups,
		MaxAge:     rot.MaxAgeDays,
		Compress:   rot.Compress,
	}
	return NewFileSink(w, FlushInterval), nil
}

// NewFileSink starts a sink over any writer.
func NewFileSink(w io.WriteCloser, interval time.Duration) *FileSink {
	s := &FileSink{
		w:        w,
		queue:    make(chan string, queueSize),
		interval: interval,
		now:      time.Now,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go s.run()
	return s
}

// Log enqueues one line without blocking. Lines are dropped once the sink is
// closed or while the queue is full.
func (s *FileSink) Log(line string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	stamped := fmt.Sprintf("[%s] %s", s.now().Format(time.RFC3339Nano), line)
	select {
	case s.queue <- stamped:
	default:
		s.dropped.Add(1)
	}
}

// Dropped returns how many lines were discarded because the queue was full.
func (s *FileSink) Dropped() int64 {
	return s.dropped.Load()
}

// Close stops accepting lines, drains what is queued for at most grace and
// closes the writer.
func (s *FileSink) Close(grace time.Duration) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.deadline = s.now().Add(grace)
	s.mu.Unlock()

	close(s.done)
	select {
	case <-s.stopped:
	case <-time.After(grace + s.interval):
	}
	if n := s.dropped.Load(); n > 0 {
		_, _ = fmt.Fprintf(s.w, "[%s] [%s] %d log lines dropped\n", s.now().Format(time.RFC3339Nano), LevelWarn, n)
	}
	return s.w.Close()
}

func (s *FileSink) run() {
	defer close(s.stopped)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.drain(time.Time{})
		case <-s.done:
			s.mu.RLock()
			deadline := s.deadline
			s.mu.RUnlock()
			s.drain(deadline)
			return
		}
	}
}

func (s *FileSink) drain(deadline time.Time) {
	for {
		if !deadline.IsZero() && s.now().After(deadline) {
			return
		}
		select {
		case line := <-s.queue:
			// Write errors are swallowed: logging must never fail a run.
			_, _ = io.WriteString(s.w, line+"\n")
		default:
			return
		}
	}
}
