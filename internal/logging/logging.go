package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Level tags written in front of every line.
const (
	LevelInfo    = "INFO"
	LevelWarn    = "WARN"
	LevelError   = "ERROR"
	LevelDry     = "DRY"
	LevelVerbose = "VERB"
)

// DefaultDrainGrace bounds how long Close waits for queued file lines.
const DefaultDrainGrace = 2 * time.Second

// Logger writes "[LEVEL] message" lines to the console and optionally mirrors
// them to a FileSink. It is safe for concurrent use.
type Logger struct {
	out     *log.Logger
	errOut  *log.Logger
	verbose atomic.Bool

	mu   sync.RWMutex
	sink *FileSink
}

// New creates a logger writing info-class lines to stdout and errors to stderr.
func New(stdout, stderr io.Writer, verbose bool) *Logger {
	l := &Logger{
		out:    log.New(stdout, "", 0),
		errOut: log.New(stderr, "", 0),
	}
	l.verbose.Store(verbose)
	return l
}

// NewConsole creates a logger on the process stdout and stderr.
func NewConsole(verbose bool) *Logger {
	return New(os.Stdout, os.Stderr, verbose)
}

// Discard returns a logger that drops everything. Handy for tests.
func Discard() *Logger {
	return New(io.Discard, io.Discard, true)
}

// SetVerbose toggles verbose trace lines.
func (l *Logger) SetVerbose(v bool) {
	l.verbose.Store(v)
}

// AttachFile mirrors every subsequent line to sink.
func (l *Logger) AttachFile(sink *FileSink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = sink
}

func (l *Logger) Info(format string, args ...any) {
	l.write(l.out, LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.write(l.out, LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.write(l.errOut, LevelError, format, args...)
}

// Dry reports an action that dry-run mode skipped.
func (l *Logger) Dry(format string, args ...any) {
	l.write(l.out, LevelDry, format, args...)
}

// Verbose is a no-op unless verbose output is enabled.
func (l *Logger) Verbose(format string, args ...any) {
	if !l.verbose.Load() {
		return
	}
	l.write(l.out, LevelVerbose, format, args...)
}

func (l *Logger) write(dst *log.Logger, level, format string, args ...any) {
	line := fmt.Sprintf("[%s] %s", level, fmt.Sprintf(format, args...))
	dst.Println(line)

	l.mu.RLock()
	sink := l.sink
	l.mu.RUnlock()
	if sink != nil {
		sink.Log(line)
	}
}

// Close flushes and closes the attached file sink, if any. Lines logged
// afterwards only reach the console.
func (l *Logger) Close() error {
	l.mu.Lock()
	sink := l.sink
	l.sink = nil
	l.mu.Unlock()
	if sink == nil {
		return nil
	}
	return sink.Close(DefaultDrainGrace)
}
