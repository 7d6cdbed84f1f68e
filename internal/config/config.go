package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"tempsweep/internal/cleanup"
)

type LogRotationCfg struct {
	MaxSizeMB  int  `yaml:"max_size_mb" json:"max_size_mb"`   // Rotate the mirror file past this size
	MaxBackups int  `yaml:"max_backups" json:"max_backups"`   // Rotated files to keep
	MaxAgeDays int  `yaml:"max_age_days" json:"max_age_days"` // Days to keep rotated files
	Compress   bool `yaml:"compress" json:"compress"`
}

type RetryCfg struct {
	Attempts int `yaml:"attempts" json:"attempts"`
	DelayMS  int `yaml:"delay_ms" json:"delay_ms"`
}

type Config struct {
	Path          string         `yaml:"path" json:"path"`                     // Root to clean, default: system temp dir
	Days          int            `yaml:"days" json:"days"`                     // Age cutoff in days
	DeleteAll     bool           `yaml:"delete_all" json:"delete_all"`         // Remove every immediate child of Path
	Run           bool           `yaml:"run" json:"run"`                       // false = dry run
	Parallel      int            `yaml:"parallel" json:"parallel"`             // 0 = not chosen, auto-detect may pick
	AutoDetect    bool           `yaml:"auto_detect" json:"auto_detect"`       // Benchmark the filesystem for parallelism
	ThrottleBytes int64          `yaml:"throttle_bytes" json:"throttle_bytes"` // Bytes/sec, 0 = unlimited
	LogFile       string         `yaml:"log_file" json:"log_file"`             // Mirror log lines to this file
	Verbose       bool           `yaml:"verbose" json:"verbose"`
	Exclude       []string       `yaml:"exclude" json:"exclude"` // Wildcard patterns never deleted
	HistoryDB     string         `yaml:"history_db" json:"history_db"`
	MetricsFile   string         `yaml:"metrics_file" json:"metrics_file"`
	LogRotation   LogRotationCfg `yaml:"log_rotation" json:"log_rotation"`
	Retry         RetryCfg       `yaml:"retry" json:"retry"`
}

var (
	errNegativeDays     = errors.New("days cannot be negative")
	errInvalidParallel  = errors.New("parallel must be at least 1")
	errNegativeThrottle = errors.New("throttle_bytes cannot be negative")
	errInvalidRetry     = errors.New("retry attempts must be at least 1")
)

// Default returns the configuration used when nothing is specified.
func Default() *Config {
	return &Config{
		Days:       7,
		AutoDetect: true,
		LogRotation: LogRotationCfg{
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 30,
		},
		Retry: RetryCfg{
			Attempts: 3,
			DelayMS:  200,
		},
	}
}

// Load reads a YAML file on top of the defaults. The result is not yet
// validated so that command-line flags can still be applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	return decode(f)
}

func decode(r io.Reader) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

// ValidateAndDefault checks ranges and fills derived defaults.
func (c *Config) ValidateAndDefault() error {
	if c.Days < 0 {
		return errNegativeDays
	}
	if c.Parallel < 0 {
		return errInvalidParallel
	}
	if c.ThrottleBytes < 0 {
		return errNegativeThrottle
	}
	if c.Retry.Attempts < 1 {
		return errInvalidRetry
	}
	if c.Retry.DelayMS < 0 {
		c.Retry.DelayMS = 0
	}

	if c.Path == "" {
		c.Path = os.TempDir()
	}
	abs, err := filepath.Abs(c.Path)
	if err != nil {
		return fmt.Errorf("resolve path %s: %w", c.Path, err)
	}
	c.Path = filepath.Clean(abs)

	if c.LogRotation.MaxSizeMB <= 0 {
		c.LogRotation.MaxSizeMB = 100
	}
	if c.LogRotation.MaxBackups < 0 {
		c.LogRotation.MaxBackups = 0
	}
	if c.LogRotation.MaxAgeDays < 0 {
		c.LogRotation.MaxAgeDays = 0
	}
	return nil
}

// ParallelChosen reports whether parallelism was set explicitly.
func (c *Config) ParallelChosen() bool {
	return c.Parallel > 0
}

// DryRun is the inverse of Run.
func (c *Config) DryRun() bool {
	return !c.Run
}

// Cutoff returns the instant before which files count as stale.
func (c *Config) Cutoff(now time.Time) time.Time {
	return now.Add(-time.Duration(c.Days) * 24 * time.Hour)
}

// RetryDelay returns the pause between delete attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Retry.DelayMS) * time.Millisecond
}

// Request builds the immutable request for one run with the final parallelism.
func (c *Config) Request(now time.Time, parallelism int) cleanup.Request {
	if parallelism < 1 {
		parallelism = 1
	}
	mode := cleanup.ModeAgeFiltered
	if c.DeleteAll {
		mode = cleanup.ModeDeleteAll
	}
	exclude := make([]string, len(c.Exclude))
	copy(exclude, c.Exclude)
	return cleanup.Request{
		Root:          c.Path,
		Cutoff:        c.Cutoff(now),
		Mode:          mode,
		DryRun:        c.DryRun(),
		Parallelism:   parallelism,
		ThrottleBytes: c.ThrottleBytes,
		Exclude:       exclude,
	}
}
