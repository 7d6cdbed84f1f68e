package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempsweep/internal/cleanup"
)

func TestLoadFullFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tempsweep.yaml")
	content := `
path: ` + dir + `
days: 30
delete_all: true
run: true
parallel: 4
auto_detect: false
throttle_bytes: 1048576
log_file: /var/log/tempsweep.log
verbose: true
exclude:
  - "*.lock"
  - "/tmp/keep-*"
history_db: /var/lib/tempsweep/history.db
metrics_file: /var/lib/node_exporter/tempsweep.prom
log_rotation:
  max_size_mb: 10
  max_backups: 5
  max_age_days: 14
  compress: true
retry:
  attempts: 5
  delay_ms: 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.ValidateAndDefault())

	assert.Equal(t, dir, cfg.Path)
	assert.Equal(t, 30, cfg.Days)
	assert.True(t, cfg.DeleteAll)
	assert.False(t, cfg.DryRun())
	assert.Equal(t, 4, cfg.Parallel)
	assert.True(t, cfg.ParallelChosen())
	assert.False(t, cfg.AutoDetect)
	assert.Equal(t, int64(1048576), cfg.ThrottleBytes)
	assert.Equal(t, []string{"*.lock", "/tmp/keep-*"}, cfg.Exclude)
	assert.Equal(t, LogRotationCfg{MaxSizeMB: 10, MaxBackups: 5, MaxAgeDays: 14, Compress: true}, cfg.LogRotation)
	assert.Equal(t, 5, cfg.Retry.Attempts)
	assert.Equal(t, 50*time.Millisecond, cfg.RetryDelay())
}

func TestDefaultsFromEmptyDocument(t *testing.T) {
	cfg, err := decode(strings.NewReader(""))
	require.NoError(t, err)
	require.NoError(t, cfg.ValidateAndDefault())

	assert.Equal(t, 7, cfg.Days)
	assert.True(t, cfg.DryRun())
	assert.True(t, cfg.AutoDetect)
	assert.False(t, cfg.ParallelChosen())
	assert.Equal(t, filepath.Clean(os.TempDir()), cfg.Path)
	assert.Equal(t, 3, cfg.Retry.Attempts)
	assert.Equal(t, 200*time.Millisecond, cfg.RetryDelay())
}

func TestPartialDocumentKeepsDefaults(t *testing.T) {
	cfg, err := decode(strings.NewReader("days: 0\n"))
	require.NoError(t, err)
	require.NoError(t, cfg.ValidateAndDefault())

	assert.Equal(t, 0, cfg.Days)
	assert.True(t, cfg.AutoDetect)
	assert.Equal(t, 3, cfg.LogRotation.MaxBackups)
}

func TestUnknownKeyRejected(t *testing.T) {
	_, err := decode(strings.NewReader("dayz: 3\n"))
	assert.Error(t, err)
}

func TestValidateAndDefaultErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"negative days", func(c *Config) { c.Days = -1 }, errNegativeDays},
		{"negative parallel", func(c *Config) { c.Parallel = -2 }, errInvalidParallel},
		{"negative throttle", func(c *Config) { c.ThrottleBytes = -1 }, errNegativeThrottle},
		{"zero retry attempts", func(c *Config) { c.Retry.Attempts = 0 }, errInvalidRetry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.ValidateAndDefault(), tt.want)
		})
	}
}

func TestRelativePathMadeAbsolute(t *testing.T) {
	cfg := Default()
	cfg.Path = "some/relative/../dir"
	require.NoError(t, cfg.ValidateAndDefault())

	assert.True(t, filepath.IsAbs(cfg.Path))
	assert.True(t, strings.HasSuffix(cfg.Path, filepath.Join("some", "dir")))
}

func TestRequest(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	cfg := Default()
	cfg.Path = "/tmp"
	cfg.Days = 7
	cfg.Exclude = []string{"*.pid"}
	cfg.ThrottleBytes = 2048
	require.NoError(t, cfg.ValidateAndDefault())

	req := cfg.Request(now, 0)

	assert.Equal(t, "/tmp", req.Root)
	assert.Equal(t, now.Add(-7*24*time.Hour), req.Cutoff)
	assert.Equal(t, cleanup.ModeAgeFiltered, req.Mode)
	assert.True(t, req.DryRun)
	assert.Equal(t, 1, req.Parallelism)
	assert.Equal(t, int64(2048), req.ThrottleBytes)

	// The request owns its own copy of the patterns.
	cfg.Exclude[0] = "changed"
	assert.Equal(t, []string{"*.pid"}, req.Exclude)

	cfg.DeleteAll = true
	cfg.Run = true
	req = cfg.Request(now, 8)
	assert.Equal(t, cleanup.ModeDeleteAll, req.Mode)
	assert.False(t, req.DryRun)
	assert.Equal(t, 8, req.Parallelism)
}
