package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnsureUserConfigSeedsValidDefault(t *testing.T) {
	dir := t.TempDir()

	path, err := EnsureUserConfig(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "config.yml"), path)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	require.Equal(t, 8021, cfg.App.Port)
	require.Equal(t, 7, cfg.Source.BackfillDays)
	require.Equal(t, 50, cfg.Load.BatchSize)
	require.Contains(t, cfg.Source.DisallowedPaths, "/cgi-bin/")
}

func TestEnsureUserConfigKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  port: 9999\n"), 0o644))

	got, err := EnsureUserConfig(dir)
	require.NoError(t, err)
	require.Equal(t, path, got)

	cfg, err := Load(got)
	require.NoError(t, err)
	require.Equal(t, 9999, cfg.App.Port, "an existing config must not be overwritten")
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() Config {
		path, err := EnsureUserConfig(t.TempDir())
		require.NoError(t, err)
		cfg, err := Load(path)
		require.NoError(t, err)
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.App.Port = 0 }},
		{"relative base_url", func(c *Config) { c.Source.BaseURL = "survey/index.php" }},
		{"empty base_url", func(c *Config) { c.Source.BaseURL = "" }},
		{"zero max_pages", func(c *Config) { c.Source.MaxPages = 0 }},
		{"delay ceiling below base", func(c *Config) { c.Source.MaxDelayMs = c.Source.BaseDelayMs - 1 }},
		{"disallowed path without slash", func(c *Config) { c.Source.DisallowedPaths = []string{"cgi-bin"} }},
		{"zero batch_size", func(c *Config) { c.Load.BatchSize = 0 }},
		{"scheduler interval too short", func(c *Config) {
			c.Scheduler.Enabled = true
			c.Scheduler.IntervalSeconds = 30
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			require.NoError(t, Validate(cfg), "baseline must be valid")
			tc.mutate(&cfg)
			require.Error(t, Validate(cfg))
		})
	}
}

func TestSaveAtomicRoundtripAndBackup(t *testing.T) {
	dir := t.TempDir()
	path, err := EnsureUserConfig(dir)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	cfg.Source.MaxRecords = 123
	require.NoError(t, SaveAtomic(path, cfg))

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 123, reloaded.Source.MaxRecords)

	_, err = os.Stat(path + ".bak")
	require.NoError(t, err, "previous config kept as .bak")
}

func TestSaveAtomicRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path, err := EnsureUserConfig(dir)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	cfg.App.Port = -1
	require.Error(t, SaveAtomic(path, cfg))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, before, after, "a rejected save must leave the file untouched")
}

func TestDurationHelpers(t *testing.T) {
	var cfg Config
	cfg.Source.BaseDelayMs = 350
	cfg.Source.MaxDelayMs = 8000
	cfg.Source.TimeoutSeconds = 15
	cfg.Scheduler.IntervalSeconds = 3600

	require.Equal(t, 350*time.Millisecond, cfg.BaseDelay())
	require.Equal(t, 8*time.Second, cfg.MaxDelay())
	require.Equal(t, 15*time.Second, cfg.Timeout())
	require.Equal(t, time.Hour, cfg.SchedulerInterval())
}
