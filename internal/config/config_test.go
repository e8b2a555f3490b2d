package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_Defaults verifies loading without a file yields the built-ins.
func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, time.Hour, cfg.Scanner.TTL)
	assert.Equal(t, 1000, cfg.Scanner.MaxApps)
	assert.Equal(t, 3, cfg.Launcher.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Monitor.Interval)
	assert.True(t, cfg.Monitor.Enabled)
	assert.False(t, cfg.History.Persist)
}

// TestLoad_File verifies file values override defaults without clobbering
// unset keys.
func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":9000"
scanner:
  ttl: 30m
  max_apps: 50
launcher:
  max_retries: 5
  debug: true
`), 0o644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, 30*time.Minute, cfg.Scanner.TTL)
	assert.Equal(t, 50, cfg.Scanner.MaxApps)
	assert.Equal(t, 5, cfg.Launcher.MaxRetries)
	assert.True(t, cfg.Launcher.Debug)
	assert.Equal(t, true, cfg.Launcher.ValidateExecutable, "unset keys keep defaults")
}

// TestLoad_MissingFile verifies a bad path is a hard error.
func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/no/such/config.yaml")
	assert.Error(t, err)
}

// TestLoad_Env verifies environment variables override file and defaults.
func TestLoad_Env(t *testing.T) {
	t.Setenv("APPAGENT_SCANNER_MAX_APPS", "25")
	t.Setenv("APPAGENT_LISTEN_ADDR", ":7000")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Scanner.MaxApps)
	assert.Equal(t, ":7000", cfg.ListenAddr)
}
