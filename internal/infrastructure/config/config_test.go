package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
dirs:
  inbox: /data/in
  processed: /data/ok
  failed: /data/bad
ledger:
  database_path: /data/ledger.db
intake:
  scan_interval_seconds: 5
  stability_checks: 2
  stability_delay_ms: 100
matching:
  toll_margin_minutes: 15
  same_day_fallback: false
portal:
  driver_command: /usr/local/bin/driver
  headless: true
  timeout_seconds: 60
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/in", cfg.Dirs.Inbox)
	assert.Equal(t, "/data/ledger.db", cfg.Ledger.DatabasePath)
	assert.Equal(t, 5*time.Second, cfg.Intake.ScanInterval())
	assert.Equal(t, 100*time.Millisecond, cfg.Intake.StabilityDelay())
	assert.Equal(t, 15*time.Minute, cfg.Matching.TollMargin())
	assert.False(t, cfg.SameDayFallbackEnabled())
	assert.True(t, cfg.Portal.Headless)
	assert.Equal(t, time.Minute, cfg.Portal.Timeout())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `ledger: {database_path: x.db}`))
	require.NoError(t, err)

	assert.Equal(t, "receipts", cfg.Dirs.Inbox)
	assert.Equal(t, "processed", cfg.Dirs.Processed)
	assert.Equal(t, "failed", cfg.Dirs.Failed)
	assert.Equal(t, 2*time.Second, cfg.Intake.ScanInterval())
	assert.Equal(t, 3, cfg.Intake.StabilityChecks)
	assert.Equal(t, 10*time.Minute, cfg.Matching.TollMargin())
	assert.True(t, cfg.SameDayFallbackEnabled())
	assert.Equal(t, "tesseract", cfg.Recognition.TesseractPath)
	assert.Equal(t, "por+eng", cfg.Recognition.Language)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.NotEmpty(t, cfg.Retry.LockPath)
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_LEDGER_PATH", "/var/lib/ledger.db")
	cfg, err := Load(writeConfig(t, `ledger: {database_path: ${TEST_LEDGER_PATH}}`))
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/ledger.db", cfg.Ledger.DatabasePath)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FIELDMAP_INBOX", "/env/in")
	t.Setenv("FIELDMAP_RETRY_INTERVAL", "300")
	t.Setenv("HEADLESS", "1")

	cfg := LoadFromEnv()

	assert.Equal(t, "/env/in", cfg.Dirs.Inbox)
	assert.Equal(t, 5*time.Minute, cfg.Retry.SweepInterval())
	assert.True(t, cfg.Portal.Headless)
	assert.Equal(t, "fieldmap-driver", cfg.Portal.DriverCommand)
}

func TestLoadOrEnvWithPath_FallsBack(t *testing.T) {
	cfg := LoadOrEnvWithPath(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NotNil(t, cfg)
	assert.Equal(t, "receipts", cfg.Dirs.Inbox)
}
