package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestLoadDefaultsRequireSecrets(t *testing.T) {
	_, err := Load("")
	require.Error(t, err, "DSN and encryption key have no defaults")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lectio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: production
http:
  port: 9090
database:
  dsn: postgres://localhost/lectio
secrets:
  encryption_key: `+testKey+`
ai:
  daily_limit: 5
  max_continuations: 3
  run_timeout: 10m
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTP.Addr())
	assert.Equal(t, "postgres://localhost/lectio", cfg.Database.DSN)
	assert.Equal(t, 5, cfg.AI.DailyLimit)
	assert.Equal(t, 3, cfg.AI.MaxContinuations)
	assert.Equal(t, 10*time.Minute, cfg.AI.RunTimeout)
	// Untouched values keep their defaults.
	assert.Equal(t, 16384, cfg.AI.MaxTokens)
	assert.Equal(t, 15*time.Minute, cfg.Sweeper.StaleAge)
}

func TestEnvOverridesWin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lectio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  dsn: postgres://file/db
secrets:
  encryption_key: `+testKey+`
`), 0o600))

	t.Setenv("LECTIO_DATABASE_DSN", "postgres://env/db")
	t.Setenv("LECTIO_HTTP_PORT", "7070")
	t.Setenv("LECTIO_AI_DAILY_LIMIT", "20")
	t.Setenv("LECTIO_SWEEPER_STALE_AGE", "30m")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env/db", cfg.Database.DSN)
	assert.Equal(t, 7070, cfg.HTTP.Port)
	assert.Equal(t, 20, cfg.AI.DailyLimit)
	assert.Equal(t, 30*time.Minute, cfg.Sweeper.StaleAge)
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("LECTIO_DATABASE_DSN", "postgres://env/db")
	t.Setenv("LECTIO_ENCRYPTION_KEY", testKey)
	t.Setenv("LECTIO_HTTP_PORT", "99999")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}
