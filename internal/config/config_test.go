package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7*24*time.Hour, cfg.Invite.DelegateTTL)
	assert.Equal(t, 14*24*time.Hour, cfg.Invite.ProxyTTL)
	assert.Equal(t, 24*time.Hour, cfg.Ingest.Interval)
	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, "memory", cfg.State.Backend)
}

func TestLoad_FileAndEnvOverlay(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: memory
invite:
  delegate_ttl: 48h
ingest:
  source: file
  file: events.yaml
database:
  postgres:
    host: db.internal
`)
	t.Setenv("DATABASE_POSTGRES_HOST", "override.internal")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 48*time.Hour, cfg.Invite.DelegateTTL)
	assert.Equal(t, "file", cfg.Ingest.Source)
	assert.Equal(t, "override.internal", cfg.Database.Postgres.Host)
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: sqlite
ingest:
  source: file
mail:
  enabled: true
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.backend")
	assert.Contains(t, err.Error(), "ingest.file")
	assert.Contains(t, err.Error(), "smtp.host")
}
