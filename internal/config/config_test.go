package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates the defaults when no environment is set.
// Scope: Unit Test
// Expected: File backend under data/, cookie named session, no session expiry, 25s heartbeat.
// Test Case ID: CFG-01
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("SESSION_MAX_AGE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, "data", cfg.Storage.DataDir)
	assert.Equal(t, "session", cfg.Session.CookieName)
	assert.Zero(t, cfg.Session.MaxAge)
	assert.Equal(t, 25*time.Second, cfg.Events.Heartbeat)
	assert.True(t, cfg.InsecureSessionSecret())
}

// TestPurpose: Validates that postgres storage requires a password.
// Scope: Unit Test
// Expected: Load fails for postgres without DB_PASSWORD and succeeds with it.
// Test Case ID: CFG-02
func TestLoad_PostgresRequiresPassword(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "Postgres")
	t.Setenv("DB_PASSWORD", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("DB_PASSWORD", "secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.Storage.Backend)
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "mongo")

	_, err := Load()
	assert.ErrorContains(t, err, "unknown STORAGE_BACKEND")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("SESSION_MAX_AGE", "12h")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("RATELIMIT_RPS", "2.5")
	t.Setenv("SERVER_READ_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 12*time.Hour, cfg.Session.MaxAge)
	assert.False(t, cfg.InsecureSessionSecret())
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 2.5, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

func TestValidate_BootstrapNeedsPassword(t *testing.T) {
	cfg := &Config{
		Storage:   StorageConfig{Backend: BackendMemory},
		Bootstrap: BootstrapConfig{AdminEmail: "root@example.com"},
	}
	assert.Error(t, cfg.Validate())

	cfg.Bootstrap.AdminPassword = "pw"
	assert.NoError(t, cfg.Validate())
}
