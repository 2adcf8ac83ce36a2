package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_PORT", "BASE_URL", "DB_DRIVER", "DATABASE_URL", "SQLITE_PATH",
		"DB_QUERY_TIMEOUT", "DB_MAX_CONNS", "MAX_UPLOAD_BYTES", "TAG_LOCK", "TAG_LOCK_TTL",
		"REDIS_URL", "STATIC_DIR", "OTEL_ENABLED", "OTEL_SERVICE_NAME",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultsWithSQLite(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, 3*time.Second, cfg.QueryTimeout)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, TagLockNone, cfg.TagLock)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
}

func TestLoadPostgresRequiresURL(t *testing.T) {
	clearEnv(t)

	_, err := Load("")
	require.Error(t, err)
}

func TestLoadYAMLThenEnvOverrides(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`port: "9000"
baseURL: http://snips.local/
dbDriver: sqlite
sqlitePath: /tmp/snips.db
queryTimeout: 5s
tagLock: memory
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("APP_PORT", "9100")
	t.Setenv("DB_QUERY_TIMEOUT", "not-a-duration")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "http://snips.local", cfg.BaseURL)
	assert.Equal(t, "/tmp/snips.db", cfg.SQLitePath)
	assert.Equal(t, 5*time.Second, cfg.QueryTimeout)
	assert.Equal(t, TagLockMemory, cfg.TagLock)
}

func TestValidateRejectsUnknownModes(t *testing.T) {
	cfg := Defaults()
	cfg.DBDriver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.DBDriver = DriverSQLite
	cfg.TagLock = "zookeeper"
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.DBDriver = DriverSQLite
	cfg.TagLock = TagLockRedis
	assert.Error(t, cfg.Validate())

	cfg.RedisURL = "redis://localhost:6379/0"
	assert.NoError(t, cfg.Validate())
}
