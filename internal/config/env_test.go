package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_Defaults(t *testing.T) {
	t.Setenv("SCHOOLBUS_CONFIG", "")
	t.Setenv("TZ", "UTC")

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", env.AppAddr)
	assert.Equal(t, "mysql", env.DBDriver)
	assert.Equal(t, "log", env.EventsBackend)
	assert.Equal(t, "UTC", env.Location.String())
}

func TestLoadEnv_YAMLThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schoolbus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
appAddr: ":9000"
dbDriver: pgx
databaseURL: postgres://bus@localhost/bus
eventsBackend: nats
natsURL: nats://nats:4222
jwtSecret: yaml-secret-of-sufficient-length
`), 0o600))

	t.Setenv("SCHOOLBUS_CONFIG", path)
	t.Setenv("APP_ADDR", ":9100")
	t.Setenv("TZ", "Asia/Jakarta")
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://ops.example.com, https://driver.example.com")

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9100", env.AppAddr)
	assert.Equal(t, "pgx", env.DBDriver)
	assert.Equal(t, "postgres://bus@localhost/bus", env.DSN())
	assert.Equal(t, "nats", env.EventsBackend)
	assert.True(t, env.MetricsEnabled)
	assert.Equal(t, []string{"https://ops.example.com", "https://driver.example.com"}, env.CORSOrigins)
	assert.Equal(t, "Asia/Jakarta", env.Location.String())
}

func TestLoadEnv_Invalid(t *testing.T) {
	t.Setenv("SCHOOLBUS_CONFIG", "")
	t.Setenv("TZ", "UTC")
	t.Setenv("DB_DRIVER", "sqlite")

	_, err := LoadEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")

	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("METRICS_ENABLED", "sometimes")
	_, err = LoadEnv()
	require.Error(t, err)
}

func TestDSN_MySQL(t *testing.T) {
	t.Setenv("SCHOOLBUS_CONFIG", "")
	t.Setenv("TZ", "UTC")
	t.Setenv("DB_HOST", "db:3306")
	t.Setenv("DB_NAME", "fleet")

	env, err := LoadEnv()
	require.NoError(t, err)
	dsn := env.DSN()
	assert.True(t, strings.Contains(dsn, "tcp(db:3306)/fleet"), dsn)
	assert.Contains(t, dsn, "parseTime=true")
}
