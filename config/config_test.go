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

func TestLoad_DefaultsAndFile(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "0123456789abcdef-test"
storage:
  driver: sqlite
  sqlite_path: /tmp/lab.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/tmp/lab.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 2*time.Minute, cfg.Auth.ResetTokenTTL)
	assert.Equal(t, 0, cfg.Storage.Remote.RetryMax)
	assert.Equal(t, "lab.audit", cfg.Kafka.Topic)
	assert.False(t, cfg.Storage.ExposeData)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "0123456789abcdef-test"
`)
	t.Setenv("SSS_SERVER_PORT", "9090")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 8080},
			Auth:    AuthConfig{JWTSecret: "0123456789abcdef-test"},
			Storage: StorageConfig{Driver: DriverSQLite},
		}
	}

	t.Run("ok", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("short secret", func(t *testing.T) {
		c := base()
		c.Auth.JWTSecret = "short"
		assert.Error(t, c.Validate())
	})

	t.Run("remote without url", func(t *testing.T) {
		c := base()
		c.Storage.Driver = DriverRemote
		assert.Error(t, c.Validate())

		c.Storage.Remote.BaseURL = "http://data:8080"
		assert.NoError(t, c.Validate())
	})

	t.Run("unknown driver", func(t *testing.T) {
		c := base()
		c.Storage.Driver = "mongo"
		assert.Error(t, c.Validate())
	})

	t.Run("exposed storage surface needs key", func(t *testing.T) {
		c := base()
		c.Storage.ExposeData = true
		assert.Error(t, c.Validate())

		c.Storage.DataAPIKey = "short"
		assert.Error(t, c.Validate())

		c.Storage.DataAPIKey = "0123456789abcdef-storage"
		assert.NoError(t, c.Validate())

		c.Storage.Driver = DriverRemote
		c.Storage.Remote.BaseURL = "http://data:8080"
		assert.Error(t, c.Validate())
	})

	t.Run("kafka without brokers", func(t *testing.T) {
		c := base()
		c.Kafka.Enabled = true
		assert.Error(t, c.Validate())
	})
}
