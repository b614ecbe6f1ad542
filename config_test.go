package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"ADDR", "DB_DRIVER", "DB_PATH", "SESSION_TTL", "LOGIN_ATTEMPTS", "SECURE_COOKIES"} {
		t.Setenv(key, "")
	}

	cfg := loadConfig()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "cms.db", cfg.DBPath)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5, cfg.LoginAttempts)
	assert.False(t, cfg.SecureCookies)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("ADDR", ":9000")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("LOGIN_ATTEMPTS", "10")
	t.Setenv("SECURE_COOKIES", "true")

	cfg := loadConfig()
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10, cfg.LoginAttempts)
	assert.True(t, cfg.SecureCookies)
}

func TestLoadConfig_InvalidFallsBack(t *testing.T) {
	t.Setenv("SESSION_TTL", "forever")
	t.Setenv("LOGIN_ATTEMPTS", "-1")

	cfg := loadConfig()
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5, cfg.LoginAttempts)
}

func TestConfigDSN(t *testing.T) {
	driver, dsn, err := Config{DBDriver: "sqlite", DBPath: "blog.db"}.DSN()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", driver)
	assert.Contains(t, dsn, "blog.db?")

	driver, dsn, err = Config{
		DBDriver:   "postgres",
		DBUser:     "cms",
		DBPassword: "p@ss",
		DBHost:     "db:5432",
		DBName:     "cms",
	}.DSN()
	require.NoError(t, err)
	assert.Equal(t, "pgx", driver)
	assert.Equal(t, "postgres://cms:p%40ss@db:5432/cms", dsn)

	_, _, err = Config{DBDriver: "postgres"}.DSN()
	assert.Error(t, err)

	_, _, err = Config{DBDriver: "oracle"}.DSN()
	assert.Error(t, err)
}
