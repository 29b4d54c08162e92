package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "memory", cfg.DBDriver)
	assert.Equal(t, 60, cfg.RepairIntervalMinutes)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("PORT", "9100")
	t.Setenv("STORE_TIMEZONE", "America/Mexico_City")
	t.Setenv("WORKER_POOL_SIZE", "4")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 4, cfg.WorkerPoolSize)
	assert.Equal(t, "America/Mexico_City", cfg.Location().String())
}

func TestValidate(t *testing.T) {
	cfg := &Config{DBDriver: "mysql", StoreTimezone: "UTC"}
	assert.Error(t, cfg.Validate())

	cfg = &Config{DBDriver: "postgres", Env: "production", JWTSecret: "short", StoreTimezone: "UTC"}
	assert.Error(t, cfg.Validate())

	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.Validate())

	cfg.StoreTimezone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())
}
