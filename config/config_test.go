package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PORT", "DATABASE_DRIVER", "DATABASE_URL", "SERVICE_TOKEN", "ALLOWED_ORIGINS",
		"AUTH_SERVICE_URL", "APP_TIMEZONE", "LOG_LEVEL", "CATALOG_SYNC_URL",
		"CATALOG_SYNC_INTERVAL", "STREAK_DECAY_CRON", "CLOUDFLARE_ACCOUNT_ID",
		"R2_ACCESS_KEY_ID", "R2_ACCESS_KEY_SECRET", "R2_BUCKET_NAME", "CDN_BASE_URL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	assert.Equal(t, "5200", cfg.Port)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10*time.Minute, cfg.CatalogSyncInterval)
	assert.Equal(t, "5 0 * * *", cfg.StreakDecayCron)
	assert.False(t, cfg.R2.Enabled())
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_DRIVER", "SQLite")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com ,")
	t.Setenv("APP_TIMEZONE", "Europe/Rome")
	t.Setenv("CATALOG_SYNC_INTERVAL", "30s")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.CatalogSyncInterval)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Rome", loc.String())
}

func TestLoad_InvalidIntervalFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("CATALOG_SYNC_INTERVAL", "soon")

	cfg := Load()

	assert.Equal(t, 10*time.Minute, cfg.CatalogSyncInterval)
}

func TestValidate(t *testing.T) {
	cfg := Config{DatabaseDriver: "postgres", Timezone: "Local"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVICE_TOKEN")
	assert.Contains(t, err.Error(), "DATABASE_URL")

	cfg = Config{DatabaseDriver: "sqlite", ServiceToken: "t", Timezone: "Mars/Olympus"}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APP_TIMEZONE")

	cfg = Config{DatabaseDriver: "sqlite", ServiceToken: "t", Timezone: "UTC"}
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "progress.db", cfg.SQLitePath())
}
