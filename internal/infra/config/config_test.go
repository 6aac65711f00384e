package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managedKeys = []string{
	"STORAGE_DRIVER", "DATABASE_URL", "MIGRATE_ON_START", "TELEGRAM_TOKEN", "OPS_TELEGRAM_CHAT_IDS",
	"ADMIN_TELEGRAM_ID", "SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM",
	"LOG_LEVEL", "ENVIRONMENT", "EXPIRY_HORIZON_DAYS", "CRON_SPEC_EXPIRY_DISPATCH", "DISPATCH_TIMEOUT",
	"DELIVERY_TIMEOUT", "TIMEZONE", "HTTP_ADDR", "API_TOKEN",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range managedKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/lease?sslmode=disable")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.StorageDriver)
	assert.True(t, cfg.MigrateOnStart)
	assert.Equal(t, 7, cfg.ExpiryHorizonDays)
	assert.Equal(t, "0 8 * * *", cfg.CronSpecExpiryDispatch)
	assert.Equal(t, 5*time.Minute, cfg.DispatchTimeout)
	assert.Equal(t, 15*time.Second, cfg.DeliveryTimeout)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.TelegramEnabled())
	assert.False(t, cfg.MailEnabled())
	assert.Error(t, cfg.ValidateHTTP())
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("OPS_TELEGRAM_CHAT_IDS", "-1001, 42 ,")
	t.Setenv("ADMIN_TELEGRAM_ID", "7")
	t.Setenv("EXPIRY_HORIZON_DAYS", "30")
	t.Setenv("DELIVERY_TIMEOUT", "3s")
	t.Setenv("TIMEZONE", "Europe/Rome")
	t.Setenv("MIGRATE_ON_START", "false")
	t.Setenv("API_TOKEN", "secret")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, []int64{-1001, 42}, cfg.OpsTelegramChatIDs)
	assert.Equal(t, int64(7), cfg.AdminTelegramID)
	assert.Equal(t, 30, cfg.ExpiryHorizonDays)
	assert.Equal(t, 3*time.Second, cfg.DeliveryTimeout)
	assert.Equal(t, "Europe/Rome", cfg.Location.String())
	assert.False(t, cfg.MigrateOnStart)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.NoError(t, cfg.ValidateHTTP())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"missing database url": {"STORAGE_DRIVER": "postgres"},
		"unknown driver":       {"STORAGE_DRIVER": "mysql"},
		"negative horizon":     {"STORAGE_DRIVER": "memory", "EXPIRY_HORIZON_DAYS": "-1"},
		"bad chat id":          {"STORAGE_DRIVER": "memory", "OPS_TELEGRAM_CHAT_IDS": "ops"},
		"bad timeout":          {"STORAGE_DRIVER": "memory", "DISPATCH_TIMEOUT": "soon"},
		"zero timeout":         {"STORAGE_DRIVER": "memory", "DELIVERY_TIMEOUT": "0s"},
		"bad timezone":         {"STORAGE_DRIVER": "memory", "TIMEZONE": "Mars/Olympus"},
		"bad admin id":         {"STORAGE_DRIVER": "memory", "ADMIN_TELEGRAM_ID": "admin"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
