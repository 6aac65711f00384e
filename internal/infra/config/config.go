package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	StorageDriver  string
	DatabaseURL    string
	MigrateOnStart bool

	TelegramToken      string
	OpsTelegramChatIDs []int64
	AdminTelegramID    int64

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	LogLevel    string
	Environment string

	ExpiryHorizonDays      int
	CronSpecExpiryDispatch string
	DispatchTimeout        time.Duration
	DeliveryTimeout        time.Duration
	Location               *time.Location

	HTTPAddr string
	APIToken string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load does not override variables that are already set.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.StorageDriver = strings.ToLower(envOr("STORAGE_DRIVER", DriverPostgres))
	switch cfg.StorageDriver {
	case DriverPostgres:
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set")
		}
	case DriverMemory:
	default:
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q: expected postgres or memory", cfg.StorageDriver)
	}

	if cfg.MigrateOnStart, err = boolEnv("MIGRATE_ON_START", true); err != nil {
		return nil, err
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.OpsTelegramChatIDs, err = int64List("OPS_TELEGRAM_CHAT_IDS"); err != nil {
		return nil, err
	}
	if adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID"); adminIDStr != "" {
		cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	if cfg.SMTPPort, err = intEnv("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
	cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	cfg.SMTPFrom = os.Getenv("SMTP_FROM")

	cfg.LogLevel = strings.ToLower(envOr("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(envOr("ENVIRONMENT", "development"))

	if cfg.ExpiryHorizonDays, err = intEnv("EXPIRY_HORIZON_DAYS", 7); err != nil {
		return nil, err
	}
	if cfg.ExpiryHorizonDays < 0 {
		return nil, fmt.Errorf("invalid EXPIRY_HORIZON_DAYS: must not be negative, got %d", cfg.ExpiryHorizonDays)
	}
	cfg.CronSpecExpiryDispatch = envOr("CRON_SPEC_EXPIRY_DISPATCH", "0 8 * * *") // 08:00 daily
	if cfg.DispatchTimeout, err = durationEnv("DISPATCH_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.DeliveryTimeout, err = durationEnv("DELIVERY_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	cfg.Location, err = time.LoadLocation(envOr("TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	cfg.HTTPAddr = envOr("HTTP_ADDR", ":8080")
	cfg.APIToken = os.Getenv("API_TOKEN")

	return cfg, nil
}

// TelegramEnabled reports whether a bot token was configured.
func (c *AppConfig) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

// MailEnabled reports whether an SMTP relay was configured.
func (c *AppConfig) MailEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// ValidateHTTP checks the settings the HTTP API cannot start without.
func (c *AppConfig) ValidateHTTP() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR is not set")
	}
	if c.APIToken == "" {
		return fmt.Errorf("API_TOKEN is not set")
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func boolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive, got %s", key, v)
	}
	return v, nil
}

func int64List(key string) ([]int64, error) {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q: %w", key, p, err)
		}
		out = append(out, id)
	}
	return out, nil
}
