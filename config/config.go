package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"career-progress-service/utils"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port           string
	DatabaseDriver string
	DatabaseURL    string
	ServiceToken   string
	AllowedOrigins []string
	AuthServiceURL string
	Timezone       string
	LogLevel       string

	CatalogSyncURL      string
	CatalogSyncInterval time.Duration
	StreakDecayCron     string

	R2 utils.R2Config
}

// Load reads .env (if present) and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", "5200")
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("APP_TIMEZONE", "Local")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CATALOG_SYNC_INTERVAL", "10m")
	v.SetDefault("STREAK_DECAY_CRON", "5 0 * * *")

	return Config{
		Port:           v.GetString("PORT"),
		DatabaseDriver: strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		ServiceToken:   v.GetString("SERVICE_TOKEN"),
		AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		AuthServiceURL: v.GetString("AUTH_SERVICE_URL"),
		Timezone:       v.GetString("APP_TIMEZONE"),
		LogLevel:       v.GetString("LOG_LEVEL"),

		CatalogSyncURL:      v.GetString("CATALOG_SYNC_URL"),
		CatalogSyncInterval: durationOr(v.GetString("CATALOG_SYNC_INTERVAL"), 10*time.Minute),
		StreakDecayCron:     v.GetString("STREAK_DECAY_CRON"),

		R2: utils.R2Config{
			AccountID:       v.GetString("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     v.GetString("R2_ACCESS_KEY_ID"),
			AccessKeySecret: v.GetString("R2_ACCESS_KEY_SECRET"),
			Bucket:          v.GetString("R2_BUCKET_NAME"),
			CDNBaseURL:      v.GetString("CDN_BASE_URL"),
		},
	}
}

// Validate reports every missing or malformed required setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.ServiceToken == "" {
		errs = append(errs, errors.New("SERVICE_TOKEN is required"))
	}
	switch c.DatabaseDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	case "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER %q is not supported", c.DatabaseDriver))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location resolves APP_TIMEZONE; it decides which calendar day a request falls on.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SQLitePath is the file used when DATABASE_DRIVER=sqlite and no DATABASE_URL is set.
func (c Config) SQLitePath() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return "progress.db"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func durationOr(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
