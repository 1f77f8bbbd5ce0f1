package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	Port     string
	LogLevel string

	MongoURI string
	DBName   string

	JWTSecret string

	// CatalogPath points at a YAML question catalog; empty uses the built-in one.
	CatalogPath string
	// OutboxPath enables the local sqlite fallback for failed profile saves.
	OutboxPath           string
	OutboxReplayInterval time.Duration
	FinalizeTimeout      time.Duration

	ResendAPIKey string
	FromEmail    string
}

// Load reads .env (if any) and then the process environment.
func Load() (Config, error) {
	// Missing .env is fine; production sets env vars directly.
	_ = godotenv.Load()

	c := Config{
		Env:          getEnv("APP_ENV", "development"),
		Port:         getEnv("PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		MongoURI:     getEnv("MONGODB_URI", ""),
		DBName:       getEnv("DB_NAME", "ezeatin"),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		CatalogPath:  getEnv("CATALOG_PATH", ""),
		OutboxPath:   getEnv("OUTBOX_PATH", ""),
		ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		FromEmail:    getEnv("FROM_EMAIL", "EZ Eatin' <hello@ezeatin.app>"),
	}

	var err error
	if c.OutboxReplayInterval, err = getDuration("OUTBOX_REPLAY_INTERVAL", time.Minute); err != nil {
		return Config{}, err
	}
	if c.FinalizeTimeout, err = getDuration("FINALIZE_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the settings required to serve requests.
func (c Config) Validate() error {
	var errs []error
	if c.MongoURI == "" {
		errs = append(errs, errors.New("MONGODB_URI is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	return errors.Join(errs...)
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
