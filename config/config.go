package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Placeholder credentials used when nothing is configured. They let the CLI
// start for local exploration but are rejected in production.
const (
	PlaceholderAppKey     = "YOUR_APP_KEY"
	PlaceholderAppSecret  = "YOUR_APP_SECRET"
	PlaceholderTrackingID = "YOUR_TRACKING_ID"
	PlaceholderBotToken   = "YOUR_BOT_TOKEN"
)

const EnvProduction = "production"

// Config holds all application configuration.
type Config struct {
	Env string // "development" or "production"

	// Gateway credentials
	AppKey     string
	AppSecret  string
	TrackingID string
	GatewayURL string
	BotToken   string

	// Catalog defaults
	Currency string
	Language string

	// Storage
	DBPath    string
	RedisAddr string // empty keeps chat sessions in memory

	// Rate limiting
	RatePerSecond float64
	RateBurst     int
	MaxConcurrent int
	ProxyURL      string

	// Logging
	LogLevel  string
	LogFormat string // "console" or "json"

	// HTTP server
	HTTPPort string
	APIKey   string
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Env:           "development",
		AppKey:        PlaceholderAppKey,
		AppSecret:     PlaceholderAppSecret,
		TrackingID:    PlaceholderTrackingID,
		BotToken:      PlaceholderBotToken,
		Currency:      "USD",
		Language:      "AR",
		DBPath:        "affiliate_bot.db",
		RatePerSecond: 5.0,
		RateBurst:     5,
		MaxConcurrent: 5,
		LogLevel:      "info",
		LogFormat:     "console",
		HTTPPort:      "8080",
	}
}

// LoadFromEnv loads .env file (if present) then overrides config from environment variables.
func (c *Config) LoadFromEnv() {
	// Auto-load .env file; silently ignored if missing
	_ = godotenv.Load()

	setString(&c.AppKey, "APP_KEY")
	setString(&c.AppSecret, "APP_SECRET")
	setString(&c.TrackingID, "TRACKING_ID")
	setString(&c.BotToken, "BOT_TOKEN")
	setString(&c.GatewayURL, "AFFILIATE_GATEWAY_URL")
	setString(&c.Env, "AFFILIATE_ENV")
	setString(&c.DBPath, "AFFILIATE_DB_PATH")
	setString(&c.RedisAddr, "AFFILIATE_REDIS_ADDR")
	setString(&c.Currency, "AFFILIATE_CURRENCY")
	setString(&c.Language, "AFFILIATE_LANGUAGE")
	setString(&c.ProxyURL, "AFFILIATE_PROXY_URL")
	setString(&c.LogLevel, "AFFILIATE_LOG_LEVEL")
	setString(&c.LogFormat, "AFFILIATE_LOG_FORMAT")
	setString(&c.HTTPPort, "PORT")
	setString(&c.APIKey, "AFFILIATE_API_KEY")

	if v := os.Getenv("AFFILIATE_RATE_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RatePerSecond = f
		}
	}
	if v := os.Getenv("AFFILIATE_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateBurst = n
		}
	}
	if v := os.Getenv("AFFILIATE_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxConcurrent = n
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// IsProduction reports whether Env is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, EnvProduction)
}

// Validate checks value ranges, and in production rejects placeholder credentials.
func (c *Config) Validate() error {
	var errs []error
	if c.RatePerSecond <= 0 {
		errs = append(errs, fmt.Errorf("rate per second must be positive, got %v", c.RatePerSecond))
	}
	if c.RateBurst < 1 {
		errs = append(errs, fmt.Errorf("rate burst must be at least 1, got %d", c.RateBurst))
	}
	if c.MaxConcurrent < 1 {
		errs = append(errs, fmt.Errorf("max concurrent must be at least 1, got %d", c.MaxConcurrent))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("database path is empty"))
	}

	if c.IsProduction() {
		placeholders := map[string][2]string{
			"APP_KEY":     {c.AppKey, PlaceholderAppKey},
			"APP_SECRET":  {c.AppSecret, PlaceholderAppSecret},
			"TRACKING_ID": {c.TrackingID, PlaceholderTrackingID},
		}
		for _, name := range []string{"APP_KEY", "APP_SECRET", "TRACKING_ID"} {
			v := placeholders[name]
			if v[0] == "" || v[0] == v[1] {
				errs = append(errs, fmt.Errorf("%s must be set in production", name))
			}
		}
	}
	return errors.Join(errs...)
}

// ValidateBot checks the bot credential for commands that talk to chat users.
// Outside production the placeholder is accepted.
func (c *Config) ValidateBot() error {
	if c.IsProduction() && (c.BotToken == "" || c.BotToken == PlaceholderBotToken) {
		return errors.New("BOT_TOKEN must be set in production")
	}
	return nil
}
