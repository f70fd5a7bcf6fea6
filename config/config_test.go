package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, PlaceholderAppKey, cfg.AppKey)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APP_KEY", "12345")
	t.Setenv("APP_SECRET", "s3cret")
	t.Setenv("TRACKING_ID", "track")
	t.Setenv("AFFILIATE_ENV", "production")
	t.Setenv("AFFILIATE_REDIS_ADDR", "localhost:6379")
	t.Setenv("AFFILIATE_RATE_PER_SECOND", "1.5")
	t.Setenv("AFFILIATE_RATE_BURST", "nope")
	t.Setenv("AFFILIATE_MAX_CONCURRENT", "9")
	t.Setenv("PORT", "9090")

	cfg := DefaultConfig()
	cfg.LoadFromEnv()

	assert.Equal(t, "12345", cfg.AppKey)
	assert.Equal(t, "s3cret", cfg.AppSecret)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 1.5, cfg.RatePerSecond)
	assert.Equal(t, 5, cfg.RateBurst, "unparsable values keep the default")
	assert.Equal(t, 9, cfg.MaxConcurrent)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.True(t, cfg.IsProduction())
	assert.NoError(t, cfg.Validate())
}

func TestValidate_ProductionRejectsPlaceholders(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Env = "Production"
	cfg.AppSecret = "real"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APP_KEY")
	assert.Contains(t, err.Error(), "TRACKING_ID")
	assert.NotContains(t, err.Error(), "APP_SECRET")
}

func TestValidate_Ranges(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RatePerSecond = 0
	cfg.MaxConcurrent = 0
	cfg.DBPath = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate per second")
	assert.Contains(t, err.Error(), "max concurrent")
	assert.Contains(t, err.Error(), "database path")
}

func TestValidateBot(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.ValidateBot(), "placeholder is fine outside production")

	cfg.Env = EnvProduction
	assert.ErrorContains(t, cfg.ValidateBot(), "BOT_TOKEN")

	cfg.BotToken = ""
	assert.Error(t, cfg.ValidateBot())

	cfg.BotToken = "123:abc"
	assert.NoError(t, cfg.ValidateBot())
}
