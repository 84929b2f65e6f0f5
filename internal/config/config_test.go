package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:          "8080",
		Env:           "development",
		JWTSecret:     "secure-secret-at-least-32-chars-long",
		MongoURI:      "mongodb://localhost:27017",
		MongoDatabase: "harfzaar",
		UploadMaxMB:   10,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"valid development", func(*Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"missing mongo uri", func(c *Config) { c.MongoURI = "" }, true},
		{"missing database", func(c *Config) { c.MongoDatabase = "" }, true},
		{"zero upload size", func(c *Config) { c.UploadMaxMB = 0 }, true},
		{"short secret in development", func(c *Config) { c.JWTSecret = "short" }, false},
		{"production default secret", func(c *Config) {
			c.Env = "production"
			c.JWTSecret = defaultJWTSecret
		}, true},
		{"production short secret", func(c *Config) {
			c.Env = "prod"
			c.JWTSecret = "short"
		}, true},
		{"production wildcard cors", func(c *Config) {
			c.Env = "production"
			c.AllowedOrigins = "*"
		}, true},
		{"production ok", func(c *Config) {
			c.Env = "production"
			c.AllowedOrigins = "https://harfzaar.pk"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_FeatureToggles(t *testing.T) {
	c := validConfig()
	assert.False(t, c.AIEnabled())
	assert.False(t, c.MailEnabled())

	c.GeminiAPIKey = "key"
	c.SMTPHost = "smtp.example.com"
	c.SMTPFrom = "noreply@example.com"
	assert.True(t, c.AIEnabled())
	assert.True(t, c.MailEnabled())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("PORT", "9999")
	t.Setenv("MONGODB_DATABASE", "harfzaar_test")
	t.Setenv("QAAFIA_CACHE_TTL", "90s")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9999", c.Port)
	assert.Equal(t, "harfzaar_test", c.MongoDatabase)
	assert.Equal(t, 90*time.Second, c.QaafiaCacheTTL)
	assert.Equal(t, time.Hour, c.JWTTTL)
	assert.Equal(t, 10, c.UploadMaxMB)
}
