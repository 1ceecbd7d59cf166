package config

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := Load()

		assert.Equal(t, "0.0.0.0", cfg.ServerHost)
		assert.Equal(t, 8080, cfg.ServerPort)
		assert.Equal(t, "postgres", cfg.DBDriver)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, "keyguard", cfg.MetricsNamespace)
		assert.Equal(t, 8081, cfg.MetricsPort)
		assert.Equal(t, "memory", cfg.KMSProvider)
		assert.Equal(t, 90, cfg.KeyRotationIntervalDays)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "9090")
		t.Setenv("KMS_PROVIDER", "gocloud")
		t.Setenv("KMS_KEY_URI", "base64key://")
		t.Setenv("KEY_ROTATION_INTERVAL_DAYS", "30")

		cfg := Load()

		assert.Equal(t, 9090, cfg.ServerPort)
		assert.Equal(t, "gocloud", cfg.KMSProvider)
		assert.Equal(t, "base64key://", cfg.KMSKeyURI)
		assert.Equal(t, 30, cfg.KeyRotationIntervalDays)
	})
}

func TestGetGinMode(t *testing.T) {
	tests := []struct {
		logLevel string
		want     string
	}{
		{"debug", gin.DebugMode},
		{"info", gin.ReleaseMode},
		{"warn", gin.ReleaseMode},
		{"error", gin.ReleaseMode},
	}

	for _, tt := range tests {
		t.Run(tt.logLevel, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.logLevel}
			assert.Equal(t, tt.want, cfg.GetGinMode())
		})
	}
}
