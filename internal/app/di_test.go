package app

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsec/keyguard/internal/config"
	cryptoDomain "github.com/finsec/keyguard/internal/crypto/domain"
	"github.com/finsec/keyguard/internal/database"
)

// memoryConfig returns a configuration that needs no external services.
func memoryConfig() *config.Config {
	return &config.Config{
		ServerHost:              "localhost",
		ServerPort:              8080,
		LogLevel:                "info",
		MetricsEnabled:          true,
		MetricsNamespace:        "keyguard_test",
		MetricsPort:             8081,
		KMSProvider:             "memory",
		KeyRepository:           "memory",
		KeyRotationIntervalDays: 90,
	}
}

func TestNewContainer(t *testing.T) {
	cfg := memoryConfig()
	container := NewContainer(cfg)

	require.NotNil(t, container)
	assert.Same(t, cfg, container.Config())
}

func TestContainerLogger(t *testing.T) {
	container := NewContainer(memoryConfig())

	logger := container.Logger()
	require.NotNil(t, logger)

	// Calling Logger() again should return the same instance (singleton)
	assert.Same(t, logger, container.Logger())
}

func TestContainerMemoryBackends(t *testing.T) {
	container := NewContainer(memoryConfig())
	t.Cleanup(func() {
		require.NoError(t, container.Shutdown(context.Background()))
	})

	txManager, err := container.TxManager()
	require.NoError(t, err)
	assert.IsType(t, database.NoopTxManager{}, txManager)

	provider, err := container.KMSProvider()
	require.NoError(t, err)
	require.NotNil(t, provider)

	repo, err := container.KeyRepository()
	require.NoError(t, err)
	require.NotNil(t, repo)
}

func TestContainerKeyManagerAndEncryption(t *testing.T) {
	container := NewContainer(memoryConfig())
	t.Cleanup(func() {
		require.NoError(t, container.Shutdown(context.Background()))
	})

	keyManager, err := container.KeyManager()
	require.NoError(t, err)

	encryptionService, err := container.EncryptionService()
	require.NoError(t, err)

	ctx := context.Background()
	key, err := keyManager.CreateKey(ctx, "business-1", cryptoDomain.AESGCM)
	require.NoError(t, err)

	envelope, err := encryptionService.Encrypt(ctx, []byte("wired together"), key.ID.String())
	require.NoError(t, err)

	plaintext, err := encryptionService.Decrypt(ctx, envelope)
	require.NoError(t, err)
	assert.Equal(t, "wired together", string(plaintext))

	// Envelope fields must be valid base64
	_, err = base64.StdEncoding.DecodeString(envelope.IV)
	require.NoError(t, err)
}

func TestContainerHTTPServer(t *testing.T) {
	gin.SetMode(gin.TestMode)

	container := NewContainer(memoryConfig())
	t.Cleanup(func() {
		require.NoError(t, container.Shutdown(context.Background()))
	})

	server, err := container.HTTPServer()
	require.NoError(t, err)
	require.NotNil(t, server)
	require.NotNil(t, server.GetRouter())

	metricsServer, err := container.MetricsServer()
	require.NoError(t, err)
	require.NotNil(t, metricsServer)
}

func TestContainerMetricsDisabled(t *testing.T) {
	cfg := memoryConfig()
	cfg.MetricsEnabled = false
	container := NewContainer(cfg)

	provider, err := container.MetricsProvider()
	require.NoError(t, err)
	assert.Nil(t, provider)

	businessMetrics, err := container.BusinessMetrics()
	require.NoError(t, err)
	require.NotNil(t, businessMetrics)

	metricsServer, err := container.MetricsServer()
	require.NoError(t, err)
	assert.Nil(t, metricsServer)
}

func TestContainerInitializationErrors(t *testing.T) {
	cfg := memoryConfig()
	cfg.KMSProvider = "invalid_provider"
	container := NewContainer(cfg)

	_, err := container.KMSProvider()
	require.Error(t, err)

	// The stored error must be returned on subsequent calls too.
	_, err = container.KMSProvider()
	require.Error(t, err)

	_, err = container.KeyManager()
	require.Error(t, err)
}

func TestContainerGocloudRequiresKeyURI(t *testing.T) {
	cfg := memoryConfig()
	cfg.KMSProvider = "gocloud"
	cfg.KMSKeyURI = ""
	container := NewContainer(cfg)

	_, err := container.KMSProvider()
	require.Error(t, err)
}

func TestContainerUnsupportedDatabaseDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.KeyRepository = "sql"
	cfg.DBDriver = "invalid_driver"
	cfg.DBConnectionString = "invalid"
	cfg.DBConnMaxLifetime = time.Minute
	container := NewContainer(cfg)

	_, err := container.KeyRepository()
	require.Error(t, err)
}
