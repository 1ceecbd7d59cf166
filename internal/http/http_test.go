package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/finsec/keyguard/internal/crypto/domain"
	cryptoHTTP "github.com/finsec/keyguard/internal/crypto/http"
	cryptoService "github.com/finsec/keyguard/internal/crypto/service"
	"github.com/finsec/keyguard/internal/database"
	keysHTTP "github.com/finsec/keyguard/internal/keys/http"
	keysRepository "github.com/finsec/keyguard/internal/keys/repository"
	keysUsecase "github.com/finsec/keyguard/internal/keys/usecase"
	kmsService "github.com/finsec/keyguard/internal/kms/service"
	"github.com/finsec/keyguard/internal/metrics"
)

// TestMain sets Gin to test mode for all tests in this package.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createTestServer creates an in-memory-backed server with the full route
// table installed and rate limiting disabled.
func createTestServer(t *testing.T) *Server {
	t.Helper()

	logger := testLogger()

	provider := kmsService.NewMemoryProvider()
	t.Cleanup(provider.Close)

	manager := keysUsecase.NewKeyUseCase(
		database.NoopTxManager{},
		keysRepository.NewMemoryKeyRepository(),
		provider,
		time.Hour,
		logger,
	)
	encryptionService := cryptoService.NewEncryptionService(
		provider,
		cryptoService.NewAEADManager(),
		manager,
		manager,
	)

	server := NewServer(nil, "localhost", 8080, logger)
	server.SetupRouter(RouterConfig{
		KeyHandler:    keysHTTP.NewKeyHandler(manager, logger),
		CryptoHandler: cryptoHTTP.NewCryptoHandler(encryptionService, logger),
	})

	return server
}

func TestHealthHandler(t *testing.T) {
	server := createTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	server.GetRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
}

func TestReadinessHandler_NoDatabase(t *testing.T) {
	server := createTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	server.GetRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ready", response["status"])

	components, ok := response["components"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "disabled", components["database"])
}

func TestRouter_KeyRoutesInstalled(t *testing.T) {
	server := createTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/keys", nil)
	server.GetRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_NotFoundEndpoint(t *testing.T) {
	server := createTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	server.GetRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_NoMetricsEndpoint(t *testing.T) {
	server := createTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	server.GetRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCustomLoggerMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(CustomLoggerMiddleware(testLogger()))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "test"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDMiddleware_HeaderPresent(t *testing.T) {
	server := createTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	server.GetRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestRateLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(1.0, 1, testLogger()))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "test"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Burst of 1 is spent, second request must be rejected.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestParseOrigins(t *testing.T) {
	assert.Nil(t, parseOrigins(""))
	assert.Equal(t,
		[]string{"https://a.example.com", "https://b.example.com"},
		parseOrigins(" https://a.example.com , https://b.example.com ,, "),
	)
}

func TestCreateCORSMiddleware(t *testing.T) {
	logger := testLogger()

	assert.Nil(t, createCORSMiddleware(false, "https://a.example.com", logger))
	assert.Nil(t, createCORSMiddleware(true, "", logger))
	assert.NotNil(t, createCORSMiddleware(true, "https://a.example.com", logger))
}

func TestRotateEndToEnd(t *testing.T) {
	server := createTestServer(t)

	body := `{"businessId":"business-1","algorithm":"aes-256-gcm"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/keys", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	server.GetRouter().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/keys/business-1/rotate", nil)
	server.GetRouter().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(cryptoDomain.AESGCM))
}

func TestMetricsServer_Endpoints(t *testing.T) {
	logger := testLogger()

	provider, err := metrics.NewProvider("test_app")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	metricsServer := NewMetricsServer("localhost", 8081, logger, provider)
	require.NotNil(t, metricsServer)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metricsServer.GetHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
