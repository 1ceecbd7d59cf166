package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/finsec/keyguard/internal/crypto/domain"
	"github.com/finsec/keyguard/internal/database"
	"github.com/finsec/keyguard/internal/keys/http/dto"
	keysRepository "github.com/finsec/keyguard/internal/keys/repository"
	keysUsecase "github.com/finsec/keyguard/internal/keys/usecase"
	kmsService "github.com/finsec/keyguard/internal/kms/service"
)

func newTestRouter(t *testing.T) (*gin.Engine, keysUsecase.KeyManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provider := kmsService.NewMemoryProvider()
	t.Cleanup(provider.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := keysUsecase.NewKeyUseCase(
		database.NoopTxManager{},
		keysRepository.NewMemoryKeyRepository(),
		provider,
		time.Hour,
		logger,
	)

	handler := NewKeyHandler(manager, logger)

	router := gin.New()
	v1 := router.Group("/v1")
	v1.POST("/keys", handler.CreateHandler)
	v1.GET("/keys", handler.ListHandler)
	v1.POST("/keys/rotation-sweep", handler.RotationSweepHandler)
	v1.GET("/keys/:business_id", handler.GetHandler)
	v1.POST("/keys/:business_id/rotate", handler.RotateHandler)
	v1.POST("/keys/:business_id/revoke", handler.RevokeHandler)
	v1.GET("/keys/:business_id/versions", handler.VersionHistoryHandler)
	v1.GET("/keys/:business_id/versions/:version", handler.VersionHandler)
	v1.GET("/keys/:business_id/needs-rotation", handler.NeedsRotationHandler)

	return router, manager
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func TestKeyHandlerCreate(t *testing.T) {
	t.Run("creates a key", func(t *testing.T) {
		router, _ := newTestRouter(t)

		recorder := doJSON(t, router, http.MethodPost, "/v1/keys", gin.H{
			"businessId": "business-1",
			"algorithm":  "aes-256-gcm",
		})

		require.Equal(t, http.StatusCreated, recorder.Code)

		var response dto.KeyResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		assert.Equal(t, "business-1", response.BusinessID)
		assert.Equal(t, uint(1), response.Version)
		assert.Equal(t, "active", response.Status)
	})

	t.Run("rejects blank business id", func(t *testing.T) {
		router, _ := newTestRouter(t)

		recorder := doJSON(t, router, http.MethodPost, "/v1/keys", gin.H{"businessId": "  "})
		assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	})

	t.Run("rejects unknown algorithm", func(t *testing.T) {
		router, _ := newTestRouter(t)

		recorder := doJSON(t, router, http.MethodPost, "/v1/keys", gin.H{
			"businessId": "business-1",
			"algorithm":  "rot13",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	})

	t.Run("duplicate business conflicts", func(t *testing.T) {
		router, _ := newTestRouter(t)

		doJSON(t, router, http.MethodPost, "/v1/keys", gin.H{"businessId": "business-1"})
		recorder := doJSON(t, router, http.MethodPost, "/v1/keys", gin.H{"businessId": "business-1"})
		assert.Equal(t, http.StatusConflict, recorder.Code)
	})
}

func TestKeyHandlerGet(t *testing.T) {
	t.Run("returns active key", func(t *testing.T) {
		router, manager := newTestRouter(t)
		_, err := manager.CreateKey(context.Background(), "business-1", cryptoDomain.AESGCM)
		require.NoError(t, err)

		recorder := doJSON(t, router, http.MethodGet, "/v1/keys/business-1", nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		var response dto.KeyResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		assert.Equal(t, "active", response.Status)
		assert.NotContains(t, recorder.Body.String(), "masterKeyId")
	})

	t.Run("missing business", func(t *testing.T) {
		router, _ := newTestRouter(t)

		recorder := doJSON(t, router, http.MethodGet, "/v1/keys/nobody", nil)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})
}

func TestKeyHandlerRotateAndVersions(t *testing.T) {
	router, manager := newTestRouter(t)
	_, err := manager.CreateKey(context.Background(), "business-1", cryptoDomain.AESGCM)
	require.NoError(t, err)

	recorder := doJSON(t, router, http.MethodPost, "/v1/keys/business-1/rotate", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var rotated dto.KeyResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &rotated))
	assert.Equal(t, uint(2), rotated.Version)

	recorder = doJSON(t, router, http.MethodGet, "/v1/keys/business-1/versions", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var history dto.ListKeysResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &history))
	require.Len(t, history.Keys, 2)
	assert.Equal(t, "deprecated", history.Keys[0].Status)
	assert.Equal(t, "active", history.Keys[1].Status)

	recorder = doJSON(t, router, http.MethodGet, "/v1/keys/business-1/versions/1", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doJSON(t, router, http.MethodGet, "/v1/keys/business-1/versions/not-a-number", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
}

func TestKeyHandlerRevoke(t *testing.T) {
	t.Run("revokes with reason", func(t *testing.T) {
		router, manager := newTestRouter(t)
		_, err := manager.CreateKey(context.Background(), "business-1", cryptoDomain.AESGCM)
		require.NoError(t, err)

		recorder := doJSON(t, router, http.MethodPost, "/v1/keys/business-1/revoke", gin.H{
			"reason": "suspected compromise",
		})
		require.Equal(t, http.StatusNoContent, recorder.Code)

		recorder = doJSON(t, router, http.MethodGet, "/v1/keys/business-1", nil)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("requires a reason", func(t *testing.T) {
		router, manager := newTestRouter(t)
		_, err := manager.CreateKey(context.Background(), "business-1", cryptoDomain.AESGCM)
		require.NoError(t, err)

		recorder := doJSON(t, router, http.MethodPost, "/v1/keys/business-1/revoke", gin.H{})
		assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	})
}

func TestKeyHandlerRotationEndpoints(t *testing.T) {
	router, manager := newTestRouter(t)
	_, err := manager.CreateKey(context.Background(), "business-1", cryptoDomain.AESGCM)
	require.NoError(t, err)

	recorder := doJSON(t, router, http.MethodGet, "/v1/keys/business-1/needs-rotation", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var needs dto.NeedsRotationResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &needs))
	assert.False(t, needs.NeedsRotation)

	recorder = doJSON(t, router, http.MethodPost, "/v1/keys/rotation-sweep", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var sweep dto.RotationSweepResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &sweep))
	assert.Zero(t, sweep.Rotated)
}
