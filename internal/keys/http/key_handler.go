// Package http provides HTTP handlers for key lifecycle operations.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/finsec/keyguard/internal/httputil"
	"github.com/finsec/keyguard/internal/keys/http/dto"
	keysUsecase "github.com/finsec/keyguard/internal/keys/usecase"
	customValidation "github.com/finsec/keyguard/internal/validation"
)

// KeyHandler handles HTTP requests for key lifecycle management.
type KeyHandler struct {
	keyManager keysUsecase.KeyManager
	logger     *slog.Logger
}

// NewKeyHandler creates a new key handler.
func NewKeyHandler(keyManager keysUsecase.KeyManager, logger *slog.Logger) *KeyHandler {
	return &KeyHandler{
		keyManager: keyManager,
		logger:     logger,
	}
}

// CreateHandler creates version 1 of a business's key.
// POST /v1/keys - Returns 201 Created with key metadata.
func (h *KeyHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	alg, err := dto.ParseAlgorithm(req.Algorithm)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	key, err := h.keyManager.CreateKey(c.Request.Context(), req.BusinessID, alg)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapKeyToResponse(key))
}

// GetHandler returns a business's active key.
// GET /v1/keys/:business_id - Returns 200 OK with key metadata.
func (h *KeyHandler) GetHandler(c *gin.Context) {
	businessID := c.Param("business_id")

	key, err := h.keyManager.GetKey(c.Request.Context(), businessID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapKeyToResponse(key))
}

// ListHandler returns every key version across all businesses.
// GET /v1/keys - Returns 200 OK with the key list.
func (h *KeyHandler) ListHandler(c *gin.Context) {
	keys, err := h.keyManager.ListKeys(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapKeysToResponse(keys))
}

// RotateHandler rotates a business's key to a new version.
// POST /v1/keys/:business_id/rotate - Returns 200 OK with the new version.
func (h *KeyHandler) RotateHandler(c *gin.Context) {
	businessID := c.Param("business_id")

	key, err := h.keyManager.RotateKey(c.Request.Context(), businessID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapKeyToResponse(key))
}

// RevokeHandler revokes every version of a business's key.
// POST /v1/keys/:business_id/revoke - Returns 204 No Content.
func (h *KeyHandler) RevokeHandler(c *gin.Context) {
	businessID := c.Param("business_id")

	var req dto.RevokeKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if err := h.keyManager.RevokeKey(c.Request.Context(), businessID, req.Reason); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// VersionHistoryHandler returns a business's key versions, oldest first.
// GET /v1/keys/:business_id/versions - Returns 200 OK with the version list.
func (h *KeyHandler) VersionHistoryHandler(c *gin.Context) {
	businessID := c.Param("business_id")

	keys, err := h.keyManager.GetKeyVersionHistory(c.Request.Context(), businessID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapKeysToResponse(keys))
}

// VersionHandler returns a specific version of a business's key.
// GET /v1/keys/:business_id/versions/:version - Returns 200 OK with key metadata.
func (h *KeyHandler) VersionHandler(c *gin.Context) {
	businessID := c.Param("business_id")

	version, err := strconv.ParseUint(c.Param("version"), 10, 32)
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid version: must be a positive integer"), h.logger)
		return
	}

	key, err := h.keyManager.GetKeyByVersion(c.Request.Context(), businessID, uint(version))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapKeyToResponse(key))
}

// NeedsRotationHandler reports whether a business's key has expired.
// GET /v1/keys/:business_id/needs-rotation - Returns 200 OK.
func (h *KeyHandler) NeedsRotationHandler(c *gin.Context) {
	businessID := c.Param("business_id")

	needed, err := h.keyManager.NeedsRotation(c.Request.Context(), businessID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.NeedsRotationResponse{
		BusinessID:    businessID,
		NeedsRotation: needed,
	})
}

// RotationSweepHandler rotates every expired key across all businesses.
// POST /v1/keys/rotation-sweep - Returns 200 OK with the rotation count.
func (h *KeyHandler) RotationSweepHandler(c *gin.Context) {
	rotated, err := h.keyManager.CheckAndRotateBusinessKeys(c.Request.Context())
	if err != nil {
		// Partial failures still rotated some keys; report the error but log
		// the progress made.
		h.logger.Warn("rotation sweep completed with errors",
			slog.Int("rotated", rotated),
			slog.Any("error", err),
		)
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.RotationSweepResponse{Rotated: rotated})
}
