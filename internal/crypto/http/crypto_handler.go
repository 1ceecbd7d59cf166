// Package http provides HTTP handlers for envelope and field encryption.
package http

import (
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finsec/keyguard/internal/crypto/http/dto"
	cryptoService "github.com/finsec/keyguard/internal/crypto/service"
	"github.com/finsec/keyguard/internal/httputil"
	customValidation "github.com/finsec/keyguard/internal/validation"
)

// CryptoHandler handles HTTP requests for envelope and field encryption.
type CryptoHandler struct {
	encryptionService cryptoService.EncryptionService
	logger            *slog.Logger
}

// NewCryptoHandler creates a new crypto handler.
func NewCryptoHandler(encryptionService cryptoService.EncryptionService, logger *slog.Logger) *CryptoHandler {
	return &CryptoHandler{
		encryptionService: encryptionService,
		logger:            logger,
	}
}

// EncryptHandler envelope-encrypts a base64 plaintext under a key.
// POST /v1/encrypt - Returns 200 OK with the envelope.
func (h *CryptoHandler) EncryptHandler(c *gin.Context) {
	var req dto.EncryptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	plaintext, err := base64.StdEncoding.DecodeString(req.Plaintext)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	envelope, err := h.encryptionService.Encrypt(c.Request.Context(), plaintext, req.KeyID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.EncryptResponse{Envelope: envelope})
}

// DecryptHandler reverses EncryptHandler.
// POST /v1/decrypt - Returns 200 OK with the base64 plaintext.
func (h *CryptoHandler) DecryptHandler(c *gin.Context) {
	var req dto.DecryptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	plaintext, err := h.encryptionService.Decrypt(c.Request.Context(), req.Envelope)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.DecryptResponse{
		Plaintext: base64.StdEncoding.EncodeToString(plaintext),
	})
}

// EncryptFieldHandler encrypts one field value into an opaque string.
// POST /v1/encrypt-field - Returns 200 OK with the opaque data.
func (h *CryptoHandler) EncryptFieldHandler(c *gin.Context) {
	var req dto.EncryptFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	value, err := req.FieldValue()
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	ctx := c.Request.Context()
	var opaque string
	if req.BusinessID != "" {
		opaque, err = h.encryptionService.EncryptFieldForBusiness(ctx, value, req.FieldType, req.BusinessID)
	} else {
		opaque, err = h.encryptionService.EncryptField(ctx, value, req.FieldType, req.KeyID)
	}
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.EncryptFieldResponse{Data: opaque})
}

// DecryptFieldHandler reverses EncryptFieldHandler.
// POST /v1/decrypt-field - Returns 200 OK with the original value.
func (h *CryptoHandler) DecryptFieldHandler(c *gin.Context) {
	var req dto.DecryptFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	value, err := h.encryptionService.DecryptField(c.Request.Context(), req.Data, req.FieldType)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response, err := dto.MapFieldValueToResponse(value)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, response)
}
