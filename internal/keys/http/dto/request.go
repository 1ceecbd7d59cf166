// Package dto provides data transfer objects for key lifecycle HTTP handlers.
package dto

import (
	"fmt"

	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/finsec/keyguard/internal/crypto/domain"
	customValidation "github.com/finsec/keyguard/internal/validation"
)

// CreateKeyRequest contains the parameters for creating a business's key.
type CreateKeyRequest struct {
	BusinessID string `json:"businessId"`
	Algorithm  string `json:"algorithm"` // "aes-256-gcm" or "chacha20-poly1305"; defaults to aes-256-gcm
}

// Validate checks if the create key request is valid.
func (r *CreateKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.BusinessID,
			validation.Required,
			customValidation.NotBlank,
			customValidation.BusinessID,
			validation.Length(1, 255),
		),
		validation.Field(&r.Algorithm,
			validation.By(validateOptionalAlgorithm),
		),
	)
}

// RevokeKeyRequest contains the parameters for revoking a business's key.
type RevokeKeyRequest struct {
	Reason string `json:"reason"`
}

// Validate checks if the revoke key request is valid.
func (r *RevokeKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Reason,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 1024),
		),
	)
}

// validateOptionalAlgorithm accepts an empty algorithm (the default applies)
// or one of the supported names.
func validateOptionalAlgorithm(value interface{}) error {
	alg, ok := value.(string)
	if !ok {
		return validation.NewError("validation_algorithm_type", "must be a string")
	}
	if alg == "" {
		return nil
	}

	_, err := ParseAlgorithm(alg)
	return err
}

// ParseAlgorithm converts a string to a cryptoDomain.Algorithm.
func ParseAlgorithm(alg string) (cryptoDomain.Algorithm, error) {
	switch alg {
	case "", string(cryptoDomain.AESGCM):
		return cryptoDomain.AESGCM, nil
	case string(cryptoDomain.ChaCha20):
		return cryptoDomain.ChaCha20, nil
	default:
		return "", fmt.Errorf("invalid algorithm: must be %q or %q", cryptoDomain.AESGCM, cryptoDomain.ChaCha20)
	}
}
