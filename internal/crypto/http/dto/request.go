// Package dto provides data transfer objects for encryption HTTP handlers.
package dto

import (
	"encoding/json"

	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/finsec/keyguard/internal/crypto/domain"
	customValidation "github.com/finsec/keyguard/internal/validation"
)

// EncryptRequest contains the parameters for envelope encryption.
type EncryptRequest struct {
	Plaintext string `json:"plaintext"` // Base64-encoded plaintext
	KeyID     string `json:"keyId"`
}

// Validate checks if the encrypt request is valid.
func (r *EncryptRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Plaintext,
			validation.Required,
			customValidation.Base64,
		),
		validation.Field(&r.KeyID,
			validation.Required,
			customValidation.NotBlank,
		),
	)
}

// DecryptRequest carries a full envelope back for decryption.
type DecryptRequest struct {
	Envelope cryptoDomain.EncryptedData `json:"envelope"`
}

// Validate checks if the decrypt request is valid.
func (r *DecryptRequest) Validate() error {
	return validation.ValidateStruct(&r.Envelope,
		validation.Field(&r.Envelope.Ciphertext, validation.Required),
		validation.Field(&r.Envelope.KeyID, validation.Required),
		validation.Field(&r.Envelope.IV, validation.Required),
		validation.Field(&r.Envelope.Tag, validation.Required),
	)
}

// EncryptFieldRequest contains the parameters for field-level encryption.
// Exactly one of KeyID and BusinessID must be set: BusinessID resolves the
// tenant's active key, KeyID targets a key directly.
type EncryptFieldRequest struct {
	Value      json.RawMessage `json:"value"`
	FieldType  string          `json:"fieldType"`
	KeyID      string          `json:"keyId,omitempty"`
	BusinessID string          `json:"businessId,omitempty"`
}

// Validate checks if the encrypt field request is valid.
func (r *EncryptFieldRequest) Validate() error {
	if err := validation.ValidateStruct(r,
		validation.Field(&r.Value, validation.Required),
		validation.Field(&r.FieldType,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 255),
		),
	); err != nil {
		return err
	}

	if (r.KeyID == "") == (r.BusinessID == "") {
		return validation.NewError(
			"validation_key_selector",
			"exactly one of keyId and businessId must be set",
		)
	}
	return nil
}

// FieldValue converts the request's JSON value into the tagged field variant:
// JSON strings pass through as strings, everything else stays JSON.
func (r *EncryptFieldRequest) FieldValue() (cryptoDomain.FieldValue, error) {
	var s string
	if err := json.Unmarshal(r.Value, &s); err == nil {
		return cryptoDomain.NewStringFieldValue(s), nil
	}
	return cryptoDomain.FieldValue{
		Kind: cryptoDomain.FieldKindJSON,
		JSON: append(json.RawMessage(nil), r.Value...),
	}, nil
}

// DecryptFieldRequest contains the parameters for field-level decryption.
type DecryptFieldRequest struct {
	Data      string `json:"data"` // Opaque string produced by field encryption
	FieldType string `json:"fieldType"`
}

// Validate checks if the decrypt field request is valid.
func (r *DecryptFieldRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Data,
			validation.Required,
			customValidation.NotBlank,
		),
		validation.Field(&r.FieldType,
			validation.Required,
			customValidation.NotBlank,
		),
	)
}
