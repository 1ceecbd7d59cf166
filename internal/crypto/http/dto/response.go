package dto

import (
	"encoding/json"

	cryptoDomain "github.com/finsec/keyguard/internal/crypto/domain"
)

// EncryptResponse returns the self-describing envelope.
type EncryptResponse struct {
	Envelope cryptoDomain.EncryptedData `json:"envelope"`
}

// DecryptResponse returns the recovered plaintext, base64-encoded.
type DecryptResponse struct {
	Plaintext string `json:"plaintext"`
}

// EncryptFieldResponse returns the opaque field ciphertext.
type EncryptFieldResponse struct {
	Data string `json:"data"`
}

// DecryptFieldResponse returns the recovered field value in its original
// JSON shape: strings come back as JSON strings, structured values as-is.
type DecryptFieldResponse struct {
	Value json.RawMessage `json:"value"`
}

// MapFieldValueToResponse converts a field value back to its JSON wire shape.
func MapFieldValueToResponse(value cryptoDomain.FieldValue) (DecryptFieldResponse, error) {
	if value.Kind == cryptoDomain.FieldKindString {
		raw, err := json.Marshal(value.Str)
		if err != nil {
			return DecryptFieldResponse{}, err
		}
		return DecryptFieldResponse{Value: raw}, nil
	}
	return DecryptFieldResponse{Value: value.JSON}, nil
}
