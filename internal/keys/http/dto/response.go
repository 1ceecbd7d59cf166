package dto

import (
	"time"

	keysDomain "github.com/finsec/keyguard/internal/keys/domain"
)

// KeyResponse is the public representation of a key version. The backing
// master key id never appears here.
type KeyResponse struct {
	ID               string     `json:"id"`
	BusinessID       string     `json:"businessId"`
	Version          uint       `json:"version"`
	Algorithm        string     `json:"algorithm"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"createdAt"`
	RotatedAt        *time.Time `json:"rotatedAt,omitempty"`
	ExpiresAt        time.Time  `json:"expiresAt"`
	RevokedAt        *time.Time `json:"revokedAt,omitempty"`
	RevocationReason string     `json:"revocationReason,omitempty"`
}

// MapKeyToResponse converts a key public view to its response representation.
func MapKeyToResponse(key keysDomain.EncryptionKey) KeyResponse {
	return KeyResponse{
		ID:               key.ID.String(),
		BusinessID:       key.BusinessID,
		Version:          key.Version,
		Algorithm:        string(key.Algorithm),
		Status:           string(key.Status),
		CreatedAt:        key.CreatedAt,
		RotatedAt:        key.RotatedAt,
		ExpiresAt:        key.ExpiresAt,
		RevokedAt:        key.RevokedAt,
		RevocationReason: key.RevocationReason,
	}
}

// ListKeysResponse wraps a list of key versions.
type ListKeysResponse struct {
	Keys []KeyResponse `json:"keys"`
}

// MapKeysToResponse converts key public views to a list response.
func MapKeysToResponse(keys []keysDomain.EncryptionKey) ListKeysResponse {
	responses := make([]KeyResponse, 0, len(keys))
	for _, key := range keys {
		responses = append(responses, MapKeyToResponse(key))
	}
	return ListKeysResponse{Keys: responses}
}

// RotationSweepResponse reports the outcome of a rotation sweep.
type RotationSweepResponse struct {
	Rotated int `json:"rotated"`
}

// NeedsRotationResponse reports whether a business's key has expired.
type NeedsRotationResponse struct {
	BusinessID    string `json:"businessId"`
	NeedsRotation bool   `json:"needsRotation"`
}
