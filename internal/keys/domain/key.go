// Package domain defines the key lifecycle entities: per-tenant encryption
// keys, their version chains, and the status state machine that governs
// rotation and revocation.
package domain

import (
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/finsec/keyguard/internal/crypto/domain"
)

// KeyStatus is the lifecycle state of an encryption key version.
type KeyStatus string

const (
	// KeyStatusActive marks the single version used for new encryptions.
	KeyStatusActive KeyStatus = "active"
	// KeyStatusRotating marks a version mid-rotation; transient within the
	// rotation transaction.
	KeyStatusRotating KeyStatus = "rotating"
	// KeyStatusDeprecated marks a superseded version kept for decryption only.
	KeyStatusDeprecated KeyStatus = "deprecated"
	// KeyStatusRevoked is terminal: the backing master key is disabled and the
	// version can no longer decrypt anything.
	KeyStatusRevoked KeyStatus = "revoked"
)

// EncryptionKey is one version in a tenant's key chain.
//
// Each version is backed by its own KMS master key, referenced by MasterKeyID.
// MasterKeyID is internal plumbing between the lifecycle layer and the KMS; it
// is stripped from any representation that leaves the use case layer.
type EncryptionKey struct {
	ID               uuid.UUID              `json:"id"`
	BusinessID       string                 `json:"businessId"`
	Version          uint                   `json:"version"`
	Algorithm        cryptoDomain.Algorithm `json:"algorithm"`
	Status           KeyStatus              `json:"status"`
	MasterKeyID      string                 `json:"-"`
	CreatedAt        time.Time              `json:"createdAt"`
	RotatedAt        *time.Time             `json:"rotatedAt,omitempty"`
	ExpiresAt        time.Time              `json:"expiresAt"`
	RevokedAt        *time.Time             `json:"revokedAt,omitempty"`
	RevocationReason string                 `json:"revocationReason,omitempty"`
}

// validTransitions encodes the status state machine. Revoked is terminal.
var validTransitions = map[KeyStatus][]KeyStatus{
	KeyStatusActive:     {KeyStatusRotating, KeyStatusRevoked},
	KeyStatusRotating:   {KeyStatusDeprecated, KeyStatusActive},
	KeyStatusDeprecated: {KeyStatusRevoked},
	KeyStatusRevoked:    {},
}

// CanTransitionTo reports whether moving from the key's current status to next
// is a legal lifecycle transition.
func (k *EncryptionKey) CanTransitionTo(next KeyStatus) bool {
	for _, allowed := range validTransitions[k.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsRevoked reports whether this version has been revoked.
func (k *EncryptionKey) IsRevoked() bool {
	return k.Status == KeyStatusRevoked
}

// NeedsRotation reports whether the key has reached its expiry. The boundary
// is inclusive: a key checked exactly at its expiry instant needs rotation.
func (k *EncryptionKey) NeedsRotation(now time.Time) bool {
	if k.Status != KeyStatusActive {
		return false
	}
	return !now.Before(k.ExpiresAt)
}

// PublicView returns a copy safe to hand outside the lifecycle layer: the
// backing master key reference is cleared.
func (k *EncryptionKey) PublicView() EncryptionKey {
	view := *k
	view.MasterKeyID = ""
	return view
}
