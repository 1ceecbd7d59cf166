// Package domain defines the models exposed at the KMS provider boundary.
//
// Master key material itself never appears here: it is owned exclusively by a
// provider implementation and never crosses the boundary in unwrapped form.
// Callers only ever see opaque key ids, metadata, and wrapped or short-lived
// data keys.
package domain

import (
	"time"

	cryptoDomain "github.com/finsec/keyguard/internal/crypto/domain"
)

// MasterKeyDescription is the public metadata of a master key.
type MasterKeyDescription struct {
	KeyID     string
	Alias     string
	Enabled   bool
	CreatedAt time.Time
}

// DataKey is a freshly generated symmetric key returned by GenerateDataKey.
//
// Plaintext is for immediate local use only; callers must call Close as soon
// as the encryption operation is done. Encrypted is the same key wrapped under
// the master key, safe to persist alongside the ciphertext it protects.
type DataKey struct {
	Plaintext   []byte
	Encrypted   []byte
	MasterKeyID string
}

// Close zeros the plaintext key material. Safe to call multiple times.
func (d *DataKey) Close() {
	cryptoDomain.Zero(d.Plaintext)
}
