// Package service provides cryptographic services for envelope encryption.
// Implements AEAD ciphers (AES-256-GCM, ChaCha20-Poly1305) and the envelope
// encryption service built on a KMS provider.
package service

import (
	"context"

	cryptoDomain "github.com/finsec/keyguard/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	// The authentication tag is appended to the returned ciphertext.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext (with trailing tag) using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// ResolvedKey is the outcome of mapping a caller-supplied key handle to the
// backing KMS master key.
type ResolvedKey struct {
	// KeyID is the logical key handle to stamp into envelopes.
	KeyID string
	// MasterKeyID is the backing KMS master key, never exposed to callers.
	MasterKeyID string
	// Version is the logical key version.
	Version uint
}

// KeyResolver maps logical key ids to backing master keys and versions. The
// key lifecycle use case implements it; without a resolver the encryption
// service treats key ids as raw master key ids at version 1.
type KeyResolver interface {
	// ActiveKey follows a logical key's chain to its currently active version,
	// so encryptions requested against a rotated key use the successor.
	ActiveKey(ctx context.Context, keyID string) (ResolvedKey, error)

	// LookupKey resolves an exact key id regardless of status, for decrypting
	// data written under older versions.
	LookupKey(ctx context.Context, keyID string) (ResolvedKey, error)
}

// BusinessKeyManager resolves a tenant to its current encryption key handle.
// This is the hook that gives each tenant cryptographic isolation: envelopes
// produced under tenant A's key fail authentication under tenant B's key.
type BusinessKeyManager interface {
	GetKeyForBusiness(ctx context.Context, businessID string) (string, error)
}

// EncryptionService turns KMS provider primitives into envelope encrypt/decrypt
// operations. Callers never handle data keys.
type EncryptionService interface {
	// Encrypt envelope-encrypts plaintext under the given key handle.
	Encrypt(ctx context.Context, plaintext []byte, keyID string) (cryptoDomain.EncryptedData, error)

	// Decrypt reverses Encrypt given the self-describing envelope.
	Decrypt(ctx context.Context, envelope cryptoDomain.EncryptedData) ([]byte, error)

	// EncryptField produces a single opaque string holding the whole envelope,
	// suitable for storage in one database column.
	EncryptField(ctx context.Context, value cryptoDomain.FieldValue, fieldType, keyID string) (string, error)

	// DecryptField reverses EncryptField.
	DecryptField(ctx context.Context, opaque, fieldType string) (cryptoDomain.FieldValue, error)

	// EncryptFieldForBusiness resolves the tenant's current key through the
	// configured BusinessKeyManager and encrypts the field under it.
	EncryptFieldForBusiness(ctx context.Context, value cryptoDomain.FieldValue, fieldType, businessID string) (string, error)
}
