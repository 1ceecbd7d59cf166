// Package service provides KMS provider implementations for envelope encryption.
//
// A Provider owns master-key material and never exposes it: callers get opaque
// key ids, wrapped data keys, and direct wrap/unwrap of small payloads. The
// in-memory provider backs development and tests; the keeper provider adapts
// gocloud.dev secrets backends (AWS KMS, GCP KMS, Azure Key Vault, Vault).
package service

import (
	"context"

	kmsDomain "github.com/finsec/keyguard/internal/kms/domain"
)

// Provider is the KMS contract consumed by the encryption service and the key
// lifecycle use case.
//
// Contract invariants:
//   - operations on an unknown master key fail with ErrMasterKeyNotFound
//   - operations on a disabled master key fail with ErrKeyDisabled
//   - Encrypt and GenerateDataKey use a fresh random nonce per call, so equal
//     inputs never produce equal ciphertext
//
// All operations accept a context because production providers are a network
// round-trip away; implementations must honor cancellation where they block.
type Provider interface {
	// CreateMasterKey provisions a new master key and returns its opaque id.
	// No plaintext key material is ever returned.
	CreateMasterKey(ctx context.Context, alias string) (string, error)

	// GenerateDataKey returns a fresh random data key of the given length in the
	// clear for immediate local use, plus the same key wrapped under the master
	// key for storage. Callers must Close the returned DataKey after use.
	GenerateDataKey(ctx context.Context, masterKeyID string, length int) (kmsDomain.DataKey, error)

	// Encrypt wraps a small payload directly under the master key.
	Encrypt(ctx context.Context, masterKeyID string, plaintext []byte) ([]byte, error)

	// Decrypt unwraps a payload previously wrapped with Encrypt. Tamper
	// detection is the AEAD authentication tag; there is no separate checksum.
	Decrypt(ctx context.Context, masterKeyID string, ciphertext []byte) ([]byte, error)

	// DescribeKey returns the master key's public metadata.
	DescribeKey(ctx context.Context, masterKeyID string) (kmsDomain.MasterKeyDescription, error)

	// EnableKey re-enables a disabled master key.
	EnableKey(ctx context.Context, masterKeyID string) error

	// DisableKey administratively disables a master key. Subsequent use fails
	// with ErrKeyDisabled until EnableKey is called.
	DisableKey(ctx context.Context, masterKeyID string) error
}
