// Package usecase implements the key lifecycle business logic: per-tenant key
// creation, scheduled rotation, and revocation, coordinated across the KMS
// provider and the key repository.
package usecase

import (
	"context"

	"github.com/google/uuid"

	cryptoDomain "github.com/finsec/keyguard/internal/crypto/domain"
	keysDomain "github.com/finsec/keyguard/internal/keys/domain"
	kmsDomain "github.com/finsec/keyguard/internal/kms/domain"
)

// KeyRepository defines persistence for encryption key versions.
//
// Implementations must support transaction propagation through the context so
// rotation can update the old version and insert the new one atomically.
type KeyRepository interface {
	// Create inserts a new key version.
	Create(ctx context.Context, key *keysDomain.EncryptionKey) error

	// Update persists changed fields of an existing key version.
	Update(ctx context.Context, key *keysDomain.EncryptionKey) error

	// GetByID returns a key version by its unique id.
	GetByID(ctx context.Context, id uuid.UUID) (*keysDomain.EncryptionKey, error)

	// GetActiveByBusiness returns the business's single active key version.
	GetActiveByBusiness(ctx context.Context, businessID string) (*keysDomain.EncryptionKey, error)

	// GetByBusinessAndVersion returns a specific version of a business's key.
	GetByBusinessAndVersion(ctx context.Context, businessID string, version uint) (*keysDomain.EncryptionKey, error)

	// ListByBusiness returns all of a business's key versions ordered by
	// version ascending.
	ListByBusiness(ctx context.Context, businessID string) ([]*keysDomain.EncryptionKey, error)

	// List returns every key version across all businesses.
	List(ctx context.Context) ([]*keysDomain.EncryptionKey, error)

	// ListBusinessIDs returns the distinct business ids that have keys.
	ListBusinessIDs(ctx context.Context) ([]string, error)
}

// MasterKeyProvider is the slice of the KMS contract the lifecycle layer
// consumes: provisioning, inspecting, and disabling master keys.
type MasterKeyProvider interface {
	CreateMasterKey(ctx context.Context, alias string) (string, error)
	DescribeKey(ctx context.Context, masterKeyID string) (kmsDomain.MasterKeyDescription, error)
	DisableKey(ctx context.Context, masterKeyID string) error
}

// KeyUseCase manages per-tenant encryption key lifecycles.
//
// Every key returned by this interface is a public view: the backing master
// key id is stripped. GetMasterKeyID exists for the encryption plumbing that
// genuinely needs the backing key and must not be exposed over any API.
type KeyUseCase interface {
	// CreateKey provisions version 1 of a business's key. Fails with
	// ErrKeyAlreadyExists when the business already has a live key.
	CreateKey(ctx context.Context, businessID string, alg cryptoDomain.Algorithm) (keysDomain.EncryptionKey, error)

	// GetKey returns the business's active key, verifying the backing master
	// key is still usable.
	GetKey(ctx context.Context, businessID string) (keysDomain.EncryptionKey, error)

	// RotateKey supersedes the active version with a fresh one backed by a new
	// master key. The old version remains decryptable as deprecated.
	RotateKey(ctx context.Context, businessID string) (keysDomain.EncryptionKey, error)

	// RevokeKey revokes every live version of the business's key and disables
	// the backing master keys. Idempotent: revoking an already revoked key is
	// a no-op.
	RevokeKey(ctx context.Context, businessID, reason string) error

	// NeedsRotation reports whether the business's active key has reached its
	// expiry.
	NeedsRotation(ctx context.Context, businessID string) (bool, error)

	// CheckAndRotateKey rotates the business's key if it has expired. Returns
	// whether a rotation happened.
	CheckAndRotateKey(ctx context.Context, businessID string) (bool, error)

	// CheckAndRotateBusinessKeys sweeps all businesses and rotates every
	// expired key. Returns the number of keys rotated.
	CheckAndRotateBusinessKeys(ctx context.Context) (int, error)

	// ListKeys returns every key version across all businesses.
	ListKeys(ctx context.Context) ([]keysDomain.EncryptionKey, error)

	// GetKeyByVersion returns a specific version of a business's key.
	GetKeyByVersion(ctx context.Context, businessID string, version uint) (keysDomain.EncryptionKey, error)

	// GetKeyVersionHistory returns a business's versions ordered ascending.
	GetKeyVersionHistory(ctx context.Context, businessID string) ([]keysDomain.EncryptionKey, error)

	// GetMasterKeyID resolves a key version to its backing master key id.
	GetMasterKeyID(ctx context.Context, keyID uuid.UUID) (string, error)

	// IsRevoked reports whether a key version has been revoked.
	IsRevoked(ctx context.Context, keyID uuid.UUID) (bool, error)
}
