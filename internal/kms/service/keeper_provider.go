package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"gocloud.dev/secrets"

	cryptoDomain "github.com/finsec/keyguard/internal/crypto/domain"
	kmsDomain "github.com/finsec/keyguard/internal/kms/domain"

	// Register all KMS keeper drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// KeeperProvider adapts gocloud.dev secrets keepers to the Provider contract.
//
// The master key id is the keeper URI (gcpkms://, awskms://, azurekeyvault://,
// hashivault://, base64key://); keepers are opened lazily and cached per URI.
// Master keys on these backends are provisioned and enabled/disabled by the
// platform's own tooling, so the management operations return
// ErrOperationNotSupported.
type KeeperProvider struct {
	mu      sync.Mutex
	keepers map[string]*secrets.Keeper
}

// NewKeeperProvider creates a gocloud.dev-backed KMS provider.
func NewKeeperProvider() *KeeperProvider {
	return &KeeperProvider{
		keepers: make(map[string]*secrets.Keeper),
	}
}

// CreateMasterKey is not supported: keys are provisioned out-of-band on the
// KMS backend and referenced by URI.
func (k *KeeperProvider) CreateMasterKey(_ context.Context, _ string) (string, error) {
	return "", kmsDomain.ErrOperationNotSupported
}

// GenerateDataKey returns a fresh random data key wrapped by the remote keeper.
func (k *KeeperProvider) GenerateDataKey(
	ctx context.Context,
	masterKeyID string,
	length int,
) (kmsDomain.DataKey, error) {
	if length <= 0 {
		length = cryptoDomain.KeySize
	}

	plaintext := make([]byte, length)
	if _, err := rand.Read(plaintext); err != nil {
		return kmsDomain.DataKey{}, fmt.Errorf("failed to generate data key: %w", err)
	}

	encrypted, err := k.Encrypt(ctx, masterKeyID, plaintext)
	if err != nil {
		cryptoDomain.Zero(plaintext)
		return kmsDomain.DataKey{}, err
	}

	return kmsDomain.DataKey{
		Plaintext:   plaintext,
		Encrypted:   encrypted,
		MasterKeyID: masterKeyID,
	}, nil
}

// Encrypt wraps plaintext with the remote keeper identified by masterKeyID.
func (k *KeeperProvider) Encrypt(ctx context.Context, masterKeyID string, plaintext []byte) ([]byte, error) {
	keeper, err := k.keeper(ctx, masterKeyID)
	if err != nil {
		return nil, err
	}

	ciphertext, err := keeper.Encrypt(ctx, plaintext)
	if err != nil {
		return nil, fmt.Errorf("kms encrypt failed: %w", err)
	}
	return ciphertext, nil
}

// Decrypt unwraps ciphertext with the remote keeper. Any backend failure is
// reported as an authentication failure so callers cannot distinguish causes.
func (k *KeeperProvider) Decrypt(ctx context.Context, masterKeyID string, ciphertext []byte) ([]byte, error) {
	keeper, err := k.keeper(ctx, masterKeyID)
	if err != nil {
		return nil, err
	}

	plaintext, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, cryptoDomain.ErrAuthenticationFailed
	}
	return plaintext, nil
}

// DescribeKey reports the keeper as enabled; remote administrative state is not
// exposed through the keeper API.
func (k *KeeperProvider) DescribeKey(ctx context.Context, masterKeyID string) (kmsDomain.MasterKeyDescription, error) {
	if _, err := k.keeper(ctx, masterKeyID); err != nil {
		return kmsDomain.MasterKeyDescription{}, err
	}

	return kmsDomain.MasterKeyDescription{
		KeyID:     masterKeyID,
		Enabled:   true,
		CreatedAt: time.Time{},
	}, nil
}

// EnableKey is not supported; use the KMS backend's own tooling.
func (k *KeeperProvider) EnableKey(_ context.Context, _ string) error {
	return kmsDomain.ErrOperationNotSupported
}

// DisableKey is not supported; use the KMS backend's own tooling.
func (k *KeeperProvider) DisableKey(_ context.Context, _ string) error {
	return kmsDomain.ErrOperationNotSupported
}

// Close closes all cached keepers.
func (k *KeeperProvider) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	var firstErr error
	for uri, keeper := range k.keepers {
		if err := keeper.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close keeper %s: %w", uri, err)
		}
	}
	k.keepers = make(map[string]*secrets.Keeper)
	return firstErr
}

// keeper opens (or returns the cached) keeper for a key URI.
func (k *KeeperProvider) keeper(ctx context.Context, keyURI string) (*secrets.Keeper, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if keeper, ok := k.keepers[keyURI]; ok {
		return keeper, nil
	}

	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", kmsDomain.ErrMasterKeyNotFound, keyURI)
	}

	k.keepers[keyURI] = keeper
	return keeper, nil
}
