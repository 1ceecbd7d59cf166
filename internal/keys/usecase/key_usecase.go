package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	cryptoDomain "github.com/finsec/keyguard/internal/crypto/domain"
	cryptoService "github.com/finsec/keyguard/internal/crypto/service"
	"github.com/finsec/keyguard/internal/database"
	apperrors "github.com/finsec/keyguard/internal/errors"
	keysDomain "github.com/finsec/keyguard/internal/keys/domain"
	kmsDomain "github.com/finsec/keyguard/internal/kms/domain"
)

// rotationSweepConcurrency bounds how many businesses are rotated in parallel
// during a CheckAndRotateBusinessKeys sweep.
const rotationSweepConcurrency = 4

// KeyManager is the full surface of the lifecycle layer: the public lifecycle
// operations plus the resolver hooks the encryption service plugs into.
type KeyManager interface {
	KeyUseCase
	cryptoService.KeyResolver
	cryptoService.BusinessKeyManager
}

// keyedMutex serializes operations per business id. Rotating two different
// businesses proceeds in parallel; two rotations of the same business do not.
// Entries are never removed; the map is bounded by the number of businesses.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// keyUseCase implements KeyManager.
//
// Each business has an independent chain of key versions, each version backed
// by its own KMS master key. Rotation provisions a fresh master key and swaps
// the active version inside a single transaction, guarded by a per-business
// mutex so concurrent rotations of the same business serialize instead of
// double-spending versions.
type keyUseCase struct {
	txManager        database.TxManager
	keyRepo          KeyRepository
	provider         MasterKeyProvider
	rotationInterval time.Duration
	rotationLocks    *keyedMutex
	logger           *slog.Logger
}

// NewKeyUseCase creates the lifecycle use case. rotationInterval controls how
// long a freshly created or rotated version stays current before a rotation
// sweep picks it up.
func NewKeyUseCase(
	txManager database.TxManager,
	keyRepo KeyRepository,
	provider MasterKeyProvider,
	rotationInterval time.Duration,
	logger *slog.Logger,
) KeyManager {
	return &keyUseCase{
		txManager:        txManager,
		keyRepo:          keyRepo,
		provider:         provider,
		rotationInterval: rotationInterval,
		rotationLocks:    newKeyedMutex(),
		logger:           logger,
	}
}

// CreateKey provisions version 1 of a business's key chain.
//
// A business gets exactly one chain, ever: creation is refused whatever the
// statuses of existing versions, so a revoked chain stays terminal and version
// numbers stay unambiguous.
func (k *keyUseCase) CreateKey(
	ctx context.Context,
	businessID string,
	alg cryptoDomain.Algorithm,
) (keysDomain.EncryptionKey, error) {
	if businessID == "" {
		return keysDomain.EncryptionKey{}, apperrors.Wrap(apperrors.ErrInvalidInput, "business id is required")
	}
	if alg == "" {
		alg = cryptoDomain.AESGCM
	}
	if alg != cryptoDomain.AESGCM && alg != cryptoDomain.ChaCha20 {
		return keysDomain.EncryptionKey{}, cryptoDomain.ErrUnsupportedAlgorithm
	}

	unlock := k.rotationLocks.lock(businessID)
	defer unlock()

	existing, err := k.keyRepo.ListByBusiness(ctx, businessID)
	if err != nil {
		return keysDomain.EncryptionKey{}, err
	}
	if len(existing) > 0 {
		return keysDomain.EncryptionKey{}, keysDomain.ErrKeyAlreadyExists
	}

	key, err := k.provisionVersion(ctx, businessID, alg, 1)
	if err != nil {
		return keysDomain.EncryptionKey{}, err
	}

	if err := k.keyRepo.Create(ctx, &key); err != nil {
		return keysDomain.EncryptionKey{}, err
	}

	k.logger.InfoContext(ctx, "encryption key created",
		slog.String("business_id", businessID),
		slog.String("key_id", key.ID.String()),
	)

	return key.PublicView(), nil
}

// GetKey returns the business's active key after verifying the backing master
// key is still usable in the KMS.
func (k *keyUseCase) GetKey(ctx context.Context, businessID string) (keysDomain.EncryptionKey, error) {
	key, err := k.keyRepo.GetActiveByBusiness(ctx, businessID)
	if err != nil {
		return keysDomain.EncryptionKey{}, err
	}

	description, err := k.provider.DescribeKey(ctx, key.MasterKeyID)
	switch {
	case errors.Is(err, kmsDomain.ErrOperationNotSupported):
		// Provider cannot be probed; trust the repository state.
	case err != nil:
		return keysDomain.EncryptionKey{}, err
	case !description.Enabled:
		return keysDomain.EncryptionKey{}, kmsDomain.ErrKeyDisabled
	}

	return key.PublicView(), nil
}

// RotateKey supersedes the business's active version with a fresh one.
//
// The swap runs inside a single transaction: the current version passes
// through rotating, the successor is inserted as active, and the current
// version lands in deprecated. Both records carry the rotation timestamp.
// A per-business mutex serializes concurrent rotations so exactly one
// successor wins. Rotating a fully revoked chain is a state violation.
func (k *keyUseCase) RotateKey(ctx context.Context, businessID string) (keysDomain.EncryptionKey, error) {
	unlock := k.rotationLocks.lock(businessID)
	defer unlock()

	var rotated keysDomain.EncryptionKey

	err := k.txManager.WithTx(ctx, func(ctx context.Context) error {
		current, err := k.keyRepo.GetActiveByBusiness(ctx, businessID)
		if err != nil {
			// A chain with no active version is a revoked chain; surface that as
			// a state violation, not as an unknown business.
			if errors.Is(err, keysDomain.ErrKeyNotFound) {
				chain, chainErr := k.keyRepo.ListByBusiness(ctx, businessID)
				if chainErr != nil {
					return chainErr
				}
				if len(chain) > 0 {
					return fmt.Errorf("%w: cannot rotate a revoked key", keysDomain.ErrInvalidStateTransition)
				}
			}
			return err
		}

		if !current.CanTransitionTo(keysDomain.KeyStatusRotating) {
			return fmt.Errorf("%w: cannot rotate %s key", keysDomain.ErrInvalidStateTransition, current.Status)
		}
		current.Status = keysDomain.KeyStatusRotating
		if err := k.keyRepo.Update(ctx, current); err != nil {
			return err
		}

		successor, err := k.provisionVersion(ctx, businessID, current.Algorithm, current.Version+1)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		successor.RotatedAt = &now
		if err := k.keyRepo.Create(ctx, &successor); err != nil {
			return err
		}

		current.Status = keysDomain.KeyStatusDeprecated
		current.RotatedAt = &now
		if err := k.keyRepo.Update(ctx, current); err != nil {
			return err
		}

		rotated = successor
		return nil
	})
	if err != nil {
		return keysDomain.EncryptionKey{}, err
	}

	k.logger.InfoContext(ctx, "encryption key rotated",
		slog.String("business_id", businessID),
		slog.String("key_id", rotated.ID.String()),
		slog.Uint64("version", uint64(rotated.Version)),
	)

	return rotated.PublicView(), nil
}

// RevokeKey revokes every live version of the business's key.
//
// Repository state is updated first, atomically; the backing master keys are
// disabled in the KMS only after the transaction commits, so a rollback never
// leaves usable records pointing at disabled keys. Revoking an already revoked
// chain is a no-op.
func (k *keyUseCase) RevokeKey(ctx context.Context, businessID, reason string) error {
	unlock := k.rotationLocks.lock(businessID)
	defer unlock()

	var disableMasterKeys []string

	err := k.txManager.WithTx(ctx, func(ctx context.Context) error {
		keys, err := k.keyRepo.ListByBusiness(ctx, businessID)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return keysDomain.ErrKeyNotFound
		}

		now := time.Now().UTC()
		for _, key := range keys {
			if key.IsRevoked() {
				continue
			}
			if !key.CanTransitionTo(keysDomain.KeyStatusRevoked) {
				return fmt.Errorf("%w: cannot revoke %s key", keysDomain.ErrInvalidStateTransition, key.Status)
			}

			key.Status = keysDomain.KeyStatusRevoked
			key.RevokedAt = &now
			key.RevocationReason = reason
			if err := k.keyRepo.Update(ctx, key); err != nil {
				return err
			}
			disableMasterKeys = append(disableMasterKeys, key.MasterKeyID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, masterKeyID := range disableMasterKeys {
		if err := k.provider.DisableKey(ctx, masterKeyID); err != nil {
			if errors.Is(err, kmsDomain.ErrOperationNotSupported) {
				continue
			}
			return apperrors.Wrap(err, "failed to disable master key")
		}
	}

	if len(disableMasterKeys) > 0 {
		k.logger.InfoContext(ctx, "encryption key revoked",
			slog.String("business_id", businessID),
			slog.Int("versions", len(disableMasterKeys)),
			slog.String("reason", reason),
		)
	}

	return nil
}

// NeedsRotation reports whether the business's active key has reached expiry.
func (k *keyUseCase) NeedsRotation(ctx context.Context, businessID string) (bool, error) {
	key, err := k.keyRepo.GetActiveByBusiness(ctx, businessID)
	if err != nil {
		return false, err
	}
	return key.NeedsRotation(time.Now().UTC()), nil
}

// CheckAndRotateKey rotates the business's key if expired.
func (k *keyUseCase) CheckAndRotateKey(ctx context.Context, businessID string) (bool, error) {
	needed, err := k.NeedsRotation(ctx, businessID)
	if err != nil {
		return false, err
	}
	if !needed {
		return false, nil
	}

	if _, err := k.RotateKey(ctx, businessID); err != nil {
		// The key may have been rotated or revoked by a concurrent caller
		// between the check and the rotation; treat that as "not rotated here".
		if errors.Is(err, keysDomain.ErrKeyNotFound) || errors.Is(err, keysDomain.ErrInvalidStateTransition) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CheckAndRotateBusinessKeys sweeps every business and rotates expired keys,
// a bounded number of businesses at a time. Failures for individual businesses
// are collected; the sweep continues past them.
func (k *keyUseCase) CheckAndRotateBusinessKeys(ctx context.Context) (int, error) {
	businessIDs, err := k.keyRepo.ListBusinessIDs(ctx)
	if err != nil {
		return 0, err
	}

	var (
		mu      sync.Mutex
		rotated int
		sweep   []error
	)

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(rotationSweepConcurrency)

	for _, businessID := range businessIDs {
		group.Go(func() error {
			didRotate, err := k.CheckAndRotateKey(ctx, businessID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				k.logger.WarnContext(ctx, "rotation sweep failed for business",
					slog.String("business_id", businessID),
					slog.String("error", err.Error()),
				)
				sweep = append(sweep, fmt.Errorf("business %s: %w", businessID, err))
				return nil
			}
			if didRotate {
				rotated++
			}
			return nil
		})
	}

	_ = group.Wait()
	return rotated, errors.Join(sweep...)
}

// ListKeys returns every key version across all businesses as public views.
func (k *keyUseCase) ListKeys(ctx context.Context) ([]keysDomain.EncryptionKey, error) {
	keys, err := k.keyRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return publicViews(keys), nil
}

// GetKeyByVersion returns a specific version of a business's key.
func (k *keyUseCase) GetKeyByVersion(
	ctx context.Context,
	businessID string,
	version uint,
) (keysDomain.EncryptionKey, error) {
	key, err := k.keyRepo.GetByBusinessAndVersion(ctx, businessID, version)
	if err != nil {
		return keysDomain.EncryptionKey{}, err
	}
	return key.PublicView(), nil
}

// GetKeyVersionHistory returns a business's versions ordered ascending.
func (k *keyUseCase) GetKeyVersionHistory(
	ctx context.Context,
	businessID string,
) ([]keysDomain.EncryptionKey, error) {
	keys, err := k.keyRepo.ListByBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, keysDomain.ErrKeyNotFound
	}
	return publicViews(keys), nil
}

// GetMasterKeyID resolves a key version to its backing master key id. This is
// internal plumbing for the encryption layer and must never surface over an
// external API.
func (k *keyUseCase) GetMasterKeyID(ctx context.Context, keyID uuid.UUID) (string, error) {
	key, err := k.keyRepo.GetByID(ctx, keyID)
	if err != nil {
		return "", err
	}
	return key.MasterKeyID, nil
}

// IsRevoked reports whether a key version has been revoked.
func (k *keyUseCase) IsRevoked(ctx context.Context, keyID uuid.UUID) (bool, error) {
	key, err := k.keyRepo.GetByID(ctx, keyID)
	if err != nil {
		return false, err
	}
	return key.IsRevoked(), nil
}

// ActiveKey implements cryptoService.KeyResolver for encryption: whatever
// version the caller holds, the chain is followed to the business's current
// active version so new envelopes always use the newest key.
func (k *keyUseCase) ActiveKey(ctx context.Context, keyID string) (cryptoService.ResolvedKey, error) {
	id, err := uuid.Parse(keyID)
	if err != nil {
		return cryptoService.ResolvedKey{}, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid key id")
	}

	key, err := k.keyRepo.GetByID(ctx, id)
	if err != nil {
		return cryptoService.ResolvedKey{}, err
	}

	if key.Status != keysDomain.KeyStatusActive {
		key, err = k.keyRepo.GetActiveByBusiness(ctx, key.BusinessID)
		if err != nil {
			return cryptoService.ResolvedKey{}, err
		}
	}

	return resolvedKey(key), nil
}

// LookupKey implements cryptoService.KeyResolver for decryption: the exact
// version stamped in the envelope is resolved, whatever its status, unless it
// has been revoked.
func (k *keyUseCase) LookupKey(ctx context.Context, keyID string) (cryptoService.ResolvedKey, error) {
	id, err := uuid.Parse(keyID)
	if err != nil {
		return cryptoService.ResolvedKey{}, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid key id")
	}

	key, err := k.keyRepo.GetByID(ctx, id)
	if err != nil {
		return cryptoService.ResolvedKey{}, err
	}
	if key.IsRevoked() {
		return cryptoService.ResolvedKey{}, keysDomain.ErrKeyRevoked
	}

	return resolvedKey(key), nil
}

// GetKeyForBusiness implements cryptoService.BusinessKeyManager: it hands the
// encryption service the business's active key id.
func (k *keyUseCase) GetKeyForBusiness(ctx context.Context, businessID string) (string, error) {
	key, err := k.keyRepo.GetActiveByBusiness(ctx, businessID)
	if err != nil {
		return "", err
	}
	return key.ID.String(), nil
}

// provisionVersion creates the KMS master key and builds the key record for a
// new version. The record is not persisted.
func (k *keyUseCase) provisionVersion(
	ctx context.Context,
	businessID string,
	alg cryptoDomain.Algorithm,
	version uint,
) (keysDomain.EncryptionKey, error) {
	alias := fmt.Sprintf("business-%s", businessID)
	if version > 1 {
		alias = fmt.Sprintf("business-%s-v%d", businessID, version)
	}
	masterKeyID, err := k.provider.CreateMasterKey(ctx, alias)
	if err != nil {
		return keysDomain.EncryptionKey{}, apperrors.Wrap(err, "failed to provision master key")
	}

	now := time.Now().UTC()
	return keysDomain.EncryptionKey{
		ID:          uuid.Must(uuid.NewV7()),
		BusinessID:  businessID,
		Version:     version,
		Algorithm:   alg,
		Status:      keysDomain.KeyStatusActive,
		MasterKeyID: masterKeyID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(k.rotationInterval),
	}, nil
}

func resolvedKey(key *keysDomain.EncryptionKey) cryptoService.ResolvedKey {
	return cryptoService.ResolvedKey{
		KeyID:       key.ID.String(),
		MasterKeyID: key.MasterKeyID,
		Version:     key.Version,
	}
}

func publicViews(keys []*keysDomain.EncryptionKey) []keysDomain.EncryptionKey {
	views := make([]keysDomain.EncryptionKey, 0, len(keys))
	for _, key := range keys {
		views = append(views, key.PublicView())
	}
	return views
}
