package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/finsec/keyguard/internal/crypto/domain"
	cryptoService "github.com/finsec/keyguard/internal/crypto/service"
	keysDomain "github.com/finsec/keyguard/internal/keys/domain"
	"github.com/finsec/keyguard/internal/metrics"
)

// keyManagerWithMetrics decorates KeyManager with metrics instrumentation.
// Resolver lookups pass through unrecorded: they sit on the hot path of every
// encryption and would dominate the operation counters.
type keyManagerWithMetrics struct {
	next    KeyManager
	metrics metrics.BusinessMetrics
}

// NewKeyManagerWithMetrics wraps a KeyManager with metrics recording.
func NewKeyManagerWithMetrics(manager KeyManager, m metrics.BusinessMetrics) KeyManager {
	return &keyManagerWithMetrics{
		next:    manager,
		metrics: m,
	}
}

func (k *keyManagerWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	k.metrics.RecordOperation(ctx, "keys", operation, status)
	k.metrics.RecordDuration(ctx, "keys", operation, time.Since(start), status)
}

func (k *keyManagerWithMetrics) CreateKey(
	ctx context.Context,
	businessID string,
	alg cryptoDomain.Algorithm,
) (keysDomain.EncryptionKey, error) {
	start := time.Now()
	key, err := k.next.CreateKey(ctx, businessID, alg)
	k.record(ctx, "key_create", start, err)
	return key, err
}

func (k *keyManagerWithMetrics) GetKey(ctx context.Context, businessID string) (keysDomain.EncryptionKey, error) {
	start := time.Now()
	key, err := k.next.GetKey(ctx, businessID)
	k.record(ctx, "key_get", start, err)
	return key, err
}

func (k *keyManagerWithMetrics) RotateKey(ctx context.Context, businessID string) (keysDomain.EncryptionKey, error) {
	start := time.Now()
	key, err := k.next.RotateKey(ctx, businessID)
	k.record(ctx, "key_rotate", start, err)
	return key, err
}

func (k *keyManagerWithMetrics) RevokeKey(ctx context.Context, businessID, reason string) error {
	start := time.Now()
	err := k.next.RevokeKey(ctx, businessID, reason)
	k.record(ctx, "key_revoke", start, err)
	return err
}

func (k *keyManagerWithMetrics) NeedsRotation(ctx context.Context, businessID string) (bool, error) {
	return k.next.NeedsRotation(ctx, businessID)
}

func (k *keyManagerWithMetrics) CheckAndRotateKey(ctx context.Context, businessID string) (bool, error) {
	start := time.Now()
	rotated, err := k.next.CheckAndRotateKey(ctx, businessID)
	k.record(ctx, "key_check_rotate", start, err)
	return rotated, err
}

func (k *keyManagerWithMetrics) CheckAndRotateBusinessKeys(ctx context.Context) (int, error) {
	start := time.Now()
	rotated, err := k.next.CheckAndRotateBusinessKeys(ctx)
	k.record(ctx, "key_rotation_sweep", start, err)
	return rotated, err
}

func (k *keyManagerWithMetrics) ListKeys(ctx context.Context) ([]keysDomain.EncryptionKey, error) {
	start := time.Now()
	keys, err := k.next.ListKeys(ctx)
	k.record(ctx, "key_list", start, err)
	return keys, err
}

func (k *keyManagerWithMetrics) GetKeyByVersion(
	ctx context.Context,
	businessID string,
	version uint,
) (keysDomain.EncryptionKey, error) {
	start := time.Now()
	key, err := k.next.GetKeyByVersion(ctx, businessID, version)
	k.record(ctx, "key_get_version", start, err)
	return key, err
}

func (k *keyManagerWithMetrics) GetKeyVersionHistory(
	ctx context.Context,
	businessID string,
) ([]keysDomain.EncryptionKey, error) {
	start := time.Now()
	keys, err := k.next.GetKeyVersionHistory(ctx, businessID)
	k.record(ctx, "key_version_history", start, err)
	return keys, err
}

func (k *keyManagerWithMetrics) GetMasterKeyID(ctx context.Context, keyID uuid.UUID) (string, error) {
	return k.next.GetMasterKeyID(ctx, keyID)
}

func (k *keyManagerWithMetrics) IsRevoked(ctx context.Context, keyID uuid.UUID) (bool, error) {
	return k.next.IsRevoked(ctx, keyID)
}

func (k *keyManagerWithMetrics) ActiveKey(ctx context.Context, keyID string) (cryptoService.ResolvedKey, error) {
	return k.next.ActiveKey(ctx, keyID)
}

func (k *keyManagerWithMetrics) LookupKey(ctx context.Context, keyID string) (cryptoService.ResolvedKey, error) {
	return k.next.LookupKey(ctx, keyID)
}

func (k *keyManagerWithMetrics) GetKeyForBusiness(ctx context.Context, businessID string) (string, error) {
	return k.next.GetKeyForBusiness(ctx, businessID)
}
