package service

import (
	"context"

	apperrors "github.com/finsec/keyguard/internal/errors"
	kmsDomain "github.com/finsec/keyguard/internal/kms/domain"
)

// StaticKeyProvider wraps a Provider whose master keys are provisioned
// out-of-band (the keeper provider) and answers CreateMasterKey with a single
// configured key id. All key versions then share that master key; per-version
// isolation comes from the fresh data key wrapped for every envelope.
type StaticKeyProvider struct {
	inner Provider
	keyID string
}

// NewStaticKeyProvider creates a provider that pins all master key
// provisioning to keyID.
func NewStaticKeyProvider(inner Provider, keyID string) (*StaticKeyProvider, error) {
	if keyID == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "static provider requires a master key id")
	}
	return &StaticKeyProvider{inner: inner, keyID: keyID}, nil
}

// CreateMasterKey returns the configured key id; the alias is ignored.
func (s *StaticKeyProvider) CreateMasterKey(_ context.Context, _ string) (string, error) {
	return s.keyID, nil
}

// GenerateDataKey delegates to the wrapped provider.
func (s *StaticKeyProvider) GenerateDataKey(
	ctx context.Context,
	masterKeyID string,
	length int,
) (kmsDomain.DataKey, error) {
	return s.inner.GenerateDataKey(ctx, masterKeyID, length)
}

// Encrypt delegates to the wrapped provider.
func (s *StaticKeyProvider) Encrypt(ctx context.Context, masterKeyID string, plaintext []byte) ([]byte, error) {
	return s.inner.Encrypt(ctx, masterKeyID, plaintext)
}

// Decrypt delegates to the wrapped provider.
func (s *StaticKeyProvider) Decrypt(ctx context.Context, masterKeyID string, ciphertext []byte) ([]byte, error) {
	return s.inner.Decrypt(ctx, masterKeyID, ciphertext)
}

// DescribeKey delegates to the wrapped provider.
func (s *StaticKeyProvider) DescribeKey(
	ctx context.Context,
	masterKeyID string,
) (kmsDomain.MasterKeyDescription, error) {
	return s.inner.DescribeKey(ctx, masterKeyID)
}

// EnableKey delegates to the wrapped provider.
func (s *StaticKeyProvider) EnableKey(ctx context.Context, masterKeyID string) error {
	return s.inner.EnableKey(ctx, masterKeyID)
}

// DisableKey delegates to the wrapped provider.
func (s *StaticKeyProvider) DisableKey(ctx context.Context, masterKeyID string) error {
	return s.inner.DisableKey(ctx, masterKeyID)
}
