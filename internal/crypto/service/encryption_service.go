package service

import (
	"context"
	"strings"

	cryptoDomain "github.com/finsec/keyguard/internal/crypto/domain"
	kmsDomain "github.com/finsec/keyguard/internal/kms/domain"
)

// KMSProvider is the slice of the KMS contract the encryption service consumes.
type KMSProvider interface {
	// GenerateDataKey returns a fresh data key in the clear plus wrapped under
	// the master key.
	GenerateDataKey(ctx context.Context, masterKeyID string, length int) (kmsDomain.DataKey, error)

	// Decrypt unwraps a payload previously wrapped under the master key.
	Decrypt(ctx context.Context, masterKeyID string, ciphertext []byte) ([]byte, error)
}

// EnvelopeEncryptionService implements EncryptionService with envelope
// encryption: a fresh data key per operation, wrapped by the KMS, with the
// payload encrypted locally. It is a stateless transformer; its only side
// effects are calls into the injected KMS provider.
type EnvelopeEncryptionService struct {
	provider     KMSProvider
	aeadManager  AEADManager
	resolver     KeyResolver
	businessKeys BusinessKeyManager
	algorithm    cryptoDomain.Algorithm
}

// NewEncryptionService creates an envelope encryption service.
//
// resolver and businessKeys are optional: without a resolver, key ids are
// treated as raw master key ids at version 1; without a BusinessKeyManager,
// EncryptFieldForBusiness fails with ErrNoBusinessKeyManager.
func NewEncryptionService(
	provider KMSProvider,
	aeadManager AEADManager,
	resolver KeyResolver,
	businessKeys BusinessKeyManager,
) *EnvelopeEncryptionService {
	return &EnvelopeEncryptionService{
		provider:     provider,
		aeadManager:  aeadManager,
		resolver:     resolver,
		businessKeys: businessKeys,
		algorithm:    cryptoDomain.AESGCM,
	}
}

// Encrypt envelope-encrypts plaintext under the given key handle.
//
// A fresh 256-bit data key is generated through the KMS, used once to encrypt
// the payload locally, and zeroed before returning. Only the wrapped form of
// the data key travels inside the envelope.
func (s *EnvelopeEncryptionService) Encrypt(
	ctx context.Context,
	plaintext []byte,
	keyID string,
) (cryptoDomain.EncryptedData, error) {
	resolved, err := s.resolveActive(ctx, keyID)
	if err != nil {
		return cryptoDomain.EncryptedData{}, err
	}

	dataKey, err := s.provider.GenerateDataKey(ctx, resolved.MasterKeyID, cryptoDomain.KeySize)
	if err != nil {
		return cryptoDomain.EncryptedData{}, err
	}
	defer dataKey.Close()

	aead, err := s.aeadManager.CreateCipher(dataKey.Plaintext, s.algorithm)
	if err != nil {
		return cryptoDomain.EncryptedData{}, err
	}

	sealed, nonce, err := aead.Encrypt(plaintext, nil)
	if err != nil {
		return cryptoDomain.EncryptedData{}, err
	}

	// Seal appends the tag; the envelope keeps payload ciphertext and tag apart.
	tagStart := len(sealed) - cryptoDomain.TagSize
	envelope := cryptoDomain.NewEncryptedData(
		dataKey.Encrypted,
		sealed[:tagStart],
		nonce,
		sealed[tagStart:],
		resolved.KeyID,
		resolved.Version,
		s.algorithm,
	)

	return envelope, nil
}

// Decrypt reverses Encrypt: unwraps the data key through the KMS, then
// decrypts the payload locally. A tag mismatch anywhere (ciphertext, iv, tag,
// or wrapped key) fails with ErrAuthenticationFailed and never returns partial
// plaintext.
func (s *EnvelopeEncryptionService) Decrypt(
	ctx context.Context,
	envelope cryptoDomain.EncryptedData,
) ([]byte, error) {
	wrappedDataKey, payloadCiphertext, err := envelope.SplitCiphertext()
	if err != nil {
		return nil, err
	}

	iv, err := envelope.DecodeIV()
	if err != nil {
		return nil, err
	}
	if len(iv) != cryptoDomain.NonceSize {
		return nil, cryptoDomain.ErrMalformedEnvelope
	}

	tag, err := envelope.DecodeTag()
	if err != nil {
		return nil, err
	}

	resolved, err := s.resolveLookup(ctx, envelope.KeyID)
	if err != nil {
		return nil, err
	}

	dataKey, err := s.provider.Decrypt(ctx, resolved.MasterKeyID, wrappedDataKey)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(dataKey)

	algorithm := envelope.Algorithm
	if algorithm == "" {
		algorithm = s.algorithm
	}

	aead, err := s.aeadManager.CreateCipher(dataKey, algorithm)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(payloadCiphertext)+len(tag))
	sealed = append(sealed, payloadCiphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Decrypt(sealed, iv, nil)
	if err != nil {
		return nil, cryptoDomain.ErrAuthenticationFailed
	}

	return plaintext, nil
}

// EncryptField encrypts a typed field value into one self-contained opaque
// string: the whole envelope, wrapped data key included, base64-encoded for
// storage in a single database column. fieldType is an advisory label carried
// by callers (e.g. "identifier", "pan"); it does not alter the ciphertext.
func (s *EnvelopeEncryptionService) EncryptField(
	ctx context.Context,
	value cryptoDomain.FieldValue,
	fieldType, keyID string,
) (string, error) {
	envelope, err := s.Encrypt(ctx, value.Bytes(), keyID)
	if err != nil {
		return "", err
	}

	encodedDataKey, _, found := strings.Cut(envelope.Ciphertext, ".")
	if !found {
		return "", cryptoDomain.ErrMalformedEnvelope
	}

	fieldEnvelope := cryptoDomain.FieldEnvelope{
		EncryptedDataKey: encodedDataKey,
		Kind:             value.Kind,
		Payload:          envelope,
	}

	return fieldEnvelope.Encode()
}

// DecryptField reverses EncryptField, reconstructing the typed field value.
func (s *EnvelopeEncryptionService) DecryptField(
	ctx context.Context,
	opaque, fieldType string,
) (cryptoDomain.FieldValue, error) {
	fieldEnvelope, err := cryptoDomain.DecodeFieldEnvelope(opaque)
	if err != nil {
		return cryptoDomain.FieldValue{}, err
	}

	plaintext, err := s.Decrypt(ctx, fieldEnvelope.Payload)
	if err != nil {
		return cryptoDomain.FieldValue{}, err
	}

	return cryptoDomain.DecodeFieldValue(fieldEnvelope.Kind, plaintext), nil
}

// EncryptFieldForBusiness resolves the tenant's current key through the
// configured BusinessKeyManager and encrypts the field under it.
func (s *EnvelopeEncryptionService) EncryptFieldForBusiness(
	ctx context.Context,
	value cryptoDomain.FieldValue,
	fieldType, businessID string,
) (string, error) {
	if s.businessKeys == nil {
		return "", cryptoDomain.ErrNoBusinessKeyManager
	}

	keyID, err := s.businessKeys.GetKeyForBusiness(ctx, businessID)
	if err != nil {
		return "", err
	}

	return s.EncryptField(ctx, value, fieldType, keyID)
}

// resolveActive maps a key handle to the active version for new encryptions.
func (s *EnvelopeEncryptionService) resolveActive(ctx context.Context, keyID string) (ResolvedKey, error) {
	if s.resolver == nil {
		return ResolvedKey{KeyID: keyID, MasterKeyID: keyID, Version: 1}, nil
	}
	return s.resolver.ActiveKey(ctx, keyID)
}

// resolveLookup maps an envelope's key handle to its exact backing master key.
func (s *EnvelopeEncryptionService) resolveLookup(ctx context.Context, keyID string) (ResolvedKey, error) {
	if s.resolver == nil {
		return ResolvedKey{KeyID: keyID, MasterKeyID: keyID, Version: 1}, nil
	}
	return s.resolver.LookupKey(ctx, keyID)
}
