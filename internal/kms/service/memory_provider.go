package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/finsec/keyguard/internal/crypto/domain"
	cryptoService "github.com/finsec/keyguard/internal/crypto/service"
	kmsDomain "github.com/finsec/keyguard/internal/kms/domain"
)

// masterKeyEntry holds a master key inside the provider boundary. The raw key
// material never leaves this struct and is zeroed when the provider closes.
type masterKeyEntry struct {
	id        string
	alias     string
	key       []byte
	enabled   bool
	createdAt time.Time
}

// MemoryProvider is the in-memory reference Provider used for development and
// testing. Master keys are random 256-bit secrets and wrap/unwrap is AES-256-GCM
// performed locally.
//
// Wrap format for any payload: iv(12B) || tag(16B) || ciphertext, raw bytes.
//
// This provider exists to make the rest of the system testable without a real
// KMS; it is not a substitute for a hardened security boundary. All state is
// volatile.
type MemoryProvider struct {
	mu   sync.RWMutex
	keys map[string]*masterKeyEntry
}

// NewMemoryProvider creates an empty in-memory KMS provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		keys: make(map[string]*masterKeyEntry),
	}
}

// CreateMasterKey provisions a new random 256-bit master key and returns its id.
func (m *MemoryProvider) CreateMasterKey(_ context.Context, alias string) (string, error) {
	key := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate master key: %w", err)
	}

	entry := &masterKeyEntry{
		id:        uuid.Must(uuid.NewV7()).String(),
		alias:     alias,
		key:       key,
		enabled:   true,
		createdAt: time.Now().UTC(),
	}

	m.mu.Lock()
	m.keys[entry.id] = entry
	m.mu.Unlock()

	return entry.id, nil
}

// GenerateDataKey returns a fresh random data key in the clear and wrapped
// under the master key.
func (m *MemoryProvider) GenerateDataKey(
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

	encrypted, err := m.Encrypt(ctx, masterKeyID, plaintext)
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

// Encrypt wraps plaintext under the master key as iv || tag || ciphertext.
// Each call draws a fresh random nonce.
func (m *MemoryProvider) Encrypt(_ context.Context, masterKeyID string, plaintext []byte) ([]byte, error) {
	entry, err := m.usableEntry(masterKeyID)
	if err != nil {
		return nil, err
	}

	aead, err := cryptoService.NewAESGCM(entry.key)
	if err != nil {
		return nil, err
	}

	sealed, nonce, err := aead.Encrypt(plaintext, nil)
	if err != nil {
		return nil, err
	}

	// aead.Encrypt returns ciphertext||tag; reorder into iv||tag||ciphertext.
	tagStart := len(sealed) - cryptoDomain.TagSize
	out := make([]byte, 0, len(nonce)+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed[tagStart:]...)
	out = append(out, sealed[:tagStart]...)

	return out, nil
}

// Decrypt unwraps an iv || tag || ciphertext payload. Inputs shorter than the
// nonce plus tag fail with ErrInvalidCiphertext; a tag mismatch fails with
// ErrAuthenticationFailed.
func (m *MemoryProvider) Decrypt(_ context.Context, masterKeyID string, ciphertext []byte) ([]byte, error) {
	entry, err := m.usableEntry(masterKeyID)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < cryptoDomain.NonceSize+cryptoDomain.TagSize {
		return nil, fmt.Errorf("%w: too short", kmsDomain.ErrInvalidCiphertext)
	}

	nonce := ciphertext[:cryptoDomain.NonceSize]
	tag := ciphertext[cryptoDomain.NonceSize : cryptoDomain.NonceSize+cryptoDomain.TagSize]
	payload := ciphertext[cryptoDomain.NonceSize+cryptoDomain.TagSize:]

	aead, err := cryptoService.NewAESGCM(entry.key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(payload)+len(tag))
	sealed = append(sealed, payload...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Decrypt(sealed, nonce, nil)
	if err != nil {
		return nil, cryptoDomain.ErrAuthenticationFailed
	}

	return plaintext, nil
}

// DescribeKey returns the master key's public metadata.
func (m *MemoryProvider) DescribeKey(_ context.Context, masterKeyID string) (kmsDomain.MasterKeyDescription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.keys[masterKeyID]
	if !ok {
		return kmsDomain.MasterKeyDescription{}, kmsDomain.ErrMasterKeyNotFound
	}

	return kmsDomain.MasterKeyDescription{
		KeyID:     entry.id,
		Alias:     entry.alias,
		Enabled:   entry.enabled,
		CreatedAt: entry.createdAt,
	}, nil
}

// EnableKey re-enables a disabled master key.
func (m *MemoryProvider) EnableKey(_ context.Context, masterKeyID string) error {
	return m.setEnabled(masterKeyID, true)
}

// DisableKey disables a master key; all use fails until re-enabled.
func (m *MemoryProvider) DisableKey(_ context.Context, masterKeyID string) error {
	return m.setEnabled(masterKeyID, false)
}

// Close zeros all master key material and clears the provider.
func (m *MemoryProvider) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, entry := range m.keys {
		cryptoDomain.Zero(entry.key)
	}
	m.keys = make(map[string]*masterKeyEntry)
}

// usableEntry returns the entry for a master key, checking existence and the
// enabled flag before any use.
func (m *MemoryProvider) usableEntry(masterKeyID string) (*masterKeyEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.keys[masterKeyID]
	if !ok {
		return nil, kmsDomain.ErrMasterKeyNotFound
	}
	if !entry.enabled {
		return nil, kmsDomain.ErrKeyDisabled
	}
	return entry, nil
}

func (m *MemoryProvider) setEnabled(masterKeyID string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.keys[masterKeyID]
	if !ok {
		return kmsDomain.ErrMasterKeyNotFound
	}
	entry.enabled = enabled
	return nil
}
