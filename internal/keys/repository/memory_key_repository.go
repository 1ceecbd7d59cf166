// Package repository implements persistence for encryption key versions.
//
// Three implementations are provided: PostgreSQL and MySQL repositories built
// on database/sql with transaction propagation via database.GetTx, and an
// in-memory repository for development and testing.
package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	keysDomain "github.com/finsec/keyguard/internal/keys/domain"
)

// MemoryKeyRepository is a thread-safe in-memory key store. It mirrors the SQL
// repositories' semantics so the lifecycle layer behaves identically against
// either backend. All state is volatile.
type MemoryKeyRepository struct {
	mu   sync.RWMutex
	keys map[uuid.UUID]keysDomain.EncryptionKey
}

// NewMemoryKeyRepository creates an empty in-memory key repository.
func NewMemoryKeyRepository() *MemoryKeyRepository {
	return &MemoryKeyRepository{
		keys: make(map[uuid.UUID]keysDomain.EncryptionKey),
	}
}

// Create inserts a new key version.
func (m *MemoryKeyRepository) Create(_ context.Context, key *keysDomain.EncryptionKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.keys[key.ID]; ok {
		return keysDomain.ErrKeyAlreadyExists
	}
	m.keys[key.ID] = *key
	return nil
}

// Update persists changed fields of an existing key version.
func (m *MemoryKeyRepository) Update(_ context.Context, key *keysDomain.EncryptionKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.keys[key.ID]; !ok {
		return keysDomain.ErrKeyNotFound
	}
	m.keys[key.ID] = *key
	return nil
}

// GetByID returns a key version by its unique id.
func (m *MemoryKeyRepository) GetByID(_ context.Context, id uuid.UUID) (*keysDomain.EncryptionKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key, ok := m.keys[id]
	if !ok {
		return nil, keysDomain.ErrKeyNotFound
	}
	return &key, nil
}

// GetActiveByBusiness returns the business's single active key version.
func (m *MemoryKeyRepository) GetActiveByBusiness(
	_ context.Context,
	businessID string,
) (*keysDomain.EncryptionKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, key := range m.keys {
		if key.BusinessID == businessID && key.Status == keysDomain.KeyStatusActive {
			found := key
			return &found, nil
		}
	}
	return nil, keysDomain.ErrKeyNotFound
}

// GetByBusinessAndVersion returns a specific version of a business's key.
func (m *MemoryKeyRepository) GetByBusinessAndVersion(
	_ context.Context,
	businessID string,
	version uint,
) (*keysDomain.EncryptionKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, key := range m.keys {
		if key.BusinessID == businessID && key.Version == version {
			found := key
			return &found, nil
		}
	}
	return nil, keysDomain.ErrKeyNotFound
}

// ListByBusiness returns all of a business's key versions ordered by version
// ascending.
func (m *MemoryKeyRepository) ListByBusiness(
	_ context.Context,
	businessID string,
) ([]*keysDomain.EncryptionKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []*keysDomain.EncryptionKey
	for _, key := range m.keys {
		if key.BusinessID == businessID {
			found := key
			keys = append(keys, &found)
		}
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].Version < keys[j].Version })
	return keys, nil
}

// List returns every key version across all businesses, ordered by business id
// then version ascending.
func (m *MemoryKeyRepository) List(_ context.Context) ([]*keysDomain.EncryptionKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]*keysDomain.EncryptionKey, 0, len(m.keys))
	for _, key := range m.keys {
		found := key
		keys = append(keys, &found)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].BusinessID != keys[j].BusinessID {
			return keys[i].BusinessID < keys[j].BusinessID
		}
		return keys[i].Version < keys[j].Version
	})
	return keys, nil
}

// ListBusinessIDs returns the distinct business ids that have keys.
func (m *MemoryKeyRepository) ListBusinessIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, key := range m.keys {
		seen[key.BusinessID] = struct{}{}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
