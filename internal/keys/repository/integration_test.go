package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/finsec/keyguard/internal/crypto/domain"
	keysDomain "github.com/finsec/keyguard/internal/keys/domain"
	keysUsecase "github.com/finsec/keyguard/internal/keys/usecase"
	"github.com/finsec/keyguard/internal/testutil"
)

// newIntegrationKey builds a key fixture for live-database tests.
func newIntegrationKey(businessID string, version uint) keysDomain.EncryptionKey {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return keysDomain.EncryptionKey{
		ID:          uuid.Must(uuid.NewV7()),
		BusinessID:  businessID,
		Version:     version,
		Algorithm:   cryptoDomain.AESGCM,
		Status:      keysDomain.KeyStatusActive,
		MasterKeyID: "master-" + businessID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(90 * 24 * time.Hour),
	}
}

// runRepositoryIntegration exercises the full repository contract against a
// live database.
func runRepositoryIntegration(t *testing.T, repo keysUsecase.KeyRepository) {
	ctx := context.Background()

	key := newIntegrationKey("business-1", 1)
	require.NoError(t, repo.Create(ctx, &key))

	t.Run("get by id", func(t *testing.T) {
		got, err := repo.GetByID(ctx, key.ID)
		require.NoError(t, err)
		assert.Equal(t, key.BusinessID, got.BusinessID)
		assert.Equal(t, key.MasterKeyID, got.MasterKeyID)
		assert.WithinDuration(t, key.CreatedAt, got.CreatedAt, time.Second)
	})

	t.Run("active lookup", func(t *testing.T) {
		got, err := repo.GetActiveByBusiness(ctx, "business-1")
		require.NoError(t, err)
		assert.Equal(t, key.ID, got.ID)

		_, err = repo.GetActiveByBusiness(ctx, "nobody")
		require.ErrorIs(t, err, keysDomain.ErrKeyNotFound)
	})

	t.Run("duplicate version conflicts", func(t *testing.T) {
		dup := newIntegrationKey("business-1", 1)
		err := repo.Create(ctx, &dup)
		require.ErrorIs(t, err, keysDomain.ErrKeyAlreadyExists)
	})

	t.Run("update and version history", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Microsecond)
		deprecated := key
		deprecated.Status = keysDomain.KeyStatusDeprecated
		deprecated.RotatedAt = &now
		require.NoError(t, repo.Update(ctx, &deprecated))

		successor := newIntegrationKey("business-1", 2)
		require.NoError(t, repo.Create(ctx, &successor))

		history, err := repo.ListByBusiness(ctx, "business-1")
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, keysDomain.KeyStatusDeprecated, history[0].Status)
		require.NotNil(t, history[0].RotatedAt)
		assert.Equal(t, keysDomain.KeyStatusActive, history[1].Status)

		got, err := repo.GetByBusinessAndVersion(ctx, "business-1", 2)
		require.NoError(t, err)
		assert.Equal(t, successor.ID, got.ID)
	})

	t.Run("revocation fields round trip", func(t *testing.T) {
		got, err := repo.GetActiveByBusiness(ctx, "business-1")
		require.NoError(t, err)

		now := time.Now().UTC().Truncate(time.Microsecond)
		got.Status = keysDomain.KeyStatusRevoked
		got.RevokedAt = &now
		got.RevocationReason = "integration test"
		require.NoError(t, repo.Update(ctx, got))

		reloaded, err := repo.GetByID(ctx, got.ID)
		require.NoError(t, err)
		assert.Equal(t, keysDomain.KeyStatusRevoked, reloaded.Status)
		require.NotNil(t, reloaded.RevokedAt)
		assert.Equal(t, "integration test", reloaded.RevocationReason)
	})

	t.Run("business ids", func(t *testing.T) {
		other := newIntegrationKey("business-2", 1)
		require.NoError(t, repo.Create(ctx, &other))

		ids, err := repo.ListBusinessIDs(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"business-1", "business-2"}, ids)
	})
}

func TestPostgreSQLKeyRepositoryIntegration(t *testing.T) {
	testutil.SkipIfNoPostgres(t)

	db := testutil.SetupPostgresDB(t)
	t.Cleanup(func() {
		testutil.CleanupPostgresDB(t, db)
		testutil.TeardownDB(t, db)
	})

	runRepositoryIntegration(t, NewPostgreSQLKeyRepository(db))
}

func TestMySQLKeyRepositoryIntegration(t *testing.T) {
	testutil.SkipIfNoMySQL(t)

	db := testutil.SetupMySQLDB(t)
	t.Cleanup(func() {
		testutil.CleanupMySQLDB(t, db)
		testutil.TeardownDB(t, db)
	})

	runRepositoryIntegration(t, NewMySQLKeyRepository(db))
}
