package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/finsec/keyguard/internal/crypto/domain"
	apperrors "github.com/finsec/keyguard/internal/errors"
	keysDomain "github.com/finsec/keyguard/internal/keys/domain"
)

var keyColumns = []string{
	"id", "business_id", "version", "algorithm", "status", "master_key_id",
	"created_at", "rotated_at", "expires_at", "revoked_at", "revocation_reason",
}

func testKey() *keysDomain.EncryptionKey {
	now := time.Now().UTC()
	return &keysDomain.EncryptionKey{
		ID:          uuid.Must(uuid.NewV7()),
		BusinessID:  "business-1",
		Version:     1,
		Algorithm:   cryptoDomain.AESGCM,
		Status:      keysDomain.KeyStatusActive,
		MasterKeyID: "master-key-1",
		CreatedAt:   now,
		ExpiresAt:   now.AddDate(0, 0, 90),
	}
}

func keyRow(key *keysDomain.EncryptionKey) *sqlmock.Rows {
	return sqlmock.NewRows(keyColumns).AddRow(
		key.ID.String(),
		key.BusinessID,
		key.Version,
		key.Algorithm,
		key.Status,
		key.MasterKeyID,
		key.CreatedAt,
		key.RotatedAt,
		key.ExpiresAt,
		key.RevokedAt,
		key.RevocationReason,
	)
}

func TestPostgreSQLKeyRepositoryCreate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		key := testKey()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO encryption_keys")).
			WithArgs(
				key.ID, key.BusinessID, key.Version, key.Algorithm, key.Status,
				key.MasterKeyID, key.CreatedAt, key.RotatedAt, key.ExpiresAt,
				key.RevokedAt, key.RevocationReason,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewPostgreSQLKeyRepository(db)
		require.NoError(t, repo.Create(context.Background(), key))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO encryption_keys")).
			WillReturnError(assert.AnError)

		repo := NewPostgreSQLKeyRepository(db)
		assert.Error(t, repo.Create(context.Background(), testKey()))
	})

	t.Run("duplicate version maps to conflict", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO encryption_keys")).
			WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "encryption_keys_business_id_version_key"`))

		repo := NewPostgreSQLKeyRepository(db)
		err = repo.Create(context.Background(), testKey())
		assert.ErrorIs(t, err, keysDomain.ErrKeyAlreadyExists)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})
}

func TestPostgreSQLKeyRepositoryUpdate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		key := testKey()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE encryption_keys")).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewPostgreSQLKeyRepository(db)
		require.NoError(t, repo.Update(context.Background(), key))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing key", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectExec(regexp.QuoteMeta("UPDATE encryption_keys")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := NewPostgreSQLKeyRepository(db)
		err = repo.Update(context.Background(), testKey())
		assert.ErrorIs(t, err, keysDomain.ErrKeyNotFound)
	})
}

func TestPostgreSQLKeyRepositoryGetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		key := testKey()
		mock.ExpectQuery(regexp.QuoteMeta("FROM encryption_keys WHERE id =")).
			WithArgs(key.ID).
			WillReturnRows(keyRow(key))

		repo := NewPostgreSQLKeyRepository(db)
		got, err := repo.GetByID(context.Background(), key.ID)
		require.NoError(t, err)
		assert.Equal(t, key.ID, got.ID)
		assert.Equal(t, key.MasterKeyID, got.MasterKeyID)
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery(regexp.QuoteMeta("FROM encryption_keys WHERE id =")).
			WillReturnRows(sqlmock.NewRows(keyColumns))

		repo := NewPostgreSQLKeyRepository(db)
		_, err = repo.GetByID(context.Background(), uuid.Must(uuid.NewV7()))
		assert.ErrorIs(t, err, keysDomain.ErrKeyNotFound)
	})
}

func TestPostgreSQLKeyRepositoryGetActiveByBusiness(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	key := testKey()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE business_id = $1 AND status = $2")).
		WithArgs(key.BusinessID, keysDomain.KeyStatusActive).
		WillReturnRows(keyRow(key))

	repo := NewPostgreSQLKeyRepository(db)
	got, err := repo.GetActiveByBusiness(context.Background(), key.BusinessID)
	require.NoError(t, err)
	assert.Equal(t, keysDomain.KeyStatusActive, got.Status)
}

func TestPostgreSQLKeyRepositoryListByBusiness(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	first := testKey()
	second := testKey()
	second.Version = 2

	rows := keyRow(first).AddRow(
		second.ID.String(), second.BusinessID, second.Version, second.Algorithm,
		second.Status, second.MasterKeyID, second.CreatedAt, second.RotatedAt,
		second.ExpiresAt, second.RevokedAt, second.RevocationReason,
	)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY version ASC")).
		WithArgs(first.BusinessID).
		WillReturnRows(rows)

	repo := NewPostgreSQLKeyRepository(db)
	keys, err := repo.ListByBusiness(context.Background(), first.BusinessID)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, uint(1), keys[0].Version)
	assert.Equal(t, uint(2), keys[1].Version)
}

func TestPostgreSQLKeyRepositoryListBusinessIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT business_id")).
		WillReturnRows(sqlmock.NewRows([]string{"business_id"}).
			AddRow("business-1").
			AddRow("business-2"))

	repo := NewPostgreSQLKeyRepository(db)
	ids, err := repo.ListBusinessIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"business-1", "business-2"}, ids)
}
