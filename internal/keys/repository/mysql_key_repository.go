package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/finsec/keyguard/internal/database"
	apperrors "github.com/finsec/keyguard/internal/errors"
	keysDomain "github.com/finsec/keyguard/internal/keys/domain"
)

// MySQLKeyRepository implements key version persistence for MySQL. It mirrors
// the PostgreSQL repository with MySQL placeholders; UUIDs are stored as
// CHAR(36).
type MySQLKeyRepository struct {
	db *sql.DB
}

// NewMySQLKeyRepository creates a new MySQL key repository.
func NewMySQLKeyRepository(db *sql.DB) *MySQLKeyRepository {
	return &MySQLKeyRepository{db: db}
}

const mysqlKeyColumns = `id, business_id, version, algorithm, status, master_key_id,
	created_at, rotated_at, expires_at, revoked_at, revocation_reason`

// Create inserts a new key version.
func (m *MySQLKeyRepository) Create(ctx context.Context, key *keysDomain.EncryptionKey) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO encryption_keys (` + mysqlKeyColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		key.ID,
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
	if err != nil {
		if isMySQLUniqueViolation(err) {
			return keysDomain.ErrKeyAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create encryption key")
	}
	return nil
}

// isMySQLUniqueViolation checks if the error is a MySQL unique constraint
// violation ("Error 1062: Duplicate entry").
func isMySQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate entry") || strings.Contains(errMsg, "1062")
}

// Update persists changed fields of an existing key version.
func (m *MySQLKeyRepository) Update(ctx context.Context, key *keysDomain.EncryptionKey) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE encryption_keys
			  SET status = ?,
				  rotated_at = ?,
				  expires_at = ?,
				  revoked_at = ?,
				  revocation_reason = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		key.Status,
		key.RotatedAt,
		key.ExpiresAt,
		key.RevokedAt,
		key.RevocationReason,
		key.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update encryption key")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read update result")
	}
	if affected == 0 {
		return keysDomain.ErrKeyNotFound
	}
	return nil
}

// GetByID returns a key version by its unique id.
func (m *MySQLKeyRepository) GetByID(ctx context.Context, id uuid.UUID) (*keysDomain.EncryptionKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlKeyColumns + ` FROM encryption_keys WHERE id = ?`

	return m.scanKey(querier.QueryRowContext(ctx, query, id))
}

// GetActiveByBusiness returns the business's single active key version.
func (m *MySQLKeyRepository) GetActiveByBusiness(
	ctx context.Context,
	businessID string,
) (*keysDomain.EncryptionKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlKeyColumns + ` FROM encryption_keys
			  WHERE business_id = ? AND status = ?`

	return m.scanKey(querier.QueryRowContext(ctx, query, businessID, keysDomain.KeyStatusActive))
}

// GetByBusinessAndVersion returns a specific version of a business's key.
func (m *MySQLKeyRepository) GetByBusinessAndVersion(
	ctx context.Context,
	businessID string,
	version uint,
) (*keysDomain.EncryptionKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlKeyColumns + ` FROM encryption_keys
			  WHERE business_id = ? AND version = ?`

	return m.scanKey(querier.QueryRowContext(ctx, query, businessID, version))
}

// ListByBusiness returns all of a business's key versions ordered by version
// ascending.
func (m *MySQLKeyRepository) ListByBusiness(
	ctx context.Context,
	businessID string,
) ([]*keysDomain.EncryptionKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlKeyColumns + ` FROM encryption_keys
			  WHERE business_id = ? ORDER BY version ASC`

	rows, err := querier.QueryContext(ctx, query, businessID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list encryption keys")
	}
	return m.scanKeys(rows)
}

// List returns every key version across all businesses.
func (m *MySQLKeyRepository) List(ctx context.Context) ([]*keysDomain.EncryptionKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlKeyColumns + ` FROM encryption_keys
			  ORDER BY business_id ASC, version ASC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list encryption keys")
	}
	return m.scanKeys(rows)
}

// ListBusinessIDs returns the distinct business ids that have keys.
func (m *MySQLKeyRepository) ListBusinessIDs(ctx context.Context) ([]string, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT DISTINCT business_id FROM encryption_keys ORDER BY business_id ASC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list business ids")
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan business id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate business ids")
	}
	return ids, nil
}

func (m *MySQLKeyRepository) scanKey(row rowScanner) (*keysDomain.EncryptionKey, error) {
	var key keysDomain.EncryptionKey
	var revocationReason sql.NullString

	err := row.Scan(
		&key.ID,
		&key.BusinessID,
		&key.Version,
		&key.Algorithm,
		&key.Status,
		&key.MasterKeyID,
		&key.CreatedAt,
		&key.RotatedAt,
		&key.ExpiresAt,
		&key.RevokedAt,
		&revocationReason,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, keysDomain.ErrKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan encryption key")
	}

	key.RevocationReason = revocationReason.String
	return &key, nil
}

func (m *MySQLKeyRepository) scanKeys(rows *sql.Rows) ([]*keysDomain.EncryptionKey, error) {
	defer func() {
		_ = rows.Close()
	}()

	var keys []*keysDomain.EncryptionKey
	for rows.Next() {
		key, err := m.scanKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate encryption keys")
	}
	return keys, nil
}
