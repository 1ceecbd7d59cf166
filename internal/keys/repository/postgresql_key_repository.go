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

// PostgreSQLKeyRepository implements key version persistence for PostgreSQL.
//
// Key versions are stored with a native UUID primary key and a unique
// (business_id, version) pair. All methods are transaction-aware via
// database.GetTx, which rotation relies on to swap versions atomically.
type PostgreSQLKeyRepository struct {
	db *sql.DB
}

// NewPostgreSQLKeyRepository creates a new PostgreSQL key repository.
func NewPostgreSQLKeyRepository(db *sql.DB) *PostgreSQLKeyRepository {
	return &PostgreSQLKeyRepository{db: db}
}

const postgresKeyColumns = `id, business_id, version, algorithm, status, master_key_id,
	created_at, rotated_at, expires_at, revoked_at, revocation_reason`

// Create inserts a new key version.
func (p *PostgreSQLKeyRepository) Create(ctx context.Context, key *keysDomain.EncryptionKey) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO encryption_keys (` + postgresKeyColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

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
		if isPostgreSQLUniqueViolation(err) {
			return keysDomain.ErrKeyAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create encryption key")
	}
	return nil
}

// isPostgreSQLUniqueViolation checks if the error is a PostgreSQL unique
// constraint violation, such as a duplicate (business_id, version) pair.
func isPostgreSQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint")
}

// Update persists changed fields of an existing key version.
func (p *PostgreSQLKeyRepository) Update(ctx context.Context, key *keysDomain.EncryptionKey) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE encryption_keys
			  SET status = $1,
				  rotated_at = $2,
				  expires_at = $3,
				  revoked_at = $4,
				  revocation_reason = $5
			  WHERE id = $6`

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
func (p *PostgreSQLKeyRepository) GetByID(ctx context.Context, id uuid.UUID) (*keysDomain.EncryptionKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresKeyColumns + ` FROM encryption_keys WHERE id = $1`

	return p.scanKey(querier.QueryRowContext(ctx, query, id))
}

// GetActiveByBusiness returns the business's single active key version.
func (p *PostgreSQLKeyRepository) GetActiveByBusiness(
	ctx context.Context,
	businessID string,
) (*keysDomain.EncryptionKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresKeyColumns + ` FROM encryption_keys
			  WHERE business_id = $1 AND status = $2`

	return p.scanKey(querier.QueryRowContext(ctx, query, businessID, keysDomain.KeyStatusActive))
}

// GetByBusinessAndVersion returns a specific version of a business's key.
func (p *PostgreSQLKeyRepository) GetByBusinessAndVersion(
	ctx context.Context,
	businessID string,
	version uint,
) (*keysDomain.EncryptionKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresKeyColumns + ` FROM encryption_keys
			  WHERE business_id = $1 AND version = $2`

	return p.scanKey(querier.QueryRowContext(ctx, query, businessID, version))
}

// ListByBusiness returns all of a business's key versions ordered by version
// ascending.
func (p *PostgreSQLKeyRepository) ListByBusiness(
	ctx context.Context,
	businessID string,
) ([]*keysDomain.EncryptionKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresKeyColumns + ` FROM encryption_keys
			  WHERE business_id = $1 ORDER BY version ASC`

	rows, err := querier.QueryContext(ctx, query, businessID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list encryption keys")
	}
	return p.scanKeys(rows)
}

// List returns every key version across all businesses.
func (p *PostgreSQLKeyRepository) List(ctx context.Context) ([]*keysDomain.EncryptionKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresKeyColumns + ` FROM encryption_keys
			  ORDER BY business_id ASC, version ASC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list encryption keys")
	}
	return p.scanKeys(rows)
}

// ListBusinessIDs returns the distinct business ids that have keys.
func (p *PostgreSQLKeyRepository) ListBusinessIDs(ctx context.Context) ([]string, error) {
	querier := database.GetTx(ctx, p.db)

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

type rowScanner interface {
	Scan(dest ...any) error
}

func (p *PostgreSQLKeyRepository) scanKey(row rowScanner) (*keysDomain.EncryptionKey, error) {
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

func (p *PostgreSQLKeyRepository) scanKeys(rows *sql.Rows) ([]*keysDomain.EncryptionKey, error) {
	defer func() {
		_ = rows.Close()
	}()

	var keys []*keysDomain.EncryptionKey
	for rows.Next() {
		key, err := p.scanKey(rows)
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
