package dedup

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gobeaver/intake/internal/database"
)

// PostgresRepository stores refs in upload_fingerprints. The table's
// UNIQUE (owner_kind, owner_id, category, file_hash) constraint makes Insert
// atomic.
type PostgresRepository struct {
	db database.DBTX
}

// NewPostgresRepository creates a repository over db.
func NewPostgresRepository(db database.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// LookupByHash returns the ref holding key.
func (r *PostgresRepository) LookupByHash(ctx context.Context, key Key) (Ref, error) {
	query := `
		SELECT owner_kind, owner_id, category, file_hash, file_id, file_name, size_bytes, created_at
		FROM upload_fingerprints
		WHERE owner_kind = $1 AND owner_id = $2 AND category = $3 AND file_hash = $4`

	var (
		ref  Ref
		hash string
	)
	err := r.db.QueryRow(ctx, query, key.OwnerKind, key.OwnerID, key.Category, key.Hash.Hex()).Scan(
		&ref.OwnerKind, &ref.OwnerID, &ref.Category, &hash, &ref.FileID, &ref.FileName, &ref.Size, &ref.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ref{}, ErrNotFound
		}
		return Ref{}, fmt.Errorf("select fingerprint: %w", err)
	}
	if ref.Hash, err = ParseFingerprint(hash); err != nil {
		return Ref{}, err
	}
	return ref, nil
}

// Insert records ref, or returns ErrConflict when the key is held.
func (r *PostgresRepository) Insert(ctx context.Context, ref Ref) error {
	query := `
		INSERT INTO upload_fingerprints (owner_kind, owner_id, category, file_hash, file_id, file_name, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		ref.OwnerKind, ref.OwnerID, ref.Category, ref.Hash.Hex(), ref.FileID, ref.FileName, ref.Size, ref.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert fingerprint: %w", err)
	}
	return nil
}

// Delete removes key.
func (r *PostgresRepository) Delete(ctx context.Context, key Key) error {
	query := `
		DELETE FROM upload_fingerprints
		WHERE owner_kind = $1 AND owner_id = $2 AND category = $3 AND file_hash = $4`

	tag, err := r.db.Exec(ctx, query, key.OwnerKind, key.OwnerID, key.Category, key.Hash.Hex())
	if err != nil {
		return fmt.Errorf("delete fingerprint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
