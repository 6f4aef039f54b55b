package bulkorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gobeaver/intake/internal/database"
)

// PostgresStore keeps records in the bulk_uploads table. Errors and warnings
// are stored as JSONB arrays.
type PostgresStore struct {
	db database.DBTX
}

// NewPostgresStore creates a store over db.
func NewPostgresStore(db database.DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

const uploadColumns = `upload_id, owner_id, template_id, file_name, file_hash,
	row_count, valid_rows, invalid_rows, total_quantity, status, errors, warnings, created_at, updated_at`

func (s *PostgresStore) Save(ctx context.Context, u *Upload) error {
	errs, err := json.Marshal(u.Errors)
	if err != nil {
		return fmt.Errorf("encode errors: %w", err)
	}
	warns, err := json.Marshal(u.Warnings)
	if err != nil {
		return fmt.Errorf("encode warnings: %w", err)
	}

	query := `INSERT INTO bulk_uploads (` + uploadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = s.db.Exec(ctx, query,
		u.UploadID, u.OwnerID, u.TemplateID, u.FileName, u.FileHash,
		u.RowCount, u.ValidRows, u.InvalidRows, u.TotalQuantity, string(u.Status), errs, warns, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrUploadExists, u.UploadID)
		}
		return fmt.Errorf("insert bulk upload: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, uploadID string) (*Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM bulk_uploads WHERE upload_id = $1`

	u, err := scanUpload(s.db.QueryRow(ctx, query, uploadID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrUploadNotFound, uploadID)
		}
		return nil, fmt.Errorf("select bulk upload: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM bulk_uploads
		WHERE owner_id = $1
		ORDER BY created_at DESC, upload_id DESC`
	args := []any{ownerID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bulk uploads: %w", err)
	}
	defer rows.Close()

	var out []*Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bulk upload: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateStatus changes the status in one statement guarded by the allowed
// predecessor statuses, so concurrent updates cannot skip the lifecycle.
func (s *PostgresStore) UpdateStatus(ctx context.Context, uploadID string, to Status) (*Upload, error) {
	from := predecessors(to)
	allowed := make([]string, len(from))
	for i, st := range from {
		allowed[i] = string(st)
	}

	query := `UPDATE bulk_uploads
		SET status = $2, updated_at = now()
		WHERE upload_id = $1 AND status = ANY($3)
		RETURNING ` + uploadColumns

	u, err := scanUpload(s.db.QueryRow(ctx, query, uploadID, string(to), allowed))
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update bulk upload: %w", err)
	}

	current, err := s.Get(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, to)
}

func scanUpload(row pgx.Row) (*Upload, error) {
	var (
		u      Upload
		status string
		errs   []byte
		warns  []byte
	)
	err := row.Scan(
		&u.UploadID, &u.OwnerID, &u.TemplateID, &u.FileName, &u.FileHash,
		&u.RowCount, &u.ValidRows, &u.InvalidRows, &u.TotalQuantity, &status, &errs, &warns, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Status = Status(status)
	if err := json.Unmarshal(errs, &u.Errors); err != nil {
		return nil, fmt.Errorf("decode errors: %w", err)
	}
	if err := json.Unmarshal(warns, &u.Warnings); err != nil {
		return nil, fmt.Errorf("decode warnings: %w", err)
	}
	return &u, nil
}
