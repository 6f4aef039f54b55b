package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobeaver/intake/internal/database"
	"github.com/gobeaver/intake/internal/database/dbtest"
	"github.com/gobeaver/intake/internal/logger"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, database.IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, database.IsUniqueViolation(errors.Join(errors.New("insert"), &pgconn.PgError{Code: "23505"})))
	assert.False(t, database.IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, database.IsUniqueViolation(errors.New("boom")))
	assert.False(t, database.IsUniqueViolation(nil))
}

func TestConnect_BadURL(t *testing.T) {
	_, err := database.Connect(context.Background(), "postgres://%zz", logger.Discard())
	assert.Error(t, err)
}

func TestMigrate_Integration(t *testing.T) {
	pool, dsn := dbtest.Postgres(t)
	ctx := context.Background()

	for _, table := range []string{"upload_fingerprints", "bulk_uploads"} {
		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, table,
		).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, table)
	}

	// A second run is a no-op.
	require.NoError(t, database.Migrate(dsn, logger.Discard()))

	checker := database.NewReadinessChecker(pool)
	assert.Equal(t, "postgres", checker.Name())
	assert.NoError(t, checker.CheckReady(ctx))
}
