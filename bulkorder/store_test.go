package bulkorder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobeaver/intake/filevalidator"
	"github.com/gobeaver/intake/internal/database/dbtest"
)

func storedUpload(id, owner string, created time.Time) *Upload {
	return &Upload{
		UploadID:      id,
		OwnerID:       owner,
		TemplateID:    "commercial_blinds_v1",
		FileName:      "order.csv",
		FileHash:      "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		RowCount:      5,
		ValidRows:     4,
		InvalidRows:   1,
		TotalQuantity: 4,
		Status:        StatusValidating,
		Errors: []Issue{{
			Row:      3,
			Field:    "width_inches",
			Value:    "5",
			Message:  "Field 'width_inches' must be at least 12",
			Severity: SeverityError,
			Type:     filevalidator.ErrorTypeField,
		}},
		Warnings:  []Issue{},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// exerciseStore runs the Store contract against s.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrUploadNotFound)

	first := storedUpload("bulk_a_1", "owner-a", base)
	require.NoError(t, s.Save(ctx, first))
	assert.ErrorIs(t, s.Save(ctx, first), ErrUploadExists)

	got, err := s.Get(ctx, "bulk_a_1")
	require.NoError(t, err)
	assert.Equal(t, first.FileHash, got.FileHash)
	assert.Equal(t, first.Errors, got.Errors)
	assert.Empty(t, got.Warnings)
	assert.Equal(t, 4, got.TotalQuantity)
	assert.True(t, first.CreatedAt.Equal(got.CreatedAt))

	require.NoError(t, s.Save(ctx, storedUpload("bulk_a_2", "owner-a", base.Add(time.Hour))))
	require.NoError(t, s.Save(ctx, storedUpload("bulk_a_3", "owner-a", base.Add(2*time.Hour))))
	require.NoError(t, s.Save(ctx, storedUpload("bulk_b_1", "owner-b", base)))

	list, err := s.ListByOwner(ctx, "owner-a", 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "bulk_a_3", list[0].UploadID)
	assert.Equal(t, "bulk_a_1", list[2].UploadID)

	list, err = s.ListByOwner(ctx, "owner-a", 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = s.ListByOwner(ctx, "owner-c", 10)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.UpdateStatus(ctx, "bulk_a_1", StatusProcessed)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	updated, err := s.UpdateStatus(ctx, "bulk_a_1", StatusInvalid)
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, updated.Status)
	assert.False(t, updated.UpdatedAt.Before(first.UpdatedAt))

	updated, err = s.UpdateStatus(ctx, "bulk_a_1", StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, updated.Status)

	_, err = s.UpdateStatus(ctx, "bulk_a_1", StatusValid)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = s.UpdateStatus(ctx, "missing", StatusRejected)
	assert.ErrorIs(t, err, ErrUploadNotFound)

	got, err = s.Get(ctx, "bulk_a_1")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, got.Status)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreIsolatesRecords(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	u := storedUpload("bulk_x", "owner", time.Now())
	require.NoError(t, s.Save(ctx, u))

	u.Errors[0].Message = "changed after save"
	got, err := s.Get(ctx, "bulk_x")
	require.NoError(t, err)
	assert.Equal(t, "Field 'width_inches' must be at least 12", got.Errors[0].Message)
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryStore().Get(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPostgresStore_Integration(t *testing.T) {
	pool, _ := dbtest.Postgres(t)
	exerciseStore(t, NewPostgresStore(pool))
}
