package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/gobeaver/intake/internal/database/dbtest"
)

// exerciseRepository runs the Repository contract against repo.
func exerciseRepository(t *testing.T, repo interface {
	Repository
	Releaser
}) {
	t.Helper()
	ctx := context.Background()
	ref := Ref{
		OwnerKind: "vendor",
		OwnerID:   "vendor-42",
		Category:  "product-image",
		Hash:      Sum([]byte("contract bytes")),
		FileID:    "file-1",
		FileName:  "swatch.png",
		Size:      14,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	_, err := repo.LookupByHash(ctx, ref.Key())
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Insert(ctx, ref))

	got, err := repo.LookupByHash(ctx, ref.Key())
	require.NoError(t, err)
	assert.Equal(t, ref.FileID, got.FileID)
	assert.Equal(t, ref.Hash, got.Hash)
	assert.Equal(t, ref.FileName, got.FileName)
	assert.Equal(t, ref.Size, got.Size)
	assert.True(t, ref.CreatedAt.Equal(got.CreatedAt))

	second := ref
	second.FileID = "file-2"
	assert.ErrorIs(t, repo.Insert(ctx, second), ErrConflict)

	other := ref
	other.OwnerID = "vendor-43"
	assert.NoError(t, repo.Insert(ctx, other))

	sameID := ref
	sameID.OwnerKind = "customer"
	assert.NoError(t, repo.Insert(ctx, sameID))
	got, err = repo.LookupByHash(ctx, sameID.Key())
	require.NoError(t, err)
	assert.Equal(t, "customer", got.OwnerKind)

	require.NoError(t, repo.Delete(ctx, ref.Key()))
	assert.ErrorIs(t, repo.Delete(ctx, ref.Key()), ErrNotFound)
	_, err = repo.LookupByHash(ctx, ref.Key())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepository(t *testing.T) {
	exerciseRepository(t, NewMemoryRepository())
}

func TestMemoryRepository_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := NewMemoryRepository()
	assert.ErrorIs(t, repo.Insert(ctx, newRef("a", "b", []byte("c"), "d")), context.Canceled)
}

func TestPostgresRepository_Integration(t *testing.T) {
	pool, _ := dbtest.Postgres(t)
	exerciseRepository(t, NewPostgresRepository(pool))
}

func TestRedisRepository_Integration(t *testing.T) {
	dbtest.SkipUnlessIntegration(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "docker.io/redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	assert.NoError(t, NewRedisReadiness(client).CheckReady(ctx))
	exerciseRepository(t, NewRedisRepository(client, time.Hour))
}
