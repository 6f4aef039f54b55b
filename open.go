package intake

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/gobeaver/intake/bulkorder"
	"github.com/gobeaver/intake/dedup"
	"github.com/gobeaver/intake/filevalidator"
	"github.com/gobeaver/intake/internal/database"
)

// ReadinessChecker reports whether a dependency can serve requests.
type ReadinessChecker interface {
	Name() string
	CheckReady(ctx context.Context) error
}

// Open builds a Service from cfg: the policy table with its overrides, the
// dedup and bulk stores, and the storage driver. PostgreSQL migrations are
// applied before the pool is opened. Call Close on the service to release
// connections.
func Open(ctx context.Context, cfg *Config, logger *slog.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	table, err := loadPolicyTable(cfg.PolicyFile)
	if err != nil {
		return nil, err
	}

	opts := []ServiceOption{
		WithLogger(logger),
		WithEnforcer(filevalidator.NewEnforcer(table, filevalidator.WithConcurrency(cfg.MaxConcurrency))),
	}
	var closers []func() error
	fail := func(err error) (*Service, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
		return nil, err
	}

	var pool *pgxpool.Pool
	if cfg.DedupStore == "postgres" || cfg.BulkStore == "postgres" {
		if err := database.Migrate(cfg.DatabaseURL, logger); err != nil {
			return fail(err)
		}
		pool, err = database.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() error { pool.Close(); return nil })
		opts = append(opts, WithReadiness(database.NewReadinessChecker(pool)))
	}

	var repo dedup.Repository
	switch cfg.DedupStore {
	case "postgres":
		repo = dedup.NewPostgresRepository(pool)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		closers = append(closers, client.Close)
		repo = dedup.NewRedisRepository(client, cfg.RedisTTL())
		opts = append(opts, WithReadiness(dedup.NewRedisReadiness(client)))
	default:
		repo = dedup.NewMemoryRepository()
	}
	opts = append(opts, WithDeduplicator(dedup.New(repo,
		dedup.WithCache(cfg.DedupCacheSize, cfg.DedupCacheTTL()),
		dedup.WithLogger(logger),
	)))

	if cfg.BulkStore == "postgres" {
		opts = append(opts, WithBulkStore(bulkorder.NewPostgresStore(pool)))
	}

	if cfg.StorageEnabled() {
		fs, err := CreateDriver(cfg)
		if err != nil {
			return fail(fmt.Errorf("failed to create driver: %w", err))
		}
		opts = append(opts, WithStorage(fs))
	}

	svc := NewService(opts...)
	svc.closers = closers
	logger.Info("intake service ready",
		slog.String("driver", cfg.Driver),
		slog.String("dedup_store", cfg.DedupStore),
		slog.String("bulk_store", cfg.BulkStore),
		slog.Int("policies", table.Len()),
	)
	return svc, nil
}

func loadPolicyTable(path string) (*filevalidator.PolicyTable, error) {
	table := filevalidator.DefaultPolicyTable()
	if path == "" {
		return table, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open policy file: %w", err)
	}
	defer f.Close()

	overrides, err := filevalidator.LoadPolicyOverrides(f)
	if err != nil {
		return nil, fmt.Errorf("policy file %s: %w", path, err)
	}
	return table.WithOverrides(overrides...)
}
