package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository stores refs as JSON under
// intake:dedup:{owner kind}:{owner}:{category}:{hash}. Insert uses SETNX.
type RedisRepository struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisRepository creates a repository over client. A positive ttl
// expires reservations; zero keeps them until deleted.
func NewRedisRepository(client redis.Cmdable, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, prefix: "intake:dedup:", ttl: ttl}
}

func (r *RedisRepository) key(k Key) string {
	return r.prefix + k.String()
}

// LookupByHash returns the ref holding key.
func (r *RedisRepository) LookupByHash(ctx context.Context, key Key) (Ref, error) {
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Ref{}, ErrNotFound
		}
		return Ref{}, fmt.Errorf("redis get: %w", err)
	}

	var ref Ref
	if err := json.Unmarshal(raw, &ref); err != nil {
		return Ref{}, fmt.Errorf("decode ref %s: %w", key, err)
	}
	return ref, nil
}

// Insert records ref, or returns ErrConflict when the key is held.
func (r *RedisRepository) Insert(ctx context.Context, ref Ref) error {
	raw, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("encode ref: %w", err)
	}

	ok, err := r.client.SetNX(ctx, r.key(ref.Key()), raw, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

// Delete removes key.
func (r *RedisRepository) Delete(ctx context.Context, key Key) error {
	n, err := r.client.Del(ctx, r.key(key)).Result()
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RedisReadiness pings Redis for the readiness endpoint.
type RedisReadiness struct {
	client redis.Cmdable
}

// NewRedisReadiness creates a readiness check for client.
func NewRedisReadiness(client redis.Cmdable) *RedisReadiness {
	return &RedisReadiness{client: client}
}

// Name identifies the dependency in readiness output.
func (c *RedisReadiness) Name() string { return "redis" }

// CheckReady pings Redis with a short timeout.
func (c *RedisReadiness) CheckReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unavailable: %w", err)
	}
	return nil
}
