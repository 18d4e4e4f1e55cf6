package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rentpay-gateway/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// IdempotencyCache implements ports.IdempotencyCache: a Redis fast path in
// front of the durable idempotency store. Only completed records are cached;
// the TTL mirrors the record's expiry so the cache can never outlive the
// database row it shadows.
type IdempotencyCache struct {
	client *goredis.Client
	prefix string
}

// NewIdempotencyCache creates a new Redis-backed idempotency cache.
func NewIdempotencyCache(client *goredis.Client) *IdempotencyCache {
	return &IdempotencyCache{
		client: client,
		prefix: "idempotency:",
	}
}

// Get retrieves a cached record by idempotency key.
// Returns nil, nil if the key does not exist.
func (c *IdempotencyCache) Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis idempotency get: %w", err)
	}

	rec := &domain.IdempotencyRecord{}
	if err := json.Unmarshal(val, rec); err != nil {
		return nil, fmt.Errorf("unmarshal cached idempotency record: %w", err)
	}
	return rec, nil
}

// Set stores a record in the cache with TTL.
func (c *IdempotencyCache) Set(ctx context.Context, key string, record *domain.IdempotencyRecord, ttl time.Duration) error {
	val, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal idempotency record: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, val, ttl).Err(); err != nil {
		return fmt.Errorf("redis idempotency set: %w", err)
	}
	return nil
}
