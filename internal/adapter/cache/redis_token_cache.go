package cache

import (
	"context"
	"errors"
	"time"

	"github.com/Lost-tail/MetalProductsBackend/internal/payment"
	"github.com/redis/go-redis/v9"
)

// RedisTokenCache stores provider auth tokens in the shared key-value store.
// Concurrent refreshes may race; the worst case is one extra token fetch, so
// no locking is applied here (unlike the strict order-status path).
type RedisTokenCache struct {
	rdb *redis.Client
}

func NewRedisTokenCache(rdb *redis.Client) *RedisTokenCache {
	return &RedisTokenCache{rdb: rdb}
}

func (c *RedisTokenCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, "token:"+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisTokenCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, "token:"+key, value, ttl).Err()
}

var _ payment.TokenCache = (*RedisTokenCache)(nil)
