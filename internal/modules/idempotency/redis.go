package idempotency

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares idempotency keys between API replicas. Expiry is left to Redis.
type RedisStore struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

func NewRedisStore(client *redis.Client, namespace string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, namespace: namespace, ttl: ttl}
}

func (s *RedisStore) Remember(ctx context.Context, key string, orderID int64) error {
	if err := s.client.Set(ctx, s.key(key), orderID, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Lookup(ctx context.Context, key string) (int64, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("idempotency: get %s: %w", key, err)
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("idempotency: corrupt value for %s: %w", key, err)
	}
	return id, true, nil
}

func (s *RedisStore) key(key string) string {
	return fmt.Sprintf("%s:idempotency:%s", s.namespace, key)
}
