package repo

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"gatekeeper/internal/domain"
)

// DefaultExemptionsKey names the Redis set holding exempt user ids.
const DefaultExemptionsKey = "quota:exemptions"

// RedisExemptions keeps the exemption set in a Redis SET so every replica sees the same list.
type RedisExemptions struct {
	rdb redis.Cmdable
	key string
}

// NewRedisExemptions returns a store over key. An empty key falls back to DefaultExemptionsKey.
func NewRedisExemptions(rdb redis.Cmdable, key string) *RedisExemptions {
	if key == "" {
		key = DefaultExemptionsKey
	}
	return &RedisExemptions{rdb: rdb, key: key}
}

func (s *RedisExemptions) Add(ctx context.Context, userID string) (bool, error) {
	n, err := s.rdb.SAdd(ctx, s.key, userID).Result()
	if err != nil {
		return false, fmt.Errorf("redis sadd: %w", err)
	}
	return n > 0, nil
}

func (s *RedisExemptions) Remove(ctx context.Context, userID string) (bool, error) {
	n, err := s.rdb.SRem(ctx, s.key, userID).Result()
	if err != nil {
		return false, fmt.Errorf("redis srem: %w", err)
	}
	return n > 0, nil
}

func (s *RedisExemptions) Contains(ctx context.Context, userID string) (bool, error) {
	ok, err := s.rdb.SIsMember(ctx, s.key, userID).Result()
	if err != nil {
		return false, fmt.Errorf("redis sismember: %w", err)
	}
	return ok, nil
}

func (s *RedisExemptions) List(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}
	return ids, nil
}

var _ domain.ExemptionStore = (*RedisExemptions)(nil)
