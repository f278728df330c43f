package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"pymegate/pkg/requestcontext"
)

const redisKeyPrefix = "throttle:login:"

// RedisStore shares failure counters across instances. Counters live under
// throttle:login:<key> with the window as TTL.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	fullKey := redisKeyPrefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, window)
	ttl := pipe.PTTL(ctx, fullKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, err
	}

	resetAt := requestcontext.Now(ctx).Add(ttl.Val())
	return int(incr.Val()), resetAt, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (int, time.Time, error) {
	fullKey := redisKeyPrefix + key

	count, err := s.client.Get(ctx, fullKey).Int()
	if errors.Is(err, redis.Nil) {
		return 0, time.Time{}, nil
	}
	if err != nil {
		return 0, time.Time{}, err
	}
	ttl, err := s.client.PTTL(ctx, fullKey).Result()
	if err != nil {
		return 0, time.Time{}, err
	}
	return count, requestcontext.Now(ctx).Add(ttl), nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	return s.client.Del(ctx, redisKeyPrefix+key).Err()
}
