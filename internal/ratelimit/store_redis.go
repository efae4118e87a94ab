package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares fixed-window counters across instances. Each window is
// one key incremented atomically; the first increment sets the expiry.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, "ratelimit:"+key)
	// NX keeps the window fixed: only the first increment sets the expiry.
	pipe.ExpireNX(ctx, "ratelimit:"+key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	count := int(incr.Val())
	res := Result{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(limit-count, 0),
	}
	if !res.Allowed {
		ttl, err := s.client.TTL(ctx, "ratelimit:"+key).Result()
		if err == nil && ttl > 0 {
			res.RetryAfter = ttl
		} else {
			res.RetryAfter = window
		}
	}
	return res, nil
}
