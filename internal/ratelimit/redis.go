package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "bazario:rl:"

// Limiter shared by all instances using same redis
type RedisLimiter struct {
	window
	client *redis.Client
	prefix string
}

func NewRedisLimiter(client *redis.Client, limit int, length time.Duration, now func() time.Time) *RedisLimiter {
	return &RedisLimiter{
		window: newWindow(limit, length, now),
		client: client,
		prefix: defaultRedisPrefix,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	k, left := l.current(key)
	k = l.prefix + k

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, l.length)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("redis limiter: %w", err)
	}

	return l.result(incr.Val(), left), nil
}
