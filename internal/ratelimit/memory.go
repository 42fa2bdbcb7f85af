package ratelimit

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Limiter for single instance deployments
type MemoryLimiter struct {
	window
	cache *gocache.Cache
}

func NewMemoryLimiter(limit int, length time.Duration, now func() time.Time) *MemoryLimiter {
	w := newWindow(limit, length, now)
	return &MemoryLimiter{
		window: w,
		cache:  gocache.New(w.length, 2*w.length),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	k, left := l.current(key)

	// Add fails if window already started
	if err := l.cache.Add(k, int64(1), l.length); err == nil {
		return l.result(1, left), nil
	}

	hits, err := l.cache.IncrementInt64(k, 1)
	if err != nil {
		return Result{}, fmt.Errorf("memory limiter: %w", err)
	}
	return l.result(hits, left), nil
}
