// Package ratelimit counts requests per key in fixed time windows.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultLimit  = 10
	DefaultWindow = time.Minute
)

type Result struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration // Time until window resets; set only if not allowed
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Fixed window shared by all limiters
type window struct {
	limit  int64
	length time.Duration
	now    func() time.Time
}

func newWindow(limit int, length time.Duration, now func() time.Time) window {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if length <= 0 {
		length = DefaultWindow
	}
	if now == nil {
		now = time.Now
	}
	return window{limit: int64(limit), length: length, now: now}
}

// Key of current window and time left till its end
func (w window) current(key string) (string, time.Duration) {
	now := w.now().UTC()
	start := now.Truncate(w.length)
	return fmt.Sprintf("%s:%d", strings.ReplaceAll(key, " ", "_"), start.Unix()), start.Add(w.length).Sub(now)
}

func (w window) result(hits int64, left time.Duration) Result {
	res := Result{
		Allowed:   hits <= w.limit,
		Remaining: max(w.limit-hits, 0),
	}
	if !res.Allowed {
		res.RetryAfter = left
	}
	return res
}
