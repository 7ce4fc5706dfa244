package ratelimit

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window request counter. A nil Limiter allows everything,
// which keeps single-node and test deployments working without redis.
type Limiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewLimiter(client *redis.Client, limit int64, window time.Duration) *Limiter {
	if client == nil || limit <= 0 || window <= 0 {
		return nil
	}
	return &Limiter{client: client, limit: limit, window: window}
}

// Allow reports whether another request for key fits in the current window.
// Redis errors fail open: availability of the status endpoint matters more
// than strict limiting.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.client == nil {
		return true
	}

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		l.client.Expire(ctx, key, l.window)
	}
	return count <= l.limit
}
