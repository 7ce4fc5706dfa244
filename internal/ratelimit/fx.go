package ratelimit

import (
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stayloop/stayloop/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("rate.limit",
	fx.Provide(NewRedisClient),
	fx.Provide(NewLocker),
	fx.Provide(NewStatusPollLimiter),
)

// NewRedisClient returns a shared redis client, or nil when no address is
// configured. Downstream components tolerate the nil client.
func NewRedisClient(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}

// NewStatusPollLimiter bounds manual gateway status polls per payment.
func NewStatusPollLimiter(client *redis.Client) *Limiter {
	return NewLimiter(client, 10, time.Minute)
}
