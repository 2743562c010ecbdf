package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds throttle tuning parameters.
type Config struct {
	Prefix       string
	MaxPerWindow int
	Window       time.Duration
}

// Limiter throttles deliveries per account and channel.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter]. A non-positive MaxPerWindow disables throttling.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "vd"
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	return &Limiter{redis: redisClient, config: cfg}
}

func (l *Limiter) key(channel, accountID string) string {
	return l.config.Prefix + ":" + channel + ":" + accountID
}

// Allow records one delivery and returns ErrRateLimited once the window
// budget is exceeded.
func (l *Limiter) Allow(ctx context.Context, channel, accountID string) error {
	if l == nil || l.config.MaxPerWindow <= 0 {
		return nil
	}
	count, err := l.incrementWithTTL(ctx, l.key(channel, accountID), l.config.Window)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxPerWindow) {
		return ErrRateLimited
	}
	return nil
}

// Used returns deliveries counted in the current window.
func (l *Limiter) Used(ctx context.Context, channel, accountID string) (int, error) {
	count, err := l.redis.Get(ctx, l.key(channel, accountID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// Reset clears the counter for the account on channel.
func (l *Limiter) Reset(ctx context.Context, channel, accountID string) error {
	if err := l.redis.Del(ctx, l.key(channel, accountID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: TTL only on the first hit.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
