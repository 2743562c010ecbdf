package stores

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrReplayRedisUnavailable = errors.New("replay cache redis unavailable")

// ReplayCache remembers accepted request signatures for the validity window.
type ReplayCache struct {
	redis  redis.UniversalClient
	prefix string
}

func NewReplayCache(redisClient redis.UniversalClient, prefix string) *ReplayCache {
	if prefix == "" {
		prefix = "vrp"
	}
	return &ReplayCache{redis: redisClient, prefix: prefix}
}

func (c *ReplayCache) key(scope, signature string) string {
	sum := sha256.Sum256([]byte(strings.ToUpper(signature)))
	return c.prefix + ":" + scope + ":" + hex.EncodeToString(sum[:16])
}

// Remember records signature under scope and reports whether it was new.
func (c *ReplayCache) Remember(ctx context.Context, scope, signature string, ttl time.Duration) (bool, error) {
	fresh, err := c.redis.SetNX(ctx, c.key(scope, signature), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrReplayRedisUnavailable, err)
	}
	return fresh, nil
}
