package redis

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/curvemarket/internal/domain"
)

//go:embed scripts/sliding_window.lua
var slidingWindowLua string

// limiterPrefix namespaces throttle keys. Two throttles share this limiter:
// the per-user swap throttle ("trade:<user>") and the HTTP middleware's
// per-IP throttle ("api:<ip>").
const limiterPrefix = "curvemarket:rl:"

// RateLimiter implements domain.RateLimiter as a sliding window over a Redis
// sorted set, counted atomically by a Lua script.
type RateLimiter struct {
	rdb           *redis.Client
	slidingWindow *redis.Script
}

// NewRateLimiter creates a RateLimiter backed by the given Client.
func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{
		rdb:           c.Underlying(),
		slidingWindow: redis.NewScript(slidingWindowLua),
	}
}

// Allow reports whether one more request for key fits under limit within the
// trailing window. An allowed request is counted in the same round trip, so
// concurrent swaps from one user cannot all slip under the limit.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now().UnixMicro()

	result, err := rl.slidingWindow.Run(
		ctx,
		rl.rdb,
		[]string{limiterPrefix + key},
		now,
		window.Microseconds(),
		limit,
	).Int64Slice()
	if err != nil {
		return false, fmt.Errorf("redis: rate limit %s: %w", key, err)
	}
	if len(result) < 2 {
		return false, fmt.Errorf("redis: rate limit %s: unexpected result length %d", key, len(result))
	}
	return result[0] == 1, nil
}

var _ domain.RateLimiter = (*RateLimiter)(nil)
