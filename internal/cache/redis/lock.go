package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/curvemarket/internal/domain"
)

// lockPrefix namespaces lock keys. The services lock per market
// ("market:<id>"), which serializes swaps, liquidity moves, and resolution
// against the same curves.
const lockPrefix = "curvemarket:lock:"

// releaseTimeout bounds the unlock round trip when the caller's context is
// already gone.
const releaseTimeout = 5 * time.Second

// releaseLua deletes the lock key only when it still holds the caller's
// token, so a holder whose TTL expired mid-trade cannot release the next
// holder's lock.
const releaseLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// LockManager implements domain.LockManager with SETNX plus a TTL and a
// token-checked Lua release.
type LockManager struct {
	rdb     *redis.Client
	release *redis.Script
}

// NewLockManager creates a LockManager backed by the given Client.
func NewLockManager(c *Client) *LockManager {
	return &LockManager{
		rdb:     c.Underlying(),
		release: redis.NewScript(releaseLua),
	}
}

// Acquire takes the lock for key or returns domain.ErrLockHeld when another
// party holds it; trade handlers surface that as a retryable conflict rather
// than queueing. The returned unlock is idempotent.
func (lm *LockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	lk := lockPrefix + key

	ok, err := lm.rdb.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, domain.ErrLockHeld
	}

	released := false
	unlock := func() {
		if released {
			return
		}
		released = true

		// Release on a fresh context: the trade's context is often already
		// cancelled by the time the deferred unlock runs.
		rctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		_ = lm.release.Run(rctx, lm.rdb, []string{lk}, token).Err()
	}
	return unlock, nil
}

var _ domain.LockManager = (*LockManager)(nil)
