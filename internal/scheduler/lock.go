package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another process holds the lock.
var ErrLockHeld = errors.New("lock is held by another dispatcher")

const defaultLockTTL = 10 * time.Minute

// releaseScript deletes the key only while it still carries our token, so an
// expired lock re-acquired by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// DispatchLock is a Redis SET NX lock guarding campaign dispatch.
type DispatchLock struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDispatchLock(rdb *redis.Client, ttl time.Duration) *DispatchLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &DispatchLock{rdb: rdb, ttl: ttl}
}

// Acquire takes the lock for key. The returned release func is safe to call
// once the work is done; it never removes a lock taken over by another holder.
func (l *DispatchLock) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}

	release := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.rdb, []string{key}, token).Err()
	}
	return release, nil
}
