package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "lock:lunch_session:"

// releaseScript deletes the lock only when the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`)

// SessionLocker serializes per-session mutations across processes with a
// Redis SETNX lease. The TTL caps how long a crashed holder can block others.
type SessionLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionLocker(client *redis.Client, ttl time.Duration) *SessionLocker {
	return &SessionLocker{client: client, ttl: ttl}
}

// Acquire blocks until the session lock is held or ctx is done. The returned
// function releases the lock; releasing an expired lease is a no-op.
func (l *SessionLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := lockKeyPrefix + key
	token, err := GenerateCode(16)
	if err != nil {
		return nil, fmt.Errorf("mint lock token: %w", err)
	}

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire session lock %q: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		releaseScript.Run(ctx, l.client, []string{lockKey}, token)
	}
	return release, nil
}
