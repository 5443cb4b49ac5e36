package ussd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Locker serializes callbacks per session so two concurrent callbacks for
// the same session id cannot both transition from the same prior state.
type Locker interface {
	// Acquire takes the lock for key, returning false when it is held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type redisLocker struct {
	cc *redis.Client
}

// NewRedisLocker returns a Locker backed by redis SET NX with a TTL, so an
// abandoned lock clears itself after the session duration.
func NewRedisLocker(cc *redis.Client) Locker {
	return &redisLocker{cc: cc}
}

func (rl *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return rl.cc.SetNX(ctx, key+":lock", "1", ttl).Result()
}

func (rl *redisLocker) Release(ctx context.Context, key string) error {
	return rl.cc.Del(ctx, key+":lock").Err()
}

// memoryLocker is a process-local Locker for tests and single-instance
// deployments without redis.
type memoryLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
}

func NewMemoryLocker() Locker {
	return &memoryLocker{held: make(map[string]time.Time)}
}

func (ml *memoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	if expires, ok := ml.held[key]; ok && time.Now().Before(expires) {
		return false, nil
	}
	ml.held[key] = time.Now().Add(ttl)
	return true, nil
}

func (ml *memoryLocker) Release(_ context.Context, key string) error {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	delete(ml.held, key)
	return nil
}

// sessionKey is the cache key for one dialog, shared by the lock and any
// cached session data.
func sessionKey(appName, sessionID, phoneNumber string) string {
	return fmt.Sprintf("%s:sessions:%s:%s", appName, sessionID, phoneNumber)
}
