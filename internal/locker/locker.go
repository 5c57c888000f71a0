package locker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Locker serialises confirm/refund per payment intent. The conditional
// status update in the store stays authoritative; the lock exists to fail
// concurrent callers fast and to keep the refund running-total check
// race-free across calls.
type Locker interface {
	// TryLock returns (acquired, lockValue). Not acquired is not an error.
	TryLock(ctx context.Context, key string, expiration time.Duration) (bool, string, error)
	Unlock(ctx context.Context, key, lockValue string) error
}

type redisLocker struct {
	client *redis.Client
	log    *zap.Logger
}

// Compare-and-delete so only the holder can release; a Get-then-Del pair
// could delete a lock re-acquired by someone else after expiry.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func NewRedisLocker(client *redis.Client, log *zap.Logger) Locker {
	return &redisLocker{client: client, log: log}
}

func (l *redisLocker) TryLock(ctx context.Context, key string, expiration time.Duration) (bool, string, error) {
	lockValue := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, key, lockValue, expiration).Result()
	if err != nil {
		l.log.Error("locker.TryLock SetNX failed", zap.String("key", key), zap.Error(err))
		return false, "", err
	}
	if !acquired {
		return false, "", nil
	}
	return true, lockValue, nil
}

func (l *redisLocker) Unlock(ctx context.Context, key, lockValue string) error {
	return unlockScript.Run(ctx, l.client, []string{key}, lockValue).Err()
}

type memoryLocker struct {
	mu    sync.Mutex
	locks map[string]string
}

// NewMemoryLocker is the single-node fallback used when no redis address is
// configured, and in tests.
func NewMemoryLocker() Locker {
	return &memoryLocker{locks: make(map[string]string)}
}

func (l *memoryLocker) TryLock(ctx context.Context, key string, expiration time.Duration) (bool, string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.locks[key]; held {
		return false, "", nil
	}
	lockValue := uuid.NewString()
	l.locks[key] = lockValue
	return true, lockValue, nil
}

func (l *memoryLocker) Unlock(ctx context.Context, key, lockValue string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks[key] == lockValue {
		delete(l.locks, key)
	}
	return nil
}
