package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"roster/pkg/platform/sentinel"
)

const (
	lockTTL      = 30 * time.Second
	lockAttempts = 3
	lockRetryGap = 100 * time.Millisecond
)

// Locker serializes reconciliation per subject so concurrent webhook
// deliveries for the same member cannot interleave.
type Locker interface {
	// Acquire takes the lock for key and returns a release func. It fails
	// with sentinel.ErrUnavailable when the lock is held elsewhere.
	Acquire(ctx context.Context, key string) (func(), error)
}

// RedisLocker coordinates across instances with SET NX and a TTL. The TTL
// bounds lock lifetime if an instance dies mid-reconciliation.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	name := "roster:reconcile:" + key
	for attempt := 0; attempt < lockAttempts; attempt++ {
		ok, err := l.client.SetNX(ctx, name, "1", lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = l.client.Del(ctx, name).Err()
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryGap):
		}
	}
	return nil, fmt.Errorf("lock %s held elsewhere: %w", key, sentinel.ErrUnavailable)
}

// MemoryLocker serializes within one process. Used when Redis is not
// configured; single-instance deployments need nothing more.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[key] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock, nil
}
