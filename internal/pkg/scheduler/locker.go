package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// ErrLocked means another renewal pass holds the lock.
var ErrLocked = errors.New("renewal pass already running")

// Locker guards a job so that only one run happens at a time. TryLock never
// waits: it either acquires the lock or returns ErrLocked.
type Locker interface {
	TryLock(ctx context.Context) (unlock func(), err error)
}

// RedisLocker is a cross-process lock backed by a redsync mutex.
type RedisLocker struct {
	mutex *redsync.Mutex
}

func NewRedisLocker(rdb *redis.Client, key string, expiry time.Duration) *RedisLocker {
	rs := redsync.New(goredis.NewPool(rdb))
	return &RedisLocker{
		mutex: rs.NewMutex(key,
			redsync.WithExpiry(expiry),
			redsync.WithTries(1),
		),
	}
}

func (l *RedisLocker) TryLock(ctx context.Context) (func(), error) {
	if err := l.mutex.TryLockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
			return nil, ErrLocked
		}
		return nil, err
	}
	return func() {
		_, _ = l.mutex.UnlockContext(context.Background())
	}, nil
}

// LocalLocker is an in-process lock for single-instance deployments.
type LocalLocker struct {
	mu      sync.Mutex
	running bool
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{}
}

func (l *LocalLocker) TryLock(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return nil, ErrLocked
	}
	l.running = true
	return func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}, nil
}
