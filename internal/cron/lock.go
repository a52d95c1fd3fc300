package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = 10 * time.Minute

// Lock coordinates exclusive cron runs. Refresh extends a held lease and
// fails once another replica could have taken over.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Refresh(ctx context.Context) error
	Release(ctx context.Context) error
}

type heldLock interface {
	Refresh(ctx context.Context, ttl time.Duration, opt *redislock.Options) error
	Release(ctx context.Context) error
}

// ErrLockLost means the lease expired before the cycle finished.
var ErrLockLost = errors.New("cron lock lost")

type obtainer interface {
	obtain(ctx context.Context, key string, ttl time.Duration) (heldLock, error)
}

type redislockObtainer struct {
	client *redislock.Client
}

func (o redislockObtainer) obtain(ctx context.Context, key string, ttl time.Duration) (heldLock, error) {
	lock, err := o.client.Obtain(ctx, key, ttl, nil)
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// RedisLock implements Lock on top of redislock so only one cron-worker
// replica runs a cycle at a time.
type RedisLock struct {
	locker obtainer
	key    string
	ttl    time.Duration

	mu   sync.Mutex
	held heldLock
}

// NewRedisLock constructs a Redis-backed lock.
func NewRedisLock(client redis.Scripter, key string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	return newRedisLock(redislockObtainer{client: redislock.New(client)}, key, ttl)
}

func newRedisLock(locker obtainer, key string, ttl time.Duration) (*RedisLock, error) {
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{locker: locker, key: key, ttl: ttl}, nil
}

// Acquire tries to own the lock for the configured TTL. It returns false when
// another replica holds it.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	held, err := l.locker.obtain(ctx, l.key, l.ttl)
	if errors.Is(err, redislock.ErrNotObtained) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("obtain lock: %w", err)
	}
	l.held = held
	return true, nil
}

// Refresh pushes the lease out by another TTL.
func (l *RedisLock) Refresh(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		return ErrLockLost
	}
	err := l.held.Refresh(ctx, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, redislock.ErrLockNotHeld) {
		l.held = nil
		return ErrLockLost
	}
	if err != nil {
		return fmt.Errorf("refresh lock: %w", err)
	}
	return nil
}

// Release frees the lock if this instance still owns it.
func (l *RedisLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		return nil
	}
	err := l.held.Release(ctx)
	l.held = nil
	if err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
