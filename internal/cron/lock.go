package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/herovault-backend/pkg/redis"
)

const defaultLockTTL = 50 * time.Minute

// Lock coordinates exclusive cron runs across worker replicas.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// RedisLock holds a named redis lock for one cycle at a time.
type RedisLock struct {
	locker  redis.Locker
	name    string
	ttl     time.Duration
	mu      sync.Mutex
	release func(context.Context) error
}

func NewRedisLock(locker redis.Locker, name string, ttl time.Duration) (*RedisLock, error) {
	if locker == nil {
		return nil, errors.New("redis locker required for cron lock")
	}
	if name == "" {
		return nil, errors.New("lock name is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{locker: locker, name: name, ttl: ttl}, nil
}

// Acquire reports false without error when another replica holds the lock.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	release, err := l.locker.AcquireLock(ctx, l.name, uuid.NewString(), l.ttl)
	if errors.Is(err, redis.ErrLockHeld) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("acquire cron lock: %w", err)
	}
	l.mu.Lock()
	l.release = release
	l.mu.Unlock()
	return true, nil
}

// Release frees the lock if this instance still owns it.
func (l *RedisLock) Release(ctx context.Context) error {
	l.mu.Lock()
	release := l.release
	l.release = nil
	l.mu.Unlock()
	if release == nil {
		return nil
	}
	if err := release(ctx); err != nil {
		return fmt.Errorf("release cron lock: %w", err)
	}
	return nil
}
