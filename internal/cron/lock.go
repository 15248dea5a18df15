package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker hands out per-job leases so only one worker replica runs a job at a time.
type Locker interface {
	TryLock(ctx context.Context, job string, ttl time.Duration) (Lease, bool, error)
}

// Lease is a held lock.
type Lease interface {
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(name string) string
}

// RedisLocker leases jobs with SET NX PX and an owner token.
type RedisLocker struct {
	store lockStore
}

func NewRedisLocker(store lockStore) (*RedisLocker, error) {
	if store == nil {
		return nil, errors.New("redis client required for lock")
	}
	return &RedisLocker{store: store}, nil
}

func (l *RedisLocker) TryLock(ctx context.Context, job string, ttl time.Duration) (Lease, bool, error) {
	if ttl <= 0 {
		return nil, false, fmt.Errorf("lock ttl must be positive")
	}
	key := l.store.LockKey("cron:" + job)
	owner := uuid.NewString()
	ok, err := l.store.SetNX(ctx, key, owner, ttl)
	if err != nil {
		return nil, false, fmt.Errorf("setnx %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &redisLease{store: l.store, key: key, owner: owner}, true, nil
}

type redisLease struct {
	store lockStore
	key   string
	owner string
}

// Release deletes the key only while this lease still owns it. An expired lease that
// another replica re-acquired is left alone.
func (l *redisLease) Release(ctx context.Context) error {
	value, err := l.store.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != l.owner {
		return nil
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	return nil
}
