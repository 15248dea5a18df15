package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type memoryLockStore struct {
	values map[string]string
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryLockStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryLockStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryLockStore) LockKey(name string) string { return "lock:" + name }

func TestRedisLockerExclusiveLease(t *testing.T) {
	store := &memoryLockStore{values: map[string]string{}}
	locker, err := NewRedisLocker(store)
	if err != nil {
		t.Fatalf("new locker: %v", err)
	}
	ctx := context.Background()

	lease, ok, err := locker.TryLock(ctx, "payment-expiry", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first lease, ok=%v err=%v", ok, err)
	}
	if _, ok, _ := locker.TryLock(ctx, "payment-expiry", time.Minute); ok {
		t.Fatal("expected second lease to be refused")
	}
	if _, ok, _ := locker.TryLock(ctx, "outbox-retention", time.Minute); !ok {
		t.Fatal("expected independent job lease")
	}
	if err := lease.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, ok, _ := locker.TryLock(ctx, "payment-expiry", time.Minute); !ok {
		t.Fatal("expected lease after release")
	}
}

func TestRedisLeaseKeepsForeignOwner(t *testing.T) {
	store := &memoryLockStore{values: map[string]string{}}
	locker, _ := NewRedisLocker(store)
	ctx := context.Background()

	lease, _, _ := locker.TryLock(ctx, "payment-expiry", time.Minute)
	store.values["lock:cron:payment-expiry"] = "someone-else"
	if err := lease.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.values["lock:cron:payment-expiry"] != "someone-else" {
		t.Fatal("release removed a lock it did not own")
	}
}
