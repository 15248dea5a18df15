package payments

import (
	"context"
	"time"
)

// ReplayGuard marks callbacks already seen for an order, reference and status.
type ReplayGuard interface {
	// Claim returns false when the key was already claimed.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type keyValueStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

type redisReplayGuard struct {
	store keyValueStore
}

// NewRedisReplayGuard namespaces claims under the webhook idempotency scope.
func NewRedisReplayGuard(store keyValueStore) ReplayGuard {
	return &redisReplayGuard{store: store}
}

func (g *redisReplayGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return g.store.SetNX(ctx, g.store.IdempotencyKey("payment-webhook", key), "1", ttl)
}

func (g *redisReplayGuard) Release(ctx context.Context, key string) error {
	return g.store.Del(ctx, g.store.IdempotencyKey("payment-webhook", key))
}

func replayKey(orderID, reference, status string) string {
	return orderID + ":" + reference + ":" + status
}
