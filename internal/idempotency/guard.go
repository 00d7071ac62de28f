// Package idempotency provides a short-lived claim on a key so that concurrent deliveries
// of the same webhook do not race into the database together. The database dedup record
// remains the source of truth; a guard only narrows the window.
package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Guard interface {
	// Acquire reports whether the caller now holds key.
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// MemoryGuard is a process-local Guard.
type MemoryGuard struct {
	held sync.Map
}

func NewMemoryGuard() *MemoryGuard { return &MemoryGuard{} }

func (g *MemoryGuard) Acquire(_ context.Context, key string) (bool, error) {
	_, loaded := g.held.LoadOrStore(key, struct{}{})
	return !loaded, nil
}

func (g *MemoryGuard) Release(_ context.Context, key string) error {
	g.held.Delete(key)
	return nil
}

// RedisGuard shares claims across instances. Keys expire after ttl so a crashed holder
// cannot block a key forever.
type RedisGuard struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisGuard(rdb redis.Cmdable, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisGuard{rdb: rdb, prefix: "threadline:webhook:", ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	return g.rdb.SetNX(ctx, g.prefix+key, "1", g.ttl).Result()
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	return g.rdb.Del(ctx, g.prefix+key).Err()
}
