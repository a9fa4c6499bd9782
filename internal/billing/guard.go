package billing

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard is the explicit idempotency check for additive webhook effects.
// Acquire returns true exactly once per key; later calls for the same key
// report false so a replayed event never double-grants credits. Release
// surrenders a key whose event could not be applied, so the provider's
// retry of a failed delivery is not mistaken for a duplicate.
//
// Absolute field updates are naturally idempotent through upsert semantics;
// the guard exists because credit grants are not.
type Guard interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// RedisGuard implements Guard with SET NX and a retention TTL. Processed
// keys survive process restarts, which matters because providers retry
// webhooks for days.
type RedisGuard struct {
	client redis.UniversalClient
	ttl    time.Duration
}

const defaultGuardTTL = 30 * 24 * time.Hour

func NewRedisGuard(client redis.UniversalClient, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = defaultGuardTTL
	}
	return &RedisGuard{client: client, ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	return g.client.SetNX(ctx, "webhook:processed:"+key, 1, g.ttl).Result()
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, "webhook:processed:"+key).Err()
}

// MemoryGuard implements Guard in process memory for tests and local
// development. Keys are never evicted.
type MemoryGuard struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{seen: make(map[string]struct{})}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.seen[key]; ok {
		return false, nil
	}
	g.seen[key] = struct{}{}
	return true, nil
}

func (g *MemoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, key)
	return nil
}
