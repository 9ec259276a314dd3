package overrides

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend mirrors override hit counters to Redis so that several
// repochecker replicas serving /stats from behind a load balancer converge
// on shared counts. It never mutates override content — only the counter
// values — so it does not conflict with the "no mutating overrides at
// runtime" non-goal.
type RedisBackend struct {
	client    *redis.Client
	keyPrefix string
	timeout   time.Duration
}

// NewRedisBackend constructs a counter backend against an existing Redis
// client. keyPrefix namespaces keys (e.g. "repochecker:overrides:").
func NewRedisBackend(client *redis.Client, keyPrefix string) *RedisBackend {
	return &RedisBackend{client: client, keyPrefix: keyPrefix, timeout: 2 * time.Second}
}

func (b *RedisBackend) key(leaf string) string {
	return b.keyPrefix + leaf
}

// Seed ensures the key exists with value 0, without clobbering an existing
// count from another replica.
func (b *RedisBackend) Seed(leaf string) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	return b.client.SetNX(ctx, b.key(leaf), 0, 0).Err()
}

// Increment atomically increments the shared counter.
func (b *RedisBackend) Increment(leaf string) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	return b.client.Incr(ctx, b.key(leaf)).Err()
}
