package overrides

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mkowalski/repochecker/internal/config"
)

// AttachConfiguredBackend wires tree's hit counters to a distributed backend
// per cfg.Backend ("memory" keeps the in-process map as the only sink;
// "redis" additionally mirrors every increment), grounded on
// internal/mirror.New's profile-based backend selection.
func AttachConfiguredBackend(tree *Tree, cfg config.CounterConfig) error {
	switch cfg.Backend {
	case "", "memory":
		return nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		tree.SetBackend(NewRedisBackend(client, "repochecker:overrides:"))
		return nil

	default:
		return fmt.Errorf("overrides: unknown counter backend %q", cfg.Backend)
	}
}
