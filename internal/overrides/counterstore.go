package overrides

import "sync"

// counterStore holds per-leaf hit counts. The default implementation is an
// in-process map guarded by a mutex — good enough expected-constant-time
// behavior for the handful of leaves a real overrides file has, and the only
// mutable state reachable from a read-locked snapshot (§5, §9). A
// distributed backend (see RedisBackend) can be attached via SetBackend for
// multi-replica deployments.
type counterStore struct {
	mu      sync.Mutex
	counts  map[string]int64
	backend Backend
}

// Backend is the pluggable sink for hit counters. The in-process map is
// always kept as the fast read path for Stats(); a Backend additionally
// mirrors increments for cross-replica aggregation.
type Backend interface {
	Increment(leaf string) error
	Seed(leaf string) error
}

func newCounterStore() *counterStore {
	return &counterStore{counts: make(map[string]int64)}
}

// SetBackend installs a distributed counter backend. Must be called before
// Load's seeding pass completes if Seed mirroring is desired; safe to call
// at any time otherwise since Increment mirroring works regardless.
func (t *Tree) SetBackend(b Backend) {
	t.stats.mu.Lock()
	t.stats.backend = b
	t.stats.mu.Unlock()
}

func (c *counterStore) seed(leaf string) {
	c.mu.Lock()
	if _, ok := c.counts[leaf]; !ok {
		c.counts[leaf] = 0
	}
	backend := c.backend
	c.mu.Unlock()

	if backend != nil {
		if err := backend.Seed(leaf); err != nil {
			// Seeding is best-effort bookkeeping; a backend hiccup must
			// never block startup.
			return
		}
	}
}

func (c *counterStore) increment(leaf string) {
	c.mu.Lock()
	c.counts[leaf]++
	backend := c.backend
	c.mu.Unlock()

	if backend != nil {
		_ = backend.Increment(leaf)
	}
}

func (c *counterStore) snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]int64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}
