// Package snapshot holds the shared, reader-biased published state: the
// per-key BrokenItem arrays, the active configuration, the override tree,
// and the maintainer/admin maps, all replaced atomically once per cycle.
package snapshot

import (
	"sync"
	"time"

	"github.com/mkowalski/repochecker/internal/config"
	"github.com/mkowalski/repochecker/internal/model"
	"github.com/mkowalski/repochecker/internal/overrides"
)

// Store is the process-wide shared state. Reads (HTTP handlers) take the
// read lock; a full cycle publish takes the write lock only for the brief
// pointer-swap, never for the duration of a closure run.
type Store struct {
	mu sync.RWMutex

	published   map[string][]model.BrokenItem
	cfg         *config.Config
	overrides   *overrides.Tree
	admins      map[string]string
	maintainers map[string][]string
	lastRefresh time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{published: make(map[string][]model.BrokenItem)}
}

// Get returns the published array for key and whether it exists.
func (s *Store) Get(key string) ([]model.BrokenItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items, ok := s.published[key]
	return items, ok
}

// Keys returns every key that currently has a published array, in no
// particular order; callers needing a stable order sort it themselves.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.published))
	for k := range s.published {
		keys = append(keys, k)
	}
	return keys
}

// Publish replaces the array for key under the write lock and records the
// refresh timestamp.
func (s *Store) Publish(key string, items []model.BrokenItem, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published[key] = items
	s.lastRefresh = at
}

// Config returns the currently active configuration.
func (s *Store) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// SetConfig installs a new configuration, as applied by the reload
// coordinator.
func (s *Store) SetConfig(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// Overrides returns the currently active override tree.
func (s *Store) Overrides() *overrides.Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overrides
}

// SetOverrides installs a newly loaded override tree.
func (s *Store) SetOverrides(t *overrides.Tree) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = t
}

// Maintainers returns the current admin and maintainer maps.
func (s *Store) Maintainers() (admins map[string]string, maintainers map[string][]string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.admins, s.maintainers
}

// SetMaintainers installs freshly fetched admin and maintainer maps.
func (s *Store) SetMaintainers(admins map[string]string, maintainers map[string][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins = admins
	s.maintainers = maintainers
}

// LastRefresh returns the timestamp of the most recent successful publish.
func (s *Store) LastRefresh() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRefresh
}

// OverrideStats returns a snapshot of the override hit counters, or nil if
// no override tree is loaded yet.
func (s *Store) OverrideStats() map[string]int64 {
	s.mu.RLock()
	tree := s.overrides
	s.mu.RUnlock()
	if tree == nil {
		return nil
	}
	return tree.Stats()
}
