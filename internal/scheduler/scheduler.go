// Package scheduler runs the infinite refresh cycle: matrix expansion, one
// worker per entry, continuity join against the previous snapshot,
// persistence, and the inter-cycle reload step.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkowalski/repochecker/internal/config"
	"github.com/mkowalski/repochecker/internal/maintainers"
	"github.com/mkowalski/repochecker/internal/mirror"
	"github.com/mkowalski/repochecker/internal/model"
	"github.com/mkowalski/repochecker/internal/orchestrator"
	"github.com/mkowalski/repochecker/internal/overrides"
	"github.com/mkowalski/repochecker/internal/persistence"
	"github.com/mkowalski/repochecker/internal/snapshot"
	"github.com/mkowalski/repochecker/pkg/metrics"
)

// EventSink receives one notification per published key per cycle; the HTTP
// surface's websocket hub implements this to push live updates. A nil sink
// is valid: Notify becomes a no-op.
type EventSink interface {
	Notify(key string)
}

// Scheduler owns the cyclic refresh loop and the reload step described in
// the teacher's background-worker pattern, generalized from a single
// periodic task to one task per matrix entry plus a four-target reload.
type Scheduler struct {
	snap        *snapshot.Store
	persist     *persistence.Store
	mirror      mirror.Backend
	driver      orchestrator.Driver
	metrics     *metrics.Registry
	events      EventSink
	coordinator *reloadCoordinator
}

// New builds a Scheduler. events may be nil.
func New(snap *snapshot.Store, persist *persistence.Store, mirrorBackend mirror.Backend, driver orchestrator.Driver, reg *metrics.Registry, events EventSink) *Scheduler {
	return &Scheduler{
		snap:        snap,
		persist:     persist,
		mirror:      mirrorBackend,
		driver:      driver,
		metrics:     reg,
		events:      events,
		coordinator: newReloadCoordinator(snap, reg),
	}
}

// ReloadNow runs the four-target reload immediately, outside the normal
// inter-cycle schedule. Used by the optional Kubernetes ConfigMap watcher
// to react to an override update faster than the periodic reload.
func (s *Scheduler) ReloadNow(ctx context.Context) {
	s.coordinator.Reload(ctx)
}

// Bootstrap performs the one-time startup load of config, overrides, and
// maintainer metadata into the snapshot before the cycle loop starts.
func (s *Scheduler) Bootstrap(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	s.snap.SetConfig(cfg)

	tree, err := overrides.Load()
	if err != nil {
		return err
	}
	if err := overrides.AttachConfiguredBackend(tree, cfg.Counter); err != nil {
		return err
	}
	s.snap.SetOverrides(tree)

	client := maintainers.New(cfg.Maintainers.AdminURL, cfg.Maintainers.RosterURL, maintainerTimeout(cfg))
	admins, rosters, err := client.Fetch(ctx)
	if err != nil {
		return err
	}
	s.snap.SetMaintainers(admins, rosters)

	return nil
}

func maintainerTimeout(cfg *config.Config) time.Duration {
	if cfg.Maintainers.Timeout <= 0 {
		return 0
	}
	return time.Duration(cfg.Maintainers.Timeout * float64(time.Second))
}

// Run executes the infinite cycle: expand the matrix, run one worker per
// entry concurrently, sleep for the remainder of the configured interval,
// then run the reload step. It returns nil when ctx is cancelled during a
// sleep; worker failures never stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		cycleID := uuid.New().String()
		start := time.Now()

		cfg := s.snap.Config()
		matrix, err := cfg.ToMatrix()
		if err != nil {
			slog.Error("scheduler: matrix expansion failed, skipping cycle", "cycle_id", cycleID, "error", err)
		} else {
			s.runCycle(ctx, cycleID, matrix)
		}

		busy := time.Since(start)
		interval := time.Duration(cfg.RepoChecker.Interval * float64(time.Hour))
		sleepFor := interval - busy
		if sleepFor < 0 {
			sleepFor = 0
		}

		slog.Info("scheduler: cycle complete, sleeping", "cycle_id", cycleID, "busy", busy, "sleep", sleepFor)

		select {
		case <-time.After(sleepFor):
		case <-ctx.Done():
			return nil
		}

		s.coordinator.Reload(ctx)
	}
}

func (s *Scheduler) runCycle(ctx context.Context, cycleID string, matrix []model.MatrixEntry) {
	var wg sync.WaitGroup
	for _, entry := range matrix {
		wg.Add(1)
		go func(entry model.MatrixEntry) {
			defer wg.Done()
			s.runWorker(ctx, cycleID, entry)
		}(entry)
	}
	wg.Wait()
}

func (s *Scheduler) runWorker(ctx context.Context, cycleID string, entry model.MatrixEntry) {
	key := entry.Key()
	start := time.Now()

	if _, ok := s.snap.Get(key); !ok {
		if cached, found, err := s.persist.Load(key); err != nil {
			slog.Warn("scheduler: loading cached snapshot failed", "cycle_id", cycleID, "key", key, "error", err)
		} else if found {
			s.snap.Publish(key, cached, start)
			if entry.Archived {
				slog.Info("scheduler: archived release served from cache, skipping live generation", "cycle_id", cycleID, "key", key)
				return
			}
		}
	}

	admins, rosters := s.snap.Maintainers()
	tree := s.snap.Overrides()

	items, err := orchestrator.Run(ctx, s.driver, entry, tree, admins, rosters)
	if err != nil {
		slog.Error("scheduler: worker failed", "cycle_id", cycleID, "key", key, "error", err)
		if s.metrics != nil {
			s.metrics.ObserveCycle(key, "failed", time.Since(start))
		}
		return
	}

	previous, _ := s.snap.Get(key)
	now := time.Now()
	withSince := applyContinuity(items, previous, now)

	if err := s.persist.Save(key, withSince); err != nil {
		slog.Error("scheduler: persisting snapshot failed", "cycle_id", cycleID, "key", key, "error", err)
	}
	if s.mirror != nil {
		if err := s.mirror.Upsert(ctx, key, withSince); err != nil {
			slog.Error("scheduler: mirror upsert failed", "cycle_id", cycleID, "key", key, "error", err)
		}
	}

	s.snap.Publish(key, withSince, now)
	if s.events != nil {
		s.events.Notify(key)
	}
	if s.metrics != nil {
		s.metrics.ObserveCycle(key, "success", time.Since(start))
	}
}

type continuityKey struct {
	pkg, repo, repoArch string
}

// applyContinuity transfers `since` from the previous published array to
// matching new records and stamps brand-new ones with now.
func applyContinuity(items, previous []model.BrokenItem, now time.Time) []model.BrokenItem {
	prevSince := make(map[continuityKey]time.Time, len(previous))
	for _, p := range previous {
		if p.Since != nil {
			prevSince[continuityKey{p.Package, p.Repo, p.RepoArch}] = *p.Since
		}
	}

	out := make([]model.BrokenItem, len(items))
	for i, it := range items {
		since := now
		if t, ok := prevSince[continuityKey{it.Package, it.Repo, it.RepoArch}]; ok {
			since = t
		}
		stamped := it
		stamped.Since = &since
		out[i] = stamped
	}
	return out
}
