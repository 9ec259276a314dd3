package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/mkowalski/repochecker/internal/config"
	"github.com/mkowalski/repochecker/internal/maintainers"
	"github.com/mkowalski/repochecker/internal/overrides"
	"github.com/mkowalski/repochecker/internal/snapshot"
	"github.com/mkowalski/repochecker/pkg/metrics"
)

// reloadCoordinator refreshes the four independent inputs the scheduler
// consults each cycle: config, overrides, admins, and the maintainer
// roster. Each target is load-validate-apply in isolation; a failure on
// one logs and leaves the snapshot's previous value for that target
// untouched, it never blocks or rolls back the others. Only the config
// target can fail validation (malformed TOML) — that is the only case
// with anything to roll back, since the others replace a map wholesale or
// not at all.
type reloadCoordinator struct {
	snap    *snapshot.Store
	metrics *metrics.Registry
}

func newReloadCoordinator(snap *snapshot.Store, reg *metrics.Registry) *reloadCoordinator {
	return &reloadCoordinator{snap: snap, metrics: reg}
}

// Reload runs all four targets. Order matters only in that overrides and
// maintainers reloads use the config already current in the snapshot, so
// config is reloaded first.
func (rc *reloadCoordinator) Reload(ctx context.Context) {
	rc.reloadConfig()
	rc.reloadOverrides()
	rc.reloadMaintainers(ctx)
}

func (rc *reloadCoordinator) reloadConfig() {
	start := time.Now()
	newCfg, err := config.Load()
	if err != nil {
		slog.Error("reload: config target failed, keeping previous config", "error", err)
		rc.observe("config", "failed", start)
		return
	}

	rc.snap.SetConfig(newCfg)
	slog.Info("reload: config target applied")
	rc.observe("config", "success", start)
}

func (rc *reloadCoordinator) reloadOverrides() {
	start := time.Now()
	tree, err := overrides.Load()
	if err != nil {
		slog.Error("reload: overrides target failed, keeping previous tree", "error", err)
		rc.observe("overrides", "failed", start)
		return
	}

	if cfg := rc.snap.Config(); cfg != nil {
		if err := overrides.AttachConfiguredBackend(tree, cfg.Counter); err != nil {
			slog.Error("reload: overrides target failed, keeping previous tree", "error", err)
			rc.observe("overrides", "failed", start)
			return
		}
	}

	rc.snap.SetOverrides(tree)
	slog.Info("reload: overrides target applied")
	rc.observe("overrides", "success", start)
}

func (rc *reloadCoordinator) reloadMaintainers(ctx context.Context) {
	cfg := rc.snap.Config()
	client := maintainers.New(cfg.Maintainers.AdminURL, cfg.Maintainers.RosterURL, maintainerTimeout(cfg))

	rc.reloadAdmins(ctx, client)
	rc.reloadRosters(ctx, client)
}

func (rc *reloadCoordinator) reloadAdmins(ctx context.Context, client *maintainers.Client) {
	start := time.Now()
	admins, err := client.FetchAdmins(ctx)
	if err != nil {
		slog.Error("reload: admins target failed, keeping previous admin map", "error", err)
		rc.observe("admins", "failed", start)
		return
	}

	_, rosters := rc.snap.Maintainers()
	rc.snap.SetMaintainers(admins, rosters)
	slog.Info("reload: admins target applied")
	rc.observe("admins", "success", start)
}

func (rc *reloadCoordinator) reloadRosters(ctx context.Context, client *maintainers.Client) {
	start := time.Now()
	rosters, err := client.FetchRosters(ctx)
	if err != nil {
		slog.Error("reload: maintainers target failed, keeping previous roster map", "error", err)
		rc.observe("maintainers", "failed", start)
		return
	}

	admins, _ := rc.snap.Maintainers()
	rc.snap.SetMaintainers(admins, rosters)
	slog.Info("reload: maintainers target applied")
	rc.observe("maintainers", "success", start)
}

func (rc *reloadCoordinator) observe(target, status string, start time.Time) {
	if rc.metrics != nil {
		rc.metrics.ObserveReload(target, status, time.Since(start))
	}
}
