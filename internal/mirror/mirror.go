// Package mirror provides an optional secondary sink for the current
// published snapshot, selected by deployment configuration the way the
// teacher's internal/storage package selects a storage backend by profile.
package mirror

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mkowalski/repochecker/internal/config"
	"github.com/mkowalski/repochecker/internal/model"
)

// Backend mirrors one key's current published array. Implementations never
// keep history — only the latest array per key, consistent with the
// Non-goal on historical time-series.
type Backend interface {
	Upsert(ctx context.Context, key string, items []model.BrokenItem) error
	Close() error
}

// noneBackend is the default: mirroring disabled.
type noneBackend struct{}

func (noneBackend) Upsert(context.Context, string, []model.BrokenItem) error { return nil }
func (noneBackend) Close() error                                            { return nil }

// New selects a Backend from cfg.Mirror.Backend ("none", "postgres",
// "sqlite"). Connection errors from the chosen backend are returned to the
// caller; "none" never fails.
func New(ctx context.Context, cfg config.MirrorConfig) (Backend, error) {
	switch cfg.Backend {
	case "", "none":
		return noneBackend{}, nil

	case "postgres":
		b, err := newPostgresBackend(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("mirror: initializing postgres backend: %w", err)
		}
		slog.Info("secondary mirror enabled", "backend", "postgres")
		return b, nil

	case "sqlite":
		b, err := newSQLiteBackend(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("mirror: initializing sqlite backend: %w", err)
		}
		slog.Info("secondary mirror enabled", "backend", "sqlite")
		return b, nil

	default:
		return nil, fmt.Errorf("mirror: unknown backend %q", cfg.Backend)
	}
}
