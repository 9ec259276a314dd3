package mirror

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver, pure Go, no cgo

	"github.com/mkowalski/repochecker/internal/model"
)

// sqliteBackend mirrors published arrays into a local embedded database,
// the single-node counterpart of the Postgres backend.
type sqliteBackend struct {
	db *sql.DB
}

func newSQLiteBackend(ctx context.Context, path string) (Backend, error) {
	if path == "" {
		return nil, fmt.Errorf("mirror: sqlite backend requires mirror.dsn (a file path)")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS repochecker_snapshots (
			key        TEXT PRIMARY KEY,
			items      TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Upsert(ctx context.Context, key string, items []model.BrokenItem) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("mirror: encoding %s: %w", key, err)
	}

	_, err = b.db.ExecContext(ctx, `
		INSERT INTO repochecker_snapshots (key, items, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET items = excluded.items, updated_at = excluded.updated_at
	`, key, payload)
	if err != nil {
		return fmt.Errorf("mirror: upserting %s: %w", key, err)
	}
	return nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
