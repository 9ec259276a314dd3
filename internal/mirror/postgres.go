package mirror

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver for goose

	"github.com/mkowalski/repochecker/internal/model"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// postgresBackend mirrors published arrays into a single table keyed by
// snapshot key, schema-managed by goose.
type postgresBackend struct {
	pool *pgxpool.Pool
}

func newPostgresBackend(ctx context.Context, dsn string) (Backend, error) {
	if dsn == "" {
		return nil, fmt.Errorf("mirror: postgres backend requires mirror.dsn")
	}

	if err := runPostgresMigrations(dsn); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func runPostgresMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(postgresMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, "migrations/postgres")
}

func (b *postgresBackend) Upsert(ctx context.Context, key string, items []model.BrokenItem) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("mirror: encoding %s: %w", key, err)
	}

	_, err = b.pool.Exec(ctx, `
		INSERT INTO repochecker_snapshots (key, items, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET items = $2, updated_at = now()
	`, key, payload)
	if err != nil {
		return fmt.Errorf("mirror: upserting %s: %w", key, err)
	}
	return nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
