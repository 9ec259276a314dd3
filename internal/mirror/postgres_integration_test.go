//go:build integration

package mirror

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/mkowalski/repochecker/internal/config"
	"github.com/mkowalski/repochecker/internal/model"
)

// Run with `go test -tags=integration ./internal/mirror/...`; requires a
// working container runtime and is excluded from the default test build.
func TestPostgresBackend_UpsertRoundTrip(t *testing.T) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("repochecker"),
		tcpostgres.WithUsername("repochecker"),
		tcpostgres.WithPassword("repochecker"),
	)
	require.NoError(t, err)
	defer func() { _ = container.Terminate(ctx) }()

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	b, err := New(ctx, config.MirrorConfig{Backend: "postgres", DSN: dsn})
	require.NoError(t, err)
	defer b.Close()

	items := []model.BrokenItem{{Source: "bash", Package: "bash", Broken: []string{"cap"}}}
	require.NoError(t, b.Upsert(ctx, "40", items))

	assert.NoError(t, b.Upsert(ctx, "40", items))
}
