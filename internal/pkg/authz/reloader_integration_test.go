//go:build integration

package authz

import (
	"context"
	"testing"
	"time"

	"github.com/coincraze/authd/internal/pkg/migration"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestReloader_PicksUpTableChanges(t *testing.T) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("authd"),
		postgres.WithUsername("authd"),
		postgres.WithPassword("authd"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	runner, err := migration.NewRunner(pool)
	require.NoError(t, err)
	t.Cleanup(func() { _ = runner.Close() })
	require.NoError(t, runner.Up(ctx))

	en, err := New(NewAdapter(pool, []string{"p, admin, notification, create_any"}))
	require.NoError(t, err)

	r := NewReloader(pool, en)
	r.Start(ctx)
	t.Cleanup(func() { _ = r.Close() })

	allowed := func() bool {
		ok, err := en.Allowed(ctx, "77", "notification", "create_any")
		return err == nil && ok
	}
	require.False(t, allowed())

	// The listener may not be attached yet, so keep touching the table.
	assert.Eventually(t, func() bool {
		_, err := pool.Exec(ctx, `INSERT INTO authz_rules (ptype, v0, v1) VALUES ('g', '77', 'admin') ON CONFLICT DO NOTHING`)
		require.NoError(t, err)
		return allowed()
	}, 10*time.Second, 200*time.Millisecond)

	_, err = pool.Exec(ctx, `DELETE FROM authz_rules WHERE v0 = '77'`)
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return !allowed() }, 10*time.Second, 200*time.Millisecond)
}
