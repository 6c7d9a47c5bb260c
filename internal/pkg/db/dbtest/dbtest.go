// Package dbtest starts a throwaway PostgreSQL container for integration tests.
package dbtest

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"missile-bot/internal/pkg/db"
)

// dockerAvailable checks if Docker is available and running.
func dockerAvailable() bool {
	return exec.Command("docker", "info").Run() == nil
}

// Setup creates a migrated PostgreSQL database and returns a pool on it.
// The test is skipped when Docker is not available.
func Setup(t *testing.T) *db.Pool {
	t.Helper()
	if !dockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	raw, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	pool := db.Wrap(raw, db.RetryPolicy{Attempts: 3, InitialInterval: 10 * time.Millisecond}, 5*time.Second)
	require.NoError(t, db.Migrate(ctx, pool))

	t.Cleanup(func() {
		raw.Close()
		_ = pgContainer.Terminate(ctx)
	})
	return pool
}
