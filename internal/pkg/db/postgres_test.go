package db_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"missile-bot/internal/model"
	"missile-bot/internal/pkg/db"
	"missile-bot/internal/pkg/db/dbtest"
)

func seedPlayers(t *testing.T, pool *db.Pool) {
	ctx := context.Background()
	_, err := pool.Exec(ctx, `INSERT INTO groups (chat_id, created_at, updated_at) VALUES (1, 1, 1)`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `
		INSERT INTO players (chat_id, user_id, medals, created_at, last_active)
		VALUES (1, 10, 100, 1, 1), (1, 20, 100, 1, 1)`)
	require.NoError(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	pool := dbtest.Setup(t)
	ctx := context.Background()

	require.NoError(t, db.Migrate(ctx, pool))

	n, err := db.Count(ctx, pool, `SELECT COUNT(*) FROM schema_migrations`)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestRunInTx_CommitAndRollback(t *testing.T) {
	pool := dbtest.Setup(t)
	seedPlayers(t, pool)
	ctx := context.Background()

	err := pool.RunInTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `UPDATE players SET medals = medals + 5 WHERE user_id = 10`)
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = pool.RunInTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE players SET medals = medals + 1000 WHERE user_id = 10`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	medals, err := db.Scalar[int64](ctx, pool, `SELECT medals FROM players WHERE user_id = 10`)
	require.NoError(t, err)
	assert.Equal(t, int64(105), medals)
}

func TestRunInTx_RetriesConflicts(t *testing.T) {
	pool := dbtest.Setup(t)
	ctx := context.Background()

	retried := 0
	pool.OnRetry(func(error) { retried++ })

	calls := 0
	err := pool.RunInTx(ctx, func(tx pgx.Tx) error {
		calls++
		if calls == 1 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, retried)

	calls = 0
	err = pool.RunInTx(ctx, func(tx pgx.Tx) error {
		calls++
		return &pgconn.PgError{Code: "40001"}
	})
	assert.ErrorIs(t, err, model.ErrConflict)
	assert.Equal(t, 3, calls)
}

func TestRunInTx_CheckViolationIsInvariant(t *testing.T) {
	pool := dbtest.Setup(t)
	seedPlayers(t, pool)
	ctx := context.Background()

	err := pool.RunInTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `UPDATE players SET medals = medals - 1000 WHERE user_id = 10`)
		return err
	})
	assert.ErrorIs(t, err, model.ErrInvariantViolation)
	ce, ok := db.AsConstraint(err)
	require.True(t, ok)
	assert.Equal(t, "players_medals_check", ce.Constraint)
}

func TestAttackTrigger_MaintainsCounters(t *testing.T) {
	pool := dbtest.Setup(t)
	seedPlayers(t, pool)
	ctx := context.Background()

	for _, dmg := range []int{35, 12, 1} {
		_, err := pool.Exec(ctx, `
			INSERT INTO attacks (chat_id, attacker_id, victim_id, weapon_id, damage, attack_time)
			VALUES (1, 10, 20, 'moab', $1, 100)`, dmg)
		require.NoError(t, err)
	}

	attacker, err := db.FetchOne[model.Player](ctx, pool, `SELECT * FROM players WHERE user_id = 10`)
	require.NoError(t, err)
	victim, err := db.FetchOne[model.Player](ctx, pool, `SELECT * FROM players WHERE user_id = 20`)
	require.NoError(t, err)

	assert.Equal(t, int64(3), attacker.TotalAttacks)
	assert.Equal(t, int64(48), attacker.TotalDamageDealt)
	assert.Equal(t, int64(3), victim.TimesAttacked)
	assert.Equal(t, int64(48), victim.DamageTaken)

	_, err = pool.Exec(ctx, `
		INSERT INTO attacks (chat_id, attacker_id, victim_id, weapon_id, damage, attack_time)
		VALUES (1, 10, 10, 'moab', 5, 100)`)
	assert.Error(t, err)
	_, err = pool.Exec(ctx, `
		INSERT INTO attacks (chat_id, attacker_id, victim_id, weapon_id, damage, attack_time)
		VALUES (1, 10, 20, 'moab', 0, 100)`)
	assert.Error(t, err)
}

func TestFetchOne_NotFound(t *testing.T) {
	pool := dbtest.Setup(t)
	_, err := db.FetchOne[model.Player](context.Background(), pool, `SELECT * FROM players WHERE user_id = 999`)
	assert.ErrorIs(t, err, db.ErrNotFound)
}
