package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"missile-bot/internal/catalog"
	"missile-bot/internal/metrics"
	"missile-bot/internal/pkg/clock"
	"missile-bot/internal/pkg/db"
	"missile-bot/internal/repository"
)

// Deps are the collaborators shared by every service.
type Deps struct {
	Pool    *db.Pool
	Clock   clock.Clock
	Catalog *catalog.Catalog
	Metrics *metrics.Metrics
}

func (d Deps) inTx(ctx context.Context, fn func(r *repository.Repos, now int64) error) error {
	return d.Pool.RunInTx(ctx, func(tx pgx.Tx) error {
		return fn(repository.New(tx), d.Clock.Now())
	})
}

// read runs fn against the pool without an explicit transaction, with the
// same transient-error retries as inTx.
func (d Deps) read(ctx context.Context, fn func(r *repository.Repos, now int64) error) error {
	return d.Pool.Run(ctx, func(q db.DBTX) error {
		return fn(repository.New(q), d.Clock.Now())
	})
}
