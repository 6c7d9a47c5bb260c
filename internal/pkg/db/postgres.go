// Package db provides PostgreSQL connection management, transactions with retry,
// and the schema migrations for the game store.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"missile-bot/internal/config"
)

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool wraps pgxpool.Pool with retrying transactions.
type Pool struct {
	*pgxpool.Pool
	retry          RetryPolicy
	acquireTimeout time.Duration
	onRetry        func(err error)
}

// NewPool creates a new PostgreSQL connection pool.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.PoolSize)
	poolConfig.MinConns = int32(cfg.PoolSize / 4) // 25% of max as minimum
	if poolConfig.MinConns < 1 {
		poolConfig.MinConns = 1
	}

	if cfg.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	} else {
		poolConfig.ConnConfig.ConnectTimeout = 10 * time.Second
	}

	// Connections are recycled after MaxConnLifetime so the pool refreshes itself.
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	} else {
		poolConfig.MaxConnLifetime = time.Hour
	}

	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	} else {
		poolConfig.MaxConnIdleTime = 30 * time.Minute
	}

	if cfg.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	} else {
		poolConfig.HealthCheckPeriod = 30 * time.Second
	}

	// Lightweight probe before a connection is handed out; a dead connection is
	// destroyed and the pool dials a fresh one.
	poolConfig.BeforeAcquire = func(ctx context.Context, conn *pgx.Conn) bool {
		probeCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		return conn.Ping(probeCtx) == nil
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Int("pool_size", cfg.PoolSize).
		Msg("Connecting to PostgreSQL")

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to PostgreSQL")

	return Wrap(pool, RetryPolicy{
		Attempts:        cfg.RetryAttempts,
		InitialInterval: cfg.RetryInitialInterval,
	}, cfg.AcquireTimeout), nil
}

// Wrap builds a Pool around an existing pgxpool.Pool.
func Wrap(pool *pgxpool.Pool, retry RetryPolicy, acquireTimeout time.Duration) *Pool {
	return &Pool{Pool: pool, retry: retry.normalized(), acquireTimeout: acquireTimeout}
}

// OnRetry registers a hook invoked for every retried transient failure.
func (p *Pool) OnRetry(fn func(err error)) {
	p.onRetry = fn
}

// Close closes the connection pool.
func (p *Pool) Close() {
	if p.Pool != nil {
		p.Pool.Close()
		log.Info().Msg("PostgreSQL connection pool closed")
	}
}

// Stats returns pool statistics for monitoring.
func (p *Pool) Stats() *pgxpool.Stat {
	return p.Pool.Stat()
}

// HealthCheck performs a health check on the database connection.
func (p *Pool) HealthCheck(ctx context.Context) error {
	return p.Pool.Ping(ctx)
}
