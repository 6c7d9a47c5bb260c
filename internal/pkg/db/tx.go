package db

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"

	"missile-bot/internal/model"
)

// SQLSTATE codes the store reacts to.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeCheckViolation       = "23514"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeAdminShutdown        = "57P01"
	codeTooManyConnections   = "53300"
)

// RetryPolicy bounds the exponential backoff applied to transient failures.
type RetryPolicy struct {
	Attempts        int
	InitialInterval time.Duration
}

func (r RetryPolicy) normalized() RetryPolicy {
	if r.Attempts < 1 {
		r.Attempts = 3
	}
	if r.InitialInterval <= 0 {
		r.InitialInterval = 100 * time.Millisecond
	}
	return r
}

type errClass int

const (
	classPermanent errClass = iota
	classTransient
	classConflict
)

// classify decides whether a driver error is worth retrying.
func classify(err error) errClass {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected:
			return classConflict
		case strings.HasPrefix(pgErr.Code, "08"),
			pgErr.Code == codeAdminShutdown,
			pgErr.Code == codeTooManyConnections:
			return classTransient
		}
		return classPermanent
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return classTransient
	}
	if pgconn.SafeToRetry(err) {
		return classTransient
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return classTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return classTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		// acquire timeout on an exhausted pool
		return classTransient
	}
	return classPermanent
}

// ConstraintError is a storage-layer constraint violation surfaced to callers.
type ConstraintError struct {
	Code       string
	Constraint string
	err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint %s violated (%s)", e.Constraint, e.Code)
}

func (e *ConstraintError) Unwrap() error {
	return e.err
}

// Is lets check violations match model.ErrInvariantViolation.
func (e *ConstraintError) Is(target error) bool {
	return target == model.ErrInvariantViolation && e.Code == codeCheckViolation
}

// AsConstraint returns the constraint violation wrapped in err, if any.
func AsConstraint(err error) (*ConstraintError, bool) {
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return ce, true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return &ConstraintError{Code: pgErr.Code, Constraint: pgErr.ConstraintName, err: err}, true
	}
	return nil, false
}

// IsUniqueViolation reports a unique violation on the named constraint (any when empty).
func IsUniqueViolation(err error, constraint string) bool {
	ce, ok := AsConstraint(err)
	if !ok || ce.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || ce.Constraint == constraint
}

// RunInTx runs fn inside a single transaction. Transient connection errors and
// serialization conflicts are retried with exponential backoff; anything fn returns
// that is not a driver error is handed back unchanged.
func (p *Pool) RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return p.withRetry(ctx, "transaction", func() error {
		return p.runOnce(ctx, fn)
	})
}

// Run runs fn against the pool without a transaction, for reads and single
// statements. Retries and error mapping are the same as RunInTx.
func (p *Pool) Run(ctx context.Context, fn func(q DBTX) error) error {
	return p.withRetry(ctx, "query", func() error {
		return fn(p.Pool)
	})
}

func (p *Pool) withRetry(ctx context.Context, what string, op func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.retry.InitialInterval
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.retry.Attempts-1)), ctx)

	attempt := 0
	var lastClass errClass
	err := backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		lastClass = classify(err)
		if lastClass == classPermanent || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		log.Warn().Err(err).Int("attempt", attempt).Str("op", what).Msg("Retrying after transient store error")
		if p.onRetry != nil {
			p.onRetry(err)
		}
		return err
	}, policy)
	if err == nil {
		return nil
	}

	if ce, ok := AsConstraint(err); ok {
		if ce.Code == codeCheckViolation || ce.Code == codeForeignKeyViolation {
			log.Error().Err(err).Str("constraint", ce.Constraint).Msg("invariant_violation: transaction rolled back")
		}
		return ce
	}
	switch lastClass {
	case classConflict:
		return fmt.Errorf("%w: %w", model.ErrConflict, err)
	case classTransient:
		return fmt.Errorf("%w: %w", model.ErrTransientIO, err)
	}
	return err
}

func (p *Pool) runOnce(ctx context.Context, fn func(tx pgx.Tx) error) error {
	acquireCtx := ctx
	if p.acquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, p.acquireTimeout)
		defer cancel()
	}
	conn, err := p.Acquire(acquireCtx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	return pgx.BeginTxFunc(ctx, conn, pgx.TxOptions{}, fn)
}
