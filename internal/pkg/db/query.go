package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned by FetchOne when the query yields no row.
var ErrNotFound = errors.New("row not found")

// FetchOne runs query and maps the single resulting row onto T by db tag.
func FetchOne[T any](ctx context.Context, q DBTX, query string, args ...any) (*T, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	v, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByNameLax[T])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

// FetchMany runs query and maps every row onto T by db tag.
func FetchMany[T any](ctx context.Context, q DBTX, query string, args ...any) ([]T, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByNameLax[T])
}

// Scalar runs query and scans its single column into T.
func Scalar[T any](ctx context.Context, q DBTX, query string, args ...any) (T, error) {
	var v T
	err := q.QueryRow(ctx, query, args...).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return v, ErrNotFound
	}
	return v, err
}

// Count runs a COUNT query.
func Count(ctx context.Context, q DBTX, query string, args ...any) (int64, error) {
	n, err := Scalar[int64](ctx, q, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	return n, nil
}
