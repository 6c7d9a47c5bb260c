package repository

import (
	"context"
	"errors"
	"fmt"

	"missile-bot/internal/model"
	"missile-bot/internal/pkg/db"
)

// InventoryRepository handles per-player item stacks. A missing row means qty 0.
type InventoryRepository struct {
	q db.DBTX
}

// NewInventoryRepository creates a new InventoryRepository instance.
func NewInventoryRepository(q db.DBTX) *InventoryRepository {
	return &InventoryRepository{q: q}
}

// Qty returns how many of an item a player holds.
func (r *InventoryRepository) Qty(ctx context.Context, chatID, userID int64, itemID string) (int, error) {
	qty, err := db.Scalar[int](ctx, r.q, `
		SELECT qty FROM inventory
		WHERE chat_id = $1 AND user_id = $2 AND item_id = $3`, chatID, userID, itemID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get item qty: %w", err)
	}
	return qty, nil
}

// Grant adds n of an item and returns the new quantity.
func (r *InventoryRepository) Grant(ctx context.Context, chatID, userID int64, itemID string, n int, now int64) (int, error) {
	if n < 1 {
		return 0, model.ErrInvalidAmount
	}
	qty, err := db.Scalar[int](ctx, r.q, `
		INSERT INTO inventory (chat_id, user_id, item_id, qty, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chat_id, user_id, item_id)
		DO UPDATE SET qty = inventory.qty + EXCLUDED.qty, updated_at = EXCLUDED.updated_at
		RETURNING qty`, chatID, userID, itemID, n, now)
	if err != nil {
		return 0, fmt.Errorf("failed to grant item: %w", err)
	}
	return qty, nil
}

// Consume removes n of an item. The decrement is guarded by qty >= n in the
// same statement, so concurrent consumers of the last unit cannot both win.
// ok is false when the stock is insufficient.
func (r *InventoryRepository) Consume(ctx context.Context, chatID, userID int64, itemID string, n int, now int64) (remaining int, ok bool, err error) {
	if n < 1 {
		return 0, false, model.ErrInvalidAmount
	}
	remaining, err = db.Scalar[int](ctx, r.q, `
		UPDATE inventory
		SET qty = qty - $4, updated_at = $5
		WHERE chat_id = $1 AND user_id = $2 AND item_id = $3 AND qty >= $4
		RETURNING qty`, chatID, userID, itemID, n, now)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to consume item: %w", err)
	}
	return remaining, true, nil
}

// List returns a player's items with qty > 0.
func (r *InventoryRepository) List(ctx context.Context, chatID, userID int64) ([]model.InventoryEntry, error) {
	entries, err := db.FetchMany[model.InventoryEntry](ctx, r.q, `
		SELECT chat_id, user_id, item_id, qty, updated_at
		FROM inventory
		WHERE chat_id = $1 AND user_id = $2 AND qty > 0
		ORDER BY item_id`, chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	return entries, nil
}

// SweepEmpty deletes rows with qty = 0.
func (r *InventoryRepository) SweepEmpty(ctx context.Context) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM inventory WHERE qty = 0`)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep inventory: %w", err)
	}
	return tag.RowsAffected(), nil
}
