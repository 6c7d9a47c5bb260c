package repository

import (
	"context"
	"errors"
	"fmt"

	"missile-bot/internal/model"
	"missile-bot/internal/pkg/db"
)

// ErrPaymentNotFound is returned when no stars purchase has the payment id.
// It matches model.ErrInvalidPayload.
var ErrPaymentNotFound = fmt.Errorf("stars purchase not found: %w", model.ErrInvalidPayload)

const starsPaymentIDKey = "stars_purchases_payment_id_key"

// PurchaseRepository handles the append-only purchase records.
type PurchaseRepository struct {
	q db.DBTX
}

// NewPurchaseRepository creates a new PurchaseRepository instance.
func NewPurchaseRepository(q db.DBTX) *PurchaseRepository {
	return &PurchaseRepository{q: q}
}

// Insert records a medals purchase.
func (r *PurchaseRepository) Insert(ctx context.Context, p *model.Purchase) error {
	id, err := db.Scalar[int64](ctx, r.q, `
		INSERT INTO purchases (chat_id, user_id, item_id, price, purchased_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`, p.ChatID, p.UserID, p.ItemID, p.Price, p.PurchasedAt)
	if err != nil {
		return fmt.Errorf("failed to insert purchase: %w", err)
	}
	p.ID = id
	return nil
}

// ListByUser returns a player's medals purchases, newest first.
func (r *PurchaseRepository) ListByUser(ctx context.Context, chatID, userID int64, limit int) ([]model.Purchase, error) {
	out, err := db.FetchMany[model.Purchase](ctx, r.q, `
		SELECT id, chat_id, user_id, item_id, price, purchased_at
		FROM purchases
		WHERE chat_id = $1 AND user_id = $2
		ORDER BY purchased_at DESC, id DESC
		LIMIT $3`, chatID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	return out, nil
}

// InsertStars records a stars purchase. A repeated payment id yields
// model.ErrDuplicatePayment.
func (r *PurchaseRepository) InsertStars(ctx context.Context, p *model.StarsPurchase) error {
	id, err := db.Scalar[int64](ctx, r.q, `
		INSERT INTO stars_purchases (chat_id, user_id, item_id, stars, payment_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id`, p.ChatID, p.UserID, p.ItemID, p.Stars, p.PaymentID, p.Status, p.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, starsPaymentIDKey) {
			return model.ErrDuplicatePayment
		}
		return fmt.Errorf("failed to insert stars purchase: %w", err)
	}
	p.ID = id
	p.UpdatedAt = p.CreatedAt
	return nil
}

// StarsByPaymentID looks a stars purchase up by provider payment id.
func (r *PurchaseRepository) StarsByPaymentID(ctx context.Context, paymentID string) (*model.StarsPurchase, error) {
	p, err := db.FetchOne[model.StarsPurchase](ctx, r.q, `
		SELECT id, chat_id, user_id, item_id, stars, payment_id, status, created_at, updated_at
		FROM stars_purchases WHERE payment_id = $1`, paymentID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get stars purchase: %w", err)
	}
	return p, nil
}

// SetStarsStatus moves a stars purchase to a new status.
func (r *PurchaseRepository) SetStarsStatus(ctx context.Context, paymentID, status string, now int64) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE stars_purchases SET status = $2, updated_at = $3 WHERE payment_id = $1`, paymentID, status, now)
	if err != nil {
		return fmt.Errorf("failed to update stars purchase: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}
