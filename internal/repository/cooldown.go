package repository

import (
	"context"
	"errors"
	"fmt"

	"missile-bot/internal/pkg/db"
)

// CooldownRepository handles (chat, user, action) timers.
type CooldownRepository struct {
	q db.DBTX
}

// NewCooldownRepository creates a new CooldownRepository instance.
func NewCooldownRepository(q db.DBTX) *CooldownRepository {
	return &CooldownRepository{q: q}
}

// ExpiresAt returns the expiry of a cooldown still in force at now, or 0.
// Expired rows are ignored even before the sweeper removes them.
func (r *CooldownRepository) ExpiresAt(ctx context.Context, chatID, userID int64, action string, now int64) (int64, error) {
	exp, err := db.Scalar[int64](ctx, r.q, `
		SELECT expires_at FROM cooldowns
		WHERE chat_id = $1 AND user_id = $2 AND action = $3 AND expires_at > $4`,
		chatID, userID, action, now)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get cooldown: %w", err)
	}
	return exp, nil
}

// Set replaces any cooldown for the triple with one running from now to expiresAt.
func (r *CooldownRepository) Set(ctx context.Context, chatID, userID int64, action string, now, expiresAt int64) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO cooldowns (chat_id, user_id, action, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chat_id, user_id, action)
		DO UPDATE SET created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at`,
		chatID, userID, action, now, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to set cooldown: %w", err)
	}
	return nil
}

// Clear removes a cooldown.
func (r *CooldownRepository) Clear(ctx context.Context, chatID, userID int64, action string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM cooldowns WHERE chat_id = $1 AND user_id = $2 AND action = $3`, chatID, userID, action)
	if err != nil {
		return fmt.Errorf("failed to clear cooldown: %w", err)
	}
	return nil
}

// SweepExpired deletes cooldowns that ended at or before now.
func (r *CooldownRepository) SweepExpired(ctx context.Context, now int64) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM cooldowns WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep cooldowns: %w", err)
	}
	return tag.RowsAffected(), nil
}
