package repository

import (
	"context"
	"errors"
	"fmt"

	"missile-bot/internal/model"
	"missile-bot/internal/pkg/db"
)

// EffectRepository handles active defenses and boosts. Reads treat rows with
// expires_at <= now as gone.
type EffectRepository struct {
	q db.DBTX
}

// NewEffectRepository creates a new EffectRepository instance.
func NewEffectRepository(q db.DBTX) *EffectRepository {
	return &EffectRepository{q: q}
}

// ActiveDefense returns the defense in force at now, or nil.
func (r *EffectRepository) ActiveDefense(ctx context.Context, chatID, userID, now int64) (*model.ActiveDefense, error) {
	d, err := db.FetchOne[model.ActiveDefense](ctx, r.q, `
		SELECT chat_id, user_id, defense_type, item_id, activated_at, expires_at,
			effectiveness, intercept_bonus, absorption_left
		FROM active_defenses
		WHERE chat_id = $1 AND user_id = $2 AND expires_at > $3`, chatID, userID, now)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active defense: %w", err)
	}
	return d, nil
}

// ReplaceDefense makes d the only defense row of the player.
func (r *EffectRepository) ReplaceDefense(ctx context.Context, d *model.ActiveDefense) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO active_defenses (chat_id, user_id, defense_type, item_id, activated_at, expires_at,
			effectiveness, intercept_bonus, absorption_left)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (chat_id, user_id) DO UPDATE
		SET defense_type = EXCLUDED.defense_type,
			item_id = EXCLUDED.item_id,
			activated_at = EXCLUDED.activated_at,
			expires_at = EXCLUDED.expires_at,
			effectiveness = EXCLUDED.effectiveness,
			intercept_bonus = EXCLUDED.intercept_bonus,
			absorption_left = EXCLUDED.absorption_left`,
		d.ChatID, d.UserID, d.DefenseType, d.ItemID, d.ActivatedAt, d.ExpiresAt,
		d.Effectiveness, d.InterceptBonus, d.AbsorptionLeft)
	if err != nil {
		return fmt.Errorf("failed to replace defense: %w", err)
	}
	return nil
}

// SetAbsorption updates the remaining absorption pool of a defense.
func (r *EffectRepository) SetAbsorption(ctx context.Context, chatID, userID int64, left int) error {
	_, err := r.q.Exec(ctx, `
		UPDATE active_defenses SET absorption_left = $3
		WHERE chat_id = $1 AND user_id = $2`, chatID, userID, left)
	if err != nil {
		return fmt.Errorf("failed to update absorption: %w", err)
	}
	return nil
}

// UpsertBoost activates or replaces a boost of one type.
func (r *EffectRepository) UpsertBoost(ctx context.Context, b *model.ActiveBoost) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO active_boosts (chat_id, user_id, boost_type, value, activated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (chat_id, user_id, boost_type) DO UPDATE
		SET value = EXCLUDED.value,
			activated_at = EXCLUDED.activated_at,
			expires_at = EXCLUDED.expires_at`,
		b.ChatID, b.UserID, b.BoostType, b.Value, b.ActivatedAt, b.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to upsert boost: %w", err)
	}
	return nil
}

// ActiveBoosts returns the boosts in force at now.
func (r *EffectRepository) ActiveBoosts(ctx context.Context, chatID, userID, now int64) ([]model.ActiveBoost, error) {
	boosts, err := db.FetchMany[model.ActiveBoost](ctx, r.q, `
		SELECT chat_id, user_id, boost_type, value, activated_at, expires_at
		FROM active_boosts
		WHERE chat_id = $1 AND user_id = $2 AND expires_at > $3
		ORDER BY boost_type`, chatID, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list boosts: %w", err)
	}
	return boosts, nil
}

// Boost returns one boost in force at now, or nil.
func (r *EffectRepository) Boost(ctx context.Context, chatID, userID int64, boostType string, now int64) (*model.ActiveBoost, error) {
	b, err := db.FetchOne[model.ActiveBoost](ctx, r.q, `
		SELECT chat_id, user_id, boost_type, value, activated_at, expires_at
		FROM active_boosts
		WHERE chat_id = $1 AND user_id = $2 AND boost_type = $3 AND expires_at > $4`,
		chatID, userID, boostType, now)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get boost: %w", err)
	}
	return b, nil
}

// SweepExpired deletes expired defenses and boosts.
func (r *EffectRepository) SweepExpired(ctx context.Context, now int64) (defenses, boosts int64, err error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM active_defenses WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to sweep defenses: %w", err)
	}
	defenses = tag.RowsAffected()

	tag, err = r.q.Exec(ctx, `DELETE FROM active_boosts WHERE expires_at <= $1`, now)
	if err != nil {
		return defenses, 0, fmt.Errorf("failed to sweep boosts: %w", err)
	}
	return defenses, tag.RowsAffected(), nil
}
