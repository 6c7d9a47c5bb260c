package repository

import (
	"context"
	"fmt"

	"missile-bot/internal/model"
	"missile-bot/internal/pkg/db"
)

// AttackRepository appends to and reads the attack log. Inserting a row fires
// the counters trigger on both players.
type AttackRepository struct {
	q db.DBTX
}

// NewAttackRepository creates a new AttackRepository instance.
func NewAttackRepository(q db.DBTX) *AttackRepository {
	return &AttackRepository{q: q}
}

// Insert appends a record and returns its id.
func (r *AttackRepository) Insert(ctx context.Context, rec *model.AttackRecord) (int64, error) {
	id, err := db.Scalar[int64](ctx, r.q, `
		INSERT INTO attacks (chat_id, attacker_id, victim_id, weapon_id, damage, is_critical, defense_reduced, attack_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		rec.ChatID, rec.AttackerID, rec.VictimID, rec.WeaponID, rec.Damage, rec.IsCritical, rec.DefenseReduced, rec.AttackTime)
	if err != nil {
		return 0, fmt.Errorf("failed to insert attack: %w", err)
	}
	rec.ID = id
	return id, nil
}

// Recent returns the latest attacks of a chat, newest first.
func (r *AttackRepository) Recent(ctx context.Context, chatID int64, limit int) ([]model.AttackRecord, error) {
	recs, err := db.FetchMany[model.AttackRecord](ctx, r.q, `
		SELECT id, chat_id, attacker_id, victim_id, weapon_id, damage, is_critical, defense_reduced, attack_time
		FROM attacks
		WHERE chat_id = $1
		ORDER BY attack_time DESC, id DESC
		LIMIT $2`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list attacks: %w", err)
	}
	return recs, nil
}

// Totals are log aggregates for one player, comparable with the trigger counters.
type Totals struct {
	Attacks       int64 `db:"attacks"`
	DamageDealt   int64 `db:"damage_dealt"`
	TimesAttacked int64 `db:"times_attacked"`
	DamageTaken   int64 `db:"damage_taken"`
}

// TotalsFor aggregates the log for one player.
func (r *AttackRepository) TotalsFor(ctx context.Context, chatID, userID int64) (*Totals, error) {
	t, err := db.FetchOne[Totals](ctx, r.q, `
		SELECT
			COUNT(*) FILTER (WHERE attacker_id = $2) AS attacks,
			COALESCE(SUM(damage) FILTER (WHERE attacker_id = $2), 0)::BIGINT AS damage_dealt,
			COUNT(*) FILTER (WHERE victim_id = $2) AS times_attacked,
			COALESCE(SUM(damage) FILTER (WHERE victim_id = $2), 0)::BIGINT AS damage_taken
		FROM attacks
		WHERE chat_id = $1 AND (attacker_id = $2 OR victim_id = $2)`, chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate attacks: %w", err)
	}
	return t, nil
}
