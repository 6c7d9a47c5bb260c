// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"missile-bot/internal/model"
	"missile-bot/internal/pkg/db"
)

const playerColumns = `chat_id, user_id, display_name, username, language, medals, stars, score, level,
	hp, max_hp, total_attacks, total_damage_dealt, times_attacked, damage_taken, created_at, last_active`

// PlayerRepository handles player rows. Every method runs on whatever DBTX it
// was built with, so it composes into a surrounding transaction.
type PlayerRepository struct {
	q db.DBTX
}

// NewPlayerRepository creates a new PlayerRepository instance.
func NewPlayerRepository(q db.DBTX) *PlayerRepository {
	return &PlayerRepository{q: q}
}

// NewPlayer carries the values a first interaction creates a player with.
type NewPlayer struct {
	ChatID      int64
	UserID      int64
	DisplayName string
	Username    *string
	Medals      int64
	HP          int
	MaxHP       int
	Now         int64
}

type upsertedPlayer struct {
	model.Player
	Inserted bool `db:"inserted"`
}

// Upsert creates the player or refreshes display_name, username and
// last_active on an existing one. created reports whether the row is new.
func (r *PlayerRepository) Upsert(ctx context.Context, p NewPlayer) (*model.Player, bool, error) {
	query := `
		INSERT INTO players (chat_id, user_id, display_name, username, medals, hp, max_hp, created_at, last_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (chat_id, user_id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
			username = EXCLUDED.username,
			last_active = EXCLUDED.last_active
		RETURNING ` + playerColumns + `, (xmax = 0) AS inserted`

	row, err := db.FetchOne[upsertedPlayer](ctx, r.q, query,
		p.ChatID, p.UserID, p.DisplayName, p.Username, p.Medals, p.HP, p.MaxHP, p.Now)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert player: %w", err)
	}
	return &row.Player, row.Inserted, nil
}

// Get retrieves a player. Returns model.ErrNotRegistered when missing.
func (r *PlayerRepository) Get(ctx context.Context, chatID, userID int64) (*model.Player, error) {
	return r.get(ctx, `SELECT `+playerColumns+` FROM players WHERE chat_id = $1 AND user_id = $2`, chatID, userID)
}

// GetForUpdate retrieves a player and row-locks it until the transaction ends.
func (r *PlayerRepository) GetForUpdate(ctx context.Context, chatID, userID int64) (*model.Player, error) {
	return r.get(ctx, `SELECT `+playerColumns+` FROM players WHERE chat_id = $1 AND user_id = $2 FOR UPDATE`, chatID, userID)
}

func (r *PlayerRepository) get(ctx context.Context, query string, chatID, userID int64) (*model.Player, error) {
	p, err := db.FetchOne[model.Player](ctx, r.q, query, chatID, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, model.ErrNotRegistered
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return p, nil
}

// LockMany row-locks the given players of a chat in user_id order, so two
// transactions locking the same pair cannot deadlock. Missing players are
// simply absent from the result.
func (r *PlayerRepository) LockMany(ctx context.Context, chatID int64, userIDs ...int64) (map[int64]*model.Player, error) {
	rows, err := db.FetchMany[model.Player](ctx, r.q, `
		SELECT `+playerColumns+`
		FROM players
		WHERE chat_id = $1 AND user_id = ANY($2)
		ORDER BY user_id
		FOR UPDATE`, chatID, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to lock players: %w", err)
	}
	out := make(map[int64]*model.Player, len(rows))
	for i := range rows {
		out[rows[i].UserID] = &rows[i]
	}
	return out, nil
}

// FindByUsername looks a player up by @username, case-insensitively.
func (r *PlayerRepository) FindByUsername(ctx context.Context, chatID int64, username string) (*model.Player, error) {
	p, err := db.FetchOne[model.Player](ctx, r.q, `
		SELECT `+playerColumns+`
		FROM players
		WHERE chat_id = $1 AND lower(username) = lower($2)
		LIMIT 1`, chatID, username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, model.ErrNotRegistered
		}
		return nil, fmt.Errorf("failed to find player by username: %w", err)
	}
	return p, nil
}

// Save writes the mutable game state of a locked player row. The attack
// counters are left to the attacks trigger.
func (r *PlayerRepository) Save(ctx context.Context, p *model.Player) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE players
		SET medals = $3, stars = $4, score = $5, level = $6, hp = $7, max_hp = $8, last_active = $9
		WHERE chat_id = $1 AND user_id = $2`,
		p.ChatID, p.UserID, p.Medals, p.Stars, p.Score, p.Level, p.HP, p.MaxHP, p.LastActive)
	if err != nil {
		return fmt.Errorf("failed to save player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotRegistered
	}
	return nil
}

// AdjustBalance adds delta (may be negative) to one currency. The update is
// guarded so the balance never goes below zero; ok is false when it would.
func (r *PlayerRepository) AdjustBalance(ctx context.Context, chatID, userID int64, currency string, delta int64) (balance int64, ok bool, err error) {
	var column string
	switch currency {
	case model.CurrencyMedals:
		column = "medals"
	case model.CurrencyStars:
		column = "stars"
	default:
		return 0, false, fmt.Errorf("unknown currency %q", currency)
	}

	balance, err = db.Scalar[int64](ctx, r.q, `
		UPDATE players SET `+column+` = `+column+` + $3
		WHERE chat_id = $1 AND user_id = $2 AND `+column+` + $3 >= 0
		RETURNING `+column, chatID, userID, delta)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to adjust balance: %w", err)
	}
	return balance, true, nil
}

// Leaderboard returns the top players of a chat by score.
func (r *PlayerRepository) Leaderboard(ctx context.Context, chatID int64, limit int) ([]model.LeaderboardEntry, error) {
	entries, err := db.FetchMany[model.LeaderboardEntry](ctx, r.q, `
		SELECT RANK() OVER (ORDER BY score DESC) AS rank,
			user_id, display_name, username, score, level, medals
		FROM players
		WHERE chat_id = $1
		ORDER BY score DESC, user_id
		LIMIT $2`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	return entries, nil
}

// Rank returns the competition rank of a player (1 + players with a strictly
// higher score), answered from the (chat_id, score DESC) index.
func (r *PlayerRepository) Rank(ctx context.Context, chatID, userID int64) (int64, error) {
	// Range scan over idx_players_chat_score; cost grows with the rank.
	rank, err := db.Scalar[int64](ctx, r.q, `
		SELECT COUNT(*) + 1
		FROM players
		WHERE chat_id = $1
		  AND score > (SELECT score FROM players WHERE chat_id = $1 AND user_id = $2)`, chatID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get rank: %w", err)
	}
	return rank, nil
}

// ChatStats aggregates a chat.
func (r *PlayerRepository) ChatStats(ctx context.Context, chatID int64) (*model.ChatStats, error) {
	stats, err := db.FetchOne[model.ChatStats](ctx, r.q, `
		SELECT COUNT(*) AS players,
			COALESCE(SUM(total_attacks), 0)::BIGINT AS total_attacks,
			COALESCE(SUM(total_damage_dealt), 0)::BIGINT AS total_damage
		FROM players
		WHERE chat_id = $1`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat stats: %w", err)
	}
	return stats, nil
}
