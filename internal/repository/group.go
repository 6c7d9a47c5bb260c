package repository

import (
	"context"
	"errors"
	"fmt"

	"missile-bot/internal/model"
	"missile-bot/internal/pkg/db"
)

// ErrGroupNotFound is returned when a chat has never been seen.
var ErrGroupNotFound = errors.New("group not found")

// GroupRepository handles group rows.
type GroupRepository struct {
	q db.DBTX
}

// NewGroupRepository creates a new GroupRepository instance.
func NewGroupRepository(q db.DBTX) *GroupRepository {
	return &GroupRepository{q: q}
}

// Upsert creates the group or updates its title when it changed.
func (r *GroupRepository) Upsert(ctx context.Context, chatID int64, title string, now int64) (*model.Group, error) {
	g, err := db.FetchOne[model.Group](ctx, r.q, `
		INSERT INTO groups (chat_id, title, default_language, created_at, updated_at)
		VALUES ($1, $2, 'en', $3, $3)
		ON CONFLICT (chat_id) DO UPDATE
		SET title = EXCLUDED.title,
			updated_at = CASE WHEN groups.title <> EXCLUDED.title THEN EXCLUDED.updated_at ELSE groups.updated_at END
		RETURNING chat_id, title, default_language, created_at, updated_at`, chatID, title, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert group: %w", err)
	}
	return g, nil
}

// Get retrieves a group.
func (r *GroupRepository) Get(ctx context.Context, chatID int64) (*model.Group, error) {
	g, err := db.FetchOne[model.Group](ctx, r.q, `
		SELECT chat_id, title, default_language, created_at, updated_at
		FROM groups WHERE chat_id = $1`, chatID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return g, nil
}

// SetLanguage changes a group's default language.
func (r *GroupRepository) SetLanguage(ctx context.Context, chatID int64, lang string, now int64) error {
	tag, err := r.q.Exec(ctx, `UPDATE groups SET default_language = $2, updated_at = $3 WHERE chat_id = $1`, chatID, lang, now)
	if err != nil {
		return fmt.Errorf("failed to set group language: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGroupNotFound
	}
	return nil
}
