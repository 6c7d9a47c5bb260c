package service

import (
	"context"

	"missile-bot/internal/model"
	"missile-bot/internal/repository"
)

// InventoryService manages item stacks.
type InventoryService struct {
	Deps
}

// NewInventoryService creates a new InventoryService instance.
func NewInventoryService(deps Deps) *InventoryService {
	return &InventoryService{Deps: deps}
}

// Qty returns how many of an item a player holds.
func (s *InventoryService) Qty(ctx context.Context, chatID, userID int64, itemID string) (int, error) {
	var qty int
	err := s.read(ctx, func(r *repository.Repos, _ int64) error {
		var err error
		qty, err = r.Inventory.Qty(ctx, chatID, userID, itemID)
		return err
	})
	return qty, err
}

// Grant adds n of a catalog item to a registered player.
func (s *InventoryService) Grant(ctx context.Context, chatID, userID int64, itemID string, n int) (int, error) {
	if n < 1 {
		return 0, model.ErrInvalidAmount
	}
	if _, err := s.Catalog.Lookup(itemID); err != nil {
		return 0, err
	}
	var qty int
	err := s.inTx(ctx, func(r *repository.Repos, now int64) error {
		if _, err := r.Players.GetForUpdate(ctx, chatID, userID); err != nil {
			return err
		}
		var err error
		qty, err = r.Inventory.Grant(ctx, chatID, userID, itemID, n, now)
		return err
	})
	return qty, err
}

// Consume removes n of an item. It returns NotOwnedError when fewer than n are held.
func (s *InventoryService) Consume(ctx context.Context, chatID, userID int64, itemID string, n int) (int, error) {
	if n < 1 {
		return 0, model.ErrInvalidAmount
	}
	var remaining int
	err := s.inTx(ctx, func(r *repository.Repos, now int64) error {
		left, ok, err := r.Inventory.Consume(ctx, chatID, userID, itemID, n, now)
		if err != nil {
			return err
		}
		if !ok {
			return &model.NotOwnedError{ItemID: itemID}
		}
		remaining = left
		return nil
	})
	return remaining, err
}

// List returns a player's non-empty stacks keyed by item id.
func (s *InventoryService) List(ctx context.Context, chatID, userID int64) (map[string]int, error) {
	out := make(map[string]int)
	err := s.read(ctx, func(r *repository.Repos, _ int64) error {
		entries, err := r.Inventory.List(ctx, chatID, userID)
		for _, e := range entries {
			out[e.ItemID] = e.Qty
		}
		return err
	})
	return out, err
}
