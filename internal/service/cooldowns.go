package service

import (
	"context"
	"time"

	"missile-bot/internal/model"
	"missile-bot/internal/repository"
)

// CooldownService manages per-action timers.
type CooldownService struct {
	Deps
}

// NewCooldownService creates a new CooldownService instance.
func NewCooldownService(deps Deps) *CooldownService {
	return &CooldownService{Deps: deps}
}

// Check returns the seconds left on a cooldown, 0 when the action is ready.
func (s *CooldownService) Check(ctx context.Context, chatID, userID int64, action string) (int64, error) {
	var remaining int64
	err := s.read(ctx, func(r *repository.Repos, now int64) error {
		exp, err := r.Cooldowns.ExpiresAt(ctx, chatID, userID, action, now)
		if exp > now {
			remaining = exp - now
		}
		return err
	})
	return remaining, err
}

// Set starts a cooldown of d, rounded down to whole seconds.
func (s *CooldownService) Set(ctx context.Context, chatID, userID int64, action string, d time.Duration) error {
	secs := int64(d / time.Second)
	if secs < 1 {
		return model.ErrInvalidAmount
	}
	return s.inTx(ctx, func(r *repository.Repos, now int64) error {
		return r.Cooldowns.Set(ctx, chatID, userID, action, now, now+secs)
	})
}

// Clear removes a cooldown. Clearing a missing cooldown is a no-op.
func (s *CooldownService) Clear(ctx context.Context, chatID, userID int64, action string) error {
	return s.read(ctx, func(r *repository.Repos, _ int64) error {
		return r.Cooldowns.Clear(ctx, chatID, userID, action)
	})
}

// Sweep deletes expired cooldowns.
func (s *CooldownService) Sweep(ctx context.Context) (int64, error) {
	var n int64
	err := s.read(ctx, func(r *repository.Repos, now int64) error {
		var err error
		n, err = r.Cooldowns.SweepExpired(ctx, now)
		return err
	})
	s.Metrics.Swept("cooldowns", n)
	return n, err
}
