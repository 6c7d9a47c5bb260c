package service

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"missile-bot/internal/game/progression"
	"missile-bot/internal/model"
	"missile-bot/internal/repository"
)

// EconomyConfig holds the daily bonus rules.
type EconomyConfig struct {
	DailyReward   int64
	DailyCooldown time.Duration
	VIPMultiplier float64
}

// EconomyService handles balances, the daily bonus and purchases.
type EconomyService struct {
	Deps
	cfg EconomyConfig
}

// NewEconomyService creates a new EconomyService instance.
func NewEconomyService(deps Deps, cfg EconomyConfig) *EconomyService {
	if cfg.VIPMultiplier < 1 {
		cfg.VIPMultiplier = 1.5
	}
	if cfg.DailyCooldown < time.Second {
		cfg.DailyCooldown = 23 * time.Hour
	}
	return &EconomyService{Deps: deps, cfg: cfg}
}

// Balance returns a player's medals and stars.
func (s *EconomyService) Balance(ctx context.Context, chatID, userID int64) (medals, stars int64, err error) {
	err = s.read(ctx, func(r *repository.Repos, _ int64) error {
		p, err := r.Players.Get(ctx, chatID, userID)
		if err != nil {
			return err
		}
		medals, stars = p.Medals, p.Stars
		return nil
	})
	return medals, stars, err
}

// Grant credits amount of a currency and returns the new balance.
func (s *EconomyService) Grant(ctx context.Context, chatID, userID int64, currency string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, model.ErrInvalidAmount
	}
	var bal int64
	err := s.inTx(ctx, func(r *repository.Repos, _ int64) error {
		b, ok, err := r.Players.AdjustBalance(ctx, chatID, userID, currency, amount)
		if err != nil {
			return err
		}
		if !ok {
			return model.ErrNotRegistered
		}
		bal = b
		return nil
	})
	return bal, err
}

// Debit removes amount of a currency. The balance never goes negative.
func (s *EconomyService) Debit(ctx context.Context, chatID, userID int64, currency string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, model.ErrInvalidAmount
	}
	var bal int64
	err := s.inTx(ctx, func(r *repository.Repos, _ int64) error {
		p, err := r.Players.GetForUpdate(ctx, chatID, userID)
		if err != nil {
			return err
		}
		have := p.Medals
		if currency == model.CurrencyStars {
			have = p.Stars
		}
		if have < amount {
			return &model.InsufficientBalanceError{Currency: currency, Needed: amount, Have: have}
		}
		b, _, err := r.Players.AdjustBalance(ctx, chatID, userID, currency, -amount)
		bal = b
		return err
	})
	return bal, err
}

// DailyResult is the outcome of a claimed daily bonus.
type DailyResult struct {
	Granted   int64 `json:"granted"`
	Medals    int64 `json:"medals"`
	VIP       bool  `json:"vip"`
	ScoreGain int64 `json:"score_gain"`
	LevelUp   bool  `json:"level_up"`
	NextIn    int64 `json:"next_in"`
}

// DailyBonus grants the daily medals once per cooldown window. VIP players
// receive the reward multiplied.
func (s *EconomyService) DailyBonus(ctx context.Context, chatID, userID int64) (*DailyResult, error) {
	var res *DailyResult
	err := s.inTx(ctx, func(r *repository.Repos, now int64) error {
		p, err := r.Players.GetForUpdate(ctx, chatID, userID)
		if err != nil {
			return err
		}
		exp, err := r.Cooldowns.ExpiresAt(ctx, chatID, userID, model.ActionDaily, now)
		if err != nil {
			return err
		}
		if exp > 0 {
			return &model.CooldownError{Action: model.ActionDaily, Remaining: exp - now}
		}

		vip, err := r.Effects.Boost(ctx, chatID, userID, model.BoostVIP, now)
		if err != nil {
			return err
		}
		reward := s.cfg.DailyReward
		if vip != nil {
			reward = int64(math.Floor(float64(reward) * s.cfg.VIPMultiplier))
		}

		gain, _ := progression.ActivityScore(progression.ActivityDailyBonus)
		p.Medals += reward
		levelUp := addScore(p, gain)
		p.LastActive = now
		if err := r.Players.Save(ctx, p); err != nil {
			return err
		}

		next := int64(s.cfg.DailyCooldown / time.Second)
		if err := r.Cooldowns.Set(ctx, chatID, userID, model.ActionDaily, now, now+next); err != nil {
			return err
		}
		res = &DailyResult{Granted: reward, Medals: p.Medals, VIP: vip != nil, ScoreGain: gain, LevelUp: levelUp, NextIn: next}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Metrics.DailyBonus()
	return res, nil
}

// Purchase buys one unit of an item from the player's own balance. Stockpiled
// items land in the inventory; boosts, status and non-consumable utilities
// apply immediately.
func (s *EconomyService) Purchase(ctx context.Context, chatID, userID int64, itemID string) (*PurchaseResult, error) {
	it, err := s.Catalog.Lookup(itemID)
	if err != nil {
		return nil, err
	}
	var res *PurchaseResult
	err = s.inTx(ctx, func(r *repository.Repos, now int64) error {
		p, err := r.Players.GetForUpdate(ctx, chatID, userID)
		if err != nil {
			return err
		}
		res, err = purchaseTx(ctx, r, now, p, it)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Metrics.Purchase(res.Currency)
	log.Debug().
		Int64("chat_id", chatID).
		Int64("user_id", userID).
		Str("item_id", itemID).
		Int64("price", res.Price).
		Str("currency", res.Currency).
		Msg("Item purchased")
	return res, nil
}
