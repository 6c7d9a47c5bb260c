package service

import (
	"context"

	"missile-bot/internal/catalog"
	"missile-bot/internal/game/progression"
	"missile-bot/internal/model"
	"missile-bot/internal/repository"
)

// EffectService manages defenses, boosts and consumable use.
type EffectService struct {
	Deps
}

// NewEffectService creates a new EffectService instance.
func NewEffectService(deps Deps) *EffectService {
	return &EffectService{Deps: deps}
}

// DefenseResult is the outcome of activating a defense.
type DefenseResult struct {
	Defense   *model.ActiveDefense `json:"defense"`
	Purchased *PurchaseResult      `json:"purchased,omitempty"`
	Remaining int                  `json:"remaining"`
	ScoreGain int64                `json:"score_gain"`
	LevelUp   bool                 `json:"level_up"`
}

// ActivateDefense consumes one shield or intercept item and puts it in force,
// replacing any other defense. With buy set, a missing item is bought first in
// the same transaction.
func (s *EffectService) ActivateDefense(ctx context.Context, chatID, userID int64, itemID string, buy bool) (*DefenseResult, error) {
	it, err := s.Catalog.Lookup(itemID)
	if err != nil {
		return nil, err
	}
	if it.Kind != catalog.KindShield && it.Kind != catalog.KindIntercept {
		return nil, &model.DisallowedError{ItemID: itemID, Reason: model.ReasonNotUsable}
	}

	var res *DefenseResult
	err = s.inTx(ctx, func(r *repository.Repos, now int64) error {
		p, err := r.Players.GetForUpdate(ctx, chatID, userID)
		if err != nil {
			return err
		}
		var bought *PurchaseResult
		if buy {
			qty, err := r.Inventory.Qty(ctx, chatID, userID, itemID)
			if err != nil {
				return err
			}
			if qty == 0 {
				if err := alreadyActive(ctx, r, now, p, it); err != nil {
					return err
				}
				if bought, err = purchaseTx(ctx, r, now, p, it); err != nil {
					return err
				}
			}
		}
		res, err = activateDefenseTx(ctx, r, now, p, it)
		if err != nil {
			return err
		}
		res.Purchased = bought
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Purchased != nil {
		s.Metrics.Purchase(res.Purchased.Currency)
	}
	return res, nil
}

func alreadyActive(ctx context.Context, r *repository.Repos, now int64, p *model.Player, it catalog.Item) error {
	existing, err := r.Effects.ActiveDefense(ctx, p.ChatID, p.UserID, now)
	if err != nil {
		return err
	}
	if existing != nil && existing.ItemID == it.ID {
		return model.ErrAlreadyActive
	}
	return nil
}

// activateDefenseTx consumes one unit of a defense item held by a locked player.
func activateDefenseTx(ctx context.Context, r *repository.Repos, now int64, p *model.Player, it catalog.Item) (*DefenseResult, error) {
	if err := alreadyActive(ctx, r, now, p, it); err != nil {
		return nil, err
	}
	left, ok, err := r.Inventory.Consume(ctx, p.ChatID, p.UserID, it.ID, 1, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &model.NotOwnedError{ItemID: it.ID}
	}

	def := it.Defense
	d := &model.ActiveDefense{
		ChatID:         p.ChatID,
		UserID:         p.UserID,
		DefenseType:    model.DefenseShield,
		ItemID:         it.ID,
		ActivatedAt:    now,
		ExpiresAt:      now + def.DurationSeconds,
		Effectiveness:  def.Effectiveness,
		InterceptBonus: def.InterceptBonus,
		AbsorptionLeft: def.Absorption,
	}
	activity := progression.ActivityShield
	if it.Kind == catalog.KindIntercept {
		d.DefenseType = model.DefenseIntercept
		activity = progression.ActivityDefend
	}
	if err := r.Effects.ReplaceDefense(ctx, d); err != nil {
		return nil, err
	}

	gain, _ := progression.ActivityScore(activity)
	levelUp := addScore(p, gain)
	p.LastActive = now
	if err := r.Players.Save(ctx, p); err != nil {
		return nil, err
	}
	return &DefenseResult{Defense: d, Remaining: left, ScoreGain: gain, LevelUp: levelUp}, nil
}

// ActiveDefense returns the defense in force, or nil.
func (s *EffectService) ActiveDefense(ctx context.Context, chatID, userID int64) (*model.ActiveDefense, error) {
	var d *model.ActiveDefense
	err := s.read(ctx, func(r *repository.Repos, now int64) error {
		var err error
		d, err = r.Effects.ActiveDefense(ctx, chatID, userID, now)
		return err
	})
	return d, err
}

// ActivateBoost starts or refreshes a boost for duration seconds.
func (s *EffectService) ActivateBoost(ctx context.Context, chatID, userID int64, boostType string, value float64, seconds int64) (*model.ActiveBoost, error) {
	if seconds < 1 {
		return nil, model.ErrInvalidAmount
	}
	var b *model.ActiveBoost
	err := s.inTx(ctx, func(r *repository.Repos, now int64) error {
		if _, err := r.Players.GetForUpdate(ctx, chatID, userID); err != nil {
			return err
		}
		b = &model.ActiveBoost{
			ChatID: chatID, UserID: userID, BoostType: boostType, Value: value,
			ActivatedAt: now, ExpiresAt: now + seconds,
		}
		return r.Effects.UpsertBoost(ctx, b)
	})
	return b, err
}

// ActiveBoosts returns the unexpired boosts of a player.
func (s *EffectService) ActiveBoosts(ctx context.Context, chatID, userID int64) ([]model.ActiveBoost, error) {
	var boosts []model.ActiveBoost
	err := s.read(ctx, func(r *repository.Repos, now int64) error {
		var err error
		boosts, err = r.Effects.ActiveBoosts(ctx, chatID, userID, now)
		return err
	})
	return boosts, err
}

// UseResult is the outcome of using a consumable.
type UseResult struct {
	ItemID    string   `json:"item_id"`
	Remaining int      `json:"remaining"`
	Applied   *Applied `json:"applied"`
	HP        int      `json:"hp"`
	MaxHP     int      `json:"max_hp"`
	Medals    int64    `json:"medals"`
}

// Use consumes one stockpiled utility, boost or arsenal item and applies it.
func (s *EffectService) Use(ctx context.Context, chatID, userID int64, itemID string) (*UseResult, error) {
	it, err := s.Catalog.Lookup(itemID)
	if err != nil {
		return nil, err
	}
	switch it.Kind {
	case catalog.KindUtility, catalog.KindBoost, catalog.KindArsenal:
	default:
		return nil, &model.DisallowedError{ItemID: itemID, Reason: model.ReasonNotUsable}
	}

	var res *UseResult
	err = s.inTx(ctx, func(r *repository.Repos, now int64) error {
		p, err := r.Players.GetForUpdate(ctx, chatID, userID)
		if err != nil {
			return err
		}
		left, ok, err := r.Inventory.Consume(ctx, chatID, userID, itemID, 1, now)
		if err != nil {
			return err
		}
		if !ok {
			return &model.NotOwnedError{ItemID: itemID}
		}
		applied, err := applyEffectTx(ctx, r, now, p, it)
		if err != nil {
			return err
		}
		res = &UseResult{ItemID: itemID, Remaining: left, Applied: applied, HP: p.HP, MaxHP: p.MaxHP, Medals: p.Medals}
		return nil
	})
	return res, err
}

// Sweep deletes expired defenses and boosts.
func (s *EffectService) Sweep(ctx context.Context) (defenses, boosts int64, err error) {
	err = s.read(ctx, func(r *repository.Repos, now int64) error {
		var err error
		defenses, boosts, err = r.Effects.SweepExpired(ctx, now)
		return err
	})
	s.Metrics.Swept("active_defenses", defenses)
	s.Metrics.Swept("active_boosts", boosts)
	return defenses, boosts, err
}
