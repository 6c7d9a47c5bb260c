// Package service provides business logic implementations. Every exported
// operation commits in a single transaction; the unexported *Tx helpers run
// inside a caller's transaction so operations can be composed atomically.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"missile-bot/internal/catalog"
	"missile-bot/internal/game/progression"
	"missile-bot/internal/model"
	"missile-bot/internal/repository"
)

const (
	maxHPCap   = 200
	secondsDay = 86400
)

// addScore credits score to a locked player and recomputes the level.
// It reports whether the level went up.
func addScore(p *model.Player, gain int64) bool {
	if gain <= 0 {
		return false
	}
	prev := p.Level
	p.Score += gain
	p.Level = progression.LevelFor(p.Score)
	return p.Level > prev
}

// Applied describes what an instant item effect changed.
type Applied struct {
	HPRestored   int                `json:"hp_restored,omitempty"`
	MedalsGained int64              `json:"medals_gained,omitempty"`
	MaxHPRaised  int                `json:"max_hp_raised,omitempty"`
	Boost        *model.ActiveBoost `json:"boost,omitempty"`
}

// boostFor maps an effect item to the boost it activates, if any.
func boostFor(it catalog.Item) (boostType string, value float64, seconds int64, ok bool) {
	if it.Effect == nil {
		return "", 0, 0, false
	}
	e := it.Effect
	switch {
	case it.Kind == catalog.KindStatus:
		return model.BoostVIP, 1, int64(e.Days) * secondsDay, true
	case e.CooldownReduction > 0:
		return model.BoostCooldownReduction, e.CooldownReduction, e.DurationSeconds, e.DurationSeconds > 0
	case e.ExperienceMultiplier > 1:
		return model.BoostExperience, e.ExperienceMultiplier, e.DurationSeconds, e.DurationSeconds > 0
	}
	return "", 0, 0, false
}

// applyEffectTx applies a boost, utility, status or arsenal item to a locked
// player and saves it. Weapons and defenses are not usable this way.
func applyEffectTx(ctx context.Context, r *repository.Repos, now int64, p *model.Player, it catalog.Item) (*Applied, error) {
	if it.Effect == nil {
		return nil, &model.DisallowedError{ItemID: it.ID, Reason: model.ReasonNotUsable}
	}
	e := it.Effect
	applied := &Applied{}

	if bt, value, secs, ok := boostFor(it); ok {
		b := &model.ActiveBoost{
			ChatID: p.ChatID, UserID: p.UserID, BoostType: bt, Value: value,
			ActivatedAt: now, ExpiresAt: now + secs,
		}
		if err := r.Effects.UpsertBoost(ctx, b); err != nil {
			return nil, err
		}
		applied.Boost = b
	}

	if e.Capacity > 0 {
		raised := min(p.MaxHP+e.Capacity, maxHPCap)
		applied.MaxHPRaised = raised - p.MaxHP
		p.MaxHP = raised
	}
	if e.HPRestore > 0 {
		healed := min(p.HP+e.HPRestore, p.MaxHP)
		applied.HPRestored = healed - p.HP
		p.HP = healed
	}
	if e.MedalsReward > 0 {
		p.Medals += e.MedalsReward
		applied.MedalsGained = e.MedalsReward
	}

	if applied.Boost == nil && e.Capacity == 0 && e.HPRestore == 0 && e.MedalsReward == 0 {
		return nil, &model.DisallowedError{ItemID: it.ID, Reason: model.ReasonNotUsable}
	}

	p.LastActive = now
	if err := r.Players.Save(ctx, p); err != nil {
		return nil, err
	}
	return applied, nil
}

// checkPurchasable runs every gate except the balance check.
func checkPurchasable(ctx context.Context, r *repository.Repos, now int64, p *model.Player, it catalog.Item) error {
	switch it.Payment {
	case catalog.PaymentAchievement:
		return &model.DisallowedError{ItemID: it.ID, Reason: model.ReasonAchievement}
	case catalog.PaymentFree:
		return &model.DisallowedError{ItemID: it.ID, Reason: model.ReasonNotForSale}
	}
	if it.LimitedUntil > 0 && now > it.LimitedUntil {
		return &model.DisallowedError{ItemID: it.ID, Reason: model.ReasonLimitedTime}
	}
	if p.Level < it.LevelRequired {
		return &model.DisallowedError{ItemID: it.ID, Reason: model.ReasonLevelRequired}
	}
	if it.Stockpiled() && it.MaxStack > 0 {
		qty, err := r.Inventory.Qty(ctx, p.ChatID, p.UserID, it.ID)
		if err != nil {
			return err
		}
		if qty+1 > it.MaxStack {
			return &model.DisallowedError{ItemID: it.ID, Reason: model.ReasonMaxStack}
		}
	}
	return nil
}

// deliverTx gives a bought item to a locked player: +1 in the inventory for
// stockpiled items, the instant effect otherwise.
func deliverTx(ctx context.Context, r *repository.Repos, now int64, p *model.Player, it catalog.Item) (qty int, applied *Applied, err error) {
	if it.Stockpiled() {
		qty, err = r.Inventory.Grant(ctx, p.ChatID, p.UserID, it.ID, 1, now)
		return qty, nil, err
	}
	applied, err = applyEffectTx(ctx, r, now, p, it)
	return 0, applied, err
}

// PurchaseResult is the outcome of a successful purchase.
type PurchaseResult struct {
	Item     catalog.Item `json:"-"`
	ItemID   string       `json:"item_id"`
	Price    int64        `json:"price"`
	Currency string       `json:"currency"`
	Qty      int          `json:"qty"`
	Applied  *Applied     `json:"applied,omitempty"`
	Medals   int64        `json:"medals"`
	Stars    int64        `json:"stars"`
}

// purchaseTx debits the catalog price from a locked player, delivers the item
// and writes the purchase record. Any failure leaves the transaction to roll back.
func purchaseTx(ctx context.Context, r *repository.Repos, now int64, p *model.Player, it catalog.Item) (*PurchaseResult, error) {
	if err := checkPurchasable(ctx, r, now, p, it); err != nil {
		return nil, err
	}

	price, currency := catalog.Price(it)
	switch currency {
	case model.CurrencyStars:
		if p.Stars < price {
			return nil, &model.InsufficientBalanceError{Currency: currency, Needed: price, Have: p.Stars}
		}
		p.Stars -= price
	default:
		if p.Medals < price {
			return nil, &model.InsufficientBalanceError{Currency: currency, Needed: price, Have: p.Medals}
		}
		p.Medals -= price
	}
	p.LastActive = now
	if err := r.Players.Save(ctx, p); err != nil {
		return nil, err
	}

	qty, applied, err := deliverTx(ctx, r, now, p, it)
	if err != nil {
		return nil, err
	}

	if currency == model.CurrencyStars {
		err = r.Purchases.InsertStars(ctx, &model.StarsPurchase{
			ChatID: p.ChatID, UserID: p.UserID, ItemID: it.ID, Stars: price,
			PaymentID: "balance:" + uuid.NewString(), Status: model.StarsCompleted, CreatedAt: now,
		})
	} else {
		err = r.Purchases.Insert(ctx, &model.Purchase{
			ChatID: p.ChatID, UserID: p.UserID, ItemID: it.ID, Price: price, PurchasedAt: now,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record purchase: %w", err)
	}

	return &PurchaseResult{
		Item: it, ItemID: it.ID, Price: price, Currency: currency,
		Qty: qty, Applied: applied, Medals: p.Medals, Stars: p.Stars,
	}, nil
}
