package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"missile-bot/internal/catalog"
	"missile-bot/internal/model"
	"missile-bot/internal/payment"
	"missile-bot/internal/repository"
)

// StarsService runs the provider-paid stars checkout.
type StarsService struct {
	Deps
	codec *payment.Codec
}

// NewStarsService creates a new StarsService instance.
func NewStarsService(deps Deps, codec *payment.Codec) *StarsService {
	return &StarsService{Deps: deps, codec: codec}
}

// Invoice describes a stars invoice to send to the player.
type Invoice struct {
	Item    catalog.Item `json:"-"`
	ItemID  string       `json:"item_id"`
	Amount  int64        `json:"amount"`
	Payload string       `json:"payload"`
}

func (s *StarsService) starsItem(itemID string) (catalog.Item, error) {
	it, err := s.Catalog.Lookup(itemID)
	if err != nil {
		return catalog.Item{}, err
	}
	if it.Payment != catalog.PaymentStars {
		return catalog.Item{}, &model.DisallowedError{ItemID: itemID, Reason: model.ReasonWrongCurrency}
	}
	return it, nil
}

// Invoice checks the purchase gates and signs a payload for a stars item.
func (s *StarsService) Invoice(ctx context.Context, chatID, userID int64, itemID string) (*Invoice, error) {
	it, err := s.starsItem(itemID)
	if err != nil {
		return nil, err
	}
	err = s.read(ctx, func(r *repository.Repos, now int64) error {
		p, err := r.Players.Get(ctx, chatID, userID)
		if err != nil {
			return err
		}
		return checkPurchasable(ctx, r, now, p, it)
	})
	if err != nil {
		return nil, err
	}
	payload, err := s.codec.Encode(chatID, userID, it.ID, it.Price)
	if err != nil {
		return nil, err
	}
	return &Invoice{Item: it, ItemID: it.ID, Amount: it.Price, Payload: payload}, nil
}

func (s *StarsService) decode(payload string, amount int64) (*payment.Payload, catalog.Item, error) {
	p, err := s.codec.Decode(payload)
	if err != nil {
		return nil, catalog.Item{}, err
	}
	it, err := s.starsItem(p.ItemID)
	if err != nil {
		return nil, catalog.Item{}, err
	}
	if amount != p.Amount {
		return nil, catalog.Item{}, fmt.Errorf("%w: paid %d, invoiced %d", model.ErrInvalidAmount, amount, p.Amount)
	}
	return p, it, nil
}

// PreCheckout approves or rejects a checkout before the provider charges.
// Only the invoiced player may pay; payerID is the user paying.
func (s *StarsService) PreCheckout(ctx context.Context, payload string, payerID, amount int64) error {
	p, it, err := s.decode(payload, amount)
	if err != nil {
		return err
	}
	if payerID != p.UserID {
		return fmt.Errorf("%w: payer %d, invoiced %d", model.ErrForeignInvoice, payerID, p.UserID)
	}
	if amount != it.Price {
		return fmt.Errorf("%w: price is now %d", model.ErrInvalidAmount, it.Price)
	}
	return s.read(ctx, func(r *repository.Repos, now int64) error {
		if p.Expired(now) {
			return fmt.Errorf("%w: expired", model.ErrInvalidPayload)
		}
		player, err := r.Players.Get(ctx, p.ChatID, p.UserID)
		if err != nil {
			return err
		}
		return checkPurchasable(ctx, r, now, player, it)
	})
}

// StarsResult is the outcome of a completed stars payment.
type StarsResult struct {
	Purchase  *model.StarsPurchase `json:"purchase"`
	Qty       int                  `json:"qty"`
	Applied   *Applied             `json:"applied,omitempty"`
	Duplicate bool                 `json:"duplicate"`
}

// Completed delivers the paid item and records the payment in one
// transaction. A charge id seen before is acknowledged without a second grant.
func (s *StarsService) Completed(ctx context.Context, payload, chargeID string, amount int64) (*StarsResult, error) {
	if chargeID == "" {
		return nil, fmt.Errorf("%w: empty charge id", model.ErrInvalidPayload)
	}
	p, it, err := s.decode(payload, amount)
	if err != nil {
		return nil, err
	}

	var res *StarsResult
	err = s.inTx(ctx, func(r *repository.Repos, now int64) error {
		prev, err := r.Purchases.StarsByPaymentID(ctx, chargeID)
		switch {
		case err == nil:
			res = &StarsResult{Purchase: prev, Duplicate: true}
			return nil
		case !errors.Is(err, repository.ErrPaymentNotFound):
			return err
		}

		player, err := r.Players.GetForUpdate(ctx, p.ChatID, p.UserID)
		if err != nil {
			return err
		}
		qty, applied, err := deliverTx(ctx, r, now, player, it)
		if err != nil {
			return err
		}
		rec := &model.StarsPurchase{
			ChatID: p.ChatID, UserID: p.UserID, ItemID: it.ID, Stars: amount,
			PaymentID: chargeID, Status: model.StarsCompleted, CreatedAt: now,
		}
		if err := r.Purchases.InsertStars(ctx, rec); err != nil {
			return err
		}
		res = &StarsResult{Purchase: rec, Qty: qty, Applied: applied}
		return nil
	})
	if errors.Is(err, model.ErrDuplicatePayment) {
		log.Info().Str("payment_id", chargeID).Msg("Concurrent duplicate stars payment ignored")
		return &StarsResult{Duplicate: true}, nil
	}
	if err != nil {
		return nil, err
	}
	if !res.Duplicate {
		s.Metrics.Purchase(model.CurrencyStars)
		log.Info().
			Int64("chat_id", p.ChatID).
			Int64("user_id", p.UserID).
			Str("item_id", it.ID).
			Str("payment_id", chargeID).
			Int64("stars", amount).
			Msg("Stars payment completed")
	}
	return res, nil
}

// Refunded marks a completed stars payment as refunded. The delivered item is
// not clawed back.
func (s *StarsService) Refunded(ctx context.Context, chargeID string) error {
	return s.inTx(ctx, func(r *repository.Repos, now int64) error {
		if _, err := r.Purchases.StarsByPaymentID(ctx, chargeID); err != nil {
			return err
		}
		return r.Purchases.SetStarsStatus(ctx, chargeID, model.StarsRefunded, now)
	})
}
