package handler

import (
	"context"
	"errors"
	"fmt"

	tele "gopkg.in/telebot.v3"

	"missile-bot/internal/adapter"
	"missile-bot/internal/model"
)

// AccountHandler handles registration and player info commands.
type AccountHandler struct {
	adapter *adapter.Adapter
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(a *adapter.Adapter) *AccountHandler {
	return &AccountHandler{adapter: a}
}

// HandleStart handles /start.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	return reply(c, func(ctx context.Context, ev *adapter.Event) (string, error) {
		res, err := h.adapter.Start(ctx, ev)
		if err != nil {
			return "", err
		}
		p := res.Player
		if !res.Created {
			return fmt.Sprintf("👋 Welcome back, %s! Level %d, %d medals, %d/%d hp.", p.Name(), p.Level, p.Medals, p.HP, p.MaxHP), nil
		}
		return fmt.Sprintf("🚀 Welcome to the battlefield, %s!\n"+
			"You start with %d medals and %d/%d hp.\n"+
			"/attack (reply or @user) to fire, /shield and /defend to protect yourself, /shop to gear up, /daily for free medals.",
			p.Name(), p.Medals, p.HP, p.MaxHP), nil
	})
}

// HandleBalance handles /balance.
func (h *AccountHandler) HandleBalance(c tele.Context) error {
	return reply(c, func(ctx context.Context, ev *adapter.Event) (string, error) {
		b, err := h.adapter.Balance(ctx, ev)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("🏅 %d medals\n🌟 %d stars", b.Medals, b.Stars), nil
	})
}

// HandleStatus handles /status.
func (h *AccountHandler) HandleStatus(c tele.Context) error {
	return reply(c, func(ctx context.Context, ev *adapter.Event) (string, error) {
		st, err := h.adapter.Status(ctx, ev)
		if err != nil {
			return "", err
		}
		return FormatStatus(st), nil
	})
}

// HandleInventory handles /inventory.
func (h *AccountHandler) HandleInventory(c tele.Context) error {
	return reply(c, func(ctx context.Context, ev *adapter.Event) (string, error) {
		items, err := h.adapter.Inventory(ctx, ev)
		if err != nil {
			return "", err
		}
		return FormatInventory(items, h.adapter.Catalog()), nil
	})
}

// HandleLanguage handles /lang <en|fa>.
func (h *AccountHandler) HandleLanguage(c tele.Context) error {
	return reply(c, func(ctx context.Context, ev *adapter.Event) (string, error) {
		if err := h.adapter.SetLanguage(ctx, ev); err != nil {
			if errors.Is(err, model.ErrInvalidPayload) {
				return "🌐 Usage: /lang en|fa", nil
			}
			return "", err
		}
		return "🌐 Language updated.", nil
	})
}
