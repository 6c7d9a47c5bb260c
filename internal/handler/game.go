package handler

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v3"

	"missile-bot/internal/adapter"
)

// GameHandler handles combat, defense and consumable commands.
type GameHandler struct {
	adapter *adapter.Adapter
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(a *adapter.Adapter) *GameHandler {
	return &GameHandler{adapter: a}
}

// reply runs fn for the event in c and replies with its text or the rendered error.
func reply(c tele.Context, fn func(ctx context.Context, ev *adapter.Event) (string, error)) error {
	ev := EventFrom(c)
	if ev == nil {
		return nil
	}
	text, err := fn(context.Background(), ev)
	if err != nil {
		return c.Reply(FormatError(err))
	}
	if text == "" {
		return nil
	}
	return c.Reply(text)
}

// HandleAttack handles /attack [@user] [weapon], or a reply with /attack [weapon].
func (h *GameHandler) HandleAttack(c tele.Context) error {
	return reply(c, func(ctx context.Context, ev *adapter.Event) (string, error) {
		out, err := h.adapter.Attack(ctx, ev)
		if err != nil {
			return "", err
		}
		return FormatOutcome(out), nil
	})
}

// HandleShield handles /shield [item]: buys when needed and activates a shield.
func (h *GameHandler) HandleShield(c tele.Context) error {
	return reply(c, func(ctx context.Context, ev *adapter.Event) (string, error) {
		res, err := h.adapter.Shield(ctx, ev)
		if err != nil {
			return "", err
		}
		return FormatDefense(res), nil
	})
}

// HandleDefend handles /defend [item]: activates an owned intercept system.
func (h *GameHandler) HandleDefend(c tele.Context) error {
	return reply(c, func(ctx context.Context, ev *adapter.Event) (string, error) {
		res, err := h.adapter.Defend(ctx, ev)
		if err != nil {
			return "", err
		}
		return FormatDefense(res), nil
	})
}

// HandleUse handles /use <item>.
func (h *GameHandler) HandleUse(c tele.Context) error {
	return reply(c, func(ctx context.Context, ev *adapter.Event) (string, error) {
		res, err := h.adapter.Use(ctx, ev)
		if err != nil {
			return "", err
		}
		return FormatUse(res), nil
	})
}

// HandleBonus handles /daily and /bonus.
func (h *GameHandler) HandleBonus(c tele.Context) error {
	return reply(c, func(ctx context.Context, ev *adapter.Event) (string, error) {
		res, err := h.adapter.Bonus(ctx, ev)
		if err != nil {
			return "", err
		}
		msg := fmt.Sprintf("🎁 Daily bonus: +%d medals", res.Granted)
		if res.VIP {
			msg += " (VIP)"
		}
		msg += fmt.Sprintf(". Balance: %d.", res.Medals)
		if res.LevelUp {
			msg += "\n⬆️ Level up!"
		}
		return msg + fmt.Sprintf("\n⏱️ Next bonus in %s.", seconds(res.NextIn)), nil
	})
}

// HandleMessage credits activity for plain group messages.
func (h *GameHandler) HandleMessage(c tele.Context) error {
	if ev := EventFrom(c); ev != nil {
		h.adapter.Message(context.Background(), ev)
	}
	return nil
}
