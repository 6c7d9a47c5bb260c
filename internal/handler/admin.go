package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"missile-bot/internal/adapter"
	"missile-bot/internal/model"
)

// AdminHandler handles admin commands. Admin rights are checked by middleware.
type AdminHandler struct {
	adapter *adapter.Adapter
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(a *adapter.Adapter) *AdminHandler {
	return &AdminHandler{adapter: a}
}

// HandleGrant handles /grant [@user|reply] <medals|stars|item_id> <n>.
func (h *AdminHandler) HandleGrant(c tele.Context) error {
	return reply(c, func(ctx context.Context, ev *adapter.Event) (string, error) {
		if len(ev.Args) < 2 {
			return "Usage: /grant [@user] <medals|stars|item_id> <amount>", nil
		}
		g, err := h.adapter.Grant(ctx, ev)
		if err != nil {
			return "", err
		}
		log.Info().
			Int64("admin_id", ev.From.ID).
			Int64("target_id", g.TargetID).
			Str("what", g.What).
			Int64("amount", g.Amount).
			Msg("Admin grant")
		return fmt.Sprintf("✅ Granted %d %s to %d. New total: %d.", g.Amount, g.What, g.TargetID, g.Total), nil
	})
}

// HandleRefund handles /refund <charge_id>. It marks the payment refunded.
func (h *AdminHandler) HandleRefund(c tele.Context) error {
	args := c.Args()
	if len(args) != 1 {
		return c.Reply("Usage: /refund <telegram_charge_id>")
	}
	if err := h.adapter.PaymentRefunded(context.Background(), args[0]); err != nil {
		if errors.Is(err, model.ErrInvalidPayload) {
			return c.Reply("❓ No payment with that charge id.")
		}
		return c.Reply(FormatError(err))
	}
	log.Info().Int64("admin_id", c.Sender().ID).Str("charge_id", args[0]).Msg("Payment marked refunded")
	return c.Reply("✅ Payment marked as refunded.")
}

// HandleResetCooldown handles /reset [@user|reply] <action>.
func (h *AdminHandler) HandleResetCooldown(c tele.Context) error {
	return reply(c, func(ctx context.Context, ev *adapter.Event) (string, error) {
		target, action, err := h.adapter.ResetCooldown(ctx, ev)
		if err != nil {
			if errors.Is(err, model.ErrInvalidPayload) {
				return "Usage: /reset [@user] <attack|daily>", nil
			}
			return "", err
		}
		return fmt.Sprintf("✅ Cleared the %s cooldown of %d.", action, target), nil
	})
}
