package handler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"missile-bot/internal/adapter"
)

// PaymentHandler handles Telegram stars checkout updates.
type PaymentHandler struct {
	adapter *adapter.Adapter
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(a *adapter.Adapter) *PaymentHandler {
	return &PaymentHandler{adapter: a}
}

// HandleCheckout answers a pre-checkout query.
func (h *PaymentHandler) HandleCheckout(c tele.Context) error {
	q := c.PreCheckoutQuery()
	if q == nil {
		return nil
	}
	if err := h.adapter.PreCheckout(context.Background(), q.Payload, q.Sender.ID, int64(q.Total)); err != nil {
		log.Warn().Err(err).Int64("user_id", q.Sender.ID).Msg("Pre-checkout rejected")
		return c.Accept(FormatError(err))
	}
	return c.Accept()
}

// HandlePayment delivers the item for a successful payment.
func (h *PaymentHandler) HandlePayment(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Payment == nil {
		return nil
	}
	pay := msg.Payment
	res, err := h.adapter.PaymentCompleted(context.Background(), pay.Payload, pay.TelegramChargeID, int64(pay.Total))
	if err != nil {
		log.Error().Err(err).Str("charge_id", pay.TelegramChargeID).Msg("Failed to deliver paid item")
		return c.Send(FormatError(err))
	}
	if res.Duplicate {
		return nil
	}
	text := fmt.Sprintf("🌟 Payment received: %s is yours.", res.Purchase.ItemID)
	if res.Qty > 0 {
		text += fmt.Sprintf(" You now have %d.", res.Qty)
	}
	return c.Send(text)
}
