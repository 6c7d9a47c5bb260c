package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"missile-bot/internal/adapter"
	"missile-bot/internal/catalog"
	"missile-bot/internal/service"
)

// Callback data prefixes.
const (
	CallbackShopBuy     = "shop_buy:"
	CallbackShopRefresh = "shop_refresh"
)

// ShopHandler handles the shop panel, purchases and stars invoices.
type ShopHandler struct {
	adapter *adapter.Adapter
}

// NewShopHandler creates a new ShopHandler.
func NewShopHandler(a *adapter.Adapter) *ShopHandler {
	return &ShopHandler{adapter: a}
}

// BuildShopPanel creates an inline keyboard with one buy button per item, two per row.
func BuildShopPanel(items []catalog.Item) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	var rows []tele.Row
	var current []tele.Btn
	for i, it := range items {
		current = append(current, markup.Data(FormatShopItem(it), CallbackShopBuy+it.ID))
		if len(current) == 2 || i == len(items)-1 {
			rows = append(rows, markup.Row(current...))
			current = nil
		}
	}
	rows = append(rows, markup.Row(markup.Data("🔄 Refresh", CallbackShopRefresh)))
	markup.Inline(rows...)
	return markup
}

func shopText(items []catalog.Item) string {
	if len(items) == 0 {
		return "🏪 Nothing for sale at your level yet."
	}
	return "🏪 Shop: tap an item to buy it, or use /buy <item_id>."
}

// HandleShop handles /shop.
func (h *ShopHandler) HandleShop(c tele.Context) error {
	ev := EventFrom(c)
	if ev == nil {
		return nil
	}
	items, err := h.adapter.Shop(context.Background(), ev)
	if err != nil {
		return c.Reply(FormatError(err))
	}
	return c.Reply(shopText(items), BuildShopPanel(items))
}

// HandleBuy handles /buy <item>.
func (h *ShopHandler) HandleBuy(c tele.Context) error {
	ev := EventFrom(c)
	if ev == nil {
		return nil
	}
	return h.buy(c, ev)
}

func (h *ShopHandler) buy(c tele.Context, ev *adapter.Event) error {
	out, err := h.adapter.Buy(context.Background(), ev)
	if err != nil {
		return c.Send(FormatError(err))
	}
	if out.Invoice != nil {
		return h.sendInvoice(c, out.Invoice)
	}
	return c.Send(FormatPurchase(out.Purchase))
}

// sendInvoice sends a stars invoice for the item.
func (h *ShopHandler) sendInvoice(c tele.Context, inv *service.Invoice) error {
	it := inv.Item
	invoice := &tele.Invoice{
		Title:       strings.TrimSpace(it.Emoji + " " + it.Name),
		Description: fmt.Sprintf("%s for %d stars", it.Name, inv.Amount),
		Payload:     inv.Payload,
		Currency:    "XTR",
		Prices:      []tele.Price{{Label: it.Name, Amount: int(inv.Amount)}},
	}
	if _, err := c.Bot().Send(c.Recipient(), invoice); err != nil {
		log.Error().Err(err).Str("item_id", it.ID).Msg("Failed to send invoice")
		return c.Send(FormatError(err))
	}
	return nil
}

// HandleCallback handles shop keyboard buttons.
func (h *ShopHandler) HandleCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	data := strings.TrimPrefix(cb.Data, "\f")
	ev := EventFrom(c)
	if ev == nil {
		return c.Respond()
	}
	ev.ReplyTo = nil

	switch {
	case data == CallbackShopRefresh:
		items, err := h.adapter.Shop(context.Background(), ev)
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: FormatError(err)})
		}
		_ = c.Respond()
		return c.Edit(shopText(items), BuildShopPanel(items))
	case strings.HasPrefix(data, CallbackShopBuy):
		ev.Args = []string{strings.TrimPrefix(data, CallbackShopBuy)}
		_ = c.Respond()
		return h.buy(c, ev)
	}
	return c.Respond()
}
