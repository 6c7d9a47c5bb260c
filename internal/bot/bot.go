// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"missile-bot/internal/adapter"
	"missile-bot/internal/config"
	"missile-bot/internal/handler"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	accountHandler *handler.AccountHandler
	gameHandler    *handler.GameHandler
	shopHandler    *handler.ShopHandler
	rankingHandler *handler.RankingHandler
	adminHandler   *handler.AdminHandler
	paymentHandler *handler.PaymentHandler
}

// commands is the menu published to Telegram.
var commands = []tele.Command{
	{Text: "start", Description: "Join the game in this group"},
	{Text: "attack", Description: "Attack a player (reply or @user) [weapon]"},
	{Text: "shield", Description: "Activate a shield [item]"},
	{Text: "defend", Description: "Activate an intercept system [item]"},
	{Text: "use", Description: "Use an item from your inventory"},
	{Text: "daily", Description: "Claim your daily bonus"},
	{Text: "shop", Description: "Browse the shop"},
	{Text: "buy", Description: "Buy an item"},
	{Text: "balance", Description: "Show your medals and stars"},
	{Text: "status", Description: "Show your status"},
	{Text: "inventory", Description: "Show your items"},
	{Text: "top", Description: "Chat leaderboard"},
	{Text: "stats", Description: "Chat statistics"},
	{Text: "history", Description: "Recent hits"},
	{Text: "lang", Description: "Set the group language (en|fa)"},
}

// New creates the bot, tells the adapter its identity and registers handlers.
func New(cfg *config.Config, a *adapter.Adapter) (*Bot, error) {
	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  cfg.Bot.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Bot.PollerTimeout},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Telegram handler error")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	a.SetBot(teleBot.Me.ID, teleBot.Me.Username)

	b := &Bot{
		bot:            teleBot,
		cfg:            cfg,
		accountHandler: handler.NewAccountHandler(a),
		gameHandler:    handler.NewGameHandler(a),
		shopHandler:    handler.NewShopHandler(a),
		rankingHandler: handler.NewRankingHandler(a),
		adminHandler:   handler.NewAdminHandler(a),
		paymentHandler: handler.NewPaymentHandler(a),
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command, callback and payment handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/balance", b.accountHandler.HandleBalance)
	b.bot.Handle("/status", b.accountHandler.HandleStatus)
	b.bot.Handle("/inventory", b.accountHandler.HandleInventory)
	b.bot.Handle("/lang", b.accountHandler.HandleLanguage)

	b.bot.Handle("/attack", b.gameHandler.HandleAttack)
	b.bot.Handle("/shield", b.gameHandler.HandleShield)
	b.bot.Handle("/defend", b.gameHandler.HandleDefend)
	b.bot.Handle("/use", b.gameHandler.HandleUse)
	b.bot.Handle("/daily", b.gameHandler.HandleBonus)
	b.bot.Handle("/bonus", b.gameHandler.HandleBonus)

	b.bot.Handle("/shop", b.shopHandler.HandleShop)
	b.bot.Handle("/buy", b.shopHandler.HandleBuy)

	b.bot.Handle("/top", b.rankingHandler.HandleTop)
	b.bot.Handle("/stats", b.rankingHandler.HandleStats)
	b.bot.Handle("/history", b.rankingHandler.HandleHistory)

	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/grant", b.adminHandler.HandleGrant)
	adminGroup.Handle("/refund", b.adminHandler.HandleRefund)
	adminGroup.Handle("/reset", b.adminHandler.HandleResetCooldown)

	b.bot.Handle(tele.OnCheckout, b.paymentHandler.HandleCheckout)
	b.bot.Handle(tele.OnPayment, b.paymentHandler.HandlePayment)

	b.bot.Handle(tele.OnCallback, b.handleCallback)
	b.bot.Handle(tele.OnText, b.gameHandler.HandleMessage)
}

// handleCallback routes inline keyboard callbacks.
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}
	data := strings.TrimPrefix(callback.Data, "\f")
	log.Debug().Str("data", data).Msg("Callback received")

	if strings.HasPrefix(data, "shop_") {
		return b.shopHandler.HandleCallback(c)
	}
	return c.Respond()
}

// Start publishes the command menu and starts polling. It blocks until Stop.
func (b *Bot) Start() {
	if err := b.bot.SetCommands(commands); err != nil {
		log.Warn().Err(err).Msg("Failed to publish command menu")
	}
	log.Info().Str("username", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
