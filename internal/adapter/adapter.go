// Package adapter turns transport events into core operations. It owns the
// boundary rules: group-only gameplay, per-user throttling, target
// resolution and argument parsing.
package adapter

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"missile-bot/internal/catalog"
	"missile-bot/internal/core"
	"missile-bot/internal/game/combat"
	"missile-bot/internal/metrics"
	"missile-bot/internal/model"
	"missile-bot/internal/service"
)

// Core is the operation set the adapter drives.
type Core interface {
	Catalog() *catalog.Catalog
	DefaultWeapon() string
	Start(ctx context.Context, id core.Identity) (*core.StartResult, error)
	SetLanguage(ctx context.Context, chatID int64, lang string) error
	FindPlayer(ctx context.Context, chatID int64, username string) (*model.Player, error)
	Attack(ctx context.Context, chatID, attackerID, targetID int64, weaponID string) (*combat.Outcome, error)
	Shield(ctx context.Context, chatID, userID int64, itemID string) (*service.DefenseResult, error)
	Defend(ctx context.Context, chatID, userID int64, itemID string) (*service.DefenseResult, error)
	Use(ctx context.Context, chatID, userID int64, itemID string) (*service.UseResult, error)
	Bonus(ctx context.Context, chatID, userID int64) (*service.DailyResult, error)
	Balance(ctx context.Context, chatID, userID int64) (medals, stars int64, err error)
	Purchase(ctx context.Context, chatID, userID int64, itemID string) (*core.PurchaseOutcome, error)
	StarsPreCheckout(ctx context.Context, payload string, payerID, amount int64) error
	StarsCompleted(ctx context.Context, payload, chargeID string, amount int64) (*service.StarsResult, error)
	StarsRefunded(ctx context.Context, chargeID string) error
	Leaderboard(ctx context.Context, chatID int64, limit int) ([]model.LeaderboardEntry, error)
	Status(ctx context.Context, chatID, userID int64) (*core.Status, error)
	Inventory(ctx context.Context, chatID, userID int64) (map[string]int, error)
	ChatStats(ctx context.Context, chatID int64) (*model.ChatStats, error)
	RecentAttacks(ctx context.Context, chatID int64, limit int) ([]model.AttackRecord, error)
	CreditMessage(ctx context.Context, chatID, userID int64) (*service.CreditResult, error)
	GrantCurrency(ctx context.Context, chatID, userID int64, currency string, amount int64) (int64, error)
	GrantItem(ctx context.Context, chatID, userID int64, itemID string, n int) (int, error)
	ResetCooldown(ctx context.Context, chatID, userID int64, action string) error
}

// User is a Telegram user as seen by the adapter.
type User struct {
	ID          int64
	DisplayName string
	Username    string
	IsBot       bool
}

// Event is one inbound command or message.
type Event struct {
	RequestID string
	ChatID    int64
	ChatTitle string
	Private   bool
	From      User
	Args      []string
	// ReplyTo is the author of the message the command replied to.
	ReplyTo *User
}

// Adapter applies the boundary rules and calls Core.
type Adapter struct {
	core        Core
	limiter     *Limiter
	messages    *Limiter
	metrics     *metrics.Metrics
	botUserID   int64
	botUsername string
}

// Options configures an Adapter.
type Options struct {
	Limiter *Limiter
	// MessageLimiter throttles activity credit for plain group messages,
	// separately from commands.
	MessageLimiter *Limiter
	Metrics        *metrics.Metrics
	BotUserID      int64
	BotUsername    string
}

// New creates an Adapter.
func New(c Core, opts Options) *Adapter {
	if opts.Limiter == nil {
		opts.Limiter = NewLimiter(20, 5)
	}
	if opts.MessageLimiter == nil {
		opts.MessageLimiter = NewLimiter(6, 2)
	}
	return &Adapter{
		core:        c,
		limiter:     opts.Limiter,
		messages:    opts.MessageLimiter,
		metrics:     opts.Metrics,
		botUserID:   opts.BotUserID,
		botUsername: strings.TrimPrefix(opts.BotUsername, "@"),
	}
}

// Limiter returns the per-user throttle.
func (a *Adapter) Limiter() *Limiter {
	return a.limiter
}

// MessageLimiter returns the per-user throttle for message credit.
func (a *Adapter) MessageLimiter() *Limiter {
	return a.messages
}

// Catalog returns the item catalog.
func (a *Adapter) Catalog() *catalog.Catalog {
	return a.core.Catalog()
}

// SetBot records the bot's own identity once the transport knows it.
func (a *Adapter) SetBot(userID int64, username string) {
	a.botUserID = userID
	a.botUsername = strings.TrimPrefix(username, "@")
}

func (ev *Event) identity() core.Identity {
	return core.Identity{
		ChatID:      ev.ChatID,
		ChatTitle:   ev.ChatTitle,
		UserID:      ev.From.ID,
		DisplayName: ev.From.DisplayName,
		Username:    ev.From.Username,
	}
}

func (ev *Event) arg(i int) string {
	if i < len(ev.Args) {
		return ev.Args[i]
	}
	return ""
}

// guard rejects private chats and throttled users, then upserts the sender
// so names stay fresh and registration is implicit.
func (a *Adapter) guard(ctx context.Context, ev *Event, op string) error {
	if ev.RequestID == "" {
		ev.RequestID = uuid.NewString()
	}
	log.Debug().
		Str("request_id", ev.RequestID).
		Str("op", op).
		Int64("chat_id", ev.ChatID).
		Int64("user_id", ev.From.ID).
		Msg("Adapter event")

	if ev.Private {
		return model.ErrPrivateChat
	}
	if !a.limiter.Allow(ev.From.ID) {
		a.metrics.Throttled()
		log.Warn().Int64("user_id", ev.From.ID).Str("op", op).Msg("User throttled")
		return model.ErrRateLimited
	}
	if _, err := a.core.Start(ctx, ev.identity()); err != nil {
		return err
	}
	return nil
}

// Start registers the sender.
func (a *Adapter) Start(ctx context.Context, ev *Event) (*core.StartResult, error) {
	if ev.Private {
		return nil, model.ErrPrivateChat
	}
	if !a.limiter.Allow(ev.From.ID) {
		a.metrics.Throttled()
		return nil, model.ErrRateLimited
	}
	return a.core.Start(ctx, ev.identity())
}

// isBot reports whether a user is this bot or any bot account.
func (a *Adapter) isBot(u *User) bool {
	if u.IsBot {
		return true
	}
	if a.botUserID != 0 && u.ID == a.botUserID {
		return true
	}
	return a.botUsername != "" && strings.EqualFold(strings.TrimPrefix(u.Username, "@"), a.botUsername)
}

// ResolveTarget finds the attack target: the author of the replied-to
// message, else the first @username argument. The remaining arguments are
// returned for further parsing.
func (a *Adapter) ResolveTarget(ctx context.Context, ev *Event) (targetID int64, rest []string, err error) {
	if ev.ReplyTo != nil {
		if a.isBot(ev.ReplyTo) || ev.ReplyTo.ID == ev.From.ID {
			return 0, ev.Args, model.ErrIneligibleTarget
		}
		return ev.ReplyTo.ID, ev.Args, nil
	}
	for i, arg := range ev.Args {
		if !strings.HasPrefix(arg, "@") || len(arg) < 2 {
			continue
		}
		rest = append(append(rest, ev.Args[:i]...), ev.Args[i+1:]...)
		if a.isBot(&User{Username: arg}) {
			return 0, rest, model.ErrIneligibleTarget
		}
		p, err := a.core.FindPlayer(ctx, ev.ChatID, arg)
		if err != nil {
			return 0, rest, err
		}
		if p.UserID == ev.From.ID {
			return 0, rest, model.ErrIneligibleTarget
		}
		return p.UserID, rest, nil
	}
	return 0, ev.Args, model.ErrIneligibleTarget
}

// Attack fires at the resolved target with the named weapon or the default one.
func (a *Adapter) Attack(ctx context.Context, ev *Event) (*combat.Outcome, error) {
	if err := a.guard(ctx, ev, "attack"); err != nil {
		return nil, err
	}
	target, rest, err := a.ResolveTarget(ctx, ev)
	if err != nil {
		return nil, err
	}
	weapon := a.core.DefaultWeapon()
	if len(rest) > 0 {
		weapon = strings.ToLower(rest[0])
	}
	return a.core.Attack(ctx, ev.ChatID, ev.From.ID, target, weapon)
}

// Shield activates (buying if needed) a shield.
func (a *Adapter) Shield(ctx context.Context, ev *Event) (*service.DefenseResult, error) {
	if err := a.guard(ctx, ev, "shield"); err != nil {
		return nil, err
	}
	return a.core.Shield(ctx, ev.ChatID, ev.From.ID, strings.ToLower(ev.arg(0)))
}

// Defend activates an intercept from the inventory.
func (a *Adapter) Defend(ctx context.Context, ev *Event) (*service.DefenseResult, error) {
	if err := a.guard(ctx, ev, "defend"); err != nil {
		return nil, err
	}
	return a.core.Defend(ctx, ev.ChatID, ev.From.ID, strings.ToLower(ev.arg(0)))
}

// Use consumes an item.
func (a *Adapter) Use(ctx context.Context, ev *Event) (*service.UseResult, error) {
	if err := a.guard(ctx, ev, "use"); err != nil {
		return nil, err
	}
	if ev.arg(0) == "" {
		return nil, model.ErrUnknownItem
	}
	return a.core.Use(ctx, ev.ChatID, ev.From.ID, strings.ToLower(ev.arg(0)))
}

// Bonus claims the daily bonus.
func (a *Adapter) Bonus(ctx context.Context, ev *Event) (*service.DailyResult, error) {
	if err := a.guard(ctx, ev, "bonus"); err != nil {
		return nil, err
	}
	return a.core.Bonus(ctx, ev.ChatID, ev.From.ID)
}

// Buy purchases an item.
func (a *Adapter) Buy(ctx context.Context, ev *Event) (*core.PurchaseOutcome, error) {
	if err := a.guard(ctx, ev, "buy"); err != nil {
		return nil, err
	}
	if ev.arg(0) == "" {
		return nil, model.ErrUnknownItem
	}
	return a.core.Purchase(ctx, ev.ChatID, ev.From.ID, strings.ToLower(ev.arg(0)))
}

// Balance is the sender's medals and stars.
type Balance struct {
	Medals int64 `json:"medals"`
	Stars  int64 `json:"stars"`
}

// Balance returns the sender's balances.
func (a *Adapter) Balance(ctx context.Context, ev *Event) (*Balance, error) {
	if err := a.guard(ctx, ev, "balance"); err != nil {
		return nil, err
	}
	m, s, err := a.core.Balance(ctx, ev.ChatID, ev.From.ID)
	if err != nil {
		return nil, err
	}
	return &Balance{Medals: m, Stars: s}, nil
}

// Status returns the sender's status.
func (a *Adapter) Status(ctx context.Context, ev *Event) (*core.Status, error) {
	if err := a.guard(ctx, ev, "status"); err != nil {
		return nil, err
	}
	return a.core.Status(ctx, ev.ChatID, ev.From.ID)
}

// Inventory returns the sender's items.
func (a *Adapter) Inventory(ctx context.Context, ev *Event) (map[string]int, error) {
	if err := a.guard(ctx, ev, "inventory"); err != nil {
		return nil, err
	}
	return a.core.Inventory(ctx, ev.ChatID, ev.From.ID)
}

// Leaderboard returns the chat's top players; the first argument is the size.
func (a *Adapter) Leaderboard(ctx context.Context, ev *Event) ([]model.LeaderboardEntry, error) {
	if err := a.guard(ctx, ev, "leaderboard"); err != nil {
		return nil, err
	}
	limit, _ := strconv.Atoi(ev.arg(0))
	return a.core.Leaderboard(ctx, ev.ChatID, limit)
}

// ChatStats aggregates the chat.
func (a *Adapter) ChatStats(ctx context.Context, ev *Event) (*model.ChatStats, error) {
	if err := a.guard(ctx, ev, "chat_stats"); err != nil {
		return nil, err
	}
	return a.core.ChatStats(ctx, ev.ChatID)
}

// History returns the chat's latest hits.
func (a *Adapter) History(ctx context.Context, ev *Event) ([]model.AttackRecord, error) {
	if err := a.guard(ctx, ev, "history"); err != nil {
		return nil, err
	}
	limit, _ := strconv.Atoi(ev.arg(0))
	return a.core.RecentAttacks(ctx, ev.ChatID, limit)
}

// Shop lists the items purchasable at the sender's level.
func (a *Adapter) Shop(ctx context.Context, ev *Event) ([]catalog.Item, error) {
	if err := a.guard(ctx, ev, "shop"); err != nil {
		return nil, err
	}
	st, err := a.core.Status(ctx, ev.ChatID, ev.From.ID)
	if err != nil {
		return nil, err
	}
	var out []catalog.Item
	for _, it := range a.core.Catalog().Available() {
		if it.LevelRequired <= st.Player.Level {
			out = append(out, it)
		}
	}
	return out, nil
}

// SetLanguage changes the group language.
func (a *Adapter) SetLanguage(ctx context.Context, ev *Event) error {
	if err := a.guard(ctx, ev, "language"); err != nil {
		return err
	}
	return a.core.SetLanguage(ctx, ev.ChatID, strings.ToLower(ev.arg(0)))
}

// Message credits activity for an ordinary group message. Unregistered
// senders and throttled users are ignored silently.
func (a *Adapter) Message(ctx context.Context, ev *Event) {
	if ev.Private || ev.From.IsBot {
		return
	}
	if !a.messages.Allow(ev.From.ID) {
		a.metrics.Throttled()
		return
	}
	_, err := a.core.CreditMessage(ctx, ev.ChatID, ev.From.ID)
	if err != nil && !errors.Is(err, model.ErrNotRegistered) {
		log.Debug().Err(err).Int64("user_id", ev.From.ID).Msg("Message credit failed")
	}
}

// Grant is the admin grant: /grant <@user|reply> <medals|stars|item_id> <n>.
type Grant struct {
	TargetID int64  `json:"target_id"`
	What     string `json:"what"`
	Amount   int64  `json:"amount"`
	Total    int64  `json:"total"`
}

// Grant credits currency or items to a target. The caller checks admin rights.
func (a *Adapter) Grant(ctx context.Context, ev *Event) (*Grant, error) {
	if err := a.guard(ctx, ev, "grant"); err != nil {
		return nil, err
	}
	target, rest, err := a.ResolveTarget(ctx, ev)
	if errors.Is(err, model.ErrIneligibleTarget) && ev.ReplyTo == nil && !hasMention(ev.Args) {
		target, rest, err = ev.From.ID, ev.Args, nil
	}
	if err != nil {
		return nil, err
	}
	if len(rest) < 2 {
		return nil, model.ErrInvalidAmount
	}
	what := strings.ToLower(rest[0])
	n, err := strconv.ParseInt(rest[1], 10, 64)
	if err != nil || n <= 0 {
		return nil, model.ErrInvalidAmount
	}

	g := &Grant{TargetID: target, What: what, Amount: n}
	switch what {
	case model.CurrencyMedals, model.CurrencyStars:
		g.Total, err = a.core.GrantCurrency(ctx, ev.ChatID, target, what, n)
	default:
		var qty int
		qty, err = a.core.GrantItem(ctx, ev.ChatID, target, what, int(n))
		g.Total = int64(qty)
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// ResetCooldown clears a cooldown for a target (or the sender): /reset [@user|reply] <action>.
// The caller checks admin rights.
func (a *Adapter) ResetCooldown(ctx context.Context, ev *Event) (targetID int64, action string, err error) {
	if err := a.guard(ctx, ev, "reset_cooldown"); err != nil {
		return 0, "", err
	}
	target, rest, err := a.ResolveTarget(ctx, ev)
	if errors.Is(err, model.ErrIneligibleTarget) && ev.ReplyTo == nil && !hasMention(ev.Args) {
		target, rest, err = ev.From.ID, ev.Args, nil
	}
	if err != nil {
		return 0, "", err
	}
	if len(rest) < 1 {
		return 0, "", model.ErrInvalidPayload
	}
	action = strings.ToLower(rest[0])
	return target, action, a.core.ResetCooldown(ctx, ev.ChatID, target, action)
}

func hasMention(args []string) bool {
	for _, a := range args {
		if strings.HasPrefix(a, "@") {
			return true
		}
	}
	return false
}

// PreCheckout validates a stars checkout. It may arrive from a private chat.
func (a *Adapter) PreCheckout(ctx context.Context, payload string, payerID, amount int64) error {
	return a.core.StarsPreCheckout(ctx, payload, payerID, amount)
}

// PaymentCompleted delivers a paid stars item.
func (a *Adapter) PaymentCompleted(ctx context.Context, payload, chargeID string, amount int64) (*service.StarsResult, error) {
	return a.core.StarsCompleted(ctx, payload, chargeID, amount)
}

// PaymentRefunded marks a stars payment refunded.
func (a *Adapter) PaymentRefunded(ctx context.Context, chargeID string) error {
	return a.core.StarsRefunded(ctx, chargeID)
}
