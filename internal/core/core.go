// Package core is the game state engine the transport talks to. Every
// operation takes (chat, user, ...) and returns a structured result or a
// typed error; none of them produce user-facing text.
package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"missile-bot/internal/catalog"
	"missile-bot/internal/game/combat"
	"missile-bot/internal/game/progression"
	"missile-bot/internal/metrics"
	"missile-bot/internal/model"
	"missile-bot/internal/payment"
	"missile-bot/internal/pkg/clock"
	"missile-bot/internal/pkg/db"
	"missile-bot/internal/pkg/lock"
	"missile-bot/internal/repository"
	"missile-bot/internal/service"
)

// Config holds the registration defaults and default defense items.
type Config struct {
	StartMedals      int64
	StartHP          int
	StartMaxHP       int
	DefaultShield    string
	DefaultIntercept string

	// MessageCreditInterval is the minimum gap between two message credits
	// for one player. Negative disables the gap.
	MessageCreditInterval time.Duration
}

// Options are everything New needs.
type Options struct {
	Pool    *db.Pool
	Clock   clock.Clock
	Catalog *catalog.Catalog
	Metrics *metrics.Metrics
	Codec   *payment.Codec
	Dice    combat.Dice
	Locks   *lock.PlayerLock

	Combat  combat.Config
	Economy service.EconomyConfig
	Config  Config
}

// Core bundles the services behind the operation set.
type Core struct {
	pool    *db.Pool
	clock   clock.Clock
	catalog *catalog.Catalog
	metrics *metrics.Metrics
	cfg     Config

	combat    *combat.Service
	economy   *service.EconomyService
	effects   *service.EffectService
	cooldowns *service.CooldownService
	inventory *service.InventoryService
	ranking   *service.RankingService
	stars     *service.StarsService
}

// New wires a Core.
func New(opts Options) *Core {
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Config.DefaultShield == "" {
		opts.Config.DefaultShield = catalog.ItemAegis
	}
	if opts.Config.DefaultIntercept == "" {
		opts.Config.DefaultIntercept = catalog.ItemIronDome
	}
	if opts.Config.MessageCreditInterval == 0 {
		opts.Config.MessageCreditInterval = time.Minute
	}
	if opts.Config.StartMaxHP == 0 {
		opts.Config.StartMaxHP = 100
		opts.Config.StartHP = 100
	}

	deps := service.Deps{Pool: opts.Pool, Clock: opts.Clock, Catalog: opts.Catalog, Metrics: opts.Metrics}
	return &Core{
		pool:    opts.Pool,
		clock:   opts.Clock,
		catalog: opts.Catalog,
		metrics: opts.Metrics,
		cfg:     opts.Config,
		combat: combat.NewService(combat.Deps{
			Pool:    opts.Pool,
			Clock:   opts.Clock,
			Catalog: opts.Catalog,
			Dice:    opts.Dice,
			Locks:   opts.Locks,
			Metrics: opts.Metrics,
		}, opts.Combat),
		economy:   service.NewEconomyService(deps, opts.Economy),
		effects:   service.NewEffectService(deps),
		cooldowns: service.NewCooldownService(deps),
		inventory: service.NewInventoryService(deps),
		ranking:   service.NewRankingService(deps),
		stars:     service.NewStarsService(deps, opts.Codec),
	}
}

// Catalog returns the item catalog.
func (c *Core) Catalog() *catalog.Catalog {
	return c.catalog
}

// DefaultWeapon returns the weapon used when an attack names none.
func (c *Core) DefaultWeapon() string {
	return c.combat.DefaultWeapon()
}

func (c *Core) observe(op string, err error) error {
	if err == nil {
		return nil
	}
	kind := ErrorKind(err)
	c.metrics.OperationError(op, kind)
	switch kind {
	case KindInternal, KindInvariantViolation:
		log.Error().Err(err).Str("op", op).Msg("Core operation failed")
	case KindTransientIO, KindConflict:
		log.Warn().Err(err).Str("op", op).Msg("Core operation failed")
	}
	return err
}

// query runs fn outside a transaction with the store's transient-error retries.
func (c *Core) query(ctx context.Context, fn func(r *repository.Repos) error) error {
	return c.pool.Run(ctx, func(q db.DBTX) error {
		return fn(repository.New(q))
	})
}

func (c *Core) player(ctx context.Context, chatID, userID int64) (*model.Player, error) {
	var p *model.Player
	err := c.query(ctx, func(r *repository.Repos) error {
		var err error
		p, err = r.Players.Get(ctx, chatID, userID)
		return err
	})
	return p, err
}

// Identity is who sent an event and where.
type Identity struct {
	ChatID      int64
	ChatTitle   string
	UserID      int64
	DisplayName string
	Username    string
}

// StartResult is the outcome of a registration.
type StartResult struct {
	Player  *model.Player `json:"player"`
	Created bool          `json:"created"`
}

// Start registers the player in the group, or refreshes the names of an
// existing one. Group and player are written in one transaction.
func (c *Core) Start(ctx context.Context, id Identity) (*StartResult, error) {
	var res StartResult
	err := c.pool.RunInTx(ctx, func(tx pgx.Tx) error {
		r := repository.New(tx)
		now := c.clock.Now()
		if _, err := r.Groups.Upsert(ctx, id.ChatID, id.ChatTitle, now); err != nil {
			return err
		}
		var username *string
		if u := strings.TrimPrefix(id.Username, "@"); u != "" {
			username = &u
		}
		p, created, err := r.Players.Upsert(ctx, repository.NewPlayer{
			ChatID:      id.ChatID,
			UserID:      id.UserID,
			DisplayName: id.DisplayName,
			Username:    username,
			Medals:      c.cfg.StartMedals,
			HP:          c.cfg.StartHP,
			MaxHP:       c.cfg.StartMaxHP,
			Now:         now,
		})
		res = StartResult{Player: p, Created: created}
		return err
	})
	if err != nil {
		return nil, c.observe("start", err)
	}
	if res.Created {
		log.Info().Int64("chat_id", id.ChatID).Int64("user_id", id.UserID).Msg("Player registered")
	}
	return &res, nil
}

// SetLanguage changes a group's default language.
func (c *Core) SetLanguage(ctx context.Context, chatID int64, lang string) error {
	if lang != model.LangEN && lang != model.LangFA {
		return c.observe("language", model.ErrInvalidPayload)
	}
	err := c.query(ctx, func(r *repository.Repos) error {
		return r.Groups.SetLanguage(ctx, chatID, lang, c.clock.Now())
	})
	return c.observe("language", err)
}

// FindPlayer resolves @username inside a chat.
func (c *Core) FindPlayer(ctx context.Context, chatID int64, username string) (*model.Player, error) {
	var p *model.Player
	err := c.query(ctx, func(r *repository.Repos) error {
		var err error
		p, err = r.Players.FindByUsername(ctx, chatID, strings.TrimPrefix(username, "@"))
		return err
	})
	if err != nil {
		if errors.Is(err, model.ErrNotRegistered) {
			return nil, model.ErrIneligibleTarget
		}
		return nil, c.observe("find_player", err)
	}
	return p, nil
}

// Attack fires weaponID (the default weapon when empty) at target.
func (c *Core) Attack(ctx context.Context, chatID, attackerID, targetID int64, weaponID string) (*combat.Outcome, error) {
	out, err := c.combat.Attack(ctx, chatID, attackerID, targetID, weaponID)
	return out, c.observe("attack", err)
}

func (c *Core) defense(ctx context.Context, op string, chatID, userID int64, itemID string, want catalog.Kind, buy bool) (*service.DefenseResult, error) {
	it, err := c.catalog.Lookup(itemID)
	if err != nil {
		return nil, c.observe(op, err)
	}
	if it.Kind != want {
		return nil, c.observe(op, &model.DisallowedError{ItemID: itemID, Reason: model.ReasonNotUsable})
	}
	res, err := c.effects.ActivateDefense(ctx, chatID, userID, itemID, buy)
	return res, c.observe(op, err)
}

// Shield activates a shield, buying it first when none is held.
func (c *Core) Shield(ctx context.Context, chatID, userID int64, itemID string) (*service.DefenseResult, error) {
	if itemID == "" {
		itemID = c.cfg.DefaultShield
	}
	return c.defense(ctx, "shield", chatID, userID, itemID, catalog.KindShield, true)
}

// Defend activates an intercept system from the inventory.
func (c *Core) Defend(ctx context.Context, chatID, userID int64, itemID string) (*service.DefenseResult, error) {
	if itemID == "" {
		itemID = c.cfg.DefaultIntercept
	}
	return c.defense(ctx, "defend", chatID, userID, itemID, catalog.KindIntercept, false)
}

// Use consumes a utility, boost or arsenal item.
func (c *Core) Use(ctx context.Context, chatID, userID int64, itemID string) (*service.UseResult, error) {
	res, err := c.effects.Use(ctx, chatID, userID, itemID)
	return res, c.observe("use", err)
}

// Bonus claims the daily bonus.
func (c *Core) Bonus(ctx context.Context, chatID, userID int64) (*service.DailyResult, error) {
	res, err := c.economy.DailyBonus(ctx, chatID, userID)
	return res, c.observe("bonus", err)
}

// Balance returns medals and stars.
func (c *Core) Balance(ctx context.Context, chatID, userID int64) (medals, stars int64, err error) {
	medals, stars, err = c.economy.Balance(ctx, chatID, userID)
	return medals, stars, c.observe("balance", err)
}

// PurchaseOutcome is either a completed purchase or, for a stars item the
// player cannot cover from their star balance, an invoice to pay.
type PurchaseOutcome struct {
	Purchase *service.PurchaseResult `json:"purchase,omitempty"`
	Invoice  *service.Invoice        `json:"invoice,omitempty"`
}

// Purchase buys one unit of an item.
func (c *Core) Purchase(ctx context.Context, chatID, userID int64, itemID string) (*PurchaseOutcome, error) {
	res, err := c.economy.Purchase(ctx, chatID, userID, itemID)
	if err == nil {
		return &PurchaseOutcome{Purchase: res}, nil
	}
	var insufficient *model.InsufficientBalanceError
	if errors.As(err, &insufficient) && insufficient.Currency == model.CurrencyStars {
		inv, err := c.stars.Invoice(ctx, chatID, userID, itemID)
		if err != nil {
			return nil, c.observe("purchase", err)
		}
		return &PurchaseOutcome{Invoice: inv}, nil
	}
	return nil, c.observe("purchase", err)
}

// StarsInvoice signs an invoice payload for a stars item.
func (c *Core) StarsInvoice(ctx context.Context, chatID, userID int64, itemID string) (*service.Invoice, error) {
	inv, err := c.stars.Invoice(ctx, chatID, userID, itemID)
	return inv, c.observe("stars_invoice", err)
}

// StarsPreCheckout approves or rejects a pending stars checkout.
func (c *Core) StarsPreCheckout(ctx context.Context, payload string, payerID, amount int64) error {
	return c.observe("stars_pre_checkout", c.stars.PreCheckout(ctx, payload, payerID, amount))
}

// StarsCompleted delivers a paid item. Replays of a charge id are no-ops.
func (c *Core) StarsCompleted(ctx context.Context, payload, chargeID string, amount int64) (*service.StarsResult, error) {
	res, err := c.stars.Completed(ctx, payload, chargeID, amount)
	return res, c.observe("stars_completed", err)
}

// StarsRefunded marks a stars payment refunded.
func (c *Core) StarsRefunded(ctx context.Context, chargeID string) error {
	return c.observe("stars_refunded", c.stars.Refunded(ctx, chargeID))
}

// Leaderboard returns the top players of a chat.
func (c *Core) Leaderboard(ctx context.Context, chatID int64, limit int) ([]model.LeaderboardEntry, error) {
	entries, err := c.ranking.Leaderboard(ctx, chatID, limit)
	return entries, c.observe("leaderboard", err)
}

// Status is a player's full state.
type Status struct {
	Player         *model.Player        `json:"player"`
	Rank           int64                `json:"rank"`
	Defense        *model.ActiveDefense `json:"defense,omitempty"`
	Boosts         []model.ActiveBoost  `json:"boosts"`
	AttackCooldown int64                `json:"attack_cooldown"`
	DailyCooldown  int64                `json:"daily_cooldown"`
	NextLevelScore int64                `json:"next_level_score"`
}

// Status returns the player with rank, defense, boosts and cooldowns.
func (c *Core) Status(ctx context.Context, chatID, userID int64) (*Status, error) {
	st, err := c.status(ctx, chatID, userID)
	return st, c.observe("status", err)
}

func (c *Core) status(ctx context.Context, chatID, userID int64) (*Status, error) {
	p, err := c.player(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	st := &Status{Player: p, NextLevelScore: progression.ScoreForLevel(p.Level + 1)}
	if st.Rank, err = c.ranking.Rank(ctx, chatID, userID); err != nil {
		return nil, err
	}
	if st.Defense, err = c.effects.ActiveDefense(ctx, chatID, userID); err != nil {
		return nil, err
	}
	if st.Boosts, err = c.effects.ActiveBoosts(ctx, chatID, userID); err != nil {
		return nil, err
	}
	if st.AttackCooldown, err = c.cooldowns.Check(ctx, chatID, userID, model.ActionAttack); err != nil {
		return nil, err
	}
	if st.DailyCooldown, err = c.cooldowns.Check(ctx, chatID, userID, model.ActionDaily); err != nil {
		return nil, err
	}
	return st, nil
}

// Inventory returns a registered player's item stacks.
func (c *Core) Inventory(ctx context.Context, chatID, userID int64) (map[string]int, error) {
	if _, err := c.player(ctx, chatID, userID); err != nil {
		return nil, c.observe("inventory", err)
	}
	items, err := c.inventory.List(ctx, chatID, userID)
	return items, c.observe("inventory", err)
}

// ChatStats aggregates a chat.
func (c *Core) ChatStats(ctx context.Context, chatID int64) (*model.ChatStats, error) {
	stats, err := c.ranking.ChatStats(ctx, chatID)
	return stats, c.observe("chat_stats", err)
}

// RecentAttacks returns the latest hits in a chat.
func (c *Core) RecentAttacks(ctx context.Context, chatID int64, limit int) ([]model.AttackRecord, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}
	var recs []model.AttackRecord
	err := c.query(ctx, func(r *repository.Repos) error {
		var err error
		recs, err = r.Attacks.Recent(ctx, chatID, limit)
		return err
	})
	return recs, c.observe("recent_attacks", err)
}

// CreditMessage awards the message activity score, at most once per
// MessageCreditInterval. A skipped credit returns nil, nil.
func (c *Core) CreditMessage(ctx context.Context, chatID, userID int64) (*service.CreditResult, error) {
	res, err := c.ranking.CreditMessage(ctx, chatID, userID, c.cfg.MessageCreditInterval)
	if errors.Is(err, model.ErrNotRegistered) {
		return nil, err
	}
	return res, c.observe("credit_message", err)
}

// SweepReport counts the rows one sweep purged.
type SweepReport struct {
	Cooldowns    int64 `json:"cooldowns"`
	Defenses     int64 `json:"defenses"`
	Boosts       int64 `json:"boosts"`
	EmptyEntries int64 `json:"empty_entries"`
}

// Sweep purges expired cooldowns, defenses and boosts and empty inventory rows.
func (c *Core) Sweep(ctx context.Context) (*SweepReport, error) {
	var rep SweepReport
	var err error
	if rep.Cooldowns, err = c.cooldowns.Sweep(ctx); err != nil {
		return nil, c.observe("sweep", err)
	}
	if rep.Defenses, rep.Boosts, err = c.effects.Sweep(ctx); err != nil {
		return nil, c.observe("sweep", err)
	}
	err = c.query(ctx, func(r *repository.Repos) error {
		var err error
		rep.EmptyEntries, err = r.Inventory.SweepEmpty(ctx)
		return err
	})
	if err != nil {
		return nil, c.observe("sweep", err)
	}
	c.metrics.Swept("inventory", rep.EmptyEntries)
	return &rep, nil
}

// GrantCurrency credits medals or stars to a player. Admin only.
func (c *Core) GrantCurrency(ctx context.Context, chatID, userID int64, currency string, amount int64) (int64, error) {
	if currency != model.CurrencyMedals && currency != model.CurrencyStars {
		return 0, c.observe("grant_currency", model.ErrInvalidAmount)
	}
	bal, err := c.economy.Grant(ctx, chatID, userID, currency, amount)
	return bal, c.observe("grant_currency", err)
}

// GrantItem adds n of an item to a player's inventory. Admin only.
func (c *Core) GrantItem(ctx context.Context, chatID, userID int64, itemID string, n int) (int, error) {
	qty, err := c.inventory.Grant(ctx, chatID, userID, itemID, n)
	return qty, c.observe("grant_item", err)
}

// ResetCooldown clears a cooldown. Admin only.
func (c *Core) ResetCooldown(ctx context.Context, chatID, userID int64, action string) error {
	return c.observe("reset_cooldown", c.cooldowns.Clear(ctx, chatID, userID, action))
}
