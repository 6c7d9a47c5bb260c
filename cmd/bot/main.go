// Package main is the entry point for the missile combat bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"missile-bot/internal/adapter"
	"missile-bot/internal/bot"
	"missile-bot/internal/catalog"
	"missile-bot/internal/config"
	"missile-bot/internal/core"
	"missile-bot/internal/game/combat"
	"missile-bot/internal/jobs"
	"missile-bot/internal/metrics"
	"missile-bot/internal/ops"
	"missile-bot/internal/payment"
	"missile-bot/internal/pkg/clock"
	"missile-bot/internal/pkg/db"
	"missile-bot/internal/pkg/lock"
	"missile-bot/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	log.Info().Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()
	dbPool.OnRetry(m.StoreRetry)

	if err := db.Migrate(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	cat, err := catalog.Load(cfg.Catalog.File)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load item catalog")
	}

	clk := clock.System{}
	codec, err := payment.NewCodec(cfg.Payments.PayloadSecret, cfg.Payments.PayloadTTL, clk)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create payment codec")
	}

	game := core.New(core.Options{
		Pool:    dbPool,
		Clock:   clk,
		Catalog: cat,
		Metrics: m,
		Codec:   codec,
		Dice:    combat.NewRandomDice(),
		Locks:   lock.New(),
		Combat: combat.Config{
			BaseHitChance:          cfg.Game.BaseHitChance,
			AttackCooldown:         cfg.Game.AttackCooldown,
			RespawnHP:              cfg.Game.RespawnHP,
			DefeatBonus:            cfg.Game.DefeatBonus,
			DefaultWeapon:          cfg.Game.DefaultWeapon,
			UnlimitedDefaultWeapon: cfg.Game.UnlimitedDefaultWeapon,
			BotUserID:              cfg.Bot.UserID(),
			LockTimeout:            cfg.Game.LockTimeout,
		},
		Economy: service.EconomyConfig{
			DailyReward:   cfg.Game.DailyReward,
			DailyCooldown: cfg.Game.DailyCooldown,
		},
		Config: core.Config{
			StartMedals: cfg.Game.StartMedals,
			StartHP:     cfg.Game.StartHP,
			StartMaxHP:  cfg.Game.StartMaxHP,

			MessageCreditInterval: cfg.Game.MessageCreditInterval,
		},
	})
	log.Info().Int("items", len(cat.IDs())).Msg("Game core ready")

	limiter := adapter.NewLimiter(cfg.RateLimit.PerUserPerMinute, cfg.RateLimit.Burst)
	messages := adapter.NewLimiter(cfg.RateLimit.MessagesPerMinute, cfg.RateLimit.MessageBurst)
	events := adapter.New(game, adapter.Options{Limiter: limiter, MessageLimiter: messages, Metrics: m})

	telegramBot, err := bot.New(cfg, events)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	sweeper, err := jobs.NewScheduler(cfg.Sweeper.Schedule, game, limiter, messages)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create sweeper")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		go func() {
			<-gctx.Done()
			telegramBot.Stop()
		}()
		telegramBot.Start()
		return nil
	})
	g.Go(func() error { return sweeper.Run(gctx) })
	if cfg.Ops.Enabled {
		opsServer := ops.NewServer(cfg.Ops.Listen, dbPool, m)
		g.Go(func() error { return opsServer.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Shutting down after error")
	}
	log.Info().Msg("Bot stopped gracefully")
}
