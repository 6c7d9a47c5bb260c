package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"missile-bot/internal/catalog"
	"missile-bot/internal/game/combat"
	"missile-bot/internal/metrics"
	"missile-bot/internal/model"
	"missile-bot/internal/payment"
	"missile-bot/internal/pkg/clock"
	"missile-bot/internal/pkg/db/dbtest"
	"missile-bot/internal/service"
)

const start = int64(1_700_000_000)

type fixture struct {
	core  *Core
	clock *clock.Fake
	dice  *combat.ScriptedDice
}

func setup(t *testing.T) *fixture {
	pool := dbtest.Setup(t)
	clk := clock.NewFake(start)
	codec, err := payment.NewCodec("core-secret", 24*time.Hour, clk)
	require.NoError(t, err)
	dice := combat.NewScriptedDice()

	c := New(Options{
		Pool:    pool,
		Clock:   clk,
		Catalog: catalog.Default(),
		Metrics: metrics.New(),
		Codec:   codec,
		Dice:    dice,
		Combat: combat.Config{
			BaseHitChance:          60,
			AttackCooldown:         10 * time.Second,
			RespawnHP:              50,
			DefeatBonus:            20,
			DefaultWeapon:          catalog.ItemMissile,
			UnlimitedDefaultWeapon: true,
			BotUserID:              999,
			LockTimeout:            time.Second,
		},
		Economy: service.EconomyConfig{DailyReward: 60, DailyCooldown: 23 * time.Hour},
		Config:  Config{StartMedals: 0, StartHP: 100, StartMaxHP: 100},
	})
	return &fixture{core: c, clock: clk, dice: dice}
}

func (f *fixture) start(t *testing.T, chat, user int64, name, username string) *model.Player {
	res, err := f.core.Start(context.Background(), Identity{
		ChatID: chat, ChatTitle: "Group", UserID: user, DisplayName: name, Username: username,
	})
	require.NoError(t, err)
	return res.Player
}

func TestScenario_DailyBonus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.core.Start(ctx, Identity{ChatID: 1, ChatTitle: "G", UserID: 10, DisplayName: "A"})
	require.NoError(t, err)
	assert.True(t, res.Created)

	medals, stars, err := f.core.Balance(ctx, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, medals)
	assert.Zero(t, stars)

	bonus, err := f.core.Bonus(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(60), bonus.Granted)

	f.clock.Advance(time.Minute)
	_, err = f.core.Bonus(ctx, 1, 10)
	var cd *model.CooldownError
	require.ErrorAs(t, err, &cd)
	assert.Equal(t, int64(23*3600-60), cd.Remaining)
	assert.Equal(t, KindOnCooldown, ErrorKind(err))
}

func TestScenario_PurchaseThenActivate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.start(t, 1, 10, "A", "")
	_, err := f.core.GrantCurrency(ctx, 1, 10, model.CurrencyMedals, 100)
	require.NoError(t, err)

	out, err := f.core.Purchase(ctx, 1, 10, catalog.ItemAegis)
	require.NoError(t, err)
	require.NotNil(t, out.Purchase)
	assert.Nil(t, out.Invoice)

	medals, stars, err := f.core.Balance(ctx, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, medals)
	assert.Zero(t, stars)
	inv, err := f.core.Inventory(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, inv[catalog.ItemAegis])

	res, err := f.core.Shield(ctx, 1, 10, catalog.ItemAegis)
	require.NoError(t, err)
	assert.Nil(t, res.Purchased)
	assert.Equal(t, start+3*3600, res.Defense.ExpiresAt)

	inv, err = f.core.Inventory(ctx, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, inv[catalog.ItemAegis])

	st, err := f.core.Status(ctx, 1, 10)
	require.NoError(t, err)
	require.NotNil(t, st.Defense)
	assert.Equal(t, catalog.ItemAegis, st.Defense.ItemID)
}

func TestScenario_StarsPayment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.start(t, 1, 10, "A", "")

	out, err := f.core.Purchase(ctx, 1, 10, catalog.ItemSuperAegis)
	require.NoError(t, err)
	require.NotNil(t, out.Invoice, "no star balance falls back to an invoice")
	assert.Equal(t, int64(12), out.Invoice.Amount)

	require.NoError(t, f.core.StarsPreCheckout(ctx, out.Invoice.Payload, 10, 12))
	res, err := f.core.StarsCompleted(ctx, out.Invoice.Payload, "X", 12)
	require.NoError(t, err)
	assert.Equal(t, model.StarsCompleted, res.Purchase.Status)
	assert.Equal(t, "X", res.Purchase.PaymentID)

	_, err = f.core.StarsCompleted(ctx, out.Invoice.Payload, "X", 12)
	require.NoError(t, err)

	inv, err := f.core.Inventory(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, inv[catalog.ItemSuperAegis])
}

func TestCore_AttackByUsernameAndStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.start(t, 1, 10, "A", "")
	f.start(t, 1, 20, "B", "@Bravo")
	_, err := f.core.GrantCurrency(ctx, 1, 20, model.CurrencyMedals, 200)
	require.NoError(t, err)

	target, err := f.core.FindPlayer(ctx, 1, "@bravo")
	require.NoError(t, err)
	assert.Equal(t, int64(20), target.UserID)
	_, err = f.core.FindPlayer(ctx, 1, "nobody")
	assert.ErrorIs(t, err, model.ErrIneligibleTarget)

	f.dice.Push(1, 100)
	out, err := f.core.Attack(ctx, 1, 10, target.UserID, "")
	require.NoError(t, err)
	assert.Equal(t, combat.ResultHit, out.Result)
	assert.Equal(t, 20, out.FinalDamage)

	st, err := f.core.Status(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), st.AttackCooldown)
	assert.Equal(t, int64(1), st.Rank)
	assert.Equal(t, int64(1), st.Player.TotalAttacks)

	recent, err := f.core.RecentAttacks(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)

	_, err = f.core.Attack(ctx, 1, 10, 999, "")
	assert.Equal(t, KindIneligibleTarget, ErrorKind(err))

	require.NoError(t, f.core.ResetCooldown(ctx, 1, 10, model.ActionAttack))
	st, err = f.core.Status(ctx, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, st.AttackCooldown)

	stats, err := f.core.ChatStats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Players)
	assert.Equal(t, int64(20), stats.TotalDamage)
}

func TestCore_DefendRequiresIntercept(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.start(t, 1, 10, "A", "")

	_, err := f.core.Defend(ctx, 1, 10, catalog.ItemAegis)
	assert.Equal(t, KindItemDisallowed, ErrorKind(err))

	_, err = f.core.Defend(ctx, 1, 10, "")
	assert.Equal(t, KindNotOwned, ErrorKind(err))

	_, err = f.core.GrantItem(ctx, 1, 10, catalog.ItemIronDome, 1)
	require.NoError(t, err)
	res, err := f.core.Defend(ctx, 1, 10, "")
	require.NoError(t, err)
	assert.Equal(t, model.DefenseIntercept, res.Defense.DefenseType)
}

func TestCore_SweepAndMessages(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.start(t, 1, 10, "A", "")

	_, err := f.core.GrantItem(ctx, 1, 10, catalog.ItemMedkit, 1)
	require.NoError(t, err)
	_, err = f.core.Use(ctx, 1, 10, catalog.ItemMedkit)
	require.NoError(t, err)
	_, err = f.core.Bonus(ctx, 1, 10)
	require.NoError(t, err)

	credit, err := f.core.CreditMessage(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), credit.Gain)
	credit, err = f.core.CreditMessage(ctx, 1, 10)
	require.NoError(t, err)
	assert.Nil(t, credit, "second message inside the interval")
	_, err = f.core.CreditMessage(ctx, 1, 77)
	assert.ErrorIs(t, err, model.ErrNotRegistered)

	f.clock.Advance(24 * time.Hour)
	rep, err := f.core.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rep.Cooldowns, "bonus and message credit")
	assert.Equal(t, int64(1), rep.EmptyEntries)

	require.NoError(t, f.core.SetLanguage(ctx, 1, model.LangFA))
	assert.Error(t, f.core.SetLanguage(ctx, 1, "xx"))

	board, err := f.core.Leaderboard(ctx, 1, 5)
	require.NoError(t, err)
	require.Len(t, board, 1)
}
