package combat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"missile-bot/internal/catalog"
	"missile-bot/internal/model"
	"missile-bot/internal/pkg/clock"
	"missile-bot/internal/pkg/db"
	"missile-bot/internal/pkg/db/dbtest"
	"missile-bot/internal/repository"
)

const (
	chat     = int64(1)
	attacker = int64(10)
	target   = int64(20)
	botID    = int64(999)
	start    = int64(1_700_000_000)
)

type fixture struct {
	pool  *db.Pool
	repos *repository.Repos
	clock *clock.Fake
	dice  *ScriptedDice
	svc   *Service
}

func setup(t *testing.T) *fixture {
	pool := dbtest.Setup(t)
	f := &fixture{
		pool:  pool,
		repos: repository.New(pool),
		clock: clock.NewFake(start),
		dice:  NewScriptedDice(),
	}
	f.svc = NewService(Deps{
		Pool:    pool,
		Clock:   f.clock,
		Catalog: catalog.Default(),
		Dice:    f.dice,
	}, Config{
		BaseHitChance:          60,
		AttackCooldown:         10 * time.Second,
		RespawnHP:              50,
		DefeatBonus:            20,
		DefaultWeapon:          catalog.ItemMissile,
		UnlimitedDefaultWeapon: true,
		BotUserID:              botID,
		LockTimeout:            time.Second,
	})

	ctx := context.Background()
	_, err := f.repos.Groups.Upsert(ctx, chat, "War Room", start)
	require.NoError(t, err)
	for id, medals := range map[int64]int64{attacker: 0, target: 200} {
		_, _, err := f.repos.Players.Upsert(ctx, repository.NewPlayer{
			ChatID: chat, UserID: id, DisplayName: "p", Medals: medals, HP: 100, MaxHP: 100, Now: start,
		})
		require.NoError(t, err)
	}
	return f
}

func (f *fixture) player(t *testing.T, id int64) *model.Player {
	p, err := f.repos.Players.Get(context.Background(), chat, id)
	require.NoError(t, err)
	return p
}

func (f *fixture) qty(t *testing.T, id int64, item string) int {
	q, err := f.repos.Inventory.Qty(context.Background(), chat, id, item)
	require.NoError(t, err)
	return q
}

func (f *fixture) grant(t *testing.T, id int64, item string, n int) {
	_, err := f.repos.Inventory.Grant(context.Background(), chat, id, item, n, start)
	require.NoError(t, err)
}

func TestAttack_UncontestedHit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.grant(t, attacker, catalog.ItemMOAB, 1)
	f.dice.Push(1, 100)

	out, err := f.svc.Attack(ctx, chat, attacker, target, catalog.ItemMOAB)
	require.NoError(t, err)

	assert.Equal(t, ResultHit, out.Result)
	assert.Equal(t, 35, out.FinalDamage)
	assert.Equal(t, int64(4), out.Loot)
	assert.Equal(t, int64(10), out.ScoreGain)
	assert.True(t, out.WeaponConsumed)
	assert.Equal(t, int64(10), out.CooldownRemaining)

	assert.Equal(t, int64(165), f.player(t, target).Medals)
	a := f.player(t, attacker)
	assert.Equal(t, int64(4), a.Medals)
	assert.Equal(t, int64(10), a.Score)
	assert.Equal(t, int64(1), a.TotalAttacks)
	assert.Equal(t, int64(35), a.TotalDamageDealt)
	assert.Equal(t, 0, f.qty(t, attacker, catalog.ItemMOAB))

	exp, err := f.repos.Cooldowns.ExpiresAt(ctx, chat, attacker, model.ActionAttack, start)
	require.NoError(t, err)
	assert.Equal(t, start+10, exp)

	recs, err := f.repos.Attacks.Recent(ctx, chat, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 35, recs[0].Damage)
}

func TestAttack_ShieldedTarget(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.grant(t, attacker, catalog.ItemMOAB, 1)
	require.NoError(t, f.repos.Effects.ReplaceDefense(ctx, &model.ActiveDefense{
		ChatID: chat, UserID: target, DefenseType: model.DefenseShield, ItemID: catalog.ItemAegis,
		ActivatedAt: start, ExpiresAt: start + 3600, Effectiveness: 1,
	}))

	out, err := f.svc.Attack(ctx, chat, attacker, target, catalog.ItemMOAB)
	require.NoError(t, err)

	assert.Equal(t, ResultBlocked, out.Result)
	assert.False(t, out.WeaponConsumed)
	assert.Equal(t, int64(200), f.player(t, target).Medals)
	assert.Equal(t, 1, f.qty(t, attacker, catalog.ItemMOAB))

	_, err = f.svc.Attack(ctx, chat, attacker, target, catalog.ItemMOAB)
	var cd *model.CooldownError
	require.ErrorAs(t, err, &cd)
	assert.Equal(t, int64(10), cd.Remaining)

	recs, err := f.repos.Attacks.Recent(ctx, chat, 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestAttack_InterceptReducesDamage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.grant(t, attacker, catalog.ItemNuclear, 1)
	require.NoError(t, f.repos.Effects.ReplaceDefense(ctx, &model.ActiveDefense{
		ChatID: chat, UserID: target, DefenseType: model.DefenseIntercept, ItemID: catalog.ItemIronDome,
		ActivatedAt: start, ExpiresAt: start + 3600, Effectiveness: 0.5, InterceptBonus: 20,
	}))
	f.dice.Push(30, 100)

	out, err := f.svc.Attack(ctx, chat, attacker, target, catalog.ItemNuclear)
	require.NoError(t, err)

	assert.Equal(t, ResultHit, out.Result)
	assert.Equal(t, 40, out.HitChance)
	assert.Equal(t, 30, out.FinalDamage)
	assert.True(t, out.DefenseReduced)

	recs, err := f.repos.Attacks.Recent(ctx, chat, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].DefenseReduced)
}

func TestAttack_AbsorptionPoolDrains(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.grant(t, attacker, catalog.ItemMOAB, 2)
	require.NoError(t, f.repos.Effects.ReplaceDefense(ctx, &model.ActiveDefense{
		ChatID: chat, UserID: target, DefenseType: model.DefenseIntercept, ItemID: catalog.ItemPatriot,
		ActivatedAt: start, ExpiresAt: start + 3600, Effectiveness: 0.5, InterceptBonus: 0, AbsorptionLeft: 30,
	}))
	f.dice.Push(1, 100)

	_, err := f.svc.Attack(ctx, chat, attacker, target, catalog.ItemMOAB)
	require.NoError(t, err)

	d, err := f.repos.Effects.ActiveDefense(ctx, chat, target, start)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, 0, d.AbsorptionLeft)
}

func TestAttack_MissConsumesWeapon(t *testing.T) {
	f := setup(t)
	f.grant(t, attacker, catalog.ItemMOAB, 1)
	f.dice.Push(61)

	out, err := f.svc.Attack(context.Background(), chat, attacker, target, catalog.ItemMOAB)
	require.NoError(t, err)
	assert.Equal(t, ResultMiss, out.Result)
	assert.True(t, out.WeaponConsumed)
	assert.Equal(t, 0, f.qty(t, attacker, catalog.ItemMOAB))
	assert.Equal(t, int64(200), f.player(t, target).Medals)
	assert.Equal(t, int64(0), f.player(t, attacker).Score)
}

func TestAttack_DefaultWeaponIsUnlimited(t *testing.T) {
	f := setup(t)
	f.dice.Push(1, 100)

	out, err := f.svc.Attack(context.Background(), chat, attacker, target, "")
	require.NoError(t, err)
	assert.Equal(t, catalog.ItemMissile, out.WeaponID)
	assert.False(t, out.WeaponConsumed)
	assert.Equal(t, 20, out.FinalDamage)
}

func TestAttack_Rejections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Attack(ctx, chat, attacker, attacker, "")
	assert.ErrorIs(t, err, model.ErrIneligibleTarget)

	_, err = f.svc.Attack(ctx, chat, attacker, botID, "")
	assert.ErrorIs(t, err, model.ErrIneligibleTarget)

	_, err = f.svc.Attack(ctx, chat, attacker, 555, "")
	assert.ErrorIs(t, err, model.ErrIneligibleTarget)

	_, err = f.svc.Attack(ctx, chat, 555, target, "")
	assert.ErrorIs(t, err, model.ErrNotRegistered)

	_, err = f.svc.Attack(ctx, chat, attacker, target, catalog.ItemMOAB)
	assert.ErrorIs(t, err, model.ErrNoWeapon)

	_, err = f.svc.Attack(ctx, chat, attacker, target, "laser")
	assert.ErrorIs(t, err, model.ErrUnknownItem)

	_, err = f.svc.Attack(ctx, chat, attacker, target, catalog.ItemAegis)
	var dis *model.DisallowedError
	assert.True(t, errors.As(err, &dis))

	// rejected attacks leave no cooldown behind
	exp, err := f.repos.Cooldowns.ExpiresAt(ctx, chat, attacker, model.ActionAttack, start)
	require.NoError(t, err)
	assert.Zero(t, exp)
}

func TestAttack_CooldownExpiresWithClock(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.dice.Push(100)

	_, err := f.svc.Attack(ctx, chat, attacker, target, "")
	require.NoError(t, err)

	f.clock.Advance(9 * time.Second)
	_, err = f.svc.Attack(ctx, chat, attacker, target, "")
	var cd *model.CooldownError
	require.ErrorAs(t, err, &cd)
	assert.Equal(t, int64(1), cd.Remaining)

	f.clock.Advance(time.Second)
	f.dice.Push(100)
	_, err = f.svc.Attack(ctx, chat, attacker, target, "")
	assert.NoError(t, err)
}

func TestAttack_CooldownReductionBoost(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.repos.Effects.UpsertBoost(ctx, &model.ActiveBoost{
		ChatID: chat, UserID: attacker, BoostType: model.BoostCooldownReduction, Value: 0.5,
		ActivatedAt: start, ExpiresAt: start + 3600,
	}))
	f.dice.Push(100)

	out, err := f.svc.Attack(ctx, chat, attacker, target, "")
	require.NoError(t, err)
	assert.Equal(t, int64(5), out.CooldownRemaining)
}

// Concurrent attacks on each other keep the trigger counters equal to the log.
func TestAttack_ConcurrentCountersMatchLog(t *testing.T) {
	f := setup(t)
	f.svc.dice = NewRandomDice()
	ctx := context.Background()

	var wg sync.WaitGroup
	for round := 0; round < 5; round++ {
		for _, pair := range [][2]int64{{attacker, target}, {target, attacker}} {
			wg.Add(1)
			go func(a, v int64) {
				defer wg.Done()
				_, _ = f.svc.Attack(ctx, chat, a, v, "")
			}(pair[0], pair[1])
		}
		wg.Wait()
		f.clock.Advance(11 * time.Second)
	}

	for _, id := range []int64{attacker, target} {
		p := f.player(t, id)
		totals, err := f.repos.Attacks.TotalsFor(ctx, chat, id)
		require.NoError(t, err)
		assert.Equal(t, totals.Attacks, p.TotalAttacks)
		assert.Equal(t, totals.DamageDealt, p.TotalDamageDealt)
		assert.Equal(t, totals.TimesAttacked, p.TimesAttacked)
		assert.Equal(t, totals.DamageTaken, p.DamageTaken)
		assert.GreaterOrEqual(t, p.Medals, int64(0))
		assert.GreaterOrEqual(t, p.HP, 0)
		assert.LessOrEqual(t, p.HP, p.MaxHP)
	}
}
