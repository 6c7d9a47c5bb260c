package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"missile-bot/internal/catalog"
	"missile-bot/internal/model"
)

func item(t testing.TB, id string) catalog.Item {
	it, ok := catalog.Default().Get(id)
	require.True(t, ok, id)
	return it
}

func baseInput(t testing.TB, weaponID string) Input {
	return Input{
		Weapon:        item(t, weaponID),
		AttackerLevel: 1,
		TargetMedals:  200,
		TargetHP:      100,
		TargetMaxHP:   100,
		BaseHitChance: 60,
		RespawnHP:     50,
		DefeatBonus:   20,
	}
}

func TestHitChance_Clamp(t *testing.T) {
	assert.Equal(t, 60, HitChance(60, 0))
	assert.Equal(t, 40, HitChance(60, 20))
	assert.Equal(t, 5, HitChance(60, 55))
	assert.Equal(t, 5, HitChance(60, 100))
	assert.Equal(t, 95, HitChance(95, 0))
	assert.Equal(t, 95, HitChance(100, 0))
	assert.Equal(t, 5, HitChance(0, 0))
}

func TestHitChance_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := rapid.IntRange(-50, 200).Draw(t, "base")
		bonus := rapid.IntRange(0, 150).Draw(t, "bonus")
		pct := HitChance(base, bonus)
		if pct < MinHitChance || pct > MaxHitChance {
			t.Fatalf("pct %d outside [5, 95]", pct)
		}
	})
}

// Uncontested hit: moab on a 200-medal target with roll 1 and no critical.
func TestResolve_UncontestedHit(t *testing.T) {
	out := Resolve(baseInput(t, catalog.ItemMOAB), NewScriptedDice(1, 100))

	assert.Equal(t, ResultHit, out.Result)
	assert.Equal(t, 60, out.HitChance)
	assert.Equal(t, 35, out.FinalDamage)
	assert.Equal(t, int64(4), out.Loot)
	assert.Equal(t, int64(165), out.TargetMedalsAfter)
	assert.Equal(t, int64(10), out.ScoreGain)
	assert.False(t, out.Critical)
	assert.False(t, out.DefenseReduced)
	assert.Equal(t, 65, out.TargetHPAfter)
}

func TestResolve_ShieldBlocks(t *testing.T) {
	in := baseInput(t, catalog.ItemMOAB)
	in.Defense = &model.ActiveDefense{DefenseType: model.DefenseShield, Effectiveness: 1}
	dice := NewScriptedDice(1, 1)

	out := Resolve(in, dice)
	assert.Equal(t, ResultBlocked, out.Result)
	assert.Zero(t, out.FinalDamage)
	assert.Zero(t, out.Loot)
	assert.Zero(t, out.ScoreGain)
	assert.Equal(t, int64(200), out.TargetMedalsAfter)
	assert.Equal(t, 2, dice.Remaining(), "a blocked attack rolls nothing")
}

func TestResolve_InterceptReducesDamage(t *testing.T) {
	in := baseInput(t, catalog.ItemNuclear)
	in.Defense = &model.ActiveDefense{DefenseType: model.DefenseIntercept, Effectiveness: 0.5, InterceptBonus: 20}

	out := Resolve(in, NewScriptedDice(30, 100))
	assert.Equal(t, ResultHit, out.Result)
	assert.Equal(t, 40, out.HitChance)
	assert.Equal(t, 30, out.FinalDamage)
	assert.True(t, out.DefenseReduced)
}

func TestResolve_InterceptMissAboveReducedChance(t *testing.T) {
	in := baseInput(t, catalog.ItemNuclear)
	in.Defense = &model.ActiveDefense{DefenseType: model.DefenseIntercept, Effectiveness: 0.5, InterceptBonus: 20}

	out := Resolve(in, NewScriptedDice(41))
	assert.Equal(t, ResultMiss, out.Result)
	assert.Zero(t, out.FinalDamage)
	assert.Zero(t, out.Loot)
	assert.Zero(t, out.ScoreGain)
}

func TestResolve_AbsorptionThenReduction(t *testing.T) {
	in := baseInput(t, catalog.ItemNuclear)
	in.Defense = &model.ActiveDefense{DefenseType: model.DefenseIntercept, Effectiveness: 0.75, InterceptBonus: 25, AbsorptionLeft: 20}

	out := Resolve(in, NewScriptedDice(1, 100))
	// (60 - 20) * 0.25
	assert.Equal(t, 10, out.FinalDamage)
	assert.Equal(t, 20, out.Absorbed)
}

func TestResolve_FullAbsorptionFloorsAtOne(t *testing.T) {
	in := baseInput(t, catalog.ItemMissile)
	in.Defense = &model.ActiveDefense{DefenseType: model.DefenseIntercept, Effectiveness: 0.5, AbsorptionLeft: 100}

	out := Resolve(in, NewScriptedDice(1, 100))
	assert.Equal(t, ResultHit, out.Result)
	assert.Equal(t, 1, out.FinalDamage)
	assert.Equal(t, 20, out.Absorbed)
}

func TestResolve_CriticalAndLevelScaling(t *testing.T) {
	in := baseInput(t, catalog.ItemMOAB)
	in.AttackerLevel = 3

	out := Resolve(in, NewScriptedDice(1, 1))
	assert.True(t, out.Critical)
	// 35 * 1.10 * 1.5 = 57.75
	assert.Equal(t, 58, out.FinalDamage)
	assert.Equal(t, int64(11), out.ScoreGain)
	// floor(58 * 19 / 100)
	assert.Equal(t, int64(11), out.Loot)
}

func TestResolve_DefeatRespawns(t *testing.T) {
	in := baseInput(t, catalog.ItemNuclear)
	in.TargetHP = 30

	out := Resolve(in, NewScriptedDice(1, 100))
	assert.True(t, out.Defeated)
	assert.Equal(t, 50, out.TargetHPAfter)
	assert.Equal(t, int64(20), out.DefeatBonus)
}

func TestResolve_ExperienceBoost(t *testing.T) {
	in := baseInput(t, catalog.ItemMOAB)
	in.ExperienceMultiplier = 2

	out := Resolve(in, NewScriptedDice(1, 100))
	assert.Equal(t, int64(20), out.ScoreGain)
}

func TestResolve_PoorTargetLootClamped(t *testing.T) {
	in := baseInput(t, catalog.ItemMOAB)
	in.TargetMedals = 2

	out := Resolve(in, NewScriptedDice(1, 100))
	assert.Equal(t, int64(2), out.Loot)
	assert.Equal(t, int64(0), out.TargetMedalsAfter)
}

// TestResolve_InvariantsProperty: for any input, balances and hp stay in range
// and the outcome kinds are internally consistent.
func TestResolve_InvariantsProperty(t *testing.T) {
	weapons := []string{catalog.ItemMissile, catalog.ItemRocket, catalog.ItemMOAB, catalog.ItemNuclear, catalog.ItemHypersonic}

	rapid.Check(t, func(rt *rapid.T) {
		in := Input{
			Weapon:        item(t, rapid.SampledFrom(weapons).Draw(rt, "weapon")),
			AttackerLevel: rapid.IntRange(1, 40).Draw(rt, "level"),
			TargetMedals:  rapid.Int64Range(0, 5000).Draw(rt, "medals"),
			TargetMaxHP:   rapid.IntRange(50, 200).Draw(rt, "maxhp"),
			BaseHitChance: rapid.IntRange(5, 95).Draw(rt, "base"),
			RespawnHP:     50,
			DefeatBonus:   20,
		}
		in.TargetHP = rapid.IntRange(0, in.TargetMaxHP).Draw(rt, "hp")
		switch rapid.IntRange(0, 2).Draw(rt, "defense") {
		case 1:
			in.Defense = &model.ActiveDefense{DefenseType: model.DefenseShield, Effectiveness: 1}
		case 2:
			in.Defense = &model.ActiveDefense{
				DefenseType:    model.DefenseIntercept,
				Effectiveness:  rapid.Float64Range(0.01, 1).Draw(rt, "eff"),
				InterceptBonus: rapid.IntRange(0, 100).Draw(rt, "bonus"),
				AbsorptionLeft: rapid.IntRange(0, 50).Draw(rt, "absorption"),
			}
		}
		dice := NewScriptedDice(rapid.IntRange(1, 100).Draw(rt, "roll"), rapid.IntRange(1, 100).Draw(rt, "crit"))

		out := Resolve(in, dice)

		if out.HitChance < MinHitChance || out.HitChance > MaxHitChance {
			rt.Fatalf("hit chance %d out of range", out.HitChance)
		}
		if out.TargetMedalsAfter < 0 || out.Loot < 0 || out.Loot > in.TargetMedals {
			rt.Fatalf("medals out of range: after=%d loot=%d before=%d", out.TargetMedalsAfter, out.Loot, in.TargetMedals)
		}
		if out.TargetHPAfter < 0 || out.TargetHPAfter > in.TargetMaxHP {
			rt.Fatalf("hp %d out of [0, %d]", out.TargetHPAfter, in.TargetMaxHP)
		}
		switch out.Result {
		case ResultHit:
			if out.FinalDamage < 1 || out.ScoreGain < 10 {
				rt.Fatalf("hit with damage %d score %d", out.FinalDamage, out.ScoreGain)
			}
		case ResultMiss, ResultBlocked:
			if out.FinalDamage != 0 || out.Loot != 0 || out.ScoreGain != 0 {
				rt.Fatalf("%s must not deal damage or reward", out.Result)
			}
		}
		if in.Defense.IsShield() && out.Result != ResultBlocked {
			rt.Fatalf("shield did not block")
		}
	})
}

func TestCooldownSeconds(t *testing.T) {
	assert.Equal(t, int64(10), CooldownSeconds(10e9, 0))
	assert.Equal(t, int64(5), CooldownSeconds(10e9, 0.5))
	assert.Equal(t, int64(1), CooldownSeconds(10e9, 1))
	assert.Equal(t, int64(10), CooldownSeconds(10e9, -1))
}
