// Package combat resolves missile attacks between two players of a group.
package combat

import (
	"math"

	"missile-bot/internal/catalog"
	"missile-bot/internal/game/progression"
	"missile-bot/internal/model"
)

// Hit chance bounds and the critical multiplier.
const (
	MinHitChance       = 5
	MaxHitChance       = 95
	CriticalMultiplier = 1.5
)

// Result is the kind of outcome of an attack.
type Result string

const (
	ResultHit     Result = "hit"
	ResultMiss    Result = "miss"
	ResultBlocked Result = "blocked"
)

// Input is everything Resolve needs, loaded by the caller under lock.
type Input struct {
	Weapon               catalog.Item
	AttackerLevel        int
	TargetMedals         int64
	TargetHP             int
	TargetMaxHP          int
	Defense              *model.ActiveDefense
	BaseHitChance        int
	ExperienceMultiplier float64
	RespawnHP            int
	DefeatBonus          int64
}

// Outcome is the structured result of one attack.
type Outcome struct {
	Result         Result `json:"result"`
	HitChance      int    `json:"pct"`
	Roll           int    `json:"roll"`
	FinalDamage    int    `json:"final_damage"`
	Loot           int64  `json:"loot"`
	ScoreGain      int64  `json:"score_gain"`
	Critical       bool   `json:"critical"`
	DefenseReduced bool   `json:"defense_reduced"`
	Absorbed       int    `json:"absorbed"`

	TargetMedalsAfter int64 `json:"target_medals_after"`
	TargetHPAfter     int   `json:"target_hp_after"`
	Defeated          bool  `json:"defeated"`
	DefeatBonus       int64 `json:"defeat_bonus"`

	// Filled in by the service after the transaction.
	WeaponID          string `json:"weapon_id"`
	WeaponConsumed    bool   `json:"weapon_consumed"`
	AttackID          int64  `json:"attack_id,omitempty"`
	AttackerMedals    int64  `json:"attacker_medals"`
	AttackerLevel     int    `json:"attacker_level"`
	LevelUp           bool   `json:"level_up"`
	CooldownRemaining int64  `json:"cooldown_remaining"`
}

// HitChance subtracts an intercept bonus from the base chance and clamps to [5, 95].
func HitChance(base, interceptBonus int) int {
	pct := base - interceptBonus
	if pct < MinHitChance {
		return MinHitChance
	}
	if pct > MaxHitChance {
		return MaxHitChance
	}
	return pct
}

// Resolve applies the combat rules to in. It never touches storage.
//
// Order: shield short-circuit, hit roll, level-scaled damage, critical roll,
// intercept (absorption then effectiveness), rounding with a floor of 1, then
// medals, loot, score and hp.
func Resolve(in Input, dice Dice) Outcome {
	out := Outcome{
		TargetMedalsAfter: in.TargetMedals,
		TargetHPAfter:     in.TargetHP,
	}

	bonus := 0
	if in.Defense.IsIntercept() {
		bonus = in.Defense.InterceptBonus
	}
	out.HitChance = HitChance(in.BaseHitChance, bonus)

	if in.Defense.IsShield() {
		out.Result = ResultBlocked
		return out
	}

	out.Roll = dice.Roll(100)
	if out.Roll > out.HitChance {
		out.Result = ResultMiss
		return out
	}
	out.Result = ResultHit

	dmg := catalog.ScaledDamage(in.Weapon, in.AttackerLevel)
	if in.Weapon.Weapon != nil && in.Weapon.Weapon.CriticalChance > 0 {
		if dice.Roll(100) <= in.Weapon.Weapon.CriticalChance {
			out.Critical = true
			dmg *= CriticalMultiplier
		}
	}

	if in.Defense.IsIntercept() {
		dmg, out.Absorbed = catalog.ApplyDefense(dmg, in.Defense.AbsorptionLeft, in.Defense.Effectiveness)
		out.DefenseReduced = true
	}

	out.FinalDamage = int(math.Round(dmg))
	if out.FinalDamage < 1 {
		out.FinalDamage = 1
	}

	out.Loot = progression.Loot(out.FinalDamage, in.AttackerLevel, in.TargetMedals)
	out.TargetMedalsAfter = in.TargetMedals - int64(out.FinalDamage)
	if out.TargetMedalsAfter < 0 {
		out.TargetMedalsAfter = 0
	}
	out.ScoreGain = progression.ApplyMultiplier(progression.AttackScoreGain(in.AttackerLevel), in.ExperienceMultiplier)

	out.TargetHPAfter = in.TargetHP - out.FinalDamage
	if out.TargetHPAfter <= 0 {
		out.Defeated = true
		out.DefeatBonus = in.DefeatBonus
		out.TargetHPAfter = in.RespawnHP
		if in.TargetMaxHP > 0 && out.TargetHPAfter > in.TargetMaxHP {
			out.TargetHPAfter = in.TargetMaxHP
		}
	}
	return out
}
