// Package progression maps score to level and defines activity score credits.
package progression

// Level thresholds for the first four levels; past the last one every
// stepAfter points adds one level.
var thresholds = []int64{0, 100, 300, 600, 1000}

const stepAfter = 500

// Activity is a benign action that earns score.
type Activity string

const (
	ActivityMessage     Activity = "message"
	ActivityAttack      Activity = "attack"
	ActivityDefend      Activity = "defend"
	ActivityShield      Activity = "shield"
	ActivityQuizCorrect Activity = "quiz_correct"
	ActivityDailyBonus  Activity = "daily_bonus"
)

var activityScores = map[Activity]int64{
	ActivityMessage:     1,
	ActivityAttack:      5,
	ActivityDefend:      3,
	ActivityShield:      2,
	ActivityQuizCorrect: 10,
	ActivityDailyBonus:  2,
}

// ActivityScore returns the credit for an activity and whether it is known.
func ActivityScore(a Activity) (int64, bool) {
	s, ok := activityScores[a]
	return s, ok
}

// LevelFor maps a score to its level: 0-99 L1, 100-299 L2, 300-599 L3,
// 600-999 L4, then one level per 500 points.
func LevelFor(score int64) int {
	if score < 0 {
		score = 0
	}
	last := thresholds[len(thresholds)-1]
	if score >= last {
		return len(thresholds) + int((score-last)/stepAfter)
	}
	level := 1
	for i := 1; i < len(thresholds); i++ {
		if score >= thresholds[i] {
			level = i + 1
		}
	}
	return level
}

// ScoreForLevel returns the minimum score of a level.
func ScoreForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	if level <= len(thresholds) {
		return thresholds[level-1]
	}
	return thresholds[len(thresholds)-1] + int64(level-len(thresholds))*stepAfter
}

// AttackScoreGain is the score for a landed hit: 10 + floor((level-1)/2).
func AttackScoreGain(attackerLevel int) int64 {
	bonus := attackerLevel - 1
	if bonus < 0 {
		bonus = 0
	}
	return 10 + int64(bonus/2)
}

// LootPercent is the share of damage looted: 10 + 3*level, clamped to [10, 30].
func LootPercent(attackerLevel int) int64 {
	pct := int64(10 + 3*attackerLevel)
	if pct < 10 {
		return 10
	}
	if pct > 30 {
		return 30
	}
	return pct
}

// Loot is min(victimMedals, floor(damage * LootPercent / 100)).
func Loot(finalDamage int, attackerLevel int, victimMedals int64) int64 {
	if finalDamage <= 0 || victimMedals <= 0 {
		return 0
	}
	loot := int64(finalDamage) * LootPercent(attackerLevel) / 100
	if loot > victimMedals {
		return victimMedals
	}
	return loot
}

// ApplyMultiplier scales a score gain by a boost multiplier, never below the base.
func ApplyMultiplier(gain int64, multiplier float64) int64 {
	if multiplier <= 1 {
		return gain
	}
	return int64(float64(gain) * multiplier)
}
