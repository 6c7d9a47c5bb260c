package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestLevelFor_Boundaries(t *testing.T) {
	tests := []struct {
		score int64
		level int
	}{
		{0, 1}, {99, 1}, {100, 2},
		{299, 2}, {300, 3},
		{599, 3}, {600, 4},
		{999, 4}, {1000, 5},
		{1499, 5}, {1500, 6},
		{1999, 6}, {2000, 7},
		{-5, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.level, LevelFor(tt.score), "score %d", tt.score)
	}
}

func TestLevelFor_MonotonicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Int64Range(0, 1_000_000).Draw(t, "a")
		b := rapid.Int64Range(a, 1_000_000).Draw(t, "b")
		if LevelFor(a) > LevelFor(b) {
			t.Fatalf("level not monotonic: L(%d)=%d > L(%d)=%d", a, LevelFor(a), b, LevelFor(b))
		}
		if LevelFor(b)-LevelFor(a) > int((b-a)/100)+1 {
			t.Fatalf("level jumped too far between %d and %d", a, b)
		}
	})
}

func TestScoreForLevel_RoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		level := rapid.IntRange(1, 500).Draw(t, "level")
		min := ScoreForLevel(level)
		if LevelFor(min) != level {
			t.Fatalf("LevelFor(ScoreForLevel(%d)) = %d", level, LevelFor(min))
		}
		if min > 0 && LevelFor(min-1) != level-1 {
			t.Fatalf("score %d should still be level %d", min-1, level-1)
		}
	})
}

func TestLootPercent_Clamp(t *testing.T) {
	assert.Equal(t, int64(13), LootPercent(1))
	assert.Equal(t, int64(28), LootPercent(6))
	assert.Equal(t, int64(30), LootPercent(7))
	assert.Equal(t, int64(30), LootPercent(50))
	assert.Equal(t, int64(10), LootPercent(0))
	assert.Equal(t, int64(10), LootPercent(-3))
}

func TestLoot(t *testing.T) {
	assert.Equal(t, int64(4), Loot(35, 1, 200))
	assert.Equal(t, int64(3), Loot(35, 1, 3))
	assert.Equal(t, int64(0), Loot(35, 1, 0))
	assert.Equal(t, int64(0), Loot(0, 1, 200))
	assert.Equal(t, int64(18), Loot(60, 9, 1000))
}

func TestLoot_NeverExceedsVictimProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dmg := rapid.IntRange(0, 1000).Draw(t, "damage")
		level := rapid.IntRange(1, 100).Draw(t, "level")
		medals := rapid.Int64Range(0, 100000).Draw(t, "medals")

		loot := Loot(dmg, level, medals)
		if loot < 0 || loot > medals {
			t.Fatalf("loot %d out of [0, %d]", loot, medals)
		}
		if loot > int64(dmg)*30/100 {
			t.Fatalf("loot %d above 30%% of %d", loot, dmg)
		}
	})
}

func TestAttackScoreGain(t *testing.T) {
	assert.Equal(t, int64(10), AttackScoreGain(1))
	assert.Equal(t, int64(10), AttackScoreGain(2))
	assert.Equal(t, int64(11), AttackScoreGain(3))
	assert.Equal(t, int64(14), AttackScoreGain(10))
}

func TestActivityScore(t *testing.T) {
	s, ok := ActivityScore(ActivityQuizCorrect)
	assert.True(t, ok)
	assert.Equal(t, int64(10), s)

	s, _ = ActivityScore(ActivityMessage)
	assert.Equal(t, int64(1), s)

	_, ok = ActivityScore("dance")
	assert.False(t, ok)
}

func TestApplyMultiplier(t *testing.T) {
	assert.Equal(t, int64(20), ApplyMultiplier(10, 2))
	assert.Equal(t, int64(10), ApplyMultiplier(10, 0))
	assert.Equal(t, int64(15), ApplyMultiplier(10, 1.5))
}
