package handler

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"missile-bot/internal/catalog"
	"missile-bot/internal/game/combat"
	"missile-bot/internal/model"
)

func TestFormatError(t *testing.T) {
	cases := map[string]struct {
		err  error
		want string
	}{
		"cooldown":       {&model.CooldownError{Action: "attack", Remaining: 90}, "1m30s"},
		"insufficient":   {&model.InsufficientBalanceError{Currency: "medals", Needed: 50, Have: 10}, "need 50, you have 10"},
		"not owned":      {fmt.Errorf("use: %w", &model.NotOwnedError{ItemID: "medkit"}), "medkit"},
		"disallowed":     {&model.DisallowedError{ItemID: "moab", Reason: model.ReasonLevelRequired}, "level required"},
		"not registered": {model.ErrNotRegistered, "/start"},
		"target":         {model.ErrIneligibleTarget, "@username"},
		"private":        {model.ErrPrivateChat, "groups"},
		"throttled":      {model.ErrRateLimited, "Slow down"},
		"foreign":        {fmt.Errorf("checkout: %w", model.ErrForeignInvoice), "another player"},
		"bad payload":    {model.ErrInvalidPayload, "could not be verified"},
		"unknown":        {assert.AnError, "Something went wrong"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Contains(t, FormatError(tc.err), tc.want)
		})
	}
}

func TestFormatOutcome(t *testing.T) {
	hit := FormatOutcome(&combat.Outcome{
		Result: combat.ResultHit, Critical: true, FinalDamage: 40, WeaponID: "rocket",
		Loot: 12, ScoreGain: 40, Defeated: true, DefeatBonus: 20,
		LevelUp: true, AttackerLevel: 3, CooldownRemaining: 10,
	})
	assert.Contains(t, hit, "CRITICAL")
	assert.Contains(t, hit, "40 damage with rocket")
	assert.Contains(t, hit, "Bonus 20 medals")
	assert.Contains(t, hit, "level 3")
	assert.Contains(t, hit, "10s")

	miss := FormatOutcome(&combat.Outcome{Result: combat.ResultMiss, Roll: 80, HitChance: 60, CooldownRemaining: 10})
	assert.Contains(t, miss, "rolled 80")
	assert.NotContains(t, miss, "Loot")

	blocked := FormatOutcome(&combat.Outcome{Result: combat.ResultBlocked})
	assert.Contains(t, blocked, "Blocked")
}

func TestFormatLeaderboard(t *testing.T) {
	user := "carol"
	out := FormatLeaderboard([]model.LeaderboardEntry{
		{Rank: 1, DisplayName: "Alice", Score: 300, Level: 4},
		{Rank: 2, DisplayName: "Bob", Score: 200, Level: 3},
		{Rank: 4, Username: &user, Score: 10, Level: 1},
	})
	assert.Contains(t, out, "🥇 Alice: 300 (L4)")
	assert.Contains(t, out, "🥈 Bob")
	assert.Contains(t, out, "4. @carol: 10 (L1)")

	assert.Equal(t, "🏆 No players yet.", FormatLeaderboard(nil))
}

func TestFormatInventory(t *testing.T) {
	cat := catalog.Default()
	out := FormatInventory(map[string]int{catalog.ItemRocket: 2, catalog.ItemAegis: 1}, cat)
	assert.Contains(t, out, "Aegis Shield (aegis) x1")
	assert.Contains(t, out, "Rocket (rocket) x2")
	assert.Less(t, strings.Index(out, "(aegis)"), strings.Index(out, "(rocket)"))

	assert.Contains(t, FormatInventory(nil, cat), "empty")
}

func TestBuildShopPanel(t *testing.T) {
	items := catalog.Default().Available()
	require.NotEmpty(t, items)

	markup := BuildShopPanel(items)
	rows := markup.InlineKeyboard
	require.Len(t, rows, (len(items)+1)/2+1)
	assert.Equal(t, CallbackShopBuy+items[0].ID, rows[0][0].Unique)
	assert.Equal(t, CallbackShopRefresh, rows[len(rows)-1][0].Unique)
}
