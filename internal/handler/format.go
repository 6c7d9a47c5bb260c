package handler

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"missile-bot/internal/catalog"
	"missile-bot/internal/core"
	"missile-bot/internal/game/combat"
	"missile-bot/internal/model"
	"missile-bot/internal/service"
)

func seconds(s int64) string {
	return (time.Duration(s) * time.Second).String()
}

// FormatError renders a core error for the chat.
func FormatError(err error) string {
	var (
		cooldown     *model.CooldownError
		insufficient *model.InsufficientBalanceError
		notOwned     *model.NotOwnedError
		disallowed   *model.DisallowedError
	)
	switch {
	case errors.As(err, &cooldown):
		return fmt.Sprintf("⏳ Not ready yet, try again in %s.", seconds(cooldown.Remaining))
	case errors.As(err, &insufficient):
		return fmt.Sprintf("💸 Not enough %s: need %d, you have %d.", insufficient.Currency, insufficient.Needed, insufficient.Have)
	case errors.As(err, &notOwned):
		return fmt.Sprintf("🎒 You don't have any %s.", notOwned.ItemID)
	case errors.As(err, &disallowed):
		return fmt.Sprintf("🚫 %s is not available: %s.", disallowed.ItemID, strings.ReplaceAll(disallowed.Reason, "_", " "))
	}
	if errors.Is(err, model.ErrForeignInvoice) {
		return "🧾 This invoice was issued to another player. Use /buy to get your own."
	}

	switch core.ErrorKind(err) {
	case core.KindNotRegistered:
		return "👋 Send /start in this group first."
	case core.KindIneligibleTarget:
		return "🎯 Reply to a player's message or name them with @username. You can't target yourself or the bot."
	case core.KindNoWeapon:
		return "🚀 You don't have that weapon. Check /shop."
	case core.KindAlreadyActive:
		return "🛡️ That defense is already active."
	case core.KindUnknownItem:
		return "❓ Unknown item. See /shop for item ids."
	case core.KindConflict:
		return "🔁 Too much going on at once, please retry."
	case core.KindTransientIO:
		return "⚠️ The game is busy, please try again in a moment."
	case core.KindPrivateChat:
		return "👥 The game is played in groups. Add me to a group!"
	case core.KindRateLimited:
		return "🐢 Slow down a little."
	case core.KindInvalidAmount:
		return "🔢 Invalid amount."
	case core.KindInvalidPayload:
		return "🧾 That payment could not be verified."
	}
	return "❌ Something went wrong, please try again later."
}

// FormatOutcome renders an attack.
func FormatOutcome(out *combat.Outcome) string {
	var b strings.Builder
	switch out.Result {
	case combat.ResultBlocked:
		b.WriteString("🛡️ Blocked! The target's shield absorbed the strike.")
	case combat.ResultMiss:
		fmt.Fprintf(&b, "💨 Missed! (rolled %d, needed ≤ %d)", out.Roll, out.HitChance)
	case combat.ResultHit:
		if out.Critical {
			b.WriteString("💥 CRITICAL HIT! ")
		} else {
			b.WriteString("🎯 Hit! ")
		}
		fmt.Fprintf(&b, "%d damage with %s.", out.FinalDamage, out.WeaponID)
		if out.DefenseReduced {
			b.WriteString(" Intercept reduced the damage.")
		}
		fmt.Fprintf(&b, "\n🏅 Loot: %d medals, +%d score.", out.Loot, out.ScoreGain)
		if out.Defeated {
			fmt.Fprintf(&b, "\n☠️ Target defeated! Bonus %d medals.", out.DefeatBonus)
		}
	}
	if out.LevelUp {
		fmt.Fprintf(&b, "\n⬆️ Level up! You are now level %d.", out.AttackerLevel)
	}
	fmt.Fprintf(&b, "\n⏱️ Next attack in %s.", seconds(out.CooldownRemaining))
	return b.String()
}

// FormatDefense renders a defense activation.
func FormatDefense(res *service.DefenseResult) string {
	var b strings.Builder
	if res.Purchased != nil {
		fmt.Fprintf(&b, "🛒 Bought %s for %d %s.\n", res.Purchased.ItemID, res.Purchased.Price, res.Purchased.Currency)
	}
	d := res.Defense
	fmt.Fprintf(&b, "🛡️ %s active for %s.", d.ItemID, seconds(d.ExpiresAt-d.ActivatedAt))
	if d.DefenseType == model.DefenseIntercept {
		fmt.Fprintf(&b, " Hit chance against you -%d%%, damage -%d%%.", d.InterceptBonus, int(d.Effectiveness*100))
	}
	fmt.Fprintf(&b, " (%d left)", res.Remaining)
	return b.String()
}

// FormatUse renders a consumable use.
func FormatUse(res *service.UseResult) string {
	var parts []string
	a := res.Applied
	if a == nil {
		a = &service.Applied{}
	}
	if a.HPRestored > 0 {
		parts = append(parts, fmt.Sprintf("❤️ +%d hp", a.HPRestored))
	}
	if a.MaxHPRaised > 0 {
		parts = append(parts, fmt.Sprintf("🏗️ max hp +%d", a.MaxHPRaised))
	}
	if a.MedalsGained > 0 {
		parts = append(parts, fmt.Sprintf("🏅 +%d medals", a.MedalsGained))
	}
	if a.Boost != nil {
		parts = append(parts, fmt.Sprintf("✨ %s boost for %s", a.Boost.BoostType, seconds(a.Boost.ExpiresAt-a.Boost.ActivatedAt)))
	}
	if len(parts) == 0 {
		parts = append(parts, "no effect")
	}
	return fmt.Sprintf("Used %s: %s. HP %d/%d.", res.ItemID, strings.Join(parts, ", "), res.HP, res.MaxHP)
}

// FormatPurchase renders a completed purchase.
func FormatPurchase(res *service.PurchaseResult) string {
	msg := fmt.Sprintf("🛒 Bought %s for %d %s.", res.ItemID, res.Price, res.Currency)
	if res.Qty > 0 {
		msg += fmt.Sprintf(" You now have %d.", res.Qty)
	}
	if res.Applied != nil && res.Applied.Boost != nil {
		msg += fmt.Sprintf(" %s is active.", res.Applied.Boost.BoostType)
	}
	return msg
}

// FormatStatus renders a player's status.
func FormatStatus(st *core.Status) string {
	p := st.Player
	var b strings.Builder
	fmt.Fprintf(&b, "👤 %s\n", p.Name())
	fmt.Fprintf(&b, "⭐ Level %d, score %d (next level at %d), rank #%d\n", p.Level, p.Score, st.NextLevelScore, st.Rank)
	fmt.Fprintf(&b, "🏅 %d medals, 🌟 %d stars\n", p.Medals, p.Stars)
	fmt.Fprintf(&b, "❤️ %d/%d hp\n", p.HP, p.MaxHP)
	fmt.Fprintf(&b, "⚔️ %d attacks, %d damage dealt; hit %d times, %d damage taken\n",
		p.TotalAttacks, p.TotalDamageDealt, p.TimesAttacked, p.DamageTaken)
	if st.Defense != nil {
		fmt.Fprintf(&b, "🛡️ %s (%s)\n", st.Defense.ItemID, st.Defense.DefenseType)
	}
	for _, boost := range st.Boosts {
		fmt.Fprintf(&b, "✨ %s x%.2g\n", boost.BoostType, boost.Value)
	}
	if st.AttackCooldown > 0 {
		fmt.Fprintf(&b, "⏱️ attack ready in %s\n", seconds(st.AttackCooldown))
	}
	if st.DailyCooldown > 0 {
		fmt.Fprintf(&b, "🎁 bonus ready in %s\n", seconds(st.DailyCooldown))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatInventory renders item stacks sorted by id.
func FormatInventory(items map[string]int, cat *catalog.Catalog) string {
	if len(items) == 0 {
		return "🎒 Your inventory is empty. See /shop."
	}
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var b strings.Builder
	b.WriteString("🎒 Inventory")
	for _, id := range ids {
		label := id
		if it, ok := cat.Get(id); ok {
			label = it.Emoji + " " + it.Name
		}
		fmt.Fprintf(&b, "\n%s (%s) x%d", label, id, items[id])
	}
	return b.String()
}

// FormatLeaderboard renders a leaderboard.
func FormatLeaderboard(entries []model.LeaderboardEntry) string {
	if len(entries) == 0 {
		return "🏆 No players yet."
	}
	medals := []string{"🥇", "🥈", "🥉"}
	var b strings.Builder
	b.WriteString("🏆 Leaderboard")
	for _, e := range entries {
		rank := fmt.Sprintf("%d.", e.Rank)
		if e.Rank >= 1 && e.Rank <= 3 {
			rank = medals[e.Rank-1]
		}
		name := e.DisplayName
		if name == "" && e.Username != nil {
			name = "@" + *e.Username
		}
		fmt.Fprintf(&b, "\n%s %s: %d (L%d)", rank, name, e.Score, e.Level)
	}
	return b.String()
}

// FormatShopItem renders one catalog line.
func FormatShopItem(it catalog.Item) string {
	price, currency := catalog.Price(it)
	symbol := "🏅"
	if currency == model.CurrencyStars {
		symbol = "🌟"
	}
	return fmt.Sprintf("%s %s (%s) %d%s", it.Emoji, it.Name, it.ID, price, symbol)
}
