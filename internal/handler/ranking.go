package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"missile-bot/internal/adapter"
	"missile-bot/internal/model"
)

// RankingHandler handles leaderboard and chat statistics commands.
type RankingHandler struct {
	adapter *adapter.Adapter
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(a *adapter.Adapter) *RankingHandler {
	return &RankingHandler{adapter: a}
}

// HandleTop handles /top [n].
func (h *RankingHandler) HandleTop(c tele.Context) error {
	return reply(c, func(ctx context.Context, ev *adapter.Event) (string, error) {
		entries, err := h.adapter.Leaderboard(ctx, ev)
		if err != nil {
			return "", err
		}
		return FormatLeaderboard(entries), nil
	})
}

// HandleStats handles /stats.
func (h *RankingHandler) HandleStats(c tele.Context) error {
	return reply(c, func(ctx context.Context, ev *adapter.Event) (string, error) {
		st, err := h.adapter.ChatStats(ctx, ev)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("📊 %d players, %d hits landed, %d total damage.", st.Players, st.TotalAttacks, st.TotalDamage), nil
	})
}

// HandleHistory handles /history [n].
func (h *RankingHandler) HandleHistory(c tele.Context) error {
	return reply(c, func(ctx context.Context, ev *adapter.Event) (string, error) {
		records, err := h.adapter.History(ctx, ev)
		if err != nil {
			return "", err
		}
		return FormatHistory(records), nil
	})
}

// FormatHistory renders recent hits, newest first.
func FormatHistory(records []model.AttackRecord) string {
	if len(records) == 0 {
		return "📜 No hits yet."
	}
	var b strings.Builder
	b.WriteString("📜 Recent hits")
	for _, r := range records {
		crit := ""
		if r.IsCritical {
			crit = " 💥"
		}
		fmt.Fprintf(&b, "\n%s %d → %d: %d with %s%s",
			time.Unix(r.AttackTime, 0).UTC().Format("01-02 15:04"), r.AttackerID, r.VictimID, r.Damage, r.WeaponID, crit)
	}
	return b.String()
}
