package service

import (
	"context"
	"fmt"
	"time"

	"missile-bot/internal/game/progression"
	"missile-bot/internal/model"
	"missile-bot/internal/repository"
)

// Leaderboard limits.
const (
	DefaultLeaderboardSize = 10
	MaxLeaderboardSize     = 50
)

// RankingService handles ranking and leaderboard operations.
type RankingService struct {
	Deps
}

// NewRankingService creates a new RankingService instance.
func NewRankingService(deps Deps) *RankingService {
	return &RankingService{Deps: deps}
}

// Leaderboard returns the top players of a chat by score.
func (s *RankingService) Leaderboard(ctx context.Context, chatID int64, limit int) ([]model.LeaderboardEntry, error) {
	if limit < 1 {
		limit = DefaultLeaderboardSize
	}
	limit = min(limit, MaxLeaderboardSize)
	var entries []model.LeaderboardEntry
	err := s.read(ctx, func(r *repository.Repos, _ int64) error {
		var err error
		entries, err = r.Players.Leaderboard(ctx, chatID, limit)
		return err
	})
	return entries, err
}

// Rank returns the competition rank of a registered player.
func (s *RankingService) Rank(ctx context.Context, chatID, userID int64) (int64, error) {
	var rank int64
	err := s.read(ctx, func(r *repository.Repos, _ int64) error {
		if _, err := r.Players.Get(ctx, chatID, userID); err != nil {
			return err
		}
		var err error
		rank, err = r.Players.Rank(ctx, chatID, userID)
		return err
	})
	return rank, err
}

// CreditResult is the outcome of an activity credit.
type CreditResult struct {
	Gain    int64 `json:"gain"`
	Score   int64 `json:"score"`
	Level   int   `json:"level"`
	LevelUp bool  `json:"level_up"`
}

// CreditActivity adds the score of a benign activity and recomputes the level.
func (s *RankingService) CreditActivity(ctx context.Context, chatID, userID int64, activity progression.Activity) (*CreditResult, error) {
	gain, ok := progression.ActivityScore(activity)
	if !ok {
		return nil, fmt.Errorf("unknown activity %q", activity)
	}
	var res *CreditResult
	err := s.inTx(ctx, func(r *repository.Repos, now int64) error {
		p, err := r.Players.GetForUpdate(ctx, chatID, userID)
		if err != nil {
			return err
		}
		levelUp := addScore(p, gain)
		p.LastActive = now
		if err := r.Players.Save(ctx, p); err != nil {
			return err
		}
		res = &CreditResult{Gain: gain, Score: p.Score, Level: p.Level, LevelUp: levelUp}
		return nil
	})
	return res, err
}

// CreditMessage credits the message activity at most once per interval.
// It returns nil, nil while the previous credit's interval is running.
func (s *RankingService) CreditMessage(ctx context.Context, chatID, userID int64, interval time.Duration) (*CreditResult, error) {
	gain, _ := progression.ActivityScore(progression.ActivityMessage)
	secs := int64(interval / time.Second)
	var res *CreditResult
	err := s.inTx(ctx, func(r *repository.Repos, now int64) error {
		p, err := r.Players.GetForUpdate(ctx, chatID, userID)
		if err != nil {
			return err
		}
		if secs > 0 {
			exp, err := r.Cooldowns.ExpiresAt(ctx, chatID, userID, model.ActionMessage, now)
			if err != nil {
				return err
			}
			if exp > now {
				return nil
			}
		}
		levelUp := addScore(p, gain)
		p.LastActive = now
		if err := r.Players.Save(ctx, p); err != nil {
			return err
		}
		if secs > 0 {
			if err := r.Cooldowns.Set(ctx, chatID, userID, model.ActionMessage, now, now+secs); err != nil {
				return err
			}
		}
		res = &CreditResult{Gain: gain, Score: p.Score, Level: p.Level, LevelUp: levelUp}
		return nil
	})
	return res, err
}

// ChatStats aggregates a chat.
func (s *RankingService) ChatStats(ctx context.Context, chatID int64) (*model.ChatStats, error) {
	var stats *model.ChatStats
	err := s.read(ctx, func(r *repository.Repos, _ int64) error {
		var err error
		stats, err = r.Players.ChatStats(ctx, chatID)
		return err
	})
	return stats, err
}
