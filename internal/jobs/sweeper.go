// Package jobs runs scheduled maintenance.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"missile-bot/internal/core"
)

// Sweeper purges expired game state.
type Sweeper interface {
	Sweep(ctx context.Context) (*core.SweepReport, error)
}

// Pruner drops idle in-memory entries.
type Pruner interface {
	Prune() int
}

// Scheduler runs the sweep on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	pruners []Pruner
	timeout time.Duration
}

// NewScheduler registers the sweep under a cron schedule, e.g. "@every 5m".
func NewScheduler(schedule string, s Sweeper, pruners ...Pruner) (*Scheduler, error) {
	sch := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		sweeper: s,
		pruners: pruners,
		timeout: time.Minute,
	}
	if _, err := sch.cron.AddFunc(schedule, func() { sch.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid sweeper schedule %q: %w", schedule, err)
	}
	return sch, nil
}

// RunOnce performs one sweep and prune pass.
func (s *Scheduler) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rep, err := s.sweeper.Sweep(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Sweep failed")
	} else {
		log.Info().
			Int64("cooldowns", rep.Cooldowns).
			Int64("defenses", rep.Defenses).
			Int64("boosts", rep.Boosts).
			Int64("empty_entries", rep.EmptyEntries).
			Msg("Sweep completed")
	}

	pruned := 0
	for _, p := range s.pruners {
		pruned += p.Prune()
	}
	if pruned > 0 {
		log.Debug().Int("entries", pruned).Msg("Pruned idle limiter entries")
	}
}

// Run starts the schedule and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	log.Info().Msg("Sweeper started")
	<-ctx.Done()
	<-s.cron.Stop().Done()
	log.Info().Msg("Sweeper stopped")
	return nil
}
