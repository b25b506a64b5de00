// Package maintenance runs periodic housekeeping: pruning stored history and
// cached results past their retention window.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// #region types
// Pruner deletes records written before a cutoff.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// Target is a named Pruner.
type Target struct {
	Name   string
	Pruner Pruner
}

// Config schedules pruning. RetainDays <= 0 disables it.
type Config struct {
	PruneSchedule string `mapstructure:"prune_schedule"`
	RetainDays    int    `mapstructure:"retain_days"`
}

// DefaultConfig prunes nightly at 03:00, keeping 30 days.
func DefaultConfig() Config {
	return Config{PruneSchedule: "0 3 * * *", RetainDays: 30}
}

// #endregion types

// #region scheduler
// Scheduler runs pruning on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	config  Config
	targets []Target
	logger  zerolog.Logger
	now     func() time.Time
	ctx     context.Context
}

// New validates the schedule and registers the prune job.
func New(config Config, logger zerolog.Logger, targets ...Target) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		config:  config,
		targets: targets,
		logger:  logger.With().Str("component", "maintenance").Logger(),
		now:     time.Now,
		ctx:     context.Background(),
	}
	if config.RetainDays <= 0 {
		return s, nil
	}
	_, err := s.cron.AddFunc(config.PruneSchedule, func() {
		if _, err := s.RunOnce(s.ctx); err != nil {
			s.logger.Error().Err(err).Msg("scheduled prune failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("prune schedule %q: %w", config.PruneSchedule, err)
	}
	return s, nil
}

// Start begins running scheduled jobs. ctx bounds every job run.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx = ctx
	s.cron.Start()
	s.logger.Info().Str("schedule", s.config.PruneSchedule).Int("retain_days", s.config.RetainDays).Msg("maintenance started")
	return nil
}

// Stop waits for any running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// #endregion scheduler

// #region run-once
// RunOnce prunes every target now. All targets are attempted; errors are
// joined.
func (s *Scheduler) RunOnce(ctx context.Context) (map[string]int64, error) {
	removed := make(map[string]int64, len(s.targets))
	if s.config.RetainDays <= 0 {
		return removed, nil
	}
	cutoff := s.now().Add(-time.Duration(s.config.RetainDays) * 24 * time.Hour)

	var errs []error
	for _, t := range s.targets {
		n, err := t.Pruner.Prune(ctx, cutoff)
		if err != nil {
			errs = append(errs, fmt.Errorf("prune %s: %w", t.Name, err))
			continue
		}
		removed[t.Name] = n
		s.logger.Info().Str("target", t.Name).Int64("removed", n).Time("cutoff", cutoff).Msg("pruned")
	}
	return removed, errors.Join(errs...)
}

// #endregion run-once
