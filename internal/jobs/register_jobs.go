// Package jobs runs the console's periodic background work.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/AurifyAE/Mac-and-Ro/internal/config"
)

// Workspaces is the part of the console registry the jobs drive
type Workspaces interface {
	ResyncAll(ctx context.Context) int
	SweepIdle(now time.Time, maxIdle time.Duration) int
}

// Scheduler owns the recurring jobs
type Scheduler struct {
	cron       *gocron.Scheduler
	workspaces Workspaces
	logger     *zap.Logger
	timeout    time.Duration
	idleTTL    time.Duration
	now        func() time.Time
}

// NewScheduler creates a scheduler for the given workspaces. Jobs are not
// registered until RegisterAll is called.
func NewScheduler(workspaces Workspaces, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:       gocron.NewScheduler(time.UTC),
		workspaces: workspaces,
		logger:     logger,
		timeout:    30 * time.Second,
		now:        time.Now,
	}
}

// RegisterAll registers the resync and idle sweep jobs
func (s *Scheduler) RegisterAll(review config.ReviewConfig, session config.SessionConfig) error {
	if review.ResyncInterval > 0 {
		if _, err := s.cron.Every(review.ResyncInterval).SingletonMode().Do(s.Resync); err != nil {
			return fmt.Errorf("failed to schedule resync job: %w", err)
		}
	}

	s.idleTTL = session.IdleTTL
	if review.IdleSweepMinutes > 0 && s.idleTTL > 0 {
		if _, err := s.cron.Every(review.IdleSweepMinutes).Minutes().SingletonMode().Do(s.SweepIdle); err != nil {
			return fmt.Errorf("failed to schedule idle sweep job: %w", err)
		}
	}
	return nil
}

// Sweeper is in-memory state that must be pruned periodically
type Sweeper interface {
	Sweep() int
}

// RegisterSweeper prunes sw every interval
func (s *Scheduler) RegisterSweeper(name string, interval time.Duration, sw Sweeper) error {
	if interval <= 0 {
		return nil
	}
	_, err := s.cron.Every(interval).SingletonMode().Do(func() {
		if n := sw.Sweep(); n > 0 {
			s.logger.Debug("sweep finished", zap.String("job", name), zap.Int("removed", n))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s sweep: %w", name, err)
	}
	return nil
}

// Start runs the scheduler in the background
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.Int("jobs", len(s.cron.Jobs())))
	s.cron.StartAsync()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Resync reloads every open workspace
func (s *Scheduler) Resync() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := s.now()
	n := s.workspaces.ResyncAll(ctx)
	s.logger.Debug("resync finished",
		zap.Int("workspaces", n),
		zap.Duration("elapsed", s.now().Sub(start)))
}

// SweepIdle closes workspaces whose sessions went quiet
func (s *Scheduler) SweepIdle() {
	if n := s.workspaces.SweepIdle(s.now(), s.idleTTL); n > 0 {
		s.logger.Info("swept idle workspaces", zap.Int("count", n))
	}
}
