package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// SnapshotSource produces evaluation snapshots on demand, e.g. from a
// host probe or an external poller.
type SnapshotSource interface {
	Name() string
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Scheduler drives the periodic checks and snapshot sources on fixed
// intervals.
type Scheduler struct {
	cron        *cron.Cron
	checker     *Checker
	engine      *Engine
	logger      *logrus.Logger
	tickTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler. checker may be nil when only
// snapshot sources are scheduled.
func NewScheduler(checker *Checker, engine *Engine, logger *logrus.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:        cron.New(),
		checker:     checker,
		engine:      engine,
		logger:      logger,
		tickTimeout: 30 * time.Second,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ScheduleChecks registers the point-check pass at the given interval.
func (s *Scheduler) ScheduleChecks(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("check interval must be positive, got %s", interval)
	}
	if s.checker == nil {
		return fmt.Errorf("no checker configured")
	}
	s.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.tickTimeout)
		defer cancel()
		s.checker.RunChecks(ctx)
	}))
	s.logger.WithField("interval", interval.String()).Info("Scheduled periodic checks")
	return nil
}

// ScheduleSource registers a snapshot source at the given interval. A
// failing sample logs and skips the tick.
func (s *Scheduler) ScheduleSource(source SnapshotSource, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("source interval must be positive, got %s", interval)
	}
	s.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.tickTimeout)
		defer cancel()

		snap, err := source.Snapshot(ctx)
		if err != nil {
			s.logger.WithError(err).WithField("source", source.Name()).Warn("Snapshot source failed, skipping tick")
			return
		}
		s.engine.EvaluateTick(ctx, snap)
	}))
	s.logger.WithFields(logrus.Fields{
		"source":   source.Name(),
		"interval": interval.String(),
	}).Info("Scheduled snapshot source")
	return nil
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started")
}

// Stop cancels in-flight ticks and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}
