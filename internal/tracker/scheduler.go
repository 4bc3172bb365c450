package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vrsandeep/serieswatch/internal/jobs"
	"github.com/vrsandeep/serieswatch/internal/models"
)

// SweepJobID identifies the release sweep in the job manager.
const SweepJobID = "release-sweep"

// Checker performs the per-series check of a sweep.
type Checker interface {
	CheckTracked(ctx context.Context, ts *models.TrackedSeries) ([]*models.NewRelease, error)
}

// DueSource selects the tracked series a sweep should visit.
type DueSource interface {
	DueTrackedSeries(ctx context.Context, staleBefore time.Time, limit int) ([]*models.TrackedSeries, error)
}

type SchedulerConfig struct {
	CheckTime  string // daily, "HH:MM" UTC
	BatchSize  int
	ItemDelay  time.Duration
	StaleAfter time.Duration
}

// Scheduler sweeps due tracked series once a day. At most one sweep runs
// at a time; a sweep requested while another is active is dropped.
type Scheduler struct {
	due      DueSource
	checker  Checker
	manager  *jobs.Manager
	cfg      SchedulerConfig
	log      zerolog.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	mu       sync.Mutex
	schedule *jobs.Schedule
}

type SchedulerOption func(*Scheduler)

// WithSleep replaces the wait between series.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) SchedulerOption {
	return func(s *Scheduler) { s.sleep = sleep }
}

func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

func NewScheduler(due DueSource, checker Checker, manager *jobs.Manager, cfg SchedulerConfig, logger zerolog.Logger, opts ...SchedulerOption) *Scheduler {
	if cfg.CheckTime == "" {
		cfg.CheckTime = "03:00"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 24 * time.Hour
	}
	s := &Scheduler{
		due:     due,
		checker: checker,
		manager: manager,
		cfg:     cfg,
		log:     logger,
		now:     time.Now,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	manager.Register(SweepJobID, "Release sweep", s.sweep)
	return s
}

// Start arms the daily sweep. Starting an armed scheduler is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schedule != nil {
		return nil
	}
	schedule := jobs.NewSchedule(s.manager, s.log)
	if err := schedule.Daily(SweepJobID, s.cfg.CheckTime); err != nil {
		return fmt.Errorf("schedule release sweep at %q: %w", s.cfg.CheckTime, err)
	}
	schedule.Start()
	s.schedule = schedule
	return nil
}

// Stop disarms the daily sweep. A sweep in progress runs to completion.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schedule == nil {
		return
	}
	s.schedule.Stop()
	s.schedule = nil
	s.log.Info().Msg("Release sweep disarmed")
}

// NextRun reports when the armed sweep fires next.
func (s *Scheduler) NextRun() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schedule == nil {
		return time.Time{}, false
	}
	return s.schedule.NextRun(SweepJobID)
}

// RunOnce runs a sweep on the calling goroutine. It returns
// jobs.ErrAlreadyRunning without doing anything if a sweep is active.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	err := s.manager.RunJobSync(ctx, SweepJobID)
	if errors.Is(err, jobs.ErrAlreadyRunning) {
		s.log.Warn().Msg("Release sweep already running, request dropped")
	}
	return err
}

// IsRunning reports whether a sweep is active.
func (s *Scheduler) IsRunning() bool {
	return s.manager.IsRunning(SweepJobID)
}

func (s *Scheduler) sweep(ctx context.Context) error {
	logger := s.log.With().Str("sweep_id", uuid.NewString()).Logger()

	staleBefore := s.now().Add(-s.cfg.StaleAfter)
	due, err := s.due.DueTrackedSeries(ctx, staleBefore, s.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("select due series: %w", err)
	}
	logger.Info().Int("due", len(due)).Msg("Starting release sweep")

	var created, failed int
	for i, ts := range due {
		n, err := s.checkOne(ctx, ts)
		if err != nil {
			failed++
			logger.Error().Err(err).Int64("tracked_series_id", ts.ID).Msg("series check failed")
		}
		created += n

		if i < len(due)-1 {
			if err := s.sleep(ctx, s.cfg.ItemDelay); err != nil {
				logger.Warn().Err(err).Int("checked", i+1).Msg("Release sweep interrupted")
				return err
			}
		}
	}

	logger.Info().Int("checked", len(due)).Int("failed", failed).Int("created", created).Msg("Finished release sweep")
	return nil
}

// checkOne isolates one series so a panic cannot end the sweep.
func (s *Scheduler) checkOne(ctx context.Context, ts *models.TrackedSeries) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("check panicked: %v", r)
		}
	}()
	releases, err := s.checker.CheckTracked(ctx, ts)
	return len(releases), err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
