package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// Schedule submits registered jobs to a Manager on a cron cadence. Runs
// triggered by the schedule go through the manager, so they never overlap
// with manually triggered runs of the same job.
type Schedule struct {
	mu      sync.Mutex
	manager *Manager
	cron    *gocron.Scheduler
	log     zerolog.Logger
}

func NewSchedule(manager *Manager, logger zerolog.Logger) *Schedule {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Schedule{manager: manager, cron: s, log: logger}
}

// Daily arms jobID to run every day at the given UTC time of day ("HH:MM").
func (s *Schedule) Daily(jobID, at string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Info().Str("job", jobID).Str("at", at).Msg("Scheduling daily job")
	_, err := s.cron.Every(1).Day().At(at).Tag(jobID).Do(func() {
		s.log.Info().Str("job", jobID).Msg("Scheduler is triggering job")
		// Submit the job to the manager instead of running it directly.
		// This prevents conflicts with manually triggered jobs.
		if err := s.manager.RunJob(context.Background(), jobID); err != nil {
			if errors.Is(err, ErrAlreadyRunning) {
				s.log.Warn().Str("job", jobID).Msg("Scheduled job skipped, previous run still active")
				return
			}
			s.log.Error().Err(err).Str("job", jobID).Msg("Scheduled job could not start")
		}
	})
	return err
}

// Start begins firing scheduled jobs in the background.
func (s *Schedule) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.Info().Msg("Starting background job scheduler...")
	s.cron.StartAsync()
}

// Stop disarms every scheduled job. Runs already in progress finish.
func (s *Schedule) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cron.Clear()
	s.cron.Stop()
}

// NextRun reports when jobID fires next.
func (s *Schedule) NextRun(jobID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.cron.Jobs() {
		for _, tag := range j.Tags() {
			if tag == jobID {
				return j.NextRun(), true
			}
		}
	}
	return time.Time{}, false
}
