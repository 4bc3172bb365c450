package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrAlreadyRunning is returned when a job is triggered while a previous
	// run of the same job has not finished.
	ErrAlreadyRunning = errors.New("job is already running")
	ErrJobNotFound    = errors.New("job not found")
	ErrShuttingDown   = errors.New("job manager is shutting down")
)

// Task is the body of a job.
type Task func(ctx context.Context) error

type JobStatus struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"` // "idle", "running", "success", "failed"
	Message   string    `json:"message"`
	StartTime time.Time `json:"start_time,omitempty"`
	EndTime   time.Time `json:"end_time,omitempty"`
}

type job struct {
	task    Task
	status  JobStatus
	running bool
	cancel  context.CancelFunc
}

// Manager runs registered jobs with at most one active run per job.
type Manager struct {
	mu      sync.Mutex
	jobs    map[string]*job
	log     zerolog.Logger
	active  sync.WaitGroup
	stopped bool
}

func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{
		jobs: make(map[string]*job),
		log:  logger,
	}
}

func (m *Manager) Register(id, name string, task Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id] = &job{
		task:   task,
		status: JobStatus{ID: id, Name: name, Status: "idle"},
	}
}

// RunJob starts the job in a new goroutine and returns immediately.
func (m *Manager) RunJob(ctx context.Context, id string) error {
	j, runCtx, err := m.acquire(ctx, id)
	if err != nil {
		return err
	}
	go m.execute(runCtx, id, j)
	return nil
}

// RunJobSync runs the job on the calling goroutine and returns the task's
// error.
func (m *Manager) RunJobSync(ctx context.Context, id string) error {
	j, runCtx, err := m.acquire(ctx, id)
	if err != nil {
		return err
	}
	return m.execute(runCtx, id, j)
}

// Shutdown cancels every active run and waits for it to return. Later
// triggers fail with ErrShuttingDown.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.stopped = true
	for id, j := range m.jobs {
		if j.running && j.cancel != nil {
			m.log.Info().Str("job", id).Msg("Cancelling job for shutdown")
			j.cancel()
		}
	}
	m.mu.Unlock()
	m.active.Wait()
}

// IsRunning reports whether the job has an active run.
func (m *Manager) IsRunning(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	return ok && j.running
}

func (m *Manager) acquire(ctx context.Context, id string) (*job, context.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return nil, nil, ErrShuttingDown
	}
	j, ok := m.jobs[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: '%s'", ErrJobNotFound, id)
	}
	if j.running {
		return nil, nil, ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.active.Add(1)
	j.cancel = cancel
	j.running = true
	j.status.Status = "running"
	j.status.StartTime = time.Now()
	j.status.EndTime = time.Time{}
	j.status.Message = "Job started..."
	return j, runCtx, nil
}

func (m *Manager) execute(ctx context.Context, id string, j *job) (err error) {
	m.log.Info().Str("job", id).Msg("Starting job")
	defer func() {
		// Ensure we always update the status and release the job
		if r := recover(); r != nil {
			m.log.Error().Str("job", id).Interface("panic", r).Msg("Job panicked")
			err = fmt.Errorf("job '%s' panicked: %v", id, r)
		}

		m.mu.Lock()
		j.status.EndTime = time.Now()
		if err != nil {
			j.status.Status = "failed"
			j.status.Message = err.Error()
		} else {
			j.status.Status = "success"
			j.status.Message = "Job completed successfully."
		}
		status := j.status.Status
		j.running = false
		j.cancel()
		j.cancel = nil
		m.mu.Unlock()
		m.log.Info().Str("job", id).Str("status", status).Msg("Finished job")
		m.active.Done()
	}()

	return j.task(ctx)
}

// GetStatus returns a snapshot of every registered job, sorted by id.
func (m *Manager) GetStatus() []JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	statuses := make([]JobStatus, 0, len(m.jobs))
	for _, j := range m.jobs {
		statuses = append(statuses, j.status)
	}
	sort.Slice(statuses, func(i, k int) bool { return statuses[i].ID < statuses[k].ID })
	return statuses
}
