package tracker

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrsandeep/serieswatch/internal/jobs"
	"github.com/vrsandeep/serieswatch/internal/models"
	"github.com/vrsandeep/serieswatch/internal/testutil"
)

// scriptedChecker records the order of checks and lets tests inject
// failures per tracked series id.
type scriptedChecker struct {
	mu      sync.Mutex
	order   []int64
	fail    map[int64]error
	panicOn map[int64]bool
	block   chan struct{}
	entered chan struct{}
}

func (c *scriptedChecker) CheckTracked(ctx context.Context, ts *models.TrackedSeries) ([]*models.NewRelease, error) {
	c.mu.Lock()
	c.order = append(c.order, ts.ID)
	c.mu.Unlock()
	if c.entered != nil {
		c.entered <- struct{}{}
	}
	if c.block != nil {
		<-c.block
	}
	if c.panicOn[ts.ID] {
		panic("provider exploded")
	}
	return nil, c.fail[ts.ID]
}

func (c *scriptedChecker) Order() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.order...)
}

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return nil
}

// trackedAt creates a tracked row last checked at the given time; a zero
// time leaves it never checked.
func trackedAt(t *testing.T, f *fixture, title string, checked time.Time) int64 {
	t.Helper()
	seriesID := testutil.CreateSeries(t, f.db, title)
	ts := f.track(t, seriesID, "")
	if !checked.IsZero() {
		require.NoError(t, f.st.TouchLastChecked(context.Background(), ts.ID, checked))
	}
	return ts.ID
}

func TestScheduler_DueOrderAndDelay(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)
	twelve := trackedAt(t, f, "Twelve", now.Add(-12*time.Hour))
	fresh := trackedAt(t, f, "Fresh", now.Add(-1*time.Hour))
	never := trackedAt(t, f, "Never", time.Time{})
	fortyEight := trackedAt(t, f, "FortyEight", now.Add(-48*time.Hour))

	checker := &scriptedChecker{}
	sleeper := &sleepRecorder{}
	cfg := SchedulerConfig{StaleAfter: 6 * time.Hour, ItemDelay: 2 * time.Second}
	s := NewScheduler(f.st, checker, jobs.NewManager(zerolog.Nop()), cfg, zerolog.Nop(),
		WithSleep(sleeper.sleep), WithSchedulerClock(func() time.Time { return now }))

	require.NoError(t, s.RunOnce(context.Background()))

	assert.Equal(t, []int64{never, fortyEight, twelve}, checker.Order())
	assert.NotContains(t, checker.Order(), fresh)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, sleeper.waits, "no delay after the last series")
}

func TestScheduler_BatchSize(t *testing.T) {
	f := newFixture(t)
	first := trackedAt(t, f, "One", time.Time{})
	second := trackedAt(t, f, "Two", time.Time{})
	trackedAt(t, f, "Three", time.Time{})

	checker := &scriptedChecker{}
	s := NewScheduler(f.st, checker, jobs.NewManager(zerolog.Nop()), SchedulerConfig{BatchSize: 2}, zerolog.Nop(),
		WithSleep(func(context.Context, time.Duration) error { return nil }))

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, []int64{first, second}, checker.Order())
}

func TestScheduler_FailuresAreIsolated(t *testing.T) {
	f := newFixture(t)
	a := trackedAt(t, f, "A", time.Time{})
	b := trackedAt(t, f, "B", time.Time{})
	c := trackedAt(t, f, "C", time.Time{})

	checker := &scriptedChecker{
		fail:    map[int64]error{a: errors.New("store hiccup")},
		panicOn: map[int64]bool{b: true},
	}
	s := NewScheduler(f.st, checker, jobs.NewManager(zerolog.Nop()), SchedulerConfig{}, zerolog.Nop(),
		WithSleep(func(context.Context, time.Duration) error { return nil }))

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, []int64{a, b, c}, checker.Order())
	assert.False(t, s.IsRunning())

	// The single-flight guard was released, so another sweep can run.
	require.NoError(t, s.RunOnce(context.Background()))
}

func TestScheduler_SingleFlight(t *testing.T) {
	f := newFixture(t)
	trackedAt(t, f, "A", time.Time{})

	var logs bytes.Buffer
	var logMu sync.Mutex
	logger := zerolog.New(&lockedWriter{mu: &logMu, w: &logs})

	checker := &scriptedChecker{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	s := NewScheduler(f.st, checker, jobs.NewManager(logger), SchedulerConfig{}, logger,
		WithSleep(func(context.Context, time.Duration) error { return nil }))

	done := make(chan error, 1)
	go func() { done <- s.RunOnce(context.Background()) }()
	<-checker.entered
	assert.True(t, s.IsRunning())

	err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, jobs.ErrAlreadyRunning)

	close(checker.block)
	require.NoError(t, <-done)
	assert.False(t, s.IsRunning())
	assert.Len(t, checker.Order(), 1, "the dropped request checked nothing")

	logMu.Lock()
	out := logs.String()
	logMu.Unlock()
	assert.Equal(t, 1, strings.Count(out, "Starting release sweep"))
	assert.Equal(t, 1, strings.Count(out, "Starting job"))
	assert.Contains(t, out, "already running")
}

func TestScheduler_StartStop(t *testing.T) {
	f := newFixture(t)
	s := NewScheduler(f.st, &scriptedChecker{}, jobs.NewManager(zerolog.Nop()), SchedulerConfig{CheckTime: "04:30"}, zerolog.Nop())

	// Stopping an unarmed scheduler is harmless.
	s.Stop()
	_, armed := s.NextRun()
	assert.False(t, armed)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	next, armed := s.NextRun()
	require.True(t, armed)
	assert.Equal(t, 4, next.UTC().Hour())
	assert.Equal(t, 30, next.UTC().Minute())

	s.Stop()
	_, armed = s.NextRun()
	assert.False(t, armed)
	s.Stop()
}

type lockedWriter struct {
	mu *sync.Mutex
	w  *bytes.Buffer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
