package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vrsandeep/serieswatch/internal/catalog"
	"github.com/vrsandeep/serieswatch/internal/models"
	"github.com/vrsandeep/serieswatch/internal/store"
	"github.com/vrsandeep/serieswatch/internal/testutil"
)

// fakeProvider is an in-memory catalog that records every call.
type fakeProvider struct {
	mu       sync.Mutex
	seriesOf map[string]*models.SeriesRef    // book ASIN -> series
	entries  map[string][]models.CanonicalBook // series ASIN -> entries
	calls    []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		seriesOf: map[string]*models.SeriesRef{},
		entries:  map[string][]models.CanonicalBook{},
	}
}

func (p *fakeProvider) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
}

func (p *fakeProvider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakeProvider) Kind() catalog.Kind { return catalog.KindAudible }

func (p *fakeProvider) LookupByID(ctx context.Context, id, region string) *models.CanonicalBook {
	p.record("lookup:" + id)
	return nil
}

func (p *fakeProvider) ListSeriesEntries(ctx context.Context, seriesID, region string) []models.CanonicalBook {
	p.record("list:" + seriesID)
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.CanonicalBook(nil), p.entries[strings.ToUpper(seriesID)]...)
}

func (p *fakeProvider) ResolveSeriesFromBook(ctx context.Context, bookID, region string) *models.SeriesRef {
	p.record("resolve:" + bookID)
	p.mu.Lock()
	defer p.mu.Unlock()
	ref, ok := p.seriesOf[strings.ToUpper(bookID)]
	if !ok {
		return nil
	}
	out := *ref
	return &out
}

func book(asin, title, seriesID, position string) models.CanonicalBook {
	return models.CanonicalBook{
		ASIN:     asin,
		Title:    title,
		Authors:  []string{"A. Author"},
		Series:   []models.SeriesRef{{ID: seriesID, Name: "Saga", Position: position}},
		Provider: string(catalog.KindAudible),
	}
}

// recordingNotifier captures delivered releases.
type recordingNotifier struct {
	mu       sync.Mutex
	err      error
	notified [][]*models.NewRelease
	signals  []int64
}

func (n *recordingNotifier) NotifyNewReleases(ts *models.TrackedSeries, releases []*models.NewRelease) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, releases)
	return n.err
}

func (n *recordingNotifier) SignalReleasesChanged(userID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.signals = append(n.signals, userID)
}

type fixture struct {
	db       *sql.DB
	st       *store.Store
	provider *fakeProvider
	userID   int64
	seriesID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return &fixture{
		db:       db,
		st:       store.New(db),
		provider: newFakeProvider(),
		userID:   testutil.CreateUser(t, db, "reader"),
		seriesID: testutil.CreateSeries(t, db, "Saga"),
	}
}

// track creates a tracked series row without triggering a background check.
func (f *fixture) track(t *testing.T, seriesID int64, externalID string) *models.TrackedSeries {
	t.Helper()
	ctx := context.Background()
	ts, _, err := f.st.FollowSeries(ctx, f.userID, seriesID, "us", false)
	require.NoError(t, err)
	if externalID != "" {
		require.NoError(t, f.st.SetExternalSeriesID(ctx, ts.ID, externalID))
	}
	ts, err = f.st.GetTrackedSeries(ctx, ts.ID)
	require.NoError(t, err)
	return ts
}

func (f *fixture) service(opts ...Option) *Service {
	return NewService(f.st, f.provider, zerolog.Nop(), opts...)
}

func asin(n int) string {
	return fmt.Sprintf("B%09d", n)
}
