package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vrsandeep/serieswatch/internal/catalog"
	"github.com/vrsandeep/serieswatch/internal/models"
	"github.com/vrsandeep/serieswatch/internal/store"
	"github.com/vrsandeep/serieswatch/internal/util"
)

// Notifier delivers newly created releases to their owner. Delivery is
// fire-and-forget: its failure never affects tracking state.
type Notifier interface {
	NotifyNewReleases(ts *models.TrackedSeries, releases []*models.NewRelease) error
}

// Signaler tells a user's clients that their release list changed.
type Signaler interface {
	SignalReleasesChanged(userID int64)
}

// Service runs per-series checks and the follow/unfollow/dismiss
// operations around them.
type Service struct {
	st            *store.Store
	provider      catalog.Provider
	resolver      *Resolver
	differ        *Differ
	notifier      Notifier
	signaler      Signaler
	defaultRegion string
	log           zerolog.Logger
	now           func() time.Time
	background    sync.WaitGroup
}

// Option customizes a Service.
type Option func(*Service)

func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

func WithSignaler(sig Signaler) Option { return func(s *Service) { s.signaler = sig } }

// WithDefaultRegion sets the region used by follows that do not name one.
func WithDefaultRegion(region string) Option {
	return func(s *Service) { s.defaultRegion = region }
}

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(st *store.Store, provider catalog.Provider, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		st:            st,
		provider:      provider,
		resolver:      NewResolver(st, provider, logger),
		differ:        NewDiffer(st, provider),
		defaultRegion: catalog.DefaultRegion,
		log:           logger,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !catalog.IsKnownRegion(s.defaultRegion) {
		s.log.Warn().Str("region", s.defaultRegion).Msg("unrecognized default region, using us")
		s.defaultRegion = catalog.DefaultRegion
	}
	s.defaultRegion = catalog.NormalizeRegion(s.defaultRegion)
	return s
}

// Follow tracks seriesID for userID. Following an already tracked series
// returns the existing row. A newly created row gets a background check.
func (s *Service) Follow(ctx context.Context, userID, seriesID int64, region string, auto bool) (*models.TrackedSeries, error) {
	ok, err := s.st.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("user %d: %w", userID, store.ErrNotFound)
	}
	ok, err = s.st.SeriesExists(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("series %d: %w", seriesID, store.ErrNotFound)
	}

	ts, created, err := s.st.FollowSeries(ctx, userID, seriesID, s.followRegion(region), auto)
	if err != nil {
		return nil, fmt.Errorf("follow series %d: %w", seriesID, err)
	}
	if created {
		s.log.Info().Int64("user_id", userID).Int64("series_id", seriesID).Str("region", ts.Region).
			Bool("auto", auto).Msg("Series followed")
		bg := *ts
		s.background.Add(1)
		go s.checkInBackground(&bg)
	}
	return ts, nil
}

func (s *Service) followRegion(region string) string {
	if strings.TrimSpace(region) == "" {
		return s.defaultRegion
	}
	if !catalog.IsKnownRegion(region) {
		s.log.Warn().Str("region", region).Str("fallback", s.defaultRegion).Msg("unrecognized region, downgrading")
		return s.defaultRegion
	}
	return catalog.NormalizeRegion(region)
}

// checkInBackground runs the first check of a new follow detached from the
// request that created it.
func (s *Service) checkInBackground(ts *models.TrackedSeries) {
	defer s.background.Done()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Int64("tracked_series_id", ts.ID).Msg("background check panicked")
		}
	}()
	if _, err := s.CheckTracked(context.Background(), ts); err != nil {
		s.log.Warn().Err(err).Int64("tracked_series_id", ts.ID).Msg("background check failed")
	}
}

// Wait blocks until background checks started by Follow have finished.
func (s *Service) Wait() {
	s.background.Wait()
}

// Unfollow stops tracking and reports whether a row was removed.
func (s *Service) Unfollow(ctx context.Context, userID, seriesID int64) (bool, error) {
	removed, err := s.st.UnfollowSeries(ctx, userID, seriesID)
	if err != nil {
		return false, err
	}
	if removed {
		s.log.Info().Int64("user_id", userID).Int64("series_id", seriesID).Msg("Series unfollowed")
		s.signal(userID)
	}
	return removed, nil
}

// ManualCheck checks one tracked series immediately and returns the
// releases it created. An unknown id yields an empty result.
func (s *Service) ManualCheck(ctx context.Context, trackedSeriesID int64) ([]*models.NewRelease, error) {
	ts, err := s.st.GetTrackedSeries(ctx, trackedSeriesID)
	if errors.Is(err, store.ErrNotFound) {
		return []*models.NewRelease{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.CheckTracked(ctx, ts)
}

// CheckTracked resolves the series identity when missing, then records
// every catalog entry that is neither owned nor already recorded.
func (s *Service) CheckTracked(ctx context.Context, ts *models.TrackedSeries) ([]*models.NewRelease, error) {
	logger := s.log.With().Int64("tracked_series_id", ts.ID).Int64("series_id", ts.SeriesID).
		Str("region", ts.Region).Logger()

	if !ts.HasExternalID() {
		ref, err := s.resolver.Resolve(ctx, ts)
		if err != nil {
			return nil, s.touchAfter(ctx, ts, err)
		}
		if ref == nil {
			logger.Debug().Msg("series identity unresolved, deferring")
			return []*models.NewRelease{}, s.touch(ctx, ts)
		}
		externalID := catalog.NormalizeID(ref.ID)
		if err := s.st.SetExternalSeriesID(ctx, ts.ID, externalID); err != nil {
			return nil, s.touchAfter(ctx, ts, fmt.Errorf("store series identifier: %w", err))
		}
		ts.ExternalSeriesID = &externalID
		logger.Info().Str("external_series_id", externalID).Str("series_name", ref.Name).Msg("Resolved series identity")
	}

	fresh, err := s.differ.Diff(ctx, ts)
	if err != nil {
		return nil, s.touchAfter(ctx, ts, err)
	}

	created := make([]*models.NewRelease, 0, len(fresh))
	for i := range fresh {
		release := s.releaseFromBook(ts, &fresh[i])
		ok, err := s.st.CreateRelease(ctx, release)
		if err != nil {
			logger.Error().Err(err).Str("asin", release.ExternalID).Msg("failed to record release")
			continue
		}
		if ok {
			created = append(created, release)
		}
	}

	// Recorded rows drop out of the next diff, so delivery must not depend
	// on the touch succeeding.
	touchErr := s.touch(ctx, ts)

	if len(created) > 0 {
		logger.Info().Int("count", len(created)).Msg("Found new releases")
		if s.notifier != nil {
			if err := s.notifier.NotifyNewReleases(ts, created); err != nil {
				logger.Warn().Err(err).Msg("release notification failed")
			}
		}
		s.signal(ts.UserID)
	} else {
		logger.Debug().Msg("No new releases")
	}
	return created, touchErr
}

func (s *Service) releaseFromBook(ts *models.TrackedSeries, book *models.CanonicalBook) *models.NewRelease {
	title := book.Title
	if title == "" {
		title = book.ASIN
	}
	provider := book.Provider
	if provider == "" {
		provider = string(s.provider.Kind())
	}
	return &models.NewRelease{
		TrackedSeriesID: ts.ID,
		ExternalID:      book.ASIN,
		Title:           title,
		Author:          strings.Join(book.Authors, ", "),
		Narrator:        strings.Join(book.Narrators, ", "),
		CoverURL:        book.CoverURL,
		ReleaseDate:     book.ReleaseDate,
		Sequence:        util.CleanSequence(book.SequenceFor(*ts.ExternalSeriesID)),
		Provider:        provider,
		DiscoveredAt:    s.now().UTC(),
	}
}

func (s *Service) touch(ctx context.Context, ts *models.TrackedSeries) error {
	now := s.now().UTC()
	if err := s.st.TouchLastChecked(ctx, ts.ID, now); err != nil {
		return fmt.Errorf("update last checked: %w", err)
	}
	ts.LastCheckedAt = &now
	return nil
}

// touchAfter advances last-checked after a failed check and returns the
// original error.
func (s *Service) touchAfter(ctx context.Context, ts *models.TrackedSeries, err error) error {
	if touchErr := s.touch(ctx, ts); touchErr != nil {
		return errors.Join(err, touchErr)
	}
	return err
}

func (s *Service) signal(userID int64) {
	if s.signaler != nil {
		s.signaler.SignalReleasesChanged(userID)
	}
}

// ListTracked returns every series userID follows.
func (s *Service) ListTracked(ctx context.Context, userID int64) ([]*models.TrackedSeries, error) {
	return s.st.ListTrackedSeriesForUser(ctx, userID)
}

// ListReleases returns userID's releases, hiding dismissed ones unless
// includeDismissed is set.
func (s *Service) ListReleases(ctx context.Context, userID int64, includeDismissed bool) ([]*models.NewRelease, error) {
	return s.st.ListReleasesForUser(ctx, userID, includeDismissed)
}

// DismissRelease hides a release for good. It reports false when the
// release does not belong to userID.
func (s *Service) DismissRelease(ctx context.Context, userID, releaseID int64) (bool, error) {
	found, err := s.st.DismissRelease(ctx, userID, releaseID)
	if err != nil {
		return false, err
	}
	if found {
		s.signal(userID)
	}
	return found, nil
}
