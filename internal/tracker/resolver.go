package tracker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vrsandeep/serieswatch/internal/catalog"
	"github.com/vrsandeep/serieswatch/internal/models"
	"github.com/vrsandeep/serieswatch/internal/util"
)

// Library exposes the books a user already holds for a local series.
type Library interface {
	GetOwnedBooksForSeries(ctx context.Context, seriesID int64) ([]models.OwnedBook, error)
}

// Resolver discovers the canonical series identifier of a tracked series
// from the books already in the library.
type Resolver struct {
	library  Library
	provider catalog.Provider
	log      zerolog.Logger
}

func NewResolver(library Library, provider catalog.Provider, logger zerolog.Logger) *Resolver {
	return &Resolver{library: library, provider: provider, log: logger}
}

// Resolve tries owned books in library order and returns the first series
// the catalog reports for one of them. A nil result with a nil error means
// no book could be resolved this time.
func (r *Resolver) Resolve(ctx context.Context, ts *models.TrackedSeries) (*models.SeriesRef, error) {
	books, err := r.library.GetOwnedBooksForSeries(ctx, ts.SeriesID)
	if err != nil {
		return nil, fmt.Errorf("load owned books for series %d: %w", ts.SeriesID, err)
	}

	attempts := make([]util.Attempt[*models.SeriesRef], 0, len(books))
	for _, book := range books {
		if !catalog.IsValidID(book.ExternalID) {
			continue
		}
		bookID := book.ExternalID
		attempts = append(attempts, func(ctx context.Context) (*models.SeriesRef, bool) {
			ref := r.provider.ResolveSeriesFromBook(ctx, bookID, ts.Region)
			return ref, ref != nil && ref.ID != ""
		})
	}
	if len(attempts) == 0 {
		r.log.Debug().Int64("tracked_series_id", ts.ID).Msg("no owned book carries a usable identifier")
		return nil, nil
	}

	ref, ok := util.FirstOf(ctx, attempts...)
	if !ok {
		return nil, nil
	}
	return ref, nil
}
