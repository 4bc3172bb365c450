package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/vrsandeep/serieswatch/internal/catalog"
	"github.com/vrsandeep/serieswatch/internal/models"
)

// KnownIDs exposes the identifier sets a diff excludes.
type KnownIDs interface {
	OwnedExternalIDs(ctx context.Context, seriesID int64) (map[string]struct{}, error)
	ReleaseExternalIDs(ctx context.Context, trackedSeriesID int64) (map[string]struct{}, error)
}

// Differ finds catalog entries of a series that are neither owned nor
// already recorded as releases.
type Differ struct {
	known    KnownIDs
	provider catalog.Provider
}

func NewDiffer(known KnownIDs, provider catalog.Provider) *Differ {
	return &Differ{known: known, provider: provider}
}

// Diff returns the new entries in the order the catalog listed them. It
// only fails on local lookup errors; a catalog with nothing to report
// yields an empty result.
func (d *Differ) Diff(ctx context.Context, ts *models.TrackedSeries) ([]models.CanonicalBook, error) {
	if !ts.HasExternalID() {
		return nil, nil
	}
	entries := d.provider.ListSeriesEntries(ctx, *ts.ExternalSeriesID, ts.Region)
	if len(entries) == 0 {
		return nil, nil
	}

	owned, err := d.known.OwnedExternalIDs(ctx, ts.SeriesID)
	if err != nil {
		return nil, fmt.Errorf("load owned identifiers: %w", err)
	}
	recorded, err := d.known.ReleaseExternalIDs(ctx, ts.ID)
	if err != nil {
		return nil, fmt.Errorf("load recorded identifiers: %w", err)
	}

	var fresh []models.CanonicalBook
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		id := strings.ToUpper(strings.TrimSpace(entry.ASIN))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := owned[id]; ok {
			continue
		}
		if _, ok := recorded[id]; ok {
			continue
		}
		entry.ASIN = id
		fresh = append(fresh, entry)
	}
	return fresh, nil
}
