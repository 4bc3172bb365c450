package store

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/vrsandeep/serieswatch/internal/models"
	"github.com/vrsandeep/serieswatch/internal/util"
)

const releaseColumns = `
	r.id, r.tracked_series_id, r.external_id, r.title, r.author, r.narrator, r.cover_url,
	r.release_date, r.sequence, r.provider, r.dismissed, r.discovered_at, r.created_at`

func scanRelease(row rowScanner) (*models.NewRelease, error) {
	var r models.NewRelease
	var author, narrator, cover, sequence sql.NullString
	var releaseDate sql.NullTime
	if err := row.Scan(&r.ID, &r.TrackedSeriesID, &r.ExternalID, &r.Title, &author, &narrator, &cover,
		&releaseDate, &sequence, &r.Provider, &r.Dismissed, &r.DiscoveredAt, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Author = author.String
	r.Narrator = narrator.String
	r.CoverURL = cover.String
	r.Sequence = sequence.String
	r.ReleaseDate = nullTimePtr(releaseDate)
	return &r, nil
}

// CreateRelease records a newly detected release. If the external item is
// already recorded for the tracked series the insert is a no-op and
// created is false. On success r.ID and timestamps are filled in.
func (s *Store) CreateRelease(ctx context.Context, r *models.NewRelease) (bool, error) {
	now := time.Now().UTC()
	if r.DiscoveredAt.IsZero() {
		r.DiscoveredAt = now
	}
	r.CreatedAt = now
	r.ExternalID = normalizeExternalID(r.ExternalID)

	query := `
		INSERT INTO new_releases
		(tracked_series_id, external_id, title, author, narrator, cover_url, release_date,
		 sequence, provider, dismissed, discovered_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(tracked_series_id, external_id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		r.TrackedSeriesID, r.ExternalID, r.Title, r.Author, r.Narrator, r.CoverURL, r.ReleaseDate,
		r.Sequence, r.Provider, r.DiscoveredAt, r.CreatedAt)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}
	r.ID, err = res.LastInsertId()
	r.Dismissed = false
	return true, err
}

// ReleaseExternalIDs returns the set of external identifiers already
// recorded for a tracked series, uppercased.
func (s *Store) ReleaseExternalIDs(ctx context.Context, trackedSeriesID int64) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT external_id FROM new_releases WHERE tracked_series_id = ?", trackedSeriesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[normalizeExternalID(id)] = struct{}{}
	}
	return ids, rows.Err()
}

// GetRelease retrieves a single release by its primary key.
func (s *Store) GetRelease(ctx context.Context, id int64) (*models.NewRelease, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+releaseColumns+` FROM new_releases r WHERE r.id = ?`, id)
	r, err := scanRelease(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// ListReleasesForTracked lists a tracked series' releases in series order.
func (s *Store) ListReleasesForTracked(ctx context.Context, trackedSeriesID int64, includeDismissed bool) ([]*models.NewRelease, error) {
	query := `SELECT ` + releaseColumns + ` FROM new_releases r WHERE r.tracked_series_id = ?`
	if !includeDismissed {
		query += ` AND r.dismissed = 0`
	}
	return s.queryReleases(ctx, query, trackedSeriesID)
}

// ListReleasesForUser lists the releases of every series a user follows,
// grouped by tracked series and in series order within each group.
func (s *Store) ListReleasesForUser(ctx context.Context, userID int64, includeDismissed bool) ([]*models.NewRelease, error) {
	query := `SELECT ` + releaseColumns + `
		FROM new_releases r
		JOIN tracked_series ts ON ts.id = r.tracked_series_id
		WHERE ts.user_id = ?`
	if !includeDismissed {
		query += ` AND r.dismissed = 0`
	}
	return s.queryReleases(ctx, query, userID)
}

func (s *Store) queryReleases(ctx context.Context, query string, args ...any) ([]*models.NewRelease, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.NewRelease
	for rows.Next() {
		r, err := scanRelease(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortReleases(out)
	return out, nil
}

// sortReleases orders by tracked series, then numeric sequence ascending
// with non-numeric or missing markers last.
func sortReleases(releases []*models.NewRelease) {
	sort.SliceStable(releases, func(i, j int) bool {
		a, b := releases[i], releases[j]
		if a.TrackedSeriesID != b.TrackedSeriesID {
			return a.TrackedSeriesID < b.TrackedSeriesID
		}
		return util.SequenceLess(a.Sequence, a.Title, b.Sequence, b.Title)
	})
}

// DismissRelease marks a user's release as dismissed. Dismissal cannot be
// undone. It reports whether the release exists for that user.
func (s *Store) DismissRelease(ctx context.Context, userID, releaseID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE new_releases SET dismissed = 1
		WHERE id = ? AND tracked_series_id IN (SELECT id FROM tracked_series WHERE user_id = ?)`,
		releaseID, userID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
