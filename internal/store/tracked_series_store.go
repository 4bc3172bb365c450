package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vrsandeep/serieswatch/internal/models"
)

const trackedSeriesColumns = `
	ts.id, ts.user_id, ts.series_id, COALESCE(s.title, ''), ts.external_series_id,
	ts.is_auto, ts.region, ts.last_checked_at, ts.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrackedSeries(row rowScanner) (*models.TrackedSeries, error) {
	var ts models.TrackedSeries
	var externalID sql.NullString
	var lastChecked sql.NullTime
	if err := row.Scan(&ts.ID, &ts.UserID, &ts.SeriesID, &ts.SeriesTitle, &externalID,
		&ts.IsAuto, &ts.Region, &lastChecked, &ts.CreatedAt); err != nil {
		return nil, err
	}
	ts.ExternalSeriesID = nullStringPtr(externalID)
	ts.LastCheckedAt = nullTimePtr(lastChecked)
	return &ts, nil
}

// FollowSeries creates the tracking row for (userID, seriesID). When the
// pair is already tracked the existing row is returned with created=false.
func (s *Store) FollowSeries(ctx context.Context, userID, seriesID int64, region string, auto bool) (*models.TrackedSeries, bool, error) {
	query := `
		INSERT INTO tracked_series (user_id, series_id, is_auto, region, created_at, last_checked_at)
		VALUES (?, ?, ?, ?, ?, NULL)
		ON CONFLICT(user_id, series_id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query, userID, seriesID, auto, region, time.Now().UTC())
	if err != nil {
		return nil, false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	// This means the row already existed, which is not an error.
	ts, err := s.GetTrackedSeriesFor(ctx, userID, seriesID)
	if err != nil {
		return nil, false, err
	}
	return ts, affected > 0, nil
}

// GetTrackedSeries retrieves a single tracking row by its primary key.
func (s *Store) GetTrackedSeries(ctx context.Context, id int64) (*models.TrackedSeries, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+trackedSeriesColumns+`
		FROM tracked_series ts LEFT JOIN series s ON s.id = ts.series_id
		WHERE ts.id = ?`, id)
	ts, err := scanTrackedSeries(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return ts, err
}

// GetTrackedSeriesFor retrieves the tracking row of a user/series pair.
func (s *Store) GetTrackedSeriesFor(ctx context.Context, userID, seriesID int64) (*models.TrackedSeries, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+trackedSeriesColumns+`
		FROM tracked_series ts LEFT JOIN series s ON s.id = ts.series_id
		WHERE ts.user_id = ? AND ts.series_id = ?`, userID, seriesID)
	ts, err := scanTrackedSeries(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return ts, err
}

// ListTrackedSeriesForUser returns everything a user follows, by series title.
func (s *Store) ListTrackedSeriesForUser(ctx context.Context, userID int64) ([]*models.TrackedSeries, error) {
	return s.queryTrackedSeries(ctx, `SELECT `+trackedSeriesColumns+`
		FROM tracked_series ts LEFT JOIN series s ON s.id = ts.series_id
		WHERE ts.user_id = ?
		ORDER BY s.title ASC, ts.id ASC`, userID)
}

// DueTrackedSeries returns up to limit rows never checked or last checked
// before staleBefore, never-checked first, then oldest-checked first.
func (s *Store) DueTrackedSeries(ctx context.Context, staleBefore time.Time, limit int) ([]*models.TrackedSeries, error) {
	query := `SELECT ` + trackedSeriesColumns + `
		FROM tracked_series ts LEFT JOIN series s ON s.id = ts.series_id
		WHERE ts.last_checked_at IS NULL OR ts.last_checked_at < ?
		ORDER BY ts.last_checked_at IS NOT NULL, ts.last_checked_at ASC, ts.id ASC`
	args := []any{staleBefore.UTC()}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryTrackedSeries(ctx, query, args...)
}

func (s *Store) queryTrackedSeries(ctx context.Context, query string, args ...any) ([]*models.TrackedSeries, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.TrackedSeries
	for rows.Next() {
		ts, err := scanTrackedSeries(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// UnfollowSeries removes the tracking row; releases cascade with it.
// It reports whether a row was removed.
func (s *Store) UnfollowSeries(ctx context.Context, userID, seriesID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tracked_series WHERE user_id = ? AND series_id = ?", userID, seriesID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// SetExternalSeriesID stores the resolved canonical series identifier.
func (s *Store) SetExternalSeriesID(ctx context.Context, id int64, externalID string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE tracked_series SET external_series_id = ? WHERE id = ?",
		normalizeExternalID(externalID), id)
	return err
}

// TouchLastChecked sets last_checked_at. Concurrent checks of the same row
// may overwrite each other in either order.
func (s *Store) TouchLastChecked(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, "UPDATE tracked_series SET last_checked_at = ? WHERE id = ?", at.UTC(), id)
	return err
}
