// Read-only queries over the library tables. The tracker never writes these.

package store

import (
	"context"
	"database/sql"

	"github.com/vrsandeep/serieswatch/internal/models"
)

// GetOwnedBooksForSeries returns the library-held books of a local series
// in a stable order (insertion order).
func (s *Store) GetOwnedBooksForSeries(ctx context.Context, seriesID int64) ([]models.OwnedBook, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(asin, ''), title, COALESCE(library_path, '')
		FROM books
		WHERE series_id = ?
		ORDER BY id ASC`, seriesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []models.OwnedBook
	for rows.Next() {
		var b models.OwnedBook
		if err := rows.Scan(&b.BookID, &b.ExternalID, &b.Title, &b.LibraryPath); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// OwnedExternalIDs returns the uppercased external identifiers of the
// books a local series already has in the library.
func (s *Store) OwnedExternalIDs(ctx context.Context, seriesID int64) (map[string]struct{}, error) {
	books, err := s.GetOwnedBooksForSeries(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(books))
	for _, b := range books {
		if id := normalizeExternalID(b.ExternalID); id != "" {
			ids[id] = struct{}{}
		}
	}
	return ids, nil
}

// SeriesExists reports whether a local series row exists.
func (s *Store) SeriesExists(ctx context.Context, seriesID int64) (bool, error) {
	return s.exists(ctx, "SELECT 1 FROM series WHERE id = ?", seriesID)
}

// UserExists reports whether a user row exists.
func (s *Store) UserExists(ctx context.Context, userID int64) (bool, error) {
	return s.exists(ctx, "SELECT 1 FROM users WHERE id = ?", userID)
}

func (s *Store) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
