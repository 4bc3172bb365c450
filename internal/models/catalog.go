package models

import (
	"strings"
	"time"
)

// SeriesRef is a book's membership in an external series.
type SeriesRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position string `json:"position,omitempty"`
}

// CanonicalBook is the provider-independent shape of a catalog item.
type CanonicalBook struct {
	ASIN           string      `json:"asin"`
	Title          string      `json:"title"`
	Subtitle       string      `json:"subtitle,omitempty"`
	Authors        []string    `json:"authors,omitempty"`
	Narrators      []string    `json:"narrators,omitempty"`
	CoverURL       string      `json:"cover_url,omitempty"`
	ReleaseDate    *time.Time  `json:"release_date,omitempty"`
	Series         []SeriesRef `json:"series,omitempty"` // Primary first, then secondary
	Publisher      string      `json:"publisher,omitempty"`
	RuntimeMinutes int         `json:"runtime_minutes,omitempty"`
	Region         string      `json:"region,omitempty"`
	Provider       string      `json:"provider"`
}

// SequenceFor returns the book's position in the series identified by
// seriesID, falling back to its first series position.
func (b *CanonicalBook) SequenceFor(seriesID string) string {
	for _, s := range b.Series {
		if s.ID != "" && strings.EqualFold(s.ID, seriesID) {
			return s.Position
		}
	}
	if len(b.Series) > 0 {
		return b.Series[0].Position
	}
	return ""
}

