package models

import "time"

// TrackedSeries is a user's subscription to a local series.
type TrackedSeries struct {
	ID               int64      `json:"id"`
	UserID           int64      `json:"user_id"`
	SeriesID         int64      `json:"series_id"`
	SeriesTitle      string     `json:"series_title,omitempty"`
	ExternalSeriesID *string    `json:"external_series_id,omitempty"` // Nullable until resolved
	IsAuto           bool       `json:"is_auto"`                      // System-initiated rather than user-initiated
	Region           string     `json:"region"`
	LastCheckedAt    *time.Time `json:"last_checked_at,omitempty"` // Nil means never checked
	CreatedAt        time.Time  `json:"created_at"`
}

// HasExternalID reports whether a canonical series identifier is stored.
func (t *TrackedSeries) HasExternalID() bool {
	return t.ExternalSeriesID != nil && *t.ExternalSeriesID != ""
}

// NewRelease is a series entry found in the catalog but absent from the library.
type NewRelease struct {
	ID              int64      `json:"id"`
	TrackedSeriesID int64      `json:"tracked_series_id"`
	ExternalID      string     `json:"external_id"`
	Title           string     `json:"title"`
	Author          string     `json:"author,omitempty"`
	Narrator        string     `json:"narrator,omitempty"`
	CoverURL        string     `json:"cover_url,omitempty"`
	ReleaseDate     *time.Time `json:"release_date,omitempty"`
	Sequence        string     `json:"sequence,omitempty"`
	Provider        string     `json:"provider"`
	Dismissed       bool       `json:"dismissed"`
	DiscoveredAt    time.Time  `json:"discovered_at"`
	CreatedAt       time.Time  `json:"created_at"`
}
