package audible

import (
	"strings"
	"time"

	"github.com/vrsandeep/serieswatch/internal/catalog"
	"github.com/vrsandeep/serieswatch/internal/models"
	"github.com/vrsandeep/serieswatch/internal/util"
)

// normalizeBook converts a lookup payload into a canonical record.
func normalizeBook(raw bookPayload, region string) *models.CanonicalBook {
	book := &models.CanonicalBook{
		ASIN:           catalog.NormalizeID(raw.ASIN),
		Title:          strings.TrimSpace(raw.Title),
		Subtitle:       strings.TrimSpace(raw.Subtitle),
		Authors:        names(raw.Authors),
		Narrators:      names(raw.Narrators),
		CoverURL:       raw.Image,
		ReleaseDate:    parseReleaseDate(raw.ReleaseDate),
		Publisher:      raw.PublisherName,
		RuntimeMinutes: raw.RuntimeLengthMin,
		Region:         catalog.NormalizeRegion(raw.Region),
		Provider:       string(catalog.KindAudible),
	}
	if book.Region == "" {
		book.Region = catalog.NormalizeRegion(region)
	}
	for _, s := range []*seriesPayload{raw.SeriesPrimary, raw.SeriesSecondary} {
		if s == nil || strings.TrimSpace(s.ASIN) == "" {
			continue
		}
		book.Series = append(book.Series, models.SeriesRef{
			ID:       catalog.NormalizeID(s.ASIN),
			Name:     s.Name,
			Position: util.CleanSequence(s.Position),
		})
	}
	return book
}

func names(people []personPayload) []string {
	var out []string
	for _, p := range people {
		if n := strings.TrimSpace(p.Name); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// parseReleaseDate accepts RFC3339 timestamps and plain YYYY-MM-DD dates.
func parseReleaseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t
	}
	return nil
}
