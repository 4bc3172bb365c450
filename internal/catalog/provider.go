package catalog

import (
	"context"
	"net/http"
	"time"

	"github.com/vrsandeep/serieswatch/internal/models"
)

// Kind tags a provider variant.
type Kind string

const KindAudible Kind = "audible"

// Provider is a client for one external book catalog. Methods never return
// transport or payload errors; failures surface as nil or empty results.
type Provider interface {
	Kind() Kind
	// LookupByID fetches one item by external identifier.
	LookupByID(ctx context.Context, id, region string) *models.CanonicalBook
	// ListSeriesEntries returns every known book of a series identifier.
	ListSeriesEntries(ctx context.Context, seriesID, region string) []models.CanonicalBook
	// ResolveSeriesFromBook finds the series a book belongs to.
	ResolveSeriesFromBook(ctx context.Context, bookID, region string) *models.SeriesRef
}

// Options configures a provider client.
type Options struct {
	LookupBaseURL string
	// APIBaseURL is a format string receiving the region domain suffix.
	APIBaseURL string
	Timeout    time.Duration
	HTTPClient *http.Client
}
