package audible

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vrsandeep/serieswatch/internal/catalog"
	"github.com/vrsandeep/serieswatch/internal/models"
	"github.com/vrsandeep/serieswatch/internal/util"
)

const (
	defaultLookupBaseURL = "https://api.audnex.us"
	defaultAPIBaseURL    = "https://api.audible%s"
	defaultTimeout       = 10 * time.Second
	simsResultLimit      = 50
)

// Client implements catalog.Provider for Audible.
type Client struct {
	client        *http.Client
	lookupBaseURL string
	apiBaseURL    string
	timeout       time.Duration
	log           zerolog.Logger
}

// New creates a new Audible client. Zero-valued options fall back to the
// public endpoints.
func New(opts catalog.Options, logger zerolog.Logger) *Client {
	c := &Client{
		client:        opts.HTTPClient,
		lookupBaseURL: strings.TrimRight(opts.LookupBaseURL, "/"),
		apiBaseURL:    opts.APIBaseURL,
		timeout:       opts.Timeout,
		log:           logger.With().Str("provider", string(catalog.KindAudible)).Logger(),
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: c.timeout}
	}
	if c.lookupBaseURL == "" {
		c.lookupBaseURL = defaultLookupBaseURL
	}
	if c.apiBaseURL == "" {
		c.apiBaseURL = defaultAPIBaseURL
	}
	return c
}

// Factory adapts New to catalog.Factory.
func Factory(opts catalog.Options, logger zerolog.Logger) catalog.Provider {
	return New(opts, logger)
}

func (c *Client) Kind() catalog.Kind { return catalog.KindAudible }

// LookupByID fetches one book by ASIN. The region is passed through as an
// optional query parameter.
func (c *Client) LookupByID(ctx context.Context, id, region string) *models.CanonicalBook {
	if !catalog.IsValidID(id) {
		c.log.Debug().Str("asin", id).Msg("skipping lookup of invalid identifier")
		return nil
	}
	asin := catalog.NormalizeID(id)

	u := fmt.Sprintf("%s/books/%s", c.lookupBaseURL, url.PathEscape(asin))
	if r := catalog.NormalizeRegion(region); r != "" {
		u += "?" + url.Values{"region": {r}}.Encode()
	}

	var raw bookPayload
	if err := c.getJSON(ctx, u, &raw); err != nil {
		c.log.Warn().Err(err).Str("asin", asin).Str("region", region).Msg("book lookup failed")
		return nil
	}
	if strings.TrimSpace(raw.ASIN) == "" {
		c.log.Debug().Str("asin", asin).Msg("book lookup returned no identifier")
		return nil
	}
	return normalizeBook(raw, region)
}

// ListSeriesEntries returns every known book in a series: one member is
// discovered through the series' relationships, then its "same series"
// similarity set is resolved book by book. Any failing stage yields an
// empty result.
func (c *Client) ListSeriesEntries(ctx context.Context, seriesID, region string) []models.CanonicalBook {
	if !catalog.IsValidID(seriesID) {
		c.log.Debug().Str("series_id", seriesID).Msg("skipping listing of invalid series identifier")
		return nil
	}
	seriesID = catalog.NormalizeID(seriesID)
	logger := c.log.With().Str("series_id", seriesID).Str("region", region).Logger()

	product, err := c.product(ctx, seriesID, region)
	if err != nil {
		logger.Warn().Err(err).Msg("series relationship lookup failed")
		return nil
	}
	child := firstChildOfSeries(product.Relationships)
	if child == "" {
		logger.Debug().Msg("series has no child relationship")
		return nil
	}

	similar, err := c.sameSeries(ctx, child, region)
	if err != nil {
		logger.Warn().Err(err).Str("asin", child).Msg("same-series lookup failed")
		return nil
	}

	first := c.LookupByID(ctx, child, region)
	if first == nil {
		return nil
	}
	entries := []models.CanonicalBook{*first}
	seen := map[string]struct{}{first.ASIN: {}}
	for _, asin := range similar {
		if ctx.Err() != nil {
			return nil
		}
		asin = catalog.NormalizeID(asin)
		if _, dup := seen[asin]; dup || !catalog.IsValidID(asin) {
			continue
		}
		seen[asin] = struct{}{}
		if book := c.LookupByID(ctx, asin, region); book != nil {
			entries = append(entries, *book)
		}
	}
	return entries
}

// ResolveSeriesFromBook extracts a series from the book's record, falling
// back to the book's relationship graph.
func (c *Client) ResolveSeriesFromBook(ctx context.Context, bookID, region string) *models.SeriesRef {
	if !catalog.IsValidID(bookID) {
		return nil
	}
	bookID = catalog.NormalizeID(bookID)

	ref, ok := util.FirstOf[*models.SeriesRef](ctx,
		func(ctx context.Context) (*models.SeriesRef, bool) {
			return c.seriesFromRecord(ctx, bookID, region)
		},
		func(ctx context.Context) (*models.SeriesRef, bool) {
			return c.seriesFromRelationships(ctx, bookID, region)
		},
	)
	if !ok {
		return nil
	}
	return ref
}

func (c *Client) seriesFromRecord(ctx context.Context, bookID, region string) (*models.SeriesRef, bool) {
	book := c.LookupByID(ctx, bookID, region)
	if book == nil {
		return nil, false
	}
	for _, s := range book.Series {
		if s.ID != "" {
			ref := s
			return &ref, true
		}
	}
	return nil, false
}

func (c *Client) seriesFromRelationships(ctx context.Context, bookID, region string) (*models.SeriesRef, bool) {
	product, err := c.product(ctx, bookID, region)
	if err != nil {
		c.log.Warn().Err(err).Str("asin", bookID).Msg("book relationship lookup failed")
		return nil, false
	}
	for _, s := range product.Series {
		if strings.TrimSpace(s.ASIN) != "" {
			return &models.SeriesRef{
				ID:       catalog.NormalizeID(s.ASIN),
				Name:     s.Title,
				Position: util.CleanSequence(s.Sequence),
			}, true
		}
	}
	for _, rel := range product.Relationships {
		if strings.EqualFold(rel.RelationshipType, "series") && strings.TrimSpace(rel.ASIN) != "" {
			return &models.SeriesRef{
				ID:       catalog.NormalizeID(rel.ASIN),
				Name:     rel.Title,
				Position: util.CleanSequence(rel.Sequence),
			}, true
		}
	}
	return nil, false
}

func firstChildOfSeries(rels []relationshipPayload) string {
	for _, rel := range rels {
		if strings.EqualFold(rel.RelationshipToProduct, "child") &&
			strings.EqualFold(rel.RelationshipType, "series") &&
			strings.TrimSpace(rel.ASIN) != "" {
			return catalog.NormalizeID(rel.ASIN)
		}
	}
	return ""
}

// product fetches the catalog product with its series and relationships.
func (c *Client) product(ctx context.Context, asin, region string) (*productPayload, error) {
	q := url.Values{"response_groups": {"relationships,series"}}
	u := fmt.Sprintf("%s/1.0/catalog/products/%s?%s", c.apiBase(region), url.PathEscape(asin), q.Encode())

	var resp productResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

// sameSeries returns the ASINs the provider lists as in the same series.
func (c *Client) sameSeries(ctx context.Context, asin, region string) ([]string, error) {
	q := url.Values{
		"similarity_type": {"InTheSameSeries"},
		"num_results":     {fmt.Sprint(simsResultLimit)},
		"response_groups": {"media"},
	}
	u := fmt.Sprintf("%s/1.0/catalog/products/%s/sims?%s", c.apiBase(region), url.PathEscape(asin), q.Encode())

	var resp simsResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(resp.SimilarProducts))
	for _, p := range resp.SimilarProducts {
		out = append(out, p.ASIN)
	}
	return out, nil
}

func (c *Client) apiBase(region string) string {
	return fmt.Sprintf(c.apiBaseURL, catalog.ResolveDomain(region, c.log))
}

// getJSON performs a bounded GET and decodes a JSON body into out.
func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}
