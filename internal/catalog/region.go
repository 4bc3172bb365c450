package catalog

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultRegion is used whenever a region is missing or unrecognized on
// an endpoint that needs a domain.
const DefaultRegion = "us"

var regionDomains = map[string]string{
	"us": ".com",
	"ca": ".ca",
	"uk": ".co.uk",
	"au": ".com.au",
	"fr": ".fr",
	"de": ".de",
	"jp": ".co.jp",
	"it": ".it",
	"in": ".in",
	"es": ".es",
}

// NormalizeRegion lowercases and trims a region code.
func NormalizeRegion(region string) string {
	return strings.ToLower(strings.TrimSpace(region))
}

// Domain returns the provider domain suffix for a region code.
func Domain(region string) (string, bool) {
	d, ok := regionDomains[NormalizeRegion(region)]
	return d, ok
}

// IsKnownRegion reports whether the region has a domain mapping.
func IsKnownRegion(region string) bool {
	_, ok := Domain(region)
	return ok
}

// ResolveDomain maps a region to its domain suffix, downgrading unknown
// regions to DefaultRegion with a warning.
func ResolveDomain(region string, logger zerolog.Logger) string {
	if d, ok := Domain(region); ok {
		return d
	}
	logger.Warn().Str("region", region).Str("fallback", DefaultRegion).Msg("unrecognized region, downgrading")
	return regionDomains[DefaultRegion]
}

// Regions lists the supported region codes.
func Regions() []string {
	out := make([]string, 0, len(regionDomains))
	for r := range regionDomains {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
