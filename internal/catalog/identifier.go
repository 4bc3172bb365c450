package catalog

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidIdentifier is returned when an external identifier does not
// have the provider's fixed format.
var ErrInvalidIdentifier = errors.New("invalid external identifier")

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9]{10}$`)

// IsValidID reports whether id looks like a provider identifier (ten
// alphanumerics, any case).
func IsValidID(id string) bool {
	return identifierPattern.MatchString(strings.TrimSpace(id))
}

// NormalizeID returns the canonical uppercase form of id.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
