package util

import (
	"regexp"
	"strings"
)

var titleChunk = regexp.MustCompile(`\d+|\D+`)

var leadingArticles = []string{"the ", "a ", "an "}

// sortableTitle lowercases a title and drops a leading English article.
func sortableTitle(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, article := range leadingArticles {
		if rest, ok := strings.CutPrefix(s, article); ok && rest != "" {
			return rest
		}
	}
	return s
}

// compareDigits orders two runs of ASCII digits by numeric value.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func isDigits(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

// CompareTitles orders book titles naturally: "Part 2" before "Part 10",
// case-insensitive, ignoring a leading "The", "A" or "An".
func CompareTitles(a, b string) int {
	ca := titleChunk.FindAllString(sortableTitle(a), -1)
	cb := titleChunk.FindAllString(sortableTitle(b), -1)

	for i := 0; i < len(ca) && i < len(cb); i++ {
		da, db := isDigits(ca[i]), isDigits(cb[i])
		switch {
		case da && !db:
			return -1
		case !da && db:
			return 1
		case da && db:
			if c := compareDigits(ca[i], cb[i]); c != 0 {
				return c
			}
		default:
			if c := strings.Compare(ca[i], cb[i]); c != 0 {
				return c
			}
		}
	}
	switch {
	case len(ca) < len(cb):
		return -1
	case len(ca) > len(cb):
		return 1
	}
	return 0
}

// TitleLess reports whether title a sorts before title b.
func TitleLess(a, b string) bool {
	return CompareTitles(a, b) < 0
}
