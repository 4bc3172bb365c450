package util

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var sequenceNumber = regexp.MustCompile(`\d*\.?\d+`)

// CleanSequence extracts the first integer or decimal from a raw series
// position such as "Book 2, Dramatized Adaptation". ".5" is kept as is.
// When no number is present the raw string is returned unchanged.
func CleanSequence(raw string) string {
	if m := sequenceNumber.FindString(raw); m != "" {
		return m
	}
	return raw
}

// ParseSequence returns the numeric value of a sequence marker.
func ParseSequence(seq string) (float64, bool) {
	seq = strings.TrimSpace(seq)
	if seq == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(CleanSequence(seq), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// SequenceLess orders sequence markers numerically ascending. Markers
// without a number sort after every numeric one; ties fall back to
// natural order of the titles.
func SequenceLess(seqA, titleA, seqB, titleB string) bool {
	a, okA := ParseSequence(seqA)
	b, okB := ParseSequence(seqB)
	switch {
	case okA && !okB:
		return true
	case !okA && okB:
		return false
	case okA && okB && a != b:
		return a < b
	}
	return TitleLess(titleA, titleB)
}
