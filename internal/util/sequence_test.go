package util

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanSequence(t *testing.T) {
	testCases := []struct {
		in, want string
	}{
		{"2, Dramatized Adaptation", "2"},
		{".5", ".5"},
		{"2.5", "2.5"},
		{"Book 3", "3"},
		{"10", "10"},
		{"Prequel", "Prequel"},
		{"", ""},
		{"1-3", "1"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, CleanSequence(tc.in), "CleanSequence(%q)", tc.in)
	}
}

func TestParseSequence(t *testing.T) {
	v, ok := ParseSequence(".5")
	assert.True(t, ok)
	assert.Equal(t, 0.5, v)

	v, ok = ParseSequence("Book 12")
	assert.True(t, ok)
	assert.Equal(t, 12.0, v)

	_, ok = ParseSequence("Novella")
	assert.False(t, ok)
	_, ok = ParseSequence("")
	assert.False(t, ok)
}

func TestSequenceLess_NumericThenMissing(t *testing.T) {
	type rel struct{ seq, title string }
	rels := []rel{
		{"", "Side Story"},
		{"10", "Ten"},
		{"2.5", "Two and a half"},
		{"Novella", "Extra"},
		{"2", "Two"},
		{".5", "Prequel"},
	}
	sort.SliceStable(rels, func(i, j int) bool {
		return SequenceLess(rels[i].seq, rels[i].title, rels[j].seq, rels[j].title)
	})

	var got []string
	for _, r := range rels {
		got = append(got, r.title)
	}
	assert.Equal(t, []string{"Prequel", "Two", "Two and a half", "Ten", "Extra", "Side Story"}, got)
}
