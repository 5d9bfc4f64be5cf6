package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fixtureEntries() []TermEntry {
	return []TermEntry{
		{Term: "search", DocFreq: 100},
		{Term: "sear", DocFreq: 3},
		{Term: "searches", DocFreq: 40},
		{Term: "research", DocFreq: 5},
		{Term: "unrelated", DocFreq: 1000},
	}
}

func TestCorrectorSuggestRanksByDistanceThenDocFreq(t *testing.T) {
	c := NewCorrector(fixtureEntries())
	out := c.Suggest("serch", 2, 10)
	if assert.NotEmpty(t, out) {
		assert.Equal(t, "search", out[0].Term)
	}
	for i := 1; i < len(out); i++ {
		assert.LessOrEqual(t, out[i-1].Distance, out[i].Distance)
	}
}

func TestCorrectorSuggestRespectsLimit(t *testing.T) {
	c := NewCorrector(fixtureEntries())
	out := c.Suggest("search", 8, 2)
	assert.Len(t, out, 2)
}

func TestCorrectorSuggestExcludesOutOfRadiusTerms(t *testing.T) {
	c := NewCorrector(fixtureEntries())
	out := c.Suggest("search", 1, 10)
	for _, s := range out {
		assert.NotEqual(t, "unrelated", s.Term)
	}
}

func TestCorrectorSuggestDedupsAcrossDuplicateEntries(t *testing.T) {
	entries := []TermEntry{
		{Term: "index", DocFreq: 2},
		{Term: "index", DocFreq: 50},
	}
	c := NewCorrector(entries)
	out := c.Suggest("index", 0, 10)
	if assert.Len(t, out, 1) {
		assert.EqualValues(t, 50, out[0].DocFreq)
	}
}

func TestCorrectorSuggestTiesBreakByTermAscending(t *testing.T) {
	entries := []TermEntry{
		{Term: "bat", DocFreq: 1},
		{Term: "cat", DocFreq: 1},
		{Term: "eat", DocFreq: 1},
	}
	c := NewCorrector(entries)
	out := c.Suggest("rat", 1, 10)
	got := make([]string, len(out))
	for i, s := range out {
		got[i] = s.Term
	}
	assert.Equal(t, []string{"bat", "cat", "eat"}, got)
}
