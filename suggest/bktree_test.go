package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshteinKnownDistances(t *testing.T) {
	assert.Equal(t, 0, levenshtein("kitten", "kitten"))
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
	assert.Equal(t, 1, levenshtein("color", "colour"))
	assert.Equal(t, 0, levenshtein("", ""))
	assert.Equal(t, 4, levenshtein("", "abcd"))
}

func TestBKTreeSearchFindsWithinRadius(t *testing.T) {
	tree := newBKTree()
	for _, term := range []string{"search", "sparse", "sear", "searches", "unrelated"} {
		tree.insert(term, 1)
	}
	cands := tree.search("search", 2)
	terms := make(map[string]bool, len(cands))
	for _, c := range cands {
		terms[c.term] = true
	}
	assert.True(t, terms["search"])
	assert.True(t, terms["sear"])
	assert.True(t, terms["searches"])
	assert.False(t, terms["unrelated"])
}

func TestBKTreeInsertDedupKeepsHigherDocFreq(t *testing.T) {
	tree := newBKTree()
	tree.insert("term", 5)
	tree.insert("term", 20)
	tree.insert("term", 1)
	cands := tree.search("term", 0)
	if assert.Len(t, cands, 1) {
		assert.EqualValues(t, 20, cands[0].docFreq)
	}
}

func TestBKTreeSearchOnEmptyTreeReturnsNil(t *testing.T) {
	tree := newBKTree()
	assert.Nil(t, tree.search("anything", 3))
}
