package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBleveAnalyzerLowercasesAndSplitsIdentifiers(t *testing.T) {
	a := New(nil)
	toks := a.Analyze("getUserById")
	var terms []string
	for _, tok := range toks {
		terms = append(terms, tok.Text)
	}
	assert.Equal(t, []string{"get", "user", "by", "id"}, terms)
}

func TestBleveAnalyzerDropsDefaultStopWords(t *testing.T) {
	a := New(nil)
	toks := a.Analyze("return the value")
	var terms []string
	for _, tok := range toks {
		terms = append(terms, tok.Text)
	}
	assert.Equal(t, []string{"value"}, terms)
}

func TestBleveAnalyzerHonorsCustomStopWords(t *testing.T) {
	a := New([]string{"widget"})
	toks := a.Analyze("return the widget value")
	var terms []string
	for _, tok := range toks {
		terms = append(terms, tok.Text)
	}
	// custom stop list replaces, not extends, the default one.
	assert.Equal(t, []string{"return", "the", "value"}, terms)
}

func TestBleveAnalyzerPositionsAreZeroBased(t *testing.T) {
	a := New([]string{})
	toks := a.Analyze("alpha beta")
	require.Len(t, toks, 2)
	assert.Equal(t, 0, toks[0].Position)
	assert.Equal(t, 1, toks[1].Position)
}

func TestBleveAnalyzerCarriesOffsets(t *testing.T) {
	a := New([]string{})
	toks := a.Analyze("hello world")
	require.Len(t, toks, 2)
	assert.Equal(t, 0, toks[0].StartOffset)
	assert.Equal(t, 5, toks[0].EndOffset)
	assert.Equal(t, 6, toks[1].StartOffset)
	assert.Equal(t, 11, toks[1].EndOffset)
}
