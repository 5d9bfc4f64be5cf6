package analyzer

import (
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"

	laurus "github.com/Aman-CERP/laurus"
)

// Names for the registered tokenizer/filter pair, kept as exported
// constants the way the teacher names its bleve registry entries.
const (
	CodeTokenizerName = "code_tokenizer"
	CodeStopFilterName = "code_stop"
)

// BleveAnalyzer is the default laurus.Analyzer: a bleve analysis
// pipeline running the code-aware tokenizer, bleve's lowercase filter,
// and a stop-word filter, in that order.
type BleveAnalyzer struct {
	pipeline *analysis.Analyzer
}

// New builds a BleveAnalyzer. A nil stopWords uses DefaultStopWords; an
// empty non-nil slice removes no stop words.
func New(stopWords []string) *BleveAnalyzer {
	if stopWords == nil {
		stopWords = DefaultStopWords
	}
	return &BleveAnalyzer{
		pipeline: &analysis.Analyzer{
			Tokenizer: codeTokenizer{},
			TokenFilters: []analysis.TokenFilter{
				lowercase.NewLowercaseFilter(),
				newStopFilter(stopWords),
			},
		},
	}
}

// Analyze implements laurus.Analyzer.
func (a *BleveAnalyzer) Analyze(text string) []laurus.Token {
	stream := a.pipeline.Analyze([]byte(text))
	out := make([]laurus.Token, len(stream))
	for i, tok := range stream {
		out[i] = laurus.Token{
			Text:        string(tok.Term),
			Position:    tok.Position - 1, // bleve positions are 1-based; laurus's are 0-based
			StartOffset: tok.Start,
			EndOffset:   tok.End,
		}
	}
	return out
}

var _ laurus.Analyzer = (*BleveAnalyzer)(nil)
