// Package analyzer provides the default laurus.Analyzer implementation:
// a code-aware tokenizer (camelCase/snake_case splitting) layered under
// bleve's analysis token-filter pipeline.
package analyzer

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2/analysis"
)

// identifierRegex matches alphanumeric-and-underscore runs, the first
// split pass before camelCase/snake_case decomposition.
var identifierRegex = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// codeTokenizer splits source-like text into identifier sub-tokens:
// snake_case on underscores, then camelCase/PascalCase on case
// transitions, discarding anything shorter than two runes.
type codeTokenizer struct{}

func (codeTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	var stream analysis.TokenStream
	pos := 1
	for _, word := range identifierRegex.FindAllStringIndex(text, -1) {
		raw := text[word[0]:word[1]]
		offset := word[0]
		for _, sub := range splitIdentifier(raw) {
			if len(sub) < 2 {
				offset += len(sub)
				continue
			}
			start := offset
			end := start + len(sub)
			stream = append(stream, &analysis.Token{
				Term:     []byte(sub),
				Start:    start,
				End:      end,
				Position: pos,
				Type:     analysis.AlphaNumeric,
			})
			pos++
			offset = end
		}
	}
	return stream
}

// splitIdentifier splits snake_case on underscores, then each part on
// camelCase/PascalCase boundaries.
func splitIdentifier(token string) []string {
	if strings.Contains(token, "_") {
		var out []string
		for _, part := range strings.Split(token, "_") {
			if part != "" {
				out = append(out, splitCamelCase(part)...)
			}
		}
		return out
	}
	return splitCamelCase(token)
}

// splitCamelCase splits on case transitions: "getUserByID" -> ["get",
// "User", "By", "ID"]. A run of uppercase letters stays joined unless
// followed by a lowercase letter (so "HTTPHandler" -> ["HTTP", "Handler"]).
func splitCamelCase(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	var cur strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || nextLower {
				if cur.Len() > 0 {
					out = append(out, cur.String())
					cur.Reset()
				}
			}
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// DefaultStopWords filters common keywords and low-information
// identifiers that add noise without discriminating power in a code
// or prose corpus.
var DefaultStopWords = []string{
	"var", "let", "const", "func", "function", "def", "class",
	"return", "if", "else", "for", "while",
	"the", "a", "an", "of", "to", "and", "is", "are",
}

// stopFilter drops any token whose lowercased term is in words.
type stopFilter struct {
	words map[string]struct{}
}

func newStopFilter(words []string) *stopFilter {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[strings.ToLower(w)] = struct{}{}
	}
	return &stopFilter{words: m}
}

func (f *stopFilter) Filter(in analysis.TokenStream) analysis.TokenStream {
	out := make(analysis.TokenStream, 0, len(in))
	for _, tok := range in {
		if _, stop := f.words[strings.ToLower(string(tok.Term))]; !stop {
			out = append(out, tok)
		}
	}
	return out
}
