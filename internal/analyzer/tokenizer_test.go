package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitCamelCase(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect []string
	}{
		{"empty string", "", nil},
		{"all lowercase", "hello", []string{"hello"}},
		{"camelCase", "camelCase", []string{"camel", "Case"}},
		{"PascalCase", "PascalCase", []string{"Pascal", "Case"}},
		{"multiple words", "getUserById", []string{"get", "User", "By", "Id"}},
		{"acronym in middle", "parseHTTPRequest", []string{"parse", "HTTP", "Request"}},
		{"acronym at start", "HTTPHandler", []string{"HTTP", "Handler"}},
		{"all caps", "HTTP", []string{"HTTP"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, splitCamelCase(tt.input))
		})
	}
}

func TestSplitIdentifier(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect []string
	}{
		{"simple word", "hello", []string{"hello"}},
		{"snake_case", "get_user", []string{"get", "user"}},
		{"camelCase", "getUser", []string{"get", "User"}},
		{"mixed", "get_UserById", []string{"get", "User", "By", "Id"}},
		{"double underscore", "foo__bar", []string{"foo", "bar"}},
		{"leading underscore", "_private_method", []string{"private", "method"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, splitIdentifier(tt.input))
		})
	}
}

func TestCodeTokenizerSplitsOnDelimiters(t *testing.T) {
	stream := codeTokenizer{}.Tokenize([]byte("foo.bar(baz, qux)"))
	var terms []string
	for _, tok := range stream {
		terms = append(terms, string(tok.Term))
	}
	assert.Equal(t, []string{"foo", "bar", "baz", "qux"}, terms)
}

func TestCodeTokenizerFiltersShortTokens(t *testing.T) {
	stream := codeTokenizer{}.Tokenize([]byte("a getUserById b"))
	var terms []string
	for _, tok := range stream {
		terms = append(terms, string(tok.Term))
	}
	assert.Equal(t, []string{"get", "User", "By", "Id"}, terms)
}

func TestCodeTokenizerAssignsSequentialPositions(t *testing.T) {
	stream := codeTokenizer{}.Tokenize([]byte("hello world"))
	require := func(cond bool) {
		if !cond {
			t.Fatalf("position sequence broken: %+v", stream)
		}
	}
	require(len(stream) == 2)
	assert.Equal(t, 1, stream[0].Position)
	assert.Equal(t, 2, stream[1].Position)
}

func TestStopFilterDropsConfiguredWords(t *testing.T) {
	f := newStopFilter([]string{"func", "return"})
	in := codeTokenizer{}.Tokenize([]byte("func return value"))
	out := f.Filter(in)
	var terms []string
	for _, tok := range out {
		terms = append(terms, string(tok.Term))
	}
	assert.Equal(t, []string{"value"}, terms)
}
