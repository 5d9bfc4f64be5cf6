// Package query implements the lexical query model: a tree of Query
// nodes compiled into Weight/Matcher/Scorer pipelines that walk one
// segment's dictionary and posting lists (spec.md §4.5/§4.6).
package query

import "time"

// Query is the parsed, executable representation of a lexical search
// clause. Every concrete query type below implements it.
type Query interface {
	isQuery()
}

// Term matches documents where field contains term exactly.
type Term struct {
	Field string
	Term  string
	Boost float64
}

// Phrase matches documents where Terms occur in field, in order,
// within Slop positions of each other (0 = exact adjacency).
type Phrase struct {
	Field string
	Terms []string
	Slop  int
	Boost float64
}

// BooleanOccur classifies a clause's contribution to a Boolean query.
type BooleanOccur string

const (
	OccurMust    BooleanOccur = "must"
	OccurShould  BooleanOccur = "should"
	OccurMustNot BooleanOccur = "must_not"
	OccurFilter  BooleanOccur = "filter" // contributes no score
)

// BooleanClause pairs a sub-query with how it participates.
type BooleanClause struct {
	Query Query
	Occur BooleanOccur
}

// Boolean composes clauses with must/should/must_not/filter semantics.
// MinimumShouldMatch is how many Should clauses a document must match;
// 0 means one when the query has Should clauses but no Must clause, and
// none otherwise (Should clauses then only add to the score).
type Boolean struct {
	Clauses             []BooleanClause
	MinimumShouldMatch  int
}

// Fuzzy matches terms in field within Levenshtein distance Distance of
// Term. A Distance outside 1..2, including the zero value, is treated
// as 2.
type Fuzzy struct {
	Field    string
	Term     string
	Distance int
	Boost    float64
}

// Prefix matches any term in field starting with Prefix.
type Prefix struct {
	Field  string
	Prefix string
	Boost  float64
}

// Wildcard matches terms in field against a glob-style pattern using
// '?' for one character and '*' for any run of characters.
type Wildcard struct {
	Field   string
	Pattern string
	Boost   float64
}

// Regexp matches terms in field against Pattern (RE2 syntax).
type Regexp struct {
	Field   string
	Pattern string
	Boost   float64
}

// NumericRange matches documents whose numeric field value falls within
// [Min, Max], each bound optionally exclusive.
type NumericRange struct {
	Field        string
	Min, Max     float64
	MinInclusive bool
	MaxInclusive bool
	Boost        float64
}

// Geo matches documents within RadiusMeters of (Lat, Lon).
type Geo struct {
	Field        string
	Lat, Lon     float64
	RadiusMeters float64
	Boost        float64
}

// SpanTerm is a leaf span query, usable inside SpanNear.
type SpanTerm struct {
	Field string
	Term  string
}

// SpanNear matches when every Clause occurs, in order if InOrder,
// within Slop positions of each other.
type SpanNear struct {
	Field   string
	Clauses []SpanTerm
	Slop    int
	InOrder bool
	Boost   float64
}

func (Term) isQuery()         {}
func (Phrase) isQuery()       {}
func (Boolean) isQuery()      {}
func (Fuzzy) isQuery()        {}
func (Prefix) isQuery()       {}
func (Wildcard) isQuery()     {}
func (Regexp) isQuery()       {}
func (NumericRange) isQuery() {}
func (Geo) isQuery()          {}
func (SpanNear) isQuery()     {}

// Hit is one scored match returned by a search.
type Hit struct {
	InternalID uint64
	Score      float64
}

// SortMode selects how a lexical search's hits are ordered (spec.md
// §4.13's "sort mode" field of the lexical sub-request).
type SortMode int

const (
	// SortByScore orders by descending BM25/boosted score (the default).
	SortByScore SortMode = iota
	// SortFieldAsc orders by ascending doc-value of SortField.
	SortFieldAsc
	// SortFieldDesc orders by descending doc-value of SortField.
	SortFieldDesc
)

// ApplyFieldBoosts returns a copy of q with every leaf clause's Boost
// multiplied by boosts[clause.Field] (1.0 when a field has no entry),
// implementing spec.md §4.13's per-field-boosts request parameter on
// top of the query tree's existing per-node Boost mechanism. Boolean
// and SpanNear compose their clauses recursively; SpanNear's leaf
// SpanTerm has no Boost of its own, so the multiplier is folded into
// the SpanNear node's own Boost instead.
func ApplyFieldBoosts(q Query, boosts map[string]float64) Query {
	if len(boosts) == 0 {
		return q
	}
	factor := func(field string) float64 {
		if f, ok := boosts[field]; ok && f != 0 {
			return f
		}
		return 1
	}
	boostOf := func(b float64) float64 {
		if b == 0 {
			b = 1
		}
		return b
	}
	switch v := q.(type) {
	case Term:
		v.Boost = boostOf(v.Boost) * factor(v.Field)
		return v
	case Phrase:
		v.Boost = boostOf(v.Boost) * factor(v.Field)
		return v
	case Fuzzy:
		v.Boost = boostOf(v.Boost) * factor(v.Field)
		return v
	case Prefix:
		v.Boost = boostOf(v.Boost) * factor(v.Field)
		return v
	case Wildcard:
		v.Boost = boostOf(v.Boost) * factor(v.Field)
		return v
	case Regexp:
		v.Boost = boostOf(v.Boost) * factor(v.Field)
		return v
	case NumericRange:
		v.Boost = boostOf(v.Boost) * factor(v.Field)
		return v
	case Geo:
		v.Boost = boostOf(v.Boost) * factor(v.Field)
		return v
	case SpanNear:
		v.Boost = boostOf(v.Boost) * factor(v.Field)
		return v
	case Boolean:
		clauses := make([]BooleanClause, len(v.Clauses))
		for i, c := range v.Clauses {
			clauses[i] = BooleanClause{Query: ApplyFieldBoosts(c.Query, boosts), Occur: c.Occur}
		}
		v.Clauses = clauses
		return v
	default:
		return q
	}
}

// Request bundles a parsed Query with paging, scoring, and deadline
// controls (spec.md §4.13's lexical sub-request: "query, limit,
// per-field boosts, min-score, sort mode, timeout, parallel flag").
type Request struct {
	Query Query
	Size  int
	From  int

	// Boosts multiplies the score of every leaf query clause touching a
	// given field by the matching factor (applied via ApplyFieldBoosts
	// before compilation, since clauses already carry a per-node Boost).
	Boosts map[string]float64

	// MinScore drops hits scoring below it before paging.
	MinScore float64

	// SortMode/SortField override score-descending order. SortField is
	// read from the segment's doc values (lexical.Segment.DocValue) and
	// is required when SortMode != SortByScore.
	SortMode  SortMode
	SortField string

	Timeout time.Duration

	// Sequential forces SearchSegments to walk segments one at a time
	// instead of fanning out with errgroup (the zero value, false,
	// keeps the default concurrent behavior spec.md's "parallel flag"
	// describes); useful for deterministic benchmarking and debugging.
	Sequential bool
}
