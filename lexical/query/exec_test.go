package query

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	laurus "github.com/Aman-CERP/laurus"
	"github.com/Aman-CERP/laurus/lexical"
	"github.com/Aman-CERP/laurus/storage"
)

func analyze(_, text string) []laurus.Token {
	words := strings.Fields(strings.ToLower(text))
	tokens := make([]laurus.Token, len(words))
	for i, w := range words {
		tokens[i] = laurus.Token{Text: w, Position: i}
	}
	return tokens
}

func buildTestSegment(t *testing.T) *lexical.Segment {
	t.Helper()
	ctx := context.Background()
	st, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	schema := laurus.Schema{
		"body": laurus.FieldOption{Lexical: &laurus.LexicalFieldOption{
			Kind:  laurus.LexicalText,
			Flags: laurus.TextFlags{Indexed: true, Stored: true, TermVectors: true},
		}},
		"year": laurus.FieldOption{Lexical: &laurus.LexicalFieldOption{Kind: laurus.LexicalInteger}},
	}
	b := lexical.NewBuilder(schema, analyze)
	b.Add(laurus.NewInternalID(0, 1), laurus.Document{
		"body": laurus.TextValue("the quick brown fox jumps"),
		"year": laurus.IntValue(2020),
	})
	b.Add(laurus.NewInternalID(0, 2), laurus.Document{
		"body": laurus.TextValue("the lazy dog sleeps"),
		"year": laurus.IntValue(2021),
	})
	b.Add(laurus.NewInternalID(0, 3), laurus.Document{
		"body": laurus.TextValue("quick quick quick"),
		"year": laurus.IntValue(2022),
	})
	seg, err := b.Flush(ctx, st, lexical.SegmentID(0))
	require.NoError(t, err)
	return seg
}

func TestTermQueryRanksByBM25(t *testing.T) {
	seg := buildTestSegment(t)
	hits, err := SearchSegment(seg, Request{Query: Term{Field: "body", Term: "quick"}, Size: 10})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, uint32(2), hits[0].LocalDocID) // doc 2 has term freq 3, ranks first
}

func TestBooleanMustAndMustNot(t *testing.T) {
	seg := buildTestSegment(t)
	q := Boolean{Clauses: []BooleanClause{
		{Query: Term{Field: "body", Term: "the"}, Occur: OccurMust},
		{Query: Term{Field: "body", Term: "lazy"}, Occur: OccurMustNot},
	}}
	hits, err := SearchSegment(seg, Request{Query: q, Size: 10})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, uint32(0), hits[0].LocalDocID)
}

func TestPrefixQuery(t *testing.T) {
	seg := buildTestSegment(t)
	hits, err := SearchSegment(seg, Request{Query: Prefix{Field: "body", Prefix: "slee"}, Size: 10})
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestNumericRangeQuery(t *testing.T) {
	seg := buildTestSegment(t)
	hits, err := SearchSegment(seg, Request{Query: NumericRange{
		Field: "year", Min: 2021, Max: 2022, MinInclusive: true, MaxInclusive: true,
	}, Size: 10})
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestPhraseQuery(t *testing.T) {
	seg := buildTestSegment(t)
	hits, err := SearchSegment(seg, Request{
		Query: Phrase{Field: "body", Terms: []string{"quick", "brown"}},
		Size:  10,
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, uint32(0), hits[0].LocalDocID)
}

func TestFuzzyQueryToleratesOneEdit(t *testing.T) {
	seg := buildTestSegment(t)
	hits, err := SearchSegment(seg, Request{
		Query: Fuzzy{Field: "body", Term: "quik", Distance: 1},
		Size:  10,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, hits)
}

func TestSearchSegmentsFansOutAcrossSegments(t *testing.T) {
	seg1 := buildTestSegment(t)
	seg2 := buildTestSegment(t)
	result, err := SearchSegments(context.Background(), []*lexical.Segment{seg1, seg2},
		Request{Query: Term{Field: "body", Term: "quick"}, Size: 10})
	require.NoError(t, err)
	assert.Len(t, result.Hits, 4)
	assert.False(t, result.Truncated)
}

func TestMinScoreDropsLowScoringHits(t *testing.T) {
	seg := buildTestSegment(t)
	all, err := SearchSegment(seg, Request{Query: Term{Field: "body", Term: "quick"}, Size: 10})
	require.NoError(t, err)
	require.Len(t, all, 2)

	filtered, err := SearchSegment(seg, Request{
		Query:    Term{Field: "body", Term: "quick"},
		Size:     10,
		MinScore: all[0].Score, // only the single best-scoring doc clears this bar
	})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, all[0].LocalDocID, filtered[0].LocalDocID)
}

func TestSortModeOrdersByDocValueInsteadOfScore(t *testing.T) {
	seg := buildTestSegment(t)

	byScore, err := SearchSegment(seg, Request{Query: Term{Field: "body", Term: "the"}, Size: 10})
	require.NoError(t, err)
	require.Len(t, byScore, 2)
	require.Equal(t, uint32(1), byScore[0].LocalDocID) // doc 1 (year 2021) scores higher by BM25

	byYear, err := SearchSegment(seg, Request{
		Query:     Term{Field: "body", Term: "the"},
		Size:      10,
		SortMode:  SortFieldAsc,
		SortField: "year",
	})
	require.NoError(t, err)
	require.Len(t, byYear, 2)
	// ascending year (doc 0 = 2020, doc 1 = 2021) is the opposite of
	// score order, proving SortMode actually took effect.
	assert.Equal(t, uint32(0), byYear[0].LocalDocID)
	assert.Equal(t, uint32(1), byYear[1].LocalDocID)
}

func TestPerFieldBoostsMultiplyMatchingClauseScore(t *testing.T) {
	seg := buildTestSegment(t)
	boosted, err := SearchSegment(seg, Request{
		Query:  Term{Field: "body", Term: "quick"},
		Size:   10,
		Boosts: map[string]float64{"body": 2},
	})
	require.NoError(t, err)
	unboosted, err := SearchSegment(seg, Request{Query: Term{Field: "body", Term: "quick"}, Size: 10})
	require.NoError(t, err)
	require.Len(t, boosted, len(unboosted))
	for i := range boosted {
		assert.InDelta(t, unboosted[i].Score*2, boosted[i].Score, 1e-9)
	}
}

func TestSearchSegmentsReportsTruncationOnTimeout(t *testing.T) {
	seg1 := buildTestSegment(t)
	seg2 := buildTestSegment(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already expired: no segment should be searched
	result, err := SearchSegments(ctx, []*lexical.Segment{seg1, seg2},
		Request{Query: Term{Field: "body", Term: "quick"}, Size: 10, Timeout: time.Nanosecond})
	require.NoError(t, err)
	assert.True(t, result.Truncated)
	assert.Empty(t, result.Hits)
}
