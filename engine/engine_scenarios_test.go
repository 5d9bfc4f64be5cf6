package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	laurus "github.com/Aman-CERP/laurus"
	"github.com/Aman-CERP/laurus/lexical/query"
	"github.com/Aman-CERP/laurus/storage"
	"github.com/Aman-CERP/laurus/vector"
)

// These mirror the worked scenarios end to end through the Engine,
// each named for the scenario it exercises.

func TestScenarioS1BasicBM25Ordering(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	schema := laurus.Schema{
		"title": laurus.FieldOption{Lexical: &laurus.LexicalFieldOption{Kind: laurus.LexicalText, Flags: laurus.TextFlags{Indexed: true, Stored: true}}},
		"body":  laurus.FieldOption{Lexical: &laurus.LexicalFieldOption{Kind: laurus.LexicalText, Flags: laurus.TextFlags{Indexed: true, Stored: true}}},
	}
	e, err := Open(ctx, st, schema, 0, WithAnalyzer(wordAnalyzer{}))
	require.NoError(t, err)

	_, err = e.AddDocument(ctx, "d1", laurus.Document{
		"title": laurus.TextValue("Introduction to Rust"),
		"body":  laurus.TextValue("Rust is a systems programming language focused on safety."),
	})
	require.NoError(t, err)
	_, err = e.AddDocument(ctx, "d2", laurus.Document{
		"title": laurus.TextValue("Python for Data Science"),
		"body":  laurus.TextValue("Python is widely used in data science and machine learning."),
	})
	require.NoError(t, err)
	_, err = e.AddDocument(ctx, "d3", laurus.Document{
		"title": laurus.TextValue("Web"),
		"body":  laurus.TextValue("JavaScript powers web."),
	})
	require.NoError(t, err)
	require.NoError(t, e.Commit(ctx))

	res, err := e.Search(ctx, Request{
		Lexical:       query.Request{Query: query.Term{Field: "body", Term: "rust"}},
		LoadDocuments: true,
		Limit:         10,
	})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "d1", res.Hits[0].ExternalID)
	assert.Greater(t, res.Hits[0].Score, 0.0)
}

func TestScenarioS2PhraseExactOrder(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	schema := laurus.Schema{
		"body": laurus.FieldOption{Lexical: &laurus.LexicalFieldOption{Kind: laurus.LexicalText, Flags: laurus.TextFlags{Indexed: true, Stored: true}}},
	}
	e, err := Open(ctx, st, schema, 0, WithAnalyzer(wordAnalyzer{}))
	require.NoError(t, err)

	_, err = e.AddDocument(ctx, "d1", laurus.Document{"body": laurus.TextValue("cute kitten")})
	require.NoError(t, err)
	_, err = e.AddDocument(ctx, "d2", laurus.Document{"body": laurus.TextValue("kitten is cute")})
	require.NoError(t, err)
	require.NoError(t, e.Commit(ctx))

	res, err := e.Search(ctx, Request{
		Lexical:       query.Request{Query: query.Phrase{Field: "body", Terms: []string{"cute", "kitten"}, Slop: 0}},
		LoadDocuments: true,
		Limit:         10,
	})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1, "only the exact adjacent ordering should match a zero-slop phrase")
	assert.Equal(t, "d1", res.Hits[0].ExternalID)
}

func TestScenarioS3NumericRange(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	schema := laurus.Schema{
		"price": laurus.FieldOption{Lexical: &laurus.LexicalFieldOption{Kind: laurus.LexicalFloat}},
	}
	e, err := Open(ctx, st, schema, 0)
	require.NoError(t, err)

	_, err = e.AddDocument(ctx, "a", laurus.Document{"price": laurus.FloatValue(10.0)})
	require.NoError(t, err)
	_, err = e.AddDocument(ctx, "b", laurus.Document{"price": laurus.FloatValue(50.0)})
	require.NoError(t, err)
	_, err = e.AddDocument(ctx, "c", laurus.Document{"price": laurus.FloatValue(100.0)})
	require.NoError(t, err)
	require.NoError(t, e.Commit(ctx))

	res, err := e.Search(ctx, Request{
		Lexical:       query.Request{Query: query.NumericRange{Field: "price", Min: 20, Max: 100, MinInclusive: true, MaxInclusive: false}},
		LoadDocuments: true,
		Limit:         10,
	})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "b", res.Hits[0].ExternalID)
}

func TestScenarioS4VectorANNRanking(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	schema := laurus.Schema{
		"vec": laurus.FieldOption{Vector: &laurus.VectorFieldOption{
			Kind: laurus.VectorHNSW, Dimension: 3, Metric: laurus.MetricCosine, M: 16, EfConstruction: 200,
		}},
	}
	e, err := Open(ctx, st, schema, 0)
	require.NoError(t, err)

	_, err = e.AddDocument(ctx, "doc1", laurus.Document{"vec": laurus.VectorValue([]float32{1, 0, 0})})
	require.NoError(t, err)
	_, err = e.AddDocument(ctx, "doc2", laurus.Document{"vec": laurus.VectorValue([]float32{0, 1, 0})})
	require.NoError(t, err)
	_, err = e.AddDocument(ctx, "doc3", laurus.Document{"vec": laurus.VectorValue([]float32{0.9, 0.1, 0})})
	require.NoError(t, err)
	require.NoError(t, e.Commit(ctx))

	res, err := e.Search(ctx, Request{
		Vector:        []VectorClause{{Field: "vec", Vector: []float32{1, 0, 0}, Weight: 1}},
		VectorMode:    vector.ScoreWeightedSum,
		LoadDocuments: true,
		Limit:         2,
	})
	require.NoError(t, err)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "doc1", res.Hits[0].ExternalID)
	assert.Equal(t, "doc3", res.Hits[1].ExternalID)
}

func TestScenarioS5HybridRRF(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	schema := laurus.Schema{
		"body": laurus.FieldOption{Lexical: &laurus.LexicalFieldOption{Kind: laurus.LexicalText, Flags: laurus.TextFlags{Indexed: true, Stored: true}}},
		"vec":  laurus.FieldOption{Vector: &laurus.VectorFieldOption{Kind: laurus.VectorFlat, Dimension: 2, Metric: laurus.MetricCosine}},
	}
	e, err := Open(ctx, st, schema, 0, WithAnalyzer(wordAnalyzer{}))
	require.NoError(t, err)

	// Lexical term frequency ranks d1 > d2 > d3 on "rust"; d4 has no
	// match there at all. Cosine similarity to [1,0] ranks d3 > d2 > d4;
	// d1's vector is orthogonal to the query and falls outside the
	// top-3 candidate depth.
	_, err = e.AddDocument(ctx, "d1", laurus.Document{
		"body": laurus.TextValue("rust rust rust"),
		"vec":  laurus.VectorValue([]float32{0, 1}),
	})
	require.NoError(t, err)
	_, err = e.AddDocument(ctx, "d2", laurus.Document{
		"body": laurus.TextValue("rust rust"),
		"vec":  laurus.VectorValue([]float32{0.9, 0.1}),
	})
	require.NoError(t, err)
	_, err = e.AddDocument(ctx, "d3", laurus.Document{
		"body": laurus.TextValue("rust"),
		"vec":  laurus.VectorValue([]float32{1, 0}),
	})
	require.NoError(t, err)
	_, err = e.AddDocument(ctx, "d4", laurus.Document{
		"body": laurus.TextValue("other"),
		"vec":  laurus.VectorValue([]float32{0.8, 0.2}),
	})
	require.NoError(t, err)
	require.NoError(t, e.Commit(ctx))

	res, err := e.Search(ctx, Request{
		Lexical:       query.Request{Query: query.Term{Field: "body", Term: "rust"}},
		Vector:        []VectorClause{{Field: "vec", Vector: []float32{1, 0}, Weight: 1}},
		VectorMode:    vector.ScoreWeightedSum,
		VectorLimit:   3,
		Fusion:        FusionRRF,
		RRFK:          60,
		LoadDocuments: true,
		Limit:         10,
	})
	require.NoError(t, err)
	require.Len(t, res.Hits, 4)

	got := make([]string, len(res.Hits))
	for i, h := range res.Hits {
		got[i] = h.ExternalID
	}
	// d3 (lexical rank 3, vector rank 1) edges out d2 (rank 2 on both
	// lists): RRF's 1/(k+rank) is convex, so concentrating the
	// advantage in one list outscores splitting it evenly, per
	// fusion.RRF's worked-example test.
	assert.Equal(t, []string{"d3", "d2", "d1", "d4"}, got)
}

func TestScenarioS6CrashRecovery(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	schema := laurus.Schema{
		"body": laurus.FieldOption{Lexical: &laurus.LexicalFieldOption{Kind: laurus.LexicalText, Flags: laurus.TextFlags{Indexed: true, Stored: true}}},
	}

	e1, err := Open(ctx, st, schema, 0, WithAnalyzer(wordAnalyzer{}))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := e1.AddDocument(ctx, docExternalID(i), laurus.Document{"body": laurus.TextValue("doc body")})
		require.NoError(t, err)
	}
	require.NoError(t, e1.Commit(ctx))

	for i := 5; i < 8; i++ {
		_, err := e1.AddDocument(ctx, docExternalID(i), laurus.Document{"body": laurus.TextValue("doc body")})
		require.NoError(t, err)
	}
	// No Commit: simulate a crash here.

	res, err := e1.Search(ctx, Request{Lexical: query.Request{Query: query.Term{Field: "body", Term: "doc"}}, Limit: 100})
	require.NoError(t, err)
	assert.Len(t, res.Hits, 5, "uncommitted docs must not be visible before recovery")

	e2, err := Open(ctx, st, schema, 0, WithAnalyzer(wordAnalyzer{}))
	require.NoError(t, err)
	res, err = e2.Search(ctx, Request{Lexical: query.Request{Query: query.Term{Field: "body", Term: "doc"}}, Limit: 100})
	require.NoError(t, err)
	assert.Len(t, res.Hits, 5, "reopen alone (no commit yet) still shows only the committed docs")

	require.NoError(t, e2.Commit(ctx))
	res, err = e2.Search(ctx, Request{Lexical: query.Request{Query: query.Term{Field: "body", Term: "doc"}}, Limit: 100})
	require.NoError(t, err)
	assert.Len(t, res.Hits, 8, "recovery replay + commit must surface all 8 docs")
}

func docExternalID(i int) string {
	return "doc-" + string(rune('a'+i))
}
