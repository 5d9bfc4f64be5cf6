package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildQueryFixture(t *testing.T) map[string]FieldIndex {
	t.Helper()
	title := NewFlatIndex(MetricEuclidean, 2)
	require.NoError(t, title.Add(1, []float32{0, 0}))
	require.NoError(t, title.Add(2, []float32{5, 5}))

	body := NewFlatIndex(MetricEuclidean, 2)
	require.NoError(t, body.Add(1, []float32{0, 0}))
	require.NoError(t, body.Add(2, []float32{1, 1}))

	return map[string]FieldIndex{"title": title, "body": body}
}

func TestExecuteWeightedSumCombinesClauses(t *testing.T) {
	indexes := buildQueryFixture(t)
	req := Request{
		Clauses: []Clause{
			{Field: "title", Vector: []float32{0, 0}, Weight: 1},
			{Field: "body", Vector: []float32{0, 0}, Weight: 1},
		},
		Mode:  ScoreWeightedSum,
		Limit: 2,
	}
	hits, err := Execute(context.Background(), indexes, req)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, uint64(1), hits[0].ID)
}

func TestExecuteMaxSimKeepsBestClause(t *testing.T) {
	indexes := buildQueryFixture(t)
	req := Request{
		Clauses: []Clause{
			{Field: "title", Vector: []float32{5, 5}, Weight: 1},
			{Field: "body", Vector: []float32{0, 0}, Weight: 1},
		},
		Mode:  ScoreMaxSim,
		Limit: 2,
	}
	hits, err := Execute(context.Background(), indexes, req)
	require.NoError(t, err)
	assert.NotEmpty(t, hits)
}

func TestExecuteRespectsAllowlist(t *testing.T) {
	indexes := buildQueryFixture(t)
	allow := map[uint64]struct{}{2: {}}
	req := Request{
		Clauses:   []Clause{{Field: "title", Vector: []float32{0, 0}, Weight: 1}},
		Mode:      ScoreWeightedSum,
		Limit:     2,
		Allowlist: allow,
	}
	hits, err := Execute(context.Background(), indexes, req)
	require.NoError(t, err)
	for _, h := range hits {
		assert.Equal(t, uint64(2), h.ID)
	}
}

func TestExecuteUnknownFieldYieldsNoHits(t *testing.T) {
	indexes := buildQueryFixture(t)
	req := Request{
		Clauses: []Clause{{Field: "missing", Vector: []float32{0, 0}, Weight: 1}},
		Mode:    ScoreWeightedSum,
		Limit:   2,
	}
	hits, err := Execute(context.Background(), indexes, req)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
