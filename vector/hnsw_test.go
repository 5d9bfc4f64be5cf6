package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/laurus/storage"
)

func gridVectors() map[uint64][]float32 {
	return map[uint64][]float32{
		1: {0, 0},
		2: {1, 0},
		3: {0, 1},
		4: {10, 10},
		5: {11, 10},
		6: {10, 11},
	}
}

func TestHNSWIndexFindsNearestCluster(t *testing.T) {
	idx := NewHNSWIndex(HNSWConfig{Metric: MetricEuclidean, Dimension: 2, M: 8, EfConstruction: 50})
	for id, v := range gridVectors() {
		require.NoError(t, idx.Add(id, v))
	}
	hits := idx.Search([]float32{10.5, 10.5}, 3, 50, nil)
	require.Len(t, hits, 3)
	seen := map[uint64]bool{}
	for _, h := range hits {
		seen[h.ID] = true
	}
	assert.True(t, seen[4] && seen[5] && seen[6])
}

func TestHNSWIndexHonorsAllowlist(t *testing.T) {
	idx := NewHNSWIndex(HNSWConfig{Metric: MetricEuclidean, Dimension: 2, M: 8, EfConstruction: 50})
	for id, v := range gridVectors() {
		require.NoError(t, idx.Add(id, v))
	}
	allow := map[uint64]struct{}{1: {}, 2: {}, 3: {}}
	hits := idx.Search([]float32{10.5, 10.5}, 3, 50, allow)
	for _, h := range hits {
		assert.Contains(t, []uint64{1, 2, 3}, h.ID)
	}
}

func TestHNSWIndexDeleteExcludesFromSearch(t *testing.T) {
	idx := NewHNSWIndex(HNSWConfig{Metric: MetricEuclidean, Dimension: 2, M: 8, EfConstruction: 50})
	for id, v := range gridVectors() {
		require.NoError(t, idx.Add(id, v))
	}
	idx.Delete(4)
	hits := idx.Search([]float32{10, 10}, 3, 50, nil)
	for _, h := range hits {
		assert.NotEqual(t, uint64(4), h.ID)
	}
}

func TestHNSWIndexSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	idx := NewHNSWIndex(HNSWConfig{Metric: MetricEuclidean, Dimension: 2, M: 8, EfConstruction: 50})
	for id, v := range gridVectors() {
		require.NoError(t, idx.Add(id, v))
	}
	require.NoError(t, idx.Save(ctx, st, "graph.hnsw"))

	loaded, err := LoadHNSWIndex(ctx, st, "graph.hnsw", MetricEuclidean)
	require.NoError(t, err)
	assert.Equal(t, idx.Len(), loaded.Len())

	hits := loaded.Search([]float32{0, 0}, 2, 50, nil)
	seen := map[uint64]bool{}
	for _, h := range hits {
		seen[h.ID] = true
	}
	assert.True(t, seen[1])
}

func TestHNSWIndexRejectsWrongDimension(t *testing.T) {
	idx := NewHNSWIndex(HNSWConfig{Metric: MetricEuclidean, Dimension: 2, M: 8, EfConstruction: 50})
	require.NoError(t, idx.Add(1, []float32{1, 2}))
	err := idx.Add(2, []float32{1, 2, 3})
	assert.Error(t, err)
}
