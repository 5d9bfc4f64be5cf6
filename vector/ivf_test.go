package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/laurus/storage"
)

func twoClusterVectors() map[uint64][]float32 {
	return map[uint64][]float32{
		1: {0, 0}, 2: {0.1, 0}, 3: {0, 0.1}, 4: {-0.1, -0.1},
		5: {20, 20}, 6: {20.1, 20}, 7: {20, 20.1}, 8: {19.9, 19.9},
	}
}

func TestIVFIndexTrainAndSearch(t *testing.T) {
	idx := NewIVFIndex(IVFConfig{Metric: MetricEuclidean, Dimension: 2, NClusters: 2, NProbe: 1})
	for id, v := range twoClusterVectors() {
		require.NoError(t, idx.Add(id, v))
	}
	idx.Train(0)

	hits := idx.Search([]float32{20, 20}, 4, nil)
	require.NotEmpty(t, hits)
	for _, h := range hits {
		assert.GreaterOrEqual(t, h.ID, uint64(5))
	}
}

func TestIVFIndexNProbeWidensCoverage(t *testing.T) {
	idx := NewIVFIndex(IVFConfig{Metric: MetricEuclidean, Dimension: 2, NClusters: 2, NProbe: 2})
	for id, v := range twoClusterVectors() {
		require.NoError(t, idx.Add(id, v))
	}
	idx.Train(0)

	hits := idx.Search([]float32{10, 10}, 8, nil)
	assert.Len(t, hits, 8)
}

func TestIVFIndexDeleteExcludesFromSearch(t *testing.T) {
	idx := NewIVFIndex(IVFConfig{Metric: MetricEuclidean, Dimension: 2, NClusters: 2, NProbe: 2})
	for id, v := range twoClusterVectors() {
		require.NoError(t, idx.Add(id, v))
	}
	idx.Train(0)
	idx.Delete(5)

	hits := idx.Search([]float32{20, 20}, 8, nil)
	for _, h := range hits {
		assert.NotEqual(t, uint64(5), h.ID)
	}
}

func TestIVFIndexHonorsAllowlist(t *testing.T) {
	idx := NewIVFIndex(IVFConfig{Metric: MetricEuclidean, Dimension: 2, NClusters: 2, NProbe: 2})
	for id, v := range twoClusterVectors() {
		require.NoError(t, idx.Add(id, v))
	}
	idx.Train(0)
	allow := map[uint64]struct{}{1: {}, 5: {}}

	hits := idx.Search([]float32{10, 10}, 8, allow)
	for _, h := range hits {
		assert.Contains(t, []uint64{1, 5}, h.ID)
	}
}

func TestIVFIndexSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	idx := NewIVFIndex(IVFConfig{Metric: MetricEuclidean, Dimension: 2, NClusters: 2, NProbe: 2})
	for id, v := range twoClusterVectors() {
		require.NoError(t, idx.Add(id, v))
	}
	idx.Train(0)
	require.NoError(t, idx.Save(ctx, st, "clusters.ivf"))

	loaded, err := LoadIVFIndex(ctx, st, "clusters.ivf", MetricEuclidean)
	require.NoError(t, err)
	assert.Equal(t, idx.Len(), loaded.Len())

	hits := loaded.Search([]float32{20, 20}, 4, nil)
	assert.NotEmpty(t, hits)
}

func TestDefaultIVFConfigRaisesNProbe(t *testing.T) {
	cfg := DefaultIVFConfig(MetricCosine, 8, 16)
	assert.Equal(t, 8, cfg.NProbe)
}
