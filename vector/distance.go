// Package vector implements the three vector index kinds spec.md §4.8
// names (Flat, HNSW, IVF), their distance kernels, and quantizers. The
// on-disk layout and HNSW's deterministic level assignment and
// neighbor-selection heuristic are spec-mandated and implemented
// directly; coder/hnsw (the teacher's vector store dependency) is kept
// only as a cross-validation oracle in hnsw_oracle_test.go, since its
// public API does not expose the deterministic internals the spec
// requires (see DESIGN.md).
package vector

import (
	"math"

	laurus "github.com/Aman-CERP/laurus"
)

// Metric is an alias to the root package's Metric type, since vector
// indexes are configured directly from a laurus.Schema.
type Metric = laurus.Metric

const (
	MetricCosine     = laurus.MetricCosine
	MetricEuclidean  = laurus.MetricEuclidean
	MetricManhattan  = laurus.MetricManhattan
	MetricDotProduct = laurus.MetricDotProduct
	MetricAngular    = laurus.MetricAngular
)

// Distance computes the distance between a and b under metric. Lower
// is always more similar, even for metrics (cosine, dot product) whose
// natural similarity score runs the other way -- Score converts back.
func Distance(metric Metric, a, b []float32) float64 {
	switch metric {
	case MetricEuclidean:
		return euclidean(a, b)
	case MetricManhattan:
		return manhattan(a, b)
	case MetricDotProduct:
		return -dot(a, b)
	case MetricAngular:
		return angular(a, b)
	default: // MetricCosine
		return 1 - cosineSimilarity(a, b)
	}
}

// Score converts a Distance result back into a similarity score,
// higher is more similar, for presentation and fusion. The score lies
// in (-inf, 1] for every metric except dot product, whose score is the
// raw dot product and is unbounded.
func Score(metric Metric, distance float64) float64 {
	switch metric {
	case MetricDotProduct:
		return -distance
	default:
		return 1 - distance
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(a []float32) float64 {
	return math.Sqrt(dot(a, a))
}

func cosineSimilarity(a, b []float32) float64 {
	na, nb := norm(a), norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot(a, b) / (na * nb)
}

func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func manhattan(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return sum
}

func angular(a, b []float32) float64 {
	sim := cosineSimilarity(a, b)
	if sim > 1 {
		sim = 1
	}
	if sim < -1 {
		sim = -1
	}
	return math.Acos(sim) / math.Pi
}
