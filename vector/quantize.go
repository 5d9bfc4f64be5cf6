package vector

import (
	"math"

	"github.com/Aman-CERP/laurus/encoding"
)

// Scalar8BitQuantizer maps each dimension's float32 range onto a single
// byte, per schema.md's QuantizerScalar8Bit. One (min, max) pair is
// fitted per dimension from the training vectors, then held fixed.
type Scalar8BitQuantizer struct {
	min, max []float32
}

// TrainScalar8Bit fits per-dimension min/max bounds from vectors.
func TrainScalar8Bit(vectors [][]float32, dimension int) *Scalar8BitQuantizer {
	q := &Scalar8BitQuantizer{
		min: make([]float32, dimension),
		max: make([]float32, dimension),
	}
	for j := 0; j < dimension; j++ {
		q.min[j] = math.MaxFloat32
		q.max[j] = -math.MaxFloat32
	}
	for _, v := range vectors {
		for j, c := range v {
			if c < q.min[j] {
				q.min[j] = c
			}
			if c > q.max[j] {
				q.max[j] = c
			}
		}
	}
	for j := range q.min {
		if q.min[j] == q.max[j] {
			q.max[j] = q.min[j] + 1
		}
	}
	return q
}

// Encode quantizes v to one byte per dimension.
func (q *Scalar8BitQuantizer) Encode(v []float32) []uint8 {
	out := make([]uint8, len(v))
	for j, c := range v {
		span := q.max[j] - q.min[j]
		t := (c - q.min[j]) / span
		if t < 0 {
			t = 0
		}
		if t > 1 {
			t = 1
		}
		out[j] = uint8(math.Round(float64(t) * 255))
	}
	return out
}

// Decode reconstructs an approximate float32 vector from code.
func (q *Scalar8BitQuantizer) Decode(code []uint8) []float32 {
	out := make([]float32, len(code))
	for j, b := range code {
		span := q.max[j] - q.min[j]
		out[j] = q.min[j] + span*float32(b)/255
	}
	return out
}

// Distance computes Distance(metric, query, decoded-code); the code is
// decoded into a new []float32 on every call.
func (q *Scalar8BitQuantizer) Distance(metric Metric, query []float32, code []uint8) float64 {
	return Distance(metric, query, q.Decode(code))
}

// writeTo appends q's per-dimension min/max bounds to w.
func (q *Scalar8BitQuantizer) writeTo(w *encoding.Writer) {
	w.Varint(uint64(len(q.min)))
	for j := range q.min {
		w.F32(q.min[j])
		w.F32(q.max[j])
	}
}

func readScalar8BitQuantizer(r *encoding.RawReader) (*Scalar8BitQuantizer, error) {
	n, err := r.Varint()
	if err != nil {
		return nil, err
	}
	q := &Scalar8BitQuantizer{min: make([]float32, n), max: make([]float32, n)}
	for j := range q.min {
		if q.min[j], err = r.F32(); err != nil {
			return nil, err
		}
		if q.max[j], err = r.F32(); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// ProductQuantizer splits each vector into subvectorCount contiguous
// chunks and fits an independent small codebook (k-means, fixed
// iteration cap) per chunk, per schema.md's QuantizerProductQuant. It
// trades accuracy for an 8-bit-per-subvector code size; recall is lower
// than scalar quantization and is documented as such rather than tuned
// for optimality (see DESIGN.md).
type ProductQuantizer struct {
	subvectorCount int
	subvectorDim   int
	codebooks      [][][]float32 // codebooks[subvector][centroid] = sub-vector
}

const (
	pqCentroids  = 256 // one byte per subvector code
	pqIterations = 20
)

// TrainProductQuantizer fits one codebook per subvector from vectors.
func TrainProductQuantizer(vectors [][]float32, dimension, subvectorCount int) *ProductQuantizer {
	subDim := dimension / subvectorCount
	pq := &ProductQuantizer{
		subvectorCount: subvectorCount,
		subvectorDim:   subDim,
		codebooks:      make([][][]float32, subvectorCount),
	}
	for s := 0; s < subvectorCount; s++ {
		chunks := make([][]float32, len(vectors))
		for i, v := range vectors {
			chunks[i] = v[s*subDim : (s+1)*subDim]
		}
		k := pqCentroids
		if k > len(chunks) {
			k = len(chunks)
		}
		if k == 0 {
			pq.codebooks[s] = nil
			continue
		}
		ids := make([]uint64, len(chunks))
		for i := range ids {
			ids[i] = uint64(i)
		}
		pq.codebooks[s] = kMeansPlusPlusN(chunks, k, MetricEuclidean, subDim, ids, pqIterations)
	}
	return pq
}

// kMeansPlusPlusN is kMeansPlusPlus parameterized by iteration cap,
// factored out so both IVF training and product quantization share one
// Lloyd's-algorithm implementation.
func kMeansPlusPlusN(points [][]float32, k int, metric Metric, dimension int, ids []uint64, maxIterations int) [][]float32 {
	centroids := make([][]float32, 0, k)
	centroids = append(centroids, append([]float32(nil), points[0]...))

	dist2 := make([]float64, len(points))
	for len(centroids) < k {
		var total float64
		for i, p := range points {
			d := Distance(metric, p, centroids[len(centroids)-1])
			sq := d * d
			if len(centroids) == 1 || sq < dist2[i] {
				dist2[i] = sq
			}
			total += dist2[i]
		}
		if total == 0 {
			centroids = append(centroids, append([]float32(nil), points[len(centroids)%len(points)]...))
			continue
		}
		target := deterministicDraw(ids[len(centroids)%len(ids)]) * total
		var cum float64
		chosen := len(points) - 1
		for i, d := range dist2 {
			cum += d
			if cum >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, append([]float32(nil), points[chosen]...))
	}

	for iter := 0; iter < maxIterations; iter++ {
		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, dimension)
		}
		for _, p := range points {
			c := nearestCentroidOf(p, centroids, metric)
			counts[c]++
			for j, v := range p {
				sums[c][j] += float64(v)
			}
		}
		var movement float64
		next := make([][]float32, k)
		for c := range centroids {
			if counts[c] == 0 {
				next[c] = centroids[c]
				continue
			}
			nv := make([]float32, dimension)
			for j := range nv {
				nv[j] = float32(sums[c][j] / float64(counts[c]))
			}
			movement += Distance(metric, centroids[c], nv)
			next[c] = nv
		}
		centroids = next
		if movement < ivfConvergenceEpsilon {
			break
		}
	}
	return centroids
}

// Encode maps v to one byte per subvector: the index of its nearest
// codebook centroid.
func (pq *ProductQuantizer) Encode(v []float32) []uint8 {
	code := make([]uint8, pq.subvectorCount)
	for s := 0; s < pq.subvectorCount; s++ {
		chunk := v[s*pq.subvectorDim : (s+1)*pq.subvectorDim]
		code[s] = uint8(nearestCentroidOf(chunk, pq.codebooks[s], MetricEuclidean))
	}
	return code
}

// Decode reconstructs an approximate vector by concatenating each
// subvector's codebook centroid.
func (pq *ProductQuantizer) Decode(code []uint8) []float32 {
	out := make([]float32, pq.subvectorCount*pq.subvectorDim)
	for s, c := range code {
		copy(out[s*pq.subvectorDim:(s+1)*pq.subvectorDim], pq.codebooks[s][c])
	}
	return out
}

// Distance computes Distance(metric, query, decoded-code).
func (pq *ProductQuantizer) Distance(metric Metric, query []float32, code []uint8) float64 {
	return Distance(metric, query, pq.Decode(code))
}

// writeTo appends pq's subvector layout and codebooks to w.
func (pq *ProductQuantizer) writeTo(w *encoding.Writer) {
	w.Varint(uint64(pq.subvectorCount))
	w.Varint(uint64(pq.subvectorDim))
	for _, book := range pq.codebooks {
		w.Varint(uint64(len(book)))
		for _, centroid := range book {
			for _, c := range centroid {
				w.F32(c)
			}
		}
	}
}

func readProductQuantizer(r *encoding.RawReader) (*ProductQuantizer, error) {
	subvectorCount, err := r.Varint()
	if err != nil {
		return nil, err
	}
	subvectorDim, err := r.Varint()
	if err != nil {
		return nil, err
	}
	pq := &ProductQuantizer{
		subvectorCount: int(subvectorCount),
		subvectorDim:   int(subvectorDim),
		codebooks:      make([][][]float32, subvectorCount),
	}
	for s := range pq.codebooks {
		k, err := r.Varint()
		if err != nil {
			return nil, err
		}
		book := make([][]float32, k)
		for c := range book {
			centroid := make([]float32, subvectorDim)
			for j := range centroid {
				if centroid[j], err = r.F32(); err != nil {
					return nil, err
				}
			}
			book[c] = centroid
		}
		pq.codebooks[s] = book
	}
	return pq, nil
}
