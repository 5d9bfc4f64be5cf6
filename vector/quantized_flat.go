package vector

import (
	"context"
	"io"
	"sort"

	laurus "github.com/Aman-CERP/laurus"
	"github.com/Aman-CERP/laurus/encoding"
	"github.com/Aman-CERP/laurus/storage"
)

// quantizedTrainThreshold is how many raw vectors QuantizedFlatIndex
// buffers before it trains a codec and starts encoding. Below this
// threshold there isn't enough data to fit useful min/max bounds or
// codebooks, so searches fall back to exact distance over the raw
// buffer.
const quantizedTrainThreshold = 256

// quantizerCodec is the common shape of Scalar8BitQuantizer and
// ProductQuantizer: encode a vector to a compact byte code, decode it
// back to an approximation, and score a query against a code directly.
type quantizerCodec interface {
	Encode(v []float32) []uint8
	Decode(code []uint8) []float32
	Distance(metric Metric, query []float32, code []uint8) float64
}

// QuantizedFlatIndex is a linear-scan index like FlatIndex, but stores
// vectors as quantized codes (schema.md's VectorFieldOption.Quantizer)
// once enough have been added to train a codec, trading exact distances
// for an 8-bit-per-dimension (scalar) or 8-bit-per-subvector (product)
// footprint. Restricted to VectorFlat fields (schema.go's Validate):
// HNSW/IVF graphs and clusters are built from exact distances during
// construction, so retrofitting quantized codes into them would change
// their topology, not just their storage.
type QuantizedFlatIndex struct {
	metric         Metric
	dimension      int
	quantizer      QuantizerKind
	subvectorCount int

	codec   quantizerCodec
	codes   map[uint64][]uint8
	pending map[uint64][]float32 // raw vectors buffered until codec trains
}

// NewQuantizedFlatIndex returns an empty index that will train its
// codec once quantizedTrainThreshold vectors have been added.
func NewQuantizedFlatIndex(metric Metric, dimension int, quantizer QuantizerKind, subvectorCount int) *QuantizedFlatIndex {
	return &QuantizedFlatIndex{
		metric:         metric,
		dimension:      dimension,
		quantizer:      quantizer,
		subvectorCount: subvectorCount,
		codes:          map[uint64][]uint8{},
		pending:        map[uint64][]float32{},
	}
}

func (q *QuantizedFlatIndex) Add(id uint64, v []float32) error {
	if len(v) != q.dimension {
		return laurus.Newf(laurus.KindField, "vector dimension %d does not match schema dimension %d", len(v), q.dimension)
	}
	if q.codec != nil {
		q.codes[id] = q.codec.Encode(v)
		return nil
	}
	q.pending[id] = v
	if len(q.pending) >= quantizedTrainThreshold {
		q.train()
	}
	return nil
}

func (q *QuantizedFlatIndex) train() {
	vectors := make([][]float32, 0, len(q.pending))
	for _, v := range q.pending {
		vectors = append(vectors, v)
	}
	switch q.quantizer {
	case QuantizerScalar8Bit:
		q.codec = TrainScalar8Bit(vectors, q.dimension)
	case QuantizerProductQuant:
		q.codec = TrainProductQuantizer(vectors, q.dimension, q.subvectorCount)
	default:
		return
	}
	for id, v := range q.pending {
		q.codes[id] = q.codec.Encode(v)
	}
	q.pending = map[uint64][]float32{}
}

func (q *QuantizedFlatIndex) Delete(id uint64) {
	delete(q.codes, id)
	delete(q.pending, id)
}

func (q *QuantizedFlatIndex) Len() int { return len(q.codes) + len(q.pending) }

// SearchTopK satisfies the FieldIndex interface shared by Flat, HNSW,
// and IVF.
func (q *QuantizedFlatIndex) SearchTopK(query []float32, topK int, allowlist map[uint64]struct{}) []ScoredID {
	type cand struct {
		id   uint64
		dist float64
	}
	var cands []cand
	allowed := func(id uint64) bool {
		if allowlist == nil {
			return true
		}
		_, ok := allowlist[id]
		return ok
	}
	for id, code := range q.codes {
		if !allowed(id) {
			continue
		}
		cands = append(cands, cand{id, q.codec.Distance(q.metric, query, code)})
	}
	for id, v := range q.pending {
		if !allowed(id) {
			continue
		}
		cands = append(cands, cand{id, Distance(q.metric, query, v)})
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
	if topK > 0 && topK < len(cands) {
		cands = cands[:topK]
	}
	out := make([]ScoredID, len(cands))
	for i, c := range cands {
		out[i] = ScoredID{ID: c.id, Score: Score(q.metric, c.dist)}
	}
	return out
}

const quantizedFlatMagic = "QFLT"

// Save persists the index, including its trained codec (if any) and
// every code/pending-raw vector. Like FlatIndex, ".flat"-family formats
// skip CRC framing (spec.md §6): rebuilding from stored vectors is
// cheap, so the extra checksum isn't worth paying on every load.
func (q *QuantizedFlatIndex) Save(ctx context.Context, st storage.Storage, path string) error {
	w, err := st.CreateWrite(ctx, path)
	if err != nil {
		return err
	}
	defer w.Close()

	raw := encoding.NewWriter()
	raw.Raw([]byte(quantizedFlatMagic))
	raw.U32(uint32(q.dimension))
	raw.String(string(q.quantizer))
	raw.Varint(uint64(q.subvectorCount))

	trained := q.codec != nil
	raw.U8(boolByte(trained))
	if trained {
		switch c := q.codec.(type) {
		case *Scalar8BitQuantizer:
			c.writeTo(raw)
		case *ProductQuantizer:
			c.writeTo(raw)
		}
	}

	raw.Varint(uint64(len(q.codes)))
	for id, code := range q.codes {
		raw.U64(id)
		raw.Raw(code)
	}
	raw.Varint(uint64(len(q.pending)))
	for id, v := range q.pending {
		raw.U64(id)
		for _, c := range v {
			raw.F32(c)
		}
	}
	if _, err := w.Write(raw.Body()); err != nil {
		return laurus.Wrap(laurus.KindIo, err)
	}
	return w.Sync()
}

func LoadQuantizedFlatIndex(ctx context.Context, st storage.Storage, path string, metric Metric) (*QuantizedFlatIndex, error) {
	r, err := st.OpenRead(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, laurus.Wrap(laurus.KindIo, err)
	}
	fr := encoding.NewRawReader(buf)
	magic, err := fr.Raw(len(quantizedFlatMagic))
	if err != nil || string(magic) != quantizedFlatMagic {
		return nil, laurus.New(laurus.KindIndex, "quantized flat index: bad magic")
	}
	dimBits, err := fr.U32()
	if err != nil {
		return nil, err
	}
	quantizerName, err := fr.String()
	if err != nil {
		return nil, err
	}
	subvectorCount, err := fr.Varint()
	if err != nil {
		return nil, err
	}
	idx := NewQuantizedFlatIndex(metric, int(dimBits), QuantizerKind(quantizerName), int(subvectorCount))

	trained, err := fr.U8()
	if err != nil {
		return nil, err
	}
	if trained == 1 {
		switch idx.quantizer {
		case QuantizerScalar8Bit:
			if idx.codec, err = readScalar8BitQuantizer(fr); err != nil {
				return nil, err
			}
		case QuantizerProductQuant:
			if idx.codec, err = readProductQuantizer(fr); err != nil {
				return nil, err
			}
		default:
			return nil, laurus.Newf(laurus.KindIndex, "quantized flat index: unknown quantizer %q", quantizerName)
		}
	}

	nCodes, err := fr.Varint()
	if err != nil {
		return nil, err
	}
	codeLen := idx.dimension
	if idx.quantizer == QuantizerProductQuant {
		codeLen = int(subvectorCount)
	}
	for i := uint64(0); i < nCodes; i++ {
		id, err := fr.U64()
		if err != nil {
			return nil, err
		}
		code, err := fr.Raw(codeLen)
		if err != nil {
			return nil, err
		}
		idx.codes[id] = append([]byte(nil), code...)
	}

	nPending, err := fr.Varint()
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < nPending; i++ {
		id, err := fr.U64()
		if err != nil {
			return nil, err
		}
		v := make([]float32, idx.dimension)
		for j := range v {
			if v[j], err = fr.F32(); err != nil {
				return nil, err
			}
		}
		idx.pending[id] = v
	}
	return idx, nil
}
