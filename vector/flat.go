package vector

import (
	"context"
	"io"
	"sort"

	laurus "github.com/Aman-CERP/laurus"
	"github.com/Aman-CERP/laurus/encoding"
	"github.com/Aman-CERP/laurus/storage"
)

// FlatIndex is a linear-scan index: exact, no approximation, the
// baseline every ANN index is validated against.
type FlatIndex struct {
	metric    Metric
	dimension int
	vectors   map[uint64][]float32 // internal id -> vector
}

// NewFlatIndex returns an empty flat index.
func NewFlatIndex(metric Metric, dimension int) *FlatIndex {
	return &FlatIndex{metric: metric, dimension: dimension, vectors: map[uint64][]float32{}}
}

func (f *FlatIndex) Add(id uint64, v []float32) error {
	if len(v) != f.dimension {
		return laurus.Newf(laurus.KindField, "vector dimension %d does not match schema dimension %d", len(v), f.dimension)
	}
	f.vectors[id] = v
	return nil
}

func (f *FlatIndex) Delete(id uint64) { delete(f.vectors, id) }

// SearchTopK satisfies the FieldIndex interface shared by Flat, HNSW,
// and IVF.
func (f *FlatIndex) SearchTopK(query []float32, topK int, allowlist map[uint64]struct{}) []ScoredID {
	return f.Search(query, topK, allowlist)
}

// Search returns the topK nearest ids to query, restricted to allowlist
// when non-nil (post-filter: spec.md §4.9's "filtered ANN" semantics).
func (f *FlatIndex) Search(query []float32, topK int, allowlist map[uint64]struct{}) []ScoredID {
	type cand struct {
		id   uint64
		dist float64
	}
	var cands []cand
	for id, v := range f.vectors {
		if allowlist != nil {
			if _, ok := allowlist[id]; !ok {
				continue
			}
		}
		cands = append(cands, cand{id, Distance(f.metric, query, v)})
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
	if topK > 0 && topK < len(cands) {
		cands = cands[:topK]
	}
	out := make([]ScoredID, len(cands))
	for i, c := range cands {
		out[i] = ScoredID{ID: c.id, Score: Score(f.metric, c.dist)}
	}
	return out
}

func (f *FlatIndex) Len() int { return len(f.vectors) }

// ScoredID is one ranked result from any vector index.
type ScoredID struct {
	ID    uint64
	Score float64
}

const flatMagic = "FLAT"

// Save persists the index. Like the other vector formats, ".flat" is a
// documented exception to CRC framing (spec.md §6): flat indexes are
// cheap to rebuild from stored vectors, so the extra checksum on every
// load is not worth paying.
func (f *FlatIndex) Save(ctx context.Context, st storage.Storage, path string) error {
	w, err := st.CreateWrite(ctx, path)
	if err != nil {
		return err
	}
	defer w.Close()

	raw := encoding.NewWriter()
	raw.Raw([]byte(flatMagic))
	raw.U32(uint32(f.dimension))
	raw.Varint(uint64(len(f.vectors)))
	for id, v := range f.vectors {
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

func LoadFlatIndex(ctx context.Context, st storage.Storage, path string, metric Metric) (*FlatIndex, error) {
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
	magic, err := fr.Raw(len(flatMagic))
	if err != nil || string(magic) != flatMagic {
		return nil, laurus.New(laurus.KindIndex, "flat index: bad magic")
	}
	dimBits, err := fr.U32()
	if err != nil {
		return nil, err
	}
	dimension := int(dimBits)
	n, err := fr.Varint()
	if err != nil {
		return nil, err
	}
	idx := NewFlatIndex(metric, dimension)
	for i := uint64(0); i < n; i++ {
		id, err := fr.U64()
		if err != nil {
			return nil, err
		}
		v := make([]float32, dimension)
		for j := range v {
			c, err := fr.F32()
			if err != nil {
				return nil, err
			}
			v[j] = c
		}
		idx.vectors[id] = v
	}
	return idx, nil
}
