package vector

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"io"
	"math"
	"sort"
	"sync"

	laurus "github.com/Aman-CERP/laurus"
	"github.com/Aman-CERP/laurus/encoding"
	"github.com/Aman-CERP/laurus/storage"
)

// HNSWConfig carries the build-time parameters spec.md §4.8 names.
type HNSWConfig struct {
	Metric         Metric
	Dimension      int
	M              int // max neighbors per node per layer
	EfConstruction int
	EfSearch       int // candidate width at query time; defaults to EfConstruction
}

type hnswNode struct {
	id        uint64
	vector    []float32
	level     int
	neighbors [][]uint64 // neighbors[level] = neighbor ids at that level
	deleted   bool
}

// HNSWIndex is a deterministic hierarchical navigable small world graph.
// Level assignment is a function of the node id rather than a random
// draw, so two builds over the same document set produce byte-identical
// graphs (spec.md §4.8's determinism requirement) -- this is the one
// place the implementation necessarily diverges from coder/hnsw, whose
// level assignment is seeded from a non-reproducible RNG; coder/hnsw is
// kept instead as a recall cross-check (hnsw_oracle_test.go).
type HNSWIndex struct {
	mu      sync.RWMutex
	cfg     HNSWConfig
	nodes   map[uint64]*hnswNode
	entry   uint64
	hasRoot bool
}

// NewHNSWIndex returns an empty HNSW index.
func NewHNSWIndex(cfg HNSWConfig) *HNSWIndex {
	if cfg.M <= 0 {
		cfg.M = 16
	}
	if cfg.EfConstruction <= 0 {
		cfg.EfConstruction = 200
	}
	if cfg.EfSearch <= 0 {
		cfg.EfSearch = cfg.EfConstruction
	}
	return &HNSWIndex{cfg: cfg, nodes: map[uint64]*hnswNode{}}
}

// deterministicLevel derives a node's top layer from a hash of its id,
// emulating the exponential-decay level distribution (1/M branching
// factor) a random draw would give, without depending on global state.
func deterministicLevel(id uint64, m int) int {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], id)
	h.Write(buf[:])
	r := float64(h.Sum64()) / float64(^uint64(0))
	if r <= 0 {
		r = 1e-12
	}
	ml := 1.0 / math.Log(float64(m))
	level := int(math.Floor(-math.Log(r) * ml))
	if level > 32 {
		level = 32
	}
	return level
}

// Add inserts id/vector into the graph.
func (h *HNSWIndex) Add(id uint64, v []float32) error {
	if len(v) != h.cfg.Dimension {
		return laurus.Newf(laurus.KindField, "vector dimension %d does not match schema dimension %d", len(v), h.cfg.Dimension)
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	level := deterministicLevel(id, h.cfg.M)
	node := &hnswNode{id: id, vector: v, level: level, neighbors: make([][]uint64, level+1)}
	h.nodes[id] = node

	if !h.hasRoot {
		h.entry = id
		h.hasRoot = true
		return nil
	}

	entry := h.nodes[h.entry]
	cur := entry.id
	for lc := entry.level; lc > level; lc-- {
		cur = h.greedyClosest(cur, v, lc)
	}
	for lc := min(level, entry.level); lc >= 0; lc-- {
		candidates := h.searchLayer(v, cur, h.cfg.EfConstruction, lc)
		layerCap := h.cfg.M
		if lc == 0 {
			layerCap = 2 * h.cfg.M
		}
		neighbors := h.selectNeighborsHeuristic(v, candidates, layerCap)
		node.neighbors[lc] = neighbors
		for _, nb := range neighbors {
			h.connect(nb, id, lc)
		}
		if len(candidates) > 0 {
			cur = candidates[0].id
		}
	}
	if level > entry.level {
		h.entry = id
	}
	return nil
}

// connect adds a bidirectional edge, pruning the target's neighbor list
// back to its layer cap if it overflows. Layer 0 gets 2*M, every other
// layer gets M, matching the denser base layer the paper calls for.
func (h *HNSWIndex) connect(from, to uint64, layer int) {
	node := h.nodes[from]
	if layer >= len(node.neighbors) {
		grown := make([][]uint64, layer+1)
		copy(grown, node.neighbors)
		node.neighbors = grown
	}
	node.neighbors[layer] = append(node.neighbors[layer], to)
	layerCap := h.cfg.M
	if layer == 0 {
		layerCap = 2 * h.cfg.M
	}
	if len(node.neighbors[layer]) > layerCap {
		cands := make([]ScoredID, len(node.neighbors[layer]))
		for i, nid := range node.neighbors[layer] {
			cands[i] = ScoredID{ID: nid, Score: -Distance(h.cfg.Metric, node.vector, h.nodes[nid].vector)}
		}
		sort.Slice(cands, func(i, j int) bool { return cands[i].Score > cands[j].Score })
		pruned := make([]uint64, 0, layerCap)
		for i := 0; i < layerCap && i < len(cands); i++ {
			pruned = append(pruned, cands[i].ID)
		}
		node.neighbors[layer] = pruned
	}
}

func (h *HNSWIndex) greedyClosest(from uint64, query []float32, layer int) uint64 {
	best := from
	bestDist := Distance(h.cfg.Metric, query, h.nodes[from].vector)
	improved := true
	for improved {
		improved = false
		node := h.nodes[best]
		if layer >= len(node.neighbors) {
			break
		}
		for _, nid := range node.neighbors[layer] {
			d := Distance(h.cfg.Metric, query, h.nodes[nid].vector)
			if d < bestDist {
				bestDist = d
				best = nid
				improved = true
			}
		}
	}
	return best
}

// searchLayer runs a best-first search within one layer, returning up
// to ef candidates sorted nearest-first.
func (h *HNSWIndex) searchLayer(query []float32, entry uint64, ef int, layer int) []ScoredID {
	visited := map[uint64]struct{}{entry: {}}
	entryDist := Distance(h.cfg.Metric, query, h.nodes[entry].vector)
	candidates := []ScoredID{{ID: entry, Score: entryDist}}
	result := []ScoredID{{ID: entry, Score: entryDist}}

	for len(candidates) > 0 {
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score < candidates[j].Score })
		c := candidates[0]
		candidates = candidates[1:]

		sort.Slice(result, func(i, j int) bool { return result[i].Score < result[j].Score })
		if len(result) >= ef && c.Score > result[len(result)-1].Score {
			break
		}

		node := h.nodes[c.ID]
		if layer >= len(node.neighbors) {
			continue
		}
		for _, nid := range node.neighbors[layer] {
			if _, seen := visited[nid]; seen {
				continue
			}
			visited[nid] = struct{}{}
			nDist := Distance(h.cfg.Metric, query, h.nodes[nid].vector)
			if len(result) < ef || nDist < result[len(result)-1].Score {
				candidates = append(candidates, ScoredID{ID: nid, Score: nDist})
				result = append(result, ScoredID{ID: nid, Score: nDist})
				sort.Slice(result, func(i, j int) bool { return result[i].Score < result[j].Score })
				if len(result) > ef {
					result = result[:ef]
				}
			}
		}
	}
	return result
}

// selectNeighborsHeuristic implements the paper's diversity-aware
// neighbor selection: among the ef candidates, greedily keep a
// candidate only if it is closer to the query than to every neighbor
// already kept, favoring spread over clustering.
func (h *HNSWIndex) selectNeighborsHeuristic(query []float32, candidates []ScoredID, m int) []uint64 {
	sorted := append([]ScoredID(nil), candidates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Score < sorted[j].Score })

	var selected []uint64
	for _, c := range sorted {
		if len(selected) >= m {
			break
		}
		good := true
		for _, s := range selected {
			if Distance(h.cfg.Metric, h.nodes[c.ID].vector, h.nodes[s].vector) < c.Score {
				good = false
				break
			}
		}
		if good {
			selected = append(selected, c.ID)
		}
	}
	return selected
}

// Delete lazily marks id deleted; it is skipped by Search but its edges
// remain in the graph; nothing compacts them away.
func (h *HNSWIndex) Delete(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n, ok := h.nodes[id]; ok {
		n.deleted = true
	}
}

// SearchTopK searches using the index's configured EfSearch, letting
// HNSW satisfy the same signature Flat and IVF expose.
func (h *HNSWIndex) SearchTopK(query []float32, topK int, allowlist map[uint64]struct{}) []ScoredID {
	return h.Search(query, topK, h.cfg.EfSearch, allowlist)
}

// Search returns the topK nearest live ids to query, respecting
// allowlist when non-nil.
func (h *HNSWIndex) Search(query []float32, topK int, ef int, allowlist map[uint64]struct{}) []ScoredID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.hasRoot {
		return nil
	}
	if ef < topK {
		ef = topK
	}
	entry := h.nodes[h.entry]
	cur := entry.id
	for lc := entry.level; lc > 0; lc-- {
		cur = h.greedyClosest(cur, query, lc)
	}
	candidates := h.searchLayer(query, cur, ef, 0)

	out := make([]ScoredID, 0, topK)
	for _, c := range candidates {
		node := h.nodes[c.ID]
		if node.deleted {
			continue
		}
		if allowlist != nil {
			if _, ok := allowlist[c.ID]; !ok {
				continue
			}
		}
		out = append(out, ScoredID{ID: c.ID, Score: Score(h.cfg.Metric, c.Score)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

func (h *HNSWIndex) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.nodes)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

const hnswMagic = "HNSW"

// Save persists the graph, writing nodes in ascending id order. Like
// ".flat", ".hnsw" carries no CRC trailer (spec.md §6), so no checksum
// is verified on load; a load that fails returns its error and the
// graph is not rebuilt from stored vectors.
func (h *HNSWIndex) Save(ctx context.Context, st storage.Storage, path string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	w, err := st.CreateWrite(ctx, path)
	if err != nil {
		return err
	}
	defer w.Close()

	raw := encoding.NewWriter()
	raw.Raw([]byte(hnswMagic))
	raw.U32(uint32(h.cfg.Dimension))
	raw.U32(uint32(h.cfg.M))
	raw.U32(uint32(h.cfg.EfConstruction))
	raw.U64(h.entry)
	raw.Varint(uint64(len(h.nodes)))
	ids := make([]uint64, 0, len(h.nodes))
	for id := range h.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		node := h.nodes[id]
		raw.U64(id)
		raw.U8(boolByte(node.deleted))
		raw.U32(uint32(node.level))
		for _, v := range node.vector {
			raw.F32(v)
		}
		raw.Varint(uint64(len(node.neighbors)))
		for _, layer := range node.neighbors {
			raw.Varint(uint64(len(layer)))
			for _, nid := range layer {
				raw.U64(nid)
			}
		}
	}
	if _, err := w.Write(raw.Body()); err != nil {
		return laurus.Wrap(laurus.KindIo, err)
	}
	return w.Sync()
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func LoadHNSWIndex(ctx context.Context, st storage.Storage, path string, metric Metric) (*HNSWIndex, error) {
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
	magic, err := fr.Raw(len(hnswMagic))
	if err != nil || string(magic) != hnswMagic {
		return nil, laurus.New(laurus.KindIndex, "hnsw index: bad magic")
	}
	dim, err := fr.U32()
	if err != nil {
		return nil, err
	}
	m, err := fr.U32()
	if err != nil {
		return nil, err
	}
	efc, err := fr.U32()
	if err != nil {
		return nil, err
	}
	entry, err := fr.U64()
	if err != nil {
		return nil, err
	}
	n, err := fr.Varint()
	if err != nil {
		return nil, err
	}
	idx := NewHNSWIndex(HNSWConfig{Metric: metric, Dimension: int(dim), M: int(m), EfConstruction: int(efc)})
	idx.entry = entry
	idx.hasRoot = n > 0
	for i := uint64(0); i < n; i++ {
		id, err := fr.U64()
		if err != nil {
			return nil, err
		}
		deletedByte, err := fr.U8()
		if err != nil {
			return nil, err
		}
		level, err := fr.U32()
		if err != nil {
			return nil, err
		}
		v := make([]float32, dim)
		for j := range v {
			c, err := fr.F32()
			if err != nil {
				return nil, err
			}
			v[j] = c
		}
		numLayers, err := fr.Varint()
		if err != nil {
			return nil, err
		}
		neighbors := make([][]uint64, numLayers)
		for l := range neighbors {
			cnt, err := fr.Varint()
			if err != nil {
				return nil, err
			}
			layer := make([]uint64, cnt)
			for k := range layer {
				nid, err := fr.U64()
				if err != nil {
					return nil, err
				}
				layer[k] = nid
			}
			neighbors[l] = layer
		}
		idx.nodes[id] = &hnswNode{id: id, vector: v, level: int(level), neighbors: neighbors, deleted: deletedByte == 1}
	}
	return idx, nil
}
