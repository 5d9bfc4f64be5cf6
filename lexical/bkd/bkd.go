// Package bkd implements a minimal block k-d tree over a single numeric
// dimension (spec.md §4.4), used by the lexical package to answer
// NumericRange and Geo range queries without a full posting-list scan.
// Points are bulk-loaded once per segment build (segments are immutable)
// and partitioned recursively on the median value into a pointer-linked
// tree, serialized depth-first by Encode.
package bkd

import (
	"sort"

	laurus "github.com/Aman-CERP/laurus"
	"github.com/Aman-CERP/laurus/encoding"
)

const (
	Magic          = "BKDT"
	leafMaxPoints  = 512
)

// Point is one indexed value: a sortable key (a numeric value, or for
// Geo fields a Z-order (Morton) interleaved lat/lon) and the local
// document id it belongs to.
type Point struct {
	Value      float64
	LocalDocID uint32
}

// node is either an internal split node or a leaf holding points.
type node struct {
	isLeaf bool
	split  float64
	left   *node
	right  *node
	points []Point
}

// Tree is a read-only, immutable BKD tree built once and queried many
// times by a segment's lifetime.
type Tree struct {
	root *node
}

// Build constructs a balanced tree over points. points is sorted
// in-place by Value.
func Build(points []Point) *Tree {
	sort.Slice(points, func(i, j int) bool { return points[i].Value < points[j].Value })
	return &Tree{root: build(points)}
}

func build(points []Point) *node {
	if len(points) <= leafMaxPoints {
		leaf := make([]Point, len(points))
		copy(leaf, points)
		return &node{isLeaf: true, points: leaf}
	}
	mid := len(points) / 2
	splitVal := points[mid].Value
	return &node{
		isLeaf: false,
		split:  splitVal,
		left:   build(points[:mid]),
		right:  build(points[mid:]),
	}
}

// RangeQuery returns every local doc id whose indexed value falls in
// [lo, hi] inclusive.
func (t *Tree) RangeQuery(lo, hi float64) []uint32 {
	var out []uint32
	var walk func(n *node)
	walk = func(n *node) {
		if n == nil {
			return
		}
		if n.isLeaf {
			for _, p := range n.points {
				if p.Value >= lo && p.Value <= hi {
					out = append(out, p.LocalDocID)
				}
			}
			return
		}
		if lo <= n.split {
			walk(n.left)
		}
		if hi >= n.split {
			walk(n.right)
		}
	}
	walk(t.root)
	return out
}

// Encode serializes the tree depth-first: each node is a 1-byte leaf
// flag followed by either a split value + two child subtrees, or a
// point count + (value, doc id) pairs.
func Encode(t *Tree) []byte {
	w := encoding.NewWriter()
	w.Raw([]byte(Magic))
	var enc func(n *node)
	enc = func(n *node) {
		if n.isLeaf {
			w.U8(1)
			w.Varint(uint64(len(n.points)))
			for _, p := range n.points {
				w.F64(p.Value)
				w.U32(p.LocalDocID)
			}
			return
		}
		w.U8(0)
		w.F64(n.split)
		enc(n.left)
		enc(n.right)
	}
	enc(t.root)
	return w.Finish()
}

// Decode parses bytes produced by Encode.
func Decode(buf []byte) (*Tree, error) {
	r := encoding.NewReader(buf)
	if err := r.VerifyCRC(); err != nil {
		return nil, laurus.WrapMessage(laurus.KindIndex, "bkd tree failed crc check", err)
	}
	magic, err := r.Raw(len(Magic))
	if err != nil || string(magic) != Magic {
		return nil, laurus.New(laurus.KindIndex, "bkd tree: bad magic")
	}
	var dec func() (*node, error)
	dec = func() (*node, error) {
		isLeaf, err := r.U8()
		if err != nil {
			return nil, err
		}
		if isLeaf == 1 {
			n, err := r.Varint()
			if err != nil {
				return nil, err
			}
			points := make([]Point, n)
			for i := range points {
				v, err := r.F64()
				if err != nil {
					return nil, err
				}
				id, err := r.U32()
				if err != nil {
					return nil, err
				}
				points[i] = Point{Value: v, LocalDocID: id}
			}
			return &node{isLeaf: true, points: points}, nil
		}
		split, err := r.F64()
		if err != nil {
			return nil, err
		}
		left, err := dec()
		if err != nil {
			return nil, err
		}
		right, err := dec()
		if err != nil {
			return nil, err
		}
		return &node{isLeaf: false, split: split, left: left, right: right}, nil
	}
	root, err := dec()
	if err != nil {
		return nil, err
	}
	return &Tree{root: root}, nil
}

// GeoKey interleaves latitude and longitude into a single sortable
// float by quantizing each to 26 bits and bit-interleaving (a Z-order /
// Morton curve), giving spatial locality good enough for a bounding-box
// prefilter; exact distance is still checked by the caller.
func GeoKey(lat, lon float64) float64 {
	qLat := quantize(lat, -90, 90)
	qLon := quantize(lon, -180, 180)
	return float64(interleave(qLat, qLon))
}

func quantize(v, lo, hi float64) uint32 {
	const bits = 26
	scale := float64(uint32(1)<<bits - 1)
	norm := (v - lo) / (hi - lo)
	if norm < 0 {
		norm = 0
	}
	if norm > 1 {
		norm = 1
	}
	return uint32(norm * scale)
}

func interleave(a, b uint32) uint64 {
	spread := func(v uint32) uint64 {
		x := uint64(v)
		x = (x | (x << 16)) & 0x0000FFFF0000FFFF
		x = (x | (x << 8)) & 0x00FF00FF00FF00FF
		x = (x | (x << 4)) & 0x0F0F0F0F0F0F0F0F
		x = (x | (x << 2)) & 0x3333333333333333
		x = (x | (x << 1)) & 0x5555555555555555
		return x
	}
	return spread(a) | (spread(b) << 1)
}
