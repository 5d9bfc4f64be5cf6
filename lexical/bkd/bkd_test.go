package bkd

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeRangeQuery(t *testing.T) {
	var points []Point
	for i := 0; i < 2000; i++ {
		points = append(points, Point{Value: float64(i), LocalDocID: uint32(i)})
	}
	tree := Build(points)

	got := tree.RangeQuery(100, 150)
	assert.Len(t, got, 51)
	for _, id := range got {
		assert.True(t, id >= 100 && id <= 150)
	}
}

func TestTreeEncodeDecodeRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	var points []Point
	for i := 0; i < 1500; i++ {
		points = append(points, Point{Value: r.Float64() * 1000, LocalDocID: uint32(i)})
	}
	tree := Build(points)
	encoded := Encode(tree)

	decoded, err := Decode(encoded)
	require.NoError(t, err)

	want := tree.RangeQuery(200, 300)
	got := decoded.RangeQuery(200, 300)
	assert.ElementsMatch(t, want, got)
}

func TestGeoKeyMonotonicInLatitude(t *testing.T) {
	low := GeoKey(-10, 0)
	high := GeoKey(10, 0)
	assert.Less(t, low, high)
}
