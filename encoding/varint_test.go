package encoding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{
		0, 1, 2, 127, 128, 129, 255, 256,
		1<<14 - 1, 1 << 14, 1<<21 + 5,
		math.MaxUint32, math.MaxUint32 + 1,
		math.MaxUint64 - 1, math.MaxUint64,
	}
	for _, v := range values {
		buf := PutUvarint(nil, v)
		got, n := Uvarint(buf)
		require.NotZero(t, n, "value %d", v)
		assert.Equal(t, v, got, "value %d", v)
		assert.Equal(t, len(buf), n)
		assert.Equal(t, len(buf), VarintLen(v))
	}
}

func TestVarintIsMinimalLength(t *testing.T) {
	// 128 needs 2 bytes; a naive fixed-width encoding would waste space.
	assert.Equal(t, 1, VarintLen(127))
	assert.Equal(t, 2, VarintLen(128))
	assert.Equal(t, 1, VarintLen(0))
	assert.Equal(t, 10, VarintLen(math.MaxUint64))
}

func TestUvarintRejectsTruncatedInput(t *testing.T) {
	buf := PutUvarint(nil, 1<<20)
	_, n := Uvarint(buf[:len(buf)-1])
	assert.Zero(t, n)
}

func TestUvarintRejectsOverlongInput(t *testing.T) {
	overlong := make([]byte, 11)
	for i := range overlong {
		overlong[i] = 0x80
	}
	_, n := Uvarint(overlong)
	assert.Zero(t, n)
}

func TestDeltaEncodeDecodeRoundTrip(t *testing.T) {
	ids := []uint64{3, 3, 10, 10, 11, 1000, 1000000}
	w := NewWriter()
	DeltaEncode(w, ids)
	r := NewReader(w.Finish())
	require.NoError(t, r.VerifyCRC())
	got, err := DeltaDecode(r)
	require.NoError(t, err)
	assert.Equal(t, ids, got)
}

func TestDeltaDecodeEmpty(t *testing.T) {
	w := NewWriter()
	DeltaEncode(w, nil)
	r := NewReader(w.Finish())
	got, err := DeltaDecode(r)
	require.NoError(t, err)
	assert.Empty(t, got)
}
