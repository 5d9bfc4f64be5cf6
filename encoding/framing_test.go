package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFramedRoundTrip(t *testing.T) {
	w := NewWriter()
	w.U8(0xAB)
	w.U32(123456)
	w.String("hello world")
	w.Bytes([]byte{1, 2, 3, 4})
	w.Varint(987654321)
	w.F64(3.14159)

	framed := w.Finish()
	r := NewReader(framed)
	require.NoError(t, r.VerifyCRC())

	u8, err := r.U8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0xAB), u8)

	u32, err := r.U32()
	require.NoError(t, err)
	assert.Equal(t, uint32(123456), u32)

	s, err := r.String()
	require.NoError(t, err)
	assert.Equal(t, "hello world", s)

	b, err := r.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, b)

	v, err := r.Varint()
	require.NoError(t, err)
	assert.Equal(t, uint64(987654321), v)

	f, err := r.F64()
	require.NoError(t, err)
	assert.InDelta(t, 3.14159, f, 1e-9)

	assert.True(t, r.AtEOF())
}

func TestFramedCorruptedByteFailsVerify(t *testing.T) {
	w := NewWriter()
	w.String("payload")
	framed := w.Finish()

	for i := range framed {
		corrupted := make([]byte, len(framed))
		copy(corrupted, framed)
		corrupted[i] ^= 0xFF
		r := NewReader(corrupted)
		assert.Error(t, r.VerifyCRC(), "corrupting byte %d should fail CRC check", i)
	}
}

func TestFramedTruncatedBufferFailsVerify(t *testing.T) {
	w := NewWriter()
	w.String("payload")
	framed := w.Finish()
	r := NewReader(framed[:len(framed)-1])
	assert.Error(t, r.VerifyCRC())
}

func TestReaderNeedFailsOnShortRead(t *testing.T) {
	w := NewWriter()
	w.U8(1)
	framed := w.Finish()
	r := NewReader(framed)
	_, err := r.U32()
	assert.Error(t, err)
}
