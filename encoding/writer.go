package encoding

import (
	"encoding/binary"
	"hash/crc32"
	"io"
	"math"
)

// Writer accumulates a framed file body in memory and terminates it
// with a trailing CRC32 (IEEE polynomial) of all preceding bytes on
// Finish. A small subset of file formats (spec.md §6, ".dv"/".flat"/
// ".hnsw"/".ivf") predate this convention and write raw bytes instead;
// those formats write Body() instead of Finish().
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer ready to accept primitive writes.
func NewWriter() *Writer { return &Writer{} }

func (w *Writer) U8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) U16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *Writer) U32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *Writer) U64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *Writer) F32(v float32) { w.U32(math.Float32bits(v)) }

func (w *Writer) F64(v float64) { w.U64(math.Float64bits(v)) }

func (w *Writer) Varint(v uint64) { w.buf = PutUvarint(w.buf, v) }

// String writes a varint length prefix followed by UTF-8 bytes.
func (w *Writer) String(s string) {
	w.Varint(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

// Bytes writes a varint length prefix followed by raw bytes.
func (w *Writer) Bytes(b []byte) {
	w.Varint(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

// Raw appends b with no length prefix.
func (w *Writer) Raw(b []byte) { w.buf = append(w.buf, b...) }

// Len reports the number of bytes written so far (excluding any
// trailing CRC that Finish has not yet appended).
func (w *Writer) Len() int { return len(w.buf) }

// Body returns the accumulated body without a trailing CRC. Useful for
// the small set of formats that do not frame with a checksum.
func (w *Writer) Body() []byte { return w.buf }

// Finish appends the IEEE CRC32 of the body written so far and returns
// the complete framed byte slice.
func (w *Writer) Finish() []byte {
	sum := crc32.ChecksumIEEE(w.buf)
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], sum)
	return append(w.buf, tmp[:]...)
}

// WriteTo writes Finish()'s result to dst.
func (w *Writer) WriteTo(dst io.Writer) (int64, error) {
	framed := w.Finish()
	n, err := dst.Write(framed)
	return int64(n), err
}
