// Package encoding implements the framed binary primitives every
// on-disk format in this module is built from: fixed-width
// little-endian integers, unsigned LEB128 varints, length-prefixed
// strings/bytes, delta-encoded integer sequences, and CRC32-terminated
// framing (spec.md §4.1).
package encoding

// PutUvarint appends the LEB128 encoding of v to buf and returns the
// extended slice. Each byte carries 7 data bits LSB-first; the high bit
// is the continuation flag. This is the unique minimal-length encoding
// for every v in [0, math.MaxUint64].
func PutUvarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// Uvarint decodes a varint from the front of buf, returning the value
// and the number of bytes consumed. n is 0 if buf does not contain a
// complete, valid varint (too short, or more than 10 bytes).
func Uvarint(buf []byte) (uint64, int) {
	var v uint64
	var shift uint
	for i, b := range buf {
		if i == 10 {
			return 0, 0
		}
		if b < 0x80 {
			return v | uint64(b)<<shift, i + 1
		}
		v |= uint64(b&0x7f) << shift
		shift += 7
	}
	return 0, 0
}

// VarintLen returns the number of bytes PutUvarint would emit for v.
func VarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}
