// Package bitpack implements the bit-level codec used by the update field
// wire format.
//
// Bits are packed least-significant first into each byte. Byte-sized values
// always start on a byte boundary: any partially filled byte is closed
// (padded with zero bits) before a byte-aligned write. Multi-byte values are
// little-endian, matching the framing used by the rest of the server.
package bitpack

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Writer accumulates a bit-packed payload in memory.
type Writer struct {
	buf    []byte
	bitPos uint8 // bits used in the trailing byte, 0 when byte aligned
}

// NewWriter creates a writer with the given initial capacity in bytes.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Reset discards the written data but keeps the allocated buffer.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.bitPos = 0
}

// Bytes returns the written payload. Trailing partial bytes are included.
// The slice aliases the writer's buffer until the next write or Reset.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written, counting a partial trailing byte.
func (w *Writer) Len() int {
	return len(w.buf)
}

// WriteBit appends a single bit and returns it, so callers can write a
// presence flag and branch on it in one expression.
func (w *Writer) WriteBit(bit bool) bool {
	if w.bitPos == 0 {
		w.buf = append(w.buf, 0)
	}
	if bit {
		w.buf[len(w.buf)-1] |= 1 << w.bitPos
	}
	w.bitPos = (w.bitPos + 1) & 7
	return bit
}

// WriteBits appends the low n bits of value, least significant bit first.
func (w *Writer) WriteBits(value uint32, n int) {
	if n < 0 || n > 32 {
		panic(fmt.Sprintf("bitpack: invalid bit count %d", n))
	}
	for i := 0; i < n; i++ {
		w.WriteBit(value&(1<<uint(i)) != 0)
	}
}

// FlushBits closes the current partial byte so the next write is aligned.
func (w *Writer) FlushBits() {
	w.bitPos = 0
}

// WriteUint8 appends one byte.
func (w *Writer) WriteUint8(v uint8) {
	w.FlushBits()
	w.buf = append(w.buf, v)
}

// WriteUint16 appends a little-endian uint16.
func (w *Writer) WriteUint16(v uint16) {
	w.FlushBits()
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// WriteUint32 appends a little-endian uint32.
func (w *Writer) WriteUint32(v uint32) {
	w.FlushBits()
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// WriteUint64 appends a little-endian uint64.
func (w *Writer) WriteUint64(v uint64) {
	w.FlushBits()
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) WriteInt8(v int8) { w.WriteUint8(uint8(v)) }
func (w *Writer) WriteInt16(v int16) { w.WriteUint16(uint16(v)) }
func (w *Writer) WriteInt32(v int32) { w.WriteUint32(uint32(v)) }
func (w *Writer) WriteInt64(v int64) { w.WriteUint64(uint64(v)) }

// WriteFloat32 appends an IEEE-754 single precision value.
func (w *Writer) WriteFloat32(v float32) {
	w.WriteUint32(math.Float32bits(v))
}

// WriteFloat64 appends an IEEE-754 double precision value.
func (w *Writer) WriteFloat64(v float64) {
	w.WriteUint64(math.Float64bits(v))
}

// WriteBytes appends raw bytes on a byte boundary.
func (w *Writer) WriteBytes(p []byte) {
	w.FlushBits()
	w.buf = append(w.buf, p...)
}

// WriteString writes the byte length of s in lengthBits bits followed by
// the raw bytes. A string longer than the length field can describe is a
// schema defect.
func (w *Writer) WriteString(s string, lengthBits int) {
	if uint64(len(s)) >= uint64(1)<<uint(lengthBits) {
		panic(fmt.Sprintf("bitpack: string of %d bytes does not fit in %d length bits", len(s), lengthBits))
	}
	w.WriteBits(uint32(len(s)), lengthBits)
	w.WriteBytes([]byte(s))
}
