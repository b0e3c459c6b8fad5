package bitpack

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrShortBuffer is reported when a read runs past the end of the payload.
var ErrShortBuffer = errors.New("bitpack: short buffer")

// Reader decodes a payload produced by Writer.
//
// Errors are sticky: after the first failed read every further read returns
// a zero value, and Err reports the failure. Callers check Err once after
// decoding a whole structure.
type Reader struct {
	data   []byte
	pos    int
	bitPos uint8
	err    error
}

// NewReader creates a reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Err returns the first error encountered, if any.
func (r *Reader) Err() error {
	return r.err
}

// Remaining returns the number of unread whole bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// ReadBit reads a single bit.
func (r *Reader) ReadBit() bool {
	if r.err != nil {
		return false
	}
	if r.bitPos == 0 {
		if r.pos >= len(r.data) {
			r.err = ErrShortBuffer
			return false
		}
		r.pos++
	}
	bit := r.data[r.pos-1]&(1<<r.bitPos) != 0
	r.bitPos = (r.bitPos + 1) & 7
	return bit
}

// ReadBits reads n bits written by Writer.WriteBits.
func (r *Reader) ReadBits(n int) uint32 {
	var v uint32
	for i := 0; i < n; i++ {
		if r.ReadBit() {
			v |= 1 << uint(i)
		}
	}
	return v
}

// ResetBitPos skips the rest of the current partial byte.
func (r *Reader) ResetBitPos() {
	r.bitPos = 0
}

func (r *Reader) take(n int) []byte {
	r.ResetBitPos()
	if r.err != nil {
		return nil
	}
	if len(r.data)-r.pos < n {
		r.err = ErrShortBuffer
		r.pos = len(r.data)
		return nil
	}
	p := r.data[r.pos : r.pos+n]
	r.pos += n
	return p
}

func (r *Reader) ReadUint8() uint8 {
	p := r.take(1)
	if p == nil {
		return 0
	}
	return p[0]
}

func (r *Reader) ReadUint16() uint16 {
	p := r.take(2)
	if p == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(p)
}

func (r *Reader) ReadUint32() uint32 {
	p := r.take(4)
	if p == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(p)
}

func (r *Reader) ReadUint64() uint64 {
	p := r.take(8)
	if p == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(p)
}

func (r *Reader) ReadInt8() int8   { return int8(r.ReadUint8()) }
func (r *Reader) ReadInt16() int16 { return int16(r.ReadUint16()) }
func (r *Reader) ReadInt32() int32 { return int32(r.ReadUint32()) }
func (r *Reader) ReadInt64() int64 { return int64(r.ReadUint64()) }

func (r *Reader) ReadFloat32() float32 { return math.Float32frombits(r.ReadUint32()) }
func (r *Reader) ReadFloat64() float64 { return math.Float64frombits(r.ReadUint64()) }

// ReadBytes reads n raw bytes. The result is a copy.
func (r *Reader) ReadBytes(n int) []byte {
	p := r.take(n)
	if p == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, p)
	return out
}

// ReadString mirrors Writer.WriteString.
func (r *Reader) ReadString(lengthBits int) string {
	n := int(r.ReadBits(lengthBits))
	return string(r.ReadBytes(n))
}
