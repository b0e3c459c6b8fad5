package bitpack

import "fmt"

// HighType identifies what an ObjectGUID refers to. It occupies the top six
// bits of the high half.
type HighType uint8

const (
	HighNull HighType = iota
	HighPlayer
	HighItem
	HighCreature
	HighPet
	HighGameObject
	HighDynamicObject
	HighCorpse
	HighAreaTrigger
	HighSceneObject
	HighConversation
	HighParty
	HighGuild
)

const (
	highTypeShift = 58
	entryMask     = 1<<32 - 1
)

// ObjectGUID is the 128-bit identity of a replicated entity.
type ObjectGUID struct {
	High uint64
	Low  uint64
}

// EmptyGUID is the zero identity, used for unset GUID fields.
var EmptyGUID = ObjectGUID{}

// MakeGUID builds a GUID from its type, template entry and per-type counter.
func MakeGUID(t HighType, entry uint32, counter uint64) ObjectGUID {
	return ObjectGUID{
		High: uint64(t)<<highTypeShift | uint64(entry),
		Low:  counter,
	}
}

func (g ObjectGUID) Type() HighType  { return HighType(g.High >> highTypeShift) }
func (g ObjectGUID) Entry() uint32   { return uint32(g.High & entryMask) }
func (g ObjectGUID) Counter() uint64 { return g.Low }
func (g ObjectGUID) IsEmpty() bool   { return g == EmptyGUID }

func (g ObjectGUID) String() string {
	return fmt.Sprintf("GUID-%d-%d-%016X", g.Type(), g.Entry(), g.Low)
}

// WritePackedGUID writes g in the compact form: one mask byte per half
// naming its non-zero bytes, followed by those bytes. The empty GUID costs
// two bytes.
func (w *Writer) WritePackedGUID(g ObjectGUID) {
	loMask, lo := packUint64(g.Low)
	hiMask, hi := packUint64(g.High)
	w.WriteUint8(loMask)
	w.WriteUint8(hiMask)
	w.WriteBytes(lo)
	w.WriteBytes(hi)
}

// ReadPackedGUID mirrors Writer.WritePackedGUID.
func (r *Reader) ReadPackedGUID() ObjectGUID {
	loMask := r.ReadUint8()
	hiMask := r.ReadUint8()
	return ObjectGUID{
		Low:  r.unpackUint64(loMask),
		High: r.unpackUint64(hiMask),
	}
}

func packUint64(v uint64) (uint8, []byte) {
	var mask uint8
	out := make([]byte, 0, 8)
	for i := 0; i < 8; i++ {
		if b := byte(v >> (8 * i)); b != 0 {
			mask |= 1 << i
			out = append(out, b)
		}
	}
	return mask, out
}

func (r *Reader) unpackUint64(mask uint8) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		if mask&(1<<i) != 0 {
			v |= uint64(r.ReadUint8()) << (8 * i)
		}
	}
	return v
}

// PackedGUIDSize returns the encoded size of g in bytes.
func PackedGUIDSize(g ObjectGUID) int {
	_, lo := packUint64(g.Low)
	_, hi := packUint64(g.High)
	return 2 + len(lo) + len(hi)
}
