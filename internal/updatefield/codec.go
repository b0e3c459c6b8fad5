package updatefield

import (
	"fmt"

	"fieldsync/internal/bitpack"
)

// WriteMask writes m in its compact form. Masks of up to one block are
// written as BitCount raw bits. Larger masks write the block-presence bits
// (one per block) followed by each nonzero block as 32 bits.
func WriteMask(w *bitpack.Writer, m *BitMask) {
	if m.BlockCount() <= 1 {
		if m.BlockCount() == 1 {
			w.WriteBits(m.blocks[0], m.bitCount)
		}
		return
	}
	for i, p := range m.presence {
		w.WriteBits(p, min(blockBits, len(m.blocks)-i*blockBits))
	}
	for b, block := range m.blocks {
		if m.presence[b/blockBits]&(1<<uint(b%blockBits)) != 0 {
			w.WriteBits(block, blockBits)
		}
	}
}

// ReadMask mirrors WriteMask for a schema of bitCount bits.
func ReadMask(r *bitpack.Reader, bitCount int) *BitMask {
	m := NewBitMask(bitCount)
	if m.BlockCount() <= 1 {
		if m.BlockCount() == 1 {
			m.SetBlock(0, r.ReadBits(bitCount))
		}
		return m
	}
	presence := make([]uint32, m.PresenceCount())
	for i := range presence {
		presence[i] = r.ReadBits(min(blockBits, m.BlockCount()-i*blockBits))
	}
	for b := 0; b < m.BlockCount(); b++ {
		if presence[b/blockBits]&(1<<uint(b%blockBits)) != 0 {
			v := r.ReadBits(blockBits)
			if b == m.BlockCount()-1 {
				v &= lastBlockMask(bitCount)
			}
			m.SetBlock(b, v)
		}
	}
	return m
}

// Effective returns the mask a record serializer should consult: the
// schema's full mask when forceFull, otherwise m. A mask of the wrong size
// is a schema defect.
func Effective(s *Schema, m *BitMask, forceFull bool) *BitMask {
	if forceFull {
		return s.FullMask()
	}
	if m.BitCount() != s.Bits() {
		panic(fmt.Sprintf("updatefield: %d-bit mask used for schema %s of %d bits",
			m.BitCount(), s.Name(), s.Bits()))
	}
	return m
}

// checkListLength panics when size cannot be described in lengthBits.
func checkListLength(size, lengthBits int) {
	if uint64(size) >= uint64(1)<<uint(lengthBits) {
		panic(fmt.Sprintf("updatefield: list of %d elements does not fit in %d length bits", size, lengthBits))
	}
}

// writeListMask writes a list length in lengthBits followed by its element
// mask. Lists longer than one block carry a leading "any changed" bit and
// omit the blocks when nothing changed.
func writeListMask(w *bitpack.Writer, m *BitMask, lengthBits int) {
	size := m.BitCount()
	checkListLength(size, lengthBits)
	w.WriteBits(uint32(size), lengthBits)
	switch {
	case size > blockBits:
		if w.WriteBit(m.IsAnySet()) {
			for b := 0; b < size/blockBits; b++ {
				w.WriteBits(m.blocks[b], blockBits)
			}
			if rem := size % blockBits; rem != 0 {
				w.WriteBits(m.blocks[len(m.blocks)-1], rem)
			}
		}
	case size > 0:
		w.WriteBits(m.blocks[0], size)
	}
}

// WriteLengthAndMask writes the list length and its element dirty mask.
func (l *DynamicList[T]) WriteLengthAndMask(w *bitpack.Writer, lengthBits int) {
	l.checkSync()
	writeListMask(w, l.mask, lengthBits)
}

// WriteCompleteLengthAndMask writes the list length with every element
// marked, for observers that must receive the whole list.
func (l *DynamicList[T]) WriteCompleteLengthAndMask(w *bitpack.Writer, lengthBits int) {
	l.checkSync()
	full := NewBitMask(len(l.values))
	full.SetAll()
	writeListMask(w, full, lengthBits)
}

// ReadListMask mirrors WriteLengthAndMask.
func ReadListMask(r *bitpack.Reader, lengthBits int) *BitMask {
	size := int(r.ReadBits(lengthBits))
	m := NewBitMask(size)
	switch {
	case size > blockBits:
		if r.ReadBit() {
			for b := 0; b < size/blockBits; b++ {
				m.SetBlock(b, r.ReadBits(blockBits))
			}
			if rem := size % blockBits; rem != 0 {
				m.SetBlock(m.BlockCount()-1, r.ReadBits(rem))
			}
		}
	case size > 0:
		m.SetBlock(0, r.ReadBits(size))
	}
	return m
}

// WriteListCreate writes the list length followed by every element. A list
// the viewer may not see is written empty.
func WriteListCreate[T any](w *bitpack.Writer, l *DynamicList[T], lengthBits int, allowed *BitMask, fn func(v T)) {
	values := l.ValuesFor(allowed)
	checkListLength(len(values), lengthBits)
	w.WriteBits(uint32(len(values)), lengthBits)
	for _, v := range values {
		fn(v)
	}
}

// WriteListUpdate writes the list length and element mask, then every
// changed element. With forceFull every element is written and reported
// to fn as forced.
func WriteListUpdate[T any](w *bitpack.Writer, l *DynamicList[T], lengthBits int, forceFull bool, fn func(v T, forced bool)) {
	if forceFull {
		l.WriteCompleteLengthAndMask(w, lengthBits)
	} else {
		l.WriteLengthAndMask(w, lengthBits)
	}
	for i, v := range l.values {
		if forceFull || l.mask.Get(i) {
			fn(v, forceFull)
		}
	}
}
