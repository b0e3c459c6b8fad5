// Package updatefield is the replication core: dirty-bit masks, schema
// layouts, and the typed field containers that concrete records are built
// from.
//
// A record owns one BitMask with a bit per field. Containers mark their bit
// (and their gate bit, when they sit inside a group or array) whenever they
// are mutated, and propagate the change to the enclosing record or holder.
// Serializers consult the mask to emit only what changed.
package updatefield

import (
	"fmt"
	"math/bits"
)

const blockBits = 32

// BitMask is a two-level bitset. Blocks hold one bit per field; the presence
// words hold one bit per block, set iff that block is nonzero. Every mutating
// operation keeps the presence words in sync with the blocks.
type BitMask struct {
	bitCount int
	blocks   []uint32
	presence []uint32
}

// NewBitMask creates an all-clear mask tracking bitCount bits.
func NewBitMask(bitCount int) *BitMask {
	if bitCount < 0 {
		panic(fmt.Sprintf("updatefield: negative bit count %d", bitCount))
	}
	m := &BitMask{}
	m.Resize(bitCount)
	return m
}

func blocksFor(bitCount int) int   { return (bitCount + blockBits - 1) / blockBits }
func presenceFor(blocks int) int   { return (blocks + blockBits - 1) / blockBits }
func lastBlockMask(bitCount int) uint32 {
	if rem := bitCount % blockBits; rem != 0 {
		return 1<<uint(rem) - 1
	}
	return ^uint32(0)
}

// BitCount returns the number of tracked bits.
func (m *BitMask) BitCount() int { return m.bitCount }

// BlockCount returns the number of 32-bit blocks.
func (m *BitMask) BlockCount() int { return len(m.blocks) }

// PresenceCount returns the number of block-presence words.
func (m *BitMask) PresenceCount() int { return len(m.presence) }

func (m *BitMask) check(i int) {
	if i < 0 || i >= m.bitCount {
		panic(fmt.Sprintf("updatefield: bit %d out of range [0,%d)", i, m.bitCount))
	}
}

func (m *BitMask) checkBlock(b int) {
	if b < 0 || b >= len(m.blocks) {
		panic(fmt.Sprintf("updatefield: block %d out of range [0,%d)", b, len(m.blocks)))
	}
}

func (m *BitMask) syncPresence(b int) {
	word, bit := b/blockBits, uint(b%blockBits)
	if m.blocks[b] != 0 {
		m.presence[word] |= 1 << bit
	} else {
		m.presence[word] &^= 1 << bit
	}
}

// Get reports whether bit i is set.
func (m *BitMask) Get(i int) bool {
	m.check(i)
	return m.blocks[i/blockBits]&(1<<uint(i%blockBits)) != 0
}

// Set sets bit i.
func (m *BitMask) Set(i int) {
	m.check(i)
	b := i / blockBits
	m.blocks[b] |= 1 << uint(i%blockBits)
	m.presence[b/blockBits] |= 1 << uint(b%blockBits)
}

// Reset clears bit i, dropping the block's presence bit if it became empty.
func (m *BitMask) Reset(i int) {
	m.check(i)
	b := i / blockBits
	m.blocks[b] &^= 1 << uint(i%blockBits)
	m.syncPresence(b)
}

// SetRange sets every bit in [from, to).
func (m *BitMask) SetRange(from, to int) {
	for i := from; i < to; i++ {
		m.Set(i)
	}
}

// SetAll sets every tracked bit. Bits past BitCount in the final block stay
// clear.
func (m *BitMask) SetAll() {
	if len(m.blocks) == 0 {
		return
	}
	for b := range m.blocks {
		m.blocks[b] = ^uint32(0)
	}
	m.blocks[len(m.blocks)-1] &= lastBlockMask(m.bitCount)
	for b := range m.blocks {
		m.syncPresence(b)
	}
}

// ResetAll clears every bit.
func (m *BitMask) ResetAll() {
	clear(m.blocks)
	clear(m.presence)
}

// GetBlock returns block b.
func (m *BitMask) GetBlock(b int) uint32 {
	m.checkBlock(b)
	return m.blocks[b]
}

// SetBlock overwrites block b. Bits beyond BitCount are a defect.
func (m *BitMask) SetBlock(b int, v uint32) {
	m.checkBlock(b)
	if b == len(m.blocks)-1 && v&^lastBlockMask(m.bitCount) != 0 {
		panic(fmt.Sprintf("updatefield: block %d value %#x sets bits past %d", b, v, m.bitCount))
	}
	m.blocks[b] = v
	m.syncPresence(b)
}

// GetBlockPresence returns presence word i.
func (m *BitMask) GetBlockPresence(i int) uint32 {
	if i < 0 || i >= len(m.presence) {
		panic(fmt.Sprintf("updatefield: presence word %d out of range [0,%d)", i, len(m.presence)))
	}
	return m.presence[i]
}

// IsAnySet reports whether any bit is set.
func (m *BitMask) IsAnySet() bool {
	for _, p := range m.presence {
		if p != 0 {
			return true
		}
	}
	return false
}

// Count returns the number of set bits.
func (m *BitMask) Count() int {
	n := 0
	for _, b := range m.blocks {
		n += bits.OnesCount32(b)
	}
	return n
}

func (m *BitMask) checkSame(other *BitMask) {
	if other.bitCount != m.bitCount {
		panic(fmt.Sprintf("updatefield: mask size mismatch %d vs %d", m.bitCount, other.bitCount))
	}
}

// And intersects m with other in place. A block that becomes zero loses its
// presence bit. It returns m.
func (m *BitMask) And(other *BitMask) *BitMask {
	m.checkSame(other)
	for b := range m.blocks {
		m.blocks[b] &= other.blocks[b]
		m.syncPresence(b)
	}
	return m
}

// Or unions other into m in place. It can only add presence bits. It
// returns m.
func (m *BitMask) Or(other *BitMask) *BitMask {
	m.checkSame(other)
	for b := range m.blocks {
		m.blocks[b] |= other.blocks[b]
	}
	for i := range m.presence {
		m.presence[i] |= other.presence[i]
	}
	return m
}

// IsSubsetOf reports whether every bit set in m is also set in other.
func (m *BitMask) IsSubsetOf(other *BitMask) bool {
	m.checkSame(other)
	for b := range m.blocks {
		if m.blocks[b]&^other.blocks[b] != 0 {
			return false
		}
	}
	return true
}

// Equal reports whether both masks track the same bits with the same values.
func (m *BitMask) Equal(other *BitMask) bool {
	if m.bitCount != other.bitCount {
		return false
	}
	for b := range m.blocks {
		if m.blocks[b] != other.blocks[b] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (m *BitMask) Clone() *BitMask {
	return &BitMask{
		bitCount: m.bitCount,
		blocks:   append([]uint32(nil), m.blocks...),
		presence: append([]uint32(nil), m.presence...),
	}
}

// CopyFrom overwrites m with other's bits. Sizes must match.
func (m *BitMask) CopyFrom(other *BitMask) {
	m.checkSame(other)
	copy(m.blocks, other.blocks)
	copy(m.presence, other.presence)
}

// Resize changes the tracked bit count. Growing adds clear bits; shrinking
// drops the trailing bits and their blocks, so no stale bit survives past
// the new end.
func (m *BitMask) Resize(bitCount int) {
	if bitCount < 0 {
		panic(fmt.Sprintf("updatefield: negative bit count %d", bitCount))
	}
	nb := blocksFor(bitCount)
	switch {
	case nb > len(m.blocks):
		m.blocks = append(m.blocks, make([]uint32, nb-len(m.blocks))...)
	case nb < len(m.blocks):
		clear(m.blocks[nb:])
		m.blocks = m.blocks[:nb]
	}
	np := presenceFor(nb)
	switch {
	case np > len(m.presence):
		m.presence = append(m.presence, make([]uint32, np-len(m.presence))...)
	case np < len(m.presence):
		m.presence = m.presence[:np]
	}
	m.bitCount = bitCount
	if nb > 0 {
		m.blocks[nb-1] &= lastBlockMask(bitCount)
	}
	for i := range m.presence {
		m.presence[i] = 0
	}
	for b := range m.blocks {
		m.syncPresence(b)
	}
}

// ForEach calls fn for every set bit in ascending order.
func (m *BitMask) ForEach(fn func(i int)) {
	for pw, p := range m.presence {
		for p != 0 {
			pb := bits.TrailingZeros32(p)
			p &^= 1 << uint(pb)
			b := pw*blockBits + pb
			block := m.blocks[b]
			for block != 0 {
				bit := bits.TrailingZeros32(block)
				block &^= 1 << uint(bit)
				fn(b*blockBits + bit)
			}
		}
	}
}

func (m *BitMask) String() string {
	return fmt.Sprintf("BitMask(%d)%x", m.bitCount, m.blocks)
}
