// Package packet assembles the per-observer synchronization message: the
// entities to drop followed by the concatenated per-entity update blocks.
package packet

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"fieldsync/internal/bitpack"
)

// UpdateType tags each per-entity block.
type UpdateType uint8

const (
	// UpdateValues carries a diff of the kind records that changed.
	UpdateValues UpdateType = 0
	// CreateObject1 introduces an entity that already existed in the world.
	CreateObject1 UpdateType = 1
	// CreateObject2 introduces an entity spawned this tick.
	CreateObject2 UpdateType = 2
)

func (t UpdateType) String() string {
	switch t {
	case UpdateValues:
		return "values"
	case CreateObject1:
		return "create1"
	case CreateObject2:
		return "create2"
	}
	return fmt.Sprintf("update(%d)", uint8(t))
}

// IsCreate reports whether blocks of this type carry a full snapshot.
func (t UpdateType) IsCreate() bool {
	return t == CreateObject1 || t == CreateObject2
}

var (
	// ErrTruncated is returned when a packet ends before its framing says it should.
	ErrTruncated = errors.New("packet: truncated")
	// ErrMalformed is returned for framing that cannot have been produced by UpdateData.
	ErrMalformed = errors.New("packet: malformed")
)

// Block is one entity's entry in an update packet. Payload is the
// kind-mask-prefixed field data produced by the entity serializer.
type Block struct {
	Type       UpdateType
	GUID       bitpack.ObjectGUID
	ObjectType uint8
	Position   mgl32.Vec3
	Facing     float32
	Payload    []byte
}

// WriteBlock appends b in block framing: type, packed GUID, the movement
// header for creates, then the payload length and bytes.
func WriteBlock(w *bitpack.Writer, b *Block) {
	w.WriteUint8(uint8(b.Type))
	w.WritePackedGUID(b.GUID)
	if b.Type.IsCreate() {
		w.WriteUint8(b.ObjectType)
		w.WriteFloat32(b.Position.X())
		w.WriteFloat32(b.Position.Y())
		w.WriteFloat32(b.Position.Z())
		w.WriteFloat32(b.Facing)
	}
	w.WriteUint32(uint32(len(b.Payload)))
	w.WriteBytes(b.Payload)
}

// ReadBlock mirrors WriteBlock.
func ReadBlock(r *bitpack.Reader) (Block, error) {
	var b Block
	b.Type = UpdateType(r.ReadUint8())
	if r.Err() == nil && b.Type > CreateObject2 {
		return b, fmt.Errorf("%w: unknown update type %d", ErrMalformed, uint8(b.Type))
	}
	b.GUID = r.ReadPackedGUID()
	if b.Type.IsCreate() {
		b.ObjectType = r.ReadUint8()
		b.Position = mgl32.Vec3{r.ReadFloat32(), r.ReadFloat32(), r.ReadFloat32()}
		b.Facing = r.ReadFloat32()
	}
	size := int(r.ReadUint32())
	if r.Err() != nil {
		return b, fmt.Errorf("%w: block header: %v", ErrTruncated, r.Err())
	}
	if size > r.Remaining() {
		return b, fmt.Errorf("%w: block payload needs %d bytes, %d left", ErrTruncated, size, r.Remaining())
	}
	b.Payload = r.ReadBytes(size)
	return b, nil
}

// UpdateData accumulates one observer's message for one tick.
type UpdateData struct {
	mapID      uint32
	blockCount uint32
	destroyed  []bitpack.ObjectGUID
	outOfRange []bitpack.ObjectGUID
	data       *bitpack.Writer
}

// NewUpdateData creates an empty assembler for the given map.
func NewUpdateData(mapID uint32) *UpdateData {
	return &UpdateData{
		mapID: mapID,
		data:  bitpack.NewWriter(1024),
	}
}

// AddUpdateBlock appends one entity's serialized block.
func (u *UpdateData) AddUpdateBlock(block []byte) {
	u.data.WriteBytes(block)
	u.blockCount++
}

// AddBlock frames b and appends it.
func (u *UpdateData) AddBlock(b *Block) {
	WriteBlock(u.data, b)
	u.blockCount++
}

// AddDestroyObject tells the observer the entity no longer exists.
func (u *UpdateData) AddDestroyObject(guid bitpack.ObjectGUID) {
	u.destroyed = append(u.destroyed, guid)
}

// AddOutOfRangeObject tells the observer the entity left its view.
func (u *UpdateData) AddOutOfRangeObject(guid bitpack.ObjectGUID) {
	u.outOfRange = append(u.outOfRange, guid)
}

// HasData reports whether a packet needs to be sent.
func (u *UpdateData) HasData() bool {
	return u.blockCount > 0 || len(u.destroyed) > 0 || len(u.outOfRange) > 0
}

// BlockCount returns the number of blocks added so far.
func (u *UpdateData) BlockCount() int { return int(u.blockCount) }

// Len returns the accumulated block bytes.
func (u *UpdateData) Len() int { return u.data.Len() }

// MapID returns the map the packet describes.
func (u *UpdateData) MapID() uint32 { return u.mapID }

// Reset empties the assembler for reuse on the next tick.
func (u *UpdateData) Reset() {
	u.blockCount = 0
	u.destroyed = u.destroyed[:0]
	u.outOfRange = u.outOfRange[:0]
	u.data.Reset()
}

// BuildPacket returns the finished message. The result does not alias the
// assembler's buffers.
func (u *UpdateData) BuildPacket() []byte {
	removed := len(u.destroyed) + len(u.outOfRange)
	if len(u.destroyed) > 0xFFFF {
		panic(fmt.Sprintf("packet: %d destroyed objects exceed the u16 count", len(u.destroyed)))
	}

	w := bitpack.NewWriter(16 + removed*18 + u.data.Len())
	w.WriteUint32(u.mapID)
	w.WriteUint32(u.blockCount)
	if w.WriteBit(removed > 0) {
		w.FlushBits()
		w.WriteUint16(uint16(len(u.destroyed)))
		w.WriteUint32(uint32(removed))
		for _, g := range u.destroyed {
			w.WritePackedGUID(g)
		}
		for _, g := range u.outOfRange {
			w.WritePackedGUID(g)
		}
	}
	w.FlushBits()
	w.WriteUint32(uint32(u.data.Len()))
	w.WriteBytes(u.data.Bytes())
	return w.Bytes()
}

// Packet is the receiver-side view of a message built by UpdateData.
type Packet struct {
	MapID      uint32
	Destroyed  []bitpack.ObjectGUID
	OutOfRange []bitpack.ObjectGUID
	Blocks     []Block
}

// Parse decodes a message produced by UpdateData.BuildPacket.
func Parse(data []byte) (*Packet, error) {
	r := bitpack.NewReader(data)
	p := &Packet{MapID: r.ReadUint32()}
	blockCount := r.ReadUint32()
	if r.ReadBit() {
		r.ResetBitPos()
		destroyCount := int(r.ReadUint16())
		total := int(r.ReadUint32())
		if r.Err() != nil {
			return nil, fmt.Errorf("%w: removal header: %v", ErrTruncated, r.Err())
		}
		if destroyCount > total {
			return nil, fmt.Errorf("%w: %d destroyed of %d removed", ErrMalformed, destroyCount, total)
		}
		// each packed GUID is at least two bytes
		if total*2 > r.Remaining() {
			return nil, fmt.Errorf("%w: %d removed objects in %d bytes", ErrTruncated, total, r.Remaining())
		}
		for i := 0; i < total; i++ {
			g := r.ReadPackedGUID()
			if i < destroyCount {
				p.Destroyed = append(p.Destroyed, g)
			} else {
				p.OutOfRange = append(p.OutOfRange, g)
			}
		}
	}
	r.ResetBitPos()
	size := int(r.ReadUint32())
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, r.Err())
	}
	if size != r.Remaining() {
		if size > r.Remaining() {
			return nil, fmt.Errorf("%w: block data needs %d bytes, %d left", ErrTruncated, size, r.Remaining())
		}
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, r.Remaining()-size)
	}

	blocks := bitpack.NewReader(r.ReadBytes(size))
	for i := uint32(0); i < blockCount; i++ {
		b, err := ReadBlock(blocks)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		p.Blocks = append(p.Blocks, b)
	}
	if blocks.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d bytes after %d blocks", ErrMalformed, blocks.Remaining(), blockCount)
	}
	return p, nil
}
