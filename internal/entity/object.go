package entity

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"fieldsync/internal/bitpack"
	"fieldsync/internal/packet"
	"fieldsync/internal/updatefield"
	"fieldsync/internal/visibility"
)

// Object is a replicated world entity.
type Object struct {
	guid     bitpack.ObjectGUID
	typeKind Kind
	owner    bitpack.ObjectGUID

	Values   *Values
	Position mgl32.Vec3
	Facing   float32

	spawned   bool
	tappedBy  bitpack.ObjectGUID
	locale    string
	lineTimes map[string]uint32
}

// New creates an entity whose most derived kind is typeKind and which
// carries every kind listed.
func New(guid bitpack.ObjectGUID, typeKind Kind, pos mgl32.Vec3, kinds ...Kind) *Object {
	v := NewValues(kinds...)
	v.attach(typeKind)
	return &Object{
		guid:     guid,
		typeKind: typeKind,
		Values:   v,
		Position: pos,
		spawned:  true,
	}
}

// NewItem creates an item owned by a player.
func NewItem(guid, owner bitpack.ObjectGUID, entry int32) *Object {
	o := New(guid, KindItem, mgl32.Vec3{})
	o.owner = owner
	o.Values.Object.EntryID.Set(entry)
	o.Values.Item.Owner.Set(owner)
	o.Values.Item.StackCount.Set(1)
	return o
}

// NewContainer creates a bag owned by a player.
func NewContainer(guid, owner bitpack.ObjectGUID, entry int32, slots uint32) *Object {
	o := New(guid, KindContainer, mgl32.Vec3{}, KindItem)
	o.owner = owner
	o.Values.Object.EntryID.Set(entry)
	o.Values.Item.Owner.Set(owner)
	o.Values.Container.NumSlots.Set(slots)
	return o
}

// NewCreature creates an unowned unit.
func NewCreature(guid bitpack.ObjectGUID, entry int32, pos mgl32.Vec3) *Object {
	o := New(guid, KindUnit, pos)
	o.Values.Object.EntryID.Set(entry)
	return o
}

// NewPet creates a unit controlled by a player.
func NewPet(guid, owner bitpack.ObjectGUID, entry int32, pos mgl32.Vec3) *Object {
	o := NewCreature(guid, entry, pos)
	o.owner = owner
	o.Values.Unit.SummonedBy.Set(owner)
	o.Values.Unit.CreatedBy.Set(owner)
	return o
}

// NewPlayer creates a player. Players carry the ActivePlayer kind, which is
// only ever sent to the player itself.
func NewPlayer(guid bitpack.ObjectGUID, pos mgl32.Vec3) *Object {
	o := New(guid, KindPlayer, pos, KindUnit, KindActivePlayer)
	o.owner = guid
	return o
}

func NewGameObject(guid bitpack.ObjectGUID, entry int32, pos mgl32.Vec3) *Object {
	o := New(guid, KindGameObject, pos)
	o.Values.Object.EntryID.Set(entry)
	return o
}

func NewDynamicObject(guid, caster bitpack.ObjectGUID, pos mgl32.Vec3) *Object {
	o := New(guid, KindDynamicObject, pos)
	o.owner = caster
	o.Values.DynamicObject.Caster.Set(caster)
	return o
}

func NewCorpse(guid, owner bitpack.ObjectGUID, pos mgl32.Vec3) *Object {
	o := New(guid, KindCorpse, pos)
	o.owner = owner
	o.Values.Corpse.Owner.Set(owner)
	return o
}

func NewAreaTrigger(guid, caster bitpack.ObjectGUID, pos mgl32.Vec3) *Object {
	o := New(guid, KindAreaTrigger, pos)
	o.Values.AreaTrigger.Caster.Set(caster)
	return o
}

func NewSceneObject(guid, creator bitpack.ObjectGUID, pos mgl32.Vec3) *Object {
	o := New(guid, KindSceneObject, pos)
	o.owner = creator
	o.Values.SceneObject.CreatedBy.Set(creator)
	return o
}

func NewConversation(guid, creator bitpack.ObjectGUID, pos mgl32.Vec3) *Object {
	o := New(guid, KindConversation, pos)
	o.owner = creator
	return o
}

func (o *Object) GUID() bitpack.ObjectGUID      { return o.guid }
func (o *Object) OwnerGUID() bitpack.ObjectGUID { return o.owner }
func (o *Object) TypeKind() Kind                { return o.typeKind }

// IsSpawned reports whether the entity appeared this tick.
func (o *Object) IsSpawned() bool { return o.spawned }

// SettleSpawn marks the entity as having existed before the next tick.
func (o *Object) SettleSpawn() { o.spawned = false }

// FactionTemplateID returns the faction of units and game objects.
func (o *Object) FactionTemplateID() uint32 {
	switch {
	case o.Values.Has(KindUnit):
		return uint32(o.Values.Unit.FactionTemplate.Get())
	case o.Values.Has(KindGameObject):
		return uint32(o.Values.GameObject.FactionTemplate.Get())
	}
	return 0
}

func (o *Object) TappedBy() bitpack.ObjectGUID { return o.tappedBy }

// SetTappedBy records who claimed the entity's loot and flags the dynamic
// flags field so every viewer gets its rewritten value.
func (o *Object) SetTappedBy(g bitpack.ObjectGUID) {
	o.tappedBy = g
	o.Values.Object.DynamicFlags.Mark()
}

func (o *Object) Locale() string { return o.locale }

func (o *Object) SetLocale(l string) { o.locale = l }

// LastLineEndTime returns the end of a conversation's last line for a locale.
func (o *Object) LastLineEndTime(locale string) (uint32, bool) {
	t, ok := o.lineTimes[locale]
	return t, ok
}

// SetLastLineEndTime records the localized end of the last line. The
// default locale also becomes the stored field value.
func (o *Object) SetLastLineEndTime(locale string, t uint32, isDefault bool) {
	if o.lineTimes == nil {
		o.lineTimes = make(map[string]uint32)
	}
	o.lineTimes[locale] = t
	if isDefault && o.Values.Has(KindConversation) {
		o.Values.Conversation.LastLineEndTime.Set(t)
	}
}

// kindVisible reports whether kind k may be sent to the context's receiver.
func kindVisible(k Kind, ctx *updatefield.ViewerContext) bool {
	return k != KindActivePlayer || ctx.IsSelf()
}

var writerPool = sync.Pool{
	New: func() any { return bitpack.NewWriter(512) },
}

func getWriter() *bitpack.Writer {
	w := writerPool.Get().(*bitpack.Writer)
	w.Reset()
	return w
}

func putWriter(w *bitpack.Writer) {
	writerPool.Put(w)
}

// frame wraps payload in block framing and returns a copy the caller owns.
func (o *Object) frame(t packet.UpdateType, payload []byte) []byte {
	w := getWriter()
	defer putWriter(w)
	packet.WriteBlock(w, &packet.Block{
		Type:       t,
		GUID:       o.guid,
		ObjectType: uint8(o.typeKind),
		Position:   o.Position,
		Facing:     o.Facing,
		Payload:    payload,
	})
	return append([]byte(nil), w.Bytes()...)
}

// BuildCreateBlock returns the full snapshot block of every kind the
// receiver may see. Restricted fields are written as zero values.
func (o *Object) BuildCreateBlock(ctx *updatefield.ViewerContext) []byte {
	var kinds uint32
	for k := Kind(0); k < kindCount; k++ {
		if o.Values.Has(k) && kindVisible(k, ctx) {
			kinds |= 1 << k
		}
	}

	w := getWriter()
	defer putWriter(w)
	w.WriteBits(kinds, KindMaskBits)
	w.FlushBits()
	for k := Kind(0); k < kindCount; k++ {
		if kinds&(1<<k) == 0 {
			continue
		}
		allowed := visibility.ComputeAllowedMask(Schema(k), ctx.Flags)
		o.Values.writeCreate(k, w, allowed, ctx)
	}

	t := packet.CreateObject1
	if o.spawned {
		t = packet.CreateObject2
	}
	return o.frame(t, w.Bytes())
}

// BuildValuesBlock returns the diff block of the changes the receiver may
// see, or nil when no field survives masking. Stored changes are left intact.
func (o *Object) BuildValuesBlock(ctx *updatefield.ViewerContext) []byte {
	if !o.Values.IsChanged() {
		return nil
	}

	var (
		kinds uint32
		masks [kindCount]*updatefield.BitMask
	)
	o.Values.changed.ForEach(func(i int) {
		k := Kind(i)
		if !kindVisible(k, ctx) {
			return
		}
		schema := Schema(k)
		allowed := visibility.ComputeAllowedMask(schema, ctx.Flags)
		m := visibility.FilterDirtyMask(o.Values.Record(k).Mask(), allowed)
		if schema.HasFields(m) {
			kinds |= 1 << k
			masks[k] = m
		}
	})
	if kinds == 0 {
		return nil
	}
	return o.writeValues(kinds, masks[:], ctx)
}

func (o *Object) writeValues(kinds uint32, masks []*updatefield.BitMask, ctx *updatefield.ViewerContext) []byte {
	w := getWriter()
	defer putWriter(w)
	w.WriteBits(kinds, KindMaskBits)
	w.FlushBits()
	for k := Kind(0); k < kindCount; k++ {
		if kinds&(1<<k) != 0 {
			o.Values.writeUpdate(k, w, masks[k], ctx)
		}
	}
	return o.frame(packet.UpdateValues, w.Bytes())
}

// NewMask returns an empty mask sized for kind k, for use with
// ForceValuesUpdate and the containers' Select methods.
func NewMask(k Kind) *updatefield.BitMask {
	return updatefield.NewBitMask(Schema(k).Bits())
}

// ForceValuesUpdate builds a values block that sends the fields selected in
// m for one receiver, whether or not they changed. Nested records inside
// the selection are written by their own changes. The stored changes are
// not touched.
func (o *Object) ForceValuesUpdate(k Kind, m *updatefield.BitMask, ctx *updatefield.ViewerContext) []byte {
	if !o.Values.Has(k) {
		panic(fmt.Sprintf("entity: %v does not carry %v", o.guid, k))
	}
	if !kindVisible(k, ctx) {
		return nil
	}
	allowed := visibility.ComputeAllowedMask(Schema(k), ctx.Flags)
	filtered := visibility.FilterDirtyMask(m, allowed)
	if !Schema(k).HasFields(filtered) {
		return nil
	}
	var masks [kindCount]*updatefield.BitMask
	masks[k] = filtered
	return o.writeValues(1<<k, masks[:], ctx)
}

func (o *Object) String() string {
	return fmt.Sprintf("%v(%v)", o.typeKind, o.guid)
}
