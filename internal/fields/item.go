package fields

import (
	"errors"

	"fieldsync/internal/bitpack"
	"fieldsync/internal/updatefield"
)

var (
	itemEnchantSchema   = updatefield.NewSchema("ItemEnchant", 5)
	itemModListSchema   = updatefield.NewSchema("ItemModList", 2)
	socketedGemSchema   = updatefield.NewSchema("SocketedGem", 20)
	itemDataSchema      = updatefield.NewSchema("ItemData", 39)
	containerDataSchema = updatefield.NewSchema("ContainerData", 39)
)

const (
	enchantmentSlots = 13
	spellChargeSlots = 5
	gemBonusLists    = 16
	containerSlots   = 36
)

type ItemEnchant struct {
	updatefield.Record
	ID       *updatefield.Scalar[int32]
	Duration *updatefield.Scalar[uint32]
	Charges  *updatefield.Scalar[int16]
	Inactive *updatefield.Scalar[uint16]
}

func NewItemEnchant() *ItemEnchant {
	e := &ItemEnchant{}
	l := itemEnchantSchema.Begin(&e.Record)
	g := l.Group()
	e.ID = updatefield.NewScalar[int32](l.Field(g))
	e.Duration = updatefield.NewScalar[uint32](l.Field(g))
	e.Charges = updatefield.NewScalar[int16](l.Field(g))
	e.Inactive = updatefield.NewScalar[uint16](l.Field(g))
	l.End()
	return e
}

func (e *ItemEnchant) WriteCreate(w *bitpack.Writer) {
	w.WriteInt32(e.ID.Get())
	w.WriteUint32(e.Duration.Get())
	w.WriteInt16(e.Charges.Get())
	w.WriteUint16(e.Inactive.Get())
}

func (e *ItemEnchant) WriteUpdate(w *bitpack.Writer, forceFull bool) {
	m := updatefield.Effective(itemEnchantSchema, e.Mask(), forceFull)
	updatefield.WriteMask(w, m)
	if e.ID.Changed(m) {
		w.WriteInt32(e.ID.Get())
	}
	if e.Duration.Changed(m) {
		w.WriteUint32(e.Duration.Get())
	}
	if e.Charges.Changed(m) {
		w.WriteInt16(e.Charges.Get())
	}
	if e.Inactive.Changed(m) {
		w.WriteUint16(e.Inactive.Get())
	}
}

// ItemMod is a single item modifier value.
type ItemMod struct {
	Value int32
	Type  uint8
}

func (m ItemMod) write(w *bitpack.Writer) {
	w.WriteInt32(m.Value)
	w.WriteUint8(m.Type)
}

type ItemModList struct {
	updatefield.Record
	Values *updatefield.DynamicList[ItemMod]
}

func NewItemModList() *ItemModList {
	ml := &ItemModList{}
	l := itemModListSchema.Begin(&ml.Record)
	g := l.Group()
	ml.Values = updatefield.NewDynamicList[ItemMod](l.Field(g))
	l.End()
	return ml
}

// MaxItemMods is the largest modifier count the list length prefix holds.
const MaxItemMods = 1<<shortListBits - 1

var ErrTooManyItemMods = errors.New("item modifier list is full")

// SetMod replaces the value of the modifier of type t, appending it when
// the item does not carry one yet. Appending past MaxItemMods fails.
func (ml *ItemModList) SetMod(t uint8, value int32) error {
	i := ml.Values.IndexFunc(func(m ItemMod) bool { return m.Type == t })
	if i < 0 {
		if ml.Values.Size() >= MaxItemMods {
			return ErrTooManyItemMods
		}
		ml.Values.Add(ItemMod{Value: value, Type: t})
		return nil
	}
	ml.Values.Set(i, ItemMod{Value: value, Type: t})
	return nil
}

func (ml *ItemModList) WriteCreate(w *bitpack.Writer) {
	updatefield.WriteListCreate(w, ml.Values, shortListBits, nil, func(m ItemMod) { m.write(w) })
}

func (ml *ItemModList) WriteUpdate(w *bitpack.Writer, forceFull bool) {
	m := updatefield.Effective(itemModListSchema, ml.Mask(), forceFull)
	updatefield.WriteMask(w, m)
	if ml.Values.Changed(m) {
		updatefield.WriteListUpdate(w, ml.Values, shortListBits, forceFull, func(v ItemMod, _ bool) { v.write(w) })
	}
}

// ArtifactPower is one purchased artifact trait.
type ArtifactPower struct {
	ArtifactPowerID      int16
	PurchasedRank        uint8
	CurrentRankWithBonus uint8
}

func (p ArtifactPower) write(w *bitpack.Writer) {
	w.WriteInt16(p.ArtifactPowerID)
	w.WriteUint8(p.PurchasedRank)
	w.WriteUint8(p.CurrentRankWithBonus)
}

type SocketedGem struct {
	updatefield.Record
	ItemID       *updatefield.Scalar[int32]
	Context      *updatefield.Scalar[uint8]
	BonusListIDs *updatefield.FixedArray[uint16]
}

func NewSocketedGem() *SocketedGem {
	s := &SocketedGem{}
	l := socketedGemSchema.Begin(&s.Record)
	g := l.Group()
	s.ItemID = updatefield.NewScalar[int32](l.Field(g))
	s.Context = updatefield.NewScalar[uint8](l.Field(g))
	s.BonusListIDs = updatefield.NewFixedArray[uint16](l.Array(-1, gemBonusLists))
	l.End()
	return s
}

func (s *SocketedGem) WriteCreate(w *bitpack.Writer) {
	w.WriteInt32(s.ItemID.Get())
	s.BonusListIDs.Each(nil, func(_ int, v uint16) { w.WriteUint16(v) })
	w.WriteUint8(s.Context.Get())
}

func (s *SocketedGem) WriteUpdate(w *bitpack.Writer, forceFull bool) {
	m := updatefield.Effective(socketedGemSchema, s.Mask(), forceFull)
	updatefield.WriteMask(w, m)
	if s.ItemID.Changed(m) {
		w.WriteInt32(s.ItemID.Get())
	}
	if s.Context.Changed(m) {
		w.WriteUint8(s.Context.Get())
	}
	s.BonusListIDs.EachChanged(m, func(_ int, v uint16) { w.WriteUint16(v) })
}

// ItemData is carried by items and containers.
type ItemData struct {
	updatefield.Record
	BonusListIDs        *updatefield.DynamicList[int32]
	Owner               *updatefield.Scalar[bitpack.ObjectGUID]
	ContainedIn         *updatefield.Scalar[bitpack.ObjectGUID]
	Creator             *updatefield.Scalar[bitpack.ObjectGUID]
	GiftCreator         *updatefield.Scalar[bitpack.ObjectGUID]
	StackCount          *updatefield.Scalar[uint32]
	Expiration          *updatefield.Scalar[uint32]
	DynamicFlags        *updatefield.Scalar[uint32]
	Durability          *updatefield.Scalar[uint32]
	MaxDurability       *updatefield.Scalar[uint32]
	CreatePlayedTime    *updatefield.Scalar[uint32]
	Context             *updatefield.Scalar[int32]
	CreateTime          *updatefield.Scalar[int64]
	ArtifactXP          *updatefield.Scalar[uint64]
	ItemAppearanceModID *updatefield.Scalar[uint8]
	Modifiers           *updatefield.Scalar[*ItemModList]
	ArtifactPowers      *updatefield.DynamicList[ArtifactPower]
	Gems                *updatefield.DynamicList[*SocketedGem]
	SpellCharges        *updatefield.FixedArray[int32]
	Enchantment         *updatefield.FixedArray[*ItemEnchant]
}

func NewItemData() *ItemData {
	d := &ItemData{}
	l := itemDataSchema.Begin(&d.Record)
	g := l.Group()
	d.BonusListIDs = updatefield.NewDynamicList[int32](l.Field(g))
	d.Owner = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.ContainedIn = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.Creator = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.GiftCreator = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.StackCount = updatefield.NewScalar[uint32](l.FieldFor(g, updatefield.VisibleOwner))
	d.Expiration = updatefield.NewScalar[uint32](l.FieldFor(g, updatefield.VisibleOwner))
	d.DynamicFlags = updatefield.NewScalar[uint32](l.FieldFor(g, updatefield.VisibleOwner))
	d.Durability = updatefield.NewScalar[uint32](l.FieldFor(g, updatefield.VisibleOwner))
	d.MaxDurability = updatefield.NewScalar[uint32](l.FieldFor(g, updatefield.VisibleOwner))
	d.CreatePlayedTime = updatefield.NewScalar[uint32](l.FieldFor(g, updatefield.VisibleOwner))
	d.Context = updatefield.NewScalar[int32](l.Field(g))
	d.CreateTime = updatefield.NewScalar[int64](l.Field(g))
	d.ArtifactXP = updatefield.NewScalar[uint64](l.FieldFor(g, updatefield.VisibleOwner))
	d.ItemAppearanceModID = updatefield.NewScalar[uint8](l.Field(g))
	d.Modifiers = updatefield.NewScalarOf(l.Field(g), NewItemModList())
	d.ArtifactPowers = updatefield.NewDynamicList[ArtifactPower](l.Field(g))
	d.Gems = updatefield.NewDynamicListOf(l.Field(g), NewSocketedGem)
	d.SpellCharges = updatefield.NewFixedArray[int32](l.ArrayFor(-1, spellChargeSlots, updatefield.VisibleOwner))
	d.Enchantment = updatefield.NewFixedArrayOf(l.Array(-1, enchantmentSlots), func(int) *ItemEnchant { return NewItemEnchant() })
	l.End()
	return d
}

var blankItemModList = NewItemModList()

func (d *ItemData) WriteCreate(w *bitpack.Writer, allowed *updatefield.BitMask, ctx *updatefield.ViewerContext) {
	w.WritePackedGUID(d.Owner.ValueFor(allowed))
	w.WritePackedGUID(d.ContainedIn.ValueFor(allowed))
	w.WritePackedGUID(d.Creator.ValueFor(allowed))
	w.WritePackedGUID(d.GiftCreator.ValueFor(allowed))
	w.WriteUint32(d.StackCount.ValueFor(allowed))
	w.WriteUint32(d.Expiration.ValueFor(allowed))
	d.SpellCharges.Each(allowed, func(_ int, v int32) { w.WriteInt32(v) })
	w.WriteUint32(d.DynamicFlags.ValueFor(allowed))
	d.Enchantment.Each(allowed, func(_ int, e *ItemEnchant) { e.WriteCreate(w) })
	w.WriteUint32(d.Durability.ValueFor(allowed))
	w.WriteUint32(d.MaxDurability.ValueFor(allowed))
	w.WriteUint32(d.CreatePlayedTime.ValueFor(allowed))
	w.WriteInt32(d.Context.ValueFor(allowed))
	w.WriteInt64(d.CreateTime.ValueFor(allowed))
	w.WriteUint64(d.ArtifactXP.ValueFor(allowed))
	w.WriteUint8(d.ItemAppearanceModID.ValueFor(allowed))
	updatefield.WriteListCreate(w, d.BonusListIDs, listLengthBits, allowed, func(v int32) { w.WriteInt32(v) })
	updatefield.WriteListCreate(w, d.ArtifactPowers, listLengthBits, allowed, func(p ArtifactPower) { p.write(w) })
	updatefield.WriteListCreate(w, d.Gems, listLengthBits, allowed, func(g *SocketedGem) { g.WriteCreate(w) })
	if updatefield.Permits(allowed, d.Modifiers.Bit()) {
		d.Modifiers.Get().WriteCreate(w)
	} else {
		blankItemModList.WriteCreate(w)
	}
}

func (d *ItemData) WriteUpdate(w *bitpack.Writer, mask *updatefield.BitMask, ctx *updatefield.ViewerContext) {
	updatefield.WriteMask(w, mask)
	d.writeFields(w, mask)
}

func (d *ItemData) writeFields(w *bitpack.Writer, m *updatefield.BitMask) {
	if d.BonusListIDs.Changed(m) {
		updatefield.WriteListUpdate(w, d.BonusListIDs, listLengthBits, false, func(v int32, _ bool) { w.WriteInt32(v) })
	}
	if d.ArtifactPowers.Changed(m) {
		updatefield.WriteListUpdate(w, d.ArtifactPowers, listLengthBits, false, func(p ArtifactPower, _ bool) { p.write(w) })
	}
	if d.Gems.Changed(m) {
		updatefield.WriteListUpdate(w, d.Gems, listLengthBits, false, func(g *SocketedGem, forced bool) { g.WriteUpdate(w, forced) })
	}
	if d.Owner.Changed(m) {
		w.WritePackedGUID(d.Owner.Get())
	}
	if d.ContainedIn.Changed(m) {
		w.WritePackedGUID(d.ContainedIn.Get())
	}
	if d.Creator.Changed(m) {
		w.WritePackedGUID(d.Creator.Get())
	}
	if d.GiftCreator.Changed(m) {
		w.WritePackedGUID(d.GiftCreator.Get())
	}
	if d.StackCount.Changed(m) {
		w.WriteUint32(d.StackCount.Get())
	}
	if d.Expiration.Changed(m) {
		w.WriteUint32(d.Expiration.Get())
	}
	if d.DynamicFlags.Changed(m) {
		w.WriteUint32(d.DynamicFlags.Get())
	}
	if d.Durability.Changed(m) {
		w.WriteUint32(d.Durability.Get())
	}
	if d.MaxDurability.Changed(m) {
		w.WriteUint32(d.MaxDurability.Get())
	}
	if d.CreatePlayedTime.Changed(m) {
		w.WriteUint32(d.CreatePlayedTime.Get())
	}
	if d.Context.Changed(m) {
		w.WriteInt32(d.Context.Get())
	}
	if d.CreateTime.Changed(m) {
		w.WriteInt64(d.CreateTime.Get())
	}
	if d.ArtifactXP.Changed(m) {
		w.WriteUint64(d.ArtifactXP.Get())
	}
	if d.ItemAppearanceModID.Changed(m) {
		w.WriteUint8(d.ItemAppearanceModID.Get())
	}
	if d.Modifiers.Changed(m) {
		d.Modifiers.Get().WriteUpdate(w, false)
	}
	d.SpellCharges.EachChanged(m, func(_ int, v int32) { w.WriteInt32(v) })
	d.Enchantment.EachChanged(m, func(_ int, e *ItemEnchant) { e.WriteUpdate(w, false) })
}

// ContainerData is carried by bags alongside their ItemData.
type ContainerData struct {
	updatefield.Record
	NumSlots *updatefield.Scalar[uint32]
	Slots    *updatefield.FixedArray[bitpack.ObjectGUID]
}

func NewContainerData() *ContainerData {
	d := &ContainerData{}
	l := containerDataSchema.Begin(&d.Record)
	g := l.Group()
	d.NumSlots = updatefield.NewScalar[uint32](l.Field(g))
	d.Slots = updatefield.NewFixedArray[bitpack.ObjectGUID](l.Array(-1, containerSlots))
	l.End()
	return d
}

func (d *ContainerData) WriteCreate(w *bitpack.Writer, allowed *updatefield.BitMask, ctx *updatefield.ViewerContext) {
	d.Slots.Each(allowed, func(_ int, g bitpack.ObjectGUID) { w.WritePackedGUID(g) })
	w.WriteUint32(d.NumSlots.ValueFor(allowed))
}

func (d *ContainerData) WriteUpdate(w *bitpack.Writer, mask *updatefield.BitMask, ctx *updatefield.ViewerContext) {
	updatefield.WriteMask(w, mask)
	if d.NumSlots.Changed(mask) {
		w.WriteUint32(d.NumSlots.Get())
	}
	d.Slots.EachChanged(mask, func(_ int, g bitpack.ObjectGUID) { w.WritePackedGUID(g) })
}
