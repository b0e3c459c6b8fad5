package fields

import (
	"github.com/go-gl/mathgl/mgl32"

	"fieldsync/internal/bitpack"
	"fieldsync/internal/updatefield"
)

var (
	gameObjectDataSchema    = updatefield.NewSchema("GameObjectData", 19)
	dynamicObjectDataSchema = updatefield.NewSchema("DynamicObjectData", 7)
	corpseDataSchema        = updatefield.NewSchema("CorpseData", 33)
)

const corpseItemSlots = 19

// GameObjectData is carried by doors, chests, transports and other
// interactive world objects.
type GameObjectData struct {
	updatefield.Record
	StateWorldEffectIDs      *updatefield.DynamicList[uint32]
	EnableDoodadSets         *updatefield.DynamicList[int32]
	WorldEffects             *updatefield.DynamicList[int32]
	DisplayID                *updatefield.Scalar[int32]
	SpellVisualID            *updatefield.Scalar[uint32]
	StateSpellVisualID       *updatefield.Scalar[uint32]
	SpawnTrackingStateAnimID *updatefield.Scalar[uint32]
	CreatedBy                *updatefield.Scalar[bitpack.ObjectGUID]
	GuildGUID                *updatefield.Scalar[bitpack.ObjectGUID]
	Flags                    *updatefield.Scalar[uint32]
	ParentRotation           *updatefield.Scalar[mgl32.Quat]
	FactionTemplate          *updatefield.Scalar[int32]
	Level                    *updatefield.Scalar[int32]
	State                    *updatefield.Scalar[int8]
	TypeID                   *updatefield.Scalar[int8]
	PercentHealth            *updatefield.Scalar[uint8]
	ArtKit                   *updatefield.Scalar[uint32]
	CustomParam              *updatefield.Scalar[uint32]
}

func NewGameObjectData() *GameObjectData {
	d := &GameObjectData{}
	l := gameObjectDataSchema.Begin(&d.Record)
	g := l.Group()
	d.StateWorldEffectIDs = updatefield.NewDynamicList[uint32](l.Field(g))
	d.EnableDoodadSets = updatefield.NewDynamicList[int32](l.Field(g))
	d.WorldEffects = updatefield.NewDynamicList[int32](l.Field(g))
	d.DisplayID = updatefield.NewScalar[int32](l.Field(g))
	d.SpellVisualID = updatefield.NewScalar[uint32](l.Field(g))
	d.StateSpellVisualID = updatefield.NewScalar[uint32](l.Field(g))
	d.SpawnTrackingStateAnimID = updatefield.NewScalar[uint32](l.Field(g))
	d.CreatedBy = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.GuildGUID = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.Flags = updatefield.NewScalar[uint32](l.Field(g))
	d.ParentRotation = updatefield.NewScalar[mgl32.Quat](l.Field(g))
	d.FactionTemplate = updatefield.NewScalar[int32](l.Field(g))
	d.Level = updatefield.NewScalar[int32](l.Field(g))
	d.State = updatefield.NewScalar[int8](l.Field(g))
	d.TypeID = updatefield.NewScalar[int8](l.Field(g))
	d.PercentHealth = updatefield.NewScalar[uint8](l.Field(g))
	d.ArtKit = updatefield.NewScalar[uint32](l.Field(g))
	d.CustomParam = updatefield.NewScalar[uint32](l.Field(g))
	l.End()
	d.ParentRotation.Set(mgl32.QuatIdent())
	d.PercentHealth.Set(100)
	d.ClearChanges()
	return d
}

func (d *GameObjectData) WriteCreate(w *bitpack.Writer, allowed *updatefield.BitMask, ctx *updatefield.ViewerContext) {
	w.WriteInt32(d.DisplayID.ValueFor(allowed))
	w.WriteUint32(d.SpellVisualID.ValueFor(allowed))
	w.WriteUint32(d.StateSpellVisualID.ValueFor(allowed))
	w.WriteUint32(d.SpawnTrackingStateAnimID.ValueFor(allowed))
	updatefield.WriteListCreate(w, d.StateWorldEffectIDs, listLengthBits, allowed, w.WriteUint32)
	writeEach(allowed, w.WritePackedGUID, d.CreatedBy, d.GuildGUID)
	w.WriteUint32(hooked(ctx, HookGameObjectFlags, d.Flags, allowed))
	writeQuat(w, d.ParentRotation.ValueFor(allowed))
	w.WriteInt32(hookedInt(ctx, HookFactionTemplate, d.FactionTemplate, allowed))
	w.WriteInt32(d.Level.ValueFor(allowed))
	w.WriteInt8(d.State.ValueFor(allowed))
	w.WriteInt8(d.TypeID.ValueFor(allowed))
	w.WriteUint8(d.PercentHealth.ValueFor(allowed))
	w.WriteUint32(d.ArtKit.ValueFor(allowed))
	updatefield.WriteListCreate(w, d.EnableDoodadSets, listLengthBits, allowed, w.WriteInt32)
	w.WriteUint32(d.CustomParam.ValueFor(allowed))
	updatefield.WriteListCreate(w, d.WorldEffects, listLengthBits, allowed, w.WriteInt32)
}

func (d *GameObjectData) WriteUpdate(w *bitpack.Writer, m *updatefield.BitMask, ctx *updatefield.ViewerContext) {
	updatefield.WriteMask(w, m)
	writeList(w, m, d.StateWorldEffectIDs, w.WriteUint32)
	writeList(w, m, d.EnableDoodadSets, w.WriteInt32)
	writeList(w, m, d.WorldEffects, w.WriteInt32)
	writeChanged(m, w.WriteInt32, d.DisplayID)
	writeChanged(m, w.WriteUint32, d.SpellVisualID, d.StateSpellVisualID, d.SpawnTrackingStateAnimID)
	writeChanged(m, w.WritePackedGUID, d.CreatedBy, d.GuildGUID)
	if d.Flags.Changed(m) {
		w.WriteUint32(ctx.Rewrite(HookGameObjectFlags, d.Flags.Get()))
	}
	if d.ParentRotation.Changed(m) {
		writeQuat(w, d.ParentRotation.Get())
	}
	if d.FactionTemplate.Changed(m) {
		w.WriteInt32(int32(ctx.Rewrite(HookFactionTemplate, uint32(d.FactionTemplate.Get()))))
	}
	writeChanged(m, w.WriteInt32, d.Level)
	writeChanged(m, w.WriteInt8, d.State, d.TypeID)
	writeChanged(m, w.WriteUint8, d.PercentHealth)
	writeChanged(m, w.WriteUint32, d.ArtKit, d.CustomParam)
}

// DynamicObjectData is carried by persistent spell effects on the ground.
type DynamicObjectData struct {
	updatefield.Record
	Caster      *updatefield.Scalar[bitpack.ObjectGUID]
	Type        *updatefield.Scalar[uint8]
	SpellVisual *updatefield.Scalar[*SpellCastVisual]
	SpellID     *updatefield.Scalar[int32]
	Radius      *updatefield.Scalar[float32]
	CastTime    *updatefield.Scalar[uint32]
}

func NewDynamicObjectData() *DynamicObjectData {
	d := &DynamicObjectData{}
	l := dynamicObjectDataSchema.Begin(&d.Record)
	g := l.Group()
	d.Caster = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.Type = updatefield.NewScalar[uint8](l.Field(g))
	d.SpellVisual = updatefield.NewScalarOf(l.Field(g), NewSpellCastVisual())
	d.SpellID = updatefield.NewScalar[int32](l.Field(g))
	d.Radius = updatefield.NewScalar[float32](l.Field(g))
	d.CastTime = updatefield.NewScalar[uint32](l.Field(g))
	l.End()
	return d
}

func (d *DynamicObjectData) WriteCreate(w *bitpack.Writer, allowed *updatefield.BitMask, ctx *updatefield.ViewerContext) {
	w.WritePackedGUID(d.Caster.ValueFor(allowed))
	w.WriteUint8(d.Type.ValueFor(allowed))
	d.SpellVisual.Get().WriteCreate(w)
	w.WriteInt32(d.SpellID.ValueFor(allowed))
	w.WriteFloat32(d.Radius.ValueFor(allowed))
	w.WriteUint32(d.CastTime.ValueFor(allowed))
}

func (d *DynamicObjectData) WriteUpdate(w *bitpack.Writer, m *updatefield.BitMask, ctx *updatefield.ViewerContext) {
	updatefield.WriteMask(w, m)
	writeChanged(m, w.WritePackedGUID, d.Caster)
	writeChanged(m, w.WriteUint8, d.Type)
	if d.SpellVisual.Changed(m) {
		d.SpellVisual.Get().WriteUpdate(w, false)
	}
	writeChanged(m, w.WriteInt32, d.SpellID)
	writeChanged(m, w.WriteFloat32, d.Radius)
	writeChanged(m, w.WriteUint32, d.CastTime)
}

// CorpseData is carried by player corpses.
type CorpseData struct {
	updatefield.Record
	Customizations        *updatefield.DynamicList[ChrCustomizationChoice]
	DynamicFlags          *updatefield.Scalar[uint32]
	Owner                 *updatefield.Scalar[bitpack.ObjectGUID]
	PartyGUID             *updatefield.Scalar[bitpack.ObjectGUID]
	GuildGUID             *updatefield.Scalar[bitpack.ObjectGUID]
	DisplayID             *updatefield.Scalar[uint32]
	RaceID                *updatefield.Scalar[uint8]
	Sex                   *updatefield.Scalar[uint8]
	Class                 *updatefield.Scalar[uint8]
	Flags                 *updatefield.Scalar[uint32]
	FactionTemplate       *updatefield.Scalar[int32]
	StateSpellVisualKitID *updatefield.Scalar[uint32]
	Items                 *updatefield.FixedArray[uint32]
}

func NewCorpseData() *CorpseData {
	d := &CorpseData{}
	l := corpseDataSchema.Begin(&d.Record)
	g := l.Group()
	d.Customizations = updatefield.NewDynamicList[ChrCustomizationChoice](l.Field(g))
	d.DynamicFlags = updatefield.NewScalar[uint32](l.Field(g))
	d.Owner = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.PartyGUID = updatefield.NewScalar[bitpack.ObjectGUID](l.FieldFor(g, updatefield.VisibleOwner|updatefield.VisiblePartyMember))
	d.GuildGUID = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.DisplayID = updatefield.NewScalar[uint32](l.Field(g))
	d.RaceID = updatefield.NewScalar[uint8](l.Field(g))
	d.Sex = updatefield.NewScalar[uint8](l.Field(g))
	d.Class = updatefield.NewScalar[uint8](l.Field(g))
	d.Flags = updatefield.NewScalar[uint32](l.Field(g))
	d.FactionTemplate = updatefield.NewScalar[int32](l.Field(g))
	d.StateSpellVisualKitID = updatefield.NewScalar[uint32](l.Field(g))
	d.Items = updatefield.NewFixedArray[uint32](l.Array(-1, corpseItemSlots))
	l.End()
	return d
}

func (d *CorpseData) WriteCreate(w *bitpack.Writer, allowed *updatefield.BitMask, ctx *updatefield.ViewerContext) {
	w.WriteUint32(d.DynamicFlags.ValueFor(allowed))
	writeEach(allowed, w.WritePackedGUID, d.Owner, d.PartyGUID, d.GuildGUID)
	w.WriteUint32(d.DisplayID.ValueFor(allowed))
	d.Items.Each(allowed, func(_ int, v uint32) { w.WriteUint32(v) })
	writeEach(allowed, w.WriteUint8, d.RaceID, d.Sex, d.Class)
	updatefield.WriteListCreate(w, d.Customizations, listLengthBits, allowed, func(c ChrCustomizationChoice) { c.write(w) })
	w.WriteUint32(d.Flags.ValueFor(allowed))
	w.WriteInt32(hookedInt(ctx, HookFactionTemplate, d.FactionTemplate, allowed))
	w.WriteUint32(d.StateSpellVisualKitID.ValueFor(allowed))
}

func (d *CorpseData) WriteUpdate(w *bitpack.Writer, m *updatefield.BitMask, ctx *updatefield.ViewerContext) {
	updatefield.WriteMask(w, m)
	writeList(w, m, d.Customizations, func(c ChrCustomizationChoice) { c.write(w) })
	writeChanged(m, w.WriteUint32, d.DynamicFlags)
	writeChanged(m, w.WritePackedGUID, d.Owner, d.PartyGUID, d.GuildGUID)
	writeChanged(m, w.WriteUint32, d.DisplayID)
	writeChanged(m, w.WriteUint8, d.RaceID, d.Sex, d.Class)
	writeChanged(m, w.WriteUint32, d.Flags)
	if d.FactionTemplate.Changed(m) {
		w.WriteInt32(int32(ctx.Rewrite(HookFactionTemplate, uint32(d.FactionTemplate.Get()))))
	}
	writeChanged(m, w.WriteUint32, d.StateSpellVisualKitID)
	d.Items.EachChanged(m, func(_ int, v uint32) { w.WriteUint32(v) })
}
