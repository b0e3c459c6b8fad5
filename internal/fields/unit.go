package fields

import (
	"fieldsync/internal/bitpack"
	"fieldsync/internal/updatefield"
)

var (
	spellCastVisualSchema = updatefield.NewSchema("SpellCastVisual", 3)
	unitChannelSchema     = updatefield.NewSchema("UnitChannel", 5)
	visibleItemSchema     = updatefield.NewSchema("VisibleItem", 5)
	unitDataSchema        = updatefield.NewSchema("UnitData", 138)
)

const (
	maxPowers        = 10
	maxStats         = 5
	maxResistances   = 7
	virtualItemSlots = 3
	attackTypes      = 2
)

type SpellCastVisual struct {
	updatefield.Record
	SpellXSpellVisualID *updatefield.Scalar[int32]
	ScriptVisualID      *updatefield.Scalar[int32]
}

func NewSpellCastVisual() *SpellCastVisual {
	v := &SpellCastVisual{}
	l := spellCastVisualSchema.Begin(&v.Record)
	g := l.Group()
	v.SpellXSpellVisualID = updatefield.NewScalar[int32](l.Field(g))
	v.ScriptVisualID = updatefield.NewScalar[int32](l.Field(g))
	l.End()
	return v
}

func (v *SpellCastVisual) WriteCreate(w *bitpack.Writer) {
	w.WriteInt32(v.SpellXSpellVisualID.Get())
	w.WriteInt32(v.ScriptVisualID.Get())
}

func (v *SpellCastVisual) WriteUpdate(w *bitpack.Writer, forceFull bool) {
	m := updatefield.Effective(spellCastVisualSchema, v.Mask(), forceFull)
	updatefield.WriteMask(w, m)
	if v.SpellXSpellVisualID.Changed(m) {
		w.WriteInt32(v.SpellXSpellVisualID.Get())
	}
	if v.ScriptVisualID.Changed(m) {
		w.WriteInt32(v.ScriptVisualID.Get())
	}
}

// UnitChannel describes the spell a unit is channeling.
type UnitChannel struct {
	updatefield.Record
	SpellID     *updatefield.Scalar[int32]
	SpellVisual *updatefield.Scalar[*SpellCastVisual]
	StartTimeMs *updatefield.Scalar[uint32]
	Duration    *updatefield.Scalar[uint32]
}

func NewUnitChannel() *UnitChannel {
	c := &UnitChannel{}
	l := unitChannelSchema.Begin(&c.Record)
	g := l.Group()
	c.SpellID = updatefield.NewScalar[int32](l.Field(g))
	c.SpellVisual = updatefield.NewScalarOf(l.Field(g), NewSpellCastVisual())
	c.StartTimeMs = updatefield.NewScalar[uint32](l.Field(g))
	c.Duration = updatefield.NewScalar[uint32](l.Field(g))
	l.End()
	return c
}

func (c *UnitChannel) WriteCreate(w *bitpack.Writer) {
	w.WriteInt32(c.SpellID.Get())
	c.SpellVisual.Get().WriteCreate(w)
	w.WriteUint32(c.StartTimeMs.Get())
	w.WriteUint32(c.Duration.Get())
}

func (c *UnitChannel) WriteUpdate(w *bitpack.Writer, forceFull bool) {
	m := updatefield.Effective(unitChannelSchema, c.Mask(), forceFull)
	updatefield.WriteMask(w, m)
	if c.SpellID.Changed(m) {
		w.WriteInt32(c.SpellID.Get())
	}
	if c.SpellVisual.Changed(m) {
		c.SpellVisual.Get().WriteUpdate(w, forceFull)
	}
	if c.StartTimeMs.Changed(m) {
		w.WriteUint32(c.StartTimeMs.Get())
	}
	if c.Duration.Changed(m) {
		w.WriteUint32(c.Duration.Get())
	}
}

// VisibleItem is the appearance of an equipped item shown to others.
type VisibleItem struct {
	updatefield.Record
	ItemID                            *updatefield.Scalar[int32]
	SecondaryItemModifiedAppearanceID *updatefield.Scalar[int32]
	ItemAppearanceModID               *updatefield.Scalar[uint16]
	ItemVisual                        *updatefield.Scalar[uint16]
}

func NewVisibleItem() *VisibleItem {
	v := &VisibleItem{}
	l := visibleItemSchema.Begin(&v.Record)
	g := l.Group()
	v.ItemID = updatefield.NewScalar[int32](l.Field(g))
	v.SecondaryItemModifiedAppearanceID = updatefield.NewScalar[int32](l.Field(g))
	v.ItemAppearanceModID = updatefield.NewScalar[uint16](l.Field(g))
	v.ItemVisual = updatefield.NewScalar[uint16](l.Field(g))
	l.End()
	return v
}

func (v *VisibleItem) WriteCreate(w *bitpack.Writer) {
	w.WriteInt32(v.ItemID.Get())
	w.WriteInt32(v.SecondaryItemModifiedAppearanceID.Get())
	w.WriteUint16(v.ItemAppearanceModID.Get())
	w.WriteUint16(v.ItemVisual.Get())
}

func (v *VisibleItem) WriteUpdate(w *bitpack.Writer, forceFull bool) {
	m := updatefield.Effective(visibleItemSchema, v.Mask(), forceFull)
	updatefield.WriteMask(w, m)
	if v.ItemID.Changed(m) {
		w.WriteInt32(v.ItemID.Get())
	}
	if v.SecondaryItemModifiedAppearanceID.Changed(m) {
		w.WriteInt32(v.SecondaryItemModifiedAppearanceID.Get())
	}
	if v.ItemAppearanceModID.Changed(m) {
		w.WriteUint16(v.ItemAppearanceModID.Get())
	}
	if v.ItemVisual.Changed(m) {
		w.WriteUint16(v.ItemVisual.Get())
	}
}

// PassiveSpellHistory links a passive spell to the aura it applied.
type PassiveSpellHistory struct {
	SpellID     int32
	AuraSpellID int32
}

func (h PassiveSpellHistory) write(w *bitpack.Writer) {
	w.WriteInt32(h.SpellID)
	w.WriteInt32(h.AuraSpellID)
}

// UnitData is carried by creatures and players.
type UnitData struct {
	updatefield.Record

	StateWorldEffectIDs *updatefield.DynamicList[uint32]
	PassiveSpells       *updatefield.DynamicList[PassiveSpellHistory]
	WorldEffects        *updatefield.DynamicList[int32]
	ChannelObjects      *updatefield.DynamicList[bitpack.ObjectGUID]

	Health                    *updatefield.Scalar[int64]
	MaxHealth                 *updatefield.Scalar[int64]
	DisplayID                 *updatefield.Scalar[int32]
	NpcFlags                  *updatefield.Scalar[uint32]
	StateSpellVisualID        *updatefield.Scalar[uint32]
	StateAnimID               *updatefield.Scalar[uint32]
	StateAnimKitID            *updatefield.Scalar[uint32]
	Charm                     *updatefield.Scalar[bitpack.ObjectGUID]
	Summon                    *updatefield.Scalar[bitpack.ObjectGUID]
	Critter                   *updatefield.Scalar[bitpack.ObjectGUID]
	CharmedBy                 *updatefield.Scalar[bitpack.ObjectGUID]
	SummonedBy                *updatefield.Scalar[bitpack.ObjectGUID]
	CreatedBy                 *updatefield.Scalar[bitpack.ObjectGUID]
	DemonCreator              *updatefield.Scalar[bitpack.ObjectGUID]
	LookAtControllerTarget    *updatefield.Scalar[bitpack.ObjectGUID]
	Target                    *updatefield.Scalar[bitpack.ObjectGUID]
	BattlePetCompanion        *updatefield.Scalar[bitpack.ObjectGUID]
	ChannelData               *updatefield.Scalar[*UnitChannel]
	Race                      *updatefield.Scalar[uint8]
	ClassID                   *updatefield.Scalar[uint8]
	PlayerClassID             *updatefield.Scalar[uint8]
	Sex                       *updatefield.Scalar[uint8]
	DisplayPower              *updatefield.Scalar[uint8]
	OverrideDisplayPowerID    *updatefield.Scalar[uint32]
	Level                     *updatefield.Scalar[int32]
	EffectiveLevel            *updatefield.Scalar[int32]
	ContentTuningID           *updatefield.Scalar[int32]
	ScalingLevelMin           *updatefield.Scalar[int32]
	ScalingLevelMax           *updatefield.Scalar[int32]
	FactionTemplate           *updatefield.Scalar[int32]
	Flags                     *updatefield.Scalar[uint32]
	Flags2                    *updatefield.Scalar[uint32]
	Flags3                    *updatefield.Scalar[uint32]
	AuraState                 *updatefield.Scalar[uint32]
	RangedAttackRoundBaseTime *updatefield.Scalar[uint32]
	BoundingRadius            *updatefield.Scalar[float32]
	CombatReach               *updatefield.Scalar[float32]
	DisplayScale              *updatefield.Scalar[float32]
	NativeDisplayID           *updatefield.Scalar[int32]
	NativeXDisplayScale       *updatefield.Scalar[float32]
	MountDisplayID            *updatefield.Scalar[int32]
	MinDamage                 *updatefield.Scalar[float32]
	MaxDamage                 *updatefield.Scalar[float32]
	MinOffHandDamage          *updatefield.Scalar[float32]
	MaxOffHandDamage          *updatefield.Scalar[float32]
	AnimTier                  *updatefield.Scalar[uint8]
	PetNumber                 *updatefield.Scalar[uint32]
	PetExperience             *updatefield.Scalar[uint32]
	PetNextLevelExperience    *updatefield.Scalar[uint32]
	ModCastingSpeed           *updatefield.Scalar[float32]
	ModHaste                  *updatefield.Scalar[float32]
	CreatedBySpell            *updatefield.Scalar[int32]
	EmoteState                *updatefield.Scalar[int32]
	BaseMana                  *updatefield.Scalar[int32]
	BaseHealth                *updatefield.Scalar[int32]
	SheatheState              *updatefield.Scalar[uint8]
	PvpFlags                  *updatefield.Scalar[uint8]
	PetFlags                  *updatefield.Scalar[uint8]
	ShapeshiftForm            *updatefield.Scalar[uint8]
	AttackPower               *updatefield.Scalar[int32]
	RangedAttackPower         *updatefield.Scalar[int32]
	MinRangedDamage           *updatefield.Scalar[float32]
	MaxRangedDamage           *updatefield.Scalar[float32]
	MaxHealthModifier         *updatefield.Scalar[float32]
	HoverHeight               *updatefield.Scalar[float32]
	GuildGUID                 *updatefield.Scalar[bitpack.ObjectGUID]
	SkinningOwnerGUID         *updatefield.Scalar[bitpack.ObjectGUID]

	Power                  *updatefield.FixedArray[int32]
	MaxPower               *updatefield.FixedArray[int32]
	PowerRegenFlatModifier *updatefield.FixedArray[float32]
	VirtualItems           *updatefield.FixedArray[*VisibleItem]
	AttackRoundBaseTime    *updatefield.FixedArray[uint32]
	Stats                  *updatefield.FixedArray[int32]
	StatPosBuff            *updatefield.FixedArray[int32]
	StatNegBuff            *updatefield.FixedArray[int32]
	Resistances            *updatefield.FixedArray[int32]
}

func NewUnitData() *UnitData {
	const (
		owner   = updatefield.VisibleOwner
		stats   = updatefield.VisibleOwner | updatefield.VisibleUnitAll
		combat  = updatefield.VisibleOwner | updatefield.VisibleUnitAll | updatefield.VisibleEmpathy
		grouped = updatefield.VisibleOwner | updatefield.VisiblePartyMember | updatefield.VisibleUnitAll
	)
	d := &UnitData{}
	l := unitDataSchema.Begin(&d.Record)
	g := l.Group()
	d.StateWorldEffectIDs = updatefield.NewDynamicList[uint32](l.Field(g))
	d.PassiveSpells = updatefield.NewDynamicList[PassiveSpellHistory](l.Field(g))
	d.WorldEffects = updatefield.NewDynamicList[int32](l.Field(g))
	d.ChannelObjects = updatefield.NewDynamicList[bitpack.ObjectGUID](l.Field(g))
	d.Health = updatefield.NewScalar[int64](l.Field(g))
	d.MaxHealth = updatefield.NewScalar[int64](l.Field(g))
	d.DisplayID = updatefield.NewScalar[int32](l.Field(g))
	d.NpcFlags = updatefield.NewScalar[uint32](l.Field(g))
	d.StateSpellVisualID = updatefield.NewScalar[uint32](l.Field(g))
	d.StateAnimID = updatefield.NewScalar[uint32](l.Field(g))
	d.StateAnimKitID = updatefield.NewScalar[uint32](l.Field(g))
	d.Charm = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.Summon = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.Critter = updatefield.NewScalar[bitpack.ObjectGUID](l.FieldFor(g, owner))
	d.CharmedBy = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.SummonedBy = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.CreatedBy = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.DemonCreator = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.LookAtControllerTarget = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.Target = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.BattlePetCompanion = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.ChannelData = updatefield.NewScalarOf(l.Field(g), NewUnitChannel())
	d.Race = updatefield.NewScalar[uint8](l.Field(g))
	d.ClassID = updatefield.NewScalar[uint8](l.Field(g))
	d.PlayerClassID = updatefield.NewScalar[uint8](l.Field(g))
	d.Sex = updatefield.NewScalar[uint8](l.Field(g))
	d.DisplayPower = updatefield.NewScalar[uint8](l.Field(g))
	d.OverrideDisplayPowerID = updatefield.NewScalar[uint32](l.Field(g))
	d.Level = updatefield.NewScalar[int32](l.Field(g))
	d.EffectiveLevel = updatefield.NewScalar[int32](l.Field(g))
	d.ContentTuningID = updatefield.NewScalar[int32](l.Field(g))
	d.ScalingLevelMin = updatefield.NewScalar[int32](l.Field(g))
	d.ScalingLevelMax = updatefield.NewScalar[int32](l.Field(g))
	d.FactionTemplate = updatefield.NewScalar[int32](l.Field(g))
	d.Flags = updatefield.NewScalar[uint32](l.Field(g))
	d.Flags2 = updatefield.NewScalar[uint32](l.Field(g))
	d.Flags3 = updatefield.NewScalar[uint32](l.Field(g))
	d.AuraState = updatefield.NewScalar[uint32](l.Field(g))
	d.RangedAttackRoundBaseTime = updatefield.NewScalar[uint32](l.Field(g))
	d.BoundingRadius = updatefield.NewScalar[float32](l.Field(g))
	d.CombatReach = updatefield.NewScalar[float32](l.Field(g))
	d.DisplayScale = updatefield.NewScalar[float32](l.Field(g))
	d.NativeDisplayID = updatefield.NewScalar[int32](l.Field(g))
	d.NativeXDisplayScale = updatefield.NewScalar[float32](l.Field(g))
	d.MountDisplayID = updatefield.NewScalar[int32](l.Field(g))
	d.MinDamage = updatefield.NewScalar[float32](l.FieldFor(g, combat))
	d.MaxDamage = updatefield.NewScalar[float32](l.FieldFor(g, combat))
	d.MinOffHandDamage = updatefield.NewScalar[float32](l.FieldFor(g, combat))
	d.MaxOffHandDamage = updatefield.NewScalar[float32](l.FieldFor(g, combat))
	d.AnimTier = updatefield.NewScalar[uint8](l.Field(g))
	d.PetNumber = updatefield.NewScalar[uint32](l.Field(g))
	d.PetExperience = updatefield.NewScalar[uint32](l.FieldFor(g, owner))
	d.PetNextLevelExperience = updatefield.NewScalar[uint32](l.FieldFor(g, owner))
	d.ModCastingSpeed = updatefield.NewScalar[float32](l.FieldFor(g, stats))
	d.ModHaste = updatefield.NewScalar[float32](l.FieldFor(g, stats))
	d.CreatedBySpell = updatefield.NewScalar[int32](l.Field(g))
	d.EmoteState = updatefield.NewScalar[int32](l.Field(g))
	d.BaseMana = updatefield.NewScalar[int32](l.FieldFor(g, stats))
	d.BaseHealth = updatefield.NewScalar[int32](l.FieldFor(g, stats))
	d.SheatheState = updatefield.NewScalar[uint8](l.Field(g))
	d.PvpFlags = updatefield.NewScalar[uint8](l.Field(g))
	d.PetFlags = updatefield.NewScalar[uint8](l.Field(g))
	d.ShapeshiftForm = updatefield.NewScalar[uint8](l.Field(g))
	d.AttackPower = updatefield.NewScalar[int32](l.FieldFor(g, stats))
	d.RangedAttackPower = updatefield.NewScalar[int32](l.FieldFor(g, stats))
	d.MinRangedDamage = updatefield.NewScalar[float32](l.FieldFor(g, stats))
	d.MaxRangedDamage = updatefield.NewScalar[float32](l.FieldFor(g, stats))
	d.MaxHealthModifier = updatefield.NewScalar[float32](l.FieldFor(g, stats))
	d.HoverHeight = updatefield.NewScalar[float32](l.Field(g))
	d.GuildGUID = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.SkinningOwnerGUID = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.Power = updatefield.NewFixedArray[int32](l.ArrayFor(-1, maxPowers, grouped))
	d.MaxPower = updatefield.NewFixedArray[int32](l.ArrayFor(-1, maxPowers, grouped))
	d.PowerRegenFlatModifier = updatefield.NewFixedArray[float32](l.ArrayFor(-1, maxPowers, stats))
	d.VirtualItems = updatefield.NewFixedArrayOf(l.Array(-1, virtualItemSlots), func(int) *VisibleItem { return NewVisibleItem() })
	d.AttackRoundBaseTime = updatefield.NewFixedArray[uint32](l.Array(-1, attackTypes))
	d.Stats = updatefield.NewFixedArray[int32](l.ArrayFor(-1, maxStats, stats))
	d.StatPosBuff = updatefield.NewFixedArray[int32](l.ArrayFor(-1, maxStats, stats))
	d.StatNegBuff = updatefield.NewFixedArray[int32](l.ArrayFor(-1, maxStats, stats))
	d.Resistances = updatefield.NewFixedArray[int32](l.ArrayFor(-1, maxResistances, combat))
	l.End()
	d.DisplayScale.Set(1)
	d.NativeXDisplayScale.Set(1)
	d.ModCastingSpeed.Set(1)
	d.ModHaste.Set(1)
	d.HoverHeight.Set(1)
	d.ClearChanges()
	return d
}

func (d *UnitData) WriteCreate(w *bitpack.Writer, allowed *updatefield.BitMask, ctx *updatefield.ViewerContext) {
	w.WriteInt64(d.Health.ValueFor(allowed))
	w.WriteInt64(d.MaxHealth.ValueFor(allowed))
	w.WriteInt32(hookedInt(ctx, HookDisplayID, d.DisplayID, allowed))
	w.WriteUint32(hooked(ctx, HookNpcFlags, d.NpcFlags, allowed))
	w.WriteUint32(d.StateSpellVisualID.ValueFor(allowed))
	w.WriteUint32(d.StateAnimID.ValueFor(allowed))
	w.WriteUint32(d.StateAnimKitID.ValueFor(allowed))
	updatefield.WriteListCreate(w, d.StateWorldEffectIDs, listLengthBits, allowed, func(v uint32) { w.WriteUint32(v) })
	for _, f := range []*updatefield.Scalar[bitpack.ObjectGUID]{
		d.Charm, d.Summon, d.Critter, d.CharmedBy, d.SummonedBy, d.CreatedBy,
		d.DemonCreator, d.LookAtControllerTarget, d.Target, d.BattlePetCompanion,
	} {
		w.WritePackedGUID(f.ValueFor(allowed))
	}
	d.ChannelData.Get().WriteCreate(w)
	w.WriteUint8(d.Race.ValueFor(allowed))
	w.WriteUint8(d.ClassID.ValueFor(allowed))
	w.WriteUint8(d.PlayerClassID.ValueFor(allowed))
	w.WriteUint8(d.Sex.ValueFor(allowed))
	w.WriteUint8(d.DisplayPower.ValueFor(allowed))
	w.WriteUint32(d.OverrideDisplayPowerID.ValueFor(allowed))
	d.Power.Each(allowed, func(_ int, v int32) { w.WriteInt32(v) })
	d.MaxPower.Each(allowed, func(_ int, v int32) { w.WriteInt32(v) })
	d.PowerRegenFlatModifier.Each(allowed, func(_ int, v float32) { w.WriteFloat32(v) })
	w.WriteInt32(d.Level.ValueFor(allowed))
	w.WriteInt32(d.EffectiveLevel.ValueFor(allowed))
	w.WriteInt32(d.ContentTuningID.ValueFor(allowed))
	w.WriteInt32(d.ScalingLevelMin.ValueFor(allowed))
	w.WriteInt32(d.ScalingLevelMax.ValueFor(allowed))
	w.WriteInt32(hookedInt(ctx, HookFactionTemplate, d.FactionTemplate, allowed))
	d.VirtualItems.Each(allowed, func(_ int, v *VisibleItem) { v.WriteCreate(w) })
	w.WriteUint32(hooked(ctx, HookUnitFlags, d.Flags, allowed))
	w.WriteUint32(hooked(ctx, HookUnitFlags2, d.Flags2, allowed))
	w.WriteUint32(hooked(ctx, HookUnitFlags3, d.Flags3, allowed))
	w.WriteUint32(d.AuraState.ValueFor(allowed))
	d.AttackRoundBaseTime.Each(allowed, func(_ int, v uint32) { w.WriteUint32(v) })
	w.WriteUint32(d.RangedAttackRoundBaseTime.ValueFor(allowed))
	w.WriteFloat32(d.BoundingRadius.ValueFor(allowed))
	w.WriteFloat32(d.CombatReach.ValueFor(allowed))
	w.WriteFloat32(d.DisplayScale.ValueFor(allowed))
	w.WriteInt32(d.NativeDisplayID.ValueFor(allowed))
	w.WriteFloat32(d.NativeXDisplayScale.ValueFor(allowed))
	w.WriteInt32(d.MountDisplayID.ValueFor(allowed))
	w.WriteFloat32(d.MinDamage.ValueFor(allowed))
	w.WriteFloat32(d.MaxDamage.ValueFor(allowed))
	w.WriteFloat32(d.MinOffHandDamage.ValueFor(allowed))
	w.WriteFloat32(d.MaxOffHandDamage.ValueFor(allowed))
	w.WriteUint8(d.AnimTier.ValueFor(allowed))
	w.WriteUint32(d.PetNumber.ValueFor(allowed))
	w.WriteUint32(d.PetExperience.ValueFor(allowed))
	w.WriteUint32(d.PetNextLevelExperience.ValueFor(allowed))
	w.WriteFloat32(d.ModCastingSpeed.ValueFor(allowed))
	w.WriteFloat32(d.ModHaste.ValueFor(allowed))
	w.WriteInt32(d.CreatedBySpell.ValueFor(allowed))
	w.WriteInt32(d.EmoteState.ValueFor(allowed))
	d.Stats.Each(allowed, func(_ int, v int32) { w.WriteInt32(v) })
	d.StatPosBuff.Each(allowed, func(_ int, v int32) { w.WriteInt32(v) })
	d.StatNegBuff.Each(allowed, func(_ int, v int32) { w.WriteInt32(v) })
	d.Resistances.Each(allowed, func(_ int, v int32) { w.WriteInt32(v) })
	w.WriteInt32(d.BaseMana.ValueFor(allowed))
	w.WriteInt32(d.BaseHealth.ValueFor(allowed))
	w.WriteUint8(d.SheatheState.ValueFor(allowed))
	w.WriteUint8(d.PvpFlags.ValueFor(allowed))
	w.WriteUint8(d.PetFlags.ValueFor(allowed))
	w.WriteUint8(d.ShapeshiftForm.ValueFor(allowed))
	w.WriteInt32(d.AttackPower.ValueFor(allowed))
	w.WriteInt32(d.RangedAttackPower.ValueFor(allowed))
	w.WriteFloat32(d.MinRangedDamage.ValueFor(allowed))
	w.WriteFloat32(d.MaxRangedDamage.ValueFor(allowed))
	w.WriteFloat32(d.MaxHealthModifier.ValueFor(allowed))
	w.WriteFloat32(d.HoverHeight.ValueFor(allowed))
	w.WritePackedGUID(d.GuildGUID.ValueFor(allowed))
	w.WritePackedGUID(d.SkinningOwnerGUID.ValueFor(allowed))
	updatefield.WriteListCreate(w, d.PassiveSpells, listLengthBits, allowed, func(h PassiveSpellHistory) { h.write(w) })
	updatefield.WriteListCreate(w, d.WorldEffects, listLengthBits, allowed, func(v int32) { w.WriteInt32(v) })
	updatefield.WriteListCreate(w, d.ChannelObjects, listLengthBits, allowed, func(g bitpack.ObjectGUID) { w.WritePackedGUID(g) })
}

func (d *UnitData) WriteUpdate(w *bitpack.Writer, m *updatefield.BitMask, ctx *updatefield.ViewerContext) {
	updatefield.WriteMask(w, m)
	if d.StateWorldEffectIDs.Changed(m) {
		updatefield.WriteListUpdate(w, d.StateWorldEffectIDs, listLengthBits, false, func(v uint32, _ bool) { w.WriteUint32(v) })
	}
	if d.PassiveSpells.Changed(m) {
		updatefield.WriteListUpdate(w, d.PassiveSpells, listLengthBits, false, func(h PassiveSpellHistory, _ bool) { h.write(w) })
	}
	if d.WorldEffects.Changed(m) {
		updatefield.WriteListUpdate(w, d.WorldEffects, listLengthBits, false, func(v int32, _ bool) { w.WriteInt32(v) })
	}
	if d.ChannelObjects.Changed(m) {
		updatefield.WriteListUpdate(w, d.ChannelObjects, listLengthBits, false, func(g bitpack.ObjectGUID, _ bool) { w.WritePackedGUID(g) })
	}
	if d.Health.Changed(m) {
		w.WriteInt64(d.Health.Get())
	}
	if d.MaxHealth.Changed(m) {
		w.WriteInt64(d.MaxHealth.Get())
	}
	if d.DisplayID.Changed(m) {
		w.WriteInt32(int32(ctx.Rewrite(HookDisplayID, uint32(d.DisplayID.Get()))))
	}
	if d.NpcFlags.Changed(m) {
		w.WriteUint32(ctx.Rewrite(HookNpcFlags, d.NpcFlags.Get()))
	}
	for _, f := range []*updatefield.Scalar[uint32]{d.StateSpellVisualID, d.StateAnimID, d.StateAnimKitID} {
		if f.Changed(m) {
			w.WriteUint32(f.Get())
		}
	}
	for _, f := range []*updatefield.Scalar[bitpack.ObjectGUID]{
		d.Charm, d.Summon, d.Critter, d.CharmedBy, d.SummonedBy, d.CreatedBy,
		d.DemonCreator, d.LookAtControllerTarget, d.Target, d.BattlePetCompanion,
	} {
		if f.Changed(m) {
			w.WritePackedGUID(f.Get())
		}
	}
	if d.ChannelData.Changed(m) {
		d.ChannelData.Get().WriteUpdate(w, false)
	}
	for _, f := range []*updatefield.Scalar[uint8]{d.Race, d.ClassID, d.PlayerClassID, d.Sex, d.DisplayPower} {
		if f.Changed(m) {
			w.WriteUint8(f.Get())
		}
	}
	if d.OverrideDisplayPowerID.Changed(m) {
		w.WriteUint32(d.OverrideDisplayPowerID.Get())
	}
	for _, f := range []*updatefield.Scalar[int32]{d.Level, d.EffectiveLevel, d.ContentTuningID, d.ScalingLevelMin, d.ScalingLevelMax} {
		if f.Changed(m) {
			w.WriteInt32(f.Get())
		}
	}
	if d.FactionTemplate.Changed(m) {
		w.WriteInt32(int32(ctx.Rewrite(HookFactionTemplate, uint32(d.FactionTemplate.Get()))))
	}
	if d.Flags.Changed(m) {
		w.WriteUint32(ctx.Rewrite(HookUnitFlags, d.Flags.Get()))
	}
	if d.Flags2.Changed(m) {
		w.WriteUint32(ctx.Rewrite(HookUnitFlags2, d.Flags2.Get()))
	}
	if d.Flags3.Changed(m) {
		w.WriteUint32(ctx.Rewrite(HookUnitFlags3, d.Flags3.Get()))
	}
	for _, f := range []*updatefield.Scalar[uint32]{d.AuraState, d.RangedAttackRoundBaseTime} {
		if f.Changed(m) {
			w.WriteUint32(f.Get())
		}
	}
	for _, f := range []*updatefield.Scalar[float32]{d.BoundingRadius, d.CombatReach, d.DisplayScale} {
		if f.Changed(m) {
			w.WriteFloat32(f.Get())
		}
	}
	if d.NativeDisplayID.Changed(m) {
		w.WriteInt32(d.NativeDisplayID.Get())
	}
	if d.NativeXDisplayScale.Changed(m) {
		w.WriteFloat32(d.NativeXDisplayScale.Get())
	}
	if d.MountDisplayID.Changed(m) {
		w.WriteInt32(d.MountDisplayID.Get())
	}
	for _, f := range []*updatefield.Scalar[float32]{d.MinDamage, d.MaxDamage, d.MinOffHandDamage, d.MaxOffHandDamage} {
		if f.Changed(m) {
			w.WriteFloat32(f.Get())
		}
	}
	if d.AnimTier.Changed(m) {
		w.WriteUint8(d.AnimTier.Get())
	}
	for _, f := range []*updatefield.Scalar[uint32]{d.PetNumber, d.PetExperience, d.PetNextLevelExperience} {
		if f.Changed(m) {
			w.WriteUint32(f.Get())
		}
	}
	for _, f := range []*updatefield.Scalar[float32]{d.ModCastingSpeed, d.ModHaste} {
		if f.Changed(m) {
			w.WriteFloat32(f.Get())
		}
	}
	for _, f := range []*updatefield.Scalar[int32]{d.CreatedBySpell, d.EmoteState, d.BaseMana, d.BaseHealth} {
		if f.Changed(m) {
			w.WriteInt32(f.Get())
		}
	}
	for _, f := range []*updatefield.Scalar[uint8]{d.SheatheState, d.PvpFlags, d.PetFlags, d.ShapeshiftForm} {
		if f.Changed(m) {
			w.WriteUint8(f.Get())
		}
	}
	for _, f := range []*updatefield.Scalar[int32]{d.AttackPower, d.RangedAttackPower} {
		if f.Changed(m) {
			w.WriteInt32(f.Get())
		}
	}
	for _, f := range []*updatefield.Scalar[float32]{d.MinRangedDamage, d.MaxRangedDamage, d.MaxHealthModifier, d.HoverHeight} {
		if f.Changed(m) {
			w.WriteFloat32(f.Get())
		}
	}
	for _, f := range []*updatefield.Scalar[bitpack.ObjectGUID]{d.GuildGUID, d.SkinningOwnerGUID} {
		if f.Changed(m) {
			w.WritePackedGUID(f.Get())
		}
	}
	d.Power.EachChanged(m, func(_ int, v int32) { w.WriteInt32(v) })
	d.MaxPower.EachChanged(m, func(_ int, v int32) { w.WriteInt32(v) })
	d.PowerRegenFlatModifier.EachChanged(m, func(_ int, v float32) { w.WriteFloat32(v) })
	d.VirtualItems.EachChanged(m, func(_ int, v *VisibleItem) { v.WriteUpdate(w, false) })
	d.AttackRoundBaseTime.EachChanged(m, func(_ int, v uint32) { w.WriteUint32(v) })
	d.Stats.EachChanged(m, func(_ int, v int32) { w.WriteInt32(v) })
	d.StatPosBuff.EachChanged(m, func(_ int, v int32) { w.WriteInt32(v) })
	d.StatNegBuff.EachChanged(m, func(_ int, v int32) { w.WriteInt32(v) })
	d.Resistances.EachChanged(m, func(_ int, v int32) { w.WriteInt32(v) })
}
