package fields

import (
	"github.com/go-gl/mathgl/mgl32"

	"fieldsync/internal/bitpack"
	"fieldsync/internal/updatefield"
)

var (
	visualAnimSchema      = updatefield.NewSchema("VisualAnim", 5)
	areaTriggerDataSchema = updatefield.NewSchema("AreaTriggerData", 24)
	sceneObjectDataSchema = updatefield.NewSchema("SceneObjectData", 5)
)

type VisualAnim struct {
	updatefield.Record
	IsDecay         *updatefield.Scalar[bool]
	AnimationDataID *updatefield.Scalar[int32]
	AnimKitID       *updatefield.Scalar[uint32]
	AnimProgress    *updatefield.Scalar[uint32]
}

func NewVisualAnim() *VisualAnim {
	v := &VisualAnim{}
	l := visualAnimSchema.Begin(&v.Record)
	g := l.Group()
	v.IsDecay = updatefield.NewScalar[bool](l.Field(g))
	v.AnimationDataID = updatefield.NewScalar[int32](l.Field(g))
	v.AnimKitID = updatefield.NewScalar[uint32](l.Field(g))
	v.AnimProgress = updatefield.NewScalar[uint32](l.Field(g))
	l.End()
	return v
}

func (v *VisualAnim) WriteCreate(w *bitpack.Writer) {
	w.WriteInt32(v.AnimationDataID.Get())
	w.WriteUint32(v.AnimKitID.Get())
	w.WriteUint32(v.AnimProgress.Get())
	w.WriteBit(v.IsDecay.Get())
	w.FlushBits()
}

func (v *VisualAnim) WriteUpdate(w *bitpack.Writer, forceFull bool) {
	m := updatefield.Effective(visualAnimSchema, v.Mask(), forceFull)
	updatefield.WriteMask(w, m)
	if v.IsDecay.Changed(m) {
		w.WriteBit(v.IsDecay.Get())
	}
	w.FlushBits()
	writeChanged(m, w.WriteInt32, v.AnimationDataID)
	writeChanged(m, w.WriteUint32, v.AnimKitID, v.AnimProgress)
}

// AreaTriggerData is carried by spell area triggers.
type AreaTriggerData struct {
	updatefield.Record
	OverrideScaleCurve      *updatefield.Scalar[*ScaleCurve]
	ExtraScaleCurve         *updatefield.Scalar[*ScaleCurve]
	OverrideMoveCurveX      *updatefield.Scalar[*ScaleCurve]
	OverrideMoveCurveY      *updatefield.Scalar[*ScaleCurve]
	OverrideMoveCurveZ      *updatefield.Scalar[*ScaleCurve]
	Caster                  *updatefield.Scalar[bitpack.ObjectGUID]
	Duration                *updatefield.Scalar[uint32]
	TimeToTarget            *updatefield.Scalar[uint32]
	TimeToTargetScale       *updatefield.Scalar[uint32]
	TimeToTargetExtraScale  *updatefield.Scalar[uint32]
	TimeToTargetPos         *updatefield.Scalar[uint32]
	SpellID                 *updatefield.Scalar[int32]
	SpellForVisuals         *updatefield.Scalar[int32]
	SpellVisual             *updatefield.Scalar[*SpellCastVisual]
	BoundsRadius2D          *updatefield.Scalar[float32]
	DecalPropertiesID       *updatefield.Scalar[uint32]
	CreatingEffectGUID      *updatefield.Scalar[bitpack.ObjectGUID]
	OrbitPathTarget         *updatefield.Scalar[bitpack.ObjectGUID]
	RollPitchYaw            *updatefield.Scalar[mgl32.Vec3]
	PositionalSoundKitID    *updatefield.Scalar[int32]
	MovementStartTime       *updatefield.Scalar[uint32]
	CreatureVisualAnimStart *updatefield.Scalar[uint32]
	VisualAnim              *updatefield.Scalar[*VisualAnim]
}

func NewAreaTriggerData() *AreaTriggerData {
	d := &AreaTriggerData{}
	l := areaTriggerDataSchema.Begin(&d.Record)
	g := l.Group()
	d.OverrideScaleCurve = updatefield.NewScalarOf(l.Field(g), NewScaleCurve())
	d.ExtraScaleCurve = updatefield.NewScalarOf(l.Field(g), NewScaleCurve())
	d.OverrideMoveCurveX = updatefield.NewScalarOf(l.Field(g), NewScaleCurve())
	d.OverrideMoveCurveY = updatefield.NewScalarOf(l.Field(g), NewScaleCurve())
	d.OverrideMoveCurveZ = updatefield.NewScalarOf(l.Field(g), NewScaleCurve())
	d.Caster = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.Duration = updatefield.NewScalar[uint32](l.Field(g))
	d.TimeToTarget = updatefield.NewScalar[uint32](l.Field(g))
	d.TimeToTargetScale = updatefield.NewScalar[uint32](l.Field(g))
	d.TimeToTargetExtraScale = updatefield.NewScalar[uint32](l.Field(g))
	d.TimeToTargetPos = updatefield.NewScalar[uint32](l.Field(g))
	d.SpellID = updatefield.NewScalar[int32](l.Field(g))
	d.SpellForVisuals = updatefield.NewScalar[int32](l.Field(g))
	d.SpellVisual = updatefield.NewScalarOf(l.Field(g), NewSpellCastVisual())
	d.BoundsRadius2D = updatefield.NewScalar[float32](l.Field(g))
	d.DecalPropertiesID = updatefield.NewScalar[uint32](l.Field(g))
	d.CreatingEffectGUID = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.OrbitPathTarget = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.RollPitchYaw = updatefield.NewScalar[mgl32.Vec3](l.Field(g))
	d.PositionalSoundKitID = updatefield.NewScalar[int32](l.Field(g))
	d.MovementStartTime = updatefield.NewScalar[uint32](l.Field(g))
	d.CreatureVisualAnimStart = updatefield.NewScalar[uint32](l.Field(g))
	d.VisualAnim = updatefield.NewScalarOf(l.Field(g), NewVisualAnim())
	l.End()
	return d
}

func (d *AreaTriggerData) curves() []*updatefield.Scalar[*ScaleCurve] {
	return []*updatefield.Scalar[*ScaleCurve]{
		d.OverrideScaleCurve, d.ExtraScaleCurve, d.OverrideMoveCurveX, d.OverrideMoveCurveY, d.OverrideMoveCurveZ,
	}
}

func (d *AreaTriggerData) timers() []*updatefield.Scalar[uint32] {
	return []*updatefield.Scalar[uint32]{
		d.Duration, d.TimeToTarget, d.TimeToTargetScale, d.TimeToTargetExtraScale, d.TimeToTargetPos,
	}
}

func (d *AreaTriggerData) WriteCreate(w *bitpack.Writer, allowed *updatefield.BitMask, ctx *updatefield.ViewerContext) {
	for _, c := range d.curves() {
		c.Get().WriteCreate(w)
	}
	w.WritePackedGUID(d.Caster.ValueFor(allowed))
	writeEach(allowed, w.WriteUint32, d.timers()...)
	writeEach(allowed, w.WriteInt32, d.SpellID, d.SpellForVisuals)
	d.SpellVisual.Get().WriteCreate(w)
	w.WriteFloat32(d.BoundsRadius2D.ValueFor(allowed))
	w.WriteUint32(d.DecalPropertiesID.ValueFor(allowed))
	writeEach(allowed, w.WritePackedGUID, d.CreatingEffectGUID, d.OrbitPathTarget)
	writeVec3(w, d.RollPitchYaw.ValueFor(allowed))
	w.WriteInt32(d.PositionalSoundKitID.ValueFor(allowed))
	writeEach(allowed, w.WriteUint32, d.MovementStartTime, d.CreatureVisualAnimStart)
	d.VisualAnim.Get().WriteCreate(w)
}

func (d *AreaTriggerData) WriteUpdate(w *bitpack.Writer, m *updatefield.BitMask, ctx *updatefield.ViewerContext) {
	updatefield.WriteMask(w, m)
	for _, c := range d.curves() {
		if c.Changed(m) {
			c.Get().WriteUpdate(w, false)
		}
	}
	writeChanged(m, w.WritePackedGUID, d.Caster)
	writeChanged(m, w.WriteUint32, d.timers()...)
	writeChanged(m, w.WriteInt32, d.SpellID, d.SpellForVisuals)
	if d.SpellVisual.Changed(m) {
		d.SpellVisual.Get().WriteUpdate(w, false)
	}
	writeChanged(m, w.WriteFloat32, d.BoundsRadius2D)
	writeChanged(m, w.WriteUint32, d.DecalPropertiesID)
	writeChanged(m, w.WritePackedGUID, d.CreatingEffectGUID, d.OrbitPathTarget)
	if d.RollPitchYaw.Changed(m) {
		writeVec3(w, d.RollPitchYaw.Get())
	}
	writeChanged(m, w.WriteInt32, d.PositionalSoundKitID)
	writeChanged(m, w.WriteUint32, d.MovementStartTime, d.CreatureVisualAnimStart)
	if d.VisualAnim.Changed(m) {
		d.VisualAnim.Get().WriteUpdate(w, false)
	}
}

// SceneObjectData is carried by scripted client scenes.
type SceneObjectData struct {
	updatefield.Record
	ScriptPackageID *updatefield.Scalar[int32]
	RndSeedVal      *updatefield.Scalar[uint32]
	CreatedBy       *updatefield.Scalar[bitpack.ObjectGUID]
	SceneType       *updatefield.Scalar[uint32]
}

func NewSceneObjectData() *SceneObjectData {
	d := &SceneObjectData{}
	l := sceneObjectDataSchema.Begin(&d.Record)
	g := l.Group()
	d.ScriptPackageID = updatefield.NewScalar[int32](l.Field(g))
	d.RndSeedVal = updatefield.NewScalar[uint32](l.Field(g))
	d.CreatedBy = updatefield.NewScalar[bitpack.ObjectGUID](l.Field(g))
	d.SceneType = updatefield.NewScalar[uint32](l.Field(g))
	l.End()
	return d
}

func (d *SceneObjectData) WriteCreate(w *bitpack.Writer, allowed *updatefield.BitMask, ctx *updatefield.ViewerContext) {
	w.WriteInt32(d.ScriptPackageID.ValueFor(allowed))
	w.WriteUint32(d.RndSeedVal.ValueFor(allowed))
	w.WritePackedGUID(d.CreatedBy.ValueFor(allowed))
	w.WriteUint32(d.SceneType.ValueFor(allowed))
}

func (d *SceneObjectData) WriteUpdate(w *bitpack.Writer, m *updatefield.BitMask, ctx *updatefield.ViewerContext) {
	updatefield.WriteMask(w, m)
	writeChanged(m, w.WriteInt32, d.ScriptPackageID)
	writeChanged(m, w.WriteUint32, d.RndSeedVal)
	writeChanged(m, w.WritePackedGUID, d.CreatedBy)
	writeChanged(m, w.WriteUint32, d.SceneType)
}
