package fields

import (
	"fieldsync/internal/bitpack"
	"fieldsync/internal/updatefield"
)

var objectDataSchema = updatefield.NewSchema("ObjectData", 4)

// ObjectData is carried by every entity.
type ObjectData struct {
	updatefield.Record
	EntryID      *updatefield.Scalar[int32]
	DynamicFlags *updatefield.Scalar[uint32]
	Scale        *updatefield.Scalar[float32]
}

func NewObjectData() *ObjectData {
	d := &ObjectData{}
	l := objectDataSchema.Begin(&d.Record)
	g := l.Group()
	d.EntryID = updatefield.NewScalar[int32](l.Field(g))
	d.DynamicFlags = updatefield.NewScalar[uint32](l.Field(g))
	d.Scale = updatefield.NewScalar[float32](l.Field(g))
	l.End()
	d.Scale.Set(1)
	d.ClearChanges()
	return d
}

func (d *ObjectData) WriteCreate(w *bitpack.Writer, allowed *updatefield.BitMask, ctx *updatefield.ViewerContext) {
	w.WriteInt32(d.EntryID.ValueFor(allowed))
	w.WriteUint32(hooked(ctx, HookObjectDynamicFlags, d.DynamicFlags, allowed))
	w.WriteFloat32(d.Scale.ValueFor(allowed))
}

func (d *ObjectData) WriteUpdate(w *bitpack.Writer, mask *updatefield.BitMask, ctx *updatefield.ViewerContext) {
	updatefield.WriteMask(w, mask)
	if d.EntryID.Changed(mask) {
		w.WriteInt32(d.EntryID.Get())
	}
	if d.DynamicFlags.Changed(mask) {
		w.WriteUint32(ctx.Rewrite(HookObjectDynamicFlags, d.DynamicFlags.Get()))
	}
	if d.Scale.Changed(mask) {
		w.WriteFloat32(d.Scale.Get())
	}
}

// ObjectSnapshot is the receiver-side view of ObjectData.
type ObjectSnapshot struct {
	EntryID      int32
	DynamicFlags uint32
	Scale        float32
}

// ReadObjectCreate decodes an ObjectData snapshot.
func ReadObjectCreate(r *bitpack.Reader) ObjectSnapshot {
	return ObjectSnapshot{
		EntryID:      r.ReadInt32(),
		DynamicFlags: r.ReadUint32(),
		Scale:        r.ReadFloat32(),
	}
}

// ApplyUpdate decodes an ObjectData diff on top of s.
func (s *ObjectSnapshot) ApplyUpdate(r *bitpack.Reader) {
	m := updatefield.ReadMask(r, objectDataSchema.Bits())
	if !m.Get(0) {
		return
	}
	if m.Get(1) {
		s.EntryID = r.ReadInt32()
	}
	if m.Get(2) {
		s.DynamicFlags = r.ReadUint32()
	}
	if m.Get(3) {
		s.Scale = r.ReadFloat32()
	}
}
