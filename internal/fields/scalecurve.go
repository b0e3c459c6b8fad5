package fields

import (
	"github.com/go-gl/mathgl/mgl32"

	"fieldsync/internal/bitpack"
	"fieldsync/internal/updatefield"
)

var scaleCurveSchema = updatefield.NewSchema("ScaleCurve", 7)

// ScaleCurve drives a time-based scale of an area trigger.
type ScaleCurve struct {
	updatefield.Record
	OverrideActive  *updatefield.Scalar[bool]
	StartTimeOffset *updatefield.Scalar[uint32]
	ParameterCurve  *updatefield.Scalar[uint32]
	Points          *updatefield.FixedArray[mgl32.Vec2]
}

func NewScaleCurve() *ScaleCurve {
	c := &ScaleCurve{}
	l := scaleCurveSchema.Begin(&c.Record)
	g := l.Group()
	c.OverrideActive = updatefield.NewScalar[bool](l.Field(g))
	c.StartTimeOffset = updatefield.NewScalar[uint32](l.Field(g))
	c.ParameterCurve = updatefield.NewScalar[uint32](l.Field(g))
	c.Points = updatefield.NewFixedArray[mgl32.Vec2](l.Array(-1, 2))
	l.End()
	return c
}

func (c *ScaleCurve) WriteCreate(w *bitpack.Writer) {
	w.WriteUint32(c.StartTimeOffset.Get())
	c.Points.Each(nil, func(_ int, p mgl32.Vec2) { writeVec2(w, p) })
	w.WriteUint32(c.ParameterCurve.Get())
	w.WriteBit(c.OverrideActive.Get())
	w.FlushBits()
}

func (c *ScaleCurve) WriteUpdate(w *bitpack.Writer, forceFull bool) {
	m := updatefield.Effective(scaleCurveSchema, c.Mask(), forceFull)
	updatefield.WriteMask(w, m)
	if c.OverrideActive.Changed(m) {
		w.WriteBit(c.OverrideActive.Get())
	}
	w.FlushBits()
	if c.StartTimeOffset.Changed(m) {
		w.WriteUint32(c.StartTimeOffset.Get())
	}
	if c.ParameterCurve.Changed(m) {
		w.WriteUint32(c.ParameterCurve.Get())
	}
	c.Points.EachChanged(m, func(_ int, p mgl32.Vec2) { writeVec2(w, p) })
}

// ScaleCurveSnapshot is the receiver-side view of a ScaleCurve.
type ScaleCurveSnapshot struct {
	OverrideActive  bool
	StartTimeOffset uint32
	ParameterCurve  uint32
	Points          [2]mgl32.Vec2
}

// ReadScaleCurveCreate decodes a ScaleCurve snapshot.
func ReadScaleCurveCreate(r *bitpack.Reader) ScaleCurveSnapshot {
	var s ScaleCurveSnapshot
	s.StartTimeOffset = r.ReadUint32()
	for i := range s.Points {
		s.Points[i] = readVec2(r)
	}
	s.ParameterCurve = r.ReadUint32()
	s.OverrideActive = r.ReadBit()
	r.ResetBitPos()
	return s
}

// ApplyUpdate decodes a ScaleCurve diff on top of s.
func (s *ScaleCurveSnapshot) ApplyUpdate(r *bitpack.Reader) {
	m := updatefield.ReadMask(r, scaleCurveSchema.Bits())
	if m.Get(0) && m.Get(1) {
		s.OverrideActive = r.ReadBit()
	}
	r.ResetBitPos()
	if m.Get(0) && m.Get(2) {
		s.StartTimeOffset = r.ReadUint32()
	}
	if m.Get(0) && m.Get(3) {
		s.ParameterCurve = r.ReadUint32()
	}
	if m.Get(4) {
		for i := range s.Points {
			if m.Get(5 + i) {
				s.Points[i] = readVec2(r)
			}
		}
	}
}
