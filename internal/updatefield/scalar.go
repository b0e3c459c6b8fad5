package updatefield

// Scalar is a single typed field. The owning record tracks its dirty bit;
// Scalar is the typed accessor that marks it.
type Scalar[T any] struct {
	rec    *Record
	gate   int
	bit    int
	value  T
	nested bool
}

// NewScalar creates a zero-valued field at slot.
func NewScalar[T any](s Slot) *Scalar[T] {
	f := &Scalar[T]{rec: s.rec, gate: s.gate, bit: s.bit, nested: holdsNested[T]()}
	if f.nested {
		s.rec.adopt(f)
	}
	return f
}

// NewScalarOf creates a field holding v. Records stored this way are linked
// to the parent so their changes mark this field.
func NewScalarOf[T any](s Slot, v T) *Scalar[T] {
	f := NewScalar[T](s)
	f.value = v
	f.bind()
	return f
}

func (f *Scalar[T]) bind() {
	if rec, ok := nestedOf(any(f.value)); ok {
		rec.SetNotify(f.Mark)
	}
}

// Get returns the stored value.
func (f *Scalar[T]) Get() T { return f.value }

// Set stores v and marks the field changed.
func (f *Scalar[T]) Set(v T) {
	if f.nested {
		if rec, ok := nestedOf(any(f.value)); ok {
			rec.SetNotify(nil)
		}
	}
	f.value = v
	f.bind()
	if rec, ok := nestedOf(any(v)); ok {
		rec.MarkAll()
	}
	f.Mark()
}

// Mark flags the field changed without touching the value.
func (f *Scalar[T]) Mark() { f.rec.touch(f.gate, f.bit, -1) }

func (f *Scalar[T]) Bit() int  { return f.bit }
func (f *Scalar[T]) Gate() int { return f.gate }

// Changed reports whether the field is selected by mask m, honouring its
// gate bit.
func (f *Scalar[T]) Changed(m *BitMask) bool {
	return (f.gate < 0 || m.Get(f.gate)) && m.Get(f.bit)
}

// Select sets the field's bits in m, so a caller can build a mask naming
// specific fields.
func (f *Scalar[T]) Select(m *BitMask) {
	if f.gate >= 0 {
		m.Set(f.gate)
	}
	m.Set(f.bit)
}

// ValueFor returns the value when allowed permits the field, and the zero
// value otherwise. A nil allowed mask permits everything.
func (f *Scalar[T]) ValueFor(allowed *BitMask) T {
	if allowed != nil && !allowed.Get(f.bit) {
		var zero T
		return zero
	}
	return f.value
}

func (f *Scalar[T]) clearChanges() {
	if rec, ok := nestedOf(any(f.value)); ok {
		rec.ClearChanges()
	}
}

func (f *Scalar[T]) markAll() {
	if rec, ok := nestedOf(any(f.value)); ok {
		rec.MarkAll()
	}
}

// Optional is a field that may be absent. Presence is part of what gets
// serialized, so removing the value is itself a change.
type Optional[T any] struct {
	rec    *Record
	gate   int
	bit    int
	value  T
	has    bool
	nested bool
}

// NewOptional creates an absent optional field at slot.
func NewOptional[T any](s Slot) *Optional[T] {
	f := &Optional[T]{rec: s.rec, gate: s.gate, bit: s.bit, nested: holdsNested[T]()}
	if f.nested {
		s.rec.adopt(f)
	}
	return f
}

// Get returns the value and whether it is present.
func (f *Optional[T]) Get() (T, bool) { return f.value, f.has }

// Value returns the value, or the zero value when absent.
func (f *Optional[T]) Value() T { return f.value }

// Has reports whether a value is present.
func (f *Optional[T]) Has() bool { return f.has }

// Set stores v, making the field present.
func (f *Optional[T]) Set(v T) {
	f.unbind()
	f.value, f.has = v, true
	if rec, ok := nestedOf(any(v)); ok {
		rec.SetNotify(f.Mark)
		rec.MarkAll()
	}
	f.Mark()
}

// Reset removes the value. Resetting an absent field is a no-op.
func (f *Optional[T]) Reset() {
	if !f.has {
		return
	}
	f.unbind()
	var zero T
	f.value, f.has = zero, false
	f.Mark()
}

func (f *Optional[T]) unbind() {
	if rec, ok := nestedOf(any(f.value)); ok && f.has {
		rec.SetNotify(nil)
	}
}

// Mark flags the field changed.
func (f *Optional[T]) Mark() { f.rec.touch(f.gate, f.bit, -1) }

func (f *Optional[T]) Bit() int { return f.bit }

// Changed reports whether the field is selected by m.
func (f *Optional[T]) Changed(m *BitMask) bool {
	return (f.gate < 0 || m.Get(f.gate)) && m.Get(f.bit)
}

// Select sets the field's bits in m.
func (f *Optional[T]) Select(m *BitMask) {
	if f.gate >= 0 {
		m.Set(f.gate)
	}
	m.Set(f.bit)
}

// VisibleFor reports presence as seen through allowed.
func (f *Optional[T]) VisibleFor(allowed *BitMask) bool {
	return f.has && (allowed == nil || allowed.Get(f.bit))
}

func (f *Optional[T]) clearChanges() {
	if rec, ok := nestedOf(any(f.value)); ok && f.has {
		rec.ClearChanges()
	}
}

func (f *Optional[T]) markAll() {
	if rec, ok := nestedOf(any(f.value)); ok && f.has {
		rec.MarkAll()
	}
}
