package updatefield

import "fmt"

// FixedArray is an array whose length is fixed by the schema. The array
// owns a parent bit plus one bit per element; changing element i sets both.
type FixedArray[T any] struct {
	rec    *Record
	gate   int
	parent int
	first  int
	values []T
	nested bool
}

// NewFixedArray creates a zero-valued array at slot.
func NewFixedArray[T any](s ArraySlot) *FixedArray[T] {
	a := &FixedArray[T]{
		rec:    s.rec,
		gate:   s.gate,
		parent: s.parent,
		first:  s.first,
		values: make([]T, s.count),
		nested: holdsNested[T](),
	}
	if a.nested {
		s.rec.adopt(a)
	}
	return a
}

// NewFixedArrayOf creates an array whose elements are built by newElem.
// Record elements are linked so their changes mark their element bit.
func NewFixedArrayOf[T any](s ArraySlot, newElem func(i int) T) *FixedArray[T] {
	a := NewFixedArray[T](s)
	for i := range a.values {
		a.values[i] = newElem(i)
		a.bind(i)
	}
	return a
}

func (a *FixedArray[T]) bind(i int) {
	if rec, ok := nestedOf(any(a.values[i])); ok {
		rec.SetNotify(func() { a.Mark(i) })
	}
}

func (a *FixedArray[T]) check(i int) {
	if i < 0 || i >= len(a.values) {
		panic(fmt.Sprintf("updatefield: array index %d out of range [0,%d)", i, len(a.values)))
	}
}

// Len returns the fixed element count.
func (a *FixedArray[T]) Len() int { return len(a.values) }

// Get returns element i.
func (a *FixedArray[T]) Get(i int) T {
	a.check(i)
	return a.values[i]
}

// Set stores v at i and marks the element changed.
func (a *FixedArray[T]) Set(i int, v T) {
	a.check(i)
	if rec, ok := nestedOf(any(a.values[i])); ok {
		rec.SetNotify(nil)
	}
	a.values[i] = v
	a.bind(i)
	if rec, ok := nestedOf(any(v)); ok {
		rec.MarkAll()
	}
	a.Mark(i)
}

// Mark flags element i changed.
func (a *FixedArray[T]) Mark(i int) {
	a.check(i)
	a.rec.touch(a.gate, a.parent, a.first+i)
}

func (a *FixedArray[T]) ParentBit() int { return a.parent }

// ElementBit returns the mask bit of element i.
func (a *FixedArray[T]) ElementBit(i int) int {
	a.check(i)
	return a.first + i
}

// Changed reports whether any element is selected by m.
func (a *FixedArray[T]) Changed(m *BitMask) bool {
	return (a.gate < 0 || m.Get(a.gate)) && m.Get(a.parent)
}

// ElementChanged reports whether element i is selected by m.
func (a *FixedArray[T]) ElementChanged(m *BitMask, i int) bool {
	return m.Get(a.ElementBit(i))
}

// Select sets the bits of the whole array in m.
func (a *FixedArray[T]) Select(m *BitMask) {
	if a.gate >= 0 {
		m.Set(a.gate)
	}
	m.Set(a.parent)
	m.SetRange(a.first, a.first+len(a.values))
}

// Each calls fn for every element in order. Elements outside allowed are
// passed as zero values; a nil allowed mask permits everything. Record
// elements are always passed through, since a nil record cannot be written.
func (a *FixedArray[T]) Each(allowed *BitMask, fn func(i int, v T)) {
	visible := allowed == nil || allowed.Get(a.parent) || a.nested
	var zero T
	for i, v := range a.values {
		if visible {
			fn(i, v)
		} else {
			fn(i, zero)
		}
	}
}

// EachChanged calls fn for every element selected by m.
func (a *FixedArray[T]) EachChanged(m *BitMask, fn func(i int, v T)) {
	if !a.Changed(m) {
		return
	}
	for i, v := range a.values {
		if m.Get(a.first + i) {
			fn(i, v)
		}
	}
}

func (a *FixedArray[T]) clearChanges() {
	for _, v := range a.values {
		if rec, ok := nestedOf(any(v)); ok {
			rec.ClearChanges()
		}
	}
}

func (a *FixedArray[T]) markAll() {
	for _, v := range a.values {
		if rec, ok := nestedOf(any(v)); ok {
			rec.MarkAll()
		}
	}
}
