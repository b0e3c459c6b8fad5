package updatefield

import "fmt"

// DynamicList is a variable-length field. It owns a mask with one bit per
// element, resized in lock-step with the list. The wire format addresses
// elements by position, so any insert or remove re-marks every element
// whose position moved.
type DynamicList[T any] struct {
	rec     *Record
	gate    int
	bit     int
	values  []T
	mask    *BitMask
	nested  bool
	newElem func() T
}

// NewDynamicList creates an empty list at slot.
func NewDynamicList[T any](s Slot) *DynamicList[T] {
	l := &DynamicList[T]{
		rec:    s.rec,
		gate:   s.gate,
		bit:    s.bit,
		mask:   NewBitMask(0),
		nested: holdsNested[T](),
	}
	s.rec.adopt(l)
	return l
}

// NewDynamicListOf creates an empty list of records. newElem builds the
// elements created when Set grows the list.
func NewDynamicListOf[T any](s Slot, newElem func() T) *DynamicList[T] {
	l := NewDynamicList[T](s)
	l.newElem = newElem
	return l
}

func (l *DynamicList[T]) check(i int) {
	if i < 0 || i >= len(l.values) {
		panic(fmt.Sprintf("updatefield: list index %d out of range [0,%d)", i, len(l.values)))
	}
}

func (l *DynamicList[T]) bind(i int) {
	if rec, ok := nestedOf(any(l.values[i])); ok {
		rec.SetNotify(func() { l.MarkChanged(i) })
	}
}

func (l *DynamicList[T]) unbind(v T) {
	if rec, ok := nestedOf(any(v)); ok {
		rec.SetNotify(nil)
	}
}

// refresh marks [from, len) changed, re-links record elements to their
// new positions and forces them to be sent in full.
func (l *DynamicList[T]) refresh(from int) {
	l.mask.Resize(len(l.values))
	for i := from; i < len(l.values); i++ {
		l.mask.Set(i)
		if l.nested {
			l.bind(i)
			if rec, ok := nestedOf(any(l.values[i])); ok {
				rec.MarkAll()
			}
		}
	}
	l.rec.touch(l.gate, l.bit, -1)
}

// Size returns the element count.
func (l *DynamicList[T]) Size() int { return len(l.values) }

// Get returns element i.
func (l *DynamicList[T]) Get(i int) T {
	l.check(i)
	return l.values[i]
}

// Values returns the elements. The slice must not be modified.
func (l *DynamicList[T]) Values() []T { return l.values }

// IndexFunc returns the index of the first element satisfying fn, or -1.
func (l *DynamicList[T]) IndexFunc(fn func(T) bool) int {
	for i, v := range l.values {
		if fn(v) {
			return i
		}
	}
	return -1
}

// Set stores v at i, growing the list when i is past the end. Elements
// created by growth are marked changed with it.
func (l *DynamicList[T]) Set(i int, v T) {
	if i < 0 {
		panic(fmt.Sprintf("updatefield: negative list index %d", i))
	}
	if i >= len(l.values) {
		from := len(l.values)
		for len(l.values) < i {
			l.values = append(l.values, l.zero())
		}
		l.values = append(l.values, v)
		l.refresh(from)
		return
	}
	l.unbind(l.values[i])
	l.values[i] = v
	if l.nested {
		l.bind(i)
		if rec, ok := nestedOf(any(v)); ok {
			rec.MarkAll()
		}
	}
	l.MarkChanged(i)
}

func (l *DynamicList[T]) zero() T {
	if l.nested {
		if l.newElem == nil {
			panic("updatefield: growing a record list needs an element constructor")
		}
		return l.newElem()
	}
	var zero T
	return zero
}

// Add appends v and returns its index. A record element is forced fully
// dirty: a freshly observed element must be transmitted completely.
func (l *DynamicList[T]) Add(v T) int {
	l.values = append(l.values, v)
	i := len(l.values) - 1
	l.refresh(i)
	return i
}

// Insert splices v in at i. Every position from i to the new end now
// refers to a different element and is re-marked.
func (l *DynamicList[T]) Insert(i int, v T) {
	if i < 0 || i > len(l.values) {
		panic(fmt.Sprintf("updatefield: insert index %d out of range [0,%d]", i, len(l.values)))
	}
	var zero T
	l.values = append(l.values, zero)
	copy(l.values[i+1:], l.values[i:])
	l.values[i] = v
	l.refresh(i)
}

// Remove splices out element i. Later elements shift down and are
// re-marked; the mask shrinks with the list, dropping the bit that was
// one past the new end.
func (l *DynamicList[T]) Remove(i int) {
	l.check(i)
	l.unbind(l.values[i])
	copy(l.values[i:], l.values[i+1:])
	var zero T
	l.values[len(l.values)-1] = zero
	l.values = l.values[:len(l.values)-1]
	l.refresh(i)
}

// Clear removes every element.
func (l *DynamicList[T]) Clear() {
	for _, v := range l.values {
		l.unbind(v)
	}
	clear(l.values)
	l.values = l.values[:0]
	l.refresh(0)
}

// HasChanged reports whether element i is dirty.
func (l *DynamicList[T]) HasChanged(i int) bool {
	l.check(i)
	return l.mask.Get(i)
}

// MarkChanged flags element i dirty and marks the list field.
func (l *DynamicList[T]) MarkChanged(i int) {
	l.check(i)
	l.mask.Set(i)
	l.rec.touch(l.gate, l.bit, -1)
}

// ElementMask returns the per-element dirty mask.
func (l *DynamicList[T]) ElementMask() *BitMask { return l.mask }

func (l *DynamicList[T]) Bit() int { return l.bit }

// Changed reports whether the list field is selected by m.
func (l *DynamicList[T]) Changed(m *BitMask) bool {
	return (l.gate < 0 || m.Get(l.gate)) && m.Get(l.bit)
}

// ValuesFor returns the elements when allowed permits the field and an
// empty list otherwise.
func (l *DynamicList[T]) ValuesFor(allowed *BitMask) []T {
	if allowed != nil && !allowed.Get(l.bit) {
		return nil
	}
	return l.values
}

func (l *DynamicList[T]) checkSync() {
	if l.mask.BitCount() != len(l.values) {
		panic(fmt.Sprintf("updatefield: list of %d elements tracked by a %d-bit mask",
			len(l.values), l.mask.BitCount()))
	}
}

// ClearChanges resets the element mask and nested element state.
func (l *DynamicList[T]) ClearChanges() {
	l.mask.ResetAll()
	for _, v := range l.values {
		if rec, ok := nestedOf(any(v)); ok {
			rec.ClearChanges()
		}
	}
}

func (l *DynamicList[T]) clearChanges() { l.ClearChanges() }

func (l *DynamicList[T]) markAll() {
	l.mask.SetAll()
	for _, v := range l.values {
		if rec, ok := nestedOf(any(v)); ok {
			rec.MarkAll()
		}
	}
}
