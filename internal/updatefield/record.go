package updatefield

import (
	"fmt"
	"reflect"
)

// Nested is implemented by every record through its embedded Record, so a
// record can be stored inside a container of another record.
type Nested interface {
	UpdateRecord() *Record
}

// child is a container that may hold nested records.
type child interface {
	clearChanges()
	markAll()
}

// Record is the dirty-tracking base embedded in every concrete schema.
type Record struct {
	schema   *Schema
	mask     *BitMask
	notify   func()
	children []child
}

// UpdateRecord returns r. It makes every record satisfy Nested.
func (r *Record) UpdateRecord() *Record { return r }

// Schema returns the record's schema.
func (r *Record) Schema() *Schema { return r.schema }

// Mask returns the live changes mask. Serializers read it; only containers
// and ClearChanges write it.
func (r *Record) Mask() *BitMask { return r.mask }

// IsChanged reports whether any field changed since the last clear.
func (r *Record) IsChanged() bool { return r.mask.IsAnySet() }

// SetNotify installs the callback run after every change. The holder uses
// it for top-level records; containers use it to link nested records to
// their parent.
func (r *Record) SetNotify(fn func()) { r.notify = fn }

// ClearChanges resets this record's mask and the masks of every nested
// record it holds.
func (r *Record) ClearChanges() {
	r.mask.ResetAll()
	for _, c := range r.children {
		c.clearChanges()
	}
}

// MarkAll flags every field, recursively, as changed without notifying
// the parent. It is used when a record is first placed where an observer
// must receive it in full.
func (r *Record) MarkAll() {
	r.mask.SetAll()
	for _, c := range r.children {
		c.markAll()
	}
}

// touch sets the given bits (negative values are skipped) and propagates.
// Marking a record whose layout has not ended is a schema defect.
func (r *Record) touch(gate, bit, extra int) {
	if r.mask == nil {
		panic(fmt.Sprintf("updatefield: field bit %d changed before its layout ended", bit))
	}
	if gate >= 0 {
		r.mask.Set(gate)
	}
	r.mask.Set(bit)
	if extra >= 0 {
		r.mask.Set(extra)
	}
	if r.notify != nil {
		r.notify()
	}
}

func (r *Record) adopt(c child) {
	r.children = append(r.children, c)
}

func nestedOf(v any) (*Record, bool) {
	n, ok := v.(Nested)
	if !ok {
		return nil, false
	}
	if rv := reflect.ValueOf(n); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, false
	}
	return n.UpdateRecord(), true
}

// holdsNested reports whether values of T can carry their own dirty state.
func holdsNested[T any]() bool {
	var zero T
	_, ok := any(zero).(Nested)
	return ok
}
