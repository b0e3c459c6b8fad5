package updatefield

import (
	"testing"

	"fieldsync/internal/bitpack"
)

var (
	elemSchema   = NewSchema("TestElement", 2)
	recordSchema = NewSchema("TestRecord", 4)
	groupSchema  = NewSchema("TestGrouped", 7)
)

type testElement struct {
	Record
	A *Scalar[int32]
	B *Scalar[uint8]
}

func newTestElement(a int32, b uint8) *testElement {
	e := &testElement{}
	l := elemSchema.Begin(&e.Record)
	e.A = NewScalar[int32](l.Field(-1))
	e.B = NewScalar[uint8](l.Field(-1))
	l.End()
	e.A.value, e.B.value = a, b
	return e
}

func (e *testElement) WriteCreate(w *bitpack.Writer) {
	w.WriteInt32(e.A.Get())
	w.WriteUint8(e.B.Get())
}

func (e *testElement) WriteUpdate(w *bitpack.Writer, mask *BitMask, forceFull bool) {
	m := Effective(elemSchema, mask, forceFull)
	WriteMask(w, m)
	if e.A.Changed(m) {
		w.WriteInt32(e.A.Get())
	}
	if e.B.Changed(m) {
		w.WriteUint8(e.B.Get())
	}
}

type testRecord struct {
	Record
	F0    *Scalar[int32]
	F1    *Scalar[int32]
	F2    *Scalar[int32]
	Items *DynamicList[*testElement]
}

func newTestRecord() *testRecord {
	r := &testRecord{}
	l := recordSchema.Begin(&r.Record)
	r.F0 = NewScalar[int32](l.Field(-1))
	r.F1 = NewScalar[int32](l.Field(-1))
	r.F2 = NewScalar[int32](l.Field(-1))
	r.Items = NewDynamicListOf(l.Field(-1), func() *testElement { return newTestElement(0, 0) })
	l.End()
	return r
}

func (r *testRecord) WriteCreate(w *bitpack.Writer) {
	w.WriteInt32(r.F0.Get())
	w.WriteInt32(r.F1.Get())
	w.WriteInt32(r.F2.Get())
	WriteListCreate(w, r.Items, 32, nil, func(e *testElement) { e.WriteCreate(w) })
}

func (r *testRecord) WriteUpdate(w *bitpack.Writer, mask *BitMask, forceFull bool) {
	m := Effective(recordSchema, mask, forceFull)
	WriteMask(w, m)
	for _, f := range []*Scalar[int32]{r.F0, r.F1, r.F2} {
		if f.Changed(m) {
			w.WriteInt32(f.Get())
		}
	}
	if r.Items.Changed(m) {
		WriteListUpdate(w, r.Items, 32, forceFull, func(e *testElement, forced bool) {
			e.WriteUpdate(w, e.Mask(), forced)
		})
	}
}

// mirror is what a receiver reconstructs from the wire.
type mirror struct {
	F     [3]int32
	Items [][2]int32
}

func (s *mirror) readCreate(r *bitpack.Reader) {
	for i := range s.F {
		s.F[i] = r.ReadInt32()
	}
	n := int(r.ReadBits(32))
	s.Items = make([][2]int32, n)
	for i := range s.Items {
		s.Items[i][0] = r.ReadInt32()
		s.Items[i][1] = int32(r.ReadUint8())
	}
}

func (s *mirror) applyUpdate(r *bitpack.Reader) {
	m := ReadMask(r, recordSchema.Bits())
	for i := range s.F {
		if m.Get(i) {
			s.F[i] = r.ReadInt32()
		}
	}
	if !m.Get(3) {
		return
	}
	em := ReadListMask(r, 32)
	items := make([][2]int32, em.BitCount())
	copy(items, s.Items)
	s.Items = items
	for i := range s.Items {
		if !em.Get(i) {
			continue
		}
		fm := ReadMask(r, elemSchema.Bits())
		if fm.Get(0) {
			s.Items[i][0] = r.ReadInt32()
		}
		if fm.Get(1) {
			s.Items[i][1] = int32(r.ReadUint8())
		}
	}
}

func (r *testRecord) state() mirror {
	var s mirror
	s.F = [3]int32{r.F0.Get(), r.F1.Get(), r.F2.Get()}
	for _, e := range r.Items.Values() {
		s.Items = append(s.Items, [2]int32{e.A.Get(), int32(e.B.Get())})
	}
	return s
}

func sameState(a, b mirror) bool {
	if a.F != b.F || len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Items {
		if a.Items[i] != b.Items[i] {
			return false
		}
	}
	return true
}

// TestUpdateExampleScenario checks the documented wire layout of one diff
func TestUpdateExampleScenario(t *testing.T) {
	rec := newTestRecord()
	rec.F1.Set(7)
	rec.Items.Add(newTestElement(11, 3))

	w := bitpack.NewWriter(32)
	rec.WriteUpdate(w, rec.Mask(), false)

	r := bitpack.NewReader(w.Bytes())
	if m := r.ReadBits(4); m != 0b1010 {
		t.Errorf("Expected dirty mask 0b1010, got %04b", m)
	}
	if v := r.ReadInt32(); v != 7 {
		t.Errorf("Expected field 1 = 7, got %d", v)
	}
	if n := r.ReadBits(32); n != 1 {
		t.Errorf("Expected list length 1, got %d", n)
	}
	if em := r.ReadBits(1); em != 0b1 {
		t.Errorf("Expected element mask 0b1, got %b", em)
	}
	if fm := r.ReadBits(2); fm != 0b11 {
		t.Errorf("New element must be fully dirty, got mask %02b", fm)
	}
	if a := r.ReadInt32(); a != 11 {
		t.Errorf("Expected element A = 11, got %d", a)
	}
	if b := r.ReadUint8(); b != 3 {
		t.Errorf("Expected element B = 3, got %d", b)
	}
	if r.Err() != nil || r.Remaining() != 0 {
		t.Errorf("Expected payload fully consumed, err=%v remaining=%d", r.Err(), r.Remaining())
	}
}

// TestCreateRoundTrip verifies a snapshot reproduces current values
func TestCreateRoundTrip(t *testing.T) {
	rec := newTestRecord()
	rec.F0.Set(-5)
	rec.F2.Set(99)
	rec.Items.Add(newTestElement(1, 2))
	rec.Items.Add(newTestElement(3, 4))
	rec.Items.Get(0).A.Set(10)

	w := bitpack.NewWriter(64)
	rec.WriteCreate(w)

	var got mirror
	got.readCreate(bitpack.NewReader(w.Bytes()))
	if !sameState(got, rec.state()) {
		t.Errorf("Expected %+v, got %+v", rec.state(), got)
	}
}

// TestDiffCorrectness applies mutation sets on top of a baseline snapshot
func TestDiffCorrectness(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *testRecord)
	}{
		{"scalar only", func(r *testRecord) { r.F0.Set(42) }},
		{"nested element field", func(r *testRecord) { r.Items.Get(1).B.Set(200) }},
		{"insert front", func(r *testRecord) { r.Items.Insert(0, newTestElement(77, 7)) }},
		{"remove middle", func(r *testRecord) { r.Items.Remove(1) }},
		{"remove last", func(r *testRecord) { r.Items.Remove(2) }},
		{"grow by set", func(r *testRecord) { r.Items.Set(5, newTestElement(5, 5)) }},
		{"clear list", func(r *testRecord) { r.Items.Clear() }},
		{"mixed", func(r *testRecord) {
			r.F2.Set(1)
			r.Items.Remove(0)
			r.Items.Get(0).A.Set(-1)
			r.Items.Add(newTestElement(9, 9))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newTestRecord()
			for i := int32(0); i < 3; i++ {
				rec.Items.Add(newTestElement(i, uint8(i)))
			}
			w := bitpack.NewWriter(64)
			rec.WriteCreate(w)
			var client mirror
			client.readCreate(bitpack.NewReader(w.Bytes()))
			rec.ClearChanges()

			tt.mutate(rec)

			w.Reset()
			rec.WriteUpdate(w, rec.Mask(), false)
			r := bitpack.NewReader(w.Bytes())
			client.applyUpdate(r)
			if r.Err() != nil {
				t.Fatalf("Decode error: %v", r.Err())
			}
			if !sameState(client, rec.state()) {
				t.Errorf("Expected %+v, got %+v", rec.state(), client)
			}
		})
	}
}

// TestForceFullUpdate verifies forced updates carry every field
func TestForceFullUpdate(t *testing.T) {
	rec := newTestRecord()
	rec.F0.Set(1)
	rec.F1.Set(2)
	rec.Items.Add(newTestElement(3, 4))
	rec.ClearChanges()

	w := bitpack.NewWriter(64)
	rec.WriteUpdate(w, rec.Mask(), true)

	var client mirror
	client.Items = make([][2]int32, 0)
	client.applyUpdate(bitpack.NewReader(w.Bytes()))
	if !sameState(client, rec.state()) {
		t.Errorf("Expected %+v, got %+v", rec.state(), client)
	}
}

// TestClearIdempotence verifies a clear leaves nothing to send
func TestClearIdempotence(t *testing.T) {
	rec := newTestRecord()
	rec.F0.Set(1)
	rec.Items.Add(newTestElement(1, 1))
	rec.ClearChanges()
	rec.ClearChanges()

	if rec.Mask().IsAnySet() {
		t.Error("Mask should be empty after ClearChanges")
	}
	if rec.Items.ElementMask().IsAnySet() {
		t.Error("List element mask should be empty after ClearChanges")
	}
	if rec.Items.Get(0).IsChanged() {
		t.Error("Nested element should be clean after ClearChanges")
	}

	w := bitpack.NewWriter(8)
	rec.WriteUpdate(w, rec.Mask(), false)
	if w.Len() != 1 || w.Bytes()[0] != 0 {
		t.Errorf("Expected a single all-zero mask byte, got %v", w.Bytes())
	}
}

// TestNestedChangePropagates verifies element edits mark the list and record
func TestNestedChangePropagates(t *testing.T) {
	rec := newTestRecord()
	rec.Items.Add(newTestElement(0, 0))
	rec.Items.Add(newTestElement(0, 0))
	rec.ClearChanges()

	notified := 0
	rec.SetNotify(func() { notified++ })

	rec.Items.Get(1).A.Set(5)
	if !rec.Items.HasChanged(1) || rec.Items.HasChanged(0) {
		t.Error("Only element 1 should be dirty")
	}
	if !rec.Mask().Get(rec.Items.Bit()) {
		t.Error("List bit should be set in the parent mask")
	}
	if notified == 0 {
		t.Error("Parent notify hook should run")
	}
}

// TestLayoutDeclaredCountMismatch verifies the bit count is enforced
func TestLayoutDeclaredCountMismatch(t *testing.T) {
	s := NewSchema("Broken", 3)
	expectPanic(t, "too few bits", func() {
		var r Record
		l := s.Begin(&r)
		l.Field(-1)
		l.End()
	})
	expectPanic(t, "undeclared gate", func() {
		var r Record
		l := NewSchema("BadGate", 2).Begin(&r)
		l.Field(5)
	})
}

type grouped struct {
	Record
	Level *Scalar[int32]
	Power *FixedArray[int32]
	Gold  *Optional[uint64]
}

func newGrouped() *grouped {
	g := &grouped{}
	l := groupSchema.Begin(&g.Record)
	gate := l.Group()
	g.Level = NewScalar[int32](l.Field(gate))
	g.Power = NewFixedArray[int32](l.ArrayFor(gate, 3, VisibleOwner))
	g.Gold = NewOptional[uint64](l.FieldFor(-1, VisibleOwner|VisiblePartyMember))
	l.End()
	return g
}

// TestGroupAndArrayBits verifies gate and array parent marking
func TestGroupAndArrayBits(t *testing.T) {
	g := newGrouped()
	g.Power.Set(2, 50)

	m := g.Mask()
	if !m.Get(0) {
		t.Error("Gate bit should be set")
	}
	if !m.Get(g.Power.ParentBit()) || !m.Get(g.Power.ElementBit(2)) {
		t.Error("Array parent and element bits should be set")
	}
	if g.Power.ElementChanged(m, 0) {
		t.Error("Element 0 should be clean")
	}
	if g.Level.Changed(m) {
		t.Error("Level should be clean")
	}
	expectPanic(t, "array out of range", func() { g.Power.Set(3, 1) })
}

// TestSchemaVisibilityMasks verifies default and per-flag masks
func TestSchemaVisibilityMasks(t *testing.T) {
	g := newGrouped()
	s := g.Schema()

	def := s.DefaultMask()
	if !def.Get(0) || !def.Get(g.Level.Bit()) || def.Get(g.Power.ParentBit()) {
		t.Errorf("Unexpected default mask %v", def)
	}
	owner := s.FlagMask(VisibleOwner)
	if !owner.Get(g.Power.ElementBit(1)) || !owner.Get(g.Gold.Bit()) {
		t.Errorf("Owner mask should cover power and gold, got %v", owner)
	}
	party := s.FlagMask(VisiblePartyMember)
	if party.Get(g.Power.ParentBit()) || !party.Get(g.Gold.Bit()) {
		t.Errorf("Party mask should cover only gold, got %v", party)
	}
	expectPanic(t, "combined flag", func() { s.FlagMask(VisibleOwner | VisibleEmpathy) })
}

// TestOptionalPresence verifies removal is itself a change
func TestOptionalPresence(t *testing.T) {
	g := newGrouped()
	g.Gold.Set(10)
	if v, ok := g.Gold.Get(); !ok || v != 10 {
		t.Errorf("Expected present 10, got %d/%v", v, ok)
	}
	g.ClearChanges()

	g.Gold.Reset()
	if g.Gold.Has() {
		t.Error("Gold should be absent")
	}
	if !g.Gold.Changed(g.Mask()) {
		t.Error("Removing the value must mark the field")
	}

	g.ClearChanges()
	g.Gold.Reset()
	if g.IsChanged() {
		t.Error("Resetting an absent optional should not mark")
	}
}

// TestValueForRedacts verifies create-time redaction
func TestValueForRedacts(t *testing.T) {
	g := newGrouped()
	g.Level.Set(60)
	g.Power.Set(0, 9)
	allowed := g.Schema().DefaultMask()

	if g.Level.ValueFor(allowed) != 60 {
		t.Error("Default-visible field should pass through")
	}
	var seen []int32
	g.Power.Each(allowed, func(_ int, v int32) { seen = append(seen, v) })
	if seen[0] != 0 {
		t.Errorf("Owner-only array should be redacted, got %v", seen)
	}
	if g.Power.Get(0) != 9 {
		t.Error("Redaction must not alter the stored value")
	}
}

func newFilledRecord(n int) *testRecord {
	r := newTestRecord()
	for i := 0; i < n; i++ {
		r.Items.Add(newTestElement(int32(i), uint8(i)))
	}
	r.ClearChanges()
	return r
}

// TestListInsertShiftsChanges verifies every position from the insert point
// to the new end is re-marked and earlier positions are left alone
func TestListInsertShiftsChanges(t *testing.T) {
	const n = 3
	for at := 0; at <= n; at++ {
		r := newFilledRecord(n)
		r.Items.Insert(at, newTestElement(99, 9))

		if r.Items.Size() != n+1 || r.Items.ElementMask().BitCount() != n+1 {
			t.Fatalf("Insert(%d): expected %d elements and mask bits, got %d / %d",
				at, n+1, r.Items.Size(), r.Items.ElementMask().BitCount())
		}
		for j := 0; j <= n; j++ {
			if want := j >= at; r.Items.HasChanged(j) != want {
				t.Errorf("Insert(%d): HasChanged(%d) = %v, expected %v", at, j, r.Items.HasChanged(j), want)
			}
		}
		if !r.Items.Changed(r.Mask()) {
			t.Errorf("Insert(%d): expected the list field marked", at)
		}
	}
}

// TestListRemoveShiftsChanges verifies later elements are re-marked and the
// mask shrinks with the list
func TestListRemoveShiftsChanges(t *testing.T) {
	const n = 3
	tests := []struct {
		remove  int
		changed []bool
	}{
		{0, []bool{true, true}},
		{1, []bool{false, true}},
		{2, []bool{false, false}},
	}
	for _, tt := range tests {
		r := newFilledRecord(n)
		r.Items.Remove(tt.remove)

		if got := r.Items.ElementMask().BitCount(); got != n-1 {
			t.Fatalf("Remove(%d): expected %d mask bits, got %d", tt.remove, n-1, got)
		}
		for j, want := range tt.changed {
			if r.Items.HasChanged(j) != want {
				t.Errorf("Remove(%d): HasChanged(%d) = %v, expected %v", tt.remove, j, r.Items.HasChanged(j), want)
			}
		}
		if !r.Items.Changed(r.Mask()) {
			t.Errorf("Remove(%d): expected the list field marked", tt.remove)
		}
	}
}

// TestListLengthOverflowPanics verifies a list longer than its length
// prefix can describe is refused instead of truncated
func TestListLengthOverflowPanics(t *testing.T) {
	const lengthBits = 6
	write := func(e *testElement) {}

	fits := newFilledRecord(1<<lengthBits - 1)
	w := bitpack.NewWriter(64)
	WriteListCreate(w, fits.Items, lengthBits, nil, func(e *testElement) { e.WriteCreate(w) })
	if got := bitpack.NewReader(w.Bytes()).ReadBits(lengthBits); got != 1<<lengthBits-1 {
		t.Errorf("Expected length %d on the wire, got %d", 1<<lengthBits-1, got)
	}

	full := newFilledRecord(1 << lengthBits)
	expectPanic(t, "create", func() {
		WriteListCreate(bitpack.NewWriter(64), full.Items, lengthBits, nil, write)
	})
	expectPanic(t, "update", func() {
		WriteListUpdate(bitpack.NewWriter(64), full.Items, lengthBits, true, func(e *testElement, _ bool) {})
	})
	expectPanic(t, "mask", func() {
		full.Items.WriteLengthAndMask(bitpack.NewWriter(64), lengthBits)
	})
}

// TestChangeBeforeLayoutEndPanics verifies fields cannot be marked on a
// record whose layout is still open
func TestChangeBeforeLayoutEndPanics(t *testing.T) {
	var r Record
	l := NewSchema("Unfinished", 1).Begin(&r)
	f := NewScalar[int32](l.Field(-1))
	expectPanic(t, "set before End", func() { f.Set(1) })
}
