package updatefield

import (
	"fmt"
	"sync"
)

// Visibility names the viewer relationships a field is restricted to. A
// field with no requirement is visible to every observer; otherwise the
// observer needs at least one of the listed relationships.
type Visibility uint8

const (
	VisibleAll         Visibility = 0
	VisibleOwner       Visibility = 1 << 0
	VisiblePartyMember Visibility = 1 << 1
	VisibleUnitAll     Visibility = 1 << 2
	VisibleEmpathy     Visibility = 1 << 3

	visibilityFlagCount = 4
)

// Has reports whether v includes every flag in f.
func (v Visibility) Has(f Visibility) bool { return v&f == f }

// Schema describes one record type: its name and its declared bit count.
// Bit positions are assigned by a Layout in declaration order the first
// time a record of the schema is built; later builds must assign exactly
// the same number of bits.
type Schema struct {
	name string
	bits int

	once     sync.Once
	required []Visibility
	gates    []bool
	full     *BitMask
	defaults *BitMask
	byFlag   [visibilityFlagCount]*BitMask
}

// NewSchema declares a schema with the given number of bits.
func NewSchema(name string, bits int) *Schema {
	if bits <= 0 {
		panic(fmt.Sprintf("updatefield: schema %s declares %d bits", name, bits))
	}
	return &Schema{name: name, bits: bits}
}

func (s *Schema) Name() string { return s.name }
func (s *Schema) Bits() int    { return s.bits }

func (s *Schema) mustBeBuilt() {
	if s.full == nil {
		panic(fmt.Sprintf("updatefield: schema %s has no built records yet", s.name))
	}
}

// Required returns the visibility requirement of a bit.
func (s *Schema) Required(bit int) Visibility {
	s.mustBeBuilt()
	return s.required[bit]
}

// IsGate reports whether bit is a group gate rather than a field.
func (s *Schema) IsGate(bit int) bool {
	s.mustBeBuilt()
	return s.gates[bit]
}

// HasFields reports whether m selects at least one field bit, ignoring
// group gates.
func (s *Schema) HasFields(m *BitMask) bool {
	s.mustBeBuilt()
	found := false
	m.ForEach(func(i int) {
		if !s.gates[i] {
			found = true
		}
	})
	return found
}

// FullMask returns a shared mask with every bit set. Callers must not
// mutate it.
func (s *Schema) FullMask() *BitMask {
	s.mustBeBuilt()
	return s.full
}

// DefaultMask returns a new mask of the bits every observer may see.
func (s *Schema) DefaultMask() *BitMask {
	s.mustBeBuilt()
	return s.defaults.Clone()
}

// FlagMask returns a new mask of the restricted bits that viewers holding
// flag may additionally see. flag must be a single relationship flag.
func (s *Schema) FlagMask(flag Visibility) *BitMask {
	s.mustBeBuilt()
	for i := 0; i < visibilityFlagCount; i++ {
		if flag == 1<<uint(i) {
			return s.byFlag[i].Clone()
		}
	}
	panic(fmt.Sprintf("updatefield: %d is not a single visibility flag", flag))
}

func (s *Schema) publish(required []Visibility, gates []bool) {
	s.once.Do(func() {
		s.required = required
		s.gates = gates
		s.full = NewBitMask(s.bits)
		s.full.SetAll()
		s.defaults = NewBitMask(s.bits)
		for i := range s.byFlag {
			s.byFlag[i] = NewBitMask(s.bits)
		}
		for bit, req := range required {
			if req == VisibleAll {
				s.defaults.Set(bit)
				continue
			}
			for i := 0; i < visibilityFlagCount; i++ {
				if req&(1<<uint(i)) != 0 {
					s.byFlag[i].Set(bit)
				}
			}
		}
	})
}

// Slot is a single-bit position handed out by a Layout.
type Slot struct {
	rec  *Record
	gate int
	bit  int
}

// ArraySlot is the position block of a fixed-size array: one parent bit
// followed by one bit per element.
type ArraySlot struct {
	rec    *Record
	gate   int
	parent int
	first  int
	count  int
}

// Layout assigns bit positions for one record in declaration order.
type Layout struct {
	schema   *Schema
	rec      *Record
	next     int
	required []Visibility
	gates    []bool
	done     bool
}

// Begin starts laying out rec against s.
func (s *Schema) Begin(rec *Record) *Layout {
	if rec.schema != nil {
		panic(fmt.Sprintf("updatefield: record already laid out as %s", rec.schema.name))
	}
	return &Layout{
		schema:   s,
		rec:      rec,
		required: make([]Visibility, 0, s.bits),
		gates:    make([]bool, 0, s.bits),
	}
}

func (l *Layout) take(v Visibility) int {
	if l.done {
		panic(fmt.Sprintf("updatefield: layout of %s already finished", l.schema.name))
	}
	bit := l.next
	l.next++
	l.required = append(l.required, v)
	l.gates = append(l.gates, false)
	return bit
}

func (l *Layout) checkGate(gate int) {
	if gate < -1 || gate >= l.next {
		panic(fmt.Sprintf("updatefield: %s gate bit %d was not declared before use", l.schema.name, gate))
	}
}

// Group reserves a gate bit. Fields declared with it as their gate set it
// whenever they change, so a clear gate lets serializers skip the group.
func (l *Layout) Group() int {
	bit := l.take(VisibleAll)
	l.gates[bit] = true
	return bit
}

// Field reserves a bit visible to every observer. gate is a bit returned by
// Group, or -1.
func (l *Layout) Field(gate int) Slot {
	return l.FieldFor(gate, VisibleAll)
}

// FieldFor reserves a bit restricted to the given relationships.
func (l *Layout) FieldFor(gate int, v Visibility) Slot {
	l.checkGate(gate)
	return Slot{rec: l.rec, gate: gate, bit: l.take(v)}
}

// Array reserves a parent bit plus n element bits.
func (l *Layout) Array(gate, n int) ArraySlot {
	return l.ArrayFor(gate, n, VisibleAll)
}

// ArrayFor reserves an array restricted to the given relationships.
func (l *Layout) ArrayFor(gate, n int, v Visibility) ArraySlot {
	l.checkGate(gate)
	if n <= 0 {
		panic(fmt.Sprintf("updatefield: %s array of %d elements", l.schema.name, n))
	}
	parent := l.take(v)
	first := l.next
	for i := 0; i < n; i++ {
		l.take(v)
	}
	return ArraySlot{rec: l.rec, gate: gate, parent: parent, first: first, count: n}
}

// End checks the assigned bit count against the schema declaration and
// arms the record's mask.
func (l *Layout) End() {
	if l.next != l.schema.bits {
		panic(fmt.Sprintf("updatefield: schema %s declares %d bits but layout assigned %d",
			l.schema.name, l.schema.bits, l.next))
	}
	l.done = true
	l.rec.schema = l.schema
	l.rec.mask = NewBitMask(l.schema.bits)
	l.schema.publish(l.required, l.gates)
}
