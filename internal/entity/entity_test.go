package entity

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"fieldsync/internal/bitpack"
	"fieldsync/internal/fields"
	"fieldsync/internal/packet"
	"fieldsync/internal/updatefield"
	"fieldsync/internal/visibility"
)

var (
	aliceID = bitpack.MakeGUID(bitpack.HighPlayer, 0, 1)
	carolID = bitpack.MakeGUID(bitpack.HighPlayer, 0, 3)
	wolfID  = bitpack.MakeGUID(bitpack.HighCreature, 299, 7)
	bagID   = bitpack.MakeGUID(bitpack.HighItem, 0, 11)
)

func contextFor(o, viewer *Object) *updatefield.ViewerContext {
	return &updatefield.ViewerContext{
		Owner:    o,
		Receiver: viewer,
		Flags:    visibility.FlagsFor(o, viewer, nil),
		Hooks:    visibility.DefaultHooks(visibility.DefaultStore(), nil),
	}
}

func decodeBlock(t *testing.T, raw []byte) (packet.Block, *bitpack.Reader) {
	t.Helper()
	if raw == nil {
		t.Fatal("Expected a block, got nil")
	}
	r := bitpack.NewReader(raw)
	b, err := packet.ReadBlock(r)
	if err != nil {
		t.Fatalf("ReadBlock failed: %v", err)
	}
	if r.Remaining() != 0 {
		t.Fatalf("Expected block to span the buffer, %d bytes left", r.Remaining())
	}
	return b, bitpack.NewReader(b.Payload)
}

func readKinds(r *bitpack.Reader) uint32 {
	k := r.ReadBits(KindMaskBits)
	r.ResetBitPos()
	return k
}

func kindBits(kinds ...Kind) uint32 {
	var m uint32
	for _, k := range kinds {
		m |= 1 << k
	}
	return m
}

// TestValuesTracksChangedKinds verifies field changes flag only their own kind
func TestValuesTracksChangedKinds(t *testing.T) {
	o := NewPlayer(aliceID, mgl32.Vec3{})
	o.Values.ClearAll()

	if o.Values.IsChanged() {
		t.Fatal("Expected no changes after ClearAll")
	}

	o.Values.Unit.Level.Set(10)
	o.Values.ActivePlayer.Coinage.Set(500)

	m := o.Values.GetChangedKindMask()
	for _, k := range Kinds() {
		want := k == KindUnit || k == KindActivePlayer
		if m.Get(int(k)) != want {
			t.Errorf("Kind %v: expected changed=%v", k, want)
		}
	}

	o.Values.Clear(KindUnit)
	if m.Get(int(KindUnit)) || o.Values.Unit.IsChanged() {
		t.Error("Expected Clear to reset the unit record and its kind bit")
	}
	if !m.Get(int(KindActivePlayer)) {
		t.Error("Expected Clear(Unit) to leave ActivePlayer changed")
	}

	o.Values.ClearAll()
	if o.Values.IsChanged() || o.Values.ActivePlayer.IsChanged() {
		t.Error("Expected ClearAll to reset everything")
	}
}

// TestValuesKinds checks which kinds each constructor carries
func TestValuesKinds(t *testing.T) {
	tests := []struct {
		name string
		o    *Object
		want []Kind
	}{
		{"player", NewPlayer(aliceID, mgl32.Vec3{}), []Kind{KindObject, KindUnit, KindPlayer, KindActivePlayer}},
		{"creature", NewCreature(wolfID, 299, mgl32.Vec3{}), []Kind{KindObject, KindUnit}},
		{"bag", NewContainer(bagID, aliceID, 4500, 16), []Kind{KindObject, KindItem, KindContainer}},
		{"corpse", NewCorpse(bitpack.MakeGUID(bitpack.HighCorpse, 0, 1), aliceID, mgl32.Vec3{}), []Kind{KindObject, KindCorpse}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := kindBits(tt.want...)
			for _, k := range Kinds() {
				if tt.o.Values.Has(k) != (want&(1<<k) != 0) {
					t.Errorf("Kind %v: expected Has=%v", k, want&(1<<k) != 0)
				}
				if (tt.o.Values.Record(k) != nil) != tt.o.Values.Has(k) {
					t.Errorf("Kind %v: Record and Has disagree", k)
				}
			}
		})
	}
}

// TestCreateBlockCarriesSnapshot decodes the header and object snapshot of a create
func TestCreateBlockCarriesSnapshot(t *testing.T) {
	wolf := NewCreature(wolfID, 299, mgl32.Vec3{10, 20, 30})
	wolf.Facing = 1.5
	viewer := NewPlayer(aliceID, mgl32.Vec3{})

	b, r := decodeBlock(t, wolf.BuildCreateBlock(contextFor(wolf, viewer)))
	if b.Type != packet.CreateObject2 {
		t.Errorf("Expected CreateObject2 for a fresh spawn, got %v", b.Type)
	}
	if b.GUID != wolfID || b.ObjectType != uint8(KindUnit) {
		t.Errorf("Header mismatch: %+v", b)
	}
	if b.Position != (mgl32.Vec3{10, 20, 30}) || b.Facing != 1.5 {
		t.Errorf("Expected position and facing to be carried, got %v %v", b.Position, b.Facing)
	}

	if got := readKinds(r); got != kindBits(KindObject, KindUnit) {
		t.Errorf("Expected kinds %012b, got %012b", kindBits(KindObject, KindUnit), got)
	}
	snap := fields.ReadObjectCreate(r)
	if snap.EntryID != 299 || snap.Scale != 1 {
		t.Errorf("Expected entry 299 scale 1, got %+v", snap)
	}

	wolf.SettleSpawn()
	b, _ = decodeBlock(t, wolf.BuildCreateBlock(contextFor(wolf, viewer)))
	if b.Type != packet.CreateObject1 {
		t.Errorf("Expected CreateObject1 after the spawn settled, got %v", b.Type)
	}
}

// TestActivePlayerSentOnlyToSelf verifies the private kind never reaches others
func TestActivePlayerSentOnlyToSelf(t *testing.T) {
	alice := NewPlayer(aliceID, mgl32.Vec3{})
	carol := NewPlayer(carolID, mgl32.Vec3{})

	_, r := decodeBlock(t, alice.BuildCreateBlock(contextFor(alice, alice)))
	if got := readKinds(r); got&kindBits(KindActivePlayer) == 0 {
		t.Error("Expected ActivePlayer in the self create")
	}

	_, r = decodeBlock(t, alice.BuildCreateBlock(contextFor(alice, carol)))
	if got := readKinds(r); got != kindBits(KindObject, KindUnit, KindPlayer) {
		t.Errorf("Expected kinds %012b for another player, got %012b", kindBits(KindObject, KindUnit, KindPlayer), got)
	}

	alice.Values.ClearAll()
	alice.Values.ActivePlayer.Coinage.Set(100)
	if block := alice.BuildValuesBlock(contextFor(alice, carol)); block != nil {
		t.Error("Expected no values block for another player when only ActivePlayer changed")
	}
	if block := alice.BuildValuesBlock(contextFor(alice, alice)); block == nil {
		t.Error("Expected a values block for the player itself")
	}
}

// TestValuesBlockSkipsHiddenChanges verifies owner-only changes produce nothing for strangers
func TestValuesBlockSkipsHiddenChanges(t *testing.T) {
	bag := NewItem(bagID, aliceID, 4500)
	bag.Values.ClearAll()
	alice := NewPlayer(aliceID, mgl32.Vec3{})
	carol := NewPlayer(carolID, mgl32.Vec3{})

	if bag.BuildValuesBlock(contextFor(bag, alice)) != nil {
		t.Error("Expected nil values block for a clean entity")
	}

	bag.Values.Item.StackCount.Set(5)
	if bag.BuildValuesBlock(contextFor(bag, carol)) != nil {
		t.Error("Expected nil values block when only owner fields changed")
	}
	if bag.BuildValuesBlock(contextFor(bag, alice)) == nil {
		t.Error("Expected the owner to receive the stack count")
	}
}

// TestValuesBlockDecodes applies a values block to a snapshot
func TestValuesBlockDecodes(t *testing.T) {
	wolf := NewCreature(wolfID, 299, mgl32.Vec3{})
	wolf.Values.ClearAll()
	viewer := NewPlayer(aliceID, mgl32.Vec3{})

	wolf.Values.Object.Scale.Set(2)

	b, r := decodeBlock(t, wolf.BuildValuesBlock(contextFor(wolf, viewer)))
	if b.Type != packet.UpdateValues {
		t.Errorf("Expected a values block, got %v", b.Type)
	}
	if got := readKinds(r); got != kindBits(KindObject) {
		t.Fatalf("Expected only Object kind, got %012b", got)
	}
	snap := fields.ObjectSnapshot{EntryID: 299, Scale: 1}
	snap.ApplyUpdate(r)
	if snap.Scale != 2 || snap.EntryID != 299 {
		t.Errorf("Expected scale 2 entry 299, got %+v", snap)
	}
}

// TestValuesBlockIsRepeatable verifies serving one observer leaves changes for the next
func TestValuesBlockIsRepeatable(t *testing.T) {
	wolf := NewCreature(wolfID, 299, mgl32.Vec3{})
	wolf.Values.ClearAll()
	alice := NewPlayer(aliceID, mgl32.Vec3{})
	carol := NewPlayer(carolID, mgl32.Vec3{})

	wolf.Values.Unit.Level.Set(12)
	first := wolf.BuildValuesBlock(contextFor(wolf, alice))
	second := wolf.BuildValuesBlock(contextFor(wolf, carol))
	if !bytes.Equal(first, second) {
		t.Error("Expected identical blocks for two equally related observers")
	}
	if !wolf.Values.Unit.IsChanged() {
		t.Error("Expected building blocks to leave the changes in place")
	}
}

// TestDynamicFlagsRewrittenPerViewer verifies hooks see the raw value per observer
func TestDynamicFlagsRewrittenPerViewer(t *testing.T) {
	wolf := NewCreature(wolfID, 299, mgl32.Vec3{})
	wolf.Values.ClearAll()
	alice := NewPlayer(aliceID, mgl32.Vec3{})
	carol := NewPlayer(carolID, mgl32.Vec3{})

	wolf.Values.Object.DynamicFlags.Set(visibility.DynFlagLootable)
	wolf.SetTappedBy(aliceID)

	tests := []struct {
		name   string
		viewer *Object
		want   uint32
	}{
		{"tapper", alice, visibility.DynFlagLootable},
		{"other player", carol, visibility.DynFlagTapped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, r := decodeBlock(t, wolf.BuildValuesBlock(contextFor(wolf, tt.viewer)))
			readKinds(r)
			var snap fields.ObjectSnapshot
			snap.ApplyUpdate(r)
			if snap.DynamicFlags != tt.want {
				t.Errorf("Expected dynamic flags %#x, got %#x", tt.want, snap.DynamicFlags)
			}
		})
	}

	if wolf.Values.Object.DynamicFlags.Get() != visibility.DynFlagLootable {
		t.Error("Expected the stored value to be untouched by hooks")
	}
}

// TestForceValuesUpdate sends selected fields without touching stored changes
func TestForceValuesUpdate(t *testing.T) {
	wolf := NewCreature(wolfID, 299, mgl32.Vec3{})
	wolf.Values.ClearAll()
	viewer := NewPlayer(aliceID, mgl32.Vec3{})

	m := NewMask(KindObject)
	wolf.Values.Object.EntryID.Select(m)

	_, r := decodeBlock(t, wolf.ForceValuesUpdate(KindObject, m, contextFor(wolf, viewer)))
	if got := readKinds(r); got != kindBits(KindObject) {
		t.Fatalf("Expected only Object kind, got %012b", got)
	}
	var snap fields.ObjectSnapshot
	snap.ApplyUpdate(r)
	if snap.EntryID != 299 {
		t.Errorf("Expected forced entry 299, got %d", snap.EntryID)
	}
	if wolf.Values.IsChanged() || wolf.Values.Object.IsChanged() {
		t.Error("Expected forced update to leave stored changes clean")
	}
}

// TestForceValuesUpdateMissingKindPanics verifies asking for an absent kind fails fast
func TestForceValuesUpdateMissingKindPanics(t *testing.T) {
	wolf := NewCreature(wolfID, 299, mgl32.Vec3{})
	viewer := NewPlayer(aliceID, mgl32.Vec3{})

	defer func() {
		if recover() == nil {
			t.Error("Expected panic for a kind the entity does not carry")
		}
	}()
	wolf.ForceValuesUpdate(KindPlayer, NewMask(KindPlayer), contextFor(wolf, viewer))
}
