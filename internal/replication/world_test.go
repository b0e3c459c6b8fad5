package replication

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"fieldsync/internal/bitpack"
	"fieldsync/internal/config"
	"fieldsync/internal/entity"
	"fieldsync/internal/packet"
	"fieldsync/internal/visibility"
)

var (
	aliceID = bitpack.MakeGUID(bitpack.HighPlayer, 0, 1)
	carolID = bitpack.MakeGUID(bitpack.HighPlayer, 0, 3)
	wolfID  = bitpack.MakeGUID(bitpack.HighCreature, 299, 7)
	swordID = bitpack.MakeGUID(bitpack.HighItem, 0, 21)
)

type recorder struct {
	packets [][]byte
	fail    bool
}

func (r *recorder) send(pkt []byte) error {
	if r.fail {
		return errors.New("connection closed")
	}
	r.packets = append(r.packets, pkt)
	return nil
}

// take parses and forgets everything received so far.
func (r *recorder) take(t *testing.T) []*packet.Packet {
	t.Helper()
	out := make([]*packet.Packet, 0, len(r.packets))
	for _, raw := range r.packets {
		p, err := packet.Parse(raw)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		out = append(out, p)
	}
	r.packets = nil
	return out
}

func newTestWorld(t *testing.T) *World {
	t.Helper()
	cfg := config.DefaultReplication()
	cfg.MapID = 530
	return NewWorld(cfg, visibility.DefaultStore())
}

func spawn(t *testing.T, w *World, o *entity.Object) *entity.Object {
	t.Helper()
	if err := w.Spawn(o); err != nil {
		t.Fatalf("Spawn(%v) failed: %v", o.GUID(), err)
	}
	return o
}

func watch(t *testing.T, w *World, o *entity.Object) *recorder {
	t.Helper()
	rec := &recorder{}
	if err := w.AddObserver(o, rec.send); err != nil {
		t.Fatalf("AddObserver(%v) failed: %v", o.GUID(), err)
	}
	return rec
}

func blocksFor(pkts []*packet.Packet, g bitpack.ObjectGUID) []packet.Block {
	var out []packet.Block
	for _, p := range pkts {
		for _, b := range p.Blocks {
			if b.GUID == g {
				out = append(out, b)
			}
		}
	}
	return out
}

func contains(list []bitpack.ObjectGUID, g bitpack.ObjectGUID) bool {
	for _, e := range list {
		if e == g {
			return true
		}
	}
	return false
}

func payloadKinds(b packet.Block) uint32 {
	return bitpack.NewReader(b.Payload).ReadBits(entity.KindMaskBits)
}

// TestTickCreatesThenUpdates verifies the create, quiet and values phases
func TestTickCreatesThenUpdates(t *testing.T) {
	w := newTestWorld(t)
	alice := spawn(t, w, entity.NewPlayer(aliceID, mgl32.Vec3{}))
	wolf := spawn(t, w, entity.NewCreature(wolfID, 299, mgl32.Vec3{10, 10, 0}))
	rec := watch(t, w, alice)

	st := w.Tick()
	pkts := rec.take(t)
	if len(pkts) != 1 {
		t.Fatalf("Expected 1 packet, got %d", len(pkts))
	}
	if pkts[0].MapID != 530 {
		t.Errorf("Expected map 530, got %d", pkts[0].MapID)
	}
	if len(pkts[0].Blocks) != 2 || st.Creates != 2 {
		t.Fatalf("Expected 2 creates, got %d blocks (%d counted)", len(pkts[0].Blocks), st.Creates)
	}
	for _, b := range pkts[0].Blocks {
		if b.Type != packet.CreateObject2 {
			t.Errorf("Expected CreateObject2 for %v, got %v", b.GUID, b.Type)
		}
	}

	w.Tick()
	if pkts := rec.take(t); len(pkts) != 0 {
		t.Errorf("Expected no packet for an unchanged world, got %d", len(pkts))
	}

	w.Mutate(func() { wolf.Values.Unit.Level.Set(5) })
	st = w.Tick()
	pkts = rec.take(t)
	if len(pkts) != 1 || len(pkts[0].Blocks) != 1 {
		t.Fatalf("Expected a single values block, got %d packets", len(pkts))
	}
	if b := pkts[0].Blocks[0]; b.Type != packet.UpdateValues || b.GUID != wolfID {
		t.Errorf("Expected values for the wolf, got %v for %v", b.Type, b.GUID)
	}
	if st.Values != 1 {
		t.Errorf("Expected 1 values block counted, got %d", st.Values)
	}
	if wolf.Values.IsChanged() {
		t.Error("Expected changes cleared after the tick")
	}
}

// TestEveryObserverSeesTheSameChange verifies changes survive until the last observer is served
func TestEveryObserverSeesTheSameChange(t *testing.T) {
	w := newTestWorld(t)
	alice := spawn(t, w, entity.NewPlayer(aliceID, mgl32.Vec3{}))
	carol := spawn(t, w, entity.NewPlayer(carolID, mgl32.Vec3{5, 0, 0}))
	wolf := spawn(t, w, entity.NewCreature(wolfID, 299, mgl32.Vec3{10, 10, 0}))
	recA := watch(t, w, alice)
	recC := watch(t, w, carol)

	w.Tick()
	recA.take(t)
	recC.take(t)

	w.Mutate(func() { wolf.Values.Unit.Health.Set(42) })
	w.Tick()

	for name, rec := range map[string]*recorder{"alice": recA, "carol": recC} {
		got := blocksFor(rec.take(t), wolfID)
		if len(got) != 1 || got[0].Type != packet.UpdateValues {
			t.Errorf("%s: expected one values block for the wolf, got %d", name, len(got))
		}
	}
}

// TestActivePlayerReachesOnlyItsPlayer checks the kind mask of creates sent to self and others
func TestActivePlayerReachesOnlyItsPlayer(t *testing.T) {
	w := newTestWorld(t)
	alice := spawn(t, w, entity.NewPlayer(aliceID, mgl32.Vec3{}))
	carol := spawn(t, w, entity.NewPlayer(carolID, mgl32.Vec3{5, 0, 0}))
	recA := watch(t, w, alice)
	recC := watch(t, w, carol)

	w.Tick()

	active := uint32(1) << entity.KindActivePlayer
	self := blocksFor(recA.take(t), aliceID)
	other := blocksFor(recC.take(t), aliceID)
	if len(self) != 1 || len(other) != 1 {
		t.Fatalf("Expected one create each, got self=%d other=%d", len(self), len(other))
	}
	if payloadKinds(self[0])&active == 0 {
		t.Error("Expected ActivePlayer in the self create")
	}
	if payloadKinds(other[0])&active != 0 {
		t.Error("Expected no ActivePlayer in the create sent to carol")
	}
}

// TestOutOfRangeAndDestroy walks an entity out of view, back in, then despawns it
func TestOutOfRangeAndDestroy(t *testing.T) {
	w := newTestWorld(t)
	alice := spawn(t, w, entity.NewPlayer(aliceID, mgl32.Vec3{}))
	wolf := spawn(t, w, entity.NewCreature(wolfID, 299, mgl32.Vec3{10, 10, 0}))
	rec := watch(t, w, alice)
	w.Tick()
	rec.take(t)

	w.Mutate(func() { wolf.Position = mgl32.Vec3{500, 500, 0} })
	w.Tick()
	pkts := rec.take(t)
	if len(pkts) != 1 || !contains(pkts[0].OutOfRange, wolfID) {
		t.Fatalf("Expected the wolf out of range, got %+v", pkts)
	}
	if obs, _ := w.Observer(aliceID); obs.Knows(wolfID) {
		t.Error("Expected the wolf forgotten after leaving range")
	}

	w.Mutate(func() { wolf.Position = mgl32.Vec3{20, 0, 0} })
	w.Tick()
	got := blocksFor(rec.take(t), wolfID)
	if len(got) != 1 || got[0].Type != packet.CreateObject1 {
		t.Fatalf("Expected CreateObject1 on re-entry, got %+v", got)
	}

	if err := w.Despawn(wolfID); err != nil {
		t.Fatalf("Despawn failed: %v", err)
	}
	w.Tick()
	pkts = rec.take(t)
	if len(pkts) != 1 || !contains(pkts[0].Destroyed, wolfID) {
		t.Fatalf("Expected the wolf destroyed, got %+v", pkts)
	}
	if contains(pkts[0].OutOfRange, wolfID) {
		t.Error("Expected a destroyed entity not to be reported out of range too")
	}
}

// TestItemsVisibleToOwnerOnly verifies positionless items follow their owner
func TestItemsVisibleToOwnerOnly(t *testing.T) {
	w := newTestWorld(t)
	alice := spawn(t, w, entity.NewPlayer(aliceID, mgl32.Vec3{}))
	carol := spawn(t, w, entity.NewPlayer(carolID, mgl32.Vec3{5, 0, 0}))
	spawn(t, w, entity.NewItem(swordID, aliceID, 2500))
	recA := watch(t, w, alice)
	recC := watch(t, w, carol)

	w.Tick()
	if got := blocksFor(recA.take(t), swordID); len(got) != 1 {
		t.Errorf("Expected alice to receive her item, got %d blocks", len(got))
	}
	if got := blocksFor(recC.take(t), swordID); len(got) != 0 {
		t.Errorf("Expected carol not to see alice's item, got %d blocks", len(got))
	}
}

// TestPartyJoinResendsMembers verifies a relationship change re-creates affected entities
func TestPartyJoinResendsMembers(t *testing.T) {
	w := newTestWorld(t)
	alice := spawn(t, w, entity.NewPlayer(aliceID, mgl32.Vec3{}))
	carol := spawn(t, w, entity.NewPlayer(carolID, mgl32.Vec3{5, 0, 0}))
	spawn(t, w, entity.NewCreature(wolfID, 299, mgl32.Vec3{10, 10, 0}))
	recA := watch(t, w, alice)
	recC := watch(t, w, carol)
	w.Tick()
	recA.take(t)
	recC.take(t)

	if err := w.Parties().Invite(aliceID, carolID); err != nil {
		t.Fatalf("Invite failed: %v", err)
	}
	if _, err := w.Parties().Join(carolID, aliceID); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	w.Tick()

	pkts := recC.take(t)
	got := blocksFor(pkts, aliceID)
	if len(got) != 1 || got[0].Type != packet.CreateObject1 {
		t.Fatalf("Expected carol to receive a fresh create of alice, got %+v", got)
	}
	if len(blocksFor(pkts, wolfID)) != 0 {
		t.Error("Expected no resend of the unrelated wolf")
	}
}

// TestForceUpdateSendsUnchangedFields verifies a forced field reaches observers that know the target
func TestForceUpdateSendsUnchangedFields(t *testing.T) {
	w := newTestWorld(t)
	alice := spawn(t, w, entity.NewPlayer(aliceID, mgl32.Vec3{}))
	wolf := spawn(t, w, entity.NewCreature(wolfID, 299, mgl32.Vec3{10, 10, 0}))
	rec := watch(t, w, alice)
	w.Tick()
	rec.take(t)

	m := entity.NewMask(entity.KindUnit)
	wolf.Values.Unit.Level.Select(m)
	if err := w.ForceUpdate(wolfID, entity.KindUnit, m); err != nil {
		t.Fatalf("ForceUpdate failed: %v", err)
	}
	if err := w.ForceUpdate(wolfID, entity.KindPlayer, entity.NewMask(entity.KindPlayer)); err == nil {
		t.Error("Expected an error forcing a kind the wolf does not carry")
	}
	w.Tick()

	got := blocksFor(rec.take(t), wolfID)
	if len(got) != 1 || got[0].Type != packet.UpdateValues {
		t.Fatalf("Expected one forced values block, got %+v", got)
	}
	if kinds := payloadKinds(got[0]); kinds != 1<<entity.KindUnit {
		t.Errorf("Expected only the unit kind, got %012b", kinds)
	}

	w.Tick()
	if pkts := rec.take(t); len(pkts) != 0 {
		t.Error("Expected the forced update to be sent once")
	}
}

// TestMaxPacketBytesSplitsPackets verifies oversized ticks are spread over several packets
func TestMaxPacketBytesSplitsPackets(t *testing.T) {
	cfg := config.DefaultReplication()
	cfg.MaxPacketBytes = 1
	w := NewWorld(cfg, visibility.DefaultStore())
	alice := spawn(t, w, entity.NewPlayer(aliceID, mgl32.Vec3{}))
	for i := uint64(0); i < 4; i++ {
		spawn(t, w, entity.NewCreature(bitpack.MakeGUID(bitpack.HighCreature, 299, 100+i), 299, mgl32.Vec3{float32(i), 0, 0}))
	}
	rec := watch(t, w, alice)

	st := w.Tick()
	pkts := rec.take(t)
	if len(pkts) != 5 || st.Packets != 5 {
		t.Fatalf("Expected 5 single-block packets, got %d (%d counted)", len(pkts), st.Packets)
	}
	for i, p := range pkts {
		if len(p.Blocks) != 1 {
			t.Errorf("Packet %d: expected 1 block, got %d", i, len(p.Blocks))
		}
	}
}

// TestSendFailureIsIsolated verifies one broken transport does not affect another observer
func TestSendFailureIsIsolated(t *testing.T) {
	w := newTestWorld(t)
	alice := spawn(t, w, entity.NewPlayer(aliceID, mgl32.Vec3{}))
	carol := spawn(t, w, entity.NewPlayer(carolID, mgl32.Vec3{5, 0, 0}))
	recA := watch(t, w, alice)
	recA.fail = true
	recC := watch(t, w, carol)

	st := w.Tick()
	if st.Packets != 1 {
		t.Errorf("Expected 1 delivered packet, got %d", st.Packets)
	}
	if len(recC.take(t)) != 1 {
		t.Error("Expected carol to receive her packet")
	}
}

// TestWorldRegistrationErrors covers duplicate and unknown registrations
func TestWorldRegistrationErrors(t *testing.T) {
	w := newTestWorld(t)
	alice := spawn(t, w, entity.NewPlayer(aliceID, mgl32.Vec3{}))

	if err := w.Spawn(alice); !errors.Is(err, ErrDuplicateEntity) {
		t.Errorf("Expected ErrDuplicateEntity, got %v", err)
	}
	if err := w.Despawn(carolID); !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("Expected ErrUnknownEntity, got %v", err)
	}
	if err := w.AddObserver(entity.NewPlayer(carolID, mgl32.Vec3{}), (&recorder{}).send); !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("Expected ErrUnknownEntity for an unspawned observer, got %v", err)
	}
	watch(t, w, alice)
	if err := w.AddObserver(alice, (&recorder{}).send); !errors.Is(err, ErrObserverExists) {
		t.Errorf("Expected ErrObserverExists, got %v", err)
	}

	if err := w.Despawn(aliceID); err != nil {
		t.Fatalf("Despawn failed: %v", err)
	}
	if _, ok := w.Observer(aliceID); ok {
		t.Error("Expected despawning an observer's entity to remove the observer")
	}
	if s := w.Stats(); s.Entities != 0 || s.Observers != 0 {
		t.Errorf("Expected an empty world, got %+v", s)
	}
}

// TestEntitiesSummary lists spawned entities with their owners
func TestEntitiesSummary(t *testing.T) {
	w := newTestWorld(t)
	spawn(t, w, entity.NewPlayer(aliceID, mgl32.Vec3{1, 2, 3}))
	spawn(t, w, entity.NewItem(swordID, aliceID, 2500))

	list := w.Entities()
	if len(list) != 2 {
		t.Fatalf("Expected 2 entities, got %d", len(list))
	}
	if list[0].GUID != aliceID.String() || list[0].Position != [3]float32{1, 2, 3} {
		t.Errorf("Unexpected player summary: %+v", list[0])
	}
	if list[1].Owner != aliceID.String() || list[1].Kind != entity.KindItem.String() {
		t.Errorf("Unexpected item summary: %+v", list[1])
	}
}
