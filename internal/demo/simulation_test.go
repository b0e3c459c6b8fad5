package demo

import (
	"testing"

	"fieldsync/internal/config"
	"fieldsync/internal/packet"
	"fieldsync/internal/replication"
	"fieldsync/internal/visibility"
)

func newTestSimulation(t *testing.T, creatures int) (*Simulation, *replication.World) {
	t.Helper()
	rcfg := config.DefaultReplication()
	rcfg.WorldSize = 100
	w := replication.NewWorld(rcfg, visibility.DefaultStore())

	dcfg := config.DefaultDemo()
	dcfg.Creatures = creatures
	sim := New(w, dcfg, rcfg)
	if err := sim.Populate(); err != nil {
		t.Fatalf("Populate failed: %v", err)
	}
	return sim, w
}

// TestPopulateSpawnsEverything counts what the demo puts in the world
func TestPopulateSpawnsEverything(t *testing.T) {
	sim, w := newTestSimulation(t, 10)

	// creatures + players + a bag and a sword each + six singletons
	want := 10 + playerCount + 2*playerCount + 6
	if s := w.Stats(); s.Entities != want || s.Parties != 1 {
		t.Errorf("Expected %d entities in 1 party, got %+v", want, s)
	}
	if !w.Parties().SameParty(sim.Players()[0].GUID(), sim.Players()[1].GUID()) {
		t.Error("Expected the first two players grouped")
	}
}

// TestStepProducesUpdates verifies simulated changes reach an observer
func TestStepProducesUpdates(t *testing.T) {
	sim, w := newTestSimulation(t, 10)

	var packets [][]byte
	viewer := sim.Players()[0]
	if err := w.AddObserver(viewer, func(p []byte) error {
		packets = append(packets, p)
		return nil
	}); err != nil {
		t.Fatalf("AddObserver failed: %v", err)
	}
	w.Tick()
	packets = nil

	values := 0
	for i := 0; i < 50; i++ {
		sim.Step()
		w.Tick()
	}
	for _, raw := range packets {
		p, err := packet.Parse(raw)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		for _, b := range p.Blocks {
			if b.Type == packet.UpdateValues {
				values++
			}
		}
	}
	if values == 0 {
		t.Error("Expected values updates after 50 simulated steps")
	}
}

// TestStepShufflesParty verifies the periodic party change
func TestStepShufflesParty(t *testing.T) {
	sim, w := newTestSimulation(t, 3)
	leader, third := sim.Players()[0].GUID(), sim.Players()[2].GUID()

	for i := 0; i < partyShuffleEvery; i++ {
		sim.Step()
	}
	if !w.Parties().SameParty(leader, third) {
		t.Fatal("Expected the third player to join after the first shuffle")
	}

	for i := 0; i < partyShuffleEvery; i++ {
		sim.Step()
	}
	if w.Parties().SameParty(leader, third) {
		t.Error("Expected the third player to leave after the second shuffle")
	}
}
