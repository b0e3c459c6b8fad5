package replication

import (
	"errors"
	"testing"
	"time"

	"fieldsync/internal/bitpack"
)

func player(n uint64) bitpack.ObjectGUID { return bitpack.MakeGUID(bitpack.HighPlayer, 0, n) }

type changeLog struct {
	calls []relationChange
}

func (c *changeLog) record(viewerWide bool, members ...bitpack.ObjectGUID) {
	c.calls = append(c.calls, relationChange{viewerWide: viewerWide, members: members})
}

func newTestParties(now *time.Time) (*PartyManager, *changeLog) {
	pm := NewPartyManager()
	log := &changeLog{}
	pm.onChange = log.record
	pm.now = func() time.Time { return *now }
	return pm, log
}

// TestPartyInviteAndJoin covers the invite rules
func TestPartyInviteAndJoin(t *testing.T) {
	now := time.Unix(1000, 0)
	pm, changes := newTestParties(&now)
	leader, a, b := player(1), player(2), player(3)

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"invite self", func() error { return pm.Invite(leader, leader) }, ErrInviteYourself},
		{"join without invite", func() error { _, err := pm.Join(a, leader); return err }, ErrNoInvite},
		{"invite", func() error { return pm.Invite(leader, a) }, nil},
		{"join", func() error { _, err := pm.Join(a, leader); return err }, nil},
		{"invite member", func() error { return pm.Invite(leader, a) }, ErrAlreadyInParty},
		{"non-leader invites", func() error { return pm.Invite(a, b) }, ErrNotPartyLeader},
		{"leave", func() error { return pm.Leave(a) }, nil},
		{"leave twice", func() error { return pm.Leave(a) }, ErrNotInParty},
	}

	for _, tt := range tests {
		if err := tt.run(); !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}

	if len(changes.calls) != 2 {
		t.Fatalf("Expected notifications for join and leave, got %d", len(changes.calls))
	}
	for _, c := range changes.calls {
		if c.viewerWide || len(c.members) != 2 {
			t.Errorf("Expected a two-member party change, got %+v", c)
		}
	}
	if pm.Count() != 0 {
		t.Errorf("Expected the two-member party disbanded after a leave, got %d parties", pm.Count())
	}
}

// TestPartyInviteExpires verifies stale invites are refused
func TestPartyInviteExpires(t *testing.T) {
	now := time.Unix(1000, 0)
	pm, _ := newTestParties(&now)
	leader, a := player(1), player(2)

	if err := pm.Invite(leader, a); err != nil {
		t.Fatalf("Invite failed: %v", err)
	}
	now = now.Add(InviteDuration + time.Second)
	if _, err := pm.Join(a, leader); !errors.Is(err, ErrNoInvite) {
		t.Errorf("Expected ErrNoInvite for an expired invite, got %v", err)
	}
}

// TestPartyFull verifies the size limit
func TestPartyFull(t *testing.T) {
	now := time.Unix(1000, 0)
	pm, _ := newTestParties(&now)
	leader := player(1)

	for i := uint64(2); i <= MaxPartySize; i++ {
		if err := pm.Invite(leader, player(i)); err != nil {
			t.Fatalf("Invite %d failed: %v", i, err)
		}
		if _, err := pm.Join(player(i), leader); err != nil {
			t.Fatalf("Join %d failed: %v", i, err)
		}
	}
	if err := pm.Invite(leader, player(99)); !errors.Is(err, ErrPartyFull) {
		t.Errorf("Expected ErrPartyFull, got %v", err)
	}
	if !pm.SameParty(leader, player(MaxPartySize)) {
		t.Error("Expected the last member grouped with the leader")
	}
}

// TestPartyLeaderHandover verifies a departing leader leaves a working party
func TestPartyLeaderHandover(t *testing.T) {
	now := time.Unix(1000, 0)
	pm, _ := newTestParties(&now)
	leader, a, b := player(1), player(2), player(3)

	for _, m := range []bitpack.ObjectGUID{a, b} {
		if err := pm.Invite(leader, m); err != nil {
			t.Fatalf("Invite failed: %v", err)
		}
		if _, err := pm.Join(m, leader); err != nil {
			t.Fatalf("Join failed: %v", err)
		}
	}
	if err := pm.Leave(leader); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if !pm.SameParty(a, b) {
		t.Error("Expected the remaining members to stay grouped")
	}
	if pm.SameParty(leader, a) {
		t.Error("Expected the old leader out of the party")
	}
}

// TestPrivilegedViews covers game master and empathy relationships
func TestPrivilegedViews(t *testing.T) {
	now := time.Unix(1000, 0)
	pm, changes := newTestParties(&now)
	gm, target := player(1), player(2)

	pm.SetGameMaster(gm, true)
	pm.SetEmpathy(gm, target, true)
	if !pm.IsGameMaster(gm) || !pm.HasEmpathy(gm, target) {
		t.Error("Expected both views granted")
	}
	if pm.HasEmpathy(target, gm) {
		t.Error("Expected empathy to be directional")
	}

	pm.SetGameMaster(gm, false)
	if pm.IsGameMaster(gm) {
		t.Error("Expected the game master view revoked")
	}

	if len(changes.calls) != 3 {
		t.Fatalf("Expected 3 notifications, got %d", len(changes.calls))
	}
	for _, c := range changes.calls {
		if !c.viewerWide || len(c.members) != 1 || c.members[0] != gm {
			t.Errorf("Expected a viewer-wide change for the game master, got %+v", c)
		}
	}
}
