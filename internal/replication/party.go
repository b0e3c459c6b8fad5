package replication

import (
	"errors"
	"sync"
	"time"

	"fieldsync/internal/bitpack"
)

// InviteDuration is how long party invites last.
const InviteDuration = 60 * time.Second

// MaxPartySize limits party membership.
const MaxPartySize = 5

var (
	ErrNoInvite       = errors.New("no valid invite")
	ErrPartyFull      = errors.New("party is full")
	ErrAlreadyInParty = errors.New("player already in a party")
	ErrNotInParty     = errors.New("not in a party")
	ErrNotPartyLeader = errors.New("only the party leader can invite")
	ErrInviteYourself = errors.New("cannot invite yourself")
)

// Party is a group of players who see each other's party-restricted fields.
type Party struct {
	GUID    bitpack.ObjectGUID
	Leader  bitpack.ObjectGUID
	Members map[bitpack.ObjectGUID]bool

	invites map[bitpack.ObjectGUID]time.Time // invitee -> expiry
}

// PartyManager tracks parties and the privileged viewer relationships the
// visibility filter asks about. It implements visibility.Relations.
type PartyManager struct {
	mu       sync.RWMutex
	parties  map[bitpack.ObjectGUID]*Party
	byMember map[bitpack.ObjectGUID]*Party
	gms      map[bitpack.ObjectGUID]bool
	empathy  map[[2]bitpack.ObjectGUID]bool // viewer, target
	counter  uint64

	// onChange runs after relationships change so the world can resend
	// restricted fields. With viewerWide set, the single member's view of
	// every entity changed; otherwise only views among the members did.
	onChange func(viewerWide bool, members ...bitpack.ObjectGUID)
	now      func() time.Time
}

// NewPartyManager creates an empty manager.
func NewPartyManager() *PartyManager {
	return &PartyManager{
		parties:  make(map[bitpack.ObjectGUID]*Party),
		byMember: make(map[bitpack.ObjectGUID]*Party),
		gms:      make(map[bitpack.ObjectGUID]bool),
		empathy:  make(map[[2]bitpack.ObjectGUID]bool),
		now:      time.Now,
	}
}

// Invite lets leader invite target. A player without a party forms one.
func (pm *PartyManager) Invite(leader, target bitpack.ObjectGUID) error {
	if leader == target {
		return ErrInviteYourself
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	if _, ok := pm.byMember[target]; ok {
		return ErrAlreadyInParty
	}

	p, ok := pm.byMember[leader]
	if !ok {
		pm.counter++
		p = &Party{
			GUID:    bitpack.MakeGUID(bitpack.HighParty, 0, pm.counter),
			Leader:  leader,
			Members: map[bitpack.ObjectGUID]bool{leader: true},
			invites: make(map[bitpack.ObjectGUID]time.Time),
		}
		pm.parties[p.GUID] = p
		pm.byMember[leader] = p
	}
	if p.Leader != leader {
		return ErrNotPartyLeader
	}
	if len(p.Members) >= MaxPartySize {
		return ErrPartyFull
	}

	now := pm.now()
	for g, expiry := range p.invites {
		if now.After(expiry) {
			delete(p.invites, g)
		}
	}
	p.invites[target] = now.Add(InviteDuration)
	return nil
}

// Join accepts an invite from leader's party.
func (pm *PartyManager) Join(player, leader bitpack.ObjectGUID) (*Party, error) {
	pm.mu.Lock()

	if _, ok := pm.byMember[player]; ok {
		pm.mu.Unlock()
		return nil, ErrAlreadyInParty
	}
	p, ok := pm.byMember[leader]
	if !ok || p.Leader != leader {
		pm.mu.Unlock()
		return nil, ErrNoInvite
	}
	expiry, invited := p.invites[player]
	if !invited || pm.now().After(expiry) {
		pm.mu.Unlock()
		return nil, ErrNoInvite
	}
	if len(p.Members) >= MaxPartySize {
		pm.mu.Unlock()
		return nil, ErrPartyFull
	}

	delete(p.invites, player)
	p.Members[player] = true
	pm.byMember[player] = p
	members := memberList(p)
	pm.mu.Unlock()

	pm.notify(members...)
	return p, nil
}

// Leave removes player from its party. A party left with one member is
// disbanded; a departing leader hands over to a remaining member.
func (pm *PartyManager) Leave(player bitpack.ObjectGUID) error {
	pm.mu.Lock()

	p, ok := pm.byMember[player]
	if !ok {
		pm.mu.Unlock()
		return ErrNotInParty
	}
	affected := memberList(p)

	delete(p.Members, player)
	delete(pm.byMember, player)
	if len(p.Members) <= 1 {
		for m := range p.Members {
			delete(pm.byMember, m)
		}
		delete(pm.parties, p.GUID)
	} else if p.Leader == player {
		for m := range p.Members {
			p.Leader = m
			break
		}
	}
	pm.mu.Unlock()

	pm.notify(affected...)
	return nil
}

func memberList(p *Party) []bitpack.ObjectGUID {
	out := make([]bitpack.ObjectGUID, 0, len(p.Members))
	for m := range p.Members {
		out = append(out, m)
	}
	return out
}

func (pm *PartyManager) notify(members ...bitpack.ObjectGUID) {
	if pm.onChange != nil {
		pm.onChange(false, members...)
	}
}

func (pm *PartyManager) notifyViewer(g bitpack.ObjectGUID) {
	if pm.onChange != nil {
		pm.onChange(true, g)
	}
}

// PartyOf returns the GUID of player's party.
func (pm *PartyManager) PartyOf(player bitpack.ObjectGUID) (bitpack.ObjectGUID, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	p, ok := pm.byMember[player]
	if !ok {
		return bitpack.EmptyGUID, false
	}
	return p.GUID, true
}

// SameParty reports whether a and b are grouped together.
func (pm *PartyManager) SameParty(a, b bitpack.ObjectGUID) bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	pa, ok := pm.byMember[a]
	return ok && pm.byMember[b] == pa
}

// SetGameMaster grants or revokes the game master view.
func (pm *PartyManager) SetGameMaster(g bitpack.ObjectGUID, on bool) {
	pm.mu.Lock()
	if on {
		pm.gms[g] = true
	} else {
		delete(pm.gms, g)
	}
	pm.mu.Unlock()
	pm.notifyViewer(g)
}

func (pm *PartyManager) IsGameMaster(g bitpack.ObjectGUID) bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.gms[g]
}

// SetEmpathy grants or revokes viewer's empathy view of target.
func (pm *PartyManager) SetEmpathy(viewer, target bitpack.ObjectGUID, on bool) {
	key := [2]bitpack.ObjectGUID{viewer, target}
	pm.mu.Lock()
	if on {
		pm.empathy[key] = true
	} else {
		delete(pm.empathy, key)
	}
	pm.mu.Unlock()
	pm.notifyViewer(viewer)
}

func (pm *PartyManager) HasEmpathy(viewer, target bitpack.ObjectGUID) bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.empathy[[2]bitpack.ObjectGUID{viewer, target}]
}

// Count returns the number of active parties.
func (pm *PartyManager) Count() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.parties)
}
