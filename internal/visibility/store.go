package visibility

import "sync"

// Faction group bits used by templates.
const (
	GroupPlayer   uint8 = 1 << 0
	GroupAlliance uint8 = 1 << 1
	GroupHorde    uint8 = 1 << 2
	GroupMonster  uint8 = 1 << 3
)

// FactionTemplate is the slice of faction data the value hooks need.
type FactionTemplate struct {
	ID         uint32
	Faction    uint32
	OurMask    uint8
	FriendMask uint8
	EnemyMask  uint8
}

// HostileTo reports whether either template counts the other as an enemy.
func (t FactionTemplate) HostileTo(other FactionTemplate) bool {
	if t.FriendMask&other.OurMask != 0 || other.FriendMask&t.OurMask != 0 {
		return false
	}
	return t.EnemyMask&other.OurMask != 0 || other.EnemyMask&t.OurMask != 0
}

// Store holds the content data the value hooks read. It is safe for
// concurrent use; lookups happen on the tick goroutine while the API may
// register content.
type Store struct {
	mu            sync.RWMutex
	factions      map[uint32]FactionTemplate
	triggerModels map[uint32]uint32 // invisible trigger model -> model shown to game masters
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		factions:      make(map[uint32]FactionTemplate),
		triggerModels: make(map[uint32]uint32),
	}
}

// DefaultStore returns a store seeded with the stock faction templates.
func DefaultStore() *Store {
	s := NewStore()
	for _, t := range []FactionTemplate{
		{ID: 1, Faction: 1, OurMask: GroupPlayer | GroupAlliance, FriendMask: GroupAlliance, EnemyMask: GroupHorde | GroupMonster},
		{ID: 2, Faction: 2, OurMask: GroupPlayer | GroupHorde, FriendMask: GroupHorde, EnemyMask: GroupAlliance | GroupMonster},
		{ID: 14, Faction: 14, OurMask: GroupMonster, EnemyMask: GroupPlayer},
		{ID: 35, Faction: 35},
		{ID: 84, Faction: 72, OurMask: GroupAlliance, FriendMask: GroupAlliance, EnemyMask: GroupHorde},
		{ID: 85, Faction: 76, OurMask: GroupHorde, FriendMask: GroupHorde, EnemyMask: GroupAlliance},
	} {
		s.AddFaction(t)
	}
	s.AddTriggerModel(11686, 1126)
	return s
}

// AddFaction registers or replaces a template.
func (s *Store) AddFaction(t FactionTemplate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factions[t.ID] = t
}

// Faction looks up a template by id.
func (s *Store) Faction(id uint32) (FactionTemplate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.factions[id]
	return t, ok
}

// AddTriggerModel registers the model game masters see in place of an
// invisible trigger model.
func (s *Store) AddTriggerModel(trigger, visible uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggerModels[trigger] = visible
}

// TriggerModel returns the visible stand-in for an invisible model.
func (s *Store) TriggerModel(trigger uint32) (uint32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.triggerModels[trigger]
	return m, ok
}
