// Package demo populates a world with simulated entities whose fields change
// every step, so connected observers have something to watch.
package demo

import (
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"fieldsync/internal/bitpack"
	"fieldsync/internal/config"
	"fieldsync/internal/entity"
	"fieldsync/internal/replication"
	"fieldsync/internal/visibility"
)

const (
	respawnSteps      = 50
	forceEvery        = 100
	partyShuffleEvery = 200
	playerCount       = 4
	wanderSpeed       = 4
)

// Faction templates from visibility.DefaultStore.
const (
	factionAlliance = 1
	factionHorde    = 2
	factionMonster  = 14
	factionNeutral  = 35
)

// Trigger model swapped for a visible one for game masters.
const triggerDisplayID = 11686

type creature struct {
	o         *entity.Object
	home      mgl32.Vec3
	vel       mgl32.Vec3
	respawnIn int
}

// Simulation owns the simulated entities. Step mutates them through the
// world so changes never race a tick.
type Simulation struct {
	world     *replication.World
	cfg       config.DemoConfig
	worldSize float32
	tickRate  int
	rng       *rand.Rand

	creatures    []*creature
	players      []*entity.Object
	chest        *entity.Object
	conversation *entity.Object
	counter      uint64
	steps        uint64

	mu       sync.Mutex
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}
}

// New creates a simulation for world. Nothing is spawned until Populate.
func New(world *replication.World, cfg config.DemoConfig, rcfg config.ReplicationConfig) *Simulation {
	if rcfg.TickRate <= 0 {
		rcfg.TickRate = config.DefaultReplication().TickRate
	}
	return &Simulation{
		world:     world,
		cfg:       cfg,
		worldSize: rcfg.WorldSize,
		tickRate:  rcfg.TickRate,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		stopChan:  make(chan struct{}),
	}
}

func (s *Simulation) nextGUID(t bitpack.HighType, entry uint32) bitpack.ObjectGUID {
	s.counter++
	return bitpack.MakeGUID(t, entry, s.counter)
}

func (s *Simulation) randomPos() mgl32.Vec3 {
	return mgl32.Vec3{s.rng.Float32() * s.worldSize, s.rng.Float32() * s.worldSize, 0}
}

// Populate spawns creatures, a handful of players with items, and one of
// each remaining entity type near the world center.
func (s *Simulation) Populate() error {
	for i := 0; i < s.cfg.Creatures; i++ {
		entry := uint32(299 + s.rng.Intn(20))
		pos := s.randomPos()
		o := entity.NewCreature(s.nextGUID(bitpack.HighCreature, entry), int32(entry), pos)

		u := o.Values.Unit
		level := int32(1 + s.rng.Intn(60))
		u.Level.Set(level)
		u.MaxHealth.Set(int64(100 + level*20))
		u.Health.Set(u.MaxHealth.Get())
		u.DisplayID.Set(int32(1000 + entry))
		if i%5 == 0 {
			u.FactionTemplate.Set(factionNeutral)
			u.NpcFlags.Set(visibility.NpcFlagGossip | visibility.NpcFlagVendor)
		} else {
			u.FactionTemplate.Set(factionMonster)
		}
		if i%17 == 0 {
			u.DisplayID.Set(triggerDisplayID)
			u.Flags.Set(visibility.UnitFlagUninteractible)
		}

		if err := s.world.Spawn(o); err != nil {
			return err
		}
		s.creatures = append(s.creatures, &creature{o: o, home: pos})
	}

	center := mgl32.Vec3{s.worldSize / 2, s.worldSize / 2, 0}
	for i := 0; i < playerCount; i++ {
		pos := center.Add(mgl32.Vec3{float32(i) * 10, 0, 0})
		p := entity.NewPlayer(s.nextGUID(bitpack.HighPlayer, 0), pos)
		p.Values.Unit.Level.Set(int32(10 + i))
		p.Values.Unit.MaxHealth.Set(500)
		p.Values.Unit.Health.Set(500)
		if i%2 == 0 {
			p.Values.Unit.FactionTemplate.Set(factionAlliance)
		} else {
			p.Values.Unit.FactionTemplate.Set(factionHorde)
		}
		p.Values.ActivePlayer.Coinage.Set(uint64(s.rng.Intn(10000)))
		if err := s.world.Spawn(p); err != nil {
			return err
		}
		s.players = append(s.players, p)

		bag := entity.NewContainer(s.nextGUID(bitpack.HighItem, 0), p.GUID(), 4500, 16)
		sword := entity.NewItem(s.nextGUID(bitpack.HighItem, 0), p.GUID(), 2500)
		sword.Values.Item.MaxDurability.Set(100)
		sword.Values.Item.Durability.Set(100)
		for _, it := range []*entity.Object{bag, sword} {
			if err := s.world.Spawn(it); err != nil {
				return err
			}
		}
	}

	// One party with an Alliance and a Horde member, so faction rewriting
	// shows up between them.
	leader, member := s.players[0].GUID(), s.players[1].GUID()
	if err := s.world.Parties().Invite(leader, member); err != nil {
		return err
	}
	if _, err := s.world.Parties().Join(member, leader); err != nil {
		return err
	}

	caster := s.players[0].GUID()
	s.chest = entity.NewGameObject(s.nextGUID(bitpack.HighGameObject, 2843), 2843, center.Add(mgl32.Vec3{0, 20, 0}))
	s.chest.Values.GameObject.Flags.Set(visibility.GameObjectFlagNotSelectable)
	s.chest.Values.GameObject.State.Set(1)

	zone := entity.NewDynamicObject(s.nextGUID(bitpack.HighDynamicObject, 0), caster, center.Add(mgl32.Vec3{-15, 0, 0}))
	zone.Values.DynamicObject.SpellID.Set(10)
	zone.Values.DynamicObject.Radius.Set(8)

	trigger := entity.NewAreaTrigger(s.nextGUID(bitpack.HighAreaTrigger, 0), caster, center.Add(mgl32.Vec3{0, -20, 0}))
	scene := entity.NewSceneObject(s.nextGUID(bitpack.HighSceneObject, 0), caster, center.Add(mgl32.Vec3{5, 5, 0}))

	s.conversation = entity.NewConversation(s.nextGUID(bitpack.HighConversation, 0), caster, center.Add(mgl32.Vec3{-5, 5, 0}))
	s.conversation.SetLastLineEndTime("enUS", 12000, true)
	s.conversation.SetLastLineEndTime("deDE", 13500, false)

	corpse := entity.NewCorpse(s.nextGUID(bitpack.HighCorpse, 0), s.players[2].GUID(), center.Add(mgl32.Vec3{25, 25, 0}))
	corpse.Values.Corpse.FactionTemplate.Set(factionAlliance)

	for _, o := range []*entity.Object{s.chest, zone, trigger, scene, s.conversation, corpse} {
		if err := s.world.Spawn(o); err != nil {
			return err
		}
	}

	log.Printf("🐺 Demo populated: %d creatures, %d players (seed %d)", len(s.creatures), len(s.players), s.cfg.Seed)
	return nil
}

// Step advances the simulation by one tick.
func (s *Simulation) Step() {
	dt := float32(1) / float32(s.tickRate)
	var forced *entity.Object

	s.world.Mutate(func() {
		s.steps++
		for _, c := range s.creatures {
			s.stepCreature(c, dt)
		}
		for _, p := range s.players {
			s.stepPlayer(p)
		}
		if s.steps%20 == 0 {
			s.chest.Values.GameObject.State.Set(int8(s.steps / 20 % 2))
		}
		if s.steps%forceEvery == 0 && len(s.creatures) > 0 {
			forced = s.creatures[s.rng.Intn(len(s.creatures))].o
		}
	})

	// Outside Mutate: both calls take their own locks.
	if forced != nil {
		m := entity.NewMask(entity.KindUnit)
		forced.Values.Unit.Level.Select(m)
		forced.Values.Unit.MaxHealth.Select(m)
		if err := s.world.ForceUpdate(forced.GUID(), entity.KindUnit, m); err != nil {
			log.Printf("⚠️ Forced update of %v failed: %v", forced.GUID(), err)
		}
	}
	if s.steps%partyShuffleEvery == 0 {
		s.shuffleParty()
	}
}

// stepCreature wanders, fights and respawns one creature.
func (s *Simulation) stepCreature(c *creature, dt float32) {
	u := c.o.Values.Unit

	if c.respawnIn > 0 {
		c.respawnIn--
		if c.respawnIn == 0 {
			c.o.Position = c.home
			c.o.SetTappedBy(bitpack.EmptyGUID)
			c.o.Values.Object.DynamicFlags.Set(0)
			u.Health.Set(u.MaxHealth.Get())
		}
		return
	}

	// Occasional random impulse with a pull towards home
	if s.rng.Float32() < 0.05 {
		angle := s.rng.Float64() * math.Pi * 2
		c.vel = mgl32.Vec3{float32(math.Cos(angle)), float32(math.Sin(angle)), 0}.Mul(wanderSpeed)
	}
	if d := c.home.Sub(c.o.Position); d.Len() > 50 {
		c.vel = d.Normalize().Mul(wanderSpeed)
	}
	c.o.Position = s.clamp(c.o.Position.Add(c.vel.Mul(dt)))
	c.o.Facing = float32(math.Atan2(float64(c.vel.Y()), float64(c.vel.X())))

	if s.rng.Float32() < 0.02 {
		dmg := int64(5 + s.rng.Intn(30))
		hp := u.Health.Get() - dmg
		if hp <= 0 {
			u.Health.Set(0)
			c.o.Values.Object.DynamicFlags.Set(visibility.DynFlagLootable)
			c.o.SetTappedBy(s.players[s.rng.Intn(len(s.players))].GUID())
			c.respawnIn = respawnSteps
			return
		}
		u.Health.Set(hp)
	}
}

func (s *Simulation) stepPlayer(p *entity.Object) {
	u := p.Values.Unit
	if hp := u.Health.Get(); hp < u.MaxHealth.Get() {
		u.Health.Set(min(hp+5, u.MaxHealth.Get()))
	}
	if s.rng.Float32() < 0.1 {
		u.Power.Set(0, int32(s.rng.Intn(100)))
	}
	if s.rng.Float32() < 0.01 {
		p.Values.ActivePlayer.Coinage.Set(p.Values.ActivePlayer.Coinage.Get() + uint64(s.rng.Intn(50)))
	}
}

func (s *Simulation) clamp(p mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{
		mgl32.Clamp(p.X(), 0, s.worldSize),
		mgl32.Clamp(p.Y(), 0, s.worldSize),
		p.Z(),
	}
}

// shuffleParty moves the third player in or out of the demo party.
func (s *Simulation) shuffleParty() {
	parties := s.world.Parties()
	leader, third := s.players[0].GUID(), s.players[2].GUID()
	if parties.SameParty(leader, third) {
		if err := parties.Leave(third); err != nil {
			log.Printf("⚠️ Demo party leave failed: %v", err)
		}
		return
	}
	if err := parties.Invite(leader, third); err != nil {
		log.Printf("⚠️ Demo party invite failed: %v", err)
		return
	}
	if _, err := parties.Join(third, leader); err != nil {
		log.Printf("⚠️ Demo party join failed: %v", err)
	}
}

// Start steps the simulation at the world's tick rate.
func (s *Simulation) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.ticker = time.NewTicker(time.Second / time.Duration(s.tickRate))
	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.Step()
			case <-s.stopChan:
				return
			}
		}
	}()
	log.Printf("🎮 Demo simulation started at %d TPS", s.tickRate)
}

// Stop stops stepping.
func (s *Simulation) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.ticker.Stop()
	close(s.stopChan)
	log.Println("🛑 Demo simulation stopped")
}

// Players returns the simulated players.
func (s *Simulation) Players() []*entity.Object { return s.players }
