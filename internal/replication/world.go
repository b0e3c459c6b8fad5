// Package replication drives update field synchronization: once per tick it
// decides what every observer should learn about the entities around it,
// assembles one packet per observer, and only then clears the changes.
package replication

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"fieldsync/internal/bitpack"
	"fieldsync/internal/config"
	"fieldsync/internal/entity"
	"fieldsync/internal/packet"
	"fieldsync/internal/updatefield"
	"fieldsync/internal/visibility"
)

var (
	ErrDuplicateEntity = errors.New("entity already spawned")
	ErrUnknownEntity   = errors.New("entity not found")
	ErrObserverExists  = errors.New("observer already registered")
)

// Sender delivers a finished packet to an observer's transport. It must not
// block the tick.
type Sender func(pkt []byte) error

// Observer is an entity that receives update packets.
type Observer struct {
	Entity *entity.Object
	send   Sender

	known   map[bitpack.ObjectGUID]struct{}
	refresh map[bitpack.ObjectGUID]bool
	inView  []*entity.Object
	inSet   map[bitpack.ObjectGUID]struct{}
	update  *packet.UpdateData
}

// Knows reports whether the observer has been sent a create for g.
func (o *Observer) Knows(g bitpack.ObjectGUID) bool {
	_, ok := o.known[g]
	return ok
}

type forcedUpdate struct {
	target bitpack.ObjectGUID
	kind   entity.Kind
	mask   *updatefield.BitMask
}

type relationChange struct {
	viewerWide bool
	members    []bitpack.ObjectGUID
}

// TickStats summarizes one tick.
type TickStats struct {
	Tick      uint64        `json:"tick"`
	Observers int           `json:"observers"`
	Packets   int           `json:"packets"`
	Bytes     int           `json:"bytes"`
	Creates   int           `json:"creates"`
	Values    int           `json:"values"`
	Removed   int           `json:"removed"`
	Duration  time.Duration `json:"durationNs"`
}

// World owns every replicated entity of one map and the observers watching
// them.
type World struct {
	mu  sync.Mutex
	cfg config.ReplicationConfig

	entities  map[bitpack.ObjectGUID]*entity.Object
	order     []*entity.Object
	ownedBy   map[bitpack.ObjectGUID][]*entity.Object
	despawned []bitpack.ObjectGUID
	forced    []forcedUpdate

	observers     map[bitpack.ObjectGUID]*Observer
	observerOrder []*Observer

	grid     *interestGrid
	parties  *PartyManager
	hooks    updatefield.Hooks
	policies updatefield.Policies
	journal  *Journal

	relMu      sync.Mutex
	relChanges []relationChange

	tickCount uint64
	lastTick  TickStats

	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}
}

// NewWorld creates an empty world. store supplies the content data of the
// value hooks.
func NewWorld(cfg config.ReplicationConfig, store *visibility.Store) *World {
	if cfg.TickRate <= 0 {
		cfg.TickRate = config.DefaultReplication().TickRate
	}
	if cfg.ViewDistance <= 0 {
		cfg.ViewDistance = config.DefaultReplication().ViewDistance
	}
	if cfg.WorldSize < cfg.ViewDistance {
		cfg.WorldSize = cfg.ViewDistance
	}

	w := &World{
		cfg:       cfg,
		entities:  make(map[bitpack.ObjectGUID]*entity.Object),
		ownedBy:   make(map[bitpack.ObjectGUID][]*entity.Object),
		observers: make(map[bitpack.ObjectGUID]*Observer),
		grid:      newInterestGrid(cfg.WorldSize, cfg.ViewDistance, 1024),
		parties:   NewPartyManager(),
		journal:   NewJournal(),
		stopChan:  make(chan struct{}),
	}
	if cfg.QuestLogFullResend {
		w.policies.QuestLog = updatefield.FullResend
	}
	w.hooks = visibility.DefaultHooks(store, w.parties)
	w.parties.onChange = w.queueRelationChange
	return w
}

// Parties returns the party manager, which also answers the world's
// visibility relationship questions.
func (w *World) Parties() *PartyManager { return w.parties }

// Journal returns the decision journal.
func (w *World) Journal() *Journal { return w.journal }

// MapID returns the map this world replicates.
func (w *World) MapID() uint32 { return w.cfg.MapID }

// Start begins the tick loop and the journal writer.
func (w *World) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.journal.Start(w.cfg.JournalPath); err != nil {
		return fmt.Errorf("start journal: %w", err)
	}

	w.ticker = time.NewTicker(time.Second / time.Duration(w.cfg.TickRate))
	go func() {
		for {
			select {
			case <-w.ticker.C:
				w.Tick()
			case <-w.stopChan:
				return
			}
		}
	}()

	log.Printf("🌐 Replication world started at %d TPS (map %d)", w.cfg.TickRate, w.cfg.MapID)
	return nil
}

// Stop stops the tick loop and flushes the journal.
func (w *World) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	if w.ticker != nil {
		w.ticker.Stop()
	}
	close(w.stopChan)
	w.mu.Unlock()

	w.journal.Stop()
	log.Println("🛑 Replication world stopped")
}

// Mutate runs fn while no tick is in progress. Game logic changes fields
// through it.
func (w *World) Mutate(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn()
}

// Entity returns a spawned entity. Callers outside Mutate must not change it.
func (w *World) Entity(g bitpack.ObjectGUID) (*entity.Object, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	o, ok := w.entities[g]
	return o, ok
}

func positionless(o *entity.Object) bool {
	k := o.TypeKind()
	return k == entity.KindItem || k == entity.KindContainer
}

// Spawn adds o to the world. Items and bags have no position; they are in
// view of their owner only.
func (w *World) Spawn(o *entity.Object) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.spawnLocked(o)
}

func (w *World) spawnLocked(o *entity.Object) error {
	g := o.GUID()
	if _, ok := w.entities[g]; ok {
		return fmt.Errorf("%w: %v", ErrDuplicateEntity, g)
	}
	w.entities[g] = o
	if positionless(o) {
		w.ownedBy[o.OwnerGUID()] = append(w.ownedBy[o.OwnerGUID()], o)
	} else {
		w.order = append(w.order, o)
	}
	entitiesActive.Set(float64(len(w.entities)))
	return nil
}

// Despawn removes an entity. Observers that knew it receive a destroy on
// the next tick. Despawning an observer's entity also removes the observer.
func (w *World) Despawn(g bitpack.ObjectGUID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.despawnLocked(g)
}

func (w *World) despawnLocked(g bitpack.ObjectGUID) error {
	o, ok := w.entities[g]
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownEntity, g)
	}
	delete(w.entities, g)
	if positionless(o) {
		owner := o.OwnerGUID()
		w.ownedBy[owner] = removeObject(w.ownedBy[owner], o)
		if len(w.ownedBy[owner]) == 0 {
			delete(w.ownedBy, owner)
		}
	} else {
		w.order = removeObject(w.order, o)
	}
	w.despawned = append(w.despawned, g)
	if _, ok := w.observers[g]; ok {
		w.removeObserverLocked(g)
	}
	entitiesActive.Set(float64(len(w.entities)))
	return nil
}

func removeObject(list []*entity.Object, o *entity.Object) []*entity.Object {
	for i, e := range list {
		if e == o {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// AddObserver starts sending packets about o's surroundings through send.
// o must already be spawned.
func (w *World) AddObserver(o *entity.Object, send Sender) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	g := o.GUID()
	if w.entities[g] != o {
		return fmt.Errorf("%w: %v", ErrUnknownEntity, g)
	}
	if _, ok := w.observers[g]; ok {
		return fmt.Errorf("%w: %v", ErrObserverExists, g)
	}

	obs := &Observer{
		Entity:  o,
		send:    send,
		known:   make(map[bitpack.ObjectGUID]struct{}),
		refresh: make(map[bitpack.ObjectGUID]bool),
		inSet:   make(map[bitpack.ObjectGUID]struct{}),
		update:  packet.NewUpdateData(w.cfg.MapID),
	}
	w.observers[g] = obs
	w.observerOrder = append(w.observerOrder, obs)
	observersActive.Set(float64(len(w.observers)))
	log.Printf("👁️ Observer %v joined (%d watching)", g, len(w.observers))
	return nil
}

// RemoveObserver stops sending packets to g. The entity stays spawned.
func (w *World) RemoveObserver(g bitpack.ObjectGUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.removeObserverLocked(g)
}

func (w *World) removeObserverLocked(g bitpack.ObjectGUID) {
	obs, ok := w.observers[g]
	if !ok {
		return
	}
	delete(w.observers, g)
	for i, o := range w.observerOrder {
		if o == obs {
			w.observerOrder = append(w.observerOrder[:i], w.observerOrder[i+1:]...)
			break
		}
	}
	observersActive.Set(float64(len(w.observers)))
	log.Printf("👋 Observer %v left (%d watching)", g, len(w.observers))
}

// Observer returns the registered observer for g.
func (w *World) Observer(g bitpack.ObjectGUID) (*Observer, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	obs, ok := w.observers[g]
	return obs, ok
}

// ForceUpdate sends the fields of kind selected in mask to every observer
// that knows target on the next tick, changed or not.
func (w *World) ForceUpdate(target bitpack.ObjectGUID, kind entity.Kind, mask *updatefield.BitMask) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	o, ok := w.entities[target]
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownEntity, target)
	}
	if !o.Values.Has(kind) {
		return fmt.Errorf("%v does not carry %v", target, kind)
	}
	w.forced = append(w.forced, forcedUpdate{target: target, kind: kind, mask: mask.Clone()})
	return nil
}

func (w *World) queueRelationChange(viewerWide bool, members ...bitpack.ObjectGUID) {
	w.relMu.Lock()
	w.relChanges = append(w.relChanges, relationChange{viewerWide: viewerWide, members: members})
	w.relMu.Unlock()
}

// applyRelationChanges schedules a fresh create for every known entity
// whose restricted fields an observer may now see differently.
func (w *World) applyRelationChanges() {
	w.relMu.Lock()
	changes := w.relChanges
	w.relChanges = nil
	w.relMu.Unlock()

	for _, c := range changes {
		members := make(map[bitpack.ObjectGUID]bool, len(c.members))
		for _, m := range c.members {
			members[m] = true
		}
		for _, m := range c.members {
			obs, ok := w.observers[m]
			if !ok {
				continue
			}
			for g := range obs.known {
				if c.viewerWide {
					obs.refresh[g] = true
					continue
				}
				if e, ok := w.entities[g]; ok && members[controllerOf(e)] {
					obs.refresh[g] = true
				}
			}
		}
	}
}

func controllerOf(o *entity.Object) bitpack.ObjectGUID {
	if owner := o.OwnerGUID(); !owner.IsEmpty() {
		return owner
	}
	return o.GUID()
}

func (w *World) contextFor(target, viewer *entity.Object) *updatefield.ViewerContext {
	return &updatefield.ViewerContext{
		Owner:    target,
		Receiver: viewer,
		Flags:    visibility.FlagsFor(target, viewer, w.parties),
		Hooks:    w.hooks,
		Policies: w.policies,
	}
}

// Tick serves every observer and then clears all changes. Clearing only
// after the last observer keeps the dirty state identical for everyone.
func (w *World) Tick() TickStats {
	start := time.Now()
	w.mu.Lock()
	defer w.mu.Unlock()

	w.tickCount++
	st := TickStats{Tick: w.tickCount, Observers: len(w.observerOrder)}

	w.applyRelationChanges()

	w.grid.clear()
	for i, o := range w.order {
		w.grid.insert(uint32(i), o.Position)
	}

	for _, obs := range w.observerOrder {
		w.serve(obs, &st)
	}

	for _, o := range w.entities {
		o.Values.ClearAll()
		o.SettleSpawn()
	}
	w.despawned = w.despawned[:0]
	w.forced = w.forced[:0]

	st.Duration = time.Since(start)
	w.lastTick = st
	tickDuration.Observe(st.Duration.Seconds())
	if budget := time.Second / time.Duration(w.cfg.TickRate); st.Duration > budget {
		log.Printf("⚠️ Tick %d took %v (budget %v)", st.Tick, st.Duration, budget)
	}
	return st
}

// collectInView fills obs.inView with the observer itself, its items and
// every entity within view distance.
func (w *World) collectInView(obs *Observer) {
	self := obs.Entity
	obs.inView = obs.inView[:0]
	clear(obs.inSet)

	add := func(o *entity.Object) {
		if _, ok := obs.inSet[o.GUID()]; ok {
			return
		}
		obs.inSet[o.GUID()] = struct{}{}
		obs.inView = append(obs.inView, o)
	}

	add(self)
	for _, o := range w.ownedBy[self.GUID()] {
		add(o)
	}

	r := w.cfg.ViewDistance
	center := self.Position
	for _, idx := range w.grid.query(center, r) {
		o := w.order[idx]
		d := o.Position.Sub(center)
		if d.X()*d.X()+d.Y()*d.Y() <= r*r {
			add(o)
		}
	}
}

func (w *World) serve(obs *Observer, st *TickStats) {
	ud := obs.update
	ud.Reset()
	self := obs.Entity
	observerID := self.GUID().String()

	for _, g := range w.despawned {
		if _, ok := obs.known[g]; ok {
			ud.AddDestroyObject(g)
			delete(obs.known, g)
			delete(obs.refresh, g)
			removals.WithLabelValues("destroy").Inc()
			st.Removed++
			w.journal.Record(JournalEntry{Tick: w.tickCount, Decision: DecisionDestroy, Observer: observerID, Target: g.String()})
		}
	}

	w.collectInView(obs)

	for _, o := range obs.inView {
		g := o.GUID()
		ctx := w.contextFor(o, self)
		_, known := obs.known[g]

		var block []byte
		switch {
		case !known:
			block = o.BuildCreateBlock(ctx)
			obs.known[g] = struct{}{}
			st.Creates++
			w.journal.Record(JournalEntry{Tick: w.tickCount, Decision: DecisionCreate, Observer: observerID, Target: g.String(), Bytes: len(block)})
		case obs.refresh[g]:
			block = o.BuildCreateBlock(ctx)
			st.Creates++
			w.journal.Record(JournalEntry{Tick: w.tickCount, Decision: DecisionRefresh, Observer: observerID, Target: g.String(), Bytes: len(block)})
		default:
			block = o.BuildValuesBlock(ctx)
			if block != nil {
				st.Values++
			}
			for _, f := range w.forced {
				if f.target == g {
					w.addBlock(obs, o.ForceValuesUpdate(f.kind, f.mask, ctx), st)
				}
			}
		}
		w.addBlock(obs, block, st)
	}
	clear(obs.refresh)

	for g := range obs.known {
		if _, ok := obs.inSet[g]; !ok {
			ud.AddOutOfRangeObject(g)
			delete(obs.known, g)
			removals.WithLabelValues("out_of_range").Inc()
			st.Removed++
			w.journal.Record(JournalEntry{Tick: w.tickCount, Decision: DecisionOutOfRange, Observer: observerID, Target: g.String()})
		}
	}

	w.flush(obs, st)
}

func (w *World) addBlock(obs *Observer, block []byte, st *TickStats) {
	if block == nil {
		return
	}
	ud := obs.update
	if w.cfg.MaxPacketBytes > 0 && ud.BlockCount() > 0 && ud.Len()+len(block) > w.cfg.MaxPacketBytes {
		w.flush(obs, st)
	}
	ud.AddUpdateBlock(block)
	updateBlocks.WithLabelValues(packet.UpdateType(block[0]).String()).Inc()
}

func (w *World) flush(obs *Observer, st *TickStats) {
	ud := obs.update
	if !ud.HasData() {
		return
	}
	pkt := ud.BuildPacket()
	ud.Reset()

	if err := obs.send(pkt); err != nil {
		sendFailures.Inc()
		return
	}
	packetsSent.Inc()
	packetBytes.Observe(float64(len(pkt)))
	st.Packets++
	st.Bytes += len(pkt)
}

// EntitySummary describes an entity for the API.
type EntitySummary struct {
	GUID     string     `json:"guid"`
	Kind     string     `json:"kind"`
	Owner    string     `json:"owner,omitempty"`
	Position [3]float32 `json:"position"`
}

// Entities lists every spawned entity in spawn order, items last.
func (w *World) Entities() []EntitySummary {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]EntitySummary, 0, len(w.entities))
	summarize := func(o *entity.Object) {
		s := EntitySummary{
			GUID:     o.GUID().String(),
			Kind:     o.TypeKind().String(),
			Position: [3]float32(o.Position),
		}
		if owner := o.OwnerGUID(); !owner.IsEmpty() {
			s.Owner = owner.String()
		}
		out = append(out, s)
	}
	for _, o := range w.order {
		summarize(o)
	}
	for _, items := range w.ownedBy {
		for _, o := range items {
			summarize(o)
		}
	}
	return out
}

// Stats is the world summary served by the stats endpoint.
type Stats struct {
	MapID     uint32       `json:"mapId"`
	Ticks     uint64       `json:"ticks"`
	Entities  int          `json:"entities"`
	Observers int          `json:"observers"`
	Parties   int          `json:"parties"`
	LastTick  TickStats    `json:"lastTick"`
	Grid      gridStats    `json:"grid"`
	Journal   JournalStats `json:"journal"`
}

func (w *World) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{
		MapID:     w.cfg.MapID,
		Ticks:     w.tickCount,
		Entities:  len(w.entities),
		Observers: len(w.observers),
		Parties:   w.parties.Count(),
		LastTick:  w.lastTick,
		Grid:      w.grid.stats(),
		Journal:   w.journal.Stats(),
	}
}
