package visibility

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"fieldsync/internal/bitpack"
	"fieldsync/internal/fields"
	"fieldsync/internal/updatefield"
)

// Flag bits the default hooks rewrite.
const (
	DynFlagLootable uint32 = 0x0004
	DynFlagTapped   uint32 = 0x0008

	UnitFlagUninteractible uint32 = 0x02000000
	UnitFlag2FeignDeath    uint32 = 0x00000001
	UnitFlag3Untargetable  uint32 = 0x00000100

	NpcFlagGossip     uint32 = 0x00000001
	NpcFlagQuestGiver uint32 = 0x00000002
	NpcFlagVendor     uint32 = 0x00000080
	NpcFlagTrainer    uint32 = 0x00000010

	GameObjectFlagNotSelectable uint32 = 0x00000010

	npcInteractionFlags = NpcFlagGossip | NpcFlagQuestGiver | NpcFlagVendor | NpcFlagTrainer
)

// FactionMember exposes the faction template an entity currently uses.
type FactionMember interface {
	FactionTemplateID() uint32
}

// Tappable is implemented by entities whose loot is claimed by a player.
type Tappable interface {
	TappedBy() bitpack.ObjectGUID
}

// Localized is implemented by observers with a client locale.
type Localized interface {
	Locale() string
}

// LineTimed is implemented by conversations whose line timings depend on
// the locale of the voice-over.
type LineTimed interface {
	LastLineEndTime(locale string) (uint32, bool)
}

var (
	hookFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldsync_hook_fallbacks_total",
		Help: "Value hooks that fell back to the stored value because content data was missing",
	}, []string{"hook"}) // bounded: one label value per hook id

	// Missing content repeats every tick for every viewer; keep the log readable.
	warnLimiter = rate.NewLimiter(rate.Every(time.Second), 5)
)

func fallback(id updatefield.HookID, format string, args ...any) {
	hookFallbacks.WithLabelValues(fields.HookNames[id]).Inc()
	if warnLimiter.Allow() {
		log.Printf("⚠️ "+format, args...)
	}
}

func guidOf(e updatefield.Entity) bitpack.ObjectGUID {
	if s, ok := e.(Subject); ok {
		return controllerOf(s)
	}
	return e.GUID()
}

// DefaultHooks returns the stock value hooks. Missing content data is
// logged and the stored value is sent unchanged.
func DefaultHooks(store *Store, rel Relations) updatefield.Hooks {
	if rel == nil {
		rel = NoRelations{}
	}
	h := &hookSet{store: store, rel: rel}
	return updatefield.Hooks{
		fields.HookObjectDynamicFlags: h.dynamicFlags,
		fields.HookUnitFlags:          h.unitFlags,
		fields.HookUnitFlags2:         h.unitFlags2,
		fields.HookUnitFlags3:         h.unitFlags3,
		fields.HookFactionTemplate:    h.factionTemplate,
		fields.HookNpcFlags:           h.npcFlags,
		fields.HookDisplayID:          h.displayID,
		fields.HookGameObjectFlags:    h.gameObjectFlags,

		fields.HookConversationLastLineEndTime: h.lastLineEndTime,
	}
}

type hookSet struct {
	store *Store
	rel   Relations
}

// dynamicFlags shows the tapped state to everyone but the tapper's group,
// who instead keep the lootable bit.
func (h *hookSet) dynamicFlags(stored uint32, owner, viewer updatefield.Entity) uint32 {
	t, ok := owner.(Tappable)
	if !ok {
		return stored
	}
	tapper := t.TappedBy()
	if tapper.IsEmpty() {
		return stored &^ DynFlagTapped
	}
	v := viewer.GUID()
	if v == tapper || h.rel.SameParty(tapper, v) {
		return stored &^ DynFlagTapped
	}
	return (stored | DynFlagTapped) &^ DynFlagLootable
}

// unitFlags lets game masters interact with everything.
func (h *hookSet) unitFlags(stored uint32, owner, viewer updatefield.Entity) uint32 {
	if h.rel.IsGameMaster(viewer.GUID()) {
		return stored &^ UnitFlagUninteractible
	}
	return stored
}

// unitFlags2 hides feign death from the unit's own side.
func (h *hookSet) unitFlags2(stored uint32, owner, viewer updatefield.Entity) uint32 {
	controller, v := guidOf(owner), viewer.GUID()
	if controller == v || h.rel.SameParty(controller, v) {
		return stored &^ UnitFlag2FeignDeath
	}
	return stored
}

func (h *hookSet) unitFlags3(stored uint32, owner, viewer updatefield.Entity) uint32 {
	if h.rel.IsGameMaster(viewer.GUID()) {
		return stored &^ UnitFlag3Untargetable
	}
	return stored
}

// factionTemplate shows cross-faction party members as the viewer's own
// faction so they can be targeted as friends.
func (h *hookSet) factionTemplate(stored uint32, owner, viewer updatefield.Entity) uint32 {
	if !h.rel.SameParty(guidOf(owner), guidOf(viewer)) {
		return stored
	}
	vm, ok := viewer.(FactionMember)
	if !ok {
		return stored
	}
	ownerTpl, ok := h.store.Faction(stored)
	if !ok {
		fallback(fields.HookFactionTemplate, "Unknown faction template %d on %v", stored, owner.GUID())
		return stored
	}
	viewerTpl, ok := h.store.Faction(vm.FactionTemplateID())
	if !ok {
		fallback(fields.HookFactionTemplate, "Unknown faction template %d on viewer %v", vm.FactionTemplateID(), viewer.GUID())
		return stored
	}
	if ownerTpl.HostileTo(viewerTpl) {
		return viewerTpl.ID
	}
	return stored
}

// npcFlags strips interaction flags for viewers hostile to the npc.
func (h *hookSet) npcFlags(stored uint32, owner, viewer updatefield.Entity) uint32 {
	if stored&npcInteractionFlags == 0 {
		return stored
	}
	om, ok1 := owner.(FactionMember)
	vm, ok2 := viewer.(FactionMember)
	if !ok1 || !ok2 {
		return stored
	}
	ownerTpl, ok := h.store.Faction(om.FactionTemplateID())
	if !ok {
		fallback(fields.HookNpcFlags, "Unknown faction template %d on %v", om.FactionTemplateID(), owner.GUID())
		return stored
	}
	viewerTpl, ok := h.store.Faction(vm.FactionTemplateID())
	if !ok {
		fallback(fields.HookNpcFlags, "Unknown faction template %d on viewer %v", vm.FactionTemplateID(), viewer.GUID())
		return stored
	}
	if ownerTpl.HostileTo(viewerTpl) {
		return stored &^ npcInteractionFlags
	}
	return stored
}

// displayID swaps invisible trigger models for a visible one for game masters.
func (h *hookSet) displayID(stored uint32, owner, viewer updatefield.Entity) uint32 {
	if !h.rel.IsGameMaster(viewer.GUID()) {
		return stored
	}
	if m, ok := h.store.TriggerModel(stored); ok {
		return m
	}
	return stored
}

func (h *hookSet) gameObjectFlags(stored uint32, owner, viewer updatefield.Entity) uint32 {
	if h.rel.IsGameMaster(viewer.GUID()) {
		return stored &^ GameObjectFlagNotSelectable
	}
	return stored
}

// lastLineEndTime reports the end of the last line in the viewer's locale.
func (h *hookSet) lastLineEndTime(stored uint32, owner, viewer updatefield.Entity) uint32 {
	c, ok := owner.(LineTimed)
	if !ok {
		return stored
	}
	l, ok := viewer.(Localized)
	if !ok {
		return stored
	}
	if t, ok := c.LastLineEndTime(l.Locale()); ok {
		return t
	}
	fallback(fields.HookConversationLastLineEndTime, "No line timings for locale %q on %v", l.Locale(), owner.GUID())
	return stored
}
