// Package fields declares the concrete update field schemas carried by
// replicated entities, and the sub-records embedded in them.
//
// Every record follows the same shape: a package-level schema, a
// constructor that lays the fields out in wire order, WriteCreate for the
// full snapshot and WriteUpdate for the masked diff. Top-level records take
// the viewer's allowed mask and context; embedded records are written in
// full or by their own mask.
package fields

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"fieldsync/internal/bitpack"
	"fieldsync/internal/updatefield"
)

// Hook ids of the fields whose value is rewritten per viewer.
const (
	HookObjectDynamicFlags updatefield.HookID = iota + 1
	HookUnitFlags
	HookUnitFlags2
	HookUnitFlags3
	HookFactionTemplate
	HookNpcFlags
	HookDisplayID
	HookGameObjectFlags
	HookConversationLastLineEndTime
)

// HookNames maps hook ids to readable names for the schema listing.
var HookNames = map[updatefield.HookID]string{
	HookObjectDynamicFlags:          "ObjectData.DynamicFlags",
	HookUnitFlags:                   "UnitData.Flags",
	HookUnitFlags2:                  "UnitData.Flags2",
	HookUnitFlags3:                  "UnitData.Flags3",
	HookFactionTemplate:             "FactionTemplate",
	HookNpcFlags:                    "UnitData.NpcFlags",
	HookDisplayID:                   "UnitData.DisplayID",
	HookGameObjectFlags:             "GameObjectData.Flags",
	HookConversationLastLineEndTime: "ConversationData.LastLineEndTime",
}

// Bit widths of string and list length prefixes.
const (
	listLengthBits = 32
	shortListBits  = 6
	nameLengthBits = 7
)

func writeVec2(w *bitpack.Writer, v mgl32.Vec2) {
	w.WriteFloat32(v[0])
	w.WriteFloat32(v[1])
}

func readVec2(r *bitpack.Reader) mgl32.Vec2 {
	return mgl32.Vec2{r.ReadFloat32(), r.ReadFloat32()}
}

func writeVec3(w *bitpack.Writer, v mgl32.Vec3) {
	w.WriteFloat32(v[0])
	w.WriteFloat32(v[1])
	w.WriteFloat32(v[2])
}

func writeQuat(w *bitpack.Writer, q mgl32.Quat) {
	w.WriteFloat32(q.V[0])
	w.WriteFloat32(q.V[1])
	w.WriteFloat32(q.V[2])
	w.WriteFloat32(q.W)
}

// hooked returns the value a viewer sees for a rewritten field: zero when
// the field is masked out, otherwise the hook applied to the stored value.
func hooked(ctx *updatefield.ViewerContext, id updatefield.HookID, f *updatefield.Scalar[uint32], allowed *updatefield.BitMask) uint32 {
	if !updatefield.Permits(allowed, f.Bit()) {
		return 0
	}
	return ctx.Rewrite(id, f.Get())
}

func hookedInt(ctx *updatefield.ViewerContext, id updatefield.HookID, f *updatefield.Scalar[int32], allowed *updatefield.BitMask) int32 {
	if !updatefield.Permits(allowed, f.Bit()) {
		return 0
	}
	return int32(ctx.Rewrite(id, uint32(f.Get())))
}

var publishOnce sync.Once

// Schemas returns every top-level schema in kind order, with their
// visibility masks published.
func Schemas() []*updatefield.Schema {
	publishOnce.Do(func() {
		NewObjectData()
		NewItemData()
		NewContainerData()
		NewUnitData()
		NewPlayerData()
		NewActivePlayerData()
		NewGameObjectData()
		NewDynamicObjectData()
		NewCorpseData()
		NewAreaTriggerData()
		NewSceneObjectData()
		NewConversationData()
	})
	return []*updatefield.Schema{
		objectDataSchema,
		itemDataSchema,
		containerDataSchema,
		unitDataSchema,
		playerDataSchema,
		activePlayerDataSchema,
		gameObjectDataSchema,
		dynamicObjectDataSchema,
		corpseDataSchema,
		areaTriggerDataSchema,
		sceneObjectDataSchema,
		conversationDataSchema,
	}
}

// writeEach writes every field as allowed lets the viewer see it.
func writeEach[T any](allowed *updatefield.BitMask, put func(T), fs ...*updatefield.Scalar[T]) {
	for _, f := range fs {
		put(f.ValueFor(allowed))
	}
}

// writeChanged writes the fields selected by m.
func writeChanged[T any](m *updatefield.BitMask, put func(T), fs ...*updatefield.Scalar[T]) {
	for _, f := range fs {
		if f.Changed(m) {
			put(f.Get())
		}
	}
}

// writeList writes a changed list of plain values.
func writeList[T any](w *bitpack.Writer, m *updatefield.BitMask, l *updatefield.DynamicList[T], put func(T)) {
	if l.Changed(m) {
		updatefield.WriteListUpdate(w, l, listLengthBits, false, func(v T, _ bool) { put(v) })
	}
}
