// Package entity holds the replicated state of world entities: the kind
// records each entity carries, and the per-viewer create and values blocks
// built from them.
package entity

import (
	"fmt"

	"fieldsync/internal/bitpack"
	"fieldsync/internal/fields"
	"fieldsync/internal/updatefield"
)

// Kind is one layer of replicated state an entity can carry.
type Kind uint8

const (
	KindObject Kind = iota
	KindItem
	KindContainer
	KindUnit
	KindPlayer
	KindActivePlayer
	KindGameObject
	KindDynamicObject
	KindCorpse
	KindAreaTrigger
	KindSceneObject
	KindConversation

	kindCount = iota
)

var kindNames = [kindCount]string{
	"Object", "Item", "Container", "Unit", "Player", "ActivePlayer",
	"GameObject", "DynamicObject", "Corpse", "AreaTrigger", "SceneObject", "Conversation",
}

func (k Kind) String() string {
	if int(k) < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Kinds returns every kind in wire order.
func Kinds() []Kind {
	out := make([]Kind, kindCount)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// KindMaskBits is the width of the kind mask at the head of every payload.
const KindMaskBits = kindCount

// Values is the record holder of one entity. It owns one record per kind
// the entity carries and a mask of the kinds changed since the last clear.
type Values struct {
	changed *updatefield.BitMask
	present uint32

	Object        *fields.ObjectData
	Item          *fields.ItemData
	Container     *fields.ContainerData
	Unit          *fields.UnitData
	Player        *fields.PlayerData
	ActivePlayer  *fields.ActivePlayerData
	GameObject    *fields.GameObjectData
	DynamicObject *fields.DynamicObjectData
	Corpse        *fields.CorpseData
	AreaTrigger   *fields.AreaTriggerData
	SceneObject   *fields.SceneObjectData
	Conversation  *fields.ConversationData
}

// NewValues creates a holder carrying the given kinds. Object is always
// carried.
func NewValues(kinds ...Kind) *Values {
	v := &Values{changed: updatefield.NewBitMask(kindCount)}
	v.attach(KindObject)
	for _, k := range kinds {
		v.attach(k)
	}
	return v
}

func (v *Values) attach(k Kind) {
	if v.Has(k) {
		return
	}
	switch k {
	case KindObject:
		v.Object = fields.NewObjectData()
	case KindItem:
		v.Item = fields.NewItemData()
	case KindContainer:
		v.Container = fields.NewContainerData()
	case KindUnit:
		v.Unit = fields.NewUnitData()
	case KindPlayer:
		v.Player = fields.NewPlayerData()
	case KindActivePlayer:
		v.ActivePlayer = fields.NewActivePlayerData()
	case KindGameObject:
		v.GameObject = fields.NewGameObjectData()
	case KindDynamicObject:
		v.DynamicObject = fields.NewDynamicObjectData()
	case KindCorpse:
		v.Corpse = fields.NewCorpseData()
	case KindAreaTrigger:
		v.AreaTrigger = fields.NewAreaTriggerData()
	case KindSceneObject:
		v.SceneObject = fields.NewSceneObjectData()
	case KindConversation:
		v.Conversation = fields.NewConversationData()
	default:
		panic(fmt.Sprintf("entity: unknown kind %d", k))
	}
	v.present |= 1 << k
	rec := v.Record(k)
	rec.ClearChanges()
	rec.SetNotify(func() { v.MarkDirty(k) })
}

// Has reports whether the entity carries kind k.
func (v *Values) Has(k Kind) bool {
	return v.present&(1<<k) != 0
}

// Record returns the dirty-tracking base of kind k, or nil when the entity
// does not carry it.
func (v *Values) Record(k Kind) *updatefield.Record {
	if !v.Has(k) {
		return nil
	}
	switch k {
	case KindObject:
		return &v.Object.Record
	case KindItem:
		return &v.Item.Record
	case KindContainer:
		return &v.Container.Record
	case KindUnit:
		return &v.Unit.Record
	case KindPlayer:
		return &v.Player.Record
	case KindActivePlayer:
		return &v.ActivePlayer.Record
	case KindGameObject:
		return &v.GameObject.Record
	case KindDynamicObject:
		return &v.DynamicObject.Record
	case KindCorpse:
		return &v.Corpse.Record
	case KindAreaTrigger:
		return &v.AreaTrigger.Record
	case KindSceneObject:
		return &v.SceneObject.Record
	case KindConversation:
		return &v.Conversation.Record
	}
	return nil
}

// Schema returns the schema of kind k.
func Schema(k Kind) *updatefield.Schema {
	return fields.Schemas()[k]
}

// MarkDirty flags kind k as changed. Records call it through their notify
// hook on every field change.
func (v *Values) MarkDirty(k Kind) {
	v.changed.Set(int(k))
}

// GetChangedKindMask returns the live mask of changed kinds.
func (v *Values) GetChangedKindMask() *updatefield.BitMask {
	return v.changed
}

// IsChanged reports whether any kind changed since the last clear.
func (v *Values) IsChanged() bool {
	return v.changed.IsAnySet()
}

// Clear resets the changes of kind k and its changed bit.
func (v *Values) Clear(k Kind) {
	if rec := v.Record(k); rec != nil {
		rec.ClearChanges()
	}
	v.changed.Reset(int(k))
}

// ClearAll resets the changes of every carried kind. It must only run once
// every observer has been served for the tick.
func (v *Values) ClearAll() {
	v.changed.ForEach(func(i int) {
		if rec := v.Record(Kind(i)); rec != nil {
			rec.ClearChanges()
		}
	})
	v.changed.ResetAll()
}

func (v *Values) writeCreate(k Kind, w *bitpack.Writer, allowed *updatefield.BitMask, ctx *updatefield.ViewerContext) {
	switch k {
	case KindObject:
		v.Object.WriteCreate(w, allowed, ctx)
	case KindItem:
		v.Item.WriteCreate(w, allowed, ctx)
	case KindContainer:
		v.Container.WriteCreate(w, allowed, ctx)
	case KindUnit:
		v.Unit.WriteCreate(w, allowed, ctx)
	case KindPlayer:
		v.Player.WriteCreate(w, allowed, ctx)
	case KindActivePlayer:
		v.ActivePlayer.WriteCreate(w, allowed, ctx)
	case KindGameObject:
		v.GameObject.WriteCreate(w, allowed, ctx)
	case KindDynamicObject:
		v.DynamicObject.WriteCreate(w, allowed, ctx)
	case KindCorpse:
		v.Corpse.WriteCreate(w, allowed, ctx)
	case KindAreaTrigger:
		v.AreaTrigger.WriteCreate(w, allowed, ctx)
	case KindSceneObject:
		v.SceneObject.WriteCreate(w, allowed, ctx)
	case KindConversation:
		v.Conversation.WriteCreate(w, allowed, ctx)
	}
	w.FlushBits()
}

func (v *Values) writeUpdate(k Kind, w *bitpack.Writer, m *updatefield.BitMask, ctx *updatefield.ViewerContext) {
	switch k {
	case KindObject:
		v.Object.WriteUpdate(w, m, ctx)
	case KindItem:
		v.Item.WriteUpdate(w, m, ctx)
	case KindContainer:
		v.Container.WriteUpdate(w, m, ctx)
	case KindUnit:
		v.Unit.WriteUpdate(w, m, ctx)
	case KindPlayer:
		v.Player.WriteUpdate(w, m, ctx)
	case KindActivePlayer:
		v.ActivePlayer.WriteUpdate(w, m, ctx)
	case KindGameObject:
		v.GameObject.WriteUpdate(w, m, ctx)
	case KindDynamicObject:
		v.DynamicObject.WriteUpdate(w, m, ctx)
	case KindCorpse:
		v.Corpse.WriteUpdate(w, m, ctx)
	case KindAreaTrigger:
		v.AreaTrigger.WriteUpdate(w, m, ctx)
	case KindSceneObject:
		v.SceneObject.WriteUpdate(w, m, ctx)
	case KindConversation:
		v.Conversation.WriteUpdate(w, m, ctx)
	}
	w.FlushBits()
}
