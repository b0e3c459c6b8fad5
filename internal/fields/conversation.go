package fields

import (
	"fieldsync/internal/bitpack"
	"fieldsync/internal/updatefield"
)

var conversationDataSchema = updatefield.NewSchema("ConversationData", 6)

const actorTypeBits = 1

// ConversationLine is one spoken line of a scripted conversation.
type ConversationLine struct {
	ConversationLineID uint32
	BroadcastTextID    uint32
	StartTime          uint32
	UiCameraID         int32
	ActorIndex         uint8
	Flags              uint8
	ChatType           uint8
}

func (c ConversationLine) write(w *bitpack.Writer) {
	w.WriteUint32(c.ConversationLineID)
	w.WriteUint32(c.BroadcastTextID)
	w.WriteUint32(c.StartTime)
	w.WriteInt32(c.UiCameraID)
	w.WriteUint8(c.ActorIndex)
	w.WriteUint8(c.Flags)
	w.WriteUint8(c.ChatType)
}

// ConversationActorType tells whether an actor is a world object or a
// client-side creature.
type ConversationActorType uint32

const (
	ActorWorldObject ConversationActorType = iota
	ActorCreature
)

type ConversationActor struct {
	CreatureID               uint32
	CreatureDisplayInfoID    uint32
	ActorGUID                bitpack.ObjectGUID
	ID                       int32
	TransmogrifiedCreatureID uint32
	Type                     ConversationActorType
	NoActorObject            bool
}

func (a ConversationActor) write(w *bitpack.Writer) {
	w.WriteUint32(a.CreatureID)
	w.WriteUint32(a.CreatureDisplayInfoID)
	w.WritePackedGUID(a.ActorGUID)
	w.WriteInt32(a.ID)
	w.WriteUint32(a.TransmogrifiedCreatureID)
	w.WriteBits(uint32(a.Type), actorTypeBits)
	w.WriteBit(a.NoActorObject)
	w.FlushBits()
}

// ConversationData is carried by scripted conversations. The end time of
// the last line depends on the viewer's locale, so it is rewritten per
// viewer.
type ConversationData struct {
	updatefield.Record
	Lines           *updatefield.DynamicList[ConversationLine]
	Actors          *updatefield.DynamicList[ConversationActor]
	LastLineEndTime *updatefield.Scalar[uint32]
	Flags           *updatefield.Scalar[uint32]
	Progress        *updatefield.Scalar[int32]
}

func NewConversationData() *ConversationData {
	d := &ConversationData{}
	l := conversationDataSchema.Begin(&d.Record)
	g := l.Group()
	d.Lines = updatefield.NewDynamicList[ConversationLine](l.Field(g))
	d.Actors = updatefield.NewDynamicList[ConversationActor](l.Field(g))
	d.LastLineEndTime = updatefield.NewScalar[uint32](l.Field(g))
	d.Flags = updatefield.NewScalar[uint32](l.Field(g))
	d.Progress = updatefield.NewScalar[int32](l.Field(g))
	l.End()
	return d
}

func (d *ConversationData) WriteCreate(w *bitpack.Writer, allowed *updatefield.BitMask, ctx *updatefield.ViewerContext) {
	updatefield.WriteListCreate(w, d.Lines, listLengthBits, allowed, func(c ConversationLine) { c.write(w) })
	w.WriteUint32(hooked(ctx, HookConversationLastLineEndTime, d.LastLineEndTime, allowed))
	w.WriteInt32(d.Progress.ValueFor(allowed))
	updatefield.WriteListCreate(w, d.Actors, listLengthBits, allowed, func(a ConversationActor) { a.write(w) })
	w.WriteUint32(d.Flags.ValueFor(allowed))
}

func (d *ConversationData) WriteUpdate(w *bitpack.Writer, m *updatefield.BitMask, ctx *updatefield.ViewerContext) {
	updatefield.WriteMask(w, m)
	writeList(w, m, d.Lines, func(c ConversationLine) { c.write(w) })
	writeList(w, m, d.Actors, func(a ConversationActor) { a.write(w) })
	if d.LastLineEndTime.Changed(m) {
		w.WriteUint32(ctx.Rewrite(HookConversationLastLineEndTime, d.LastLineEndTime.Get()))
	}
	writeChanged(m, w.WriteUint32, d.Flags)
	writeChanged(m, w.WriteInt32, d.Progress)
}
