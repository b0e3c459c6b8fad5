package updatefield

import "fieldsync/internal/bitpack"

// Entity is what serializers and value hooks know about the owner of a
// record and about the observer receiving it.
type Entity interface {
	GUID() bitpack.ObjectGUID
}

// HookID names a field whose value is rewritten per viewer.
type HookID uint8

// ValueHook recomputes a stored value for one viewer. Hooks read the raw
// stored value and must not mutate either entity.
type ValueHook func(stored uint32, owner, viewer Entity) uint32

// Hooks maps rewritten fields to their hook.
type Hooks map[HookID]ValueHook

// ResendPolicy selects how changed elements of a record list are written.
type ResendPolicy uint8

const (
	// PreciseDiff writes each changed element as a masked update.
	PreciseDiff ResendPolicy = iota
	// FullResend writes each changed element as a full snapshot, trading
	// bandwidth for not having to track element masks on the receiver.
	FullResend
)

// Policies carries the serialization trade-offs configured for the server.
type Policies struct {
	QuestLog ResendPolicy
}

// ViewerContext is everything a serializer needs to know about who is
// receiving a record.
type ViewerContext struct {
	Owner    Entity
	Receiver Entity
	Flags    Visibility
	Hooks    Hooks
	Policies Policies
}

// Rewrite applies the hook registered for id, if any, to stored. A nil
// context passes values through unchanged.
func (c *ViewerContext) Rewrite(id HookID, stored uint32) uint32 {
	if c == nil || c.Hooks == nil {
		return stored
	}
	fn, ok := c.Hooks[id]
	if !ok || fn == nil {
		return stored
	}
	return fn(stored, c.Owner, c.Receiver)
}

// IsSelf reports whether the receiver is the owner.
func (c *ViewerContext) IsSelf() bool {
	return c != nil && c.Owner != nil && c.Receiver != nil && c.Owner.GUID() == c.Receiver.GUID()
}

// QuestLogPolicy returns the configured quest log policy.
func (c *ViewerContext) QuestLogPolicy() ResendPolicy {
	if c == nil {
		return PreciseDiff
	}
	return c.Policies.QuestLog
}

// Permits reports whether allowed lets a viewer see bit. A nil allowed mask
// permits everything.
func Permits(allowed *BitMask, bit int) bool {
	return allowed == nil || allowed.Get(bit)
}
