// Package visibility decides which update fields an observer may see and
// rewrites the few field values that depend on who is looking.
//
// Masking always happens first: serializers consult the allowed mask, and
// value hooks only ever run on fields that survived it, reading the raw
// stored value.
package visibility

import (
	"sync"

	"fieldsync/internal/bitpack"
	"fieldsync/internal/updatefield"
)

// Subject is an entity taking part in a visibility decision.
type Subject interface {
	updatefield.Entity
	// OwnerGUID returns the player that controls the entity, or the empty
	// GUID for unowned entities. Players own themselves.
	OwnerGUID() bitpack.ObjectGUID
}

// Relations answers the social questions visibility depends on.
type Relations interface {
	SameParty(a, b bitpack.ObjectGUID) bool
	IsGameMaster(g bitpack.ObjectGUID) bool
	HasEmpathy(viewer, target bitpack.ObjectGUID) bool
}

// NoRelations is a Relations where nobody is grouped or privileged.
type NoRelations struct{}

func (NoRelations) SameParty(a, b bitpack.ObjectGUID) bool           { return false }
func (NoRelations) IsGameMaster(g bitpack.ObjectGUID) bool           { return false }
func (NoRelations) HasEmpathy(viewer, target bitpack.ObjectGUID) bool { return false }

func controllerOf(s Subject) bitpack.ObjectGUID {
	if owner := s.OwnerGUID(); !owner.IsEmpty() {
		return owner
	}
	return s.GUID()
}

// FlagsFor returns the relationships viewer holds toward target.
func FlagsFor(target, viewer Subject, rel Relations) updatefield.Visibility {
	if rel == nil {
		rel = NoRelations{}
	}
	var flags updatefield.Visibility
	viewerID := viewer.GUID()
	controller := controllerOf(target)

	if target.GUID() == viewerID || controller == viewerID {
		flags |= updatefield.VisibleOwner
	}
	if controller != viewerID && rel.SameParty(controller, viewerID) {
		flags |= updatefield.VisiblePartyMember
	}
	if rel.IsGameMaster(viewerID) {
		flags |= updatefield.VisibleUnitAll
	}
	if rel.HasEmpathy(viewerID, target.GUID()) {
		flags |= updatefield.VisibleEmpathy
	}
	return flags
}

type maskKey struct {
	schema *updatefield.Schema
	flags  updatefield.Visibility
}

var allowedCache sync.Map // maskKey -> *updatefield.BitMask

// ComputeAllowedMask returns the bits of schema a viewer holding flags may
// see: the schema's default mask ORed with the mask of every held flag.
// The result is shared between callers and must not be mutated.
func ComputeAllowedMask(schema *updatefield.Schema, flags updatefield.Visibility) *updatefield.BitMask {
	key := maskKey{schema: schema, flags: flags}
	if m, ok := allowedCache.Load(key); ok {
		return m.(*updatefield.BitMask)
	}

	m := schema.DefaultMask()
	for _, f := range []updatefield.Visibility{
		updatefield.VisibleOwner,
		updatefield.VisiblePartyMember,
		updatefield.VisibleUnitAll,
		updatefield.VisibleEmpathy,
	} {
		if flags&f != 0 {
			m.Or(schema.FlagMask(f))
		}
	}

	actual, _ := allowedCache.LoadOrStore(key, m)
	return actual.(*updatefield.BitMask)
}

// FilterDirtyMask returns raw AND allowed as a new mask. raw is left
// untouched so later observers still see the full dirty state.
func FilterDirtyMask(raw, allowed *updatefield.BitMask) *updatefield.BitMask {
	return raw.Clone().And(allowed)
}
