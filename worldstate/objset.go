package worldstate

import "github.com/vmoo/core/types"

// ObjSet is an immutable, insertion-ordered sequence of object ids. Mutation
// methods return a new ObjSet rather than modifying the receiver, per spec
// §2/§3's copy-on-write container contract. The backing slice is never
// mutated in place once built, so two ObjSets may safely share one.
type ObjSet struct {
	ids []types.ObjID
}

// NewObjSet builds an ObjSet from the given ids, preserving order and
// dropping duplicates (first occurrence wins).
func NewObjSet(ids ...types.ObjID) ObjSet {
	seen := make(map[types.ObjID]bool, len(ids))
	out := make([]types.ObjID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return ObjSet{ids: out}
}

// Len returns the number of ids in the set
func (s ObjSet) Len() int {
	return len(s.ids)
}

// Contains reports whether id is a member
func (s ObjSet) Contains(id types.ObjID) bool {
	for _, existing := range s.ids {
		if existing == id {
			return true
		}
	}
	return false
}

// ToSlice returns a defensive copy of the set's contents in insertion order
func (s ObjSet) ToSlice() []types.ObjID {
	out := make([]types.ObjID, len(s.ids))
	copy(out, s.ids)
	return out
}

// WithAdded returns a new ObjSet with id appended, unless already present
func (s ObjSet) WithAdded(id types.ObjID) ObjSet {
	if s.Contains(id) {
		return s
	}
	out := make([]types.ObjID, len(s.ids), len(s.ids)+1)
	copy(out, s.ids)
	out = append(out, id)
	return ObjSet{ids: out}
}

// WithRemoved returns a new ObjSet with id removed, if present
func (s ObjSet) WithRemoved(id types.ObjID) ObjSet {
	if !s.Contains(id) {
		return s
	}
	out := make([]types.ObjID, 0, len(s.ids))
	for _, existing := range s.ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return ObjSet{ids: out}
}
