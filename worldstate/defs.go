package worldstate

import "github.com/vmoo/core/types"

// Named is implemented by definition values held in a Defs container.
type Named interface {
	DefUUID() types.UUID
}

// Defs is an immutable, insertion-ordered sequence of UUID-keyed
// definitions (PropDef, VerbDef), with copy-on-write builders, per spec
// §2/§3. The zero value is an empty Defs.
type Defs[T Named] struct {
	order []types.UUID
	byID  map[types.UUID]T
}

// NewDefs builds a Defs container from the given definitions, in order
func NewDefs[T Named](items ...T) Defs[T] {
	d := Defs[T]{
		order: make([]types.UUID, 0, len(items)),
		byID:  make(map[types.UUID]T, len(items)),
	}
	for _, item := range items {
		id := item.DefUUID()
		if _, exists := d.byID[id]; exists {
			continue
		}
		d.order = append(d.order, id)
		d.byID[id] = item
	}
	return d
}

// Len returns the number of definitions held
func (d Defs[T]) Len() int {
	return len(d.order)
}

// Find returns the definition with the given uuid, if present
func (d Defs[T]) Find(id types.UUID) (T, bool) {
	v, ok := d.byID[id]
	return v, ok
}

// ToSlice returns the definitions in insertion order
func (d Defs[T]) ToSlice() []T {
	out := make([]T, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.byID[id])
	}
	return out
}

// WithAdded returns a new Defs with item appended; a duplicate uuid is a
// no-op copy (callers are expected to have checked name-conflict invariants
// before calling, per spec §4.1's define_property/add_verb contracts).
func (d Defs[T]) WithAdded(item T) Defs[T] {
	id := item.DefUUID()
	if _, exists := d.byID[id]; exists {
		return d
	}
	newOrder := make([]types.UUID, len(d.order), len(d.order)+1)
	copy(newOrder, d.order)
	newOrder = append(newOrder, id)

	newByID := make(map[types.UUID]T, len(d.byID)+1)
	for k, v := range d.byID {
		newByID[k] = v
	}
	newByID[id] = item

	return Defs[T]{order: newOrder, byID: newByID}
}

// WithRemoved returns a new Defs with the definition identified by id removed
func (d Defs[T]) WithRemoved(id types.UUID) Defs[T] {
	if _, exists := d.byID[id]; !exists {
		return d
	}
	newOrder := make([]types.UUID, 0, len(d.order))
	for _, existing := range d.order {
		if existing != id {
			newOrder = append(newOrder, existing)
		}
	}
	newByID := make(map[types.UUID]T, len(d.byID))
	for k, v := range d.byID {
		if k != id {
			newByID[k] = v
		}
	}
	return Defs[T]{order: newOrder, byID: newByID}
}

// WithUpdated returns a new Defs with the definition identified by item's
// uuid replaced, preserving its position; a no-op if the uuid is absent.
func (d Defs[T]) WithUpdated(item T) Defs[T] {
	id := item.DefUUID()
	if _, exists := d.byID[id]; !exists {
		return d
	}
	newByID := make(map[types.UUID]T, len(d.byID))
	for k, v := range d.byID {
		newByID[k] = v
	}
	newByID[id] = item
	return Defs[T]{order: d.order, byID: newByID}
}
