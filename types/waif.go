package types

import "fmt"

// WaifValue represents a MOO waif (lightweight object), generalized to the
// flyweight shape: a delegate object, an ordered set of named slots, and an
// ordered contents list.
type WaifValue struct {
	class      ObjID            // The waif's class object (the flyweight's delegate)
	owner      ObjID            // The waif's owner (programmer who created it)
	properties map[string]Value // Property/slot values
	slotOrder  []string         // Insertion order of properties, for ordered flyweight slots
	contents   []ObjID          // Ordered contents list
}

// NewWaif creates a new waif with the given class and owner
func NewWaif(class ObjID, owner ObjID) WaifValue {
	return WaifValue{
		class:      class,
		owner:      owner,
		properties: make(map[string]Value),
	}
}

// Type returns TYPE_WAIF
func (w WaifValue) Type() TypeCode {
	return TYPE_WAIF
}

// String returns the MOO literal representation of the waif
func (w WaifValue) String() string {
	// WAIFs don't have a simple literal representation
	return fmt.Sprintf("<waif #%d>", w.class)
}

// Equal checks if two waifs are equal
// Two waifs are equal when class, properties and contents (in order) match;
// the owner is not compared
func (w WaifValue) Equal(other Value) bool {
	otherWaif, ok := other.(WaifValue)
	if !ok {
		return false
	}
	if w.class != otherWaif.class || !equalMaps(w.properties, otherWaif.properties) {
		return false
	}
	if len(w.contents) != len(otherWaif.contents) {
		return false
	}
	for i, id := range w.contents {
		if otherWaif.contents[i] != id {
			return false
		}
	}
	return true
}

// Truthy returns whether the waif is truthy
// In MOO, waifs are never truthy (only non-zero ints and non-empty strings)
func (w WaifValue) Truthy() bool {
	return false
}

// Class returns the waif's class object ID
func (w WaifValue) Class() ObjID {
	return w.class
}

// Owner returns the waif's owner object ID
func (w WaifValue) Owner() ObjID {
	return w.owner
}

// GetProperty returns a property value by name
func (w WaifValue) GetProperty(name string) (Value, bool) {
	val, ok := w.properties[name]
	return val, ok
}

// SetProperty sets a property value, preserving first-write slot order
func (w WaifValue) SetProperty(name string, value Value) WaifValue {
	// Copy-on-write semantics
	newProps := make(map[string]Value, len(w.properties)+1)
	for k, v := range w.properties {
		newProps[k] = v
	}
	_, existed := newProps[name]
	newProps[name] = value

	newOrder := w.slotOrder
	if !existed {
		newOrder = make([]string, len(w.slotOrder), len(w.slotOrder)+1)
		copy(newOrder, w.slotOrder)
		newOrder = append(newOrder, name)
	}

	return WaifValue{
		class:      w.class,
		owner:      w.owner,
		properties: newProps,
		slotOrder:  newOrder,
		contents:   w.contents,
	}
}

// OrderedSlots returns the waif's slots as (name, value) pairs in definition order
func (w WaifValue) OrderedSlots() []struct {
	Name  string
	Value Value
} {
	slots := make([]struct {
		Name  string
		Value Value
	}, 0, len(w.slotOrder))
	for _, name := range w.slotOrder {
		slots = append(slots, struct {
			Name  string
			Value Value
		}{Name: name, Value: w.properties[name]})
	}
	return slots
}

// Delegate returns the flyweight's delegate object, equivalent to Class
func (w WaifValue) Delegate() ObjID {
	return w.class
}

// Contents returns the flyweight's ordered contents list
func (w WaifValue) Contents() []ObjID {
	return w.contents
}

// WithContents returns a copy of the waif with its contents list replaced
func (w WaifValue) WithContents(contents []ObjID) WaifValue {
	newContents := make([]ObjID, len(contents))
	copy(newContents, contents)
	return WaifValue{
		class:      w.class,
		owner:      w.owner,
		properties: w.properties,
		slotOrder:  w.slotOrder,
		contents:   newContents,
	}
}

// equalMaps checks if two property maps are equal
func equalMaps(a, b map[string]Value) bool {
	if len(a) != len(b) {
		return false
	}
	for key, valA := range a {
		valB, ok := b[key]
		if !ok || !valA.Equal(valB) {
			return false
		}
	}
	return true
}
