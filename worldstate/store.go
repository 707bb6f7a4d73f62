package worldstate

import (
	"sync"

	"github.com/vmoo/core/types"
)

// Relation names used as the first component of a timestamp domain key,
// per the commit protocol's "each relation records per-key read and write
// timestamps" requirement (§4.1).
const (
	RelationObject   = "object"
	RelationPropDef  = "propdef"
	RelationPropSlot = "propslot"
	RelationVerbDef  = "verbdef"
)

// objectRecord is the authoritative, in-store representation of one object.
// It mirrors the teacher's db.Object shape (ObjID cross-references, never Go
// pointers) but keys properties/verbs by UUID rather than by name, per the
// Defs<T>/PropDef/VerbDef data model (§3).
type objectRecord struct {
	ID       types.ObjID
	Name     string
	Aliases  []string
	Owner    types.ObjID
	Parent   types.ObjID
	Location types.ObjID
	Flags    Flag
	Recycled bool

	// PropDefs holds the canonical definitions for which this object is the
	// definer. Descendants never appear as a key here.
	PropDefs Defs[PropDef]

	// PropSlots holds this object's own property value/perm overrides, keyed
	// by the owning PropDef's uuid. Absence of an entry means "clear":
	// inherit from the nearest ancestor that has one, or the definer's
	// Initial if none do.
	PropSlots map[types.UUID]PropertySlot

	// VerbDefs holds the verbs defined directly on this object (no
	// inheritance at the storage layer; find_method_verb_on/
	// find_command_verb_on walk the ancestor chain at read time).
	VerbDefs Defs[VerbDef]

	// Programs holds the compiled bytecode bundle for each verb, keyed by
	// the VerbDef's uuid. Opaque to this package.
	Programs map[types.UUID]any
}

func (o *objectRecord) clone() *objectRecord {
	n := *o
	n.Aliases = append([]string(nil), o.Aliases...)
	n.PropSlots = make(map[types.UUID]PropertySlot, len(o.PropSlots))
	for k, v := range o.PropSlots {
		n.PropSlots[k] = v
	}
	n.Programs = make(map[types.UUID]any, len(o.Programs))
	for k, v := range o.Programs {
		n.Programs[k] = v
	}
	return &n
}

// PropertySlot is a per-(object, propdef-uuid) value and permission override
// (§3's "Property value slot").
type PropertySlot struct {
	Clear bool
	Value types.Value
	Owner types.ObjID
	Flags Flag
}

// Store is the authoritative, internally-synchronized relation store a
// Transaction checks against and publishes to at commit (§4.1's commit
// protocol, §5's shared-resource policy). It is never mutated directly by
// transactional handles outside of Commit.
type Store struct {
	mu          sync.RWMutex
	objects     map[types.ObjID]*objectRecord
	maxObjID    types.ObjID
	highWaterID types.ObjID
	clock       int64
	writeStamp  map[string]int64 // "relation:domainKey" -> timestamp of last write
}

// NewStore creates a new, empty authoritative store.
func NewStore() *Store {
	return &Store{
		objects:     make(map[types.ObjID]*objectRecord),
		maxObjID:    types.ObjNothing,
		highWaterID: types.ObjNothing,
		writeStamp:  make(map[string]int64),
	}
}

func relationKey(relation, domainKey string) string {
	return relation + ":" + domainKey
}

// stamp returns the current write timestamp recorded for a relation/key,
// or 0 if it has never been written.
func (s *Store) stamp(relation, domainKey string) int64 {
	return s.writeStamp[relationKey(relation, domainKey)]
}

// Begin opens a new transaction against a snapshot of the store taken at
// this instant.
func (s *Store) Begin() *Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &Transaction{
		store:      s,
		snapshotTS: s.clock,
		local:      make(map[types.ObjID]*objectRecord),
		reads:      make(map[string]int64),
		writes:     make(map[string]bool),
		recycled:   make(map[types.ObjID]bool),
	}
}

// getRecordLocked returns a read-only reference to the committed record for
// id, or nil. Caller must hold s.mu.
func (s *Store) getRecordLocked(id types.ObjID) *objectRecord {
	rec, ok := s.objects[id]
	if !ok {
		return nil
	}
	return rec
}

// allocateID reserves the next object id. Allocation is not subject to
// optimistic-concurrency conflict detection: ids are handed out eagerly and
// never reused within a process lifetime, matching the teacher's
// high-water-mark NextID scheme (db/store.go).
func (s *Store) allocateID() types.ObjID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.highWaterID++
	return s.highWaterID
}

func (s *Store) bumpMaxObject(id types.ObjID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id > s.maxObjID {
		s.maxObjID = id
	}
}

// MaxObject returns the highest non-anonymous object id ever allocated.
func (s *Store) MaxObject() types.ObjID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxObjID
}
