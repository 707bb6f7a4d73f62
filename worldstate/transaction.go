package worldstate

import (
	"fmt"
	"strings"

	"github.com/vmoo/core/types"
)

// WorldState is the transactional façade every caller programs against
// (§4.1). A Transaction is the sole implementation; the interface exists so
// callers (match.WorldStateEnv, the server command loop) depend on a
// narrow contract rather than the concrete struct.
type WorldState interface {
	Valid(o types.ObjID) bool
	CreateObject(perms Permissions, parent, owner types.ObjID, flags Flag) (types.ObjID, error)
	RecycleObject(perms Permissions, o types.ObjID) error
	MaxObject() types.ObjID
	MoveObject(perms Permissions, o, loc types.ObjID) error
	ChangeParent(perms Permissions, o, p types.ObjID) error
	ParentOf(o types.ObjID) (types.ObjID, error)
	ChildrenOf(o types.ObjID) ([]types.ObjID, error)
	DescendantsOf(o types.ObjID) ([]types.ObjID, error)
	AncestorsOf(o types.ObjID) ([]types.ObjID, error)
	ContentsOf(o types.ObjID) ([]types.ObjID, error)
	LocationOf(o types.ObjID) (types.ObjID, error)

	NameOf(o types.ObjID) (string, error)
	AliasesOf(o types.ObjID) ([]string, error)
	SetName(perms Permissions, o types.ObjID, name string) error
	SetAliases(perms Permissions, o types.ObjID, aliases []string) error
	GetNames(o types.ObjID) ([]string, error)

	FlagsOf(o types.ObjID) (Flag, error)
	SetFlagsOf(perms Permissions, o types.ObjID, flags Flag) error

	DefineProperty(perms Permissions, definer, location types.ObjID, name string, owner types.ObjID, flags Flag, initial types.Value) (types.UUID, error)
	DeleteProperty(perms Permissions, o types.ObjID, name string) error
	RetrieveProperty(perms Permissions, o types.ObjID, name string) (types.Value, error)
	GetPropertyInfo(perms Permissions, o types.ObjID, name string) (PropDef, PropPerms, error)
	SetPropertyInfo(perms Permissions, o types.ObjID, name string, owner types.ObjID, flags Flag) error
	UpdateProperty(perms Permissions, o types.ObjID, name string, value types.Value) error
	IsPropertyClear(perms Permissions, o types.ObjID, name string) (bool, error)
	ClearProperty(perms Permissions, o types.ObjID, name string) error

	AddVerb(perms Permissions, o types.ObjID, names []string, owner types.ObjID, flags Flag, args VerbArgsSpec, program any) (types.UUID, error)
	RemoveVerb(perms Permissions, o types.ObjID, uuid types.UUID) error
	UpdateVerbDef(perms Permissions, o types.ObjID, uuid types.UUID, names []string, owner types.ObjID, flags Flag, args VerbArgsSpec) error
	UpdateVerbProgram(perms Permissions, o types.ObjID, uuid types.UUID, program any) error
	GetVerb(o types.ObjID, uuid types.UUID) (VerbDef, error)
	GetVerbAtIndex(o types.ObjID, index int) (VerbDef, error)
	RetrieveVerb(o types.ObjID, uuid types.UUID) (VerbDef, any, error)
	FindMethodVerbOn(o types.ObjID, name string) (types.ObjID, VerbDef, error)
	FindCommandVerbOn(o types.ObjID, verb string, dobj types.ObjID, prepPresent bool, prepID int16, iobj types.ObjID) (types.ObjID, VerbDef, error)

	Commit() (CommitResult, error)
	Rollback()
}

// CommitResult is returned by a successful Commit (§4.1).
type CommitResult struct {
	MutationsMade int
	Timestamp     int64
}

// Transaction is a single logical flow of WorldState operations: a
// read-write snapshot with copy-on-write staging, finalized by exactly one
// call to Commit or Rollback (§3's Transaction entity, §5's single-threaded-
// per-instance concurrency model).
type Transaction struct {
	store      *Store
	snapshotTS int64
	local      map[types.ObjID]*objectRecord
	created    map[types.ObjID]bool
	recycled   map[types.ObjID]bool
	reads      map[string]int64
	writes     map[string]bool
	done       bool
}

func (t *Transaction) checkNotDone() error {
	if t.done {
		return fmt.Errorf("transaction already committed or rolled back")
	}
	return nil
}

func (t *Transaction) recordRead(relation, key string) {
	rk := relationKey(relation, key)
	if _, ok := t.reads[rk]; !ok {
		t.reads[rk] = t.store.stamp(relation, key)
	}
}

func (t *Transaction) recordWrite(relation, key string) {
	t.writes[relationKey(relation, key)] = true
}

// readRecord returns the working-set record for id, fetching and recording
// a read-timestamp on first touch. It never clones: callers that intend to
// mutate must go through writeRecord.
func (t *Transaction) readRecord(id types.ObjID) (*objectRecord, error) {
	if rec, ok := t.local[id]; ok {
		if rec.Recycled {
			return nil, newError(ErrObjectNotFound, "object #%v not found", id)
		}
		return rec, nil
	}

	t.store.mu.RLock()
	rec := t.store.getRecordLocked(id)
	t.store.mu.RUnlock()

	if rec == nil {
		return nil, newError(ErrObjectNotFound, "object #%v not found", id)
	}
	t.recordRead(RelationObject, objKey(id))
	if rec.Recycled {
		return nil, newError(ErrObjectNotFound, "object #%v not found", id)
	}
	return rec, nil
}

// writeRecord returns a working copy of id's record that this transaction
// may mutate in place; it is staged into the local overlay and the
// object-level relation key is flagged as a write intent.
func (t *Transaction) writeRecord(id types.ObjID) (*objectRecord, error) {
	if rec, ok := t.local[id]; ok {
		return rec, nil
	}
	base, err := t.readRecord(id)
	if err != nil {
		return nil, err
	}
	clone := base.clone()
	t.local[id] = clone
	t.recordWrite(RelationObject, objKey(id))
	return clone, nil
}

func objKey(id types.ObjID) string       { return fmt.Sprintf("%d", id) }
func propDefKey(definer types.ObjID, uuid types.UUID) string {
	return fmt.Sprintf("%d/%s", definer, uuid)
}
func propSlotKey(o types.ObjID, uuid types.UUID) string {
	return fmt.Sprintf("%d/%s", o, uuid)
}
func verbDefKey(location types.ObjID, uuid types.UUID) string {
	return fmt.Sprintf("%d/%s", location, uuid)
}

// Valid implements WorldState. Flag-free, permission-free: per §4.1 it never
// fails.
func (t *Transaction) Valid(o types.ObjID) bool {
	if o < 0 {
		return false
	}
	_, err := t.readRecord(o)
	return err == nil
}

// CreateObject implements WorldState.
func (t *Transaction) CreateObject(perms Permissions, parent, owner types.ObjID, flags Flag) (types.ObjID, error) {
	if err := t.checkNotDone(); err != nil {
		return types.ObjNothing, err
	}
	if parent != types.ObjNothing {
		if _, err := t.readRecord(parent); err != nil {
			return types.ObjNothing, err
		}
	}
	id := t.store.allocateID()
	if owner == types.ObjNothing {
		owner = id
	}
	rec := &objectRecord{
		ID:        id,
		Owner:     owner,
		Parent:    parent,
		Location:  types.ObjNothing,
		Flags:     flags,
		PropSlots: make(map[types.UUID]PropertySlot),
		Programs:  make(map[types.UUID]any),
	}
	t.local[id] = rec
	if t.created == nil {
		t.created = make(map[types.ObjID]bool)
	}
	t.created[id] = true
	t.recordWrite(RelationObject, objKey(id))
	t.store.bumpMaxObject(id)
	return id, nil
}

// RecycleObject implements WorldState: reparents children to parent(o),
// moves contents to NOTHING, removes o's own property definitions, and
// marks o recycled.
func (t *Transaction) RecycleObject(perms Permissions, o types.ObjID) error {
	rec, err := t.writeRecord(o)
	if err != nil {
		return err
	}
	if !perms.CheckOwnerOrWizard(rec.Owner, false) {
		return newError(ErrObjectPermissionDenied, "#%v: recycle requires ownership or wizard", o)
	}

	children, err := t.ChildrenOf(o)
	if err != nil {
		return err
	}
	for _, c := range children {
		childRec, err := t.writeRecord(c)
		if err != nil {
			return err
		}
		childRec.Parent = rec.Parent
	}

	contents, err := t.ContentsOf(o)
	if err != nil {
		return err
	}
	for _, c := range contents {
		contentRec, err := t.writeRecord(c)
		if err != nil {
			return err
		}
		contentRec.Location = types.ObjNothing
	}

	for _, def := range rec.PropDefs.ToSlice() {
		t.recordWrite(RelationPropDef, propDefKey(o, def.UUID))
	}
	rec.PropDefs = Defs[PropDef]{}

	rec.Recycled = true
	if t.recycled == nil {
		t.recycled = make(map[types.ObjID]bool)
	}
	t.recycled[o] = true
	return nil
}

// MaxObject implements WorldState.
func (t *Transaction) MaxObject() types.ObjID {
	max := t.store.MaxObject()
	for id := range t.created {
		if id > max {
			max = id
		}
	}
	return max
}

// MoveObject implements WorldState.
func (t *Transaction) MoveObject(perms Permissions, o, loc types.ObjID) error {
	rec, err := t.writeRecord(o)
	if err != nil {
		return err
	}
	if !perms.CheckOwnerOrWizard(rec.Owner, rec.Flags.Has(FlagWrite)) {
		return newError(ErrObjectPermissionDenied, "#%v: move requires ownership, wizard, or write flag", o)
	}
	if loc != types.ObjNothing {
		if o == loc {
			return newError(ErrRecursiveMove, "cannot move #%v into itself", o)
		}
		isContent, err := t.transitivelyContains(o, loc)
		if err != nil {
			return err
		}
		if isContent {
			return newError(ErrRecursiveMove, "#%v is a transitive content of #%v", loc, o)
		}
	}
	rec.Location = loc
	return nil
}

// transitivelyContains reports whether candidate is o or a transitive
// content of o, following the Location chain upward from candidate with a
// cycle guard (§9's "model as relations, guard cycles explicitly").
func (t *Transaction) transitivelyContains(o, candidate types.ObjID) (bool, error) {
	visited := make(map[types.ObjID]bool)
	cur := candidate
	for cur != types.ObjNothing {
		if cur == o {
			return true, nil
		}
		if visited[cur] {
			return false, nil
		}
		visited[cur] = true
		rec, err := t.readRecord(cur)
		if err != nil {
			return false, nil
		}
		cur = rec.Location
	}
	return false, nil
}

// ChangeParent implements WorldState.
func (t *Transaction) ChangeParent(perms Permissions, o, p types.ObjID) error {
	rec, err := t.writeRecord(o)
	if err != nil {
		return err
	}
	if !perms.CheckOwnerOrWizard(rec.Owner, false) {
		return newError(ErrObjectPermissionDenied, "#%v: chparent requires ownership or wizard", o)
	}

	if p != types.ObjNothing {
		downward, err := t.namesDefinedIn(o, true)
		if err != nil {
			return err
		}
		upward, err := t.namesDefinedIn(p, false)
		if err != nil {
			return err
		}
		for name := range downward {
			if upward[name] {
				return newError(ErrChparentPropertyNameConflict, "property %q conflicts on reparent of #%v to #%v", name, o, p)
			}
		}
	}

	rec.Parent = p
	return nil
}

// namesDefinedIn collects the case-folded property names defined (as
// definer) within o's own subtree (includeDescendants=true, "downward") or
// along o's ancestor chain (includeDescendants=false, "upward").
func (t *Transaction) namesDefinedIn(o types.ObjID, includeDescendants bool) (map[string]bool, error) {
	names := make(map[string]bool)
	var ids []types.ObjID
	if includeDescendants {
		ids = append(ids, o)
		desc, err := t.DescendantsOf(o)
		if err != nil {
			return nil, err
		}
		ids = append(ids, desc...)
	} else {
		ids = append(ids, o)
		anc, err := t.AncestorsOf(o)
		if err != nil {
			return nil, err
		}
		ids = append(ids, anc...)
	}
	for _, id := range ids {
		rec, err := t.readRecord(id)
		if err != nil {
			continue
		}
		for _, def := range rec.PropDefs.ToSlice() {
			names[strings.ToLower(def.Name)] = true
		}
	}
	return names, nil
}

// ParentOf implements WorldState.
func (t *Transaction) ParentOf(o types.ObjID) (types.ObjID, error) {
	rec, err := t.readRecord(o)
	if err != nil {
		return types.ObjNothing, err
	}
	return rec.Parent, nil
}

// LocationOf implements WorldState.
func (t *Transaction) LocationOf(o types.ObjID) (types.ObjID, error) {
	rec, err := t.readRecord(o)
	if err != nil {
		return types.ObjNothing, err
	}
	return rec.Location, nil
}

// ChildrenOf implements WorldState: all live objects whose Parent is o.
func (t *Transaction) ChildrenOf(o types.ObjID) ([]types.ObjID, error) {
	if _, err := t.readRecord(o); err != nil {
		return nil, err
	}
	var out []types.ObjID
	for _, id := range t.allKnownIDs() {
		rec, err := t.readRecord(id)
		if err != nil {
			continue
		}
		if rec.Parent == o {
			out = append(out, id)
		}
	}
	return out, nil
}

// ContentsOf implements WorldState: all live objects whose Location is o.
func (t *Transaction) ContentsOf(o types.ObjID) ([]types.ObjID, error) {
	if _, err := t.readRecord(o); err != nil {
		return nil, err
	}
	var out []types.ObjID
	for _, id := range t.allKnownIDs() {
		rec, err := t.readRecord(id)
		if err != nil {
			continue
		}
		if rec.Location == o {
			out = append(out, id)
		}
	}
	return out, nil
}

// DescendantsOf implements WorldState: a BFS over the children relation,
// with a cycle guard (the forest invariant should make cycles impossible,
// but the guard protects against programmer error as matches §9).
func (t *Transaction) DescendantsOf(o types.ObjID) ([]types.ObjID, error) {
	if _, err := t.readRecord(o); err != nil {
		return nil, err
	}
	var out []types.ObjID
	visited := map[types.ObjID]bool{o: true}
	queue := []types.ObjID{o}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		children, err := t.ChildrenOf(cur)
		if err != nil {
			continue
		}
		for _, c := range children {
			if visited[c] {
				continue
			}
			visited[c] = true
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out, nil
}

// AncestorsOf implements WorldState: walks Parent links to NOTHING, with a
// cycle guard.
func (t *Transaction) AncestorsOf(o types.ObjID) ([]types.ObjID, error) {
	rec, err := t.readRecord(o)
	if err != nil {
		return nil, err
	}
	var out []types.ObjID
	visited := map[types.ObjID]bool{o: true}
	cur := rec.Parent
	for cur != types.ObjNothing {
		if visited[cur] {
			break
		}
		visited[cur] = true
		out = append(out, cur)
		r, err := t.readRecord(cur)
		if err != nil {
			break
		}
		cur = r.Parent
	}
	return out, nil
}

// allKnownIDs is a scan helper used by the secondary-index queries above; it
// is O(n) in the number of objects ever seen by this transaction's store,
// matching the teacher's store which likewise has no persistent children/
// contents index (db/store.go maintains Children/Contents directly on the
// Object, which this package derives on demand instead to keep the
// copy-on-write overlay simple).
func (t *Transaction) allKnownIDs() []types.ObjID {
	seen := make(map[types.ObjID]bool)
	var ids []types.ObjID
	t.store.mu.RLock()
	for id := range t.store.objects {
		seen[id] = true
		ids = append(ids, id)
	}
	t.store.mu.RUnlock()
	for id := range t.local {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// FlagsOf implements WorldState. Flag reads skip permission checks (§4.1
// note: they are the input to permission checks and must not recurse).
func (t *Transaction) FlagsOf(o types.ObjID) (Flag, error) {
	rec, err := t.readRecord(o)
	if err != nil {
		return 0, err
	}
	return rec.Flags, nil
}

// SetFlagsOf implements WorldState.
func (t *Transaction) SetFlagsOf(perms Permissions, o types.ObjID, flags Flag) error {
	rec, err := t.writeRecord(o)
	if err != nil {
		return err
	}
	if !perms.CheckOwnerOrWizard(rec.Owner, false) {
		return newError(ErrObjectPermissionDenied, "#%v: set_flags requires ownership or wizard", o)
	}
	rec.Flags = flags
	return nil
}
