package worldstate

import (
	"strings"

	"github.com/vmoo/core/types"
)

// resolvePropDef walks o's ancestor chain (o first) looking for the first
// object that is the definer of a property named name (case-folded),
// returning that definer's id and PropDef. The property-conflict invariant
// (§3) guarantees at most one definer is reachable per chain.
func (t *Transaction) resolvePropDef(o types.ObjID, name string) (types.ObjID, PropDef, error) {
	folded := strings.ToLower(name)
	cur := o
	visited := make(map[types.ObjID]bool)
	for cur != types.ObjNothing {
		if visited[cur] {
			break
		}
		visited[cur] = true
		rec, err := t.readRecord(cur)
		if err != nil {
			return types.ObjNothing, PropDef{}, err
		}
		for _, def := range rec.PropDefs.ToSlice() {
			if strings.ToLower(def.Name) == folded {
				t.recordRead(RelationPropDef, propDefKey(cur, def.UUID))
				return cur, def, nil
			}
		}
		cur = rec.Parent
	}
	return types.ObjNothing, PropDef{}, newError(ErrPropertyNotFound, "property %q not found on #%v or its ancestors", name, o)
}

// DefineProperty implements WorldState.
func (t *Transaction) DefineProperty(perms Permissions, definer, location types.ObjID, name string, owner types.ObjID, flags Flag, initial types.Value) (types.UUID, error) {
	definerRec, err := t.readRecord(definer)
	if err != nil {
		return types.UUID{}, err
	}
	if definer != location {
		ancestors, err := t.AncestorsOf(location)
		if err != nil {
			return types.UUID{}, err
		}
		isAncestor := false
		for _, a := range ancestors {
			if a == definer {
				isAncestor = true
				break
			}
		}
		if !isAncestor {
			return types.UUID{}, newError(ErrDuplicateProperty, "definer #%v is not %v or an ancestor of it", definer, location)
		}
	}
	if !perms.CheckOwnerOrWizard(definerRec.Owner, false) {
		return types.UUID{}, newError(ErrPropertyPermissionDenied, "#%v: define_property requires ownership or wizard", definer)
	}

	folded := strings.ToLower(name)
	downward, err := t.namesDefinedIn(definer, true)
	if err != nil {
		return types.UUID{}, err
	}
	if downward[folded] {
		return types.UUID{}, newError(ErrDuplicateProperty, "property %q already defined in #%v's subtree", name, definer)
	}
	upward, err := t.namesDefinedIn(definer, false)
	if err != nil {
		return types.UUID{}, err
	}
	if upward[folded] {
		return types.UUID{}, newError(ErrDuplicateProperty, "property %q already defined on an ancestor of #%v", name, definer)
	}

	def := PropDef{
		UUID:     types.NewUUID(),
		Definer:  definer,
		Location: definer,
		Name:     name,
		Flags:    flags,
		Owner:    owner,
		Initial:  initial,
	}

	rec, err := t.writeRecord(definer)
	if err != nil {
		return types.UUID{}, err
	}
	rec.PropDefs = rec.PropDefs.WithAdded(def)
	rec.PropSlots[def.UUID] = PropertySlot{Clear: false, Value: initial, Owner: owner, Flags: flags}
	t.recordWrite(RelationPropDef, propDefKey(definer, def.UUID))
	t.recordWrite(RelationPropSlot, propSlotKey(definer, def.UUID))
	return def.UUID, nil
}

// DeleteProperty implements WorldState: only permitted on the definer;
// removes the definition there and every descendant's slot.
func (t *Transaction) DeleteProperty(perms Permissions, o types.ObjID, name string) error {
	definer, def, err := t.resolvePropDef(o, name)
	if err != nil {
		return err
	}
	if definer != o {
		return newError(ErrPropertyNotFound, "property %q is not defined directly on #%v (defined on #%v)", name, o, definer)
	}
	rec, err := t.writeRecord(o)
	if err != nil {
		return err
	}
	if !perms.CheckOwnerOrWizard(rec.Owner, false) {
		return newError(ErrPropertyPermissionDenied, "#%v: delete_property requires ownership or wizard", o)
	}
	rec.PropDefs = rec.PropDefs.WithRemoved(def.UUID)
	delete(rec.PropSlots, def.UUID)
	t.recordWrite(RelationPropDef, propDefKey(o, def.UUID))

	descendants, err := t.DescendantsOf(o)
	if err != nil {
		return err
	}
	for _, d := range descendants {
		dRec, err := t.writeRecord(d)
		if err != nil {
			return err
		}
		if _, ok := dRec.PropSlots[def.UUID]; ok {
			delete(dRec.PropSlots, def.UUID)
			t.recordWrite(RelationPropSlot, propSlotKey(d, def.UUID))
		}
	}
	return nil
}

// RetrieveProperty implements WorldState: walks ancestors from o upward,
// returning the first concrete value found, else the definer's initial
// value.
func (t *Transaction) RetrieveProperty(perms Permissions, o types.ObjID, name string) (types.Value, error) {
	if v, ok := builtinPseudoProperty(t, o, name); ok {
		return v, nil
	}

	definer, def, err := t.resolvePropDef(o, name)
	if err != nil {
		return nil, err
	}

	oRec, err := t.readRecord(o)
	if err != nil {
		return nil, err
	}
	slot, hasSlot := oRec.PropSlots[def.UUID]
	effectiveOwner, effectiveFlags := def.Owner, def.Flags
	if hasSlot {
		effectiveOwner, effectiveFlags = slot.Owner, slot.Flags
	}
	if !perms.CheckOwnerOrWizard(effectiveOwner, effectiveFlags.Has(FlagRead)) {
		return nil, newError(ErrPropertyPermissionDenied, "#%v: property %q is not readable", o, name)
	}

	cur := o
	visited := make(map[types.ObjID]bool)
	for cur != types.ObjNothing {
		if visited[cur] {
			break
		}
		visited[cur] = true
		rec, err := t.readRecord(cur)
		if err != nil {
			break
		}
		if slot, ok := rec.PropSlots[def.UUID]; ok {
			t.recordRead(RelationPropSlot, propSlotKey(cur, def.UUID))
			if !slot.Clear {
				return slot.Value, nil
			}
		}
		if cur == definer {
			break
		}
		cur = rec.Parent
	}
	return def.Initial, nil
}

// builtinPseudoProperty resolves the fixed set of names §6.3 requires
// property reads to consult before user-defined properties.
func builtinPseudoProperty(t *Transaction, o types.ObjID, name string) (types.Value, bool) {
	rec, err := t.readRecord(o)
	if err != nil {
		return nil, false
	}
	switch strings.ToLower(name) {
	case "name":
		return types.NewStr(rec.Name), true
	case "location":
		return types.NewObj(rec.Location), true
	case "contents":
		contents, err := t.ContentsOf(o)
		if err != nil {
			return nil, false
		}
		values := make([]types.Value, len(contents))
		for i, c := range contents {
			values[i] = types.NewObj(c)
		}
		return types.NewList(values), true
	case "owner":
		return types.NewObj(rec.Owner), true
	case "programmer":
		return types.NewBool(rec.Flags.Has(FlagProgrammer)), true
	case "wizard":
		return types.NewBool(rec.Flags.Has(FlagWizard)), true
	case "r":
		return types.NewBool(rec.Flags.Has(FlagRead)), true
	case "w":
		return types.NewBool(rec.Flags.Has(FlagWrite)), true
	case "f":
		return types.NewBool(rec.Flags.Has(FlagFertile)), true
	default:
		return nil, false
	}
}

// GetPropertyInfo implements WorldState.
func (t *Transaction) GetPropertyInfo(perms Permissions, o types.ObjID, name string) (PropDef, PropPerms, error) {
	_, def, err := t.resolvePropDef(o, name)
	if err != nil {
		return PropDef{}, PropPerms{}, err
	}
	rec, err := t.readRecord(o)
	if err != nil {
		return PropDef{}, PropPerms{}, err
	}
	perm := PropPerms{Owner: def.Owner, Flags: def.Flags}
	if slot, ok := rec.PropSlots[def.UUID]; ok {
		perm = PropPerms{Owner: slot.Owner, Flags: slot.Flags}
	}
	if !perms.CheckOwnerOrWizard(perm.Owner, perm.Flags.Has(FlagRead)) {
		return PropDef{}, PropPerms{}, newError(ErrPropertyPermissionDenied, "#%v: property %q info is not readable", o, name)
	}
	return def, perm, nil
}

// SetPropertyInfo implements WorldState: overrides owner/flags on o's own
// slot (creating one, inheriting the current value, if none existed).
func (t *Transaction) SetPropertyInfo(perms Permissions, o types.ObjID, name string, owner types.ObjID, flags Flag) error {
	_, def, err := t.resolvePropDef(o, name)
	if err != nil {
		return err
	}
	rec, err := t.writeRecord(o)
	if err != nil {
		return err
	}
	existing, hasSlot := rec.PropSlots[def.UUID]
	checkOwner, checkFlags := def.Owner, def.Flags
	if hasSlot {
		checkOwner, checkFlags = existing.Owner, existing.Flags
	}
	if !perms.CheckOwnerOrWizard(checkOwner, checkFlags.Has(FlagWrite)) {
		return newError(ErrPropertyPermissionDenied, "#%v: property %q info is not writable", o, name)
	}
	if !hasSlot {
		existing = PropertySlot{Clear: true, Value: def.Initial}
	}
	existing.Owner = owner
	existing.Flags = flags
	rec.PropSlots[def.UUID] = existing
	t.recordWrite(RelationPropSlot, propSlotKey(o, def.UUID))
	return nil
}

// UpdateProperty implements WorldState: sets a concrete local value.
func (t *Transaction) UpdateProperty(perms Permissions, o types.ObjID, name string, value types.Value) error {
	_, def, err := t.resolvePropDef(o, name)
	if err != nil {
		return err
	}
	rec, err := t.writeRecord(o)
	if err != nil {
		return err
	}
	existing, hasSlot := rec.PropSlots[def.UUID]
	checkOwner, checkFlags := def.Owner, def.Flags
	if hasSlot {
		checkOwner, checkFlags = existing.Owner, existing.Flags
	}
	if !perms.CheckOwnerOrWizard(checkOwner, checkFlags.Has(FlagWrite)) {
		return newError(ErrPropertyPermissionDenied, "#%v: property %q is not writable", o, name)
	}
	if !hasSlot {
		existing = PropertySlot{Owner: def.Owner, Flags: def.Flags}
	}
	existing.Clear = false
	existing.Value = value
	rec.PropSlots[def.UUID] = existing
	t.recordWrite(RelationPropSlot, propSlotKey(o, def.UUID))
	return nil
}

// IsPropertyClear implements WorldState.
func (t *Transaction) IsPropertyClear(perms Permissions, o types.ObjID, name string) (bool, error) {
	_, def, err := t.resolvePropDef(o, name)
	if err != nil {
		return false, err
	}
	rec, err := t.readRecord(o)
	if err != nil {
		return false, err
	}
	slot, ok := rec.PropSlots[def.UUID]
	if !ok {
		return true, nil
	}
	return slot.Clear, nil
}

// ClearProperty implements WorldState: removes the local value so future
// reads inherit from the nearest ancestor (or the definer's initial value).
func (t *Transaction) ClearProperty(perms Permissions, o types.ObjID, name string) error {
	_, def, err := t.resolvePropDef(o, name)
	if err != nil {
		return err
	}
	rec, err := t.writeRecord(o)
	if err != nil {
		return err
	}
	existing, hasSlot := rec.PropSlots[def.UUID]
	checkOwner, checkFlags := def.Owner, def.Flags
	if hasSlot {
		checkOwner, checkFlags = existing.Owner, existing.Flags
	}
	if !perms.CheckOwnerOrWizard(checkOwner, checkFlags.Has(FlagWrite)) {
		return newError(ErrPropertyPermissionDenied, "#%v: property %q is not writable", o, name)
	}
	existing.Clear = true
	rec.PropSlots[def.UUID] = existing
	t.recordWrite(RelationPropSlot, propSlotKey(o, def.UUID))
	return nil
}
