package worldstate

import (
	"strings"

	"github.com/vmoo/core/types"
)

// AddVerb implements WorldState: appends a new verb to o. Duplicate name
// sets are allowed; dispatch picks the first match in insertion order.
func (t *Transaction) AddVerb(perms Permissions, o types.ObjID, names []string, owner types.ObjID, flags Flag, args VerbArgsSpec, program any) (types.UUID, error) {
	rec, err := t.writeRecord(o)
	if err != nil {
		return types.UUID{}, err
	}
	if !perms.CheckOwnerOrWizard(rec.Owner, false) {
		return types.UUID{}, newError(ErrVerbPermissionDenied, "#%v: add_verb requires ownership or wizard", o)
	}
	def := VerbDef{
		UUID:     types.NewUUID(),
		Location: o,
		Owner:    owner,
		Names:    append([]string(nil), names...),
		Flags:    flags,
		Args:     args,
	}
	rec.VerbDefs = rec.VerbDefs.WithAdded(def)
	rec.Programs[def.UUID] = program
	t.recordWrite(RelationVerbDef, verbDefKey(o, def.UUID))
	return def.UUID, nil
}

// RemoveVerb implements WorldState.
func (t *Transaction) RemoveVerb(perms Permissions, o types.ObjID, uuid types.UUID) error {
	rec, err := t.writeRecord(o)
	if err != nil {
		return err
	}
	if !perms.CheckOwnerOrWizard(rec.Owner, false) {
		return newError(ErrVerbPermissionDenied, "#%v: remove_verb requires ownership or wizard", o)
	}
	if _, ok := rec.VerbDefs.Find(uuid); !ok {
		return newError(ErrVerbNotFound, "no verb %s on #%v", uuid, o)
	}
	rec.VerbDefs = rec.VerbDefs.WithRemoved(uuid)
	delete(rec.Programs, uuid)
	t.recordWrite(RelationVerbDef, verbDefKey(o, uuid))
	return nil
}

// UpdateVerbDef implements WorldState: replaces a verb's dispatch metadata,
// identified by uuid, preserving its position.
func (t *Transaction) UpdateVerbDef(perms Permissions, o types.ObjID, uuid types.UUID, names []string, owner types.ObjID, flags Flag, args VerbArgsSpec) error {
	rec, err := t.writeRecord(o)
	if err != nil {
		return err
	}
	existing, ok := rec.VerbDefs.Find(uuid)
	if !ok {
		return newError(ErrVerbNotFound, "no verb %s on #%v", uuid, o)
	}
	if !perms.CheckOwnerOrWizard(existing.Owner, false) {
		return newError(ErrVerbPermissionDenied, "#%v: update_verb requires ownership or wizard", o)
	}
	existing.Names = append([]string(nil), names...)
	existing.Owner = owner
	existing.Flags = flags
	existing.Args = args
	rec.VerbDefs = rec.VerbDefs.WithUpdated(existing)
	t.recordWrite(RelationVerbDef, verbDefKey(o, uuid))
	return nil
}

// UpdateVerbProgram implements WorldState: replaces a verb's compiled code
// without touching its dispatch metadata.
func (t *Transaction) UpdateVerbProgram(perms Permissions, o types.ObjID, uuid types.UUID, program any) error {
	rec, err := t.writeRecord(o)
	if err != nil {
		return err
	}
	existing, ok := rec.VerbDefs.Find(uuid)
	if !ok {
		return newError(ErrVerbNotFound, "no verb %s on #%v", uuid, o)
	}
	if !perms.CheckOwnerOrWizard(existing.Owner, false) {
		return newError(ErrVerbPermissionDenied, "#%v: update_verb_program requires ownership or wizard", o)
	}
	rec.Programs[uuid] = program
	t.recordWrite(RelationVerbDef, verbDefKey(o, uuid))
	return nil
}

// GetVerb implements WorldState: local lookup, no inheritance.
func (t *Transaction) GetVerb(o types.ObjID, uuid types.UUID) (VerbDef, error) {
	rec, err := t.readRecord(o)
	if err != nil {
		return VerbDef{}, err
	}
	def, ok := rec.VerbDefs.Find(uuid)
	if !ok {
		return VerbDef{}, newError(ErrVerbNotFound, "no verb %s on #%v", uuid, o)
	}
	return def, nil
}

// GetVerbAtIndex implements WorldState: 0-based position in insertion
// order, local to o.
func (t *Transaction) GetVerbAtIndex(o types.ObjID, index int) (VerbDef, error) {
	rec, err := t.readRecord(o)
	if err != nil {
		return VerbDef{}, err
	}
	all := rec.VerbDefs.ToSlice()
	if index < 0 || index >= len(all) {
		return VerbDef{}, newError(ErrVerbNotFound, "no verb at index %d on #%v", index, o)
	}
	return all[index], nil
}

// RetrieveVerb implements WorldState: local lookup returning both metadata
// and compiled program.
func (t *Transaction) RetrieveVerb(o types.ObjID, uuid types.UUID) (VerbDef, any, error) {
	rec, err := t.readRecord(o)
	if err != nil {
		return VerbDef{}, nil, err
	}
	def, ok := rec.VerbDefs.Find(uuid)
	if !ok {
		return VerbDef{}, nil, newError(ErrVerbNotFound, "no verb %s on #%v", uuid, o)
	}
	return def, rec.Programs[uuid], nil
}

// FindMethodVerbOn implements WorldState: walks ancestors starting at o,
// returning the first verb whose name list matches name.
func (t *Transaction) FindMethodVerbOn(o types.ObjID, name string) (types.ObjID, VerbDef, error) {
	cur := o
	visited := make(map[types.ObjID]bool)
	for cur != types.ObjNothing {
		if visited[cur] {
			break
		}
		visited[cur] = true
		rec, err := t.readRecord(cur)
		if err != nil {
			return types.ObjNothing, VerbDef{}, err
		}
		for _, def := range rec.VerbDefs.ToSlice() {
			if def.MatchesName(name) {
				return cur, def, nil
			}
		}
		cur = rec.Parent
	}
	return types.ObjNothing, VerbDef{}, newError(ErrVerbNotFound, "no verb named %q on #%v or its ancestors", name, o)
}

// FindCommandVerbOn implements WorldState: walks ancestors starting at o,
// returning the first verb whose name matches verb and whose args-spec
// matches (dobj,prep,iobj) against that ancestor as the dispatch anchor
// (§4.3's "This" comparison target).
func (t *Transaction) FindCommandVerbOn(o types.ObjID, verb string, dobj types.ObjID, prepPresent bool, prepID int16, iobj types.ObjID) (types.ObjID, VerbDef, error) {
	verb = strings.ToLower(verb)
	cur := o
	visited := make(map[types.ObjID]bool)
	for cur != types.ObjNothing {
		if visited[cur] {
			break
		}
		visited[cur] = true
		rec, err := t.readRecord(cur)
		if err != nil {
			return types.ObjNothing, VerbDef{}, err
		}
		for _, def := range rec.VerbDefs.ToSlice() {
			if !def.MatchesName(verb) {
				continue
			}
			if def.Args.Matches(cur, dobj, iobj, prepPresent, prepID) {
				return cur, def, nil
			}
		}
		cur = rec.Parent
	}
	return types.ObjNothing, VerbDef{}, newError(ErrVerbNotFound, "no command verb %q matches on #%v or its ancestors", verb, o)
}
