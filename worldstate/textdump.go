package worldstate

import (
	"io"
	"strings"

	"github.com/vmoo/core/db"
	"github.com/vmoo/core/types"
)

// ImportTextdump loads a LambdaMOO-style textdump (the teacher's db.Database
// format) from path and translates it into a fresh authoritative Store.
// Persistence itself is out of this core's scope (§1); this adapter exists
// so the core can be exercised against real dump files without inventing a
// parallel wire format.
//
// Textdumps predate UUID-keyed definitions, so every property/verb
// definition is assigned a fresh UUID on import; round-tripping through
// ExportTextdump and back does not preserve those ids (only names, which
// are the textdump format's own identity).
func ImportTextdump(path string) (*Store, error) {
	database, err := db.LoadDatabase(path)
	if err != nil {
		return nil, newError(ErrDatabaseError, "loading textdump: %v", err)
	}
	legacy := database.NewStoreFromDatabase()
	return importFromLegacyStore(legacy)
}

func importFromLegacyStore(legacy *db.Store) (*Store, error) {
	s := NewStore()

	// propDefUUID[definerID][propName] is populated in a first pass over
	// every object's own Defined properties, then consulted in a second
	// pass to resolve descendants' inherited slots to the right uuid.
	propDefUUID := make(map[types.ObjID]map[string]types.UUID)

	var maxID types.ObjID = types.ObjNothing
	objects := legacy.All()
	ids := make([]types.ObjID, 0, len(objects))
	for _, obj := range objects {
		ids = append(ids, obj.ID)
	}

	for _, id := range ids {
		obj := legacy.GetUnsafe(id)
		if obj == nil || obj.Recycled {
			continue
		}
		if id > maxID && !obj.Anonymous {
			maxID = id
		}

		rec := &objectRecord{
			ID:        id,
			Name:      obj.Name,
			Owner:     obj.Owner,
			Location:  obj.Location,
			Flags:     translateLegacyObjectFlags(obj.Flags),
			PropSlots: make(map[types.UUID]PropertySlot),
			Programs:  make(map[types.UUID]any),
		}
		if len(obj.Parents) > 0 {
			rec.Parent = obj.Parents[0]
		} else {
			rec.Parent = types.ObjNothing
		}

		for _, name := range obj.PropOrder {
			prop, ok := obj.Properties[name]
			if !ok || !prop.Defined {
				continue
			}
			def := PropDef{
				UUID:     types.NewUUID(),
				Definer:  id,
				Location: id,
				Name:     name,
				Flags:    translateLegacyPropPerms(prop.Perms),
				Owner:    prop.Owner,
				Initial:  prop.Value,
			}
			rec.PropDefs = rec.PropDefs.WithAdded(def)
			rec.PropSlots[def.UUID] = PropertySlot{
				Clear: prop.Clear,
				Value: prop.Value,
				Owner: prop.Owner,
				Flags: def.Flags,
			}
			if propDefUUID[id] == nil {
				propDefUUID[id] = make(map[string]types.UUID)
			}
			propDefUUID[id][strings.ToLower(name)] = def.UUID
		}

		for _, verb := range obj.VerbList {
			def := VerbDef{
				UUID:     types.NewUUID(),
				Location: id,
				Owner:    verb.Owner,
				Names:    append([]string(nil), verb.Names...),
				Flags:    translateLegacyVerbPerms(verb.Perms),
				Args:     translateLegacyArgSpec(verb.ArgSpec),
			}
			rec.VerbDefs = rec.VerbDefs.WithAdded(def)
			rec.Programs[def.UUID] = verb.Program
		}

		s.objects[id] = rec
	}

	// Second pass: resolve non-defining property slots to their definer's
	// uuid by walking the (already-imported) parent chain.
	for _, id := range ids {
		obj := legacy.GetUnsafe(id)
		if obj == nil || obj.Recycled {
			continue
		}
		rec := s.objects[id]
		for _, name := range obj.PropOrder {
			prop, ok := obj.Properties[name]
			if !ok || prop.Defined {
				continue
			}
			uuid, found := findPropDefUUID(s, rec.Parent, name)
			if !found {
				continue
			}
			rec.PropSlots[uuid] = PropertySlot{
				Clear: prop.Clear,
				Value: prop.Value,
				Owner: prop.Owner,
				Flags: translateLegacyPropPerms(prop.Perms),
			}
		}
	}

	s.maxObjID = maxID
	s.highWaterID = legacy.NextID() - 1
	return s, nil
}

func findPropDefUUID(s *Store, start types.ObjID, name string) (types.UUID, bool) {
	folded := strings.ToLower(name)
	cur := start
	visited := make(map[types.ObjID]bool)
	for cur != types.ObjNothing {
		if visited[cur] {
			break
		}
		visited[cur] = true
		rec, ok := s.objects[cur]
		if !ok {
			break
		}
		for _, def := range rec.PropDefs.ToSlice() {
			if strings.ToLower(def.Name) == folded {
				return def.UUID, true
			}
		}
		cur = rec.Parent
	}
	return types.UUID{}, false
}

func translateLegacyObjectFlags(f db.ObjectFlags) Flag {
	var out Flag
	if f.Has(db.FlagUser) {
		out = out.Set(FlagUser)
	}
	if f.Has(db.FlagProgrammer) {
		out = out.Set(FlagProgrammer)
	}
	if f.Has(db.FlagWizard) {
		out = out.Set(FlagWizard)
	}
	if f.Has(db.FlagRead) {
		out = out.Set(FlagRead)
	}
	if f.Has(db.FlagWrite) {
		out = out.Set(FlagWrite)
	}
	if f.Has(db.FlagFertile) {
		out = out.Set(FlagFertile)
	}
	return out
}

func translateLegacyPropPerms(p db.PropertyPerms) Flag {
	var out Flag
	if p.Has(db.PropRead) {
		out = out.Set(FlagRead)
	}
	if p.Has(db.PropWrite) {
		out = out.Set(FlagWrite)
	}
	return out
}

func translateLegacyVerbPerms(p db.VerbPerms) Flag {
	var out Flag
	if p.Has(db.VerbRead) {
		out = out.Set(FlagRead)
	}
	if p.Has(db.VerbWrite) {
		out = out.Set(FlagWrite)
	}
	return out
}

func translateLegacyArgSpec(spec db.VerbArgs) VerbArgsSpec {
	return VerbArgsSpec{
		Dobj: translateLegacyObjSpec(spec.This),
		Prep: translateLegacyPrepSpec(spec.Prep),
		Iobj: translateLegacyObjSpec(spec.That),
	}
}

func translateLegacyObjSpec(s string) ObjSpec {
	switch strings.ToLower(s) {
	case "this":
		return ObjSpecThis
	case "any":
		return ObjSpecAny
	default:
		return ObjSpecNone
	}
}

func translateLegacyPrepSpec(s string) PrepSpec {
	switch strings.ToLower(s) {
	case "any":
		return PrepSpec{Kind: PrepSpecAny}
	case "none":
		return PrepSpec{Kind: PrepSpecNone}
	default:
		if id, ok := LookupPrepositionByName(s); ok {
			return PrepSpec{Kind: PrepSpecOther, ID: id}
		}
		return PrepSpec{Kind: PrepSpecAny}
	}
}

// ExportTextdump writes store's current committed state to w in the
// teacher's textdump format, round-tripping everything ImportTextdump can
// reconstruct: object graph shape, flags, property/verb metadata and
// values. Verb bytecode is carried through opaquely (the compiler and its
// bytecode representation are external collaborators per §1).
func ExportTextdump(s *Store, w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	legacy := db.NewStore()
	for id, rec := range s.objects {
		obj := db.NewObject(id, rec.Owner)
		obj.Name = rec.Name
		obj.Location = rec.Location
		obj.Flags = translateFlagsToLegacy(rec.Flags)
		if rec.Parent != types.ObjNothing {
			obj.Parents = []types.ObjID{rec.Parent}
		}
		obj.Properties = make(map[string]*db.Property)
		for _, def := range rec.PropDefs.ToSlice() {
			slot := rec.PropSlots[def.UUID]
			obj.Properties[def.Name] = &db.Property{
				Name:    def.Name,
				Value:   slot.Value,
				Owner:   slot.Owner,
				Perms:   translatePropPermsToLegacy(slot.Flags),
				Clear:   slot.Clear,
				Defined: true,
			}
			obj.PropOrder = append(obj.PropOrder, def.Name)
			obj.PropDefsCount++
		}
		for _, verb := range rec.VerbDefs.ToSlice() {
			v := &db.Verb{
				Name:    firstOr(verb.Names, ""),
				Names:   append([]string(nil), verb.Names...),
				Owner:   verb.Owner,
				Perms:   translateVerbPermsToLegacy(verb.Flags),
				ArgSpec: translateArgSpecToLegacy(verb.Args),
			}
			if prog, ok := rec.Programs[verb.UUID]; ok {
				if vp, ok := prog.(*db.VerbProgram); ok {
					v.Program = vp
				}
			}
			obj.VerbList = append(obj.VerbList, v)
			if obj.Verbs == nil {
				obj.Verbs = make(map[string]*db.Verb)
			}
			obj.Verbs[v.Name] = v
		}
		if err := legacy.Add(obj); err != nil {
			return newError(ErrDatabaseError, "staging #%v for export: %v", id, err)
		}
	}

	writer := db.NewWriter(w, legacy)
	if err := writer.WriteDatabase(); err != nil {
		return newError(ErrDatabaseError, "writing textdump: %v", err)
	}
	return writer.Flush()
}

func firstOr(names []string, fallback string) string {
	if len(names) == 0 {
		return fallback
	}
	return names[0]
}

func translateFlagsToLegacy(f Flag) db.ObjectFlags {
	var out db.ObjectFlags
	if f.Has(FlagUser) {
		out = out.Set(db.FlagUser)
	}
	if f.Has(FlagProgrammer) {
		out = out.Set(db.FlagProgrammer)
	}
	if f.Has(FlagWizard) {
		out = out.Set(db.FlagWizard)
	}
	if f.Has(FlagRead) {
		out = out.Set(db.FlagRead)
	}
	if f.Has(FlagWrite) {
		out = out.Set(db.FlagWrite)
	}
	if f.Has(FlagFertile) {
		out = out.Set(db.FlagFertile)
	}
	return out
}

func translatePropPermsToLegacy(f Flag) db.PropertyPerms {
	var out db.PropertyPerms
	if f.Has(FlagRead) {
		out |= db.PropRead
	}
	if f.Has(FlagWrite) {
		out |= db.PropWrite
	}
	return out
}

func translateVerbPermsToLegacy(f Flag) db.VerbPerms {
	var out db.VerbPerms
	if f.Has(FlagRead) {
		out |= db.VerbRead
	}
	if f.Has(FlagWrite) {
		out |= db.VerbWrite
	}
	out |= db.VerbExecute
	return out
}

func translateArgSpecToLegacy(spec VerbArgsSpec) db.VerbArgs {
	return db.VerbArgs{
		This: translateObjSpecToLegacy(spec.Dobj),
		Prep: translatePrepSpecToLegacy(spec.Prep),
		That: translateObjSpecToLegacy(spec.Iobj),
	}
}

func translateObjSpecToLegacy(s ObjSpec) string {
	switch s {
	case ObjSpecThis:
		return "this"
	case ObjSpecAny:
		return "any"
	default:
		return "none"
	}
}

func translatePrepSpecToLegacy(p PrepSpec) string {
	switch p.Kind {
	case PrepSpecAny:
		return "any"
	case PrepSpecNone:
		return "none"
	default:
		return PrepositionName(p.ID)
	}
}
