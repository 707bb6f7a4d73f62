package worldstate

import "github.com/vmoo/core/types"

// NameOf and AliasesOf/SetName/SetAliases round out the Object attributes
// named in §3 (name, aliases) that the core's operation table doesn't
// otherwise expose a setter for; name resolution (§4.2's get_names) and the
// "name" pseudo-property (§6.3) both read through these.

// NameOf returns o's name. Flag-free, like FlagsOf: naming has no
// permission gate of its own in the core (§6.3 exposes "name" as a readable
// pseudo-property without further restriction).
func (t *Transaction) NameOf(o types.ObjID) (string, error) {
	rec, err := t.readRecord(o)
	if err != nil {
		return "", err
	}
	return rec.Name, nil
}

// AliasesOf returns o's alias list.
func (t *Transaction) AliasesOf(o types.ObjID) ([]string, error) {
	rec, err := t.readRecord(o)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), rec.Aliases...), nil
}

// SetName implements the owner-or-wizard write discipline for o's name.
func (t *Transaction) SetName(perms Permissions, o types.ObjID, name string) error {
	rec, err := t.writeRecord(o)
	if err != nil {
		return err
	}
	if !perms.CheckOwnerOrWizard(rec.Owner, rec.Flags.Has(FlagWrite)) {
		return newError(ErrObjectPermissionDenied, "#%v: set_name requires ownership, wizard, or write flag", o)
	}
	rec.Name = name
	return nil
}

// SetAliases implements the owner-or-wizard write discipline for o's alias
// list.
func (t *Transaction) SetAliases(perms Permissions, o types.ObjID, aliases []string) error {
	rec, err := t.writeRecord(o)
	if err != nil {
		return err
	}
	if !perms.CheckOwnerOrWizard(rec.Owner, rec.Flags.Has(FlagWrite)) {
		return newError(ErrObjectPermissionDenied, "#%v: set_aliases requires ownership, wizard, or write flag", o)
	}
	rec.Aliases = append([]string(nil), aliases...)
	return nil
}

// GetNames returns o's name followed by its aliases, the exact shape
// §4.2's MatchEnvironment.get_names contract requires.
func (t *Transaction) GetNames(o types.ObjID) ([]string, error) {
	rec, err := t.readRecord(o)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, 1+len(rec.Aliases))
	out = append(out, rec.Name)
	out = append(out, rec.Aliases...)
	return out, nil
}
