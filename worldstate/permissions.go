package worldstate

import (
	"strings"

	"github.com/vmoo/core/types"
)

// Flag is a single bit in a Permissions flag set, per spec §3's
// {User, Programmer, Wizard, Read, Write, Fertile} vocabulary.
type Flag uint16

const (
	FlagUser       Flag = 1 << 0
	FlagProgrammer Flag = 1 << 1
	FlagWizard     Flag = 1 << 2
	FlagRead       Flag = 1 << 3
	FlagWrite      Flag = 1 << 4
	FlagFertile    Flag = 1 << 5
)

// Has reports whether flag is set
func (f Flag) Has(flag Flag) bool {
	return f&flag != 0
}

// Set returns f with flag set
func (f Flag) Set(flag Flag) Flag {
	return f | flag
}

// Clear returns f with flag cleared
func (f Flag) Clear(flag Flag) Flag {
	return f &^ flag
}

// String renders the flag set as a short letter code, in the teacher's
// PropertyPerms/VerbPerms style (db/object.go).
func (f Flag) String() string {
	var sb strings.Builder
	if f.Has(FlagUser) {
		sb.WriteString("U")
	}
	if f.Has(FlagProgrammer) {
		sb.WriteString("P")
	}
	if f.Has(FlagWizard) {
		sb.WriteString("W")
	}
	if f.Has(FlagRead) {
		sb.WriteString("r")
	}
	if f.Has(FlagWrite) {
		sb.WriteString("w")
	}
	if f.Has(FlagFertile) {
		sb.WriteString("f")
	}
	return sb.String()
}

// Permissions is the acting principal for a WorldState operation: who is
// performing it, and what flags they carry.
type Permissions struct {
	Who   types.ObjID
	Flags Flag
}

// NewPermissions constructs a Permissions value
func NewPermissions(who types.ObjID, flags Flag) Permissions {
	return Permissions{Who: who, Flags: flags}
}

// IsWizard reports whether the actor carries the Wizard flag
func (p Permissions) IsWizard() bool {
	return p.Flags.Has(FlagWizard)
}

// Owns reports whether the actor owns the given object
func (p Permissions) Owns(owner types.ObjID) bool {
	return p.Who == owner
}

// CheckOwnerOrWizard implements the universal permission check policy (§4.1):
// owner or wizard is always allowed; otherwise the target's own relevant flag
// (targetFlag) must be set.
func (p Permissions) CheckOwnerOrWizard(owner types.ObjID, targetHasFlag bool) bool {
	if p.Owns(owner) || p.IsWizard() {
		return true
	}
	return targetHasFlag
}
