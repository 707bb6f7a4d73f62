package command

import (
	"github.com/vmoo/core/types"
	"github.com/vmoo/core/worldstate"
)

// Dispatch runs find_command_verb_on starting at o for the verb named in
// cmd, translating cmd's PrepSpec into the (prepPresent, prepID) pair
// worldstate.VerbArgsSpec.Matches expects. This is the glue §4.3's
// verb-to-args-spec dispatch rule describes between a parsed command and
// the WorldState verb search.
func Dispatch(tx worldstate.WorldState, o types.ObjID, cmd *ParsedCommand) (types.ObjID, worldstate.VerbDef, error) {
	prepPresent, prepID := prepArgs(cmd)
	return tx.FindCommandVerbOn(o, cmd.Verb, cmd.Dobj, prepPresent, prepID, cmd.Iobj)
}

func prepArgs(cmd *ParsedCommand) (bool, int16) {
	switch cmd.Prep.Kind {
	case worldstate.PrepSpecOther:
		return true, cmd.Prep.ID
	case worldstate.PrepSpecNone:
		return false, 0
	default:
		return false, 0
	}
}
