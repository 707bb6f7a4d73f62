// Package server drives §6.6's command loop: a raw input line is parsed
// with command.Parse (object names resolved through match.Resolve against
// a WorldStateEnv), then dispatched against the standard LambdaMOO
// candidate order (player, location, dobj, iobj) using
// worldstate.Transaction.FindCommandVerbOn, grounded on the teacher's
// server/verbs.go FindVerb.
package server

import (
	"errors"

	"github.com/vmoo/core/command"
	"github.com/vmoo/core/match"
	"github.com/vmoo/core/types"
	"github.com/vmoo/core/worldstate"
)

// Outcome classifies what HandleLine found: a located verb, an ambiguous
// object name, or a bare "I don't understand that."
type Outcome int

const (
	OutcomeFound Outcome = iota
	OutcomeAmbiguous
	OutcomeNotUnderstood
)

// Result is what HandleLine reports back to the caller for one line.
type Result struct {
	Parsed  *command.ParsedCommand
	Outcome Outcome
	Owner   types.ObjID
	Verb    worldstate.VerbDef
}

// CommandLoop drives one player's command stream against a live
// transaction. It has no knowledge of verb execution (§4's scope is
// WorldState, matching, parsing, and decompilation, not a bytecode
// interpreter); HandleLine stops at verb resolution and leaves running
// the body to a caller that has one.
type CommandLoop struct {
	tx     worldstate.WorldState
	player types.ObjID
	trace  *Tracer
}

// NewCommandLoop creates a loop for player over tx, tracing dispatch
// decisions to trace (nil disables tracing).
func NewCommandLoop(tx worldstate.WorldState, player types.ObjID, trace *Tracer) *CommandLoop {
	return &CommandLoop{tx: tx, player: player, trace: trace}
}

// HandleLine parses and dispatches one line of player input.
func (l *CommandLoop) HandleLine(raw string) (*Result, error) {
	env := match.NewWorldStateEnv(l.tx)
	matcher := command.MatcherFunc(func(p types.ObjID, input string) (match.Result, error) {
		return match.Resolve(env, p, input, match.Options{})
	})

	parsed, err := command.Parse(raw, l.player, matcher)
	if err != nil {
		return nil, err
	}

	if len(parsed.AmbiguousDobj) > 0 || len(parsed.AmbiguousIobj) > 0 {
		res := &Result{Parsed: parsed, Outcome: OutcomeAmbiguous}
		l.traceDispatch(parsed, res)
		return res, nil
	}

	location, err := l.tx.LocationOf(l.player)
	if err != nil {
		return nil, err
	}

	for _, candidate := range candidateObjects(l.player, location, parsed) {
		owner, def, err := l.tx.FindCommandVerbOn(candidate, parsed.Verb, parsed.Dobj, parsed.Prep.Kind == worldstate.PrepSpecOther, parsed.Prep.ID, parsed.Iobj)
		if err == nil {
			res := &Result{Parsed: parsed, Outcome: OutcomeFound, Owner: owner, Verb: def}
			l.traceDispatch(parsed, res)
			return res, nil
		}
		var wsErr *worldstate.WorldStateError
		if !errors.As(err, &wsErr) || wsErr.Code != worldstate.ErrVerbNotFound {
			return nil, err
		}
	}

	res := &Result{Parsed: parsed, Outcome: OutcomeNotUnderstood}
	l.traceDispatch(parsed, res)
	return res, nil
}

// candidateObjects returns the search order FindVerb used: player,
// location, dobj, iobj, skipping ObjNothing entries.
func candidateObjects(player, location types.ObjID, cmd *command.ParsedCommand) []types.ObjID {
	out := []types.ObjID{player}
	if location != types.ObjNothing {
		out = append(out, location)
	}
	if cmd.Dobj != types.ObjNothing {
		out = append(out, cmd.Dobj)
	}
	if cmd.Iobj != types.ObjNothing {
		out = append(out, cmd.Iobj)
	}
	return out
}

func (l *CommandLoop) traceDispatch(cmd *command.ParsedCommand, res *Result) {
	if l.trace == nil {
		return
	}
	switch res.Outcome {
	case OutcomeFound:
		l.trace.DispatchVerb(l.player, res.Owner, cmd.Verb, res.Verb.UUID)
	case OutcomeAmbiguous:
		l.trace.DispatchMiss(l.player, cmd.Verb, "ambiguous object name")
	case OutcomeNotUnderstood:
		l.trace.DispatchMiss(l.player, cmd.Verb, "not understood")
	}
}
