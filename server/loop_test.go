package server

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmoo/core/worldstate"

	"github.com/vmoo/core/types"
)

func wizardPerms(who types.ObjID) worldstate.Permissions {
	return worldstate.NewPermissions(who, worldstate.FlagWizard)
}

func createObject(t *testing.T, tx *worldstate.Transaction, parent, owner types.ObjID) types.ObjID {
	t.Helper()
	id, err := tx.CreateObject(wizardPerms(owner), parent, owner, 0)
	require.NoError(t, err)
	return id
}

func buildRoom(t *testing.T) (*worldstate.Transaction, types.ObjID, types.ObjID) {
	t.Helper()
	store := worldstate.NewStore()
	tx := store.Begin()

	room := createObject(t, tx, types.ObjNothing, 1)
	player := createObject(t, tx, types.ObjNothing, 1)
	require.NoError(t, tx.SetName(wizardPerms(1), room, "room"))
	require.NoError(t, tx.SetName(wizardPerms(1), player, "wizard"))
	require.NoError(t, tx.MoveObject(wizardPerms(1), player, room))

	ball := createObject(t, tx, types.ObjNothing, 1)
	require.NoError(t, tx.SetName(wizardPerms(1), ball, "red ball"))
	require.NoError(t, tx.SetAliases(wizardPerms(1), ball, []string{"ball"}))
	require.NoError(t, tx.MoveObject(wizardPerms(1), ball, room))

	_, err := tx.AddVerb(wizardPerms(1), room, []string{"take"}, 1, 0, worldstate.VerbArgsSpec{
		Dobj: worldstate.ObjSpecAny, Iobj: worldstate.ObjSpecNone, Prep: worldstate.PrepSpec{Kind: worldstate.PrepSpecNone},
	}, "program")
	require.NoError(t, err)

	return tx, player, ball
}

func TestCommandLoopDispatchesFoundVerb(t *testing.T) {
	tx, player, _ := buildRoom(t)
	var trace bytes.Buffer
	loop := NewCommandLoop(tx, player, NewTracer(&trace, nil, nil))

	res, err := loop.HandleLine("take ball")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFound, res.Outcome)
	assert.Contains(t, trace.String(), "take")
}

func TestCommandLoopNotUnderstood(t *testing.T) {
	tx, player, _ := buildRoom(t)
	loop := NewCommandLoop(tx, player, nil)

	res, err := loop.HandleLine("fly away")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotUnderstood, res.Outcome)
}

func TestCommandLoopAmbiguousObject(t *testing.T) {
	tx, player, _ := buildRoom(t)
	room, err := tx.LocationOf(player)
	require.NoError(t, err)
	twin := createObject(t, tx, types.ObjNothing, 1)
	require.NoError(t, tx.SetName(wizardPerms(1), twin, "red ball"))
	require.NoError(t, tx.SetAliases(wizardPerms(1), twin, []string{"ball"}))
	require.NoError(t, tx.MoveObject(wizardPerms(1), twin, room))

	loop := NewCommandLoop(tx, player, nil)
	res, err := loop.HandleLine("take ball")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAmbiguous, res.Outcome)
}
