package worldstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmoo/core/types"
)

func TestFindMethodVerbOnInherits(t *testing.T) {
	store := NewStore()
	tx := store.Begin()

	parent := createObject(t, tx, types.ObjNothing, 1)
	child := createObject(t, tx, parent, 1)

	_, err := tx.AddVerb(wizardPerms(1), parent, []string{"look*at", "examine"}, 1, 0, VerbArgsSpec{
		Dobj: ObjSpecAny, Iobj: ObjSpecNone, Prep: PrepSpec{Kind: PrepSpecNone},
	}, "program")
	require.NoError(t, err)

	owner, def, err := tx.FindMethodVerbOn(child, "look")
	require.NoError(t, err)
	assert.Equal(t, parent, owner)
	assert.Equal(t, "examine", def.Names[1])
}

func TestFindMethodVerbOnNotFound(t *testing.T) {
	store := NewStore()
	tx := store.Begin()
	obj := createObject(t, tx, types.ObjNothing, 1)

	_, _, err := tx.FindMethodVerbOn(obj, "fly")
	require.Error(t, err)
	var wsErr *WorldStateError
	require.ErrorAs(t, err, &wsErr)
	assert.Equal(t, ErrVerbNotFound, wsErr.Code)
}

func TestFindCommandVerbOnMatchesArgsSpec(t *testing.T) {
	store := NewStore()
	tx := store.Begin()

	room := createObject(t, tx, types.ObjNothing, 1)
	ball := createObject(t, tx, types.ObjNothing, 1)

	_, err := tx.AddVerb(wizardPerms(1), room, []string{"take"}, 1, 0, VerbArgsSpec{
		Dobj: ObjSpecAny, Iobj: ObjSpecNone, Prep: PrepSpec{Kind: PrepSpecNone},
	}, "program-no-prep")
	require.NoError(t, err)

	withID, err := tx.AddVerb(wizardPerms(1), room, []string{"put"}, 1, 0, VerbArgsSpec{
		Dobj: ObjSpecAny, Iobj: ObjSpecAny, Prep: PrepSpec{Kind: PrepSpecOther, ID: 4},
	}, "program-in")
	require.NoError(t, err)

	owner, def, err := tx.FindCommandVerbOn(room, "take", ball, false, 0, types.ObjNothing)
	require.NoError(t, err)
	assert.Equal(t, room, owner)
	assert.Equal(t, "take", def.Names[0])

	owner, def, err = tx.FindCommandVerbOn(room, "put", ball, true, 4, room)
	require.NoError(t, err)
	assert.Equal(t, room, owner)
	assert.Equal(t, withID, def.UUID)

	_, _, err = tx.FindCommandVerbOn(room, "put", ball, true, 5, room)
	require.Error(t, err)
}

func TestAddVerbRequiresOwnerOrWizard(t *testing.T) {
	store := NewStore()
	tx := store.Begin()
	obj := createObject(t, tx, types.ObjNothing, 1)

	intruder := NewPermissions(2, 0)
	_, err := tx.AddVerb(intruder, obj, []string{"poke"}, 2, 0, VerbArgsSpec{}, nil)
	require.Error(t, err)
	var wsErr *WorldStateError
	require.ErrorAs(t, err, &wsErr)
	assert.Equal(t, ErrVerbPermissionDenied, wsErr.Code)
}

func TestRemoveVerb(t *testing.T) {
	store := NewStore()
	tx := store.Begin()
	obj := createObject(t, tx, types.ObjNothing, 1)

	uuid, err := tx.AddVerb(wizardPerms(1), obj, []string{"poke"}, 1, 0, VerbArgsSpec{}, nil)
	require.NoError(t, err)

	require.NoError(t, tx.RemoveVerb(wizardPerms(1), obj, uuid))

	_, err = tx.GetVerb(obj, uuid)
	require.Error(t, err)
}

func TestVerbDefRoundTrip(t *testing.T) {
	original := VerbDef{
		UUID:     types.NewUUID(),
		Location: 42,
		Owner:    7,
		Names:    []string{"go*ahead", "foo"},
		Flags:    FlagRead | FlagWrite,
		Binary:   1,
		Args: VerbArgsSpec{
			Dobj: ObjSpecThis,
			Iobj: ObjSpecAny,
			Prep: PrepSpec{Kind: PrepSpecOther, ID: 9},
		},
	}
	encoded, err := EncodeVerbDef(original)
	require.NoError(t, err)

	decoded, err := DecodeVerbDef(encoded)
	require.NoError(t, err)

	assert.Equal(t, original.UUID, decoded.UUID)
	assert.Equal(t, original.Location, decoded.Location)
	assert.Equal(t, original.Owner, decoded.Owner)
	assert.Equal(t, original.Names, decoded.Names)
	assert.Equal(t, original.Flags, decoded.Flags)
	assert.Equal(t, original.Binary, decoded.Binary)
	assert.Equal(t, original.Args, decoded.Args)
}

func TestVerbNameWildcardMatching(t *testing.T) {
	v := VerbDef{Names: []string{"foo*bar"}}
	assert.True(t, v.MatchesName("foo"))
	assert.True(t, v.MatchesName("foob"))
	assert.True(t, v.MatchesName("foobar"))
	assert.False(t, v.MatchesName("foobarx"))
	assert.False(t, v.MatchesName("fo"))
}
