package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmoo/core/types"
)

func TestMockEnvironmentSurroundingsOrder(t *testing.T) {
	env := NewMockEnvironment(testPlayer)
	env.AddObject(testRoom, []string{"room"}, types.ObjNothing)
	env.AddObject(testPlayer, []string{"you"}, testRoom)
	env.AddObject(testBird, []string{"bird"}, testRoom)
	env.AddObject(testBall, []string{"ball"}, testPlayer)

	surroundings, err := env.GetSurroundings(testPlayer)
	require.NoError(t, err)

	// Inventory (ball) first, then the room's contents — which include
	// the player itself, since the player is "in" the room the same way
	// any other object is — then the room, then the player again,
	// matching §4.2's enumeration order and WorldStateEnv's parallel
	// ContentsOf-based construction.
	assert.Equal(t, []types.ObjID{testBall, testPlayer, testBird, testRoom, testPlayer}, surroundings)
}

func TestMockEnvironmentUnknownObject(t *testing.T) {
	env := NewMockEnvironment(testPlayer)
	_, err := env.GetNames(testBird)
	assert.Error(t, err)

	_, err = env.LocationOf(testBird)
	assert.Error(t, err)

	_, err = env.GetSurroundings(testBird)
	assert.Error(t, err)
}

func TestMockEnvironmentObjValid(t *testing.T) {
	env := NewMockEnvironment(testPlayer)
	env.AddObject(testRoom, []string{"room"}, types.ObjNothing)
	assert.True(t, env.ObjValid(testRoom))
	assert.False(t, env.ObjValid(testBird))
}
