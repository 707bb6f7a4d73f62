package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmoo/core/types"
)

const (
	testRoom   types.ObjID = 1
	testPlayer types.ObjID = 2
	testBird   types.ObjID = 3
	testBall   types.ObjID = 4
	testBall2  types.ObjID = 5
)

func demoEnv() *MockEnvironment {
	env := NewMockEnvironment(testPlayer)
	env.AddObject(testRoom, []string{"room", "demo room"}, types.ObjNothing)
	env.AddObject(testPlayer, []string{"you", "player"}, testRoom)
	env.AddObject(testBird, []string{"yellow bird", "bird"}, testRoom)
	env.AddObject(testBall, []string{"red ball", "ball"}, testRoom)
	return env
}

func TestResolveEmptyInput(t *testing.T) {
	env := demoEnv()
	result, err := Resolve(env, testPlayer, "   ", Options{})
	require.NoError(t, err)
	assert.Equal(t, None, result.Kind)
}

func TestResolveMeAndHere(t *testing.T) {
	env := demoEnv()

	result, err := Resolve(env, testPlayer, "me", Options{})
	require.NoError(t, err)
	assert.Equal(t, Single, result.Kind)
	assert.Equal(t, testPlayer, result.Object)

	result, err = Resolve(env, testPlayer, "here", Options{})
	require.NoError(t, err)
	assert.Equal(t, Single, result.Kind)
	assert.Equal(t, testRoom, result.Object)
}

func TestResolveObjRef(t *testing.T) {
	env := demoEnv()
	result, err := Resolve(env, testPlayer, "#3", Options{})
	require.NoError(t, err)
	assert.Equal(t, Single, result.Kind)
	assert.Equal(t, testBird, result.Object)
}

func TestResolveExactMatch(t *testing.T) {
	env := demoEnv()
	result, err := Resolve(env, testPlayer, "bird", Options{})
	require.NoError(t, err)
	assert.Equal(t, Single, result.Kind)
	assert.Equal(t, testBird, result.Object)
}

func TestResolvePrefixMatch(t *testing.T) {
	env := demoEnv()
	result, err := Resolve(env, testPlayer, "yel", Options{})
	require.NoError(t, err)
	assert.Equal(t, Single, result.Kind)
	assert.Equal(t, testBird, result.Object)
}

func TestResolveSubstringMatch(t *testing.T) {
	env := demoEnv()
	result, err := Resolve(env, testPlayer, "ello", Options{})
	require.NoError(t, err)
	assert.Equal(t, Single, result.Kind)
	assert.Equal(t, testBird, result.Object)
}

func TestResolveNoMatch(t *testing.T) {
	env := demoEnv()
	result, err := Resolve(env, testPlayer, "dragon", Options{})
	require.NoError(t, err)
	assert.Equal(t, NoMatch, result.Kind)
}

func TestResolveMultipleCandidates(t *testing.T) {
	env := NewMockEnvironment(testPlayer)
	env.AddObject(testRoom, []string{"room"}, types.ObjNothing)
	env.AddObject(testPlayer, []string{"you"}, testRoom)
	env.AddObject(testBall, []string{"red ball", "ball"}, testRoom)
	env.AddObject(testBall2, []string{"blue ball", "ball"}, testRoom)

	result, err := Resolve(env, testPlayer, "ball", Options{})
	require.NoError(t, err)
	require.Equal(t, Multiple, result.Kind)
	assert.ElementsMatch(t, []types.ObjID{testBall, testBall2}, result.Candidates)
}

func TestResolveOrdinalDisambiguates(t *testing.T) {
	env := NewMockEnvironment(testPlayer)
	env.AddObject(testRoom, []string{"room"}, types.ObjNothing)
	env.AddObject(testPlayer, []string{"you"}, testRoom)
	env.AddObject(testBall, []string{"red ball", "ball"}, testRoom)
	env.AddObject(testBall2, []string{"blue ball", "ball"}, testRoom)

	result, err := Resolve(env, testPlayer, "second ball", Options{})
	require.NoError(t, err)
	require.Equal(t, Single, result.Kind)
	assert.Equal(t, testBall2, result.Object)

	result, err = Resolve(env, testPlayer, "1st ball", Options{})
	require.NoError(t, err)
	require.Equal(t, Single, result.Kind)
	assert.Equal(t, testBall, result.Object)
}

func TestResolveOrdinalOutOfRange(t *testing.T) {
	env := demoEnv()
	env.AddObject(testBall2, []string{"blue ball", "ball"}, testRoom)
	result, err := Resolve(env, testPlayer, "third ball", Options{})
	require.NoError(t, err)
	assert.Equal(t, NoMatch, result.Kind)
}

func TestResolveFuzzyDisabledByDefault(t *testing.T) {
	env := demoEnv()
	result, err := Resolve(env, testPlayer, "brid", Options{})
	require.NoError(t, err)
	assert.Equal(t, NoMatch, result.Kind)
}

func TestResolveFuzzyEnabled(t *testing.T) {
	env := demoEnv()
	result, err := Resolve(env, testPlayer, "brid", Options{EnableFuzzy: true})
	require.NoError(t, err)
	require.Equal(t, Single, result.Kind)
	assert.Equal(t, testBird, result.Object)
}

func TestResultToObjID(t *testing.T) {
	assert.Equal(t, testBird, Result{Kind: Single, Object: testBird}.ToObjID())
	assert.Equal(t, types.ObjAmbiguous, Result{Kind: Multiple}.ToObjID())
	assert.Equal(t, types.ObjFailedMatch, Result{Kind: NoMatch}.ToObjID())
	assert.Equal(t, types.ObjFailedMatch, Result{Kind: None}.ToObjID())
}
