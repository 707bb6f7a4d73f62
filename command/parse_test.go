package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmoo/core/match"
	"github.com/vmoo/core/types"
)

const (
	testPlayer types.ObjID = 1
	testBird   types.ObjID = 2
	testBox    types.ObjID = 3
)

// nameMatcher resolves by exact substring against a tiny fixed table,
// standing in for match.Resolve so parser tests don't need a live room.
func nameMatcher(names map[string]types.ObjID) ObjectNameMatcher {
	return MatcherFunc(func(player types.ObjID, input string) (match.Result, error) {
		if id, ok := names[input]; ok {
			return match.Result{Kind: match.Single, Object: id}, nil
		}
		return match.Result{Kind: match.NoMatch}, nil
	})
}

func TestParseVerbOnly(t *testing.T) {
	cmd, err := Parse("look", testPlayer, nil)
	require.NoError(t, err)
	assert.Equal(t, "look", cmd.Verb)
	assert.Equal(t, types.ObjNothing, cmd.Dobj)
}

func TestParseDobjOnly(t *testing.T) {
	matcher := nameMatcher(map[string]types.ObjID{"bird": testBird})
	cmd, err := Parse("take bird", testPlayer, matcher)
	require.NoError(t, err)
	assert.Equal(t, "take", cmd.Verb)
	assert.Equal(t, "bird", cmd.Dobjstr)
	assert.Equal(t, testBird, cmd.Dobj)
}

func TestParseDobjPrepIobj(t *testing.T) {
	matcher := nameMatcher(map[string]types.ObjID{
		"bird": testBird,
		"box":  testBox,
	})
	cmd, err := Parse("put bird in box", testPlayer, matcher)
	require.NoError(t, err)
	assert.Equal(t, "put", cmd.Verb)
	assert.Equal(t, "bird", cmd.Dobjstr)
	assert.Equal(t, testBird, cmd.Dobj)
	assert.Equal(t, "in", cmd.Prepstr)
	assert.Equal(t, testBox, cmd.Iobj)
}

func TestParseMultiWordPreposition(t *testing.T) {
	matcher := nameMatcher(map[string]types.ObjID{
		"bird": testBird,
		"box":  testBox,
	})
	cmd, err := Parse("put bird in front of box", testPlayer, matcher)
	require.NoError(t, err)
	assert.Equal(t, "in front of", cmd.Prepstr)
	assert.Equal(t, testBird, cmd.Dobj)
	assert.Equal(t, testBox, cmd.Iobj)
}

func TestParseAmbiguousDobj(t *testing.T) {
	matcher := MatcherFunc(func(player types.ObjID, input string) (match.Result, error) {
		return match.Result{Kind: match.Multiple, Candidates: []types.ObjID{testBird, testBox}}, nil
	})
	cmd, err := Parse("take ball", testPlayer, matcher)
	require.NoError(t, err)
	assert.Equal(t, types.ObjAmbiguous, cmd.Dobj)
	assert.ElementsMatch(t, []types.ObjID{testBird, testBox}, cmd.AmbiguousDobj)
}

func TestParseChatShortcuts(t *testing.T) {
	cases := map[string]string{
		`"hello there`: "say",
		`:waves`:       "emote",
		`;1+1`:         "eval",
	}
	for input, wantVerb := range cases {
		cmd, err := Parse(input, testPlayer, nil)
		require.NoError(t, err)
		assert.Equal(t, wantVerb, cmd.Verb)
	}
}

func TestParseQuotedArgument(t *testing.T) {
	cmd, err := Parse(`say "hello world"`, testPlayer, nil)
	require.NoError(t, err)
	assert.Equal(t, "say", cmd.Verb)
	assert.Equal(t, []string{"hello world"}, cmd.Args)
}

func TestParseEmptyCommand(t *testing.T) {
	_, err := Parse("   ", testPlayer, nil)
	require.Error(t, err)
	var perr *ParseCommandError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "EmptyCommand", perr.Reason)
}

func TestParseNumericPreposition(t *testing.T) {
	matcher := nameMatcher(map[string]types.ObjID{"bird": testBird, "box": testBox})
	cmd, err := Parse("put bird #4 box", testPlayer, matcher)
	require.NoError(t, err)
	assert.Equal(t, "#4", cmd.Prepstr)
	assert.Equal(t, testBird, cmd.Dobj)
	assert.Equal(t, testBox, cmd.Iobj)
}
