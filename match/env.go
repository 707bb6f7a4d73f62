// Package match implements object-name resolution: a narrow
// MatchEnvironment projection over WorldState, and the complex matcher
// that consumes it.
package match

import (
	"github.com/vmoo/core/types"
	"github.com/vmoo/core/worldstate"
)

// Environment is the narrow projection over WorldState that name
// matching needs: validity, names, surroundings, location. Scoping
// the matcher to this interface (rather than a full worldstate.WorldState)
// means it cannot reach any broader WorldState capability, and it can be
// exercised against a synthetic fixture without a real transaction.
type Environment interface {
	ObjValid(o types.ObjID) bool
	GetNames(o types.ObjID) ([]string, error)
	GetSurroundings(player types.ObjID) ([]types.ObjID, error)
	LocationOf(o types.ObjID) (types.ObjID, error)
}

// WorldStateEnv wraps a live WorldState transaction. Surroundings are
// collected in the order §4.2 specifies: inventory, then the location's
// contents, then the location itself, then the player — mirroring the
// teacher's MatchObject, which searches inventory before room contents.
type WorldStateEnv struct {
	tx worldstate.WorldState
}

// NewWorldStateEnv wraps tx for use as a match Environment.
func NewWorldStateEnv(tx worldstate.WorldState) *WorldStateEnv {
	return &WorldStateEnv{tx: tx}
}

func (e *WorldStateEnv) ObjValid(o types.ObjID) bool {
	return e.tx.Valid(o)
}

func (e *WorldStateEnv) GetNames(o types.ObjID) ([]string, error) {
	return e.tx.GetNames(o)
}

func (e *WorldStateEnv) LocationOf(o types.ObjID) (types.ObjID, error) {
	return e.tx.LocationOf(o)
}

func (e *WorldStateEnv) GetSurroundings(player types.ObjID) ([]types.ObjID, error) {
	inventory, err := e.tx.ContentsOf(player)
	if err != nil {
		return nil, err
	}
	loc, err := e.tx.LocationOf(player)
	if err != nil {
		return nil, err
	}
	out := append([]types.ObjID(nil), inventory...)
	if loc != types.ObjNothing {
		roomContents, err := e.tx.ContentsOf(loc)
		if err != nil {
			return nil, err
		}
		out = append(out, roomContents...)
		out = append(out, loc)
	}
	out = append(out, player)
	return out, nil
}

// fixtureObject is one entry in a MockEnvironment's world.
type fixtureObject struct {
	names    []string
	location types.ObjID
	contents []types.ObjID
}

// MockEnvironment is a synthetic, in-memory Environment for table-driven
// matcher tests, grounded on the Rust mock_matching_env.rs fixture cited
// in the original source: a bare id→{names, location} table with no
// WorldState machinery behind it.
type MockEnvironment struct {
	objects map[types.ObjID]*fixtureObject
	player  types.ObjID
}

// NewMockEnvironment creates an empty fixture with the given player id.
func NewMockEnvironment(player types.ObjID) *MockEnvironment {
	return &MockEnvironment{
		objects: make(map[types.ObjID]*fixtureObject),
		player:  player,
	}
}

// AddObject registers o with the given name/alias list and location,
// and threads it into the location's contents list.
func (m *MockEnvironment) AddObject(o types.ObjID, names []string, location types.ObjID) {
	m.objects[o] = &fixtureObject{names: append([]string(nil), names...), location: location}
	if loc, ok := m.objects[location]; ok {
		loc.contents = append(loc.contents, o)
	}
}

func (m *MockEnvironment) ObjValid(o types.ObjID) bool {
	_, ok := m.objects[o]
	return ok
}

func (m *MockEnvironment) GetNames(o types.ObjID) ([]string, error) {
	obj, ok := m.objects[o]
	if !ok {
		return nil, worldstate.NewObjectNotFoundError(o)
	}
	return append([]string(nil), obj.names...), nil
}

func (m *MockEnvironment) LocationOf(o types.ObjID) (types.ObjID, error) {
	obj, ok := m.objects[o]
	if !ok {
		return types.ObjNothing, worldstate.NewObjectNotFoundError(o)
	}
	return obj.location, nil
}

func (m *MockEnvironment) GetSurroundings(player types.ObjID) ([]types.ObjID, error) {
	obj, ok := m.objects[player]
	if !ok {
		return nil, worldstate.NewObjectNotFoundError(player)
	}
	out := append([]types.ObjID(nil), obj.contents...)
	if obj.location != types.ObjNothing {
		if loc, ok := m.objects[obj.location]; ok {
			out = append(out, loc.contents...)
		}
		out = append(out, obj.location)
	}
	out = append(out, player)
	return out, nil
}
