package worldstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmoo/core/types"
)

func wizardPerms(who types.ObjID) Permissions {
	return NewPermissions(who, FlagWizard)
}

func createObject(t *testing.T, tx *Transaction, parent, owner types.ObjID) types.ObjID {
	t.Helper()
	id, err := tx.CreateObject(wizardPerms(owner), parent, owner, 0)
	require.NoError(t, err)
	return id
}

func TestCreateAndRecycleObject(t *testing.T) {
	store := NewStore()
	tx := store.Begin()

	root := createObject(t, tx, types.ObjNothing, 1)
	child := createObject(t, tx, root, 1)

	assert.True(t, tx.Valid(root))
	assert.True(t, tx.Valid(child))

	parent, err := tx.ParentOf(child)
	require.NoError(t, err)
	assert.Equal(t, root, parent)

	require.NoError(t, tx.RecycleObject(wizardPerms(1), child))
	assert.False(t, tx.Valid(child))
}

func TestRecycleReparentsChildrenAndEvictsContents(t *testing.T) {
	store := NewStore()
	tx := store.Begin()

	grandparent := createObject(t, tx, types.ObjNothing, 1)
	middle := createObject(t, tx, grandparent, 1)
	leaf := createObject(t, tx, middle, 1)
	item := createObject(t, tx, types.ObjNothing, 1)

	require.NoError(t, tx.MoveObject(wizardPerms(1), item, middle))

	require.NoError(t, tx.RecycleObject(wizardPerms(1), middle))

	leafParent, err := tx.ParentOf(leaf)
	require.NoError(t, err)
	assert.Equal(t, grandparent, leafParent)

	itemLoc, err := tx.LocationOf(item)
	require.NoError(t, err)
	assert.Equal(t, types.ObjNothing, itemLoc)
}

func TestMoveObjectRejectsRecursiveMove(t *testing.T) {
	store := NewStore()
	tx := store.Begin()

	room := createObject(t, tx, types.ObjNothing, 1)
	box := createObject(t, tx, types.ObjNothing, 1)

	require.NoError(t, tx.MoveObject(wizardPerms(1), box, room))

	err := tx.MoveObject(wizardPerms(1), room, box)
	require.Error(t, err)
	var wsErr *WorldStateError
	require.ErrorAs(t, err, &wsErr)
	assert.Equal(t, ErrRecursiveMove, wsErr.Code)
}

func TestMoveObjectRejectsSelfMove(t *testing.T) {
	store := NewStore()
	tx := store.Begin()

	obj := createObject(t, tx, types.ObjNothing, 1)
	err := tx.MoveObject(wizardPerms(1), obj, obj)
	require.Error(t, err)
	var wsErr *WorldStateError
	require.ErrorAs(t, err, &wsErr)
	assert.Equal(t, ErrRecursiveMove, wsErr.Code)
}

func TestMoveObjectRequiresOwnerOrWizard(t *testing.T) {
	store := NewStore()
	tx := store.Begin()

	room := createObject(t, tx, types.ObjNothing, 1)
	obj := createObject(t, tx, types.ObjNothing, 1)

	intruder := NewPermissions(2, 0)
	err := tx.MoveObject(intruder, obj, room)
	require.Error(t, err)
	var wsErr *WorldStateError
	require.ErrorAs(t, err, &wsErr)
	assert.Equal(t, ErrObjectPermissionDenied, wsErr.Code)
}

func TestPropertyInheritance(t *testing.T) {
	store := NewStore()
	tx := store.Begin()

	parent := createObject(t, tx, types.ObjNothing, 1)
	child := createObject(t, tx, parent, 1)

	_, err := tx.DefineProperty(wizardPerms(1), parent, parent, "color", 1, FlagRead|FlagWrite, types.NewStr("red"))
	require.NoError(t, err)

	val, err := tx.RetrieveProperty(wizardPerms(1), child, "color")
	require.NoError(t, err)
	str, ok := val.(types.StrValue)
	require.True(t, ok)
	assert.Equal(t, "red", str.Value())

	require.NoError(t, tx.UpdateProperty(wizardPerms(1), child, "color", types.NewStr("blue")))
	val, err = tx.RetrieveProperty(wizardPerms(1), child, "color")
	require.NoError(t, err)
	str, ok = val.(types.StrValue)
	require.True(t, ok)
	assert.Equal(t, "blue", str.Value())

	parentVal, err := tx.RetrieveProperty(wizardPerms(1), parent, "color")
	require.NoError(t, err)
	str, ok = parentVal.(types.StrValue)
	require.True(t, ok)
	assert.Equal(t, "red", str.Value(), "overriding the child's slot must not affect the parent's")
}

func TestPropertyClearRevertsToInheritedValue(t *testing.T) {
	store := NewStore()
	tx := store.Begin()

	parent := createObject(t, tx, types.ObjNothing, 1)
	child := createObject(t, tx, parent, 1)

	_, err := tx.DefineProperty(wizardPerms(1), parent, parent, "color", 1, FlagRead|FlagWrite, types.NewStr("red"))
	require.NoError(t, err)
	require.NoError(t, tx.UpdateProperty(wizardPerms(1), child, "color", types.NewStr("blue")))

	clear, err := tx.IsPropertyClear(wizardPerms(1), child, "color")
	require.NoError(t, err)
	assert.False(t, clear)

	require.NoError(t, tx.ClearProperty(wizardPerms(1), child, "color"))

	clear, err = tx.IsPropertyClear(wizardPerms(1), child, "color")
	require.NoError(t, err)
	assert.True(t, clear)

	val, err := tx.RetrieveProperty(wizardPerms(1), child, "color")
	require.NoError(t, err)
	str, ok := val.(types.StrValue)
	require.True(t, ok)
	assert.Equal(t, "red", str.Value())
}

func TestDefinePropertyRejectsDuplicateInSubtree(t *testing.T) {
	store := NewStore()
	tx := store.Begin()

	parent := createObject(t, tx, types.ObjNothing, 1)
	child := createObject(t, tx, parent, 1)

	_, err := tx.DefineProperty(wizardPerms(1), parent, parent, "color", 1, 0, types.NewStr("red"))
	require.NoError(t, err)

	_, err = tx.DefineProperty(wizardPerms(1), child, child, "color", 1, 0, types.NewStr("green"))
	require.Error(t, err)
	var wsErr *WorldStateError
	require.ErrorAs(t, err, &wsErr)
	assert.Equal(t, ErrDuplicateProperty, wsErr.Code)
}

func TestChangeParentRejectsPropertyNameConflict(t *testing.T) {
	store := NewStore()
	tx := store.Begin()

	a := createObject(t, tx, types.ObjNothing, 1)
	b := createObject(t, tx, types.ObjNothing, 1)
	orphan := createObject(t, tx, types.ObjNothing, 1)

	_, err := tx.DefineProperty(wizardPerms(1), a, a, "color", 1, 0, types.NewStr("red"))
	require.NoError(t, err)
	_, err = tx.DefineProperty(wizardPerms(1), b, b, "color", 1, 0, types.NewStr("green"))
	require.NoError(t, err)

	require.NoError(t, tx.ChangeParent(wizardPerms(1), orphan, a))

	err = tx.ChangeParent(wizardPerms(1), a, b)
	require.Error(t, err)
	var wsErr *WorldStateError
	require.ErrorAs(t, err, &wsErr)
	assert.Equal(t, ErrChparentPropertyNameConflict, wsErr.Code)
}

func TestPropertyPermissionDenied(t *testing.T) {
	store := NewStore()
	tx := store.Begin()

	obj := createObject(t, tx, types.ObjNothing, 1)
	_, err := tx.DefineProperty(wizardPerms(1), obj, obj, "secret", 1, 0, types.NewStr("x"))
	require.NoError(t, err)

	intruder := NewPermissions(2, 0)
	_, err = tx.RetrieveProperty(intruder, obj, "secret")
	require.Error(t, err)
	var wsErr *WorldStateError
	require.ErrorAs(t, err, &wsErr)
	assert.Equal(t, ErrPropertyPermissionDenied, wsErr.Code)
}

func TestCommitDetectsConcurrentWriteConflict(t *testing.T) {
	store := NewStore()

	txA := store.Begin()
	obj := createObject(t, txA, types.ObjNothing, 1)
	_, err := txA.Commit()
	require.NoError(t, err)

	txB := store.Begin()
	txC := store.Begin()

	require.NoError(t, txB.SetFlagsOf(wizardPerms(1), obj, FlagFertile))
	_, err = txB.Commit()
	require.NoError(t, err)

	_, err = txC.readRecord(obj) // stage a read under txC's now-stale snapshot
	require.NoError(t, err)
	require.NoError(t, txC.SetFlagsOf(wizardPerms(1), obj, FlagWrite))
	_, err = txC.Commit()
	require.Error(t, err)
	var conflict *ConflictRetry
	require.ErrorAs(t, err, &conflict)
	require.NotEmpty(t, conflict.Conflicts)
}

func TestCommitThenDoubleCommitFails(t *testing.T) {
	store := NewStore()
	tx := store.Begin()
	createObject(t, tx, types.ObjNothing, 1)
	_, err := tx.Commit()
	require.NoError(t, err)

	_, err = tx.Commit()
	require.Error(t, err)
}

func TestRollbackDiscardsMutations(t *testing.T) {
	store := NewStore()
	tx := store.Begin()
	obj := createObject(t, tx, types.ObjNothing, 1)
	tx.Rollback()

	tx2 := store.Begin()
	assert.False(t, tx2.Valid(obj), "rolled-back creation must never reach the store")
}
