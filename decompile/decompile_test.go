package decompile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmoo/core/parser"
	"github.com/vmoo/core/types"
	"github.com/vmoo/core/vm/opcode"
)

const xVar opcode.VarID = 1

func ifElseProgram() *opcode.Program {
	return &opcode.Program{
		Main: []opcode.Instruction{
			{Op: opcode.OpPush, Name: xVar},
			{Op: opcode.OpImmInt, Literal: 0},
			{Op: opcode.OpGt},
			{Op: opcode.OpIf, Label: 1},
			{Op: opcode.OpPush, Name: xVar},
			{Op: opcode.OpReturn},
			{Op: opcode.OpJump, Label: 2},
			{Op: opcode.OpImmInt, Literal: 0},
			{Op: opcode.OpPush, Name: xVar},
			{Op: opcode.OpSub},
			{Op: opcode.OpReturn},
		},
		Literals: []types.Value{types.NewInt(0)},
		Labels: map[opcode.LabelID]opcode.LabelInfo{
			1: {Position: 7},
			2: {Position: 11},
		},
		Decls: map[opcode.VarID]opcode.VarDecl{
			xVar: {ID: xVar, Name: "x", Kind: opcode.DeclVar},
		},
	}
}

func TestDecompileIfElse(t *testing.T) {
	stmts, err := Decompile(ifElseProgram())
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	ifStmt, ok := stmts[0].(*parser.IfStmt)
	require.True(t, ok, "expected an IfStmt, got %T", stmts[0])

	cond, ok := ifStmt.Condition.(*parser.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, parser.TOKEN_GT, cond.Operator)

	require.Len(t, ifStmt.Body, 1)
	ret, ok := ifStmt.Body[0].(*parser.ReturnStmt)
	require.True(t, ok)
	ident, ok := ret.Value.(*parser.IdentifierExpr)
	require.True(t, ok)
	assert.Equal(t, "x", ident.Name)

	require.Len(t, ifStmt.Else, 1)
	elseRet, ok := ifStmt.Else[0].(*parser.ReturnStmt)
	require.True(t, ok)
	sub, ok := elseRet.Value.(*parser.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, parser.TOKEN_MINUS, sub.Operator)

	lines := parser.UnparseProgram(stmts)
	assert.NotEmpty(t, lines)
}

func TestDecompileWhileLoop(t *testing.T) {
	// while (x) x = x - 1; endwhile
	prog := &opcode.Program{
		Main: []opcode.Instruction{
			{Op: opcode.OpPush, Name: xVar},   // 0: cond, re-evaluated on each back-edge
			{Op: opcode.OpWhile, Label: 1},    // 1
			{Op: opcode.OpPush, Name: xVar},   // 2
			{Op: opcode.OpImmInt, Literal: 0}, // 3
			{Op: opcode.OpSub},                // 4
			{Op: opcode.OpPut, Name: xVar},    // 5
			{Op: opcode.OpJump, Label: 0},     // 6: back-edge to re-check the condition
		},
		Literals: []types.Value{types.NewInt(1)},
		Labels: map[opcode.LabelID]opcode.LabelInfo{
			0: {Position: 0},
			1: {Position: 7},
		},
		Decls: map[opcode.VarID]opcode.VarDecl{
			xVar: {ID: xVar, Name: "x", Kind: opcode.DeclVar},
		},
	}
	stmts, err := Decompile(prog)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	ws, ok := stmts[0].(*parser.WhileStmt)
	require.True(t, ok)
	require.Len(t, ws.Body, 1)
	_, ok = ws.Body[0].(*parser.ExprStmt)
	assert.True(t, ok)
}

func TestDecompileUnexpectedProgramEnd(t *testing.T) {
	prog := &opcode.Program{
		Main:   []opcode.Instruction{{Op: opcode.OpReturn}},
		Decls:  map[opcode.VarID]opcode.VarDecl{},
		Labels: map[opcode.LabelID]opcode.LabelInfo{},
	}
	_, err := Decompile(prog)
	require.Error(t, err)
	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, UnexpectedProgramEnd, derr.Kind)
}

func TestDecompileUnsupportedOpcode(t *testing.T) {
	prog := &opcode.Program{
		Main:   []opcode.Instruction{{Op: opcode.OpCapture}},
		Decls:  map[opcode.VarID]opcode.VarDecl{},
		Labels: map[opcode.LabelID]opcode.LabelInfo{},
	}
	_, err := Decompile(prog)
	require.Error(t, err)
	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, UnsupportedConstruct, derr.Kind)
}
