package decompile

import (
	"github.com/vmoo/core/parser"
	"github.com/vmoo/core/types"
	"github.com/vmoo/core/vm/opcode"
)

// decompiler holds the single continuous expression-value stack threaded
// through one Decompile call, plus the set of (variable, scope) pairs
// already assigned. The AST has no declaration node, so a first
// assignment and later ones both decompile to a plain AssignExpr.
type decompiler struct {
	prog      *opcode.Program
	stack     []parser.Expr
	seenDecls map[[2]int]bool
}

// Decompile reconstructs prog's main opcode vector into a statement list.
func Decompile(prog *opcode.Program) ([]parser.Stmt, error) {
	d := &decompiler{prog: prog, seenDecls: make(map[[2]int]bool)}
	stmts, stopped, err := d.decompileRange(prog.Main, 0, len(prog.Main))
	if err != nil {
		return nil, err
	}
	if stopped != len(prog.Main) {
		return nil, newError(MalformedProgram, stopped, "unexpected %s with no enclosing construct", prog.Main[stopped].Op)
	}
	if len(d.stack) != 0 {
		return nil, newError(MalformedProgram, len(prog.Main), "expression stack not empty at end of program (%d left)", len(d.stack))
	}
	return stmts, nil
}

// isBoundary reports whether op is one of the construct terminators a
// bounded decompileRange call stops at without consuming, leaving it for
// the enclosing decompileXxx helper (decompileIf, decompileFor, ...) to
// recognize and advance past itself.
func isBoundary(op opcode.OpCode) bool {
	switch op {
	case opcode.OpEif, opcode.OpIterateForSequence, opcode.OpIterateForRange,
		opcode.OpEndExcept, opcode.OpEndFinally, opcode.OpFinallyContinue,
		opcode.OpEndCatch, opcode.OpComprehendRange, opcode.OpComprehendList,
		opcode.OpContinueComprehension, opcode.OpDone, opcode.OpEndScope:
		return true
	default:
		return false
	}
}

func (d *decompiler) push(e parser.Expr) {
	d.stack = append(d.stack, e)
}

func (d *decompiler) pop(pos int) (parser.Expr, error) {
	if len(d.stack) == 0 {
		return nil, newError(UnexpectedProgramEnd, pos, "expression stack empty")
	}
	e := d.stack[len(d.stack)-1]
	d.stack = d.stack[:len(d.stack)-1]
	return e, nil
}

func (d *decompiler) labelPos(label opcode.LabelID, pos int) (int, error) {
	info, ok := d.prog.Labels[label]
	if !ok {
		return 0, newError(LabelNotFound, pos, "no such label %d", label)
	}
	return info.Position, nil
}

func (d *decompiler) declFor(id opcode.VarID, pos int) (opcode.VarDecl, error) {
	decl, ok := d.prog.DeclFor(id)
	if !ok {
		return opcode.VarDecl{}, newError(NameNotFound, pos, "no declaration for variable %d", id)
	}
	return decl, nil
}

func tokenForOp(op opcode.OpCode) (parser.TokenType, bool) {
	switch op {
	case opcode.OpAdd:
		return parser.TOKEN_PLUS, true
	case opcode.OpSub:
		return parser.TOKEN_MINUS, true
	case opcode.OpMul:
		return parser.TOKEN_STAR, true
	case opcode.OpDiv:
		return parser.TOKEN_SLASH, true
	case opcode.OpMod:
		return parser.TOKEN_PERCENT, true
	case opcode.OpExp:
		return parser.TOKEN_CARET, true
	case opcode.OpEq:
		return parser.TOKEN_EQ, true
	case opcode.OpNe:
		return parser.TOKEN_NE, true
	case opcode.OpLt:
		return parser.TOKEN_LT, true
	case opcode.OpLe:
		return parser.TOKEN_LE, true
	case opcode.OpGt:
		return parser.TOKEN_GT, true
	case opcode.OpGe:
		return parser.TOKEN_GE, true
	case opcode.OpIn:
		return parser.TOKEN_IN, true
	case opcode.OpBitAnd:
		return parser.TOKEN_BITAND, true
	case opcode.OpBitOr:
		return parser.TOKEN_BITOR, true
	case opcode.OpBitXor:
		return parser.TOKEN_BITXOR, true
	case opcode.OpBitShl:
		return parser.TOKEN_LSHIFT, true
	case opcode.OpBitShr, opcode.OpBitLShr:
		return parser.TOKEN_RSHIFT, true
	default:
		return 0, false
	}
}

// decompileRange runs the single pass over instrs[start:end), appending
// reconstructed statements and leaving partial expressions on d.stack.
// It returns the statement list and the position it stopped at (end,
// unless an enclosing construct's terminator was hit early).
func (d *decompiler) decompileRange(instrs []opcode.Instruction, start, end int) ([]parser.Stmt, int, error) {
	var stmts []parser.Stmt
	pos := start
	for pos < end {
		if pos >= len(instrs) {
			return nil, pos, newError(UnexpectedProgramEnd, pos, "opcode vector exhausted")
		}
		instr := instrs[pos]
		if isBoundary(instr.Op) {
			return stmts, pos, nil
		}

		switch {
		case opcode.IsBinaryOperator(instr.Op):
			right, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			left, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			tok, ok := tokenForOp(instr.Op)
			if !ok {
				return nil, pos, newError(UnsupportedConstruct, pos, "no token mapping for %s", instr.Op)
			}
			d.push(&parser.BinaryExpr{Left: left, Operator: tok, Right: right})
			pos++

		case instr.Op == opcode.OpNot || instr.Op == opcode.OpNeg || instr.Op == opcode.OpUnaryMinus || instr.Op == opcode.OpBitNot:
			operand, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			tok := parser.TOKEN_NOT
			switch instr.Op {
			case opcode.OpNeg, opcode.OpUnaryMinus:
				tok = parser.TOKEN_MINUS
			case opcode.OpBitNot:
				tok = parser.TOKEN_BITNOT
			}
			d.push(&parser.UnaryExpr{Operator: tok, Operand: operand})
			pos++

		case instr.Op == opcode.OpImm || instr.Op == opcode.OpImmInt || instr.Op == opcode.OpImmBigInt ||
			instr.Op == opcode.OpImmFloat || instr.Op == opcode.OpImmObjid || instr.Op == opcode.OpImmSymbol ||
			instr.Op == opcode.OpImmType || instr.Op == opcode.OpImmErr:
			if instr.Literal < 0 || instr.Literal >= len(d.prog.Literals) {
				return nil, pos, newError(MalformedProgram, pos, "literal index %d out of range", instr.Literal)
			}
			d.push(&parser.LiteralExpr{Value: d.prog.Literals[instr.Literal]})
			pos++

		case instr.Op == opcode.OpImmNone:
			d.push(&parser.LiteralExpr{Value: nil})
			pos++

		case instr.Op == opcode.OpImmEmptyList:
			d.push(&parser.ListExpr{})
			pos++

		case instr.Op == opcode.OpPush:
			decl, err := d.declFor(instr.Name, pos)
			if err != nil {
				return nil, pos, err
			}
			d.push(&parser.IdentifierExpr{Name: decl.Name})
			pos++

		case instr.Op == opcode.OpPop:
			expr, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			stmts = append(stmts, &parser.ExprStmt{Expr: expr})
			pos++

		case instr.Op == opcode.OpDup:
			top, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			d.push(top)
			d.push(top)
			pos++

		case instr.Op == opcode.OpSwap:
			a, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			b, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			d.push(a)
			d.push(b)
			pos++

		case instr.Op == opcode.OpPut:
			// Put always closes out an assignment statement; whether this
			// is the binding's first assignment (a `let`/`const` decl in
			// source) or a later one doesn't change the AST shape here,
			// since the grammar has no separate declaration node — both
			// render as `name = value;`. seenDecls records the pair, but
			// nothing reads it back.
			value, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			decl, err := d.declFor(instr.Name, pos)
			if err != nil {
				return nil, pos, err
			}
			d.seenDecls[[2]int{int(instr.Name), instr.ScopeID}] = true
			target := &parser.IdentifierExpr{Name: decl.Name}
			stmts = append(stmts, &parser.ExprStmt{Expr: &parser.AssignExpr{Target: target, Value: value}})
			pos++

		case instr.Op == opcode.OpGetProp || instr.Op == opcode.OpPushGetProp:
			prop, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			obj, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			d.push(propertyExprFrom(obj, prop))
			pos++

		case instr.Op == opcode.OpPutProp:
			value, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			prop, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			obj, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			target := propertyExprFrom(obj, prop)
			stmts = append(stmts, &parser.ExprStmt{Expr: &parser.AssignExpr{Target: target, Value: value}})
			pos++

		case instr.Op == opcode.OpRef || instr.Op == opcode.OpPushRef:
			index, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			coll, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			d.push(&parser.IndexExpr{Expr: coll, Index: index})
			pos++

		case instr.Op == opcode.OpRangeRef:
			end2, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			start2, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			coll, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			d.push(&parser.RangeExpr{Expr: coll, Start: start2, End: end2})
			pos++

		case instr.Op == opcode.OpIndexSet:
			value, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			index, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			coll, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			stmts = append(stmts, &parser.ExprStmt{Expr: &parser.AssignExpr{
				Target: &parser.IndexExpr{Expr: coll, Index: index}, Value: value,
			}})
			pos++

		case instr.Op == opcode.OpRangeSet:
			value, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			end2, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			start2, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			coll, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			stmts = append(stmts, &parser.ExprStmt{Expr: &parser.AssignExpr{
				Target: &parser.RangeExpr{Expr: coll, Start: start2, End: end2}, Value: value,
			}})
			pos++

		case instr.Op == opcode.OpIndexSetAt || instr.Op == opcode.OpRangeSetAt || instr.Op == opcode.OpPutPropAt:
			nextPos, err := d.handleMultiTargetSet(instrs, pos, &stmts)
			if err != nil {
				return nil, pos, err
			}
			pos = nextPos

		case instr.Op == opcode.OpLength:
			coll, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			d.push(&parser.BuiltinCallExpr{Name: "length", Args: []parser.Expr{coll}})
			pos++

		case instr.Op == opcode.OpJump:
			target, err := d.labelPos(instr.Label, pos)
			if err != nil {
				return nil, pos, err
			}
			if target > pos {
				pos = target
				continue
			}
			stmts = append(stmts, &parser.ContinueStmt{})
			pos++

		case instr.Op == opcode.OpIf:
			nextPos, stmt, err := d.decompileIf(instrs, pos)
			if err != nil {
				return nil, pos, err
			}
			stmts = append(stmts, stmt)
			pos = nextPos

		case instr.Op == opcode.OpWhile || instr.Op == opcode.OpWhileId:
			nextPos, stmt, err := d.decompileWhile(instrs, pos)
			if err != nil {
				return nil, pos, err
			}
			stmts = append(stmts, stmt)
			pos = nextPos

		case instr.Op == opcode.OpBeginForSequence || instr.Op == opcode.OpBeginForRange:
			nextPos, stmt, err := d.decompileFor(instrs, pos)
			if err != nil {
				return nil, pos, err
			}
			stmts = append(stmts, stmt)
			pos = nextPos

		case instr.Op == opcode.OpExit || instr.Op == opcode.OpExitId:
			stmts = append(stmts, &parser.BreakStmt{})
			pos++

		case instr.Op == opcode.OpScatter:
			nextPos, err := d.decompileScatter(instrs, pos, &stmts)
			if err != nil {
				return nil, pos, err
			}
			pos = nextPos

		case instr.Op == opcode.OpTryExcept:
			nextPos, stmt, err := d.decompileTryExcept(instrs, pos)
			if err != nil {
				return nil, pos, err
			}
			stmts = append(stmts, stmt)
			pos = nextPos

		case instr.Op == opcode.OpTryFinally:
			nextPos, stmt, err := d.decompileTryFinally(instrs, pos)
			if err != nil {
				return nil, pos, err
			}
			stmts = append(stmts, stmt)
			pos = nextPos

		case instr.Op == opcode.OpTryCatch || instr.Op == opcode.OpPushCatchLabel:
			nextPos, err := d.decompileCatch(instrs, pos)
			if err != nil {
				return nil, pos, err
			}
			pos = nextPos

		case instr.Op == opcode.OpIfQues:
			nextPos, err := d.decompileTernary(instrs, pos)
			if err != nil {
				return nil, pos, err
			}
			pos = nextPos

		case instr.Op == opcode.OpMakeLambda:
			nextPos, err := d.decompileLambda(instrs, pos)
			if err != nil {
				return nil, pos, err
			}
			pos = nextPos

		case instr.Op == opcode.OpCallLambda:
			args, err := d.popCallArgs(pos)
			if err != nil {
				return nil, pos, err
			}
			callee, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			d.push(&parser.BuiltinCallExpr{Name: "$call", Args: append([]parser.Expr{callee}, args...)})
			pos++

		case instr.Op == opcode.OpBeginComprehension:
			nextPos, err := d.decompileComprehension(instrs, pos)
			if err != nil {
				return nil, pos, err
			}
			pos = nextPos

		case instr.Op == opcode.OpFork:
			nextPos, stmt, err := d.decompileFork(instr, pos)
			if err != nil {
				return nil, pos, err
			}
			stmts = append(stmts, stmt)
			pos = nextPos

		case instr.Op == opcode.OpFuncCall:
			nextPos, err := d.decompileFuncCall(instrs, pos)
			if err != nil {
				return nil, pos, err
			}
			pos = nextPos

		case instr.Op == opcode.OpCallVerb:
			nextPos, err := d.decompileVerbCall(instrs, pos)
			if err != nil {
				return nil, pos, err
			}
			pos = nextPos

		case instr.Op == opcode.OpPass:
			args, err := d.popCallArgs(pos)
			if err != nil {
				return nil, pos, err
			}
			d.push(&parser.PassExpr{Args: args})
			pos++

		case instr.Op == opcode.OpMakeSingletonList:
			elem, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			d.push(&parser.ListExpr{Elements: []parser.Expr{elem}})
			pos++

		case instr.Op == opcode.OpListAddTail || instr.Op == opcode.OpListAppend:
			addend, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			list, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			le, ok := list.(*parser.ListExpr)
			if !ok {
				le = &parser.ListExpr{Elements: []parser.Expr{list}}
			}
			if instr.Op == opcode.OpListAppend {
				addend = &parser.SpliceExpr{Expr: addend}
			}
			le.Elements = append(le.Elements, addend)
			d.push(le)
			pos++

		case instr.Op == opcode.OpCheckListForSplice:
			pos++

		case instr.Op == opcode.OpMakeMap:
			d.push(&parser.MapExpr{})
			pos++

		case instr.Op == opcode.OpMapInsert:
			value, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			key, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			m, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			me, ok := m.(*parser.MapExpr)
			if !ok {
				return nil, pos, newError(MalformedProgram, pos, "MapInsert target is not a map literal")
			}
			me.Pairs = append(me.Pairs, parser.MapPair{Key: key, Value: value})
			d.push(me)
			pos++

		case instr.Op == opcode.OpMakeError:
			nextPos, err := d.decompileMakeError(instrs, pos)
			if err != nil {
				return nil, pos, err
			}
			pos = nextPos

		case instr.Op == opcode.OpMakeFlyweight:
			nextPos, err := d.decompileFlyweight(instrs, pos)
			if err != nil {
				return nil, pos, err
			}
			pos = nextPos

		case instr.Op == opcode.OpBeginScope:
			nextPos, stmt, err := d.decompileScope(instrs, pos)
			if err != nil {
				return nil, pos, err
			}
			stmts = append(stmts, stmt)
			pos = nextPos

		case instr.Op == opcode.OpReturn:
			value, err := d.pop(pos)
			if err != nil {
				return nil, pos, err
			}
			stmts = append(stmts, &parser.ReturnStmt{Value: value})
			pos++

		default:
			return nil, pos, newError(UnsupportedConstruct, pos, "opcode %s not handled", instr.Op)
		}
	}
	return stmts, pos, nil
}

func propertyExprFrom(obj, prop parser.Expr) *parser.PropertyExpr {
	if lit, ok := prop.(*parser.LiteralExpr); ok {
		if str, ok := lit.Value.(types.StrValue); ok {
			return &parser.PropertyExpr{Expr: obj, Property: str.Value()}
		}
	}
	return &parser.PropertyExpr{Expr: obj, PropertyExpr: prop}
}

// popCallArgs pops the list-literal argument vector a call opcode leaves
// on the stack (built by preceding MakeSingletonList/ListAddTail/
// ImmEmptyList opcodes) and returns its elements, splice markers intact.
func (d *decompiler) popCallArgs(pos int) ([]parser.Expr, error) {
	top, err := d.pop(pos)
	if err != nil {
		return nil, err
	}
	if le, ok := top.(*parser.ListExpr); ok {
		return le.Elements, nil
	}
	return []parser.Expr{top}, nil
}
