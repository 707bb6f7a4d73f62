package decompile

import (
	"github.com/vmoo/core/parser"
	"github.com/vmoo/core/types"
	"github.com/vmoo/core/vm/opcode"
)

// handleMultiTargetSet reconstructs IndexSetAt/RangeSetAt/PutPropAt, the
// *At variants used for chained/compound assignment targets (e.g. the
// inner step of `a[1][2] = x`). The Offset operand lets the VM reach past
// already-duplicated intermediate values on the stack; at the source
// level that stack surgery doesn't change the resulting assignment shape,
// so these decompile identically to their non-At counterparts.
func (d *decompiler) handleMultiTargetSet(instrs []opcode.Instruction, pos int, stmts *[]parser.Stmt) (int, error) {
	instr := instrs[pos]
	switch instr.Op {
	case opcode.OpIndexSetAt:
		value, err := d.pop(pos)
		if err != nil {
			return 0, err
		}
		index, err := d.pop(pos)
		if err != nil {
			return 0, err
		}
		coll, err := d.pop(pos)
		if err != nil {
			return 0, err
		}
		*stmts = append(*stmts, &parser.ExprStmt{Expr: &parser.AssignExpr{
			Target: &parser.IndexExpr{Expr: coll, Index: index}, Value: value,
		}})
	case opcode.OpRangeSetAt:
		value, err := d.pop(pos)
		if err != nil {
			return 0, err
		}
		end, err := d.pop(pos)
		if err != nil {
			return 0, err
		}
		start, err := d.pop(pos)
		if err != nil {
			return 0, err
		}
		coll, err := d.pop(pos)
		if err != nil {
			return 0, err
		}
		*stmts = append(*stmts, &parser.ExprStmt{Expr: &parser.AssignExpr{
			Target: &parser.RangeExpr{Expr: coll, Start: start, End: end}, Value: value,
		}})
	case opcode.OpPutPropAt:
		value, err := d.pop(pos)
		if err != nil {
			return 0, err
		}
		prop, err := d.pop(pos)
		if err != nil {
			return 0, err
		}
		obj, err := d.pop(pos)
		if err != nil {
			return 0, err
		}
		*stmts = append(*stmts, &parser.ExprStmt{Expr: &parser.AssignExpr{
			Target: propertyExprFrom(obj, prop), Value: value,
		}})
	}
	return pos + 1, nil
}

// decompileScatter reconstructs a Scatter instruction and its inline
// per-target default-value expressions (read from the scatter-arg side
// table) into a ScatterStmt.
func (d *decompiler) decompileScatter(instrs []opcode.Instruction, pos int, stmts *[]parser.Stmt) (int, error) {
	instr := instrs[pos]
	value, err := d.pop(pos)
	if err != nil {
		return 0, err
	}
	specs, ok := d.prog.Scatter[instr.Label]
	if !ok {
		return 0, newError(MalformedProgram, pos, "no scatter-arg table entry for label %d", instr.Label)
	}
	end, err := d.labelPos(instr.Label, pos)
	if err != nil {
		return 0, err
	}
	cursor := pos + 1
	targets := make([]parser.ScatterTarget, 0, len(specs))
	for _, spec := range specs {
		decl, err := d.declFor(spec.Name, pos)
		if err != nil {
			return 0, err
		}
		target := parser.ScatterTarget{
			Name:     decl.Name,
			Optional: spec.Kind == opcode.ScatterOptional,
			Rest:     spec.Kind == opcode.ScatterRest,
		}
		if spec.Kind == opcode.ScatterOptional && spec.DefaultLabel != 0 {
			defEnd, err := d.labelPos(spec.DefaultLabel, pos)
			if err != nil {
				return 0, err
			}
			defStmts, after, err := d.decompileRange(instrs, cursor, defEnd)
			if err != nil {
				return 0, err
			}
			if len(defStmts) != 0 {
				return 0, newError(MalformedProgram, cursor, "scatter default produced statements, expected a bare expression")
			}
			defExpr, err := d.pop(after)
			if err != nil {
				return 0, err
			}
			target.Default = defExpr
			cursor = defEnd
		}
		targets = append(targets, target)
	}
	*stmts = append(*stmts, &parser.ScatterStmt{Targets: targets, Value: value})
	if cursor > end {
		end = cursor
	}
	return end, nil
}

// decompileTryExcept reconstructs TryExcept/EndExcept and its arm side
// table into a TryExceptStmt.
func (d *decompiler) decompileTryExcept(instrs []opcode.Instruction, pos int) (int, parser.Stmt, error) {
	instr := instrs[pos]
	arms, ok := d.prog.TryExcepts[pos]
	if !ok || len(arms) != instr.Count {
		return 0, nil, newError(MalformedProgram, pos, "TryExcept arm table missing or mismatched at position %d", pos)
	}
	bodyEnd, err := d.labelPos(instr.Label, pos)
	if err != nil {
		return 0, nil, err
	}
	body, after, err := d.decompileRange(instrs, pos+1, bodyEnd)
	if err != nil {
		return 0, nil, err
	}
	if after >= len(instrs) || instrs[after].Op != opcode.OpEndExcept {
		return 0, nil, newError(MalformedProgram, pos, "try body not closed by EndExcept")
	}
	cursor := after + 1
	stmt := &parser.TryExceptStmt{Body: body}
	end := bodyEnd
	for _, arm := range arms {
		armEnd, err := d.labelPos(arm.EndLabel, cursor)
		if err != nil {
			return 0, nil, err
		}
		armBody, armAfter, err := d.decompileRange(instrs, cursor, armEnd)
		if err != nil {
			return 0, nil, err
		}
		variable := ""
		if arm.HasVar {
			decl, err := d.declFor(arm.Variable, cursor)
			if err != nil {
				return 0, nil, err
			}
			variable = decl.Name
		}
		stmt.Excepts = append(stmt.Excepts, &parser.ExceptClause{
			Variable: variable, IsAny: arm.IsAny, Codes: arm.Codes, Body: armBody,
		})
		cursor = armEnd
		if armAfter > end {
			end = armAfter
		}
	}
	if cursor > end {
		end = cursor
	}
	return end, stmt, nil
}

// decompileTryFinally reconstructs TryFinally/FinallyContinue/EndFinally
// into a TryFinallyStmt.
func (d *decompiler) decompileTryFinally(instrs []opcode.Instruction, pos int) (int, parser.Stmt, error) {
	instr := instrs[pos]
	bodyEnd, err := d.labelPos(instr.Label, pos)
	if err != nil {
		return 0, nil, err
	}
	body, after, err := d.decompileRange(instrs, pos+1, bodyEnd)
	if err != nil {
		return 0, nil, err
	}
	if after >= len(instrs) || instrs[after].Op != opcode.OpFinallyContinue {
		return 0, nil, newError(MalformedProgram, pos, "try body not closed by FinallyContinue")
	}
	finallyStart := after + 1
	finally, finAfter, err := d.decompileRange(instrs, finallyStart, len(instrs))
	if err != nil {
		return 0, nil, err
	}
	if finAfter >= len(instrs) || instrs[finAfter].Op != opcode.OpEndFinally {
		return 0, nil, newError(MalformedProgram, pos, "finally clause not closed by EndFinally")
	}
	return finAfter + 1, &parser.TryFinallyStmt{Body: body, Finally: finally}, nil
}

// decompileCatch reconstructs TryCatch/PushCatchLabel into a CatchExpr,
// pushed back onto the value stack (it's an expression, `expr ! codes`).
func (d *decompiler) decompileCatch(instrs []opcode.Instruction, pos int) (int, error) {
	spec, ok := d.prog.Catches[pos]
	if !ok {
		return 0, newError(MalformedProgram, pos, "no catch-spec table entry at position %d", pos)
	}
	instr := instrs[pos]
	endPos, err := d.labelPos(instr.Label, pos)
	if err != nil {
		return 0, err
	}
	tried, after, err := d.decompileRange(instrs, pos+1, endPos)
	if err != nil {
		return 0, err
	}
	if len(tried) != 0 {
		return 0, newError(MalformedProgram, pos, "catch body produced statements, expected a bare expression")
	}
	triedExpr, err := d.pop(after)
	if err != nil {
		return 0, err
	}
	var def parser.Expr
	end := endPos
	if spec.HasDefault {
		def, err = d.pop(after)
		if err != nil {
			return 0, err
		}
	}
	if after > end {
		end = after
	}
	d.push(&parser.CatchExpr{Expr: triedExpr, Codes: spec.Codes, Default: def})
	return end, nil
}

// decompileTernary reconstructs an IfQues, whose label marks the end of the
// then-arm, and the else-arm after it into a TernaryExpr.
func (d *decompiler) decompileTernary(instrs []opcode.Instruction, pos int) (int, error) {
	instr := instrs[pos]
	cond, err := d.pop(pos)
	if err != nil {
		return 0, err
	}
	thenEnd, err := d.labelPos(instr.Label, pos)
	if err != nil {
		return 0, err
	}
	thenStmts, afterThen, err := d.decompileRange(instrs, pos+1, thenEnd)
	if err != nil {
		return 0, err
	}
	if len(thenStmts) != 0 {
		return 0, newError(MalformedProgram, pos, "ternary then-branch produced statements")
	}
	thenExpr, err := d.pop(afterThen)
	if err != nil {
		return 0, err
	}
	end := thenEnd
	if afterThen > end {
		end = afterThen
	}
	var elseExpr parser.Expr
	if thenEnd < end {
		elseStmts, afterElse, err := d.decompileRange(instrs, thenEnd, end)
		if err != nil {
			return 0, err
		}
		if len(elseStmts) != 0 {
			return 0, newError(MalformedProgram, thenEnd, "ternary else-branch produced statements")
		}
		elseExpr, err = d.pop(afterElse)
		if err != nil {
			return 0, err
		}
		if afterElse > end {
			end = afterElse
		}
	}
	d.push(&parser.TernaryExpr{Condition: cond, ThenExpr: thenExpr, ElseExpr: elseExpr})
	return end, nil
}

// decompileLambda reconstructs MakeLambda into a LambdaExpr. Parameters
// are read from the same scatter-arg table Scatter instructions use,
// since a lambda's parameter list has the identical shape (required /
// optional-with-default / rest).
func (d *decompiler) decompileLambda(instrs []opcode.Instruction, pos int) (int, error) {
	instr := instrs[pos]
	if instr.ProgramIndex < 0 || instr.ProgramIndex >= len(d.prog.Lambdas) {
		return 0, newError(MalformedProgram, pos, "lambda program index %d out of range", instr.ProgramIndex)
	}
	sub := d.prog.Lambdas[instr.ProgramIndex]
	specs := d.prog.Scatter[instr.Label]

	params := make([]parser.LambdaParam, 0, len(specs))
	for _, spec := range specs {
		decl, err := d.declFor(spec.Name, pos)
		if err != nil {
			return 0, err
		}
		params = append(params, parser.LambdaParam{
			Name:     decl.Name,
			Optional: spec.Kind == opcode.ScatterOptional,
			Rest:     spec.Kind == opcode.ScatterRest,
		})
	}

	subDecompiler := &decompiler{prog: sub, seenDecls: make(map[[2]int]bool)}
	bodyStmts, stopped, err := subDecompiler.decompileRange(sub.Main, 0, len(sub.Main))
	if err != nil {
		return 0, err
	}
	if stopped != len(sub.Main) {
		return 0, newError(MalformedProgram, stopped, "lambda body has unterminated construct")
	}
	var body parser.Expr
	switch {
	case len(bodyStmts) == 1:
		switch s := bodyStmts[0].(type) {
		case *parser.ExprStmt:
			body = s.Expr
		case *parser.ReturnStmt:
			body = s.Value
		}
	}
	if body == nil {
		return 0, newError(UnsupportedConstruct, pos, "lambda body is not a single expression")
	}
	d.push(&parser.LambdaExpr{Params: params, Body: body})
	return pos + 1, nil
}

// decompileComprehension reconstructs BeginComprehension plus its
// ComprehendList/ComprehendRange terminator into a ComprehensionExpr.
func (d *decompiler) decompileComprehension(instrs []opcode.Instruction, pos int) (int, error) {
	spec, ok := d.prog.Comprehensions[pos]
	if !ok {
		return 0, newError(MalformedProgram, pos, "no comprehension-spec table entry at position %d", pos)
	}
	var container, start2, end2 parser.Expr
	var err error
	if spec.Kind == opcode.ComprehensionRange {
		end2, err = d.pop(pos)
		if err != nil {
			return 0, err
		}
		start2, err = d.pop(pos)
		if err != nil {
			return 0, err
		}
	} else {
		container, err = d.pop(pos)
		if err != nil {
			return 0, err
		}
	}
	endPos, err := d.labelPos(spec.EndLabel, pos)
	if err != nil {
		return 0, err
	}
	resultStmts, after, err := d.decompileRange(instrs, pos+1, endPos)
	if err != nil {
		return 0, err
	}
	if len(resultStmts) != 0 {
		return 0, newError(MalformedProgram, pos, "comprehension body produced statements, expected a bare expression")
	}
	result, err := d.pop(after)
	if err != nil {
		return 0, err
	}
	keyDecl, err := d.declFor(spec.KeyVar, pos)
	if err != nil {
		return 0, err
	}
	d.push(&parser.ComprehensionExpr{
		Result: result, Variable: keyDecl.Name,
		Container: container, RangeStart: start2, RangeEnd: end2,
	})
	end := endPos
	if after > end {
		end = after
	}
	if end >= len(instrs) || (instrs[end].Op != opcode.OpComprehendList && instrs[end].Op != opcode.OpComprehendRange) {
		return 0, newError(MalformedProgram, pos, "comprehension not closed by its Comprehend terminator")
	}
	return end + 1, nil
}

// decompileFork reconstructs a Fork instruction, decompiling its forked
// opcode vector as an independent sub-pass (a fresh value stack, sharing
// only the declaration table) into a ForkStmt.
func (d *decompiler) decompileFork(instr opcode.Instruction, pos int) (int, parser.Stmt, error) {
	delay, err := d.pop(pos)
	if err != nil {
		return 0, nil, err
	}
	if instr.ProgramIndex < 0 || instr.ProgramIndex >= len(d.prog.Forks) {
		return 0, nil, newError(MalformedProgram, pos, "fork vector index %d out of range", instr.ProgramIndex)
	}
	vec := d.prog.Forks[instr.ProgramIndex]
	sub := &decompiler{prog: d.prog, seenDecls: d.seenDecls}
	body, stopped, err := sub.decompileRange(vec, 0, len(vec))
	if err != nil {
		return 0, nil, err
	}
	if stopped != len(vec) {
		return 0, nil, newError(MalformedProgram, stopped, "fork vector has unterminated construct")
	}
	name := ""
	if instr.Name != 0 {
		decl, err := d.declFor(instr.Name, pos)
		if err != nil {
			return 0, nil, err
		}
		name = decl.Name
	}
	return pos + 1, &parser.ForkStmt{VarName: name, Delay: delay, Body: body}, nil
}

// decompileFuncCall reconstructs FuncCall into a BuiltinCallExpr. The
// callee name comes from the literal table; arguments are the list
// literal the preceding MakeSingletonList/ListAddTail/ImmEmptyList chain
// already assembled on the stack.
func (d *decompiler) decompileFuncCall(instrs []opcode.Instruction, pos int) (int, error) {
	instr := instrs[pos]
	args, err := d.popCallArgs(pos)
	if err != nil {
		return 0, err
	}
	if instr.Literal < 0 || instr.Literal >= len(d.prog.Literals) {
		return 0, newError(MalformedProgram, pos, "FuncCall literal index %d out of range", instr.Literal)
	}
	name, ok := d.prog.Literals[instr.Literal].(types.StrValue)
	if !ok {
		return 0, newError(MalformedProgram, pos, "FuncCall literal is not a string")
	}
	d.push(&parser.BuiltinCallExpr{Name: name.Value(), Args: args})
	return pos + 1, nil
}

// decompileVerbCall reconstructs CallVerb into a VerbCallExpr.
func (d *decompiler) decompileVerbCall(instrs []opcode.Instruction, pos int) (int, error) {
	args, err := d.popCallArgs(pos)
	if err != nil {
		return 0, err
	}
	verb, err := d.pop(pos)
	if err != nil {
		return 0, err
	}
	obj, err := d.pop(pos)
	if err != nil {
		return 0, err
	}
	call := &parser.VerbCallExpr{Expr: obj, Args: args}
	if lit, ok := verb.(*parser.LiteralExpr); ok {
		if s, ok := lit.Value.(types.StrValue); ok {
			call.Verb = s.Value()
		} else {
			call.VerbExpr = verb
		}
	} else {
		call.VerbExpr = verb
	}
	d.push(call)
	return pos + 1, nil
}

// decompileMakeError reconstructs MakeError into an ErrorConstructExpr.
// Count (0, 1, or 2) says how many of value/message were supplied.
func (d *decompiler) decompileMakeError(instrs []opcode.Instruction, pos int) (int, error) {
	instr := instrs[pos]
	var value, message parser.Expr
	var err error
	if instr.Count >= 2 {
		value, err = d.pop(pos)
		if err != nil {
			return 0, err
		}
	}
	if instr.Count >= 1 {
		message, err = d.pop(pos)
		if err != nil {
			return 0, err
		}
	}
	if instr.Literal < 0 || instr.Literal >= len(d.prog.Literals) {
		return 0, newError(MalformedProgram, pos, "MakeError literal index %d out of range", instr.Literal)
	}
	errVal, ok := d.prog.Literals[instr.Literal].(types.ErrValue)
	if !ok {
		return 0, newError(MalformedProgram, pos, "MakeError literal is not an error code")
	}
	d.push(&parser.ErrorConstructExpr{Code: errVal.Code(), Message: message, Value: value})
	return pos + 1, nil
}

// decompileFlyweight reconstructs MakeFlyweight into a FlyweightExpr. The
// contents list and slots map are already-assembled ListExpr/MapExpr
// literals left on the stack by the preceding opcode chain.
func (d *decompiler) decompileFlyweight(instrs []opcode.Instruction, pos int) (int, error) {
	contents, err := d.pop(pos)
	if err != nil {
		return 0, err
	}
	slots, err := d.pop(pos)
	if err != nil {
		return 0, err
	}
	delegate, err := d.pop(pos)
	if err != nil {
		return 0, err
	}
	fw := &parser.FlyweightExpr{Delegate: delegate}
	if le, ok := contents.(*parser.ListExpr); ok {
		fw.Contents = le.Elements
	} else {
		fw.Contents = []parser.Expr{contents}
	}
	if me, ok := slots.(*parser.MapExpr); ok {
		fw.Slots = me.Pairs
	}
	d.push(fw)
	return pos + 1, nil
}
