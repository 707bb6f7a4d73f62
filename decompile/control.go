package decompile

import (
	"github.com/vmoo/core/parser"
	"github.com/vmoo/core/vm/opcode"
)

// decompileIf reconstructs If/Eif/Else into a single IfStmt. Every branch
// but the last ends with an unconditional Jump past the whole chain; that
// escape position is how the chain's true end position is discovered, not
// a separate "EndIf" opcode.
func (d *decompiler) decompileIf(instrs []opcode.Instruction, pos int) (int, parser.Stmt, error) {
	instr := instrs[pos]
	cond, err := d.pop(pos)
	if err != nil {
		return 0, nil, err
	}
	branchEnd, err := d.labelPos(instr.Label, pos)
	if err != nil {
		return 0, nil, err
	}
	body, after, err := d.decompileRange(instrs, pos+1, branchEnd)
	if err != nil {
		return 0, nil, err
	}
	body = trimTrailingContinue(body, after, branchEnd)

	stmt := &parser.IfStmt{Condition: cond, Body: body}
	end := branchEnd
	if after > end {
		end = after
	}

	cur := branchEnd
	for cur < end {
		sub, next, err := d.decompileRange(instrs, cur, end)
		if err != nil {
			return 0, nil, err
		}
		if next >= len(instrs) || instrs[next].Op != opcode.OpEif {
			stmt.Else = sub
			cur = end
			break
		}
		eif := instrs[next]
		econd, err := d.pop(next)
		if err != nil {
			return 0, nil, err
		}
		eifEnd, err := d.labelPos(eif.Label, next)
		if err != nil {
			return 0, nil, err
		}
		ebody, after2, err := d.decompileRange(instrs, next+1, eifEnd)
		if err != nil {
			return 0, nil, err
		}
		ebody = trimTrailingContinue(ebody, after2, eifEnd)
		stmt.ElseIfs = append(stmt.ElseIfs, &parser.ElseIfClause{Condition: econd, Body: ebody})
		if after2 > end {
			end = after2
		}
		cur = eifEnd
	}
	return end, stmt, nil
}

// trimTrailingContinue drops a loop/branch body's synthetic trailing jump
// back to its own start (compiled for every non-final branch/loop body)
// when it rendered as a ContinueStmt that isn't a genuine source-level
// continue: that's true exactly when the body's decompile stopped right
// at naturalEnd with no label on the continue.
func trimTrailingContinue(body []parser.Stmt, stoppedAt, naturalEnd int) []parser.Stmt {
	if stoppedAt != naturalEnd || len(body) == 0 {
		return body
	}
	last, ok := body[len(body)-1].(*parser.ContinueStmt)
	if !ok || last.Label != "" {
		return body
	}
	return body[:len(body)-1]
}

// decompileWhile reconstructs While/WhileId into a WhileStmt.
func (d *decompiler) decompileWhile(instrs []opcode.Instruction, pos int) (int, parser.Stmt, error) {
	instr := instrs[pos]
	cond, err := d.pop(pos)
	if err != nil {
		return 0, nil, err
	}
	endPos, err := d.labelPos(instr.Label, pos)
	if err != nil {
		return 0, nil, err
	}
	name := ""
	if info, ok := d.prog.Labels[instr.Label]; ok {
		name = info.Name
	}
	body, after, err := d.decompileRange(instrs, pos+1, endPos)
	if err != nil {
		return 0, nil, err
	}
	body = trimTrailingContinue(body, after, endPos)
	return endPos, &parser.WhileStmt{Label: name, Condition: cond, Body: body}, nil
}

// decompileFor reconstructs BeginForSequence/BeginForRange, plus the
// IterateForSequence/IterateForRange boundary that starts the loop body,
// into a ForStmt.
func (d *decompiler) decompileFor(instrs []opcode.Instruction, pos int) (int, parser.Stmt, error) {
	instr := instrs[pos]
	var container, start2, end2 parser.Expr
	var err error
	if instr.Op == opcode.OpBeginForRange {
		end2, err = d.pop(pos)
		if err != nil {
			return 0, nil, err
		}
		start2, err = d.pop(pos)
		if err != nil {
			return 0, nil, err
		}
	} else {
		container, err = d.pop(pos)
		if err != nil {
			return 0, nil, err
		}
	}
	endPos, err := d.labelPos(instr.Label, pos)
	if err != nil {
		return 0, nil, err
	}
	name := ""
	if info, ok := d.prog.Labels[instr.Label]; ok {
		name = info.Name
	}

	pre, iterPos, err := d.decompileRange(instrs, pos+1, endPos)
	if err != nil {
		return 0, nil, err
	}
	if len(pre) != 0 || iterPos >= len(instrs) ||
		(instrs[iterPos].Op != opcode.OpIterateForSequence && instrs[iterPos].Op != opcode.OpIterateForRange) {
		return 0, nil, newError(MalformedProgram, pos, "for-loop missing its iterate boundary")
	}
	iter := instrs[iterPos]
	valueDecl, err := d.declFor(iter.Name, iterPos)
	if err != nil {
		return 0, nil, err
	}

	body, after, err := d.decompileRange(instrs, iterPos+1, endPos)
	if err != nil {
		return 0, nil, err
	}
	body = trimTrailingContinue(body, after, endPos)

	return endPos, &parser.ForStmt{
		Label: name, Value: valueDecl.Name,
		Container: container, RangeStart: start2, RangeEnd: end2,
		Body: body,
	}, nil
}

// decompileScope reconstructs a bare BeginScope/EndScope pair that isn't
// already implied by another construct into a BeginScopeStmt.
func (d *decompiler) decompileScope(instrs []opcode.Instruction, pos int) (int, parser.Stmt, error) {
	instr := instrs[pos]
	endPos := pos + 1 + instr.EnvWidth
	if endPos > len(instrs) {
		endPos = len(instrs)
	}
	body, after, err := d.decompileRange(instrs, pos+1, endPos)
	if err != nil {
		return 0, nil, err
	}
	if after >= len(instrs) || instrs[after].Op != opcode.OpEndScope {
		return 0, nil, newError(MalformedProgram, pos, "BeginScope without matching EndScope")
	}
	return after + 1, &parser.BeginScopeStmt{Body: body}, nil
}
