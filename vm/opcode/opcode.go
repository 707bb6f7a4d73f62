// Package opcode defines the opcode/Program model the decompile package
// consumes: a distinct, decompiler-shaped instruction set from the
// teacher's own custom VM (which this module does not keep), matching what a
// single-pass bytecode-to-AST reconstruction needs to see.
package opcode

// OpCode is one compiled instruction tag.
type OpCode int

const (
	// Stack primitives.
	OpPush OpCode = iota
	OpPop
	OpDup
	OpSwap
	OpPutTemp
	OpPushTemp

	// Immediates.
	OpImm
	OpImmInt
	OpImmBigInt
	OpImmFloat
	OpImmObjid
	OpImmSymbol
	OpImmType
	OpImmErr
	OpImmNone
	OpImmEmptyList

	// Variables and properties.
	OpPut
	OpGetProp
	OpPushGetProp
	OpPutProp
	OpPutPropAt

	// Indexing/ranges.
	OpRef
	OpPushRef
	OpRangeRef
	OpIndexSet
	OpIndexSetAt
	OpRangeSet
	OpRangeSetAt
	OpLength

	// Binary/unary operators (the compiler's own opcode tag travels with
	// the Binary node so decompile can recover which operator it was).
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpExp
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpIn
	OpAnd
	OpOr
	OpNot
	OpNeg
	OpUnaryMinus
	OpBitAnd
	OpBitOr
	OpBitXor
	OpBitNot
	OpBitShl
	OpBitShr
	OpBitLShr

	// Control flow.
	OpJump
	OpIf
	OpEif
	OpIfQues
	OpWhile
	OpWhileId
	OpExit
	OpExitId
	OpDone

	// Looping constructs.
	OpBeginForSequence
	OpBeginForRange
	OpIterateForSequence
	OpIterateForRange

	// Scoping.
	OpBeginScope
	OpEndScope

	// Exception handling.
	OpTryExcept
	OpEndExcept
	OpTryFinally
	OpEndFinally
	OpFinallyContinue
	OpTryCatch
	OpEndCatch
	OpPushCatchLabel

	// Calls.
	OpFuncCall
	OpCallVerb
	OpPass

	// Scatter assignment.
	OpScatter

	// Collections.
	OpMakeSingletonList
	OpListAddTail
	OpListAppend
	OpCheckListForSplice
	OpMakeMap
	OpMapInsert
	OpMakeError
	OpMakeFlyweight

	// Lambdas.
	OpMakeLambda
	OpCallLambda
	OpCapture

	// Comprehensions.
	OpBeginComprehension
	OpComprehendRange
	OpComprehendList
	OpContinueComprehension

	// Fork.
	OpFork

	// Return.
	OpReturn
)

var names = map[OpCode]string{
	OpPush: "Push", OpPop: "Pop", OpDup: "Dup", OpSwap: "Swap",
	OpPutTemp: "PutTemp", OpPushTemp: "PushTemp",
	OpImm: "Imm", OpImmInt: "ImmInt", OpImmBigInt: "ImmBigInt",
	OpImmFloat: "ImmFloat", OpImmObjid: "ImmObjid", OpImmSymbol: "ImmSymbol",
	OpImmType: "ImmType", OpImmErr: "ImmErr", OpImmNone: "ImmNone",
	OpImmEmptyList: "ImmEmptyList",
	OpPut:          "Put", OpGetProp: "GetProp", OpPushGetProp: "PushGetProp",
	OpPutProp: "PutProp", OpPutPropAt: "PutPropAt",
	OpRef: "Ref", OpPushRef: "PushRef", OpRangeRef: "RangeRef",
	OpIndexSet: "IndexSet", OpIndexSetAt: "IndexSetAt",
	OpRangeSet: "RangeSet", OpRangeSetAt: "RangeSetAt", OpLength: "Length",
	OpAdd: "Add", OpSub: "Sub", OpMul: "Mul", OpDiv: "Div", OpMod: "Mod",
	OpExp: "Exp", OpEq: "Eq", OpNe: "Ne", OpLt: "Lt", OpLe: "Le",
	OpGt: "Gt", OpGe: "Ge", OpIn: "In", OpAnd: "And", OpOr: "Or",
	OpNot: "Not", OpNeg: "Neg", OpUnaryMinus: "UnaryMinus",
	OpBitAnd: "BitAnd", OpBitOr: "BitOr", OpBitXor: "BitXor",
	OpBitNot: "BitNot", OpBitShl: "BitShl", OpBitShr: "BitShr",
	OpBitLShr: "BitLShr",
	OpJump:    "Jump", OpIf: "If", OpEif: "Eif", OpIfQues: "IfQues",
	OpWhile: "While", OpWhileId: "WhileId", OpExit: "Exit",
	OpExitId: "ExitId", OpDone: "Done",
	OpBeginForSequence: "BeginForSequence", OpBeginForRange: "BeginForRange",
	OpIterateForSequence: "IterateForSequence", OpIterateForRange: "IterateForRange",
	OpBeginScope: "BeginScope", OpEndScope: "EndScope",
	OpTryExcept: "TryExcept", OpEndExcept: "EndExcept",
	OpTryFinally: "TryFinally", OpEndFinally: "EndFinally",
	OpFinallyContinue: "FinallyContinue", OpTryCatch: "TryCatch",
	OpEndCatch: "EndCatch", OpPushCatchLabel: "PushCatchLabel",
	OpFuncCall: "FuncCall", OpCallVerb: "CallVerb", OpPass: "Pass",
	OpScatter: "Scatter",
	OpMakeSingletonList: "MakeSingletonList", OpListAddTail: "ListAddTail",
	OpListAppend: "ListAppend", OpCheckListForSplice: "CheckListForSplice",
	OpMakeMap: "MakeMap", OpMapInsert: "MapInsert",
	OpMakeError: "MakeError", OpMakeFlyweight: "MakeFlyweight",
	OpMakeLambda: "MakeLambda", OpCallLambda: "CallLambda", OpCapture: "Capture",
	OpBeginComprehension: "BeginComprehension", OpComprehendRange: "ComprehendRange",
	OpComprehendList: "ComprehendList", OpContinueComprehension: "ContinueComprehension",
	OpFork: "Fork", OpReturn: "Return",
}

// String implements fmt.Stringer in the teacher's vm.OpCode style.
func (op OpCode) String() string {
	if name, ok := names[op]; ok {
		return name
	}
	return "Unknown"
}

// IsBinaryOperator reports whether op is one of the binary arithmetic/
// comparison/bitwise opcodes the decompiler folds into a single tagged
// Binary expression node. The short-circuit OpAnd and OpOr are not
// included.
func IsBinaryOperator(op OpCode) bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpExp,
		OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpIn,
		OpBitAnd, OpBitOr, OpBitXor, OpBitShl, OpBitShr, OpBitLShr:
		return true
	default:
		return false
	}
}
