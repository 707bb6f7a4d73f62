package opcode

import "github.com/vmoo/core/types"

// Instruction is one opcode plus its operand(s), already decoded from
// whatever wire format the compiler produced — the decompiler never
// touches raw bytes, only this structured form.
type Instruction struct {
	Op OpCode

	// Operand interpretation depends on Op; unused fields are zero.
	Label    LabelID // jump target for If/Eif/While*/BeginFor*/Scatter/Try*
	EnvWidth int     // scope width carried by If/While/TryExcept/TryFinally
	Literal  int     // index into Program.Literals
	Name     VarID   // variable id for Put/declarations/scatter targets
	ScopeID  int     // lexical scope id, 0 at top level
	Offset   int     // stack-depth offset for *At variants, PutTemp targets
	Count    int     // operand count for TryExcept (num_excepts), calls
	SelfVar  VarID   // MakeLambda's self-reference binding, if any

	// ProgramIndex selects a sub-program: MakeLambda's body, or a fork
	// vector index for Fork.
	ProgramIndex int
}

// LabelID names a jump target; the label table maps it to a position
// (and optionally a symbolic name for WhileId/ExitId).
type LabelID int

// VarID names a variable slot.
type VarID int

// DeclKind is the storage kind of one variable declaration.
type DeclKind int

const (
	DeclLet DeclKind = iota
	DeclVar
	DeclGlobal
	DeclRegister
)

// VarDecl describes one variable declaration's static metadata, keyed by
// VarID in Program.Decls.
type VarDecl struct {
	ID       VarID
	Name     string
	Kind     DeclKind
	Constant bool
}

// ScatterTargetKind tags one scatter-assignment target.
type ScatterTargetKind int

const (
	ScatterRequired ScatterTargetKind = iota
	ScatterRest
	ScatterOptional
)

// ScatterTarget is one entry of a Scatter instruction's target list.
type ScatterTarget struct {
	Kind ScatterTargetKind
	Name VarID
	// DefaultLabel is set only for ScatterOptional entries that carry a
	// default-value expression; LabelID(0) (used as a sentinel, since 0
	// is never a real label position a Scatter points past) means none.
	DefaultLabel LabelID
}

// ComprehensionKind distinguishes list- and range-style comprehensions.
type ComprehensionKind int

const (
	ComprehensionList ComprehensionKind = iota
	ComprehensionRange
)

// ComprehensionSpec is the side-table entry a BeginComprehension
// instruction indexes into.
type ComprehensionSpec struct {
	Kind         ComprehensionKind
	KeyVar       VarID // the loop variable bound to each element/index
	EndLabel     LabelID
	ProducerFrom int // opcode position where the producer expression begins
}

// LabelInfo records where a label resolves and, for While/ExitId forms,
// its optional symbolic name.
type LabelInfo struct {
	Position int
	Name     string // "" if unnamed
}

// ExceptArm is one "except [var] (codes)" handler of a TryExcept
// instruction's side-table entry.
type ExceptArm struct {
	Variable VarID
	HasVar   bool
	IsAny    bool
	Codes    []types.ErrorCode
	EndLabel LabelID // end of this arm's handler body
}

// CatchSpec is the codes/handler side-table entry a TryCatch or
// PushCatchLabel instruction indexes into, for the `expr ! codes => default`
// catch-expression form.
type CatchSpec struct {
	IsAny      bool
	Codes      []types.ErrorCode
	HasDefault bool
}

// Program is the decompiler's sole input: a compiled verb or lambda body
// plus every side table the single-pass algorithm consults.
type Program struct {
	Main  []Instruction
	Forks [][]Instruction

	Literals []types.Value

	Labels map[LabelID]LabelInfo

	// Scatter maps a Scatter instruction's Label operand to its ordered
	// target list.
	Scatter map[LabelID][]ScatterTarget

	// Comprehensions maps a BeginComprehension instruction's position to
	// its side-table entry.
	Comprehensions map[int]ComprehensionSpec

	// Lambdas holds sub-programs referenced by MakeLambda.ProgramIndex.
	Lambdas []*Program

	// TryExcepts maps a TryExcept instruction's position to its ordered
	// except-arm list.
	TryExcepts map[int][]ExceptArm

	// Catches maps a TryCatch/PushCatchLabel instruction's position to its
	// codes list.
	Catches map[int]CatchSpec

	Decls map[VarID]VarDecl
}

// DeclFor returns the declaration metadata for id, or the zero value and
// false if id has no entry (malformed program).
func (p *Program) DeclFor(id VarID) (VarDecl, bool) {
	d, ok := p.Decls[id]
	return d, ok
}
