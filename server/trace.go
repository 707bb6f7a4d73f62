package server

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/vmoo/core/decompile"
	"github.com/vmoo/core/parser"
	"github.com/vmoo/core/types"
	"github.com/vmoo/core/vm/opcode"
)

// ProgramSource optionally supplies the compiled program behind a
// dispatched verb so Tracer can log decompiled source instead of a raw
// opcode dump; callers without a program store pass a nil ProgramSource
// to NewTracer and dispatch lines fall back to the bare verb/owner form.
type ProgramSource interface {
	ProgramFor(owner types.ObjID, uuid types.UUID) (*opcode.Program, bool)
}

// Tracer logs command-loop dispatch decisions, adapted from the teacher's
// trace.Tracer to log decompiled (not raw-bytecode) call frames, per
// SPEC_FULL.md §6.6.
type Tracer struct {
	filters []string
	writer  io.Writer
	source  ProgramSource
	mu      sync.Mutex
}

// NewTracer creates a Tracer writing to w, logging only verbs whose name
// matches one of filters (filepath.Match globs; no filters traces
// everything). source may be nil.
func NewTracer(w io.Writer, filters []string, source ProgramSource) *Tracer {
	return &Tracer{writer: w, filters: filters, source: source}
}

func (t *Tracer) matchesFilter(verb string) bool {
	if len(t.filters) == 0 {
		return true
	}
	for _, pattern := range t.filters {
		if matched, _ := filepath.Match(pattern, verb); matched {
			return true
		}
	}
	return false
}

// DispatchVerb logs a resolved dispatch, decompiling and logging the
// verb's source through source when the tracer has one.
func (t *Tracer) DispatchVerb(player, owner types.ObjID, verb string, uuid types.UUID) {
	if t == nil || !t.matchesFilter(verb) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.writer, "[TRACE] #%d -> %s on #%d (uuid=%s)\n", player, verb, owner, uuid)
	if t.source == nil {
		return
	}
	prog, ok := t.source.ProgramFor(owner, uuid)
	if !ok {
		return
	}
	stmts, err := decompile.Decompile(prog)
	if err != nil {
		fmt.Fprintf(t.writer, "[TRACE]   <decompile error: %v>\n", err)
		return
	}
	for _, line := range parser.UnparseProgram(stmts) {
		fmt.Fprintf(t.writer, "[TRACE]   %s\n", line)
	}
}

// DispatchMiss logs a dispatch that found no verb, or an ambiguous one,
// with a free-form reason ("not understood", "ambiguous object name").
func (t *Tracer) DispatchMiss(player types.ObjID, verb, reason string) {
	if t == nil || !t.matchesFilter(verb) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.writer, "[TRACE] #%d -> %s: %s\n", player, verb, reason)
}
