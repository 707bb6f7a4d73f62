// Command vmoo is a subcommand-grouped tool for the decompiler, command
// parser, and object matcher: decompiling a small built-in demo opcode
// program back to source, parsing a raw command line against a small
// demo room, resolving an object-name match by itself, or (serve)
// running a real command loop against a configured, textdump-imported
// world.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vmoo/core/command"
	"github.com/vmoo/core/decompile"
	"github.com/vmoo/core/match"
	"github.com/vmoo/core/parser"
	"github.com/vmoo/core/server"
	"github.com/vmoo/core/types"
	"github.com/vmoo/core/vm/opcode"
	"github.com/vmoo/core/worldstate"
)

func main() {
	root := &cobra.Command{
		Use:   "vmoo",
		Short: "Inspection tool for the decompiler, command parser, and matcher",
	}
	root.AddCommand(newDecompileCmd())
	root.AddCommand(newMatchCmd())
	root.AddCommand(newParseCmd())
	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newDecompileCmd decompiles demoProgram, a small hand-built
// opcode.Program (no on-disk program format exists yet, since nothing
// in this repo compiles source down to vm/opcode bytecode), showing
// the reconstruction of a plain if/else over a couple of properties.
// Real callers construct an opcode.Program in Go and call
// decompile.Decompile directly; this subcommand exists to exercise and
// demonstrate that entry point end to end.
func newDecompileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decompile",
		Short: "Decompile a small built-in demo opcode.Program back to source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prog := demoProgram()
			stmts, err := decompile.Decompile(prog)
			if err != nil {
				return fmt.Errorf("decompile: %w", err)
			}
			for _, line := range parser.UnparseProgram(stmts) {
				fmt.Println(line)
			}
			return nil
		},
	}
}

// demoProgram builds the opcode vector for:
//
//	if (x > 0)
//	  return x;
//	else
//	  return 0 - x;
//	endif
func demoProgram() *opcode.Program {
	const xVar opcode.VarID = 1
	return &opcode.Program{
		Main: []opcode.Instruction{
			{Op: opcode.OpPush, Name: xVar},         // 0
			{Op: opcode.OpImmInt, Literal: 0},        // 1: literal 0
			{Op: opcode.OpGt},                        // 2: x > 0
			{Op: opcode.OpIf, Label: 1},               // 3: if false, jump to label 1 (else branch)
			{Op: opcode.OpPush, Name: xVar},          // 4
			{Op: opcode.OpReturn},                    // 5
			{Op: opcode.OpJump, Label: 2},              // 6: skip else branch
			{Op: opcode.OpImmInt, Literal: 0},        // 7: literal 0 (else branch start, label 1)
			{Op: opcode.OpPush, Name: xVar},          // 8
			{Op: opcode.OpSub},                       // 9: 0 - x
			{Op: opcode.OpReturn},                    // 10
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

func newMatchCmd() *cobra.Command {
	var fuzzy bool
	c := &cobra.Command{
		Use:   "match <player-objref> <name>",
		Short: "Resolve a name against a small demo room using the complex matcher",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			player, err := parseObjArg(args[0])
			if err != nil {
				return err
			}
			env := demoEnvironment(player)
			result, err := match.Resolve(env, player, args[1], match.Options{EnableFuzzy: fuzzy})
			if err != nil {
				return fmt.Errorf("match: %w", err)
			}
			printMatchResult(result)
			return nil
		},
	}
	c.Flags().BoolVar(&fuzzy, "fuzzy", false, "enable the Damerau-Levenshtein fuzzy fallback stage")
	return c
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <player-objref> <command line...>",
		Short: "Parse a raw command line against a small demo room",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			player, err := parseObjArg(args[0])
			if err != nil {
				return err
			}
			env := demoEnvironment(player)
			matcher := command.MatcherFunc(func(p types.ObjID, input string) (match.Result, error) {
				return match.Resolve(env, p, input, match.Options{})
			})
			raw := strings.Join(args[1:], " ")
			parsed, err := command.Parse(raw, player, matcher)
			if err != nil {
				return fmt.Errorf("parse: %w", err)
			}
			fmt.Printf("verb:   %s\n", parsed.Verb)
			fmt.Printf("dobj:   %q -> #%d\n", parsed.Dobjstr, parsed.Dobj)
			fmt.Printf("prep:   %q\n", parsed.Prepstr)
			fmt.Printf("iobj:   %q -> #%d\n", parsed.Iobjstr, parsed.Iobj)
			fmt.Printf("argstr: %q\n", parsed.Argstr)
			return nil
		},
	}
}

func parseObjArg(s string) (types.ObjID, error) {
	id, _, err := types.ParseObjRef(s)
	if err != nil {
		return 0, fmt.Errorf("invalid object reference %q: %w", s, err)
	}
	return id, nil
}

// demoEnvironment builds a small fixed room so match/parse subcommands
// have something to resolve against without needing a live world.
func demoEnvironment(player types.ObjID) *match.MockEnvironment {
	const room types.ObjID = 100
	const yellowBird types.ObjID = 101
	const redBall types.ObjID = 102

	env := match.NewMockEnvironment(player)
	env.AddObject(room, []string{"room", "demo room"}, types.ObjNothing)
	env.AddObject(player, []string{"you", "player"}, room)
	env.AddObject(yellowBird, []string{"yellow bird", "bird"}, room)
	env.AddObject(redBall, []string{"red ball", "ball"}, room)
	return env
}

// newServeCmd reads a vmoo.yaml config, imports the textdump it points
// at, and runs a single-player command loop over stdin/stdout against
// the live worldstate.Store — §6.6's server command loop driven for
// real, not the decompile/match/parse subcommands' hand-built fixtures.
func newServeCmd() *cobra.Command {
	var configPath string
	var traceFilters []string
	c := &cobra.Command{
		Use:   "serve <player-objref>",
		Short: "Run a single-player command loop against a configured world",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			player, err := parseObjArg(args[0])
			if err != nil {
				return err
			}
			cfg, err := server.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if cfg.Backend != server.BackendTextdump {
				return fmt.Errorf("serve: backend %q not supported by this subcommand yet", cfg.Backend)
			}
			store, err := worldstate.ImportTextdump(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("import %s: %w", cfg.DatabasePath, err)
			}
			tx := store.Begin()
			if !tx.Valid(player) {
				return fmt.Errorf("serve: #%d is not a valid object in %s", player, cfg.DatabasePath)
			}

			filters := traceFilters
			if len(filters) == 0 {
				filters = cfg.TraceFilters
			}
			tracer := server.NewTracer(os.Stderr, filters, nil)
			loop := server.NewCommandLoop(tx, player, tracer)

			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				res, err := loop.HandleLine(scanner.Text())
				if err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
					continue
				}
				printDispatchResult(res)
			}
			return scanner.Err()
		},
	}
	c.Flags().StringVar(&configPath, "config", "vmoo.yaml", "path to the vmoo.yaml config file")
	c.Flags().StringSliceVar(&traceFilters, "trace", nil, "verb name glob(s) to trace (overrides config trace_filters)")
	return c
}

func printDispatchResult(res *server.Result) {
	switch res.Outcome {
	case server.OutcomeFound:
		fmt.Printf("-> %s on #%d (uuid=%s)\n", res.Parsed.Verb, res.Owner, res.Verb.UUID)
	case server.OutcomeAmbiguous:
		fmt.Println("I don't know which one you mean.")
	case server.OutcomeNotUnderstood:
		fmt.Println("I don't understand that.")
	}
}

func printMatchResult(r match.Result) {
	switch r.Kind {
	case match.Single:
		fmt.Printf("single match: #%d\n", r.Object)
	case match.Multiple:
		fmt.Printf("ambiguous: %d candidates\n", len(r.Candidates))
		for _, c := range r.Candidates {
			fmt.Printf("  #%d\n", c)
		}
	case match.NoMatch:
		fmt.Println("no match")
	case match.None:
		fmt.Println("empty input")
	}
}
