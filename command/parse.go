// Package command implements the command parser of §4.3: turning a raw
// input line into a ParsedCommand, with object-name resolution delegated
// to an injected matcher.
package command

import (
	"fmt"
	"strings"

	"github.com/vmoo/core/match"
	"github.com/vmoo/core/types"
	"github.com/vmoo/core/worldstate"
)

// ParseCommandError is returned for inputs the parser itself rejects,
// before any matcher is consulted.
type ParseCommandError struct {
	Reason string
}

func (e *ParseCommandError) Error() string {
	return fmt.Sprintf("parse command: %s", e.Reason)
}

// ParsedCommand is the structured representation of one parsed line, per
// §4.3's contract.
type ParsedCommand struct {
	Verb   string
	Argstr string
	Args   []string

	Dobjstr      string
	Dobj         types.ObjID
	AmbiguousDobj []types.ObjID

	Prepstr string
	Prep    worldstate.PrepSpec

	Iobjstr      string
	Iobj         types.ObjID
	AmbiguousIobj []types.ObjID
}

// ObjectNameMatcher resolves a name string against a player's
// surroundings; it is exactly match.Resolve's shape, injected so the
// parser itself stays side-effect-free except through this seam.
type ObjectNameMatcher interface {
	Resolve(player types.ObjID, input string) (match.Result, error)
}

// MatcherFunc adapts a plain function to ObjectNameMatcher.
type MatcherFunc func(player types.ObjID, input string) (match.Result, error)

func (f MatcherFunc) Resolve(player types.ObjID, input string) (match.Result, error) {
	return f(player, input)
}

// Parse runs the six-step algorithm of §4.3 against raw input, resolving
// object names through matcher on behalf of player.
func Parse(raw string, player types.ObjID, matcher ObjectNameMatcher) (*ParsedCommand, error) {
	trimmed := strings.TrimLeft(raw, " \t\r\n")

	// Step 1: chat shortcuts rewrite the first character.
	if len(trimmed) > 0 {
		switch trimmed[0] {
		case '"':
			trimmed = "say " + trimmed[1:]
		case ':':
			trimmed = "emote " + trimmed[1:]
		case ';':
			trimmed = "eval " + trimmed[1:]
		}
	}

	// Step 2: tokenize the whole line.
	words, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, &ParseCommandError{Reason: "EmptyCommand"}
	}

	// Step 3: first word is the verb; remainder is argstr, retokenized.
	cmd := &ParsedCommand{
		Verb: strings.ToLower(words[0]),
		Dobj: types.ObjNothing,
		Iobj: types.ObjNothing,
		Prep: worldstate.PrepSpec{Kind: worldstate.PrepSpecNone},
	}
	restRaw := strings.TrimPrefix(trimmed, words[0])
	restRaw = strings.TrimLeft(restRaw, " \t")
	cmd.Argstr = restRaw

	argWords, err := tokenize(restRaw)
	if err != nil {
		return nil, err
	}
	cmd.Args = argWords

	// Step 4: scan for the first known preposition.
	prepIdx, prepLen, prepID, prepstr := findPreposition(argWords)
	if prepIdx >= 0 {
		cmd.Prepstr = prepstr
		cmd.Prep = worldstate.PrepSpec{Kind: worldstate.PrepSpecOther, ID: prepID}
		if prepIdx > 0 {
			cmd.Dobjstr = strings.Join(argWords[:prepIdx], " ")
		}
		if prepIdx+prepLen < len(argWords) {
			cmd.Iobjstr = strings.Join(argWords[prepIdx+prepLen:], " ")
		}
	} else {
		cmd.Dobjstr = cmd.Argstr
	}

	// Step 5: resolve dobjstr/iobjstr through the injected matcher.
	if matcher != nil {
		if cmd.Dobjstr != "" {
			res, err := matcher.Resolve(player, cmd.Dobjstr)
			if err != nil {
				return nil, err
			}
			cmd.Dobj = res.ToObjID()
			if res.Kind == match.Multiple {
				cmd.AmbiguousDobj = res.Candidates
			}
		}
		if cmd.Prep.Kind != worldstate.PrepSpecNone && cmd.Iobjstr != "" {
			res, err := matcher.Resolve(player, cmd.Iobjstr)
			if err != nil {
				return nil, err
			}
			cmd.Iobj = res.ToObjID()
			if res.Kind == match.Multiple {
				cmd.AmbiguousIobj = res.Candidates
			}
		}
	}

	return cmd, nil
}

// tokenize implements step 2: whitespace separates words; backslash
// escapes the next character; a double-quoted segment is taken
// verbatim (quotes stripped, inner escapes honored); an unterminated
// quote runs to end of input.
func tokenize(s string) ([]string, error) {
	var words []string
	var cur strings.Builder
	inWord := false
	runes := []rune(s)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case r == '\\' && i+1 < len(runes):
			cur.WriteRune(runes[i+1])
			inWord = true
			i += 2
		case r == '"':
			inWord = true
			i++
			for i < len(runes) && runes[i] != '"' {
				if runes[i] == '\\' && i+1 < len(runes) {
					cur.WriteRune(runes[i+1])
					i += 2
					continue
				}
				cur.WriteRune(runes[i])
				i++
			}
			if i < len(runes) {
				i++ // skip closing quote
			}
		case r == ' ' || r == '\t':
			if inWord {
				words = append(words, cur.String())
				cur.Reset()
				inWord = false
			}
			i++
		default:
			cur.WriteRune(r)
			inWord = true
			i++
		}
	}
	if inWord {
		words = append(words, cur.String())
	}
	return words, nil
}

// findPreposition scans argWords left-to-right for the first known
// preposition, honoring multi-word entries (e.g. "in front of") by
// trying progressively longer windows starting at each position before
// moving on, per §6.2's fixed table. Returns (wordIndex, wordCount,
// prepID, matchedText), or (-1, 0, 0, "") if none found.
func findPreposition(argWords []string) (int, int, int16, string) {
	for i := range argWords {
		for width := 3; width >= 1; width-- {
			if i+width > len(argWords) {
				continue
			}
			candidate := strings.Join(argWords[i:i+width], " ")
			if id, ok := worldstate.LookupPrepositionByName(candidate); ok {
				return i, width, id, candidate
			}
		}
		if id, ok := numericPreposition(argWords[i]); ok {
			return i, 1, id, argWords[i]
		}
	}
	return -1, 0, 0, ""
}

func numericPreposition(word string) (int16, bool) {
	folded := strings.TrimPrefix(word, "#")
	if folded == word && !isAllDigits(word) {
		return 0, false
	}
	var n int16
	if _, err := fmt.Sscanf(folded, "%d", &n); err != nil {
		return 0, false
	}
	if !worldstate.ValidPrepositionID(n) {
		return 0, false
	}
	return n, true
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
