package match

import (
	"strconv"
	"strings"

	"github.com/vmoo/core/types"
)

// Result is the outcome of a Resolve call: exactly one of NoMatch,
// Single, or Multiple is meaningful, mirroring §4.4's three-way return.
type Result struct {
	Kind       ResultKind
	Object     types.ObjID   // valid when Kind == Single
	Candidates []types.ObjID // valid when Kind == Multiple
}

type ResultKind int

const (
	NoMatch ResultKind = iota
	Single
	Multiple
	None // empty input: no match attempt at all, distinct from NoMatch
)

// ToObjID maps a Result into the WorldState sentinel terms §4.4 specifies.
func (r Result) ToObjID() types.ObjID {
	switch r.Kind {
	case Single:
		return r.Object
	case Multiple:
		return types.ObjAmbiguous
	case NoMatch, None:
		return types.ObjFailedMatch
	default:
		return types.ObjFailedMatch
	}
}

var ordinalWords = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
}

// parseOrdinal recognizes a leading ordinal word per §4.4/§9's decided
// word list: first..tenth, numeric-suffix forms (1st, 2nd, 21st, ...),
// and a bare integer. Returns the 1-based index and whether the word was
// consumed as an ordinal.
func parseOrdinal(word string) (int, bool) {
	folded := strings.ToLower(word)
	if n, ok := ordinalWords[folded]; ok {
		return n, true
	}
	if n, ok := parseNumericOrdinal(folded); ok {
		return n, true
	}
	if n, err := strconv.Atoi(folded); err == nil && n > 0 {
		return n, true
	}
	return 0, false
}

func parseNumericOrdinal(s string) (int, bool) {
	for _, suffix := range []string{"st", "nd", "rd", "th"} {
		if strings.HasSuffix(s, suffix) {
			numPart := strings.TrimSuffix(s, suffix)
			if n, err := strconv.Atoi(numPart); err == nil && n > 0 {
				return n, true
			}
		}
	}
	return 0, false
}

// FuzzyThreshold is the default Damerau-Levenshtein distance under which
// the optional fuzzy stage accepts a candidate. Disabled by default per
// §9's open-question resolution; callers opt in explicitly.
const FuzzyThreshold = 2

// Options controls optional complex-matcher behavior.
type Options struct {
	// EnableFuzzy turns on the Damerau-Levenshtein stage after the
	// substring tier. Off by default (§4.4).
	EnableFuzzy bool
	// FuzzyThreshold overrides FuzzyThreshold when EnableFuzzy is set
	// and this is nonzero.
	FuzzyThreshold int
}

// Resolve implements §4.4 in full: special forms (#id, me, here), then
// surroundings enumeration and the complex match.
func Resolve(env Environment, player types.ObjID, input string, opts Options) (Result, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Result{Kind: None}, nil
	}

	if strings.HasPrefix(trimmed, "#") {
		if oid, uuid, err := types.ParseObjRef(trimmed); err == nil {
			_ = uuid
			return Result{Kind: Single, Object: oid}, nil
		}
		return Result{Kind: NoMatch}, nil
	}

	folded := strings.ToLower(trimmed)
	if folded == "me" {
		return Result{Kind: Single, Object: player}, nil
	}
	if folded == "here" {
		loc, err := env.LocationOf(player)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: Single, Object: loc}, nil
	}

	surroundings, err := env.GetSurroundings(player)
	if err != nil {
		return Result{}, err
	}

	type candidate struct {
		id    types.ObjID
		names []string
	}
	candidates := make([]candidate, 0, len(surroundings))
	for _, id := range surroundings {
		if !env.ObjValid(id) {
			continue
		}
		names, err := env.GetNames(id)
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{id: id, names: names})
	}

	searchTerm := trimmed
	ordinal := 0
	words := strings.Fields(trimmed)
	if len(words) > 1 {
		if n, ok := parseOrdinal(words[0]); ok {
			ordinal = n
			searchTerm = strings.Join(words[1:], " ")
		}
	}
	searchFolded := strings.ToLower(searchTerm)

	tiers := []func(string, []string) bool{
		func(needle string, names []string) bool {
			for _, n := range names {
				if strings.ToLower(n) == needle {
					return true
				}
			}
			return false
		},
		func(needle string, names []string) bool {
			for _, n := range names {
				if strings.HasPrefix(strings.ToLower(n), needle) {
					return true
				}
			}
			return false
		},
		func(needle string, names []string) bool {
			for _, n := range names {
				if strings.Contains(strings.ToLower(n), needle) {
					return true
				}
			}
			return false
		},
	}

	for _, tier := range tiers {
		var matched []types.ObjID
		for _, c := range candidates {
			if tier(searchFolded, c.names) {
				matched = append(matched, c.id)
			}
		}
		if result, ok := resolveTier(matched, ordinal); ok {
			return result, nil
		}
	}

	if opts.EnableFuzzy {
		threshold := opts.FuzzyThreshold
		if threshold == 0 {
			threshold = FuzzyThreshold
		}
		var matched []types.ObjID
		for _, c := range candidates {
			for _, n := range c.names {
				if damerauLevenshtein(strings.ToLower(n), searchFolded) <= threshold {
					matched = append(matched, c.id)
					break
				}
			}
		}
		if result, ok := resolveTier(matched, ordinal); ok {
			return result, nil
		}
	}

	return Result{Kind: NoMatch}, nil
}

// resolveTier turns one tier's match list into a Result, honoring an
// ordinal index when present, per §4.4's selection rule.
func resolveTier(matched []types.ObjID, ordinal int) (Result, bool) {
	if len(matched) == 0 {
		return Result{}, false
	}
	if len(matched) == 1 {
		return Result{Kind: Single, Object: matched[0]}, true
	}
	if ordinal > 0 && ordinal <= len(matched) {
		return Result{Kind: Single, Object: matched[ordinal-1]}, true
	}
	if ordinal > 0 {
		return Result{Kind: NoMatch}, true
	}
	return Result{Kind: Multiple, Candidates: matched}, true
}

// damerauLevenshtein computes the Damerau-Levenshtein edit distance
// (insertions, deletions, substitutions, adjacent transpositions)
// between a and b. Hand-rolled: no small string-distance library
// appears anywhere in the retrieved example pack, so this one routine
// is the stdlib-only exception to the "always reach for a library"
// rule (see DESIGN.md).
func damerauLevenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	d := make([][]int, la+1)
	for i := range d {
		d[i] = make([]int, lb+1)
		d[i][0] = i
	}
	for j := 0; j <= lb; j++ {
		d[0][j] = j
	}

	for i := 1; i <= la; i++ {
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			d[i][j] = min3(
				d[i-1][j]+1,
				d[i][j-1]+1,
				d[i-1][j-1]+cost,
			)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				if t := d[i-2][j-2] + 1; t < d[i][j] {
					d[i][j] = t
				}
			}
		}
	}
	return d[la][lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
