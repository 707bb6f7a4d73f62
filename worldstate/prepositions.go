package worldstate

import (
	"strconv"
	"strings"
)

// prepositionTable is the fixed table of §6.2, assigned ids 1..15 in order.
// Each entry's synonyms are tried in case-folded full-string match.
var prepositionTable = []struct {
	id       int16
	synonyms []string
}{
	{1, []string{"with", "using"}},
	{2, []string{"at", "to"}},
	{3, []string{"in front of"}},
	{4, []string{"in", "inside", "into"}},
	{5, []string{"on top of", "on", "onto", "upon"}},
	{6, []string{"out of", "from inside", "from"}},
	{7, []string{"over"}},
	{8, []string{"through"}},
	{9, []string{"under", "underneath", "beneath"}},
	{10, []string{"behind"}},
	{11, []string{"beside"}},
	{12, []string{"for", "about"}},
	{13, []string{"is"}},
	{14, []string{"as"}},
	{15, []string{"off", "off of"}},
}

// LookupPrepositionByName returns the id of the preposition whose synonym
// list contains word (case-folded), or ok=false. word may also be a bare
// numeric id ("N") or "#N" form per §6.2.
func LookupPrepositionByName(word string) (id int16, ok bool) {
	folded := strings.ToLower(strings.TrimSpace(word))
	if folded == "" {
		return 0, false
	}
	for _, entry := range prepositionTable {
		for _, syn := range entry.synonyms {
			if syn == folded {
				return entry.id, true
			}
		}
	}
	if n, err := strconv.ParseInt(strings.TrimPrefix(folded, "#"), 10, 16); err == nil && ValidPrepositionID(int16(n)) {
		return int16(n), true
	}
	return 0, false
}

// PrepositionName returns the canonical (first-listed) synonym for id, or
// "" if id is out of range.
func PrepositionName(id int16) string {
	for _, entry := range prepositionTable {
		if entry.id == id {
			return entry.synonyms[0]
		}
	}
	return ""
}

// ValidPrepositionID reports whether id names a real table entry.
func ValidPrepositionID(id int16) bool {
	for _, entry := range prepositionTable {
		if entry.id == id {
			return true
		}
	}
	return false
}
