package types

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// UUID is the opaque object-identity kind: unlike ObjID's small integers,
// a UUID carries no ordering or allocation-order meaning. PropDef and VerbDef
// identity (§3) are keyed by UUID so that Defs containers can be reordered
// and merged without renumbering.
type UUID struct {
	id uuid.UUID
}

// NewUUID allocates a fresh, random opaque object identifier
func NewUUID() UUID {
	return UUID{id: uuid.New()}
}

// NilUUID is the zero-value UUID, distinguishable from any allocated one
var NilUUID = UUID{}

// ParseObjRef parses a "#..." textual object reference (§6.1) into either an
// ObjID or a UUID. A signed-integer body selects ObjID; a hyphenated
// hex-shaped body selects UUID.
func ParseObjRef(s string) (ObjID, UUID, error) {
	if !strings.HasPrefix(s, "#") {
		return 0, UUID{}, fmt.Errorf("object reference must start with '#': %q", s)
	}
	body := s[1:]
	if body == "" {
		return 0, UUID{}, fmt.Errorf("empty object reference: %q", s)
	}

	if looksNumeric(body) {
		var n int64
		_, err := fmt.Sscanf(body, "%d", &n)
		if err != nil {
			return 0, UUID{}, fmt.Errorf("malformed numeric object reference %q: %w", s, err)
		}
		return ObjID(n), UUID{}, nil
	}

	parsed, err := uuid.Parse(body)
	if err != nil {
		return 0, UUID{}, fmt.Errorf("malformed object reference %q: not numeric or UUID-shaped", s)
	}
	return 0, UUID{id: parsed}, nil
}

func looksNumeric(s string) bool {
	for i, r := range s {
		if r == '-' && i == 0 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// String returns the "#"-prefixed textual form
func (u UUID) String() string {
	return "#" + u.id.String()
}

// IsNil reports whether this is the zero-value UUID
func (u UUID) IsNil() bool {
	return u.id == uuid.Nil
}

// Equal compares two UUIDs for equality
func (u UUID) Equal(other UUID) bool {
	return u.id == other.id
}

// Bytes returns the UUID's 16-byte binary representation, matching §6.4's
// uuid:u8[16] encoding field.
func (u UUID) Bytes() [16]byte {
	return u.id
}

// UUIDFromBytes reconstructs a UUID from a 16-byte binary representation
func UUIDFromBytes(b [16]byte) UUID {
	return UUID{id: uuid.UUID(b)}
}
