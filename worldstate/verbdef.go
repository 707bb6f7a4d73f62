package worldstate

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/vmoo/core/types"
)

// ObjSpec is a dobj/iobj argument specifier in a VerbArgsSpec (§4.3).
type ObjSpec int

const (
	ObjSpecNone ObjSpec = iota
	ObjSpecAny
	ObjSpecThis
)

// PrepSpecKind tags a preposition specifier's shape; Other carries a
// concrete preposition id (§6.2's fixed table).
type PrepSpecKind int

const (
	PrepSpecAny PrepSpecKind = iota
	PrepSpecNone
	PrepSpecOther
)

// PrepSpec is the preposition half of a VerbArgsSpec.
type PrepSpec struct {
	Kind PrepSpecKind
	ID   int16 // valid only when Kind == PrepSpecOther
}

// VerbArgsSpec is the (dobj, prep, iobj) triple that qualifies a verb for
// command dispatch (§4.3).
type VerbArgsSpec struct {
	Dobj ObjSpec
	Prep PrepSpec
	Iobj ObjSpec
}

// Matches implements the verb-to-args-spec dispatch rule of §4.3: each
// object spec matches This iff the resolved object equals self, None iff the
// resolved object is NOTHING, Any always; the preposition spec matches Any
// always, None iff the command carries no preposition, Other(id) iff ids
// are equal.
func (v VerbArgsSpec) Matches(self, dobj, iobj types.ObjID, prepPresent bool, prepID int16) bool {
	if !matchObjSpec(v.Dobj, self, dobj) {
		return false
	}
	if !matchObjSpec(v.Iobj, self, iobj) {
		return false
	}
	switch v.Prep.Kind {
	case PrepSpecAny:
		return true
	case PrepSpecNone:
		return !prepPresent
	case PrepSpecOther:
		return prepPresent && v.Prep.ID == prepID
	default:
		return false
	}
}

func matchObjSpec(spec ObjSpec, self, resolved types.ObjID) bool {
	switch spec {
	case ObjSpecAny:
		return true
	case ObjSpecThis:
		return resolved == self
	case ObjSpecNone:
		return resolved == types.ObjNothing
	default:
		return false
	}
}

// encodeArgsSpec packs (dobj:u8, iobj:u8, prep:i16le) into the u32 form of §6.4.
func encodeArgsSpec(spec VerbArgsSpec) uint32 {
	var prep int16
	switch spec.Prep.Kind {
	case PrepSpecAny:
		prep = -2
	case PrepSpecNone:
		prep = -1
	case PrepSpecOther:
		prep = spec.Prep.ID
	}
	return uint32(byte(spec.Dobj)) | uint32(byte(spec.Iobj))<<8 | uint32(uint16(prep))<<16
}

func decodeArgsSpec(packed uint32) VerbArgsSpec {
	dobj := ObjSpec(packed & 0xFF)
	iobj := ObjSpec((packed >> 8) & 0xFF)
	prep := int16(uint16(packed >> 16))

	var prepSpec PrepSpec
	switch {
	case prep == -2:
		prepSpec = PrepSpec{Kind: PrepSpecAny}
	case prep == -1:
		prepSpec = PrepSpec{Kind: PrepSpecNone}
	default:
		prepSpec = PrepSpec{Kind: PrepSpecOther, ID: prep}
	}

	return VerbArgsSpec{Dobj: dobj, Iobj: iobj, Prep: prepSpec}
}

// VerbDef is a verb definition (§3). Names may contain a single '*' marking
// the boundary between a required prefix and an optional abbreviation
// suffix, e.g. "foo*bar" matches "foo".."foobar".
type VerbDef struct {
	UUID     types.UUID
	Location types.ObjID
	Owner    types.ObjID
	Names    []string
	Flags    Flag
	Binary   uint8 // binary-kind tag, opaque to this package
	Args     VerbArgsSpec
}

// DefUUID implements Named
func (v VerbDef) DefUUID() types.UUID { return v.UUID }

// MatchesName reports whether candidate matches one of v's name patterns,
// honoring '*' abbreviation markers (teacher's db/store.go matchVerbName
// wildcard semantics, generalized to operate over Names directly).
func (v VerbDef) MatchesName(candidate string) bool {
	candidate = strings.ToLower(candidate)
	for _, pattern := range v.Names {
		if matchVerbNamePattern(pattern, candidate) {
			return true
		}
	}
	return false
}

func matchVerbNamePattern(pattern, search string) bool {
	pattern = strings.ToLower(pattern)
	if pattern == "*" {
		return true
	}
	starPos := strings.Index(pattern, "*")
	if starPos == -1 {
		return pattern == search
	}
	prefix := pattern[:starPos]
	full := pattern[:starPos] + pattern[starPos+1:]
	if !strings.HasPrefix(search, prefix) {
		return false
	}
	return strings.HasPrefix(full, search)
}

// EncodeVerbDef serializes a VerbDef to the §6.4 persisted layout:
//
//	data_version:u8 | uuid:u8[16] | location:i64 | owner:i64 | flags:u16 |
//	binary_type:u8 | args_spec:u32 | num_names:u8 | {len:u8, bytes}×num_names
func EncodeVerbDef(v VerbDef) ([]byte, error) {
	if len(v.Names) > 255 {
		return nil, fmt.Errorf("verbdef has more than 255 names")
	}
	var buf bytes.Buffer
	buf.WriteByte(dataVersion)
	idBytes := v.UUID.Bytes()
	buf.Write(idBytes[:])
	binary.Write(&buf, binary.LittleEndian, int64(v.Location))
	binary.Write(&buf, binary.LittleEndian, int64(v.Owner))
	binary.Write(&buf, binary.LittleEndian, uint16(v.Flags))
	buf.WriteByte(v.Binary)
	binary.Write(&buf, binary.LittleEndian, encodeArgsSpec(v.Args))
	buf.WriteByte(byte(len(v.Names)))
	for _, name := range v.Names {
		if len(name) > 255 {
			return nil, fmt.Errorf("verb name %q exceeds 255 bytes", name)
		}
		buf.WriteByte(byte(len(name)))
		buf.WriteString(name)
	}
	return buf.Bytes(), nil
}

// DecodeVerbDef parses the §6.4 persisted layout back into a VerbDef.
func DecodeVerbDef(data []byte) (VerbDef, error) {
	const fixedLen = 1 + 16 + 8 + 8 + 2 + 1 + 4 + 1
	if len(data) < fixedLen {
		return VerbDef{}, fmt.Errorf("verbdef encoding too short: %d bytes", len(data))
	}
	if data[0] != dataVersion {
		return VerbDef{}, fmt.Errorf("verbdef data_version mismatch: got %d, want %d", data[0], dataVersion)
	}
	r := bytes.NewReader(data[1:])

	var idBytes [16]byte
	if _, err := r.Read(idBytes[:]); err != nil {
		return VerbDef{}, fmt.Errorf("reading verbdef uuid: %w", err)
	}
	var location, owner int64
	var flags uint16
	var binaryType byte
	var argsPacked uint32
	if err := binary.Read(r, binary.LittleEndian, &location); err != nil {
		return VerbDef{}, fmt.Errorf("reading verbdef location: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &owner); err != nil {
		return VerbDef{}, fmt.Errorf("reading verbdef owner: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &flags); err != nil {
		return VerbDef{}, fmt.Errorf("reading verbdef flags: %w", err)
	}
	if b, err := r.ReadByte(); err != nil {
		return VerbDef{}, fmt.Errorf("reading verbdef binary_type: %w", err)
	} else {
		binaryType = b
	}
	if err := binary.Read(r, binary.LittleEndian, &argsPacked); err != nil {
		return VerbDef{}, fmt.Errorf("reading verbdef args_spec: %w", err)
	}
	numNames, err := r.ReadByte()
	if err != nil {
		return VerbDef{}, fmt.Errorf("reading verbdef num_names: %w", err)
	}

	names := make([]string, 0, numNames)
	for i := 0; i < int(numNames); i++ {
		nameLen, err := r.ReadByte()
		if err != nil {
			return VerbDef{}, fmt.Errorf("reading verbdef name %d length: %w", i, err)
		}
		nameBytes := make([]byte, nameLen)
		if _, err := r.Read(nameBytes); err != nil {
			return VerbDef{}, fmt.Errorf("reading verbdef name %d: %w", i, err)
		}
		names = append(names, string(nameBytes))
	}

	return VerbDef{
		UUID:     types.UUIDFromBytes(idBytes),
		Location: types.ObjID(location),
		Owner:    types.ObjID(owner),
		Flags:    Flag(flags),
		Binary:   binaryType,
		Args:     decodeArgsSpec(argsPacked),
		Names:    names,
	}, nil
}
