package worldstate

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/vmoo/core/types"
)

// dataVersion is the single-byte format version stamped at the front of
// every persisted PropDef/VerbDef encoding (§6.4). Mismatched versions on
// read are rejected rather than guessed at.
const dataVersion = 1

// PropDef is a property definition: the name's first-defined point on an
// object's ancestor chain establishes its identity for lookup (§3).
type PropDef struct {
	UUID     types.UUID
	Definer  types.ObjID
	Location types.ObjID
	Name     string
	Flags    Flag
	Owner    types.ObjID
	Initial  types.Value // the definer's initial value, used when every descendant slot is clear
}

// DefUUID implements Named
func (p PropDef) DefUUID() types.UUID { return p.UUID }

// PropPerms is the per-object override of a property's owner/flags, recorded
// only where an object has a concrete local slot (get_property_info, §4.1).
type PropPerms struct {
	Owner types.ObjID
	Flags Flag
}

// EncodePropDef serializes a PropDef to the §6.4 persisted layout:
//
//	data_version:u8 | uuid:u8[16] | location:i64 | owner:i64 | flags:u16 |
//	name-length:u8 | name:bytes
//
// The initial value and definer are not part of the wire format; they are
// reconstructed by the caller from the definer object's own property slot.
func EncodePropDef(p PropDef) ([]byte, error) {
	if len(p.Name) > 255 {
		return nil, fmt.Errorf("property name %q exceeds 255 bytes", p.Name)
	}
	var buf bytes.Buffer
	buf.WriteByte(dataVersion)
	idBytes := p.UUID.Bytes()
	buf.Write(idBytes[:])
	binary.Write(&buf, binary.LittleEndian, int64(p.Location))
	binary.Write(&buf, binary.LittleEndian, int64(p.Owner))
	binary.Write(&buf, binary.LittleEndian, uint16(p.Flags))
	buf.WriteByte(byte(len(p.Name)))
	buf.WriteString(p.Name)
	return buf.Bytes(), nil
}

// DecodePropDef parses the §6.4 persisted layout back into a PropDef.
// Definer and Initial are left zero-valued; the caller fills them in from
// context (the definer object is whichever object this encoding is read
// from).
func DecodePropDef(data []byte) (PropDef, error) {
	const fixedLen = 1 + 16 + 8 + 8 + 2 + 1
	if len(data) < fixedLen {
		return PropDef{}, fmt.Errorf("propdef encoding too short: %d bytes", len(data))
	}
	if data[0] != dataVersion {
		return PropDef{}, fmt.Errorf("propdef data_version mismatch: got %d, want %d", data[0], dataVersion)
	}
	r := bytes.NewReader(data[1:])

	var idBytes [16]byte
	if _, err := r.Read(idBytes[:]); err != nil {
		return PropDef{}, fmt.Errorf("reading propdef uuid: %w", err)
	}
	var location, owner int64
	var flags uint16
	if err := binary.Read(r, binary.LittleEndian, &location); err != nil {
		return PropDef{}, fmt.Errorf("reading propdef location: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &owner); err != nil {
		return PropDef{}, fmt.Errorf("reading propdef owner: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &flags); err != nil {
		return PropDef{}, fmt.Errorf("reading propdef flags: %w", err)
	}
	nameLen, err := r.ReadByte()
	if err != nil {
		return PropDef{}, fmt.Errorf("reading propdef name length: %w", err)
	}
	nameBytes := make([]byte, nameLen)
	if _, err := r.Read(nameBytes); err != nil {
		return PropDef{}, fmt.Errorf("reading propdef name: %w", err)
	}

	return PropDef{
		UUID:     types.UUIDFromBytes(idBytes),
		Location: types.ObjID(location),
		Owner:    types.ObjID(owner),
		Flags:    Flag(flags),
		Name:     string(nameBytes),
	}, nil
}
