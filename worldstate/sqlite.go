package worldstate

import (
	"bytes"
	"database/sql"
	"encoding/binary"

	_ "modernc.org/sqlite"

	"github.com/vmoo/core/types"
)

// sqlite.go persists an authoritative Store to a SQLite file, storing every
// PropDef/VerbDef using the exact §6.4 binary encoding as a BLOB column.
// This is an alternative to the textdump adapter (textdump.go): both
// round-trip the same in-memory Store shape, but this one is queryable and
// supports partial loads by object id.

const schemaDDL = `
CREATE TABLE IF NOT EXISTS objects (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	owner INTEGER NOT NULL,
	parent INTEGER NOT NULL,
	location INTEGER NOT NULL,
	flags INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS aliases (
	object_id INTEGER NOT NULL,
	position INTEGER NOT NULL,
	alias TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS propdefs (
	object_id INTEGER NOT NULL,
	uuid BLOB NOT NULL,
	encoded BLOB NOT NULL,
	initial BLOB
);
CREATE TABLE IF NOT EXISTS propslots (
	object_id INTEGER NOT NULL,
	uuid BLOB NOT NULL,
	clear INTEGER NOT NULL,
	owner INTEGER NOT NULL,
	flags INTEGER NOT NULL,
	value BLOB
);
CREATE TABLE IF NOT EXISTS verbdefs (
	object_id INTEGER NOT NULL,
	uuid BLOB NOT NULL,
	encoded BLOB NOT NULL
);
`

// OpenSQLiteStore opens (creating if necessary) a SQLite-backed copy of a
// Store at path, initializing the schema if absent.
func OpenSQLiteStore(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, newError(ErrDatabaseError, "opening sqlite store: %v", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, newError(ErrDatabaseError, "initializing sqlite schema: %v", err)
	}
	return db, nil
}

// SaveToSQLite writes s's entire committed state to db, replacing any prior
// contents. The value/initial payloads are serialized with this file's own
// encodeValue codec and stored as blobs.
func SaveToSQLite(db *sql.DB, s *Store) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, err := db.Begin()
	if err != nil {
		return newError(ErrDatabaseError, "beginning sqlite transaction: %v", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"objects", "aliases", "propdefs", "propslots", "verbdefs"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return newError(ErrDatabaseError, "clearing table %s: %v", table, err)
		}
	}

	for id, rec := range s.objects {
		if _, err := tx.Exec(
			`INSERT INTO objects (id, name, owner, parent, location, flags) VALUES (?, ?, ?, ?, ?, ?)`,
			int64(id), rec.Name, int64(rec.Owner), int64(rec.Parent), int64(rec.Location), uint16(rec.Flags),
		); err != nil {
			return newError(ErrDatabaseError, "inserting object #%v: %v", id, err)
		}

		for i, alias := range rec.Aliases {
			if _, err := tx.Exec(
				`INSERT INTO aliases (object_id, position, alias) VALUES (?, ?, ?)`,
				int64(id), i, alias,
			); err != nil {
				return newError(ErrDatabaseError, "inserting alias for #%v: %v", id, err)
			}
		}

		for _, def := range rec.PropDefs.ToSlice() {
			encoded, err := EncodePropDef(def)
			if err != nil {
				return newError(ErrDatabaseError, "encoding propdef %s on #%v: %v", def.UUID, id, err)
			}
			idBytes := def.UUID.Bytes()
			initialBytes := encodeValue(def.Initial)
			if _, err := tx.Exec(
				`INSERT INTO propdefs (object_id, uuid, encoded, initial) VALUES (?, ?, ?, ?)`,
				int64(id), idBytes[:], encoded, initialBytes,
			); err != nil {
				return newError(ErrDatabaseError, "inserting propdef %s: %v", def.UUID, err)
			}
		}

		for uuid, slot := range rec.PropSlots {
			idBytes := uuid.Bytes()
			valueBytes := encodeValue(slot.Value)
			clearInt := 0
			if slot.Clear {
				clearInt = 1
			}
			if _, err := tx.Exec(
				`INSERT INTO propslots (object_id, uuid, clear, owner, flags, value) VALUES (?, ?, ?, ?, ?, ?)`,
				int64(id), idBytes[:], clearInt, int64(slot.Owner), uint16(slot.Flags), valueBytes,
			); err != nil {
				return newError(ErrDatabaseError, "inserting propslot %s: %v", uuid, err)
			}
		}

		for _, def := range rec.VerbDefs.ToSlice() {
			encoded, err := EncodeVerbDef(def)
			if err != nil {
				return newError(ErrDatabaseError, "encoding verbdef %s on #%v: %v", def.UUID, id, err)
			}
			idBytes := def.UUID.Bytes()
			if _, err := tx.Exec(
				`INSERT INTO verbdefs (object_id, uuid, encoded) VALUES (?, ?, ?)`,
				int64(id), idBytes[:], encoded,
			); err != nil {
				return newError(ErrDatabaseError, "inserting verbdef %s: %v", def.UUID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return newError(ErrDatabaseError, "committing sqlite write: %v", err)
	}
	return nil
}

// LoadFromSQLite reconstructs a Store from a database previously populated
// by SaveToSQLite. Verb bytecode is not persisted by this adapter (§6.4
// covers only PropDef/VerbDef metadata, not compiled programs); callers
// that need executable verbs must recompile from source after load.
func LoadFromSQLite(db *sql.DB) (*Store, error) {
	s := NewStore()

	rows, err := db.Query(`SELECT id, name, owner, parent, location, flags FROM objects`)
	if err != nil {
		return nil, newError(ErrDatabaseError, "reading objects: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, owner, parent, location int64
		var name string
		var flags uint16
		if err := rows.Scan(&id, &name, &owner, &parent, &location, &flags); err != nil {
			return nil, newError(ErrDatabaseError, "scanning object row: %v", err)
		}
		oid := types.ObjID(id)
		s.objects[oid] = &objectRecord{
			ID:        oid,
			Name:      name,
			Owner:     types.ObjID(owner),
			Parent:    types.ObjID(parent),
			Location:  types.ObjID(location),
			Flags:     Flag(flags),
			PropSlots: make(map[types.UUID]PropertySlot),
			Programs:  make(map[types.UUID]any),
		}
		if oid > s.maxObjID {
			s.maxObjID = oid
		}
		if oid > s.highWaterID {
			s.highWaterID = oid
		}
	}
	if err := rows.Err(); err != nil {
		return nil, newError(ErrDatabaseError, "iterating object rows: %v", err)
	}

	if err := loadAliases(db, s); err != nil {
		return nil, err
	}
	if err := loadPropDefs(db, s); err != nil {
		return nil, err
	}
	if err := loadPropSlots(db, s); err != nil {
		return nil, err
	}
	if err := loadVerbDefs(db, s); err != nil {
		return nil, err
	}
	return s, nil
}

func loadAliases(db *sql.DB, s *Store) error {
	rows, err := db.Query(`SELECT object_id, alias FROM aliases ORDER BY object_id, position`)
	if err != nil {
		return newError(ErrDatabaseError, "reading aliases: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var objectID int64
		var alias string
		if err := rows.Scan(&objectID, &alias); err != nil {
			return newError(ErrDatabaseError, "scanning alias row: %v", err)
		}
		rec, ok := s.objects[types.ObjID(objectID)]
		if !ok {
			continue
		}
		rec.Aliases = append(rec.Aliases, alias)
	}
	return rows.Err()
}

func loadPropDefs(db *sql.DB, s *Store) error {
	rows, err := db.Query(`SELECT object_id, encoded, initial FROM propdefs`)
	if err != nil {
		return newError(ErrDatabaseError, "reading propdefs: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var objectID int64
		var encoded, initial []byte
		if err := rows.Scan(&objectID, &encoded, &initial); err != nil {
			return newError(ErrDatabaseError, "scanning propdef row: %v", err)
		}
		def, err := DecodePropDef(encoded)
		if err != nil {
			return newError(ErrDatabaseError, "decoding propdef: %v", err)
		}
		def.Definer = types.ObjID(objectID)
		if len(initial) > 0 {
			v, err := decodeValue(initial)
			if err != nil {
				return newError(ErrDatabaseError, "decoding propdef initial value: %v", err)
			}
			def.Initial = v
		}
		rec, ok := s.objects[types.ObjID(objectID)]
		if !ok {
			continue
		}
		rec.PropDefs = rec.PropDefs.WithAdded(def)
	}
	return rows.Err()
}

func loadPropSlots(db *sql.DB, s *Store) error {
	rows, err := db.Query(`SELECT object_id, uuid, clear, owner, flags, value FROM propslots`)
	if err != nil {
		return newError(ErrDatabaseError, "reading propslots: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var objectID int64
		var uuidBytes []byte
		var clearInt int
		var owner int64
		var flags uint16
		var valueBytes []byte
		if err := rows.Scan(&objectID, &uuidBytes, &clearInt, &owner, &flags, &valueBytes); err != nil {
			return newError(ErrDatabaseError, "scanning propslot row: %v", err)
		}
		rec, ok := s.objects[types.ObjID(objectID)]
		if !ok {
			continue
		}
		var idArr [16]byte
		copy(idArr[:], uuidBytes)
		var value types.Value
		if len(valueBytes) > 0 {
			v, err := decodeValue(valueBytes)
			if err != nil {
				return newError(ErrDatabaseError, "decoding propslot value: %v", err)
			}
			value = v
		}
		rec.PropSlots[types.UUIDFromBytes(idArr)] = PropertySlot{
			Clear: clearInt != 0,
			Value: value,
			Owner: types.ObjID(owner),
			Flags: Flag(flags),
		}
	}
	return rows.Err()
}

func loadVerbDefs(db *sql.DB, s *Store) error {
	rows, err := db.Query(`SELECT object_id, encoded FROM verbdefs`)
	if err != nil {
		return newError(ErrDatabaseError, "reading verbdefs: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var objectID int64
		var encoded []byte
		if err := rows.Scan(&objectID, &encoded); err != nil {
			return newError(ErrDatabaseError, "scanning verbdef row: %v", err)
		}
		def, err := DecodeVerbDef(encoded)
		if err != nil {
			return newError(ErrDatabaseError, "decoding verbdef: %v", err)
		}
		rec, ok := s.objects[types.ObjID(objectID)]
		if !ok {
			continue
		}
		rec.VerbDefs = rec.VerbDefs.WithAdded(def)
	}
	return rows.Err()
}

// Value tag bytes for the BLOB codec below. These are a binary analogue of
// the textdump adapter's type tags (db.Type*), kept separate since the
// textdump format is line-oriented text and this one is flat binary.
const (
	valTagNone = iota
	valTagInt
	valTagFloat
	valTagStr
	valTagObj
	valTagErr
	valTagBool
	valTagList
	valTagMap
)

// encodeValue serializes a scalar or container Value to a flat binary blob.
// Waif values are not supported by this adapter; callers that need them
// should use the textdump adapter instead.
func encodeValue(v types.Value) []byte {
	var buf bytes.Buffer
	writeValueTo(&buf, v)
	return buf.Bytes()
}

func writeValueTo(buf *bytes.Buffer, v types.Value) {
	if v == nil {
		buf.WriteByte(valTagNone)
		return
	}
	switch val := v.(type) {
	case types.IntValue:
		buf.WriteByte(valTagInt)
		binary.Write(buf, binary.LittleEndian, val.Val)
	case types.FloatValue:
		buf.WriteByte(valTagFloat)
		binary.Write(buf, binary.LittleEndian, val.Val)
	case types.StrValue:
		buf.WriteByte(valTagStr)
		writeBytesTo(buf, []byte(val.Value()))
	case types.ObjValue:
		buf.WriteByte(valTagObj)
		binary.Write(buf, binary.LittleEndian, int64(val.ID()))
	case types.ErrValue:
		buf.WriteByte(valTagErr)
		binary.Write(buf, binary.LittleEndian, int32(val.Code()))
	case types.BoolValue:
		buf.WriteByte(valTagBool)
		if val.Val {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case types.ListValue:
		buf.WriteByte(valTagList)
		elems := val.Elements()
		binary.Write(buf, binary.LittleEndian, uint32(len(elems)))
		for _, e := range elems {
			writeValueTo(buf, e)
		}
	case types.MapValue:
		buf.WriteByte(valTagMap)
		pairs := val.Pairs()
		binary.Write(buf, binary.LittleEndian, uint32(len(pairs)))
		for _, p := range pairs {
			writeValueTo(buf, p[0])
			writeValueTo(buf, p[1])
		}
	default:
		buf.WriteByte(valTagNone)
	}
}

func writeBytesTo(buf *bytes.Buffer, b []byte) {
	binary.Write(buf, binary.LittleEndian, uint32(len(b)))
	buf.Write(b)
}

// decodeValue is encodeValue's inverse.
func decodeValue(data []byte) (types.Value, error) {
	r := bytes.NewReader(data)
	v, err := readValueFrom(r)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func readValueFrom(r *bytes.Reader) (types.Value, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, newError(ErrDatabaseError, "reading value tag: %v", err)
	}
	switch tag {
	case valTagNone:
		return nil, nil
	case valTagInt:
		var iv int64
		if err := binary.Read(r, binary.LittleEndian, &iv); err != nil {
			return nil, newError(ErrDatabaseError, "reading int value: %v", err)
		}
		return types.NewInt(iv), nil
	case valTagFloat:
		var fv float64
		if err := binary.Read(r, binary.LittleEndian, &fv); err != nil {
			return nil, newError(ErrDatabaseError, "reading float value: %v", err)
		}
		return types.NewFloat(fv), nil
	case valTagStr:
		b, err := readBytesFrom(r)
		if err != nil {
			return nil, err
		}
		return types.NewStr(string(b)), nil
	case valTagObj:
		var id int64
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return nil, newError(ErrDatabaseError, "reading obj value: %v", err)
		}
		return types.NewObj(types.ObjID(id)), nil
	case valTagErr:
		var code int32
		if err := binary.Read(r, binary.LittleEndian, &code); err != nil {
			return nil, newError(ErrDatabaseError, "reading err value: %v", err)
		}
		return types.NewErr(types.ErrorCode(code)), nil
	case valTagBool:
		b, err := r.ReadByte()
		if err != nil {
			return nil, newError(ErrDatabaseError, "reading bool value: %v", err)
		}
		return types.NewBool(b != 0), nil
	case valTagList:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, newError(ErrDatabaseError, "reading list length: %v", err)
		}
		elems := make([]types.Value, 0, n)
		for i := uint32(0); i < n; i++ {
			e, err := readValueFrom(r)
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		return types.NewList(elems), nil
	case valTagMap:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, newError(ErrDatabaseError, "reading map length: %v", err)
		}
		pairs := make([][2]types.Value, 0, n)
		for i := uint32(0); i < n; i++ {
			k, err := readValueFrom(r)
			if err != nil {
				return nil, err
			}
			v, err := readValueFrom(r)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, [2]types.Value{k, v})
		}
		return types.NewMap(pairs), nil
	default:
		return nil, newError(ErrDatabaseError, "unknown value tag %d", tag)
	}
}

func readBytesFrom(r *bytes.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, newError(ErrDatabaseError, "reading byte length: %v", err)
	}
	b := make([]byte, n)
	if _, err := r.Read(b); err != nil && n > 0 {
		return nil, newError(ErrDatabaseError, "reading bytes: %v", err)
	}
	return b, nil
}
