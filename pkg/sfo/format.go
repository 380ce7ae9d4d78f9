package sfo

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/ssargent/sfoedit/pkg/layout"
)

// Layout names registered by every Document
const (
	HeaderLayout     = "SFOHeader"
	IndexEntryLayout = "IndexTableEntry"
)

// Fixed region sizes
const (
	HeaderSize     = 0x14
	IndexEntrySize = 0x10
	tableAlignment = 4
)

// ParamFormat selects how an entry's value bytes are interpreted
type ParamFormat uint16

const (
	FormatSpecial ParamFormat = 0x0004 // integer or raw bytes depending on the key
	FormatUTF8    ParamFormat = 0x0204 // zero-terminated UTF-8 string
	FormatUint32  ParamFormat = 0x0404 // little-endian uint32
)

func (f ParamFormat) String() string {
	switch f {
	case FormatSpecial:
		return "special"
	case FormatUTF8:
		return "utf8"
	case FormatUint32:
		return "uint32"
	default:
		return fmt.Sprintf("0x%04x", uint16(f))
	}
}

// ValueType is the logical type of an entry value
type ValueType int

const (
	TypeOpaque ValueType = iota
	TypeRaw
	TypeUTF8
	TypeUint32
	TypeUint64
)

func (t ValueType) String() string {
	switch t {
	case TypeRaw:
		return "raw"
	case TypeUTF8:
		return "utf8"
	case TypeUint32:
		return "uint32"
	case TypeUint64:
		return "uint64"
	default:
		return "opaque"
	}
}

// keyTypes overrides the value type of FormatSpecial entries for known keys.
// Any other FormatSpecial key holds raw bytes.
var keyTypes = map[string]ValueType{
	"ACCOUNT_ID":      TypeUint64,
	"SAVEDATA_BLOCKS": TypeUint64,
}

// ValueTypeOf resolves the value type for key stored with format f
func ValueTypeOf(key string, f ParamFormat) ValueType {
	switch f {
	case FormatSpecial:
		if t, ok := keyTypes[key]; ok {
			return t
		}
		return TypeRaw
	case FormatUTF8:
		return TypeUTF8
	case FormatUint32:
		return TypeUint32
	default:
		return TypeOpaque
	}
}

// Header is the fixed 20 byte file header
type Header struct {
	Magic           [4]byte
	Version         [4]byte
	KeyTableOffset  int32
	DataTableOffset int32
	EntryCount      int32
}

// IndexEntry is one 16 byte index table row
type IndexEntry struct {
	KeyOffset      uint16      // Relative to the key table
	ParamFormat    ParamFormat // Value encoding
	ParamLength    uint32      // Encoded length of the value
	ParamMaxLength uint32      // Bytes reserved for the value in the data table
	DataOffset     uint32      // Relative to the data table
}

func registerLayouts(reg *layout.Registry) (hdr, idx *layout.Layout, err error) {
	hdr, err = reg.Create(HeaderLayout, []layout.Field{
		{Name: "magic", Type: layout.TypeRaw, Size: 4},
		{Name: "version", Type: layout.TypeRaw, Size: 4},
		{Name: "keyTableOffset", Type: layout.TypeInt32},
		{Name: "dataTableOffset", Type: layout.TypeInt32},
		{Name: "entryCount", Type: layout.TypeInt32},
	}, HeaderSize)
	if err != nil {
		return nil, nil, errors.Wrap(err, "register header layout")
	}

	idx, err = reg.Create(IndexEntryLayout, []layout.Field{
		{Name: "keyOffset", Type: layout.TypeUint16},
		{Name: "paramFormat", Type: layout.TypeUint16},
		{Name: "paramLength", Type: layout.TypeUint32},
		{Name: "paramMaxLength", Type: layout.TypeUint32},
		{Name: "dataOffset", Type: layout.TypeUint32},
	}, IndexEntrySize)
	if err != nil {
		return nil, nil, errors.Wrap(err, "register index entry layout")
	}
	return hdr, idx, nil
}

func (h Header) record() layout.Record {
	return layout.Record{
		"magic":           layout.Bytes(h.Magic[:]),
		"version":         layout.Bytes(h.Version[:]),
		"keyTableOffset":  layout.Int32(h.KeyTableOffset),
		"dataTableOffset": layout.Int32(h.DataTableOffset),
		"entryCount":      layout.Int32(h.EntryCount),
	}
}

func headerFromRecord(rec layout.Record) (Header, error) {
	var h Header
	magic, ok1 := rec["magic"].(layout.Bytes)
	version, ok2 := rec["version"].(layout.Bytes)
	kto, ok3 := rec["keyTableOffset"].(layout.Int32)
	dto, ok4 := rec["dataTableOffset"].(layout.Int32)
	count, ok5 := rec["entryCount"].(layout.Int32)
	if !(ok1 && ok2 && ok3 && ok4 && ok5) {
		return h, errors.Wrap(ErrMalformed, "incomplete header record")
	}
	copy(h.Magic[:], magic)
	copy(h.Version[:], version)
	h.KeyTableOffset = int32(kto)
	h.DataTableOffset = int32(dto)
	h.EntryCount = int32(count)
	return h, nil
}

func (e IndexEntry) record() layout.Record {
	return layout.Record{
		"keyOffset":      layout.Uint16(e.KeyOffset),
		"paramFormat":    layout.Uint16(e.ParamFormat),
		"paramLength":    layout.Uint32(e.ParamLength),
		"paramMaxLength": layout.Uint32(e.ParamMaxLength),
		"dataOffset":     layout.Uint32(e.DataOffset),
	}
}

func indexEntryFromRecord(rec layout.Record) (IndexEntry, error) {
	var e IndexEntry
	ko, ok1 := rec["keyOffset"].(layout.Uint16)
	pf, ok2 := rec["paramFormat"].(layout.Uint16)
	pl, ok3 := rec["paramLength"].(layout.Uint32)
	pm, ok4 := rec["paramMaxLength"].(layout.Uint32)
	do, ok5 := rec["dataOffset"].(layout.Uint32)
	if !(ok1 && ok2 && ok3 && ok4 && ok5) {
		return e, errors.Wrap(ErrMalformed, "incomplete index entry record")
	}
	e.KeyOffset = uint16(ko)
	e.ParamFormat = ParamFormat(pf)
	e.ParamLength = uint32(pl)
	e.ParamMaxLength = uint32(pm)
	e.DataOffset = uint32(do)
	return e, nil
}

// valueField returns the layout field used to read or write a value of type
// t occupying size bytes
func valueField(key string, t ValueType, size int) layout.Field {
	f := layout.Field{Name: key, Size: size}
	switch t {
	case TypeUint32:
		f.Type = layout.TypeUint32
	case TypeUint64:
		f.Type = layout.TypeUint64
	case TypeUTF8:
		f.Type = layout.TypeUTF8
	case TypeRaw, TypeOpaque:
		f.Type = layout.TypeRaw
	}
	return f
}

// minValueSize is the smallest data region that can hold a value of type t
func minValueSize(t ValueType) uint32 {
	switch t {
	case TypeUint32:
		return 4
	case TypeUint64:
		return 8
	default:
		return 0
	}
}

func alignUp(n, align int) int {
	if r := n % align; r != 0 {
		return n + align - r
	}
	return n
}
