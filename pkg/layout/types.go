package layout

import "fmt"

// FieldType identifies how a field is laid out on the wire
type FieldType int

const (
	TypeRaw FieldType = iota + 1
	TypeASCII
	TypeUTF8
	TypeUint16
	TypeUint32
	TypeUint64
	TypeInt16
	TypeInt32
	TypeInt64
	TypeMemoryAddress
	TypeReference
)

var fieldTypeNames = map[FieldType]string{
	TypeRaw:           "raw",
	TypeASCII:         "ascii",
	TypeUTF8:          "utf8",
	TypeUint16:        "uint16",
	TypeUint32:        "uint32",
	TypeUint64:        "uint64",
	TypeInt16:         "int16",
	TypeInt32:         "int32",
	TypeInt64:         "int64",
	TypeMemoryAddress: "memoryAddress",
	TypeReference:     "reference",
}

func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// Valid reports whether t is one of the known field types
func (t FieldType) Valid() bool {
	_, ok := fieldTypeNames[t]
	return ok
}

// width returns the fixed byte width of t, or 0 when the width comes from
// the field declaration.
func (t FieldType) width() int {
	switch t {
	case TypeUint16, TypeInt16:
		return 2
	case TypeUint32, TypeInt32:
		return 4
	case TypeUint64, TypeInt64, TypeMemoryAddress:
		return 8
	default:
		return 0
	}
}

// zero returns the default value used when a dataset omits a field of type t
func (t FieldType) zero() Value {
	switch t {
	case TypeRaw:
		return Bytes(nil)
	case TypeASCII, TypeUTF8:
		return String("")
	case TypeUint16:
		return Uint16(0)
	case TypeUint32:
		return Uint32(0)
	case TypeUint64:
		return Uint64(0)
	case TypeInt16:
		return Int16(0)
	case TypeInt32:
		return Int32(0)
	case TypeInt64:
		return Int64(0)
	case TypeMemoryAddress:
		return Address{}
	case TypeReference:
		return Record{}
	default:
		return nil
	}
}

// Value is a decoded field value. The set of implementations is closed.
type Value interface {
	isValue()
}

type (
	// Bytes is the value of a TypeRaw field
	Bytes []byte
	// String is the value of a TypeASCII or TypeUTF8 field
	String string
	Uint16 uint16
	Uint32 uint32
	Uint64 uint64
	Int16  int16
	Int32  int32
	Int64  int64
	// Address is the encode-side value of a TypeMemoryAddress field
	Address struct {
		Start uint64
	}
	// Record maps field names to values for one layout
	Record map[string]Value
)

func (Bytes) isValue()   {}
func (String) isValue()  {}
func (Uint16) isValue()  {}
func (Uint32) isValue()  {}
func (Uint64) isValue()  {}
func (Int16) isValue()   {}
func (Int32) isValue()   {}
func (Int64) isValue()   {}
func (Address) isValue() {}
func (Record) isValue()  {}
