// Package layout provides a typed binary layout engine for fixed-size records.
//
// A Layout is an ordered list of named fields. Each field has a type, a byte
// width and an optional explicit offset. Layouts are built once through a
// Registry and can then decode records out of a byte buffer or encode records
// back into one.
//
// # Field Packing
//
// Fields without an explicit offset are packed one after another in
// declaration order. A field that declares an offset moves the cursor: the
// next implicit field starts where the explicit one ends.
//
//	reg := layout.NewRegistry()
//	hdr, err := reg.Create("Header", []layout.Field{
//	    {Name: "magic", Type: layout.TypeRaw, Size: 4},
//	    {Name: "count", Type: layout.TypeInt32},
//	    {Name: "flags", Type: layout.TypeUint16, Offset: layout.At(12)},
//	}, 16)
//
// Explicit offsets are relative to the start of the record, not to the start
// of the buffer.
//
// # Field Types
//
// All integers are little-endian. The supported types are:
//   - TypeRaw: an opaque byte slice of Size bytes
//   - TypeASCII, TypeUTF8: zero-terminated strings padded to Size bytes
//   - TypeUint16 ... TypeInt64: fixed-width integers
//   - TypeMemoryAddress: 8 bytes, same wire form as TypeUint64
//   - TypeReference: a nested record described by another registered layout
//
// A reference field resolves its target when the layout is created, so a
// layout must be registered after every layout it references.
//
// # Values
//
// Decoded data is returned as a Record, a map from field name to Value. Value
// is a closed set of variants (Bytes, String, Uint16 ... Int64, Address and
// Record). Decoding a memory address yields a Uint64; encoding one accepts
// either an Address, whose Start field is written, or a Uint64.
//
// # Thread Safety
//
// A Registry is not safe for concurrent registration. Layouts are immutable
// once created and may be shared between goroutines.
package layout
