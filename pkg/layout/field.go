package layout

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// ReadField decodes a single field from buf[start:end]. String fields stop at
// the first zero byte and tolerate an end past the buffer; every other type
// requires its bytes to be present. A field of an unknown type decodes to a
// nil Value without error.
func (r *Registry) ReadField(f Field, buf []byte, start, end int) (Value, error) {
	var ref *Layout
	if f.Type == TypeReference {
		l, ok := r.layouts[f.Ref]
		if !ok {
			return nil, errors.Wrapf(ErrLayoutNotFound, "field %q references %q", f.Name, f.Ref)
		}
		ref = l
		end = start + l.size
	}
	return readValue(f.Type, ref, buf, start, end)
}

// WriteField encodes v as field f into buf at start
func (r *Registry) WriteField(f Field, v Value, buf []byte, start int) error {
	if !f.Type.Valid() {
		return errors.Wrapf(ErrUnsupportedFieldType, "field %q: %s", f.Name, f.Type)
	}
	size := f.Type.width()
	if size == 0 {
		size = f.Size
	}
	var ref *Layout
	if f.Type == TypeReference {
		l, ok := r.layouts[f.Ref]
		if !ok {
			return errors.Wrapf(ErrLayoutNotFound, "field %q references %q", f.Name, f.Ref)
		}
		ref = l
		size = l.size
	}
	if v == nil {
		v = f.Type.zero()
	}
	return writeValue(f.Type, size, ref, v, buf, start)
}

func readValue(typ FieldType, ref *Layout, buf []byte, start, end int) (Value, error) {
	if !typ.Valid() {
		return nil, nil
	}
	if start < 0 || start > len(buf) || end < start {
		return nil, errors.Wrapf(ErrBufferTooShort, "range [%d,%d) outside buffer of %d bytes", start, end, len(buf))
	}

	if w := typ.width(); w > 0 {
		if start+w > len(buf) {
			return nil, errors.Wrapf(ErrBufferTooShort, "%s at offset %d needs %d bytes, have %d", typ, start, w, len(buf)-start)
		}
	} else if typ != TypeASCII && typ != TypeUTF8 && end > len(buf) {
		return nil, errors.Wrapf(ErrBufferTooShort, "%s range [%d,%d) outside buffer of %d bytes", typ, start, end, len(buf))
	}

	switch typ {
	case TypeRaw:
		out := make([]byte, end-start)
		copy(out, buf[start:end])
		return Bytes(out), nil
	case TypeASCII:
		s := terminated(buf, start, end)
		out := make([]byte, len(s))
		for i, c := range s {
			out[i] = c & 0x7f
		}
		return String(out), nil
	case TypeUTF8:
		return String(terminated(buf, start, end)), nil
	case TypeUint16:
		return Uint16(binary.LittleEndian.Uint16(buf[start:])), nil
	case TypeUint32:
		return Uint32(binary.LittleEndian.Uint32(buf[start:])), nil
	case TypeUint64, TypeMemoryAddress:
		return Uint64(binary.LittleEndian.Uint64(buf[start:])), nil
	case TypeInt16:
		return Int16(binary.LittleEndian.Uint16(buf[start:])), nil
	case TypeInt32:
		return Int32(binary.LittleEndian.Uint32(buf[start:])), nil
	case TypeInt64:
		return Int64(binary.LittleEndian.Uint64(buf[start:])), nil
	case TypeReference:
		return ref.Decode(buf[start:end], 0)
	}
	return nil, nil
}

// terminated returns buf[start:end] cut at the first zero byte, with end
// clamped to the buffer length
func terminated(buf []byte, start, end int) []byte {
	if end > len(buf) {
		end = len(buf)
	}
	s := buf[start:end]
	if i := bytes.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return s
}

func writeValue(typ FieldType, size int, ref *Layout, v Value, buf []byte, start int) error {
	if start < 0 || start+size > len(buf) {
		return errors.Wrapf(ErrBufferTooShort, "%s at offset %d needs %d bytes, have %d", typ, start, size, len(buf)-start)
	}
	dst := buf[start : start+size]

	switch typ {
	case TypeRaw:
		b, ok := v.(Bytes)
		if !ok {
			return mismatch(typ, v)
		}
		copy(dst, b)
	case TypeASCII, TypeUTF8:
		s, ok := v.(String)
		if !ok {
			return mismatch(typ, v)
		}
		copy(dst, s)
	case TypeUint16:
		n, ok := v.(Uint16)
		if !ok {
			return mismatch(typ, v)
		}
		binary.LittleEndian.PutUint16(dst, uint16(n))
	case TypeUint32:
		n, ok := v.(Uint32)
		if !ok {
			return mismatch(typ, v)
		}
		binary.LittleEndian.PutUint32(dst, uint32(n))
	case TypeUint64:
		n, ok := v.(Uint64)
		if !ok {
			return mismatch(typ, v)
		}
		binary.LittleEndian.PutUint64(dst, uint64(n))
	case TypeInt16:
		n, ok := v.(Int16)
		if !ok {
			return mismatch(typ, v)
		}
		binary.LittleEndian.PutUint16(dst, uint16(n))
	case TypeInt32:
		n, ok := v.(Int32)
		if !ok {
			return mismatch(typ, v)
		}
		binary.LittleEndian.PutUint32(dst, uint32(n))
	case TypeInt64:
		n, ok := v.(Int64)
		if !ok {
			return mismatch(typ, v)
		}
		binary.LittleEndian.PutUint64(dst, uint64(n))
	case TypeMemoryAddress:
		switch a := v.(type) {
		case Address:
			binary.LittleEndian.PutUint64(dst, a.Start)
		case Uint64:
			binary.LittleEndian.PutUint64(dst, uint64(a))
		default:
			return mismatch(typ, v)
		}
	case TypeReference:
		rec, ok := v.(Record)
		if !ok {
			return mismatch(typ, v)
		}
		if rec == nil {
			rec = Record{}
		}
		encoded, err := ref.Encode(rec, nil, 0)
		if err != nil {
			return err
		}
		copy(dst, encoded)
	default:
		return errors.Wrapf(ErrUnsupportedFieldType, "cannot encode %s", typ)
	}
	return nil
}

func mismatch(typ FieldType, v Value) error {
	return errors.Wrapf(ErrValueType, "%s field given %T", typ, v)
}
