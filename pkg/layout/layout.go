package layout

import (
	"github.com/pkg/errors"
)

// Errors
var (
	ErrBufferTooShort       = errors.New("buffer too short")
	ErrLayoutNotFound       = errors.New("layout not found")
	ErrUnsupportedFieldType = errors.New("unsupported field type")
	ErrValueType            = errors.New("value does not match field type")
	ErrInvalidField         = errors.New("invalid field")
)

// Field describes one named field of a layout
type Field struct {
	Name    string    // Unique within the layout
	Type    FieldType // Wire type
	Size    int       // Width in bytes for raw and string fields; ignored for fixed-width types
	Offset  *int      // Explicit offset from the record start, nil to pack after the previous field
	Default Value     // Used when a dataset omits the field; nil means the type's zero value
	Ref     string    // Referenced layout name for TypeReference fields
}

// At returns a pointer to off for use as Field.Offset
func At(off int) *int {
	return &off
}

// fieldSpec is a Field with its size, offset and reference resolved
type fieldSpec struct {
	name     string
	typ      FieldType
	size     int
	offset   int
	explicit bool
	dv       Value
	ref      *Layout
}

// Layout is an immutable record definition
type Layout struct {
	name   string
	fields []fieldSpec
	size   int
}

// Name returns the registered name of the layout
func (l *Layout) Name() string {
	return l.name
}

// Size returns the total record size in bytes
func (l *Layout) Size() int {
	return l.size
}

// Fields returns the field names in declaration order
func (l *Layout) Fields() []string {
	names := make([]string, len(l.fields))
	for i, f := range l.fields {
		names[i] = f.name
	}
	return names
}

// Offset returns the byte offset of the named field within a record
func (l *Layout) Offset(name string) (int, bool) {
	cursor := 0
	for _, f := range l.fields {
		if f.explicit {
			cursor = f.offset
		}
		if f.name == name {
			return cursor, true
		}
		cursor += f.size
	}
	return 0, false
}

// Registry holds layouts by name
type Registry struct {
	layouts map[string]*Layout
}

// NewRegistry creates an empty layout registry
func NewRegistry() *Registry {
	return &Registry{
		layouts: make(map[string]*Layout),
	}
}

// Get returns the layout registered under name
func (r *Registry) Get(name string) (*Layout, bool) {
	l, ok := r.layouts[name]
	return l, ok
}

// Create builds and registers a layout. If name is already registered the
// existing layout is returned and fields are ignored. The layout size is the
// larger of minSize and the end of its last byte.
func (r *Registry) Create(name string, fields []Field, minSize int) (*Layout, error) {
	if existing, ok := r.layouts[name]; ok {
		return existing, nil
	}

	l := &Layout{
		name:   name,
		fields: make([]fieldSpec, 0, len(fields)),
	}

	seen := make(map[string]struct{}, len(fields))
	cursor, end := 0, 0
	for _, f := range fields {
		if _, dup := seen[f.Name]; dup {
			return nil, errors.Wrapf(ErrInvalidField, "layout %s: duplicate field %q", name, f.Name)
		}
		seen[f.Name] = struct{}{}

		spec, err := r.resolve(f)
		if err != nil {
			return nil, errors.Wrapf(err, "layout %s", name)
		}

		if f.Offset != nil {
			if *f.Offset < 0 {
				return nil, errors.Wrapf(ErrInvalidField, "layout %s: field %q has negative offset", name, f.Name)
			}
			cursor = *f.Offset
			spec.offset = cursor
			spec.explicit = true
		}
		cursor += spec.size
		if cursor > end {
			end = cursor
		}
		l.fields = append(l.fields, spec)
	}

	l.size = end
	if minSize > l.size {
		l.size = minSize
	}

	r.layouts[name] = l
	return l, nil
}

// resolve converts a declared field into a fieldSpec, looking up references
func (r *Registry) resolve(f Field) (fieldSpec, error) {
	if !f.Type.Valid() {
		return fieldSpec{}, errors.Wrapf(ErrUnsupportedFieldType, "field %q: %s", f.Name, f.Type)
	}

	spec := fieldSpec{
		name: f.Name,
		typ:  f.Type,
		size: f.Type.width(),
		dv:   f.Default,
	}
	if spec.size == 0 {
		spec.size = f.Size
	}
	if spec.size < 0 {
		return fieldSpec{}, errors.Wrapf(ErrInvalidField, "field %q has negative size", f.Name)
	}

	if f.Type == TypeReference {
		ref, ok := r.layouts[f.Ref]
		if !ok {
			return fieldSpec{}, errors.Wrapf(ErrLayoutNotFound, "field %q references %q", f.Name, f.Ref)
		}
		spec.ref = ref
		spec.size = ref.size
	}

	if spec.dv == nil {
		spec.dv = f.Type.zero()
	}
	return spec, nil
}

// Decode reads a record starting at start. It fails if fewer than Size bytes
// are available from start.
func (l *Layout) Decode(buf []byte, start int) (Record, error) {
	if start < 0 || len(buf)-start < l.size {
		return nil, errors.Wrapf(ErrBufferTooShort, "layout %s needs %d bytes at offset %d, have %d",
			l.name, l.size, start, len(buf)-start)
	}

	rec := make(Record, len(l.fields))
	cursor := 0
	for _, f := range l.fields {
		if f.explicit {
			cursor = f.offset
		}
		pos := start + cursor
		v, err := readValue(f.typ, f.ref, buf, pos, pos+f.size)
		if err != nil {
			return nil, errors.Wrapf(err, "layout %s: field %s", l.name, f.name)
		}
		rec[f.name] = v
		cursor += f.size
	}
	return rec, nil
}

// Encode writes rec into dst at start and returns dst. When dst is nil a
// zero-filled buffer of Size bytes is allocated and start must be 0. Fields
// missing from rec are written with their default value.
func (l *Layout) Encode(rec Record, dst []byte, start int) ([]byte, error) {
	if dst == nil {
		dst = make([]byte, l.size)
	}
	if start < 0 || len(dst)-start < l.size {
		return nil, errors.Wrapf(ErrBufferTooShort, "layout %s needs %d bytes at offset %d, have %d",
			l.name, l.size, start, len(dst)-start)
	}

	cursor := 0
	for _, f := range l.fields {
		if f.explicit {
			cursor = f.offset
		}
		v, ok := rec[f.name]
		if !ok || v == nil {
			v = f.dv
		}
		if err := writeValue(f.typ, f.size, f.ref, v, dst, start+cursor); err != nil {
			return nil, errors.Wrapf(err, "layout %s: field %s", l.name, f.name)
		}
		cursor += f.size
	}
	return dst, nil
}
