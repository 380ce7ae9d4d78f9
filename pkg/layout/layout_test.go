package layout

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func headerFields() []Field {
	return []Field{
		{Name: "magic", Type: TypeRaw, Size: 4},
		{Name: "version", Type: TypeRaw, Size: 4},
		{Name: "keyTableOffset", Type: TypeInt32},
		{Name: "dataTableOffset", Type: TypeInt32},
		{Name: "entryCount", Type: TypeInt32},
	}
}

func TestRegistry_CreateComputesSizes(t *testing.T) {
	reg := NewRegistry()

	testCases := []struct {
		name    string
		fields  []Field
		minSize int
		want    int
	}{
		{
			name:   "packed header",
			fields: headerFields(),
			want:   20,
		},
		{
			name: "index entry",
			fields: []Field{
				{Name: "keyOffset", Type: TypeUint16},
				{Name: "paramFormat", Type: TypeUint16},
				{Name: "paramLength", Type: TypeUint32},
				{Name: "paramMaxLength", Type: TypeUint32},
				{Name: "dataOffset", Type: TypeUint32},
			},
			want: 16,
		},
		{
			name:    "minimum size wins",
			fields:  []Field{{Name: "a", Type: TypeUint32}},
			minSize: 32,
			want:    32,
		},
		{
			name: "explicit offset continues packing",
			fields: []Field{
				{Name: "a", Type: TypeUint16},
				{Name: "b", Type: TypeUint32, Offset: At(8)},
				{Name: "c", Type: TypeUint64},
			},
			want: 20,
		},
		{
			name: "size of fixed types ignores declared size",
			fields: []Field{
				{Name: "a", Type: TypeUint64, Size: 2},
			},
			want: 8,
		},
		{
			name: "empty layout",
			want: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l, err := reg.Create(tc.name, tc.fields, tc.minSize)
			require.NoError(t, err)
			assert.Equal(t, tc.want, l.Size())
			assert.Equal(t, tc.name, l.Name())
		})
	}
}

func TestRegistry_CreateIsIdempotent(t *testing.T) {
	reg := NewRegistry()

	first, err := reg.Create("Header", headerFields(), 0)
	require.NoError(t, err)

	second, err := reg.Create("Header", []Field{{Name: "other", Type: TypeUint16}}, 0)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 20, second.Size())
	assert.Equal(t, []string{"magic", "version", "keyTableOffset", "dataTableOffset", "entryCount"}, second.Fields())

	got, ok := reg.Get("Header")
	assert.True(t, ok)
	assert.Same(t, first, got)
}

func TestRegistry_CreateErrors(t *testing.T) {
	t.Run("unresolved reference", func(t *testing.T) {
		reg := NewRegistry()
		_, err := reg.Create("Outer", []Field{{Name: "inner", Type: TypeReference, Ref: "Inner"}}, 0)
		assert.True(t, errors.Is(err, ErrLayoutNotFound))

		_, ok := reg.Get("Outer")
		assert.False(t, ok, "failed layout must not be registered")
	})

	t.Run("duplicate field", func(t *testing.T) {
		reg := NewRegistry()
		_, err := reg.Create("Dup", []Field{
			{Name: "a", Type: TypeUint16},
			{Name: "a", Type: TypeUint32},
		}, 0)
		assert.True(t, errors.Is(err, ErrInvalidField))
	})

	t.Run("unknown type", func(t *testing.T) {
		reg := NewRegistry()
		_, err := reg.Create("Bad", []Field{{Name: "a", Type: FieldType(99)}}, 0)
		assert.True(t, errors.Is(err, ErrUnsupportedFieldType))
	})

	t.Run("negative offset", func(t *testing.T) {
		reg := NewRegistry()
		_, err := reg.Create("Neg", []Field{{Name: "a", Type: TypeUint16, Offset: At(-1)}}, 0)
		assert.True(t, errors.Is(err, ErrInvalidField))
	})
}

func TestLayout_Offset(t *testing.T) {
	reg := NewRegistry()
	l, err := reg.Create("Offsets", []Field{
		{Name: "a", Type: TypeUint16},
		{Name: "b", Type: TypeUint32, Offset: At(8)},
		{Name: "c", Type: TypeUint64},
	}, 0)
	require.NoError(t, err)

	for name, want := range map[string]int{"a": 0, "b": 8, "c": 12} {
		got, ok := l.Offset(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	_, ok := l.Offset("missing")
	assert.False(t, ok)
}

func TestLayout_EncodeDecodeRoundTrip(t *testing.T) {
	reg := NewRegistry()
	l, err := reg.Create("Everything", []Field{
		{Name: "raw", Type: TypeRaw, Size: 3},
		{Name: "ascii", Type: TypeASCII, Size: 6},
		{Name: "utf8", Type: TypeUTF8, Size: 8},
		{Name: "u16", Type: TypeUint16},
		{Name: "u32", Type: TypeUint32},
		{Name: "u64", Type: TypeUint64},
		{Name: "i16", Type: TypeInt16},
		{Name: "i32", Type: TypeInt32},
		{Name: "i64", Type: TypeInt64},
		{Name: "addr", Type: TypeMemoryAddress},
	}, 0)
	require.NoError(t, err)

	rec := Record{
		"raw":   Bytes{1, 2, 3},
		"ascii": String("hello"),
		"utf8":  String("héllo"),
		"u16":   Uint16(0xBEEF),
		"u32":   Uint32(0xDEADBEEF),
		"u64":   Uint64(1<<64 - 1),
		"i16":   Int16(-2),
		"i32":   Int32(-3),
		"i64":   Int64(-1 << 63),
		"addr":  Address{Start: 0x8000_0000_0000_0010},
	}

	buf, err := l.Encode(rec, nil, 0)
	require.NoError(t, err)
	require.Len(t, buf, l.Size())

	got, err := l.Decode(buf, 0)
	require.NoError(t, err)

	assert.Equal(t, Bytes{1, 2, 3}, got["raw"])
	assert.Equal(t, String("hello"), got["ascii"])
	assert.Equal(t, String("héllo"), got["utf8"])
	assert.Equal(t, Uint16(0xBEEF), got["u16"])
	assert.Equal(t, Uint32(0xDEADBEEF), got["u32"])
	assert.Equal(t, Uint64(1<<64-1), got["u64"])
	assert.Equal(t, Int16(-2), got["i16"])
	assert.Equal(t, Int32(-3), got["i32"])
	assert.Equal(t, Int64(-1<<63), got["i64"])
	// memory addresses decode to a plain integer
	assert.Equal(t, Uint64(0x8000_0000_0000_0010), got["addr"])

	again, err := l.Encode(got, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, buf, again)
}

func TestLayout_EncodeLittleEndianBytes(t *testing.T) {
	reg := NewRegistry()
	l, err := reg.Create("Header", headerFields(), 0)
	require.NoError(t, err)

	buf, err := l.Encode(Record{
		"magic":           Bytes{0x00, 'P', 'S', 'F'},
		"version":         Bytes{0x01, 0x01, 0x00, 0x00},
		"keyTableOffset":  Int32(0x24),
		"dataTableOffset": Int32(0x30),
		"entryCount":      Int32(1),
	}, nil, 0)
	require.NoError(t, err)

	assert.Equal(t, []byte{
		0x00, 'P', 'S', 'F',
		0x01, 0x01, 0x00, 0x00,
		0x24, 0x00, 0x00, 0x00,
		0x30, 0x00, 0x00, 0x00,
		0x01, 0x00, 0x00, 0x00,
	}, buf)
}

func TestLayout_EncodeDefaults(t *testing.T) {
	reg := NewRegistry()
	l, err := reg.Create("Defaults", []Field{
		{Name: "tag", Type: TypeUint16, Default: Uint16(7)},
		{Name: "count", Type: TypeUint32},
		{Name: "name", Type: TypeUTF8, Size: 4, Default: String("abc")},
	}, 0)
	require.NoError(t, err)

	buf, err := l.Encode(Record{"count": Uint32(2)}, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 0, 2, 0, 0, 0, 'a', 'b', 'c', 0}, buf)
}

func TestLayout_EncodeIntoExistingBuffer(t *testing.T) {
	reg := NewRegistry()
	l, err := reg.Create("Pair", []Field{
		{Name: "a", Type: TypeUint16},
		{Name: "b", Type: TypeUint16},
	}, 0)
	require.NoError(t, err)

	dst := make([]byte, 8)
	out, err := l.Encode(Record{"a": Uint16(1), "b": Uint16(2)}, dst, 4)
	require.NoError(t, err)

	assert.Equal(t, []byte{0, 0, 0, 0, 1, 0, 2, 0}, dst)
	assert.Equal(t, dst, out)

	_, err = l.Encode(Record{}, dst, 6)
	assert.True(t, errors.Is(err, ErrBufferTooShort))
}

func TestLayout_DecodeAtOffset(t *testing.T) {
	reg := NewRegistry()
	l, err := reg.Create("Pair", []Field{
		{Name: "a", Type: TypeUint16},
		{Name: "b", Type: TypeUint16, Offset: At(2)},
	}, 0)
	require.NoError(t, err)

	rec, err := l.Decode([]byte{0xFF, 0xFF, 1, 0, 2, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, Uint16(1), rec["a"])
	assert.Equal(t, Uint16(2), rec["b"])
}

func TestLayout_DecodeBufferTooShort(t *testing.T) {
	reg := NewRegistry()
	l, err := reg.Create("Header", headerFields(), 0)
	require.NoError(t, err)

	_, err = l.Decode(make([]byte, 19), 0)
	assert.True(t, errors.Is(err, ErrBufferTooShort))

	_, err = l.Decode(make([]byte, 24), 5)
	assert.True(t, errors.Is(err, ErrBufferTooShort))

	_, err = l.Decode(make([]byte, 24), 4)
	assert.NoError(t, err)
}

func TestLayout_StringTermination(t *testing.T) {
	reg := NewRegistry()
	l, err := reg.Create("Str", []Field{
		{Name: "s", Type: TypeUTF8, Size: 8},
		{Name: "tail", Type: TypeUint16},
	}, 0)
	require.NoError(t, err)

	t.Run("stops at terminator", func(t *testing.T) {
		buf := []byte{'a', 'b', 0, 'z', 'z', 0, 0, 0, 9, 0}
		rec, err := l.Decode(buf, 0)
		require.NoError(t, err)
		assert.Equal(t, String("ab"), rec["s"])
		assert.Equal(t, Uint16(9), rec["tail"])
	})

	t.Run("stops at field end without terminator", func(t *testing.T) {
		buf := []byte{'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h', 0, 0}
		rec, err := l.Decode(buf, 0)
		require.NoError(t, err)
		assert.Equal(t, String("abcdefgh"), rec["s"])
	})

	t.Run("encode truncates to width", func(t *testing.T) {
		buf, err := l.Encode(Record{"s": String("0123456789")}, nil, 0)
		require.NoError(t, err)
		assert.Equal(t, []byte("01234567"), buf[:8])
		assert.Equal(t, []byte{0, 0}, buf[8:])
	})
}

func TestLayout_Reference(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Create("Range", []Field{
		{Name: "start", Type: TypeMemoryAddress},
		{Name: "length", Type: TypeUint32},
	}, 0)
	require.NoError(t, err)

	outer, err := reg.Create("Segment", []Field{
		{Name: "id", Type: TypeUint16},
		{Name: "range", Type: TypeReference, Ref: "Range"},
		{Name: "flags", Type: TypeUint16},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2+12+2, outer.Size())

	buf, err := outer.Encode(Record{
		"id":    Uint16(3),
		"range": Record{"start": Address{Start: 0x1000}, "length": Uint32(64)},
		"flags": Uint16(1),
	}, nil, 0)
	require.NoError(t, err)

	rec, err := outer.Decode(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, Uint16(3), rec["id"])
	assert.Equal(t, Record{"start": Uint64(0x1000), "length": Uint32(64)}, rec["range"])
	assert.Equal(t, Uint16(1), rec["flags"])

	t.Run("missing nested record encodes zeros", func(t *testing.T) {
		buf, err := outer.Encode(Record{"id": Uint16(1)}, nil, 0)
		require.NoError(t, err)
		assert.Equal(t, make([]byte, 12), buf[2:14])
	})
}

func TestLayout_EncodeValueMismatch(t *testing.T) {
	reg := NewRegistry()
	l, err := reg.Create("Typed", []Field{{Name: "n", Type: TypeUint32}}, 0)
	require.NoError(t, err)

	_, err = l.Encode(Record{"n": String("7")}, nil, 0)
	assert.True(t, errors.Is(err, ErrValueType))
}
