package sfo

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ssargent/sfoedit/pkg/layout"
)

// Entry is one key/value pair together with its index table row
type Entry struct {
	Key   string
	Type  ValueType
	Value layout.Value
	Index IndexEntry
}

// Document is an editable, in-memory SFO file
type Document struct {
	registry    *layout.Registry
	headerShape *layout.Layout
	indexShape  *layout.Layout
	log         *logrus.Entry
	st          *state
}

// state is everything Load produces. It is replaced as a whole so a failed
// load leaves the previous document untouched.
type state struct {
	header  Header
	index   []IndexEntry
	values  map[string]layout.Value
	indexOf map[string]int
}

// Option configures a Document
type Option func(*Document)

// WithLogger sets the logger used for debug output
func WithLogger(log *logrus.Entry) Option {
	return func(d *Document) {
		d.log = log
	}
}

// WithRegistry makes the document register its layouts in reg instead of a
// private registry
func WithRegistry(reg *layout.Registry) Option {
	return func(d *Document) {
		d.registry = reg
	}
}

// NewDocument creates an empty document
func NewDocument(opts ...Option) (*Document, error) {
	d := &Document{}
	for _, opt := range opts {
		opt(d)
	}
	if d.registry == nil {
		d.registry = layout.NewRegistry()
	}
	if d.log == nil {
		d.log = logrus.NewEntry(logrus.StandardLogger())
	}

	hdr, idx, err := registerLayouts(d.registry)
	if err != nil {
		return nil, err
	}
	d.headerShape = hdr
	d.indexShape = idx
	return d, nil
}

// Load decodes buf and replaces the document contents. On error the
// document keeps its previous contents.
func (d *Document) Load(buf []byte) error {
	st, err := d.decode(buf)
	if err != nil {
		return err
	}
	d.st = st

	d.log.WithFields(logrus.Fields{
		"entries": len(st.index),
		"bytes":   len(buf),
	}).Debug("loaded sfo")
	return nil
}

func (d *Document) decode(buf []byte) (*state, error) {
	rec, err := d.headerShape.Decode(buf, 0)
	if err != nil {
		return nil, errors.Wrap(err, "decode header")
	}
	hdr, err := headerFromRecord(rec)
	if err != nil {
		return nil, err
	}
	if hdr.EntryCount < 0 || hdr.KeyTableOffset < 0 || hdr.DataTableOffset < 0 {
		return nil, errors.Wrapf(ErrMalformed, "negative header field (entries %d, key table %d, data table %d)",
			hdr.EntryCount, hdr.KeyTableOffset, hdr.DataTableOffset)
	}

	count := int(hdr.EntryCount)
	indexStart := d.headerShape.Size()
	rowSize := d.indexShape.Size()
	if count > (len(buf)-indexStart)/rowSize {
		return nil, errors.Wrapf(ErrMalformed, "index table of %d entries does not fit in %d bytes", count, len(buf))
	}

	st := &state{
		header:  hdr,
		index:   make([]IndexEntry, 0, count),
		values:  make(map[string]layout.Value, count),
		indexOf: make(map[string]int, count),
	}

	for i := 0; i < count; i++ {
		rec, err := d.indexShape.Decode(buf, indexStart+i*rowSize)
		if err != nil {
			return nil, errors.Wrapf(err, "decode index entry %d", i)
		}
		entry, err := indexEntryFromRecord(rec)
		if err != nil {
			return nil, err
		}

		keyStart := int(hdr.KeyTableOffset) + int(entry.KeyOffset)
		kv, err := d.registry.ReadField(layout.Field{Name: "key", Type: layout.TypeUTF8}, buf, keyStart, math.MaxInt)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformed, "key of entry %d at offset %d: %v", i, keyStart, err)
		}
		key := string(kv.(layout.String))
		if _, dup := st.indexOf[key]; dup {
			return nil, errors.Wrapf(ErrMalformed, "duplicate key %q", key)
		}

		value, err := d.decodeValue(key, entry, buf, int(hdr.DataTableOffset)+int(entry.DataOffset))
		if err != nil {
			return nil, err
		}

		st.index = append(st.index, entry)
		st.indexOf[key] = i
		st.values[key] = value
	}
	return st, nil
}

func (d *Document) decodeValue(key string, e IndexEntry, buf []byte, off int) (layout.Value, error) {
	t := ValueTypeOf(key, e.ParamFormat)
	if need := minValueSize(t); e.ParamMaxLength < need {
		return nil, errors.Wrapf(ErrMalformed, "[%s] %s value needs %d bytes, max length is %d", key, t, need, e.ParamMaxLength)
	}
	if off+int(e.ParamMaxLength) > len(buf) {
		return nil, errors.Wrapf(ErrMalformed, "[%s] value at offset %d overruns buffer of %d bytes", key, off, len(buf))
	}

	end := off + int(e.ParamMaxLength)
	if t == TypeRaw {
		if e.ParamLength > e.ParamMaxLength {
			return nil, errors.Wrapf(ErrMalformed, "[%s] length %d exceeds max length %d", key, e.ParamLength, e.ParamMaxLength)
		}
		end = off + int(e.ParamLength)
	}

	v, err := d.registry.ReadField(valueField(key, t, 0), buf, off, end)
	if err != nil {
		return nil, errors.Wrapf(err, "[%s] decode value", key)
	}
	return v, nil
}

// Export lays the document out from scratch: keys sorted, key table padded
// to four bytes, each value given its max length in the data table. The
// header and index offsets held by the document are updated to match.
func (d *Document) Export() ([]byte, error) {
	if d.st == nil {
		return nil, ErrNotLoaded
	}
	st := d.st
	keys := d.Keys()

	indexStart := d.headerShape.Size()
	rowSize := d.indexShape.Size()
	keyTable := indexStart + rowSize*len(st.index)

	keySize := 0
	for _, key := range keys {
		keySize += len(key) + 1
	}
	keySize = alignUp(keySize, tableAlignment)
	dataTable := keyTable + keySize

	dataSize := 0
	for _, e := range st.index {
		dataSize += int(e.ParamMaxLength)
	}
	total := dataTable + dataSize
	if total > math.MaxInt32 {
		return nil, errors.Errorf("sfo of %d bytes exceeds int32 offsets", total)
	}

	buf := make([]byte, total)

	hdr := st.header
	hdr.KeyTableOffset = int32(keyTable)
	hdr.DataTableOffset = int32(dataTable)
	hdr.EntryCount = int32(len(st.index))
	if _, err := d.headerShape.Encode(hdr.record(), buf, 0); err != nil {
		return nil, errors.Wrap(err, "encode header")
	}

	index := make([]IndexEntry, len(st.index))
	copy(index, st.index)

	keyOff, dataOff := 0, 0
	for row, key := range keys {
		n := st.indexOf[key]
		e := index[n]
		if keyOff > math.MaxUint16 {
			return nil, errors.Errorf("[%s] key offset %d exceeds uint16", key, keyOff)
		}
		e.KeyOffset = uint16(keyOff)
		e.DataOffset = uint32(dataOff)
		index[n] = e

		if _, err := d.indexShape.Encode(e.record(), buf, indexStart+row*rowSize); err != nil {
			return nil, errors.Wrapf(err, "[%s] encode index entry", key)
		}

		keyField := layout.Field{Name: "key", Type: layout.TypeUTF8, Size: len(key) + 1}
		if err := d.registry.WriteField(keyField, layout.String(key), buf, keyTable+keyOff); err != nil {
			return nil, errors.Wrapf(err, "[%s] encode key", key)
		}

		if err := d.encodeValue(key, e, st.values[key], buf, dataTable+dataOff); err != nil {
			return nil, err
		}

		keyOff += len(key) + 1
		dataOff += int(e.ParamMaxLength)
	}

	st.header = hdr
	st.index = index

	d.log.WithFields(logrus.Fields{
		"entries": len(index),
		"bytes":   total,
	}).Debug("exported sfo")
	return buf, nil
}

func (d *Document) encodeValue(key string, e IndexEntry, v layout.Value, buf []byte, off int) error {
	t := ValueTypeOf(key, e.ParamFormat)
	size := int(e.ParamMaxLength)
	if b, ok := v.(layout.Bytes); ok && len(b) < size {
		size = len(b)
	}
	if err := d.registry.WriteField(valueField(key, t, size), v, buf, off); err != nil {
		return errors.Wrapf(err, "[%s] encode value", key)
	}
	return nil
}

// Header returns the header as last loaded or exported
func (d *Document) Header() Header {
	if d.st == nil {
		return Header{}
	}
	return d.st.header
}

// Len returns the number of entries
func (d *Document) Len() int {
	if d.st == nil {
		return 0
	}
	return len(d.st.index)
}

// Keys returns all keys in export order
func (d *Document) Keys() []string {
	if d.st == nil {
		return nil
	}
	keys := make([]string, 0, len(d.st.values))
	for key := range d.st.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the current value of key
func (d *Document) Get(key string) (layout.Value, bool) {
	if d.st == nil {
		return nil, false
	}
	v, ok := d.st.values[key]
	return v, ok
}

// TypeOf returns the value type of key
func (d *Document) TypeOf(key string) (ValueType, error) {
	e, err := d.lookup(key)
	if err != nil {
		return TypeOpaque, err
	}
	return ValueTypeOf(key, e.ParamFormat), nil
}

// Entries returns every entry in export order
func (d *Document) Entries() []Entry {
	keys := d.Keys()
	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		e := d.st.index[d.st.indexOf[key]]
		entries = append(entries, Entry{
			Key:   key,
			Type:  ValueTypeOf(key, e.ParamFormat),
			Value: d.st.values[key],
			Index: e,
		})
	}
	return entries
}

func (d *Document) lookup(key string) (IndexEntry, error) {
	if d.st != nil {
		if n, ok := d.st.indexOf[key]; ok {
			return d.st.index[n], nil
		}
	}
	return IndexEntry{}, &EntryError{Key: key, Err: ErrNoEntry}
}
