package sfo

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// rawEntry describes one entry written by buildSFO
type rawEntry struct {
	key       string
	format    ParamFormat
	length    uint32
	maxLength uint32
	data      []byte
}

// buildSFO lays out entries in the given order, independent of Export
func buildSFO(t testing.TB, entries ...rawEntry) []byte {
	t.Helper()

	keySize := 0
	dataSize := 0
	for _, e := range entries {
		keySize += len(e.key) + 1
		dataSize += int(e.maxLength)
	}
	for keySize%4 != 0 {
		keySize++
	}

	keyTable := HeaderSize + IndexEntrySize*len(entries)
	dataTable := keyTable + keySize
	buf := make([]byte, dataTable+dataSize)

	copy(buf[0:4], []byte{0x00, 'P', 'S', 'F'})
	copy(buf[4:8], []byte{0x01, 0x01, 0x00, 0x00})
	binary.LittleEndian.PutUint32(buf[8:], uint32(keyTable))
	binary.LittleEndian.PutUint32(buf[12:], uint32(dataTable))
	binary.LittleEndian.PutUint32(buf[16:], uint32(len(entries)))

	keyOff, dataOff := 0, 0
	for i, e := range entries {
		require.LessOrEqual(t, len(e.data), int(e.maxLength), "entry %s data larger than max length", e.key)

		row := buf[HeaderSize+i*IndexEntrySize:]
		binary.LittleEndian.PutUint16(row[0:], uint16(keyOff))
		binary.LittleEndian.PutUint16(row[2:], uint16(e.format))
		binary.LittleEndian.PutUint32(row[4:], e.length)
		binary.LittleEndian.PutUint32(row[8:], e.maxLength)
		binary.LittleEndian.PutUint32(row[12:], uint32(dataOff))

		copy(buf[keyTable+keyOff:], e.key)
		copy(buf[dataTable+dataOff:], e.data)

		keyOff += len(e.key) + 1
		dataOff += int(e.maxLength)
	}
	return buf
}

func u32(n uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, n)
	return b
}

func u64(n uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, n)
	return b
}

func str(s string) []byte {
	return append([]byte(s), 0)
}

// sampleEntries is a small parameter set deliberately not in key order
func sampleEntries() []rawEntry {
	return []rawEntry{
		{key: "TITLE_ID", format: FormatUTF8, length: 10, maxLength: 16, data: str("CUSA00001")},
		{key: "PARENTAL_LEVEL", format: FormatUint32, length: 4, maxLength: 4, data: u32(5)},
		{key: "ACCOUNT_ID", format: FormatSpecial, length: 8, maxLength: 8, data: u64(0x1122334455667788)},
		{key: "SAVEDATA_BLOCKS", format: FormatSpecial, length: 8, maxLength: 8, data: u64(2048)},
		{key: "PARAMS", format: FormatSpecial, length: 6, maxLength: 6, data: []byte{1, 2, 3, 4, 5, 6}},
		{key: "MAINTITLE", format: FormatUTF8, length: 6, maxLength: 128, data: str("Hello")},
		{key: "ATTRIBUTE", format: FormatUint32, length: 4, maxLength: 4, data: u32(0)},
	}
}

func loadDoc(t *testing.T, buf []byte) *Document {
	t.Helper()
	doc, err := NewDocument()
	require.NoError(t, err)
	require.NoError(t, doc.Load(buf))
	return doc
}

// keysInIndexOrder resolves each exported index row to its key
func keysInIndexOrder(t *testing.T, buf []byte) []string {
	t.Helper()
	keyTable := int(binary.LittleEndian.Uint32(buf[8:]))
	count := int(binary.LittleEndian.Uint32(buf[16:]))

	keys := make([]string, 0, count)
	for i := 0; i < count; i++ {
		row := buf[HeaderSize+i*IndexEntrySize:]
		start := keyTable + int(binary.LittleEndian.Uint16(row[0:]))
		end := start
		for buf[end] != 0 {
			end++
		}
		keys = append(keys, string(buf[start:end]))
	}
	return keys
}

func values(doc *Document) map[string]interface{} {
	out := make(map[string]interface{}, doc.Len())
	for _, e := range doc.Entries() {
		out[e.Key] = Native(e.Value)
	}
	return out
}
