package cmd

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ssargent/sfoedit/pkg/config"
	"github.com/ssargent/sfoedit/pkg/di"
)

func newTestContainer(t *testing.T) *di.Container {
	t.Helper()
	c := di.NewContainer()
	cfg := config.DefaultConfig()
	cfg.Backup.Dir = filepath.Join(t.TempDir(), "backups")
	require.NoError(t, c.Configure(cfg))
	c.Logger().SetOutput(io.Discard)
	return c
}

type fixtureEntry struct {
	key       string
	format    uint16
	length    uint32
	maxLength uint32
	data      []byte
}

// fixtureEntries is deliberately not in key order and includes one entry
// with an unknown format
func fixtureEntries() []fixtureEntry {
	account := make([]byte, 8)
	binary.LittleEndian.PutUint64(account, 0x0102030405060708)
	return []fixtureEntry{
		{key: "TITLE_ID", format: 0x0204, length: 10, maxLength: 16, data: append([]byte("CUSA00001"), 0)},
		{key: "PARENTAL_LEVEL", format: 0x0404, length: 4, maxLength: 4, data: []byte{5, 0, 0, 0}},
		{key: "XDATA", format: 0x0104, length: 4, maxLength: 4, data: []byte{0xde, 0xad, 0xbe, 0xef}},
		{key: "ACCOUNT_ID", format: 0x0004, length: 8, maxLength: 8, data: account},
		{key: "PARAMS", format: 0x0004, length: 4, maxLength: 4, data: []byte{1, 2, 3, 4}},
	}
}

func buildFixture(entries []fixtureEntry) []byte {
	keySize, dataSize := 0, 0
	for _, e := range entries {
		keySize += len(e.key) + 1
		dataSize += int(e.maxLength)
	}
	keySize = (keySize + 3) &^ 3

	keyTable := 0x14 + 0x10*len(entries)
	dataTable := keyTable + keySize
	buf := make([]byte, dataTable+dataSize)
	copy(buf, []byte{0x00, 'P', 'S', 'F', 0x01, 0x01, 0x00, 0x00})
	binary.LittleEndian.PutUint32(buf[8:], uint32(keyTable))
	binary.LittleEndian.PutUint32(buf[12:], uint32(dataTable))
	binary.LittleEndian.PutUint32(buf[16:], uint32(len(entries)))

	keyOff, dataOff := 0, 0
	for i, e := range entries {
		row := buf[0x14+i*0x10:]
		binary.LittleEndian.PutUint16(row[0:], uint16(keyOff))
		binary.LittleEndian.PutUint16(row[2:], e.format)
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

// writeFixture writes the fixture SFO into a fresh directory and returns its path
func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "param.sfo")
	require.NoError(t, os.WriteFile(path, buildFixture(fixtureEntries()), 0644))
	return path
}

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}
