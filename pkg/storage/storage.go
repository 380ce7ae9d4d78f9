// Package storage keeps copies of SFO files before sfoedit overwrites them.
// Each copy is stored in a pebble database under its ksuid, so listing the
// store returns backups oldest first.
package storage

import (
	"os"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/sfoedit/pkg/layout"
)

var ErrBackupNotFound = errors.New("backup not found")

const recordLayout = "BackupRecord"

// Backup is one saved copy of a file
type Backup struct {
	ID   ksuid.KSUID
	Path string
	Data []byte
}

// Time returns when the backup was taken
func (b *Backup) Time() time.Time {
	return b.ID.Time()
}

type DefaultStorage struct {
	db    *pebble.DB
	shape *layout.Layout
}

// NewDefaultStorage opens, or creates, the backup database in dir
func NewDefaultStorage(dir string) (*DefaultStorage, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, errors.Wrap(err, "failed to create backup directory")
	}

	// Each value is a fixed header followed by the path and file bytes.
	shape, err := layout.NewRegistry().Create(recordLayout, []layout.Field{
		{Name: "pathLength", Type: layout.TypeUint16},
		{Name: "dataLength", Type: layout.TypeUint32},
	}, 0)
	if err != nil {
		return nil, err
	}

	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open backup store %s", dir)
	}
	return &DefaultStorage{db: db, shape: shape}, nil
}

// Create saves data read from path and returns the new backup id
func (s *DefaultStorage) Create(path string, data []byte) (*ksuid.KSUID, error) {
	value, err := s.encode(path, data)
	if err != nil {
		return nil, err
	}

	id := ksuid.New()
	if err := s.db.Set(id.Bytes(), value, pebble.Sync); err != nil {
		return nil, errors.Wrap(err, "failed to store backup")
	}
	return &id, nil
}

func (s *DefaultStorage) Read(id *ksuid.KSUID) (*Backup, error) {
	value, closer, err := s.db.Get(id.Bytes())
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, errors.Wrap(ErrBackupNotFound, id.String())
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read backup %s", id)
	}
	defer closer.Close()

	return s.decode(*id, value)
}

// List returns every backup ordered by creation time
func (s *DefaultStorage) List() ([]*Backup, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan backups")
	}
	defer iter.Close()

	var backups []*Backup
	for iter.First(); iter.Valid(); iter.Next() {
		id, err := ksuid.FromBytes(iter.Key())
		if err != nil {
			return nil, errors.Wrap(err, "invalid backup key")
		}
		b, err := s.decode(id, iter.Value())
		if err != nil {
			return nil, err
		}
		backups = append(backups, b)
	}
	return backups, iter.Error()
}

func (s *DefaultStorage) Delete(id *ksuid.KSUID) error {
	return s.db.Delete(id.Bytes(), pebble.Sync)
}

func (s *DefaultStorage) Close() error {
	return s.db.Close()
}

func (s *DefaultStorage) encode(path string, data []byte) ([]byte, error) {
	if len(path) > 0xffff {
		return nil, errors.Errorf("backup path of %d bytes is too long", len(path))
	}
	if uint64(len(data)) > 0xffffffff {
		return nil, errors.Errorf("backup of %d bytes is too large", len(data))
	}

	head := s.shape.Size()
	buf := make([]byte, head+len(path)+len(data))
	_, err := s.shape.Encode(layout.Record{
		"pathLength": layout.Uint16(len(path)),
		"dataLength": layout.Uint32(len(data)),
	}, buf, 0)
	if err != nil {
		return nil, err
	}
	copy(buf[head:], path)
	copy(buf[head+len(path):], data)
	return buf, nil
}

// decode copies out of value, which pebble only lends until the next call
func (s *DefaultStorage) decode(id ksuid.KSUID, value []byte) (*Backup, error) {
	rec, err := s.shape.Decode(value, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "corrupt backup %s", id)
	}

	head := s.shape.Size()
	pathLen := int(rec["pathLength"].(layout.Uint16))
	dataLen := int(rec["dataLength"].(layout.Uint32))
	if head+pathLen+dataLen != len(value) {
		return nil, errors.Errorf("corrupt backup %s: expected %d bytes, have %d",
			id, head+pathLen+dataLen, len(value))
	}

	data := make([]byte, dataLen)
	copy(data, value[head+pathLen:])
	return &Backup{
		ID:   id,
		Path: string(value[head : head+pathLen]),
		Data: data,
	}, nil
}
