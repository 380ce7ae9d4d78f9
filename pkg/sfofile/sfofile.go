// Package sfofile moves SFO documents between disk and memory.
package sfofile

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/sfoedit/pkg/sfo"
)

// Backups saves the previous contents of a file before it is replaced
type Backups interface {
	Create(path string, data []byte) (*ksuid.KSUID, error)
}

// Read loads the SFO at path into a new document
func Read(path string, opts ...sfo.Option) (*sfo.Document, error) {
	doc, err := sfo.NewDocument(opts...)
	if err != nil {
		return nil, err
	}
	if err := Load(doc, path); err != nil {
		return nil, err
	}
	return doc, nil
}

// Load replaces the contents of doc with the SFO at path
func Load(doc *sfo.Document, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read sfo")
	}
	if err := doc.Load(data); err != nil {
		return errors.Wrapf(err, "failed to load %s", path)
	}
	return nil
}

// Write replaces path with data. The bytes go to a temporary file in the
// same directory which is synced and then renamed over path, so readers see
// either the old file or the new one. When backups is non-nil and path
// already exists, its contents are saved first and the backup id returned.
func Write(path string, data []byte, backups Backups) (*ksuid.KSUID, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, errors.Wrap(err, "failed to create output directory")
	}

	var id *ksuid.KSUID
	if backups != nil {
		old, err := os.ReadFile(path)
		switch {
		case err == nil:
			if id, err = backups.Create(path, old); err != nil {
				return nil, errors.Wrap(err, "failed to back up existing file")
			}
		case !os.IsNotExist(err):
			return nil, errors.Wrap(err, "failed to read existing file")
		}
	}

	if err := writeAtomic(dir, path, data); err != nil {
		return nil, err
	}
	return id, nil
}

func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary file")
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, "failed to write sfo")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, "failed to sync sfo")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "failed to close sfo")
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "failed to set sfo permissions")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "failed to replace sfo")
	}
	return nil
}
