// Package di provides dependency injection container
package di

import (
	"os"

	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
	"github.com/sirupsen/logrus"

	"github.com/ssargent/sfoedit/pkg/config"
	"github.com/ssargent/sfoedit/pkg/sfo"
	"github.com/ssargent/sfoedit/pkg/storage"
)

// BackupStore holds copies of files replaced by sfoedit
type BackupStore interface {
	Create(path string, data []byte) (*ksuid.KSUID, error)
	Read(id *ksuid.KSUID) (*storage.Backup, error)
	List() ([]*storage.Backup, error)
	Delete(id *ksuid.KSUID) error
	Close() error
}

// BackupStoreFactory opens the backup store in dir
type BackupStoreFactory func(dir string) (BackupStore, error)

// Container holds all the dependencies for the application
type Container struct {
	config       *config.Config
	logger       *logrus.Logger
	backupStores BackupStoreFactory
}

// NewContainer creates a new dependency injection container using the
// default configuration
func NewContainer() *Container {
	c := &Container{
		logger: logrus.New(),
		backupStores: func(dir string) (BackupStore, error) {
			s, err := storage.NewDefaultStorage(dir)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
	}
	c.logger.SetOutput(os.Stderr)
	if err := c.Configure(config.DefaultConfig()); err != nil {
		panic(err)
	}
	return c
}

// Configure applies cfg to the container and its logger
func (c *Container) Configure(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return errors.Wrap(err, "invalid log level")
	}

	c.logger.SetLevel(level)
	if cfg.Logging.Format == "json" {
		c.logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		c.logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	c.config = cfg
	return nil
}

// Config returns the active configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the shared logger
func (c *Container) Logger() *logrus.Logger {
	return c.logger
}

// NewDocument returns an empty document logging through log, or through
// the shared logger when log is nil
func (c *Container) NewDocument(log *logrus.Entry) (*sfo.Document, error) {
	if log == nil {
		log = logrus.NewEntry(c.logger)
	}
	return sfo.NewDocument(sfo.WithLogger(log))
}

// OpenBackups opens the configured backup store. It returns nil when
// backups are disabled.
func (c *Container) OpenBackups() (BackupStore, error) {
	if !c.config.Backup.Enabled {
		return nil, nil
	}
	return c.backupStores(c.config.BackupDir())
}

// SetBackupStoreFactory allows overriding how backup stores are opened (for testing)
func (c *Container) SetBackupStoreFactory(factory BackupStoreFactory) {
	c.backupStores = factory
}
