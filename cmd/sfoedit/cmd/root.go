/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ssargent/sfoedit/pkg/config"
	"github.com/ssargent/sfoedit/pkg/di"
	"github.com/ssargent/sfoedit/pkg/sfo"
	"github.com/ssargent/sfoedit/pkg/sfofile"
)

var container *di.Container

// SetContainer injects the dependency container used by every command
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sfoedit",
	Short: "sfoedit - SFO parameter file editor",
	Long: `sfoedit reads an SFO parameter file, applies typed edits to its
entries and writes the file back with keys in alphabetical order.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return configure(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("settings", "", "Path to sfoedit settings (default: OS-specific location)")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level")
	rootCmd.PersistentFlags().Bool("no-backup", false, "Do not back up files before replacing them")
}

// configure loads settings, applies flag overrides and hands the result to
// the container
func configure(cmd *cobra.Command) error {
	if container == nil {
		return errors.New("dependency container not initialized")
	}

	settings, _ := cmd.Flags().GetString("settings")
	if settings == "" && config.ConfigExists(config.GetDefaultConfigPath()) {
		settings = config.GetDefaultConfigPath()
	}

	cfg := config.DefaultConfig()
	if settings != "" {
		loaded, err := config.LoadConfig(settings)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if noBackup, _ := cmd.Flags().GetBool("no-backup"); noBackup {
		cfg.Backup.Enabled = false
	}
	return container.Configure(cfg)
}

// newRun returns a logger tagged with a fresh run id
func newRun(c *di.Container, command string) *logrus.Entry {
	return c.Logger().WithFields(logrus.Fields{
		"run":     ksuid.New().String(),
		"command": command,
	})
}

// readSFO loads path into a document from the container
func readSFO(c *di.Container, log *logrus.Entry, path string) (*sfo.Document, error) {
	doc, err := c.NewDocument(log)
	if err != nil {
		return nil, err
	}
	if err := sfofile.Load(doc, path); err != nil {
		return nil, err
	}
	return doc, nil
}

// writeSFO replaces path with data, backing up the previous file when
// backups are enabled
func writeSFO(c *di.Container, log *logrus.Entry, path string, data []byte) error {
	store, err := c.OpenBackups()
	if err != nil {
		return errors.Wrap(err, "failed to open backup store")
	}

	var backups sfofile.Backups
	if store != nil {
		defer store.Close()
		backups = store
	}

	id, err := sfofile.Write(path, data, backups)
	if err != nil {
		return err
	}

	fields := logrus.Fields{"output": path, "bytes": len(data)}
	if id != nil {
		fields["backup"] = id.String()
	}
	log.WithFields(fields).Info("wrote sfo")
	return nil
}
