package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/ssargent/sfoedit/pkg/di"
)

// backupsCmd represents the backups command
var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List or delete saved copies of replaced files",
	Long: `List the saved copies of files replaced by sfoedit, oldest first.

Example:
  sfoedit backups
  sfoedit backups --delete 2m2fWBAQmmTXnd5LyTtXRKNL1Rj`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, _ := cmd.Flags().GetStringSlice("delete")
		if len(ids) > 0 {
			return runDeleteBackups(container, ids, cmd.OutOrStdout())
		}
		return runBackups(container, cmd.OutOrStdout())
	},
}

// restoreCmd represents the restore command
var restoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore a backup",
	Long: `Write a backup back to the path it was taken from, or to --output.
The file being replaced is itself backed up first.

Example:
  sfoedit backups
  sfoedit restore 2m2fWBAQmmTXnd5LyTtXRKNL1Rj`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		return runRestore(container, args[0], output, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(backupsCmd)
	backupsCmd.Flags().StringSlice("delete", nil, "Delete the backups with these ids")
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().StringP("output", "o", "", "Restore to this path instead of the original one")
}

func openBackups(c *di.Container) (di.BackupStore, error) {
	if c == nil {
		return nil, errors.New("dependency container not initialized")
	}
	store, err := c.OpenBackups()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open backup store")
	}
	if store == nil {
		return nil, errors.New("backups are disabled")
	}
	return store, nil
}

func runBackups(c *di.Container, out io.Writer) error {
	store, err := openBackups(c)
	if err != nil {
		return err
	}
	defer store.Close()

	backups, err := store.List()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		fmt.Fprintln(out, "No backups")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTAKEN\tBYTES\tPATH")
	for _, b := range backups {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", b.ID, b.Time().Format(time.RFC3339), len(b.Data), b.Path)
	}
	return w.Flush()
}

// runDeleteBackups checks every id exists before deleting any of them
func runDeleteBackups(c *di.Container, rawIDs []string, out io.Writer) error {
	ids := make([]ksuid.KSUID, 0, len(rawIDs))
	for _, raw := range rawIDs {
		id, err := ksuid.Parse(raw)
		if err != nil {
			return errors.Wrapf(err, "invalid backup id %q", raw)
		}
		ids = append(ids, id)
	}

	store, err := openBackups(c)
	if err != nil {
		return err
	}
	defer store.Close()

	for i := range ids {
		if _, err := store.Read(&ids[i]); err != nil {
			return err
		}
	}
	for i := range ids {
		if err := store.Delete(&ids[i]); err != nil {
			return errors.Wrapf(err, "failed to delete backup %s", ids[i])
		}
		fmt.Fprintf(out, "Deleted %s\n", ids[i])
	}
	return nil
}

func runRestore(c *di.Container, rawID, output string, out io.Writer) error {
	id, err := ksuid.Parse(rawID)
	if err != nil {
		return errors.Wrapf(err, "invalid backup id %q", rawID)
	}

	store, err := openBackups(c)
	if err != nil {
		return err
	}
	b, err := store.Read(&id)
	store.Close()
	if err != nil {
		return err
	}

	if output == "" {
		output = b.Path
	}
	log := newRun(c, "restore").WithField("backup", id.String())
	if err := writeSFO(c, log, output, b.Data); err != nil {
		return err
	}
	fmt.Fprintf(out, "Restored %s to %s\n", id, output)
	return nil
}
