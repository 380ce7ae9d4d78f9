package cmd

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ssargent/sfoedit/pkg/di"
	"github.com/ssargent/sfoedit/pkg/sfo"
)

// setCmd represents the set command
var setCmd = &cobra.Command{
	Use:   "set <sfo> <key> <value>",
	Short: "Set a single entry",
	Long: `Set a single entry of an SFO. The value is parsed according to the
entry's type: integers in decimal or 0x hex, strings as given, raw bytes
as a hex string.

Example:
  sfoedit set param.sfo TITLE_ID CUSA12345
  sfoedit set param.sfo PARAMS 0x0001020304`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		return runSet(container, args[0], args[1], args[2], output, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(setCmd)
	setCmd.Flags().StringP("output", "o", "", "Output path (default: edit the file in place)")
}

func runSet(c *di.Container, path, key, text, output string, out io.Writer) error {
	if c == nil {
		return errors.New("dependency container not initialized")
	}
	if output == "" {
		output = path
	}

	log := newRun(c, "set").WithField("sfo", path)

	doc, err := readSFO(c, log, path)
	if err != nil {
		return err
	}

	t, err := doc.TypeOf(key)
	if err != nil {
		return err
	}
	value, err := sfo.ParseValue(t, text)
	if err != nil {
		return errors.Wrapf(err, "[%s]", key)
	}
	if err := doc.Edit(key, value); err != nil {
		return err
	}

	data, err := doc.Export()
	if err != nil {
		return err
	}
	if err := writeSFO(c, log, output, data); err != nil {
		return err
	}

	current, _ := doc.Get(key)
	fmt.Fprintf(out, "%s = %s\n", key, formatValue(current))
	return nil
}
