package cmd

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ssargent/sfoedit/pkg/config"
	"github.com/ssargent/sfoedit/pkg/di"
)

type applyOptions struct {
	sfoPath    string
	editsPath  string
	outputPath string
	dryRun     bool
}

// applyCmd represents the apply command
var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply an edit file to an SFO",
	Long: `Apply every key/value pair of an edit file to an SFO and write the result.

The edit file is a JSON object (comments and trailing commas allowed) or, when
it ends in .yaml or .yml, a YAML mapping. Edits are applied in file order and
nothing is written if any of them is rejected.

Example:
  sfoedit apply -s param.sfo -c edits.json -o out/param.sfo`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := applyOptions{}
		opts.sfoPath, _ = cmd.Flags().GetString("sfo")
		opts.editsPath, _ = cmd.Flags().GetString("config")
		opts.outputPath, _ = cmd.Flags().GetString("output")
		opts.dryRun, _ = cmd.Flags().GetBool("dry-run")
		return runApply(container, opts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().StringP("sfo", "s", "", "Path to sfo file")
	applyCmd.Flags().StringP("config", "c", "", "Path to edit file")
	applyCmd.Flags().StringP("output", "o", "", "Output path")
	applyCmd.Flags().Bool("dry-run", false, "Validate the edits without writing output")
	for _, name := range []string{"sfo", "config"} {
		if err := applyCmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
}

func runApply(c *di.Container, opts applyOptions, out io.Writer) error {
	if c == nil {
		return errors.New("dependency container not initialized")
	}
	if opts.outputPath == "" && !opts.dryRun {
		return errors.New("an output path is required unless --dry-run is set")
	}

	log := newRun(c, "apply").WithField("sfo", opts.sfoPath)

	edits, err := config.LoadEdits(opts.editsPath)
	if err != nil {
		return err
	}

	doc, err := readSFO(c, log, opts.sfoPath)
	if err != nil {
		return err
	}

	for _, e := range edits {
		if err := doc.Edit(e.Key, e.Value); err != nil {
			return errors.Wrapf(err, "edit file %s", opts.editsPath)
		}
	}

	data, err := doc.Export()
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"edits":   len(edits),
		"entries": doc.Len(),
	}).Info("applied edits")

	if opts.dryRun {
		fmt.Fprintf(out, "%d edits valid, %d bytes would be written\n", len(edits), len(data))
		return nil
	}
	if err := writeSFO(c, log, opts.outputPath, data); err != nil {
		return err
	}
	fmt.Fprintf(out, "Applied %d edits to %s\n", len(edits), opts.outputPath)
	return nil
}
