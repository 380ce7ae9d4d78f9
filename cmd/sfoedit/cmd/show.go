package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ssargent/sfoedit/pkg/di"
	"github.com/ssargent/sfoedit/pkg/layout"
	"github.com/ssargent/sfoedit/pkg/sfo"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <sfo>",
	Short: "Show the entries of an SFO",
	Long: `Show the header and entries of an SFO.

The json format prints every editable entry as an object that can be
passed straight back to apply.

Example:
  sfoedit show param.sfo
  sfoedit show param.sfo --format json > edits.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		return runShow(container, args[0], format, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().StringP("format", "f", "table", "Output format (table, json)")
}

func runShow(c *di.Container, path, format string, out io.Writer) error {
	if c == nil {
		return errors.New("dependency container not initialized")
	}

	doc, err := readSFO(c, newRun(c, "show").WithField("sfo", path), path)
	if err != nil {
		return err
	}

	switch format {
	case "table":
		return showTable(doc, out)
	case "json":
		return showJSON(doc, out)
	default:
		return errors.Errorf("unsupported format %q", format)
	}
}

func showTable(doc *sfo.Document, out io.Writer) error {
	hdr := doc.Header()
	fmt.Fprintf(out, "Magic:   %s\n", hex.EncodeToString(hdr.Magic[:]))
	fmt.Fprintf(out, "Version: %s\n", hex.EncodeToString(hdr.Version[:]))
	fmt.Fprintf(out, "Entries: %d\n\n", doc.Len())

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tTYPE\tFORMAT\tLENGTH\tMAX\tVALUE")
	for _, e := range doc.Entries() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			e.Key, e.Type, e.Index.ParamFormat, e.Index.ParamLength, e.Index.ParamMaxLength,
			formatValue(e.Value))
	}
	return w.Flush()
}

// showJSON leaves out opaque entries since apply can not set them. Raw
// values are padded to their max length, as stored in the data table.
func showJSON(doc *sfo.Document, out io.Writer) error {
	values := make(map[string]interface{}, doc.Len())
	for _, e := range doc.Entries() {
		switch e.Type {
		case sfo.TypeOpaque:
			continue
		case sfo.TypeRaw:
			raw := make(layout.Bytes, e.Index.ParamMaxLength)
			copy(raw, e.Value.(layout.Bytes))
			values[e.Key] = sfo.Native(raw)
		default:
			values[e.Key] = sfo.Native(e.Value)
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(values)
}

func formatValue(v layout.Value) string {
	switch x := v.(type) {
	case layout.String:
		return strconv.Quote(string(x))
	case layout.Bytes:
		return "0x" + hex.EncodeToString(x)
	case layout.Uint32:
		return strconv.FormatUint(uint64(x), 10)
	case layout.Uint64:
		return strconv.FormatUint(uint64(x), 10)
	default:
		return fmt.Sprintf("%v", sfo.Native(v))
	}
}
