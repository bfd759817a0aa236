package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/chartscrape/internal/logger"
	"github.com/jmylchreest/chartscrape/internal/output"
	"github.com/jmylchreest/chartscrape/internal/records"
	"github.com/jmylchreest/chartscrape/internal/scrape"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Convert country files to JSON, JSONL, YAML or CSV",
	Long: `Read one or more country files written by "chartscrape scrape" and
write their records, with the country taken from each file name.

Examples:
  chartscrape export -i data/italy.csv
  chartscrape export -i data/italy.csv -i data/nauru.csv --format csv -o all.csv`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	flags := exportCmd.Flags()
	flags.StringSliceP("input", "i", nil, "country file(s) to export (can be repeated)")
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", string(output.FormatJSON), "output format: json, jsonl, yaml, csv")
	flags.Bool("compact", false, "single-line JSON")

	_ = exportCmd.MarkFlagRequired("input")
}

func runExport(cmd *cobra.Command, args []string) (err error) {
	flags := cmd.Flags()
	inputs, _ := flags.GetStringSlice("input")
	outPath, _ := flags.GetString("output")
	formatName, _ := flags.GetString("format")
	compact, _ := flags.GetBool("compact")

	format, err := output.ParseFormat(formatName)
	if err != nil {
		return err
	}

	var recs []records.Record
	for _, path := range inputs {
		got, err := records.ReadAll(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: %s", scrape.ErrInputNotFound, path)
			}
			return err
		}
		logger.Debug("loaded country file", "path", path, "records", len(got))
		recs = append(recs, got...)
	}

	var out io.Writer = cmd.OutOrStdout()
	if outPath != "" {
		f, cerr := os.Create(outPath) //#nosec G304 -- user-specified output path
		if cerr != nil {
			return fmt.Errorf("failed to create output file: %w", cerr)
		}
		defer closeInto(&err, f, outPath)
		out = f
	}

	var opts []output.WriterOption
	if compact {
		opts = append(opts, output.WithIndent(""))
	}
	w, err := output.NewWriter(out, format, opts...)
	if err != nil {
		return err
	}
	if err := output.WriteAll(w, recs); err != nil {
		return fmt.Errorf("writing %s: %w", format, err)
	}

	logger.Debug("export complete", "records", len(recs), "format", format)
	return nil
}

// closeInto closes c and reports its error through errp unless an earlier
// error is already set.
func closeInto(errp *error, c io.Closer, name string) {
	if cerr := c.Close(); cerr != nil && *errp == nil {
		*errp = fmt.Errorf("closing %s: %w", name, cerr)
	}
}
