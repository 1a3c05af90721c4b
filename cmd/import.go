package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/poi-admin/internal/importer"
	"github.com/sells-group/poi-admin/internal/model"
	"github.com/sells-group/poi-admin/internal/store"
)

var (
	importDryRun     bool
	importReset      bool
	importForce      bool
	importMapping    string
	importXMLElement string
	importSheet      string
)

var importCmd = &cobra.Command{
	Use:   "import FILE...",
	Short: "Import point-of-interest files into the catalog",
	Long: `Imports one or more PoI files, upserting records by external ID.

Formats are detected from the file extension: .csv, .json, .xml (optionally
gzip-compressed as .xml.gz) and .xlsx. A file that fails to parse is
reported and skipped; the remaining files still import. Records that fail
validation are counted per file and never abort the file.

Examples:
  # Import two files of different formats
  poi-admin import pois.csv extra.json

  # Validate without writing to the store
  poi-admin import --dry-run pois.csv

  # Replace the whole catalog
  poi-admin import --reset --force pois.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if importReset && !importForce && !importDryRun {
			return eris.New("--reset deletes the whole catalog; confirm with --force")
		}

		mapping, err := loadMapping()
		if err != nil {
			return err
		}

		opts := importer.Options{
			DryRun:     importDryRun,
			Reset:      importReset,
			XMLElement: cfg.Import.XMLRecordElement,
			XLSXSheet:  cfg.Import.XLSXSheet,
		}
		// Changed() so an explicit empty value still overrides the
		// config default (empty means auto-detect the record element).
		if cmd.Flags().Changed("xml-element") {
			opts.XMLElement = importXMLElement
		}
		if importSheet != "" {
			opts.XLSXSheet = importSheet
		}

		var st store.Store
		if !importDryRun {
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err != nil {
				return err
			}
		}

		sum, err := importer.New(st, mapping, opts).Run(ctx, args)
		if err != nil {
			return eris.Wrap(err, "import")
		}

		formatRunSummary(os.Stdout, sum)

		if sum.FilesFailed > 0 {
			return eris.Errorf("import: %d of %d files failed", sum.FilesFailed, sum.FilesProcessed())
		}
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "parse and validate only, write nothing")
	importCmd.Flags().BoolVar(&importReset, "reset", false, "delete the whole catalog before importing")
	importCmd.Flags().BoolVar(&importForce, "force", false, "confirm destructive flags like --reset")
	importCmd.Flags().StringVar(&importMapping, "mapping", "", "YAML file with source-column aliases (overrides import.mapping_file)")
	importCmd.Flags().StringVar(&importXMLElement, "xml-element", "", "XML record element name (empty = auto-detect)")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	rootCmd.AddCommand(importCmd)
}

// loadMapping builds the column alias mapping from built-in defaults plus
// the optional overlay file. The --mapping flag beats import.mapping_file.
func loadMapping() (*importer.Mapping, error) {
	path := cfg.Import.MappingFile
	if importMapping != "" {
		path = importMapping
	}
	if path == "" {
		return importer.DefaultMapping(), nil
	}
	m, err := importer.LoadMapping(path)
	if err != nil {
		return nil, eris.Wrap(err, "import: load mapping")
	}
	return m, nil
}

// maxRecordErrorLines caps how many failed records are listed per file;
// the full detail is always in the logs.
const maxRecordErrorLines = 10

// formatRunSummary writes per-file rows, a TOTAL row, and any file-level
// or record-level errors to out.
func formatRunSummary(out io.Writer, sum *model.RunSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FILE\tFORMAT\tCREATED\tUPDATED\tUNCHANGED\tERRORED\tTOTAL\tSTATUS")
	_, _ = fmt.Fprintln(w, "----\t------\t-------\t-------\t---------\t-------\t-----\t------")

	for _, f := range sum.Files {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			f.Path,
			f.Format,
			f.Created,
			f.Updated,
			f.Unchanged,
			f.Errored,
			f.Total,
			f.Status(),
		)
	}

	_, _ = fmt.Fprintf(w, "TOTAL\t\t%d\t%d\t%d\t%d\t%d\t%d files\n",
		sum.Created,
		sum.Updated,
		sum.Unchanged,
		sum.Errored,
		sum.Total,
		sum.FilesProcessed(),
	)
	_ = w.Flush()

	for _, f := range sum.Files {
		if f.Failed() {
			_, _ = fmt.Fprintf(out, "error: %s: %s\n", f.Path, f.Err)
		}
		for i, re := range f.RecordErrors {
			if i == maxRecordErrorLines {
				_, _ = fmt.Fprintf(out, "record error: %s: ...and %d more\n", f.Path, len(f.RecordErrors)-i)
				break
			}
			_, _ = fmt.Fprintf(out, "record error: %s #%d: %s\n", f.Path, re.Index, re.Reason)
		}
	}
}
