package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/poi-admin/internal/model"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect import run history",
	Long:  "Commands for listing past file imports and their results.",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent import runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListImportRuns(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No import runs found.")
			return nil
		}

		formatImportRuns(os.Stdout, runs)
		return nil
	},
}

func init() {
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsCmd.AddCommand(runsListCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatImportRuns writes a tabular list of import runs to out.
func formatImportRuns(out io.Writer, runs []model.ImportRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tFILE\tFORMAT\tSTATUS\tCREATED\tUPDATED\tUNCHANGED\tERRORED\tTOTAL\tSTARTED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t------\t-------\t-------\t---------\t-------\t-----\t-------\t--------")

	for _, r := range runs {
		dur := r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()

		path := r.Path
		if len(path) > 30 {
			path = "..." + path[len(path)-27:]
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\t%s\n",
			truncateID(r.ID),
			path,
			r.Format,
			r.Status,
			r.Created,
			r.Updated,
			r.Unchanged,
			r.Errored,
			r.Total,
			r.StartedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
