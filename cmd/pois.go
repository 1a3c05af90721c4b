package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/poi-admin/internal/model"
	"github.com/sells-group/poi-admin/internal/store"
)

var poisCmd = &cobra.Command{
	Use:   "pois",
	Short: "Browse the point-of-interest catalog",
	Long:  "Commands for listing, searching, and inspecting catalog records.",
}

// -- pois list --

var poisListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog records",
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

		category, _ := cmd.Flags().GetString("category")
		search, _ := cmd.Flags().GetString("search")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		format, _ := cmd.Flags().GetString("format")

		filter := store.PoIFilter{
			Category: category,
			Search:   search,
			Limit:    limit,
			Offset:   offset,
		}

		var (
			pois  []model.PoI
			total int
		)
		g, gCtx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var listErr error
			pois, listErr = st.ListPoIs(gCtx, filter)
			return listErr
		})
		g.Go(func() error {
			var countErr error
			total, countErr = st.CountPoIs(gCtx, filter)
			return countErr
		})
		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "pois list")
		}

		if format == "json" {
			if pois == nil {
				pois = []model.PoI{}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(pois)
		}

		if len(pois) == 0 {
			fmt.Fprintln(os.Stderr, "No matching records.")
			return nil
		}

		formatPoIsList(os.Stdout, pois, total)
		return nil
	},
}

// -- pois show --

var poisShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one record by internal or external ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		p, err := st.GetPoI(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "pois show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	},
}

func init() {
	poisListCmd.Flags().String("category", "", "filter by category")
	poisListCmd.Flags().String("search", "", "exact match on internal or external ID")
	poisListCmd.Flags().Int("limit", 50, "max number of records to display")
	poisListCmd.Flags().Int("offset", 0, "records to skip, for paging")
	poisListCmd.Flags().String("format", "table", "output format: table or json")

	poisCmd.AddCommand(poisListCmd)
	poisCmd.AddCommand(poisShowCmd)
	rootCmd.AddCommand(poisCmd)
}

// formatPoIsList writes a tabular record list to out. Columns come from
// the admin field list.
func formatPoIsList(out io.Writer, pois []model.PoI, total int) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fields := model.ListFields()
	labels := make([]string, 0, len(fields))
	dashes := make([]string, 0, len(fields))
	for _, f := range fields {
		labels = append(labels, f.Label)
		dashes = append(dashes, strings.Repeat("-", len(f.Label)))
	}
	_, _ = fmt.Fprintln(w, strings.Join(labels, "\t"))
	_, _ = fmt.Fprintln(w, strings.Join(dashes, "\t"))

	for _, p := range pois {
		cells := make([]string, 0, len(fields))
		for _, f := range fields {
			v := model.FieldValue(&p, f.Key)
			if f.Key == "id" {
				v = truncateID(v)
			}
			if len(v) > 30 {
				v = v[:27] + "..."
			}
			cells = append(cells, v)
		}
		_, _ = fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "%d of %d records\n", len(pois), total)
}
