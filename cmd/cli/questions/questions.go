package questions

import (
	"fmt"
	"text/tabwriter"

	"github.com/myrjola/tripguide/internal/catalog"
	"github.com/myrjola/tripguide/internal/errors"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "questions",
	Title: "Question catalog",
}

var Validate = &cobra.Command{
	Use:     "validate [file]",
	GroupID: "questions",
	Short:   "Validate a question catalog",
	Long: `Loads the built-in question catalog, or the YAML catalog in file, and checks that every flow is consistent:
unique question ids, options where the type needs them and visibility conditions that only refer to earlier questions.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			cat *catalog.Catalog
			err error
		)
		if len(args) == 1 {
			cat, err = catalog.LoadFile(args[0])
		} else {
			cat, err = catalog.Default()
		}
		if err != nil {
			return errors.Wrap(err, "load catalog")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0) //nolint:mnd // padding
		_, _ = fmt.Fprintln(w, "FLOW\tTITLE\tQUESTIONS\tCONDITIONAL")
		for _, f := range cat.Flows() {
			conditional := 0
			for _, q := range f.Questions {
				if q.Visibility != nil {
					conditional++
				}
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", f.Type, f.Title, len(f.Questions), conditional)
		}
		return errors.Wrap(w.Flush(), "flush")
	},
}
