package directory

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/myrjola/tripguide/cmd/cli/clienv"
	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/internal/matcher"
	"github.com/myrjola/tripguide/internal/models"
	"github.com/myrjola/tripguide/internal/repositories"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var Group = &cobra.Group{
	ID:    "directory",
	Title: "Expert directory",
}

func init() {
	Match.Flags().String("destination", "", "destination, e.g. \"Zion\"")
	Match.Flags().StringSlice("activity", nil, "activity, repeatable")
	Match.Flags().String("traveler", "", "traveler type, e.g. solo")
	Match.Flags().String("experience", "", "experience level, e.g. intermediate")
	Match.Flags().StringSlice("language", nil, "language, repeatable")
}

type directoryDoc struct {
	Experts []models.ExpertRecord `yaml:"experts"`
}

// ParseDirectory reads experts from YAML. Unknown fields are errors so that typos do not drop tags silently.
func ParseDirectory(r io.Reader) ([]models.ExpertRecord, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc directoryDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decode directory")
	}
	for i, e := range doc.Experts {
		if e.ID == "" || e.Name == "" {
			return nil, errors.New("expert needs an id and a name", slog.Int("position", i+1))
		}
	}
	return doc.Experts, nil
}

var Import = &cobra.Command{
	Use:     "import <file>",
	GroupID: "directory",
	Short:   "Import experts from YAML",
	Long: `Adds the experts of a YAML file to the directory. Experts that already exist keep their place in the
directory but get the name, bio, contact and tags of the file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return errors.Wrap(err, "open directory file")
		}
		defer func() {
			_ = f.Close()
		}()
		experts, err := ParseDirectory(f)
		if err != nil {
			return err
		}

		cfg, err := clienv.Load()
		if err != nil {
			return err
		}
		logger := cfg.Logger()
		db, err := cfg.OpenDatabase(cmd.Context(), logger)
		if err != nil {
			return err
		}
		defer func() {
			_ = db.Close()
		}()
		if err = repositories.NewExpertRepository(db, logger).Upsert(cmd.Context(), experts...); err != nil {
			return errors.Wrap(err, "import experts")
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d experts\n", len(experts))
		return nil
	},
}

var Match = &cobra.Command{
	Use:     "match",
	GroupID: "directory",
	Short:   "Find experts for a trip",
	Long:    `Runs the expert matcher against the directory and prints the ranking, or suggestions when nothing matched.`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		flags := cmd.Flags()
		q := matcher.Query{
			Destination:     mustString(flags.GetString("destination")),
			Activities:      mustStrings(flags.GetStringSlice("activity")),
			TravelerType:    mustString(flags.GetString("traveler")),
			ExperienceLevel: mustString(flags.GetString("experience")),
			Languages:       mustStrings(flags.GetStringSlice("language")),
		}

		cfg, err := clienv.Load()
		if err != nil {
			return err
		}
		logger := cfg.Logger()
		db, err := cfg.OpenDatabase(cmd.Context(), logger)
		if err != nil {
			return err
		}
		defer func() {
			_ = db.Close()
		}()
		pool, err := repositories.NewExpertRepository(db, logger).List(cmd.Context())
		if err != nil {
			return errors.Wrap(err, "list experts")
		}
		return PrintResult(cmd.OutOrStdout(), matcher.FindExperts(q, pool))
	},
}

// PrintResult writes the ranking, the narrowing steps and the fallback suggestions.
func PrintResult(out io.Writer, res matcher.Result) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0) //nolint:mnd // padding
	_, _ = fmt.Fprintln(w, "RANK\tEXPERT\tSCORE\tMATCHED")
	for i, m := range res.Experts {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", i+1, m.Expert.ID, m.Score, strings.Join(m.MatchedTags.Strings(), " "))
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "flush")
	}

	steps := make([]string, len(res.Steps))
	for i, s := range res.Steps {
		steps[i] = fmt.Sprintf("%s=%d", s.Dimension, s.Remaining)
	}
	_, _ = fmt.Fprintf(out, "\nnarrowing: %s\n", strings.Join(steps, " -> "))

	if f := res.Fallback; f != nil {
		_, _ = fmt.Fprintln(out, "\nno expert matched, try:")
		if f.BroadenedDestination != "" {
			_, _ = fmt.Fprintf(out, "  destination %s\n", f.BroadenedDestination)
		}
		if len(f.AlternativeActivities) > 0 {
			_, _ = fmt.Fprintf(out, "  activities %s\n", strings.Join(f.AlternativeActivities, ", "))
		}
		if f.AdjustedExperience != "" {
			_, _ = fmt.Fprintf(out, "  experience %s\n", f.AdjustedExperience)
		}
	}
	return nil
}

// Flags are registered in init, so lookups cannot fail.
func mustString(s string, _ error) string      { return s }
func mustStrings(s []string, _ error) []string { return s }

var List = &cobra.Command{
	Use:     "list",
	GroupID: "directory",
	Short:   "List the directory",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := clienv.Load()
		if err != nil {
			return err
		}
		logger := cfg.Logger()
		db, err := cfg.OpenDatabase(cmd.Context(), logger)
		if err != nil {
			return err
		}
		defer func() {
			_ = db.Close()
		}()
		experts, err := repositories.NewExpertRepository(db, logger).List(cmd.Context())
		if err != nil {
			return errors.Wrap(err, "list experts")
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0) //nolint:mnd // padding
		_, _ = fmt.Fprintln(w, "ID\tNAME\tTAGS")
		for _, e := range experts {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", e.ID, e.Name, strings.Join(e.AllTags().Strings(), " "))
		}
		return errors.Wrap(w.Flush(), "flush")
	},
}
