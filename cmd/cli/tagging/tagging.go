package tagging

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/myrjola/tripguide/cmd/cli/clienv"
	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/internal/models"
	"github.com/myrjola/tripguide/internal/repositories"
	"github.com/myrjola/tripguide/internal/tags"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "tagging",
	Title: "Tag extraction",
}

func init() {
	Extract.Flags().String("strategy", "heuristic", "heuristic or delegated")
	Extract.Flags().String("flow", string(models.FlowDestinationKnown), "flow type whose defaults apply")
}

// Submission wraps free text as the single answer of a flow.
func Submission(ft models.FlowType, text string) models.Submission {
	return models.Submission{
		FlowType: ft,
		Answers:  models.AnswerSet{"description": models.TextAnswer(text)},
		Entries: []models.AnsweredQuestion{{
			QuestionID: "description",
			Prompt:     "Describe your trip",
			Dimension:  "",
			Values:     []string{text},
			Number:     nil,
		}},
	}
}

var Extract = &cobra.Command{
	Use:     "extract <text>...",
	GroupID: "tagging",
	Short:   "Extract tags from a trip description",
	Long: `Prints the tags the chosen strategy extracts from the text. The delegated strategy asks the generation
service to pick from the tags used in the expert directory and falls back to the heuristic on failure.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy, _ := cmd.Flags().GetString("strategy")
		rawFlow, _ := cmd.Flags().GetString("flow")
		ft, err := models.ParseFlowType(rawFlow)
		if err != nil {
			return err
		}
		cfg, err := clienv.Load()
		if err != nil {
			return err
		}
		logger := cfg.Logger()
		heuristic := tags.NewHeuristic()

		var extractor tags.Extractor
		switch strategy {
		case "heuristic":
			extractor = heuristic
		case "delegated":
			db, dbErr := cfg.OpenDatabase(cmd.Context(), logger)
			if dbErr != nil {
				return dbErr
			}
			defer func() {
				_ = db.Close()
			}()
			vocabulary, vocabErr := repositories.NewExpertRepository(db, logger).Vocabulary(cmd.Context())
			if vocabErr != nil {
				return errors.Wrap(vocabErr, "load vocabulary")
			}
			extractor = tags.NewDelegated(cfg.AIClient(logger), vocabulary, heuristic, logger)
		default:
			return errors.New("unknown strategy", slog.String("strategy", strategy))
		}

		extracted := extractor.Extract(cmd.Context(), Submission(ft, strings.Join(args, " ")))
		for _, tag := range extracted {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), tag)
		}
		return nil
	},
}
