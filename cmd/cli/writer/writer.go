package writer

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/myrjola/tripguide/cmd/cli/clienv"
	"github.com/myrjola/tripguide/internal/catalog"
	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/internal/guide"
	"github.com/myrjola/tripguide/internal/models"
	"github.com/myrjola/tripguide/internal/questionnaire"
	"github.com/myrjola/tripguide/internal/tags"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var Group = &cobra.Group{
	ID:    "writer",
	Title: "Guide writing",
}

func init() {
	Generate.Flags().String("flow", string(models.FlowDestinationKnown), "flow type")
	Generate.Flags().Bool("locked", false, "print only what a visitor sees before unlocking")
}

// answerValue turns the labels of an answers file into an answer for q. present is false without labels.
func answerValue(q catalog.Question, labels []string) (models.AnswerValue, bool, error) {
	if len(labels) == 0 {
		return models.AnswerValue{}, false, nil //nolint:exhaustruct // absent
	}
	switch q.Type {
	case catalog.SingleChoice, catalog.FreeText:
		return models.TextAnswer(strings.Join(labels, " ")), true, nil
	case catalog.NumericRange:
		n, err := strconv.ParseFloat(labels[0], 64)
		if err != nil {
			return models.AnswerValue{}, false, errors.Wrap(err, "parse number", slog.String("question_id", q.ID)) //nolint:exhaustruct,lll // error path
		}
		return models.NumberAnswer(n), true, nil
	case catalog.MultipleChoice, catalog.MultipleChoiceOther:
		selected := make([]models.SelectedOption, 0, len(labels))
		for _, label := range labels {
			if i := slices.Index(q.Options, label); i >= 0 {
				selected = append(selected, models.Predefined(i))
			} else {
				selected = append(selected, models.Freeform(label))
			}
		}
		return models.MultiAnswer(selected...), true, nil
	default:
		return models.AnswerValue{}, false, errors.New("unknown question type", slog.String("question_id", q.ID)) //nolint:exhaustruct,lll // error path
	}
}

// Walk answers the questions of flow ft from answers, which maps question ids to labels, and completes the flow.
func Walk(cat *catalog.Catalog, ft models.FlowType, answers map[string][]string) (models.Submission, error) {
	s := questionnaire.New(cat)
	if err := s.Start(ft); err != nil {
		return models.Submission{}, errors.Wrap(err, "start flow") //nolint:exhaustruct // error path
	}
	for {
		q, _ := s.Current()
		v, present, err := answerValue(q, answers[q.ID])
		if err != nil {
			return models.Submission{}, err //nolint:exhaustruct // error path
		}
		if present {
			if err = s.SetAnswer(q.ID, v); err != nil {
				return models.Submission{}, errors.Wrap(err, "answer") //nolint:exhaustruct // error path
			}
		}
		if s.IsLast() {
			sub, completeErr := s.Complete()
			return sub, errors.Wrap(completeErr, "complete flow")
		}
		if err = s.Next(); err != nil {
			return models.Submission{}, errors.Wrap(err, "next", slog.String("question_id", q.ID)) //nolint:exhaustruct,lll // error path
		}
	}
}

func readAnswers(r io.Reader) (map[string][]string, error) {
	var answers map[string][]string
	if err := yaml.NewDecoder(r).Decode(&answers); err != nil {
		return nil, errors.Wrap(err, "decode answers")
	}
	return answers, nil
}

var Generate = &cobra.Command{
	Use:     "generate <answers.yaml>",
	GroupID: "writer",
	Short:   "Generate a trip guide",
	Long: `Answers a flow with the question ids and labels of a YAML file, for example

  destination: [Zion]
  activities: [Hiking, Canyoneering]

and prints the guide the generation service writes for it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rawFlow, _ := cmd.Flags().GetString("flow")
		locked, _ := cmd.Flags().GetBool("locked")
		ft, err := models.ParseFlowType(rawFlow)
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return errors.Wrap(err, "open answers")
		}
		defer func() {
			_ = f.Close()
		}()
		answers, err := readAnswers(f)
		if err != nil {
			return err
		}
		cat, err := catalog.Default()
		if err != nil {
			return err
		}
		sub, err := Walk(cat, ft, answers)
		if err != nil {
			return err
		}

		cfg, err := clienv.Load()
		if err != nil {
			return err
		}
		logger := cfg.Logger()
		service := guide.NewService(cfg.AIClient(logger), tags.NewHeuristic().FromText, guide.DefaultBackoff, logger)
		g, err := service.Request(cmd.Context(), sub)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), guide.Disclose(g.Content, guide.NewGate(!locked).State()))
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "\ntags: %s\n", strings.Join(g.Tags.Strings(), " "))
		return nil
	},
}
