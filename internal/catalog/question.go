package catalog

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/internal/models"
)

// QuestionType decides which [models.AnswerValue] variant a question accepts.
type QuestionType string

const (
	SingleChoice        QuestionType = "single-choice"
	MultipleChoice      QuestionType = "multiple-choice"
	FreeText            QuestionType = "free-text"
	NumericRange        QuestionType = "numeric-range"
	MultipleChoiceOther QuestionType = "multiple-choice-other"
)

func (t QuestionType) valid() bool {
	switch t {
	case SingleChoice, MultipleChoice, FreeText, NumericRange, MultipleChoiceOther:
		return true
	default:
		return false
	}
}

func (t QuestionType) hasOptions() bool {
	return t == SingleChoice || t == MultipleChoice || t == MultipleChoiceOther
}

// Matcher query dimensions a question can feed.
const (
	DimensionDestination  = "destination"
	DimensionActivities   = "activities"
	DimensionTravelerType = "traveler_type"
	DimensionExperience   = "experience"
	DimensionLanguages    = "languages"
)

var dimensions = []string{
	DimensionDestination, DimensionActivities, DimensionTravelerType, DimensionExperience, DimensionLanguages,
}

var ErrInvalidAnswer = errors.NewSentinel("invalid answer")

// Question is a single step of a flow.
type Question struct {
	ID       string
	Type     QuestionType
	Prompt   string
	Options  []string
	Required bool
	// Visibility is evaluated against earlier answers. Nil means always visible.
	Visibility Predicate
	// Min and Max bound numeric-range answers.
	Min float64
	Max float64
	// Dimension names the matcher query dimension this question feeds, empty if none.
	Dimension string
}

// Validate checks that v has the shape the question type expects. Empty values are accepted here; whether the
// question must be answered is decided by [Question.IsAnswered] together with Required.
func (q Question) Validate(v models.AnswerValue) error {
	invalid := func(reason string) error {
		return errors.Wrap(ErrInvalidAnswer, reason,
			slog.String("question_id", q.ID),
			slog.String("question_type", string(q.Type)),
			slog.String("answer_kind", string(v.Kind)),
		)
	}

	switch q.Type {
	case SingleChoice:
		if v.Kind != models.AnswerText {
			return invalid("single choice expects text")
		}
		if v.IsEmpty() || slices.Contains(q.Options, v.Text) {
			return nil
		}
		return invalid("not one of the options")
	case FreeText:
		if v.Kind != models.AnswerText {
			return invalid("free text expects text")
		}
		return nil
	case NumericRange:
		if v.Kind != models.AnswerNumber {
			return invalid("numeric range expects number")
		}
		if v.Number < q.Min || v.Number > q.Max {
			return invalid("number out of range")
		}
		return nil
	case MultipleChoice, MultipleChoiceOther:
		if v.Kind != models.AnswerMulti {
			return invalid("multiple choice expects selections")
		}
		return q.validateSelections(v.Selected, invalid)
	default:
		return invalid("unknown question type")
	}
}

func (q Question) validateSelections(selected []models.SelectedOption, invalid func(string) error) error {
	seen := make(map[int]bool, len(selected))
	freeforms := 0
	for _, o := range selected {
		if o.IsFreeform() {
			if q.Type != MultipleChoiceOther {
				return invalid("question has no other option")
			}
			if strings.TrimSpace(o.Freeform) == "" {
				return invalid("blank other text")
			}
			freeforms++
			continue
		}
		if o.Index < 0 || o.Index >= len(q.Options) {
			return invalid("option index out of range")
		}
		if seen[o.Index] {
			return invalid("option selected twice")
		}
		seen[o.Index] = true
	}
	if freeforms > 1 {
		return invalid("more than one other text")
	}
	return nil
}

// IsAnswered reports whether v is a valid non-empty answer to q.
func (q Question) IsAnswered(v models.AnswerValue) bool {
	return q.Validate(v) == nil && !v.IsEmpty()
}

// Values resolves v to display strings: option labels for predefined selections, the typed text otherwise.
func (q Question) Values(v models.AnswerValue) []string {
	switch v.Kind {
	case models.AnswerText:
		if v.IsEmpty() {
			return nil
		}
		return []string{strings.TrimSpace(v.Text)}
	case models.AnswerNumber:
		return []string{strconv.FormatFloat(v.Number, 'f', -1, 64)}
	case models.AnswerMulti:
		out := make([]string, 0, len(v.Selected))
		for _, o := range v.Selected {
			switch {
			case o.IsFreeform():
				out = append(out, strings.TrimSpace(o.Freeform))
			case o.Index >= 0 && o.Index < len(q.Options):
				out = append(out, q.Options[o.Index])
			}
		}
		return out
	default:
		return nil
	}
}

// Entry resolves v into the read-only view handed to downstream consumers.
func (q Question) Entry(v models.AnswerValue) models.AnsweredQuestion {
	entry := models.AnsweredQuestion{
		QuestionID: q.ID,
		Prompt:     q.Prompt,
		Dimension:  q.Dimension,
		Values:     nil,
		Number:     nil,
	}
	if v.Kind == models.AnswerNumber {
		n := v.Number
		entry.Number = &n
		return entry
	}
	entry.Values = q.Values(v)
	return entry
}
