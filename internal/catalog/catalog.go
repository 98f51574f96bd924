package catalog

import (
	"fmt"
	"slices"

	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/internal/models"
)

var ErrIntegrity = errors.NewSentinel("catalog integrity")

// IntegrityError describes why a catalog was rejected at load time.
type IntegrityError struct {
	Flow       models.FlowType
	QuestionID string
	Reason     string
}

func (e *IntegrityError) Error() string {
	if e.QuestionID == "" {
		return fmt.Sprintf("catalog integrity: flow %q: %s", e.Flow, e.Reason)
	}
	return fmt.Sprintf("catalog integrity: flow %q question %q: %s", e.Flow, e.QuestionID, e.Reason)
}

func (e *IntegrityError) Unwrap() error {
	return ErrIntegrity
}

// Flow is an ordered list of questions for one flow type.
type Flow struct {
	Type      models.FlowType
	Title     string
	Questions []Question
}

// Question looks up a question by id.
func (f Flow) Question(id string) (Question, bool) {
	i := slices.IndexFunc(f.Questions, func(q Question) bool { return q.ID == id })
	if i < 0 {
		return Question{}, false //nolint:exhaustruct // not found
	}
	return f.Questions[i], true
}

// Catalog holds validated flows. It is immutable after [New] returns.
type Catalog struct {
	flows []Flow
}

// New validates flows and returns a catalog. The first problem found is returned as an [*IntegrityError].
func New(flows ...Flow) (*Catalog, error) {
	seen := make(map[models.FlowType]bool, len(flows))
	for _, f := range flows {
		if _, err := models.ParseFlowType(string(f.Type)); err != nil {
			return nil, &IntegrityError{Flow: f.Type, QuestionID: "", Reason: "unknown flow type"}
		}
		if seen[f.Type] {
			return nil, &IntegrityError{Flow: f.Type, QuestionID: "", Reason: "duplicate flow"}
		}
		seen[f.Type] = true
		if err := validateFlow(f); err != nil {
			return nil, err
		}
	}
	return &Catalog{flows: slices.Clone(flows)}, nil
}

func validateFlow(f Flow) error {
	if len(f.Questions) == 0 {
		return &IntegrityError{Flow: f.Type, QuestionID: "", Reason: "flow has no questions"}
	}
	position := make(map[string]int, len(f.Questions))
	for i, q := range f.Questions {
		if q.ID == "" {
			return &IntegrityError{Flow: f.Type, QuestionID: "", Reason: fmt.Sprintf("question %d has no id", i)}
		}
		if _, dup := position[q.ID]; dup {
			return &IntegrityError{Flow: f.Type, QuestionID: q.ID, Reason: "duplicate question id"}
		}
		position[q.ID] = i
	}

	for i, q := range f.Questions {
		fail := func(format string, args ...any) error {
			return &IntegrityError{Flow: f.Type, QuestionID: q.ID, Reason: fmt.Sprintf(format, args...)}
		}
		if !q.Type.valid() {
			return fail("unknown question type %q", q.Type)
		}
		if q.Type.hasOptions() && len(q.Options) == 0 {
			return fail("choice question without options")
		}
		if hasDuplicates(q.Options) {
			return fail("duplicate option")
		}
		if q.Type == NumericRange && q.Min >= q.Max {
			return fail("min %v must be below max %v", q.Min, q.Max)
		}
		if q.Dimension != "" && !slices.Contains(dimensions, q.Dimension) {
			return fail("unknown match dimension %q", q.Dimension)
		}
		if q.Visibility == nil {
			continue
		}
		var err error
		q.Visibility.conditions(func(ref string, values []string) {
			if err != nil {
				return
			}
			refPos, ok := position[ref]
			switch {
			case !ok:
				err = fail("visibility references unknown question %q", ref)
			case refPos == i:
				err = fail("visibility references itself")
			case refPos > i:
				err = fail("visibility references later question %q", ref)
			default:
				err = checkConditionValues(f.Questions[refPos], values, fail)
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// checkConditionValues rejects conditions on closed choice questions that can never hold.
func checkConditionValues(ref Question, values []string, fail func(string, ...any) error) error {
	if ref.Type != SingleChoice && ref.Type != MultipleChoice {
		return nil
	}
	for _, v := range values {
		if !slices.Contains(ref.Options, v) {
			return fail("visibility compares %q with unknown option %q", ref.ID, v)
		}
	}
	return nil
}

func hasDuplicates(values []string) bool {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if seen[v] {
			return true
		}
		seen[v] = true
	}
	return false
}

// Flow returns the flow of the given type.
func (c *Catalog) Flow(ft models.FlowType) (Flow, bool) {
	i := slices.IndexFunc(c.flows, func(f Flow) bool { return f.Type == ft })
	if i < 0 {
		return Flow{}, false //nolint:exhaustruct // not found
	}
	return c.flows[i], true
}

// Flows returns all flows in declared order.
func (c *Catalog) Flows() []Flow {
	return slices.Clone(c.flows)
}
