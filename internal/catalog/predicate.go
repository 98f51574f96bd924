package catalog

import "slices"

// Predicate decides whether a question is visible given the resolved values of earlier visible questions.
//
// A question without a value counts as "does not equal" and "is not in" anything. For multi-select answers Equals
// holds when any selected value equals the target.
type Predicate interface {
	Eval(values map[string][]string) bool
	// conditions visits the referenced question ids together with the values they are compared against.
	conditions(visit func(questionID string, values []string))
}

type always struct{}

// Always is the predicate of unconditional questions.
func Always() Predicate { return always{} }

func (always) Eval(map[string][]string) bool       { return true }
func (always) conditions(func(string, []string)) {}

type valueIn struct {
	questionID string
	values     []string
	negate     bool
}

// Equals holds when the answer to questionID is value.
func Equals(questionID, value string) Predicate {
	return valueIn{questionID: questionID, values: []string{value}, negate: false}
}

// NotEquals holds when the answer to questionID is absent or not value.
func NotEquals(questionID, value string) Predicate {
	return valueIn{questionID: questionID, values: []string{value}, negate: true}
}

// ValueIn holds when the answer to questionID shares at least one value with values.
func ValueIn(questionID string, values ...string) Predicate {
	return valueIn{questionID: questionID, values: values, negate: false}
}

// NotIn holds when the answer to questionID is absent or shares no value with values.
func NotIn(questionID string, values ...string) Predicate {
	return valueIn{questionID: questionID, values: values, negate: true}
}

func (p valueIn) Eval(answers map[string][]string) bool {
	hit := false
	for _, v := range answers[p.questionID] {
		if slices.Contains(p.values, v) {
			hit = true
			break
		}
	}
	return hit != p.negate
}

func (p valueIn) conditions(visit func(string, []string)) {
	visit(p.questionID, p.values)
}

type all []Predicate

// All is the conjunction of predicates. All() with no predicates always holds.
func All(predicates ...Predicate) Predicate {
	return all(predicates)
}

func (p all) Eval(answers map[string][]string) bool {
	for _, sub := range p {
		if sub != nil && !sub.Eval(answers) {
			return false
		}
	}
	return true
}

func (p all) conditions(visit func(string, []string)) {
	for _, sub := range p {
		if sub != nil {
			sub.conditions(visit)
		}
	}
}
