package models

import (
	"slices"
	"strings"
)

// AnswerKind discriminates the variants of [AnswerValue].
type AnswerKind string

const (
	AnswerText   AnswerKind = "text"
	AnswerMulti  AnswerKind = "multi"
	AnswerNumber AnswerKind = "number"
)

// freeformIndex marks a SelectedOption that carries user typed text instead of a catalog option.
const freeformIndex = -1

// SelectedOption is one entry of a multi-select answer. It is either a predefined option referenced by index or a
// freeform "other" text.
type SelectedOption struct {
	Index    int    `json:"index"`
	Freeform string `json:"freeform,omitempty"`
}

// Predefined selects the catalog option at index.
func Predefined(index int) SelectedOption {
	return SelectedOption{Index: index, Freeform: ""}
}

// Freeform carries the text typed into the "other" slot.
func Freeform(text string) SelectedOption {
	return SelectedOption{Index: freeformIndex, Freeform: text}
}

func (o SelectedOption) IsFreeform() bool {
	return o.Index == freeformIndex
}

// AnswerValue is a tagged union: exactly one of Text, Selected or Number is meaningful depending on Kind.
type AnswerValue struct {
	Kind     AnswerKind       `json:"kind"`
	Text     string           `json:"text,omitempty"`
	Selected []SelectedOption `json:"selected,omitempty"`
	Number   float64          `json:"number,omitempty"`
}

func TextAnswer(text string) AnswerValue {
	return AnswerValue{Kind: AnswerText, Text: text, Selected: nil, Number: 0}
}

func MultiAnswer(selected ...SelectedOption) AnswerValue {
	return AnswerValue{Kind: AnswerMulti, Text: "", Selected: slices.Clone(selected), Number: 0}
}

func NumberAnswer(n float64) AnswerValue {
	return AnswerValue{Kind: AnswerNumber, Text: "", Selected: nil, Number: n}
}

// IsEmpty reports whether the value counts as "not answered". Numbers are always present once set.
func (v AnswerValue) IsEmpty() bool {
	switch v.Kind {
	case AnswerText:
		return strings.TrimSpace(v.Text) == ""
	case AnswerMulti:
		return len(v.Selected) == 0
	case AnswerNumber:
		return false
	default:
		return true
	}
}

// Freeform returns the "other" text of a multi-select answer if there is one.
func (v AnswerValue) Freeform() (string, bool) {
	for _, o := range v.Selected {
		if o.IsFreeform() {
			return o.Freeform, true
		}
	}
	return "", false
}

// AnswerSet maps question ids to answers.
type AnswerSet map[string]AnswerValue

// Clone returns a deep copy so that the receiver can keep being mutated without affecting the copy.
func (a AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(a))
	for id, v := range a {
		v.Selected = slices.Clone(v.Selected)
		out[id] = v
	}
	return out
}
