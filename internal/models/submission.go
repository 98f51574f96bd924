package models

import (
	"strconv"
	"strings"
	"time"
)

// AnsweredQuestion is a resolved, human-readable view of one answer in a completed flow.
type AnsweredQuestion struct {
	QuestionID string
	Prompt     string
	// Dimension names the matcher query dimension the question feeds, empty if none.
	Dimension string
	// Values holds option labels and freeform text. Empty for numeric answers.
	Values []string
	Number *float64
}

// Submission is the frozen result of a completed flow. Answers contains only questions visible at completion.
type Submission struct {
	FlowType    FlowType
	Answers     AnswerSet
	Entries     []AnsweredQuestion
	StartedAt   time.Time
	CompletedAt time.Time
}

// Text formats the submission as "prompt: answer" lines in question order.
func (s Submission) Text() string {
	var b strings.Builder
	b.WriteString("Flow: ")
	b.WriteString(string(s.FlowType))
	b.WriteByte('\n')
	for _, e := range s.Entries {
		b.WriteString(e.Prompt)
		b.WriteString(": ")
		if e.Number != nil {
			b.WriteString(strconv.FormatFloat(*e.Number, 'f', -1, 64))
		} else {
			b.WriteString(strings.Join(e.Values, ", "))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Corpus concatenates all string-valued answers into one lowercase string.
func (s Submission) Corpus() string {
	var parts []string
	for _, e := range s.Entries {
		parts = append(parts, e.Values...)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// DimensionValues returns the answer values of every entry feeding dimension.
func (s Submission) DimensionValues(dimension string) []string {
	var out []string
	for _, e := range s.Entries {
		if e.Dimension == dimension {
			out = append(out, e.Values...)
		}
	}
	return out
}
