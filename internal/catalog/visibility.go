package catalog

import "github.com/myrjola/tripguide/internal/models"

// VisibleQuestions returns the questions to ask, in declared order, given the current answers.
//
// Predicates only reference earlier questions so a single pass suffices. Only answers to questions that are
// themselves visible take part in the evaluation, so pruning cascades down the flow.
func VisibleQuestions(questions []Question, answers models.AnswerSet) []Question {
	resolved := make(map[string][]string, len(answers))
	visible := make([]Question, 0, len(questions))
	for _, q := range questions {
		if q.Visibility != nil && !q.Visibility.Eval(resolved) {
			continue
		}
		visible = append(visible, q)
		if v, ok := answers[q.ID]; ok && q.IsAnswered(v) {
			resolved[q.ID] = q.Values(v)
		}
	}
	return visible
}
