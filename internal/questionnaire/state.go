package questionnaire

import (
	"log/slog"
	"time"

	"github.com/myrjola/tripguide/internal/catalog"
	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/internal/models"
)

// State is the serialisable form of a [Session].
type State struct {
	FlowType          models.FlowType  `json:"flow_type,omitempty"`
	Status            Status           `json:"status"`
	Answers           models.AnswerSet `json:"answers,omitempty"`
	CurrentQuestionID string           `json:"current_question_id,omitempty"`
	StartedAt         time.Time        `json:"started_at"`
	CompletedAt       time.Time        `json:"completed_at"`
}

// State captures the session for persistence.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := State{
		FlowType:          s.flow.Type,
		Status:            s.status,
		Answers:           s.answers.Clone(),
		CurrentQuestionID: "",
		StartedAt:         s.startedAt,
		CompletedAt:       s.completedAt,
	}
	if s.status == InProgress {
		state.CurrentQuestionID = s.visible[s.cursor].ID
	}
	return state
}

// Restore rebuilds a session from state against the current catalog.
//
// Answers to questions the catalog no longer has, or that no longer validate, are dropped. Visibility is recomputed
// and the cursor returns to the saved question when it is still visible.
func Restore(c *catalog.Catalog, state State, opts ...Option) (*Session, error) {
	s := New(c, opts...)
	switch state.Status {
	case NotStarted, "":
		return s, nil
	case InProgress, Completed:
	default:
		return nil, errors.Wrap(ErrInvalidTransition, "restore unknown status", slog.String("status", string(state.Status)))
	}

	flow, ok := c.Flow(state.FlowType)
	if !ok {
		return nil, errors.Wrap(models.ErrUnknownFlowType, "restore", slog.String("flow_type", string(state.FlowType)))
	}
	s.flow = flow
	s.status = state.Status
	s.startedAt = state.StartedAt
	s.completedAt = state.CompletedAt
	for id, v := range state.Answers {
		if q, found := flow.Question(id); found && q.Validate(v) == nil {
			s.answers[id] = v
		}
	}
	s.recompute()
	if i := s.visibleIndex(state.CurrentQuestionID); i >= 0 {
		s.cursor = i
	}
	if s.status == Completed {
		s.cursor = len(s.visible) - 1
	}
	return s, nil
}
