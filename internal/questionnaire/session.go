package questionnaire

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/myrjola/tripguide/internal/catalog"
	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/internal/models"
)

// Status is the lifecycle state of a [Session].
type Status string

const (
	NotStarted Status = "not-started"
	InProgress Status = "in-progress"
	Completed  Status = "completed"
)

var (
	ErrInvalidTransition  = errors.NewSentinel("invalid transition")
	ErrOutOfSequenceWrite = errors.NewSentinel("out of sequence write")
	ErrUnknownQuestion    = errors.NewSentinel("unknown question")
	ErrCurrentInvalid     = errors.NewSentinel("current question not answered")
	ErrInvalidAnswer      = catalog.ErrInvalidAnswer
)

// Session walks a user through one flow of the catalog.
//
// The visible question list is recomputed from the catalog and the answers after every write. Answers to questions
// that become invisible are kept so that toggling a branch back restores them, but they never leave the session
// through [Session.Snapshot] or [Session.Complete].
type Session struct {
	mu      sync.Mutex
	catalog *catalog.Catalog
	now     func() time.Time

	status      Status
	flow        catalog.Flow
	answers     models.AnswerSet
	visible     []catalog.Question
	cursor      int
	startedAt   time.Time
	completedAt time.Time
}

type Option func(*Session)

// WithClock replaces time.Now for the start and completion timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// New creates a session in the NotStarted state.
func New(c *catalog.Catalog, opts ...Option) *Session {
	s := &Session{ //nolint:exhaustruct // zero values are the NotStarted state
		catalog: c,
		now:     time.Now,
		status:  NotStarted,
		answers: models.AnswerSet{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start moves NotStarted to InProgress on the first question of the flow.
func (s *Session) Start(ft models.FlowType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != NotStarted {
		return errors.Wrap(ErrInvalidTransition, "start", slog.String("status", string(s.status)))
	}
	flow, ok := s.catalog.Flow(ft)
	if !ok {
		return errors.Wrap(models.ErrUnknownFlowType, "start", slog.String("flow_type", string(ft)))
	}
	s.flow = flow
	s.answers = models.AnswerSet{}
	s.cursor = 0
	s.startedAt = s.now()
	s.status = InProgress
	s.recompute()
	return nil
}

// SetAnswer records value for questionID. Only the current question and visible questions before it may be written.
func (s *Session) SetAnswer(questionID string, value models.AnswerValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != InProgress {
		return errors.Wrap(ErrInvalidTransition, "set answer", slog.String("status", string(s.status)))
	}
	question, ok := s.flow.Question(questionID)
	if !ok {
		return errors.Wrap(ErrUnknownQuestion, "set answer", slog.String("question_id", questionID))
	}
	pos := s.visibleIndex(questionID)
	if pos < 0 || pos > s.cursor {
		return errors.Wrap(ErrOutOfSequenceWrite, "set answer",
			slog.String("question_id", questionID),
			slog.Int("position", pos),
			slog.Int("cursor", s.cursor),
		)
	}
	if err := question.Validate(value); err != nil {
		return errors.Wrap(err, "set answer")
	}

	current := s.visible[s.cursor].ID
	value.Selected = slices.Clone(value.Selected)
	s.answers[questionID] = value
	s.recompute()

	// Follow the question the user was looking at if it survived, otherwise stay within bounds.
	if i := s.visibleIndex(current); i >= 0 {
		s.cursor = i
	} else {
		s.cursor = min(s.cursor, len(s.visible)-1)
	}
	return nil
}

// Next advances to the following visible question. At the last question it does nothing; use [Session.Complete].
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != InProgress {
		return errors.Wrap(ErrInvalidTransition, "next", slog.String("status", string(s.status)))
	}
	if !s.isCurrentValid() {
		return errors.Wrap(ErrCurrentInvalid, "next", slog.String("question_id", s.visible[s.cursor].ID))
	}
	if s.cursor < len(s.visible)-1 {
		s.cursor++
	}
	return nil
}

// Previous steps back one question. It does nothing on the first question.
func (s *Session) Previous() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != InProgress {
		return errors.Wrap(ErrInvalidTransition, "previous", slog.String("status", string(s.status)))
	}
	if s.cursor > 0 {
		s.cursor--
	}
	return nil
}

// IsCurrentValid reports whether the current question is optional or has a non-empty answer.
func (s *Session) IsCurrentValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == InProgress && s.isCurrentValid()
}

func (s *Session) isCurrentValid() bool {
	return s.isAnsweredOrOptional(s.visible[s.cursor])
}

func (s *Session) isAnsweredOrOptional(q catalog.Question) bool {
	if !q.Required {
		return true
	}
	v, ok := s.answers[q.ID]
	return ok && q.IsAnswered(v)
}

// Complete freezes the answers. It is legal only on the last visible question once it is valid.
func (s *Session) Complete() (models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != InProgress {
		return models.Submission{}, errors.Wrap(ErrInvalidTransition, "complete", //nolint:exhaustruct // error path
			slog.String("status", string(s.status)))
	}
	if s.cursor != len(s.visible)-1 {
		return models.Submission{}, errors.Wrap(ErrInvalidTransition, "complete before last question", //nolint:exhaustruct // error path
			slog.Int("cursor", s.cursor),
			slog.Int("visible", len(s.visible)),
		)
	}
	for _, q := range s.visible {
		if !s.isAnsweredOrOptional(q) {
			return models.Submission{}, errors.Wrap(ErrCurrentInvalid, "complete", //nolint:exhaustruct // error path
				slog.String("question_id", q.ID))
		}
	}

	s.completedAt = s.now()
	s.status = Completed
	return s.submission(), nil
}

// Snapshot returns a copy of the answers to currently visible questions.
func (s *Session) Snapshot() models.AnswerSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() models.AnswerSet {
	out := models.AnswerSet{}
	for _, q := range s.visible {
		if v, ok := s.answers[q.ID]; ok && q.IsAnswered(v) {
			out[q.ID] = v
		}
	}
	return out.Clone()
}

func (s *Session) submission() models.Submission {
	answers := s.snapshot()
	entries := make([]models.AnsweredQuestion, 0, len(answers))
	for _, q := range s.visible {
		if v, ok := answers[q.ID]; ok {
			entries = append(entries, q.Entry(v))
		}
	}
	return models.Submission{
		FlowType:    s.flow.Type,
		Answers:     answers,
		Entries:     entries,
		StartedAt:   s.startedAt,
		CompletedAt: s.completedAt,
	}
}

// Submission returns the frozen submission of a completed session.
func (s *Session) Submission() (models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != Completed {
		return models.Submission{}, errors.Wrap(ErrInvalidTransition, "submission", //nolint:exhaustruct // error path
			slog.String("status", string(s.status)))
	}
	return s.submission(), nil
}

// Reset discards everything and returns to NotStarted.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = NotStarted
	s.flow = catalog.Flow{} //nolint:exhaustruct // cleared
	s.answers = models.AnswerSet{}
	s.visible = nil
	s.cursor = 0
	s.startedAt = time.Time{}
	s.completedAt = time.Time{}
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) FlowType() models.FlowType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flow.Type
}

// Current returns the question under the cursor. The second result is false unless the session is in progress.
func (s *Session) Current() (catalog.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != InProgress {
		return catalog.Question{}, false //nolint:exhaustruct // no current question
	}
	return s.visible[s.cursor], true
}

// Visible returns the currently visible questions.
func (s *Session) Visible() []catalog.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.visible)
}

// Position returns the zero based cursor and the number of visible questions.
func (s *Session) Position() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor, len(s.visible)
}

// Progress is the fraction of the visible questions already behind the cursor.
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.status == Completed:
		return 1
	case s.status != InProgress || len(s.visible) == 0:
		return 0
	default:
		return float64(s.cursor) / float64(len(s.visible))
	}
}

// IsLast reports whether the cursor is on the last visible question.
func (s *Session) IsLast() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == InProgress && s.cursor == len(s.visible)-1
}

// Answer returns the stored answer for questionID, including answers to questions that are currently hidden.
func (s *Session) Answer(questionID string) (models.AnswerValue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.answers[questionID]
	if !ok {
		return models.AnswerValue{}, false //nolint:exhaustruct // not answered
	}
	v.Selected = slices.Clone(v.Selected)
	return v, true
}

func (s *Session) recompute() {
	s.visible = catalog.VisibleQuestions(s.flow.Questions, s.answers)
}

func (s *Session) visibleIndex(questionID string) int {
	return slices.IndexFunc(s.visible, func(q catalog.Question) bool { return q.ID == questionID })
}
