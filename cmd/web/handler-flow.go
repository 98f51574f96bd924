package main

import (
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/myrjola/tripguide/internal/catalog"
	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/internal/models"
	"github.com/myrjola/tripguide/internal/questionnaire"
)

type choice struct {
	Label   string
	Index   int
	Checked bool
}

type flowTemplateData struct {
	BaseTemplateData
	Question        catalog.Question
	ProgressPercent int
	Position        int
	Total           int
	IsLast          bool
	Error           string
	Choices         []choice
	Other           string
	Text            string
}

func (app *application) newFlowTemplateData(r *http.Request, state *flowState, message string) (flowTemplateData, bool) {
	q, ok := state.session.Current()
	if !ok {
		return flowTemplateData{}, false //nolint:exhaustruct // not in progress
	}
	cursor, total := state.session.Position()
	data := flowTemplateData{
		BaseTemplateData: app.newBaseTemplateData(r, state),
		Question:         q,
		ProgressPercent:  int(math.Round(state.session.Progress() * 100)), //nolint:mnd // percent
		Position:         cursor + 1,
		Total:            total,
		IsLast:           state.session.IsLast(),
		Error:            message,
		Choices:          make([]choice, len(q.Options)),
		Other:            "",
		Text:             "",
	}
	answer, _ := state.session.Answer(q.ID)
	for i, label := range q.Options {
		data.Choices[i] = choice{Label: label, Index: i, Checked: false}
		switch answer.Kind {
		case models.AnswerText:
			data.Choices[i].Checked = answer.Text == label
		case models.AnswerMulti:
			data.Choices[i].Checked = slices.Contains(answer.Selected, models.Predefined(i))
		case models.AnswerNumber:
		}
	}
	switch answer.Kind {
	case models.AnswerText:
		data.Text = answer.Text
	case models.AnswerNumber:
		data.Text = strconv.FormatFloat(answer.Number, 'f', -1, 64)
	case models.AnswerMulti:
		data.Other, _ = answer.Freeform()
	}
	return data, true
}

// flowStart begins the chosen flow, replacing any earlier questionnaire. An unlocked gate stays unlocked.
func (app *application) flowStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ft, err := models.ParseFlowType(r.PostFormValue("flow_type"))
	if err != nil {
		app.clientError(w, r, http.StatusBadRequest, err)
		return
	}
	state := app.loadFlow(ctx)
	state.session.Reset()
	state.guideID = ""
	state.tags = nil
	if err = state.session.Start(ft); err != nil {
		app.clientError(w, r, http.StatusBadRequest, err)
		return
	}
	if err = app.saveFlow(ctx, state); err != nil {
		app.serverError(w, r, err)
		return
	}
	app.logger.LogAttrs(ctx, slog.LevelInfo, "flow started", slog.String("flow_type", ft.String()))
	redirect(w, r, "/flow")
}

func (app *application) flowShow(w http.ResponseWriter, r *http.Request) {
	state := app.loadFlow(r.Context())
	switch state.session.Status() {
	case questionnaire.NotStarted:
		redirect(w, r, "/")
		return
	case questionnaire.Completed:
		redirect(w, r, "/results")
		return
	case questionnaire.InProgress:
	}
	data, _ := app.newFlowTemplateData(r, state, "")
	app.render(w, r, http.StatusOK, "flow", data)
}

// flowAnswer records the answer to the posted question and moves on. Answering the last question completes the flow.
func (app *application) flowAnswer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest, err)
		return
	}
	state := app.loadFlow(ctx)
	if !state.inProgress() {
		app.clientError(w, r, http.StatusConflict, errors.Wrap(questionnaire.ErrInvalidTransition, "answer"))
		return
	}

	questionID := r.PostForm.Get("question_id")
	flow, _ := app.catalog.Flow(state.session.FlowType())
	q, ok := flow.Question(questionID)
	if !ok {
		app.flowError(w, r, state,
			errors.Wrap(questionnaire.ErrUnknownQuestion, "answer", slog.String("question_id", questionID)))
		return
	}

	value, present, err := parseAnswer(q, r.PostForm)
	if err != nil {
		app.flowError(w, r, state, err)
		return
	}
	if present {
		if err = state.session.SetAnswer(q.ID, value); err != nil {
			app.flowError(w, r, state, err)
			return
		}
	}

	next := "/flow"
	if current, _ := state.session.Current(); current.ID == q.ID {
		if state.session.IsLast() {
			var sub models.Submission
			if sub, err = state.session.Complete(); err != nil {
				app.flowError(w, r, state, err)
				return
			}
			app.logger.LogAttrs(ctx, slog.LevelInfo, "flow completed",
				slog.String("flow_type", sub.FlowType.String()),
				slog.Int("answers", len(sub.Entries)),
			)
			next = "/results"
		} else if err = state.session.Next(); err != nil {
			app.flowError(w, r, state, err)
			return
		}
	}

	if err = app.saveFlow(ctx, state); err != nil {
		app.serverError(w, r, err)
		return
	}
	redirect(w, r, next)
}

func (app *application) flowBack(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := app.loadFlow(ctx)
	if err := state.session.Previous(); err != nil {
		app.flowError(w, r, state, err)
		return
	}
	if err := app.saveFlow(ctx, state); err != nil {
		app.serverError(w, r, err)
		return
	}
	redirect(w, r, "/flow")
}

// flowReset forgets everything about the visitor, including an unlocked gate.
func (app *application) flowReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	app.clearFlow(ctx)
	if err := app.sessionManager.RenewToken(ctx); err != nil {
		app.serverError(w, r, errors.Wrap(err, "renew session token"))
		return
	}
	if h := app.htmx.NewHandler(w, r); h.IsHxRequest() {
		h.Redirect("/")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	redirect(w, r, "/")
}

// flowError maps questionnaire errors to responses. Answers the user can fix re-render the question with a message.
func (app *application) flowError(w http.ResponseWriter, r *http.Request, state *flowState, err error) {
	var message string
	switch {
	case errors.Is(err, questionnaire.ErrOutOfSequenceWrite), errors.Is(err, questionnaire.ErrInvalidTransition):
		app.clientError(w, r, http.StatusConflict, err)
		return
	case errors.Is(err, questionnaire.ErrCurrentInvalid):
		message = "Please answer this question before moving on."
	case errors.Is(err, questionnaire.ErrInvalidAnswer):
		message = "That answer does not fit this question, please check it."
	case errors.Is(err, questionnaire.ErrUnknownQuestion):
		message = "That question is not part of this trip any more."
	default:
		app.serverError(w, r, err)
		return
	}
	app.logger.LogAttrs(r.Context(), slog.LevelDebug, "rejected answer", errors.SlogError(err))
	data, ok := app.newFlowTemplateData(r, state, message)
	if !ok {
		app.clientError(w, r, http.StatusConflict, err)
		return
	}
	app.render(w, r, http.StatusUnprocessableEntity, "flow", data)
}

// parseAnswer reads the answer to q from the posted form. present is false when the form carries no answer at all.
func parseAnswer(q catalog.Question, form url.Values) (models.AnswerValue, bool, error) {
	switch q.Type {
	case catalog.SingleChoice, catalog.FreeText:
		text := strings.TrimSpace(form.Get("value"))
		return models.TextAnswer(text), true, nil
	case catalog.NumericRange:
		raw := strings.TrimSpace(form.Get("value"))
		if raw == "" {
			return models.AnswerValue{}, false, nil //nolint:exhaustruct // absent
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return models.AnswerValue{}, false, errors.Wrap(questionnaire.ErrInvalidAnswer, "parse number", //nolint:exhaustruct,lll // error path
				slog.String("question_id", q.ID))
		}
		return models.NumberAnswer(n), true, nil
	case catalog.MultipleChoice, catalog.MultipleChoiceOther:
		selected := make([]models.SelectedOption, 0, len(form["option"]))
		for _, raw := range form["option"] {
			i, err := strconv.Atoi(raw)
			if err != nil {
				return models.AnswerValue{}, false, errors.Wrap(questionnaire.ErrInvalidAnswer, "parse option", //nolint:exhaustruct,lll // error path
					slog.String("question_id", q.ID))
			}
			selected = append(selected, models.Predefined(i))
		}
		if other := strings.TrimSpace(form.Get("other")); other != "" {
			selected = append(selected, models.Freeform(other))
		}
		return models.MultiAnswer(selected...), true, nil
	default:
		return models.AnswerValue{}, false, errors.Wrap(questionnaire.ErrInvalidAnswer, "unknown question type", //nolint:exhaustruct,lll // error path
			slog.String("question_type", string(q.Type)))
	}
}
