package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/myrjola/tripguide/internal/ai"
	"github.com/myrjola/tripguide/internal/crm"
	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/internal/guide"
	"github.com/myrjola/tripguide/internal/matcher"
	"github.com/myrjola/tripguide/internal/models"
	"github.com/myrjola/tripguide/internal/questionnaire"
	"github.com/myrjola/tripguide/internal/repositories"
	"golang.org/x/sync/errgroup"
)

type resultsTemplateData struct {
	BaseTemplateData
	Flash          string
	GuideError     string
	GuideErrorKind ai.Kind
	Gate           guide.GateState
	Paragraphs     []string
	Experts        []models.MatchResult
	Fallback       *matcher.FallbackSuggestions
}

// completedSubmission redirects visitors without a completed flow and returns false for them.
func (app *application) completedSubmission(
	w http.ResponseWriter,
	r *http.Request,
	state *flowState,
) (models.Submission, bool) {
	switch state.session.Status() {
	case questionnaire.NotStarted:
		redirect(w, r, "/")
		return models.Submission{}, false //nolint:exhaustruct // redirected
	case questionnaire.InProgress:
		redirect(w, r, "/flow")
		return models.Submission{}, false //nolint:exhaustruct // redirected
	case questionnaire.Completed:
	}
	sub, err := state.session.Submission()
	if err != nil {
		app.serverError(w, r, err)
		return models.Submission{}, false //nolint:exhaustruct // error path
	}
	return sub, true
}

// results shows the gated guide next to the matching experts. Both are produced concurrently.
func (app *application) results(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := app.loadFlow(ctx)
	sub, ok := app.completedSubmission(w, r, state)
	if !ok {
		return
	}

	var (
		generated models.Guide
		guideErr  *ai.Error
		match     matcher.Result
		tags      = state.tags
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if generated, err = app.guideFor(gctx, state, sub); err != nil {
			if errors.As(err, &guideErr) {
				app.logger.LogAttrs(ctx, slog.LevelWarn, "guide unavailable", errors.SlogError(err))
				return nil
			}
			return err
		}
		return nil
	})
	g.Go(func() error {
		if len(tags) == 0 {
			tags = app.tagger.Extract(gctx, sub)
		}
		pool, err := app.experts.List(gctx)
		if err != nil {
			return err
		}
		match = matcher.FindExperts(matcher.BuildQuery(sub, tags), pool)
		return nil
	})
	if err := g.Wait(); err != nil {
		app.serverError(w, r, err)
		return
	}

	changed := len(state.tags) == 0 && len(tags) > 0
	state.tags = tags
	if generated.ID != "" && generated.ID != state.guideID {
		state.guideID = generated.ID
		changed = true
	}
	if changed {
		if err := app.saveFlow(ctx, state); err != nil {
			app.serverError(w, r, err)
			return
		}
	}

	gate := state.gate.State()
	data := resultsTemplateData{
		BaseTemplateData: app.newBaseTemplateData(r, state),
		Flash:            app.sessionManager.PopString(ctx, flashSessionKey),
		GuideError:       "",
		GuideErrorKind:   "",
		Gate:             gate,
		Paragraphs:       paragraphs(guide.Disclose(generated.Content, gate)),
		Experts:          match.Experts,
		Fallback:         match.Fallback,
	}
	status := http.StatusOK
	if guideErr != nil {
		data.GuideError = guideErr.UserMessage()
		data.GuideErrorKind = guideErr.Kind
		status = http.StatusBadGateway
		if guideErr.Kind == ai.KindRateLimited || guideErr.Kind == ai.KindQuota {
			status = http.StatusServiceUnavailable
		}
	}
	app.render(w, r, status, "results", data)
}

// guideFor returns the guide of the visitor's session, a stored guide for the same answers, or generates a new one.
func (app *application) guideFor(ctx context.Context, state *flowState, sub models.Submission) (models.Guide, error) {
	if state.guideID != "" {
		g, err := app.guides.Get(ctx, state.guideID)
		if err == nil {
			return g, nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return models.Guide{}, err //nolint:exhaustruct // error path
		}
	}

	key := guide.SubmissionKey(sub)
	g, err := app.guides.LatestForSubmission(ctx, key)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return models.Guide{}, err //nolint:exhaustruct // error path
	}

	if g, err = app.guideService.Request(ctx, sub); err != nil {
		return models.Guide{}, err //nolint:exhaustruct // error path
	}
	if err = app.guides.Save(ctx, key, g); err != nil {
		// A concurrent request for the same answers may have stored its copy first. The guide is still good.
		app.logger.LogAttrs(ctx, slog.LevelWarn, "could not store guide", errors.SlogError(err))
	}
	return g, nil
}

func paragraphs(content string) []string {
	var out []string
	for _, p := range strings.Split(content, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

const (
	invalidContactFlash = "Please enter a valid email address and your first name."
	crmFailureFlash     = "We could not save your details right now. Please try again in a moment."
	unlockedFlash       = "Thanks! Enjoy your full guide."
)

// unlock hands the contact to the CRM. The gate opens only once the CRM accepted it.
func (app *application) unlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := app.loadFlow(ctx)
	sub, ok := app.completedSubmission(w, r, state)
	if !ok {
		return
	}
	if !state.gate.State().IsLocked {
		redirect(w, r, "/results")
		return
	}

	contact := crm.Contact{
		Email:     r.PostFormValue("email"),
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		FlowType:  sub.FlowType,
		Tags:      nil,
		Summary:   sub.Text(),
	}
	if err := contact.Validate(); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelDebug, "invalid contact", errors.SlogError(err))
		app.sessionManager.Put(ctx, flashSessionKey, invalidContactFlash)
		redirect(w, r, "/results")
		return
	}
	contact.Tags = app.tagsFor(ctx, state, sub)

	submission := repositories.ContactSubmission{
		ID:          0,
		Email:       contact.Email,
		FirstName:   contact.FirstName,
		LastName:    contact.LastName,
		FlowType:    sub.FlowType.String(),
		GuideID:     state.guideID,
		CRMID:       "",
		Failure:     "",
		SubmittedAt: app.now(),
	}
	crmID, err := app.crm.CreateContact(ctx, contact)
	if err != nil {
		submission.Failure = err.Error()
		app.logger.LogAttrs(ctx, slog.LevelWarn, "crm rejected contact", errors.SlogError(err))
		app.recordContact(ctx, submission)
		app.sessionManager.Put(ctx, flashSessionKey, crmFailureFlash)
		redirect(w, r, "/results")
		return
	}
	submission.CRMID = crmID

	// The CRM holds the contact now, so the gate opens even if the audit row cannot be written.
	state.gate.Unlock()
	if err = app.saveFlow(ctx, state); err != nil {
		app.serverError(w, r, err)
		return
	}
	app.recordContact(ctx, submission)
	app.sessionManager.Put(ctx, flashSessionKey, unlockedFlash)
	app.logger.LogAttrs(ctx, slog.LevelInfo, "guide unlocked", slog.String("guide_id", state.guideID))
	redirect(w, r, "/results")
}

// recordContact writes the audit row of a contact submission. A failure is logged and does not affect the visitor.
func (app *application) recordContact(ctx context.Context, submission repositories.ContactSubmission) {
	if _, err := app.contacts.Record(ctx, submission); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelError, "could not record contact", errors.SlogError(err),
			slog.Bool("crm_accepted", submission.Succeeded()))
	}
}

// tagsFor prefers the tags of the generated guide, then the tags cached for the flow, and extracts them otherwise.
func (app *application) tagsFor(ctx context.Context, state *flowState, sub models.Submission) models.TagSet {
	if state.guideID != "" {
		if g, err := app.guides.Get(ctx, state.guideID); err == nil && len(g.Tags) > 0 {
			return g.Tags
		}
	}
	if len(state.tags) > 0 {
		return state.tags
	}
	return app.tagger.Extract(ctx, sub)
}
