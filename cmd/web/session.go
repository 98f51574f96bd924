package main

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/internal/guide"
	"github.com/myrjola/tripguide/internal/models"
	"github.com/myrjola/tripguide/internal/questionnaire"
)

const (
	flowSessionKey    = "flow"
	guideIDSessionKey = "guide_id"
	tagsSessionKey    = "tags"
	gateSessionKey    = "gate_unlocked"
	flashSessionKey   = "flash"
)

// flowState is everything a visitor's cookie session carries.
type flowState struct {
	session *questionnaire.Session
	// guideID refers to the guide generated for the completed flow, empty until there is one.
	guideID string
	// tags caches the tags extracted from the completed flow. Delegated extraction costs a generation call.
	tags models.TagSet
	gate *guide.Gate
}

func (s *flowState) inProgress() bool {
	return s.session.Status() == questionnaire.InProgress
}

// loadFlow restores the visitor's questionnaire. A state that no longer fits the catalog starts over.
func (app *application) loadFlow(ctx context.Context) *flowState {
	var state questionnaire.State
	if raw := app.sessionManager.GetBytes(ctx, flowSessionKey); raw != nil {
		if err := json.Unmarshal(raw, &state); err != nil {
			app.logger.LogAttrs(ctx, slog.LevelWarn, "discarding unreadable flow state", errors.SlogError(err))
			state = questionnaire.State{} //nolint:exhaustruct // NotStarted
		}
	}
	session, err := questionnaire.Restore(app.catalog, state, questionnaire.WithClock(app.now))
	if err != nil {
		app.logger.LogAttrs(ctx, slog.LevelWarn, "discarding stale flow state", errors.SlogError(err))
		session = questionnaire.New(app.catalog, questionnaire.WithClock(app.now))
	}
	var tags models.TagSet
	if raw := app.sessionManager.GetBytes(ctx, tagsSessionKey); raw != nil {
		if err = json.Unmarshal(raw, &tags); err != nil {
			app.logger.LogAttrs(ctx, slog.LevelWarn, "discarding unreadable tags", errors.SlogError(err))
			tags = nil
		}
	}
	return &flowState{
		session: session,
		guideID: app.sessionManager.GetString(ctx, guideIDSessionKey),
		tags:    tags,
		gate:    guide.NewGate(app.sessionManager.GetBool(ctx, gateSessionKey)),
	}
}

func (app *application) saveFlow(ctx context.Context, s *flowState) error {
	raw, err := json.Marshal(s.session.State())
	if err != nil {
		return errors.Wrap(err, "marshal flow state")
	}
	app.sessionManager.Put(ctx, flowSessionKey, raw)
	if s.guideID == "" {
		app.sessionManager.Remove(ctx, guideIDSessionKey)
	} else {
		app.sessionManager.Put(ctx, guideIDSessionKey, s.guideID)
	}
	if len(s.tags) == 0 {
		app.sessionManager.Remove(ctx, tagsSessionKey)
	} else {
		if raw, err = json.Marshal(s.tags); err != nil {
			return errors.Wrap(err, "marshal tags")
		}
		app.sessionManager.Put(ctx, tagsSessionKey, raw)
	}
	app.sessionManager.Put(ctx, gateSessionKey, !s.gate.State().IsLocked)
	return nil
}

// clearFlow forgets the questionnaire, the guide and the gate.
func (app *application) clearFlow(ctx context.Context) {
	for _, key := range []string{flowSessionKey, guideIDSessionKey, tagsSessionKey, gateSessionKey, flashSessionKey} {
		app.sessionManager.Remove(ctx, key)
	}
}
