package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/internal/sqlite"
	"github.com/robfig/cron/v3"
)

const (
	optimizeSchedule = "@hourly"
	purgeSchedule    = "@daily"
)

// cronLogger adapts slog to the logger interface of cron.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, errors.SlogError(err))...)
}

// scheduleMaintenance starts the background jobs. Stop the returned scheduler on shutdown.
func (app *application) scheduleMaintenance(
	ctx context.Context,
	db *sqlite.Database,
	guideRetention time.Duration,
) (*cron.Cron, error) {
	logger := app.logger.With("source", "maintenance")
	c := cron.New(cron.WithLogger(cronLogger{logger: logger}), cron.WithChain(cron.Recover(cronLogger{logger: logger})))
	// A job that already started finishes even when ctx is cancelled; Stop waits for it.
	jobCtx := context.WithoutCancel(ctx)

	if _, err := c.AddFunc(optimizeSchedule, func() {
		if err := db.Optimize(jobCtx); err != nil {
			logger.LogAttrs(jobCtx, slog.LevelError, "optimize database", errors.SlogError(err))
		}
	}); err != nil {
		return nil, errors.Wrap(err, "schedule optimize", slog.String("schedule", optimizeSchedule))
	}

	if _, err := c.AddFunc(purgeSchedule, func() {
		cutoff := app.now().Add(-guideRetention)
		if _, err := app.guides.PurgeOlderThan(jobCtx, cutoff); err != nil {
			logger.LogAttrs(jobCtx, slog.LevelError, "purge guides", errors.SlogError(err))
		}
	}); err != nil {
		return nil, errors.Wrap(err, "schedule guide purge", slog.String("schedule", purgeSchedule))
	}

	c.Start()
	return c, nil
}
