package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/internal/repositories"
	"github.com/myrjola/tripguide/internal/sqlite"
	"github.com/myrjola/tripguide/internal/testhelpers"
)

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	var (
		err       error
		start     = time.Now()
		ctx       context.Context
		sqliteURL string
		ok        bool
		cancel    context.CancelFunc
	)
	ctx = context.Background()
	ctx, cancel = context.WithTimeout(ctx, 5*time.Second) //nolint:mnd // 5 seconds

	if sqliteURL, ok = os.LookupEnv("TRIPGUIDE_SQLITE_URL"); !ok {
		logger.LogAttrs(ctx, slog.LevelError, "TRIPGUIDE_SQLITE_URL not set")
		os.Exit(1)
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, sqliteURL, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating database",
			slog.String("url", sqliteURL), errors.SlogError(err))
		os.Exit(1)
	}

	// Read the expert directory through the repository as a simple smoke test of the migrated schema.
	experts, err := repositories.NewExpertRepository(db, logger).List(ctx)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error listing experts", errors.SlogError(err))
		os.Exit(1)
	}
	if len(experts) == 0 {
		logger.LogAttrs(ctx, slog.LevelError, "no experts found, something is likely wrong")
		os.Exit(1)
	}
	var guides int
	if err = db.ReadOnly.GetContext(ctx, &guides, `SELECT COUNT(*) FROM guides`); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error counting guides", errors.SlogError(err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "directory intact",
		slog.Int("experts", len(experts)), slog.Int("guides", guides))
	if err = db.Close(); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error closing database", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Migration test successful 🙌", slog.Duration("duration", time.Since(start)))
	cancel()
	os.Exit(0)
}
