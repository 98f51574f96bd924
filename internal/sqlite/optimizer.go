package sqlite

import (
	"context"
	"log/slog"
	"time"

	"github.com/myrjola/tripguide/internal/errors"
)

// Optimize runs PRAGMA optimize. Long-lived connections should run it periodically.
// See https://www.sqlite.org/pragma.html#pragma_optimize.
func (db *Database) Optimize(ctx context.Context) error {
	start := time.Now()
	if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		return errors.Wrap(err, "optimize database")
	}
	db.logger.LogAttrs(ctx, slog.LevelInfo, "optimized database", slog.Duration("duration", time.Since(start)))
	return nil
}
