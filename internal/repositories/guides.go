package repositories

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/internal/models"
	"github.com/myrjola/tripguide/internal/sqlite"
)

// timestampFormat has a fixed width so that timestamps stored as text sort chronologically.
const timestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

type GuideRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewGuideRepository(db *sqlite.Database, logger *slog.Logger) *GuideRepository {
	return &GuideRepository{
		db:     db,
		logger: logger.With("source", "GuideRepository"),
	}
}

type guideRow struct {
	ID            string `db:"id"`
	SubmissionKey string `db:"submission_key"`
	FlowType      string `db:"flow_type"`
	Content       string `db:"content"`
	Tags          string `db:"tags"`
	GeneratedAt   string `db:"generated_at"`
}

func (row guideRow) guide() (models.Guide, error) {
	generatedAt, err := time.Parse(timestampFormat, row.GeneratedAt)
	if err != nil {
		return models.Guide{}, errors.Wrap(err, "parse generated_at", slog.String("guide_id", row.ID))
	}
	var tags models.TagSet
	for _, raw := range strings.Fields(row.Tags) {
		if tag, ok := models.ParseTag(raw); ok {
			tags.Add(tag)
		}
	}
	return models.Guide{
		ID:          row.ID,
		FlowType:    models.FlowType(row.FlowType),
		Content:     row.Content,
		Tags:        tags,
		GeneratedAt: generatedAt,
	}, nil
}

// Save stores a generated guide under the key of the submission it was generated from.
func (r *GuideRepository) Save(ctx context.Context, submissionKey string, g models.Guide) error {
	row := guideRow{
		ID:            g.ID,
		SubmissionKey: submissionKey,
		FlowType:      g.FlowType.String(),
		Content:       g.Content,
		Tags:          strings.Join(g.Tags.Strings(), " "),
		GeneratedAt:   g.GeneratedAt.UTC().Format(timestampFormat),
	}
	if _, err := r.db.ReadWrite.NamedExecContext(ctx, `INSERT INTO guides (id, submission_key, flow_type, content, tags, generated_at)
VALUES (:id, :submission_key, :flow_type, :content, :tags, :generated_at)`, row); err != nil {
		return errors.Wrap(err, "insert guide", slog.String("guide_id", g.ID))
	}
	return nil
}

// Get returns the guide with id or ErrNotFound.
func (r *GuideRepository) Get(ctx context.Context, id string) (models.Guide, error) {
	var row guideRow
	if err := r.db.ReadOnly.GetContext(ctx, &row, `SELECT id, submission_key, flow_type, content, tags, generated_at
FROM guides
WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Guide{}, errors.Wrap(ErrNotFound, "get guide", slog.String("guide_id", id))
		}
		return models.Guide{}, errors.Wrap(err, "get guide", slog.String("guide_id", id))
	}
	return row.guide()
}

// LatestForSubmission returns the newest guide generated for the same answers or ErrNotFound.
func (r *GuideRepository) LatestForSubmission(ctx context.Context, submissionKey string) (models.Guide, error) {
	var row guideRow
	if err := r.db.ReadOnly.GetContext(ctx, &row, `SELECT id, submission_key, flow_type, content, tags, generated_at
FROM guides
WHERE submission_key = ?
ORDER BY generated_at DESC
LIMIT 1`, submissionKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Guide{}, errors.Wrap(ErrNotFound, "latest guide for submission")
		}
		return models.Guide{}, errors.Wrap(err, "latest guide for submission")
	}
	return row.guide()
}

// PurgeOlderThan deletes guides generated before cutoff and returns how many were deleted.
func (r *GuideRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ReadWrite.ExecContext(ctx, `DELETE FROM guides WHERE generated_at < ?`,
		cutoff.UTC().Format(timestampFormat))
	if err != nil {
		return 0, errors.Wrap(err, "purge guides")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	if n > 0 {
		r.logger.LogAttrs(ctx, slog.LevelInfo, "purged guides", slog.Int64("count", n))
	}
	return n, nil
}
