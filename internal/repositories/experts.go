package repositories

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/internal/models"
	"github.com/myrjola/tripguide/internal/sqlite"
)

var ErrNotFound = errors.NewSentinel("not found")

type ExpertRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewExpertRepository(db *sqlite.Database, logger *slog.Logger) *ExpertRepository {
	return &ExpertRepository{
		db:     db,
		logger: logger.With("source", "ExpertRepository"),
	}
}

type expertTagRow struct {
	ExpertID string `db:"expert_id"`
	Category string `db:"category"`
	Value    string `db:"value"`
	Position int    `db:"position"`
}

// List returns the whole directory in directory order. The matcher relies on this order for ties.
func (r *ExpertRepository) List(ctx context.Context) ([]models.ExpertRecord, error) {
	var experts []models.ExpertRecord
	if err := r.db.ReadOnly.SelectContext(ctx, &experts,
		`SELECT id, name, bio, contact_ref FROM experts ORDER BY position, id`); err != nil {
		return nil, errors.Wrap(err, "select experts")
	}
	if err := r.attachTags(ctx, experts); err != nil {
		return nil, err
	}
	return experts, nil
}

// Get returns a single expert or ErrNotFound.
func (r *ExpertRepository) Get(ctx context.Context, id string) (models.ExpertRecord, error) {
	var expert models.ExpertRecord
	if err := r.db.ReadOnly.GetContext(ctx, &expert,
		`SELECT id, name, bio, contact_ref FROM experts WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ExpertRecord{}, errors.Wrap(ErrNotFound, "get expert", slog.String("expert_id", id))
		}
		return models.ExpertRecord{}, errors.Wrap(err, "get expert", slog.String("expert_id", id))
	}
	experts := []models.ExpertRecord{expert}
	if err := r.attachTags(ctx, experts); err != nil {
		return models.ExpertRecord{}, err
	}
	return experts[0], nil
}

func (r *ExpertRepository) attachTags(ctx context.Context, experts []models.ExpertRecord) error {
	if len(experts) == 0 {
		return nil
	}
	ids := make([]string, len(experts))
	for i, e := range experts {
		ids[i] = e.ID
	}
	query, args, err := sqlx.In(`SELECT expert_id, category, value, position
FROM expert_tags
WHERE expert_id IN (?)
ORDER BY expert_id, position`, ids)
	if err != nil {
		return errors.Wrap(err, "expand expert ids")
	}
	var rows []expertTagRow
	if err = r.db.ReadOnly.SelectContext(ctx, &rows, r.db.ReadOnly.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "select expert tags")
	}
	byID := make(map[string]map[string][]string, len(experts))
	for _, row := range rows {
		if byID[row.ExpertID] == nil {
			byID[row.ExpertID] = make(map[string][]string)
		}
		byID[row.ExpertID][row.Category] = append(byID[row.ExpertID][row.Category], row.Value)
	}
	for i := range experts {
		experts[i].Tags = byID[experts[i].ID]
	}
	return nil
}

// Upsert inserts new experts at the end of the directory and replaces the fields and tags of existing ones.
func (r *ExpertRepository) Upsert(ctx context.Context, experts ...models.ExpertRecord) (err error) {
	var tx *sqlx.Tx
	if tx, err = r.db.ReadWrite.BeginTxx(ctx, nil); err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				err = errors.Join(err, errors.Wrap(rollbackErr, "rollback"))
			}
		}
	}()

	for _, expert := range experts {
		if expert.ID == "" || expert.Name == "" {
			return errors.New("expert needs an id and a name", slog.String("expert_id", expert.ID))
		}
		if _, err = tx.NamedExecContext(ctx, `INSERT INTO experts (id, name, bio, contact_ref, position)
VALUES (:id, :name, :bio, :contact_ref, (SELECT COALESCE(MAX(position), 0) + 1 FROM experts))
ON CONFLICT (id) DO UPDATE SET name        = excluded.name,
                               bio         = excluded.bio,
                               contact_ref = excluded.contact_ref`, expert); err != nil {
			return errors.Wrap(err, "upsert expert", slog.String("expert_id", expert.ID))
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM expert_tags WHERE expert_id = ?`, expert.ID); err != nil {
			return errors.Wrap(err, "delete expert tags", slog.String("expert_id", expert.ID))
		}
		tags := expert.AllTags()
		if len(tags) == 0 {
			continue
		}
		rows := make([]expertTagRow, len(tags))
		for i, tag := range tags {
			rows[i] = expertTagRow{ExpertID: expert.ID, Category: tag.Category(), Value: tag.Value(), Position: i + 1}
		}
		if _, err = tx.NamedExecContext(ctx, `INSERT INTO expert_tags (expert_id, category, value, position)
VALUES (:expert_id, :category, :value, :position)`, rows); err != nil {
			return errors.Wrap(err, "insert expert tags", slog.String("expert_id", expert.ID))
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	r.logger.LogAttrs(ctx, slog.LevelInfo, "upserted experts", slog.Int("count", len(experts)))
	return nil
}

// Vocabulary returns every tag used in the directory, ordered by category and value.
func (r *ExpertRepository) Vocabulary(ctx context.Context) (models.TagSet, error) {
	var raw []string
	if err := r.db.ReadOnly.SelectContext(ctx, &raw, `SELECT DISTINCT category || ':' || value AS tag
FROM expert_tags
ORDER BY tag`); err != nil {
		return nil, errors.Wrap(err, "select vocabulary")
	}
	vocabulary := make(models.TagSet, 0, len(raw))
	for _, s := range raw {
		if tag, ok := models.ParseTag(s); ok {
			vocabulary.Add(tag)
		}
	}
	return vocabulary, nil
}
