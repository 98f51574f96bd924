package repositories

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/internal/sqlite"
)

// ContactSubmission is one attempt to hand a contact to the CRM.
type ContactSubmission struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
	FlowType  string
	// GuideID is empty when no guide had been generated.
	GuideID string
	// CRMID is empty when the CRM did not accept the contact.
	CRMID       string
	Failure     string
	SubmittedAt time.Time
}

// Succeeded reports whether the CRM accepted the contact.
func (c ContactSubmission) Succeeded() bool {
	return c.CRMID != ""
}

type ContactRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewContactRepository(db *sqlite.Database, logger *slog.Logger) *ContactRepository {
	return &ContactRepository{
		db:     db,
		logger: logger.With("source", "ContactRepository"),
	}
}

// Record stores a contact submission and returns its id. A guide id without a stored guide is recorded as no guide.
func (r *ContactRepository) Record(ctx context.Context, c ContactSubmission) (int64, error) {
	res, err := r.db.ReadWrite.ExecContext(ctx, `INSERT INTO contacts
    (email, first_name, last_name, flow_type, guide_id, crm_id, failure, submitted_at)
VALUES (?, ?, ?, ?, (SELECT id FROM guides WHERE id = ?), NULLIF(?, ''), ?, ?)`,
		c.Email, c.FirstName, c.LastName, c.FlowType, c.GuideID, c.CRMID, c.Failure,
		c.SubmittedAt.UTC().Format(timestampFormat))
	if err != nil {
		return 0, errors.Wrap(err, "insert contact", slog.String("flow_type", c.FlowType))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "last insert id")
	}
	return id, nil
}

type contactRow struct {
	ID          int64          `db:"id"`
	Email       string         `db:"email"`
	FirstName   string         `db:"first_name"`
	LastName    string         `db:"last_name"`
	FlowType    string         `db:"flow_type"`
	GuideID     sql.NullString `db:"guide_id"`
	CRMID       sql.NullString `db:"crm_id"`
	Failure     string         `db:"failure"`
	SubmittedAt string         `db:"submitted_at"`
}

// ForEmail lists the submissions of an email address, oldest first.
func (r *ContactRepository) ForEmail(ctx context.Context, email string) ([]ContactSubmission, error) {
	var rows []contactRow
	if err := r.db.ReadOnly.SelectContext(ctx, &rows, `SELECT id, email, first_name, last_name, flow_type, guide_id,
       crm_id, failure, submitted_at
FROM contacts
WHERE email = ?
ORDER BY id`, email); err != nil {
		return nil, errors.Wrap(err, "select contacts")
	}
	out := make([]ContactSubmission, len(rows))
	for i, row := range rows {
		submittedAt, err := time.Parse(timestampFormat, row.SubmittedAt)
		if err != nil {
			return nil, errors.Wrap(err, "parse submitted_at", slog.Int64("contact_id", row.ID))
		}
		out[i] = ContactSubmission{
			ID:          row.ID,
			Email:       row.Email,
			FirstName:   row.FirstName,
			LastName:    row.LastName,
			FlowType:    row.FlowType,
			GuideID:     row.GuideID.String,
			CRMID:       row.CRMID.String,
			Failure:     row.Failure,
			SubmittedAt: submittedAt,
		}
	}
	return out, nil
}
