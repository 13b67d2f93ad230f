package draft

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists draft sections.
type Repository interface {
	SaveSection(ctx context.Context, applicantID, stepID string, data json.RawMessage, at time.Time) error
	Get(ctx context.Context, applicantID string) (Draft, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed draft repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// SaveSection upserts one section.
func (r *PostgresRepository) SaveSection(ctx context.Context, applicantID, stepID string, data json.RawMessage, at time.Time) error {
	id, err := uuid.Parse(applicantID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO applicant_drafts (applicant_id, step_id, data, updated_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (applicant_id, step_id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		id, stepID, []byte(data), at.UTC())
	return err
}

// Get loads every saved section for an applicant.
func (r *PostgresRepository) Get(ctx context.Context, applicantID string) (Draft, error) {
	id, err := uuid.Parse(applicantID)
	if err != nil {
		return Draft{}, err
	}
	rows, err := r.db.Query(ctx, `SELECT step_id, data, updated_at FROM applicant_drafts
        WHERE applicant_id = $1 ORDER BY updated_at ASC`, id)
	if err != nil {
		return Draft{}, err
	}
	defer rows.Close()

	d := Draft{ApplicantID: applicantID, Sections: map[string]json.RawMessage{}}
	for rows.Next() {
		var (
			stepID    string
			data      []byte
			updatedAt time.Time
		)
		if err := rows.Scan(&stepID, &data, &updatedAt); err != nil {
			return Draft{}, err
		}
		d.Sections[stepID] = json.RawMessage(data)
		d.LastStep = stepID
		d.UpdatedAt = updatedAt.UTC()
	}
	if err := rows.Err(); err != nil {
		return Draft{}, err
	}
	if len(d.Sections) == 0 {
		return Draft{}, ErrNotFound
	}
	return d, nil
}
