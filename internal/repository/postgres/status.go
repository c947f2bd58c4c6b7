package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/patient-api/internal/model"
	"github.com/jwalitptl/patient-api/internal/repository"
)

type statusRepository struct {
	BaseRepository
}

func NewStatusRepository(db *sqlx.DB) repository.StatusRepository {
	return &statusRepository{NewBaseRepository(db)}
}

func (r *statusRepository) GetByName(ctx context.Context, name string) (*model.StatusPatient, error) {
	var status model.StatusPatient
	err := r.db.GetContext(ctx, &status, `SELECT id, status FROM status_patients WHERE status = $1`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get status %q: %w", name, notFound(err))
	}
	return &status, nil
}

func (r *statusRepository) GetByID(ctx context.Context, id int64) (*model.StatusPatient, error) {
	var status model.StatusPatient
	err := r.db.GetContext(ctx, &status, `SELECT id, status FROM status_patients WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get status %d: %w", id, notFound(err))
	}
	return &status, nil
}

func (r *statusRepository) List(ctx context.Context) ([]*model.StatusPatient, error) {
	statuses := make([]*model.StatusPatient, 0)
	if err := r.db.SelectContext(ctx, &statuses, `SELECT id, status FROM status_patients ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}
	return statuses, nil
}

// Seed inserts the given statuses, skipping ones already present.
func (r *statusRepository) Seed(ctx context.Context, names []string) error {
	query := `INSERT INTO status_patients (status) VALUES ($1) ON CONFLICT (status) DO NOTHING`

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, name := range names {
			if _, err := tx.ExecContext(ctx, query, name); err != nil {
				return fmt.Errorf("failed to seed status %q: %w", name, err)
			}
		}
		return nil
	})
}
