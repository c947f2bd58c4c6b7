package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/patient-api/internal/model"
	"github.com/jwalitptl/patient-api/internal/repository"
)

const patientColumns = `id, name, phone, alamat, status_patient_id, in_date_at, out_date_at, created_at, updated_at`

// patientViewQuery joins each patient with its status name.
const patientViewQuery = `
	SELECT p.name, p.phone, s.status, p.alamat, p.in_date_at, p.out_date_at
	FROM patients p
	JOIN status_patients s ON s.id = p.status_patient_id
`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type patientRepository struct {
	db *sqlx.DB
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (name, phone, alamat, status_patient_id, in_date_at, out_date_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	now := time.Now().UTC()
	patient.CreatedAt = now
	patient.UpdatedAt = now

	err := r.db.QueryRowxContext(ctx, query,
		patient.Name,
		patient.Phone,
		patient.Alamat,
		patient.StatusPatientID,
		patient.InDateAt,
		patient.OutDateAt,
		patient.CreatedAt,
		patient.UpdatedAt,
	).Scan(&patient.ID)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id int64) (*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	var patient model.Patient
	if err := r.db.GetContext(ctx, &patient, query, id); err != nil {
		return nil, fmt.Errorf("failed to get patient %d: %w", id, notFound(err))
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients
		SET name = $1, phone = $2, alamat = $3, status_patient_id = $4,
			in_date_at = $5, out_date_at = $6, updated_at = $7
		WHERE id = $8
	`
	patient.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, query,
		patient.Name,
		patient.Phone,
		patient.Alamat,
		patient.StatusPatientID,
		patient.InDateAt,
		patient.OutDateAt,
		patient.UpdatedAt,
		patient.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient %d: %w", patient.ID, err)
	}
	if err := expectOneRow(res); err != nil {
		return fmt.Errorf("failed to update patient %d: %w", patient.ID, err)
	}
	return nil
}

func (r *patientRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete patient %d: %w", id, err)
	}
	if err := expectOneRow(res); err != nil {
		return fmt.Errorf("failed to delete patient %d: %w", id, err)
	}
	return nil
}

func (r *patientRepository) List(ctx context.Context) ([]*model.PatientView, error) {
	patients := make([]*model.PatientView, 0)
	if err := r.db.SelectContext(ctx, &patients, patientViewQuery+` ORDER BY p.id`); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

// Search matches name anywhere, case-insensitively. LIKE wildcards in the
// input are matched literally.
func (r *patientRepository) Search(ctx context.Context, name string) ([]*model.PatientView, error) {
	query := patientViewQuery + ` WHERE p.name ILIKE $1 ORDER BY p.id`
	pattern := "%" + likeEscaper.Replace(name) + "%"

	patients := make([]*model.PatientView, 0)
	if err := r.db.SelectContext(ctx, &patients, query, pattern); err != nil {
		return nil, fmt.Errorf("failed to search patients: %w", err)
	}
	return patients, nil
}

func (r *patientRepository) ListByStatus(ctx context.Context, statusID int64) ([]*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE status_patient_id = $1 ORDER BY id`

	patients := make([]*model.Patient, 0)
	if err := r.db.SelectContext(ctx, &patients, query, statusID); err != nil {
		return nil, fmt.Errorf("failed to list patients by status %d: %w", statusID, err)
	}
	return patients, nil
}
