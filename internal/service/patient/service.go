package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/patient-api/internal/model"
	"github.com/jwalitptl/patient-api/internal/repository"
	apperrors "github.com/jwalitptl/patient-api/pkg/errors"
	"github.com/jwalitptl/patient-api/pkg/validator"
)

type PatientService interface {
	ListPatients(ctx context.Context) ([]*model.PatientView, error)
	CreatePatient(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error)
	GetPatient(ctx context.Context, id int64) (*model.PatientView, error)
	UpdatePatient(ctx context.Context, id int64, req *model.UpdatePatientRequest) (*model.Patient, error)
	DeletePatient(ctx context.Context, id int64) error
	SearchPatients(ctx context.Context, name string) ([]*model.PatientView, error)
	ListPatientsByStatus(ctx context.Context, status string) ([]*model.Patient, error)
}

// StatusResolver maps status names to lookup ids and back.
type StatusResolver interface {
	Resolve(ctx context.Context, name string) (int64, error)
	Name(ctx context.Context, id int64) (string, error)
}

type EventEmitter interface {
	Emit(ctx context.Context, eventType string, payload interface{}) error
}

type Service struct {
	repo      repository.PatientRepository
	statuses  StatusResolver
	validator validator.Validator
	events    EventEmitter
}

// NewService wires the patient service. events may be nil to disable
// change events.
func NewService(repo repository.PatientRepository, statuses StatusResolver, v validator.Validator, events EventEmitter) *Service {
	return &Service{
		repo:      repo,
		statuses:  statuses,
		validator: v,
		events:    events,
	}
}

func (s *Service) ListPatients(ctx context.Context) ([]*model.PatientView, error) {
	patients, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (s *Service) CreatePatient(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	statusID, err := s.statuses.Resolve(ctx, *req.Status)
	if err != nil {
		return nil, err
	}

	inDate, err := parseDate("in_date_at", *req.InDateAt)
	if err != nil {
		return nil, err
	}

	patient := &model.Patient{
		Name:            *req.Name,
		Phone:           string(*req.Phone),
		Alamat:          *req.Alamat,
		StatusPatientID: statusID,
		InDateAt:        inDate,
	}
	if req.OutDateAt != nil {
		outDate, err := parseDate("out_date_at", *req.OutDateAt)
		if err != nil {
			return nil, err
		}
		patient.OutDateAt = &outDate
	}

	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	s.emit(ctx, model.EventPatientCreated, patient.ID, patient)
	return patient, nil
}

// GetPatient composes the stored row with its status name.
func (s *Service) GetPatient(ctx context.Context, id int64) (*model.PatientView, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, repoError("failed to get patient", err)
	}

	statusName, err := s.statuses.Name(ctx, patient.StatusPatientID)
	if err != nil {
		return nil, err
	}

	return &model.PatientView{
		Name:      patient.Name,
		Phone:     patient.Phone,
		Status:    statusName,
		Alamat:    patient.Alamat,
		InDateAt:  patient.InDateAt,
		OutDateAt: patient.OutDateAt,
	}, nil
}

// UpdatePatient applies only the supplied fields. An empty status means
// "keep the current one"; an explicit null out_date_at clears it.
func (s *Service) UpdatePatient(ctx context.Context, id int64, req *model.UpdatePatientRequest) (*model.Patient, error) {
	if req.Status != nil && strings.TrimSpace(*req.Status) == "" {
		req.Status = nil
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, repoError("failed to get patient", err)
	}

	if req.Status != nil {
		statusID, err := s.statuses.Resolve(ctx, *req.Status)
		if err != nil {
			return nil, err
		}
		patient.StatusPatientID = statusID
	}
	if req.Name != nil {
		patient.Name = *req.Name
	}
	if req.Phone != nil {
		patient.Phone = string(*req.Phone)
	}
	if req.Alamat != nil {
		patient.Alamat = *req.Alamat
	}
	if req.InDateAt != nil {
		inDate, err := parseDate("in_date_at", *req.InDateAt)
		if err != nil {
			return nil, err
		}
		patient.InDateAt = inDate
	}
	if req.OutDateAt != nil {
		outDate, err := parseDate("out_date_at", *req.OutDateAt)
		if err != nil {
			return nil, err
		}
		patient.OutDateAt = &outDate
	} else if req.ClearOutDateAt {
		patient.OutDateAt = nil
	}

	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, repoError("failed to update patient", err)
	}

	s.emit(ctx, model.EventPatientUpdated, patient.ID, patient)
	return patient, nil
}

func (s *Service) DeletePatient(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return repoError("failed to get patient", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return repoError("failed to delete patient", err)
	}

	s.emit(ctx, model.EventPatientDeleted, id, nil)
	return nil
}

// SearchPatients returns NotFound when nothing matches.
func (s *Service) SearchPatients(ctx context.Context, name string) ([]*model.PatientView, error) {
	patients, err := s.repo.Search(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to search patients: %w", err)
	}
	if len(patients) == 0 {
		return nil, apperrors.NotFound("patient", errors.New("no patient matches the search"))
	}
	return patients, nil
}

// ListPatientsByStatus resolves the status by name on every call, so
// results never depend on the order statuses were seeded in.
func (s *Service) ListPatientsByStatus(ctx context.Context, status string) ([]*model.Patient, error) {
	statusID, err := s.statuses.Resolve(ctx, status)
	if err != nil {
		return nil, err
	}

	patients, err := s.repo.ListByStatus(ctx, statusID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients by status: %w", err)
	}
	return patients, nil
}

func (s *Service) emit(ctx context.Context, eventType string, patientID int64, patient *model.Patient) {
	if s.events == nil {
		return
	}

	payload := model.PatientEvent{
		PatientID:  patientID,
		Patient:    patient,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.Emit(ctx, eventType, payload); err != nil {
		log.Ctx(ctx).Warn().
			Err(err).
			Str("event_type", eventType).
			Int64("patient_id", patientID).
			Msg("failed to emit patient event")
	}
}

func repoError(msg string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("patient", err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func parseDate(field, value string) (model.Date, error) {
	d, err := model.ParseDate(value)
	if err != nil {
		return model.Date{}, validator.FieldTypeError(field, "valid date")
	}
	return d, nil
}
