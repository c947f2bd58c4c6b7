package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/patient-api/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// All repository interfaces in one file
type (
	// PatientRepository owns the patients table
	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id int64) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		Delete(ctx context.Context, id int64) error
		List(ctx context.Context) ([]*model.PatientView, error)
		Search(ctx context.Context, name string) ([]*model.PatientView, error)
		ListByStatus(ctx context.Context, statusID int64) ([]*model.Patient, error)
	}

	// StatusRepository reads the status_patients lookup table
	StatusRepository interface {
		GetByName(ctx context.Context, name string) (*model.StatusPatient, error)
		GetByID(ctx context.Context, id int64) (*model.StatusPatient, error)
		List(ctx context.Context) ([]*model.StatusPatient, error)
		Seed(ctx context.Context, names []string) error
	}

	// OutboxRepository stores events for the relay worker. A claim holds
	// an event for lease; an event still PROCESSING when the lease runs
	// out is claimable again.
	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		// MarkFailed counts a failed attempt. A nil retryAt gives up on the event.
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error
		// Release puts a claimed event back to PENDING without counting an attempt.
		Release(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
