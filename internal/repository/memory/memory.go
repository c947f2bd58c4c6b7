// Package memory holds map-backed repositories with the same observable
// behaviour as the postgres ones. Tests use them to run the service and
// HTTP layers without a database.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jwalitptl/patient-api/internal/model"
	"github.com/jwalitptl/patient-api/internal/repository"
)

type StatusRepository struct {
	mu       sync.RWMutex
	statuses []*model.StatusPatient
	nextID   int64
}

func NewStatusRepository() *StatusRepository {
	return &StatusRepository{}
}

func (r *StatusRepository) GetByName(_ context.Context, name string) (*model.StatusPatient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.statuses {
		if s.Status == name {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *StatusRepository) GetByID(_ context.Context, id int64) (*model.StatusPatient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.statuses {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *StatusRepository) List(_ context.Context) ([]*model.StatusPatient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.StatusPatient, 0, len(r.statuses))
	for _, s := range r.statuses {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

// Seed inserts the names that are missing; existing rows keep their ids.
func (r *StatusRepository) Seed(_ context.Context, names []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		if r.indexOf(name) >= 0 {
			continue
		}
		r.nextID++
		r.statuses = append(r.statuses, &model.StatusPatient{ID: r.nextID, Status: name})
	}
	return nil
}

func (r *StatusRepository) indexOf(name string) int {
	for i, s := range r.statuses {
		if s.Status == name {
			return i
		}
	}
	return -1
}

func (r *StatusRepository) name(id int64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.statuses {
		if s.ID == id {
			return s.Status
		}
	}
	return ""
}

type PatientRepository struct {
	mu       sync.RWMutex
	rows     map[int64]*model.Patient
	nextID   int64
	statuses *StatusRepository
}

// NewPatientRepository joins against statuses for the list and search
// read models.
func NewPatientRepository(statuses *StatusRepository) *PatientRepository {
	return &PatientRepository{
		rows:     make(map[int64]*model.Patient),
		statuses: statuses,
	}
}

func (r *PatientRepository) Create(_ context.Context, patient *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := time.Now().UTC()
	patient.ID = r.nextID
	patient.CreatedAt = now
	patient.UpdatedAt = now
	r.rows[patient.ID] = clonePatient(patient)
	return nil
}

func (r *PatientRepository) Get(_ context.Context, id int64) (*model.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clonePatient(p), nil
}

func (r *PatientRepository) Update(_ context.Context, patient *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[patient.ID]; !ok {
		return repository.ErrNotFound
	}
	patient.UpdatedAt = time.Now().UTC()
	r.rows[patient.ID] = clonePatient(patient)
	return nil
}

func (r *PatientRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *PatientRepository) List(ctx context.Context) ([]*model.PatientView, error) {
	return r.Search(ctx, "")
}

// Search matches name case-insensitively as a plain substring.
func (r *PatientRepository) Search(_ context.Context, name string) ([]*model.PatientView, error) {
	needle := strings.ToLower(name)
	out := make([]*model.PatientView, 0)
	for _, p := range r.ordered() {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			out = append(out, r.view(p))
		}
	}
	return out, nil
}

func (r *PatientRepository) ListByStatus(_ context.Context, statusID int64) ([]*model.Patient, error) {
	out := make([]*model.Patient, 0)
	for _, p := range r.ordered() {
		if p.StatusPatientID == statusID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *PatientRepository) ordered() []*model.Patient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Patient, 0, len(r.rows))
	for _, p := range r.rows {
		out = append(out, clonePatient(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *PatientRepository) view(p *model.Patient) *model.PatientView {
	return &model.PatientView{
		Name:      p.Name,
		Phone:     p.Phone,
		Status:    r.statuses.name(p.StatusPatientID),
		Alamat:    p.Alamat,
		InDateAt:  p.InDateAt,
		OutDateAt: p.OutDateAt,
	}
}

func clonePatient(p *model.Patient) *model.Patient {
	cp := *p
	if p.OutDateAt != nil {
		d := *p.OutDateAt
		cp.OutDateAt = &d
	}
	return &cp
}

var (
	_ repository.StatusRepository  = (*StatusRepository)(nil)
	_ repository.PatientRepository = (*PatientRepository)(nil)
)
