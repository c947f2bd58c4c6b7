package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-api/internal/model"
	"github.com/jwalitptl/patient-api/internal/repository"
	apperrors "github.com/jwalitptl/patient-api/pkg/errors"
)

type mockStatusRepo struct {
	statuses []*model.StatusPatient
	calls    int
	err      error
}

func (m *mockStatusRepo) GetByName(_ context.Context, name string) (*model.StatusPatient, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	for _, s := range m.statuses {
		if s.Status == name {
			return s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockStatusRepo) GetByID(_ context.Context, id int64) (*model.StatusPatient, error) {
	m.calls++
	for _, s := range m.statuses {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockStatusRepo) List(_ context.Context) ([]*model.StatusPatient, error) {
	return m.statuses, nil
}

func (m *mockStatusRepo) Seed(_ context.Context, names []string) error {
	for _, name := range names {
		found := false
		for _, s := range m.statuses {
			if s.Status == name {
				found = true
			}
		}
		if !found {
			m.statuses = append(m.statuses, &model.StatusPatient{ID: int64(len(m.statuses) + 1), Status: name})
		}
	}
	return nil
}

// Ids differ from seed order.
func seeded() *mockStatusRepo {
	return &mockStatusRepo{statuses: []*model.StatusPatient{
		{ID: 10, Status: model.StatusRecovered},
		{ID: 20, Status: model.StatusTreatment},
		{ID: 30, Status: model.StatusDeath},
	}}
}

func TestResolve(t *testing.T) {
	svc := NewService(seeded(), time.Minute, time.Minute)

	id, err := svc.Resolve(context.Background(), model.StatusTreatment)
	require.NoError(t, err)
	assert.Equal(t, int64(20), id)

	id, err = svc.Resolve(context.Background(), model.StatusRecovered)
	require.NoError(t, err)
	assert.Equal(t, int64(10), id)
}

func TestResolve_Cached(t *testing.T) {
	repo := seeded()
	svc := NewService(repo, time.Minute, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := svc.Resolve(context.Background(), model.StatusDeath)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, repo.calls)

	name, err := svc.Name(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDeath, name)
	assert.Equal(t, 1, repo.calls)
}

func TestResolve_NotFound(t *testing.T) {
	svc := NewService(&mockStatusRepo{}, time.Minute, time.Minute)

	_, err := svc.Resolve(context.Background(), model.StatusTreatment)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.Resolve(context.Background(), "unknown")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestResolve_DatastoreError(t *testing.T) {
	svc := NewService(&mockStatusRepo{err: errors.New("connection refused")}, time.Minute, time.Minute)

	_, err := svc.Resolve(context.Background(), model.StatusTreatment)
	require.Error(t, err)
	assert.False(t, apperrors.IsNotFound(err))
}

func TestName_NotFound(t *testing.T) {
	svc := NewService(seeded(), time.Minute, time.Minute)

	_, err := svc.Name(context.Background(), 99)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSeed(t *testing.T) {
	repo := &mockStatusRepo{}
	svc := NewService(repo, time.Minute, time.Minute)

	require.NoError(t, svc.Seed(context.Background()))
	require.NoError(t, svc.Seed(context.Background()))

	statuses, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, statuses, len(model.StatusNames))
}
