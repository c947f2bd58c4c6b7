package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-api/internal/model"
	"github.com/jwalitptl/patient-api/internal/repository"
)

var patientCols = []string{"id", "name", "phone", "alamat", "status_patient_id", "in_date_at", "out_date_at", "created_at", "updated_at"}
var viewCols = []string{"name", "phone", "status", "alamat", "in_date_at", "out_date_at"}

func TestPatientRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPatientRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO patients")).
		WithArgs("Ann", "0812", "X", int64(1), sqlmock.AnyArg(), nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	p := &model.Patient{
		Name:            "Ann",
		Phone:           "0812",
		Alamat:          "X",
		StatusPatientID: 1,
		InDateAt:        model.NewDate(2021, time.January, 1),
	}
	require.NoError(t, repo.Create(context.Background(), p))
	assert.Equal(t, int64(7), p.ID)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestPatientRepository_Get(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPatientRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM patients WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(patientCols).
			AddRow(int64(7), "Ann", "0812", "X", int64(1), time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), nil, now, now))

	p, err := repo.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Ann", p.Name)
	assert.Equal(t, int64(1), p.StatusPatientID)
	assert.Equal(t, "2021-01-01", p.InDateAt.String())
	assert.Nil(t, p.OutDateAt)
}

func TestPatientRepository_GetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPatientRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM patients WHERE id = $1")).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(patientCols))

	_, err := repo.Get(context.Background(), 99)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestPatientRepository_Update(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPatientRepository(db)
	out := model.NewDate(2021, time.February, 1)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE patients")).
		WithArgs("Ann", "0812", "X", int64(3), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	p := &model.Patient{ID: 7, Name: "Ann", Phone: "0812", Alamat: "X", StatusPatientID: 3, OutDateAt: &out}
	require.NoError(t, repo.Update(context.Background(), p))
}

func TestPatientRepository_UpdateMissingRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPatientRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE patients")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &model.Patient{ID: 99})
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestPatientRepository_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPatientRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM patients WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM patients WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), 7))
	assert.True(t, errors.Is(repo.Delete(context.Background(), 7), repository.ErrNotFound))
}

func TestPatientRepository_ListJoinsStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPatientRepository(db)
	in := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN status_patients s ON s.id = p.status_patient_id")).
		WillReturnRows(sqlmock.NewRows(viewCols).
			AddRow("Ann", "0812", "treatment", "X", in, nil).
			AddRow("Bob", "0813", "recovered", "Y", in, in))

	patients, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, patients, 2)
	assert.Equal(t, "treatment", patients[0].Status)
	assert.Equal(t, "recovered", patients[1].Status)
	require.NotNil(t, patients[1].OutDateAt)
}

func TestPatientRepository_ListEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPatientRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM patients p")).
		WillReturnRows(sqlmock.NewRows(viewCols))

	patients, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, patients)
	assert.Empty(t, patients)
}

func TestPatientRepository_SearchEscapesWildcards(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPatientRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.name ILIKE $1")).
		WithArgs(`%50\%\_off%`).
		WillReturnRows(sqlmock.NewRows(viewCols))

	_, err := repo.Search(context.Background(), "50%_off")
	require.NoError(t, err)
}

func TestPatientRepository_SearchEmptyPatternMatchesAll(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPatientRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.name ILIKE $1")).
		WithArgs("%%").
		WillReturnRows(sqlmock.NewRows(viewCols).AddRow("Ann", "0812", "treatment", "X", time.Now(), nil))

	patients, err := repo.Search(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, patients, 1)
}

func TestPatientRepository_ListByStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPatientRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status_patient_id = $1")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(patientCols).
			AddRow(int64(7), "Ann", "0812", "X", int64(3), now, now, now, now))

	patients, err := repo.ListByStatus(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, int64(3), patients[0].StatusPatientID)
}
