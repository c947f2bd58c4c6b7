package patient

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-api/internal/middleware"
	"github.com/jwalitptl/patient-api/internal/model"
	"github.com/jwalitptl/patient-api/internal/repository/memory"
	"github.com/jwalitptl/patient-api/internal/service/patient"
	"github.com/jwalitptl/patient-api/internal/service/status"
)

// newStack wires the real services over the in-memory repositories.
func newStack(t *testing.T) (*gin.Engine, *memory.PatientRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	statusRepo := memory.NewStatusRepository()
	require.NoError(t, statusRepo.Seed(context.Background(), model.StatusNames))
	patientRepo := memory.NewPatientRepository(statusRepo)

	svc := patient.NewService(
		patientRepo,
		status.NewService(statusRepo, time.Minute, time.Minute),
		patient.NewValidator(),
		nil,
	)

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	NewHandler(svc).RegisterRoutes(r.Group("/api"))
	return r, patientRepo
}

const annBody = `{"name":"Ann","phone":"0812","alamat":"X","status":"treatment","in_date_at":"2021-01-01"}`

func TestAnnLifecycle(t *testing.T) {
	r, _ := newStack(t)

	w, body := do(r, http.MethodPost, "/api/patients", annBody)
	require.Equal(t, http.StatusCreated, w.Code)
	id := int64(body["data"].(map[string]interface{})["id"].(float64))
	path := fmt.Sprintf("/api/patients/%d", id)

	w, body = do(r, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "treatment", body["data"].(map[string]interface{})["status"])

	w, _ = do(r, http.MethodPut, path, `{"status":"recovered"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, body = do(r, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "recovered", data["status"])
	assert.Equal(t, "Ann", data["name"])
	assert.Equal(t, "0812", data["phone"])
	assert.Equal(t, "X", data["alamat"])
	assert.Equal(t, "2021-01-01", data["in_date_at"])

	w, _ = do(r, http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, w.Code)

	w, body = do(r, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Resource not found", body["message"])
}

func TestDischargeDateCanBeCleared(t *testing.T) {
	r, _ := newStack(t)

	w, body := do(r, http.MethodPost, "/api/patients", annBody)
	require.Equal(t, http.StatusCreated, w.Code)
	path := fmt.Sprintf("/api/patients/%d", int64(body["data"].(map[string]interface{})["id"].(float64)))

	w, _ = do(r, http.MethodPatch, path, `{"out_date_at":"2021-01-10"}`)
	require.Equal(t, http.StatusOK, w.Code)
	_, body = do(r, http.MethodGet, path, "")
	assert.Equal(t, "2021-01-10", body["data"].(map[string]interface{})["out_date_at"])

	w, _ = do(r, http.MethodPatch, path, `{"alamat":"Y"}`)
	require.Equal(t, http.StatusOK, w.Code)
	_, body = do(r, http.MethodGet, path, "")
	assert.Equal(t, "2021-01-10", body["data"].(map[string]interface{})["out_date_at"])

	w, _ = do(r, http.MethodPatch, path, `{"out_date_at":null}`)
	require.Equal(t, http.StatusOK, w.Code)
	_, body = do(r, http.MethodGet, path, "")
	data := body["data"].(map[string]interface{})
	assert.Contains(t, data, "out_date_at")
	assert.Nil(t, data["out_date_at"])
	assert.Equal(t, "Y", data["alamat"])
}

func TestCreateUnknownStatusPersistsNothing(t *testing.T) {
	r, repo := newStack(t)

	w, body := do(r, http.MethodPost, "/api/patients",
		`{"name":"Ann","phone":"0812","alamat":"X","status":"unknown","in_date_at":"2021-01-01"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, map[string]interface{}{"status": []interface{}{"The selected status is invalid."}}, body["errors"])

	all, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSearchAndStatusListings(t *testing.T) {
	r, _ := newStack(t)

	w, _ := do(r, http.MethodGet, "/api/patients/search?name=", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	for _, body := range []string{
		annBody,
		`{"name":"Joanna","phone":1,"alamat":"Y","status":"death","in_date_at":"2021-02-01","out_date_at":"2021-02-03"}`,
	} {
		w, _ := do(r, http.MethodPost, "/api/patients", body)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, body := do(r, http.MethodGet, "/api/patients/search?name=", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["data"], 2)

	w, body = do(r, http.MethodGet, "/api/patients/search/ANN", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["data"], 2)

	w, body = do(r, http.MethodGet, "/api/patients/dead", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["total"])

	w, body = do(r, http.MethodGet, "/api/patients/positive", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["total"])

	w, body = do(r, http.MethodGet, "/api/patients/recovered", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), body["total"])

	w, _ = do(r, http.MethodGet, "/api/patients/status/sick", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
