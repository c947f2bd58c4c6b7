package patient

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/patient-api/internal/handler"
	"github.com/jwalitptl/patient-api/internal/model"
	"github.com/jwalitptl/patient-api/internal/service/patient"
	apperrors "github.com/jwalitptl/patient-api/pkg/errors"
	"github.com/jwalitptl/patient-api/pkg/validator"
)

const (
	MessageSucceeded = "The request succeeded"
	MessageCreated   = "Data has create created"
	MessageDetail    = "Detail Patient"
	MessageUpdated   = "Resource is update successfully"
	MessageDeleted   = "Resource is delete successfully"
	MessageSearched  = "Get searched resource"
)

type Handler struct {
	service patient.PatientService
}

func NewHandler(service patient.PatientService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.GET("", h.ListPatients)
		patients.POST("", h.CreatePatient)

		patients.GET("/search", h.SearchPatients)
		patients.GET("/search/:name", h.SearchPatients)
		patients.GET("/positive", h.listByStatus(model.StatusTreatment))
		patients.GET("/dead", h.listByStatus(model.StatusDeath))
		patients.GET("/recovered", h.listByStatus(model.StatusRecovered))
		patients.GET("/status/:status", h.ListPatientsByStatus)

		patients.GET("/:id", h.GetPatient)
		patients.PUT("/:id", h.UpdatePatient)
		patients.PATCH("/:id", h.UpdatePatient)
		patients.DELETE("/:id", h.DeletePatient)
	}
}

func (h *Handler) ListPatients(c *gin.Context) {
	patients, err := h.service.ListPatients(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	handler.OK(c, MessageSucceeded, patients)
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var req model.CreatePatientRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	created, err := h.service.CreatePatient(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(MessageCreated, created))
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, err := patientID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	view, err := h.service.GetPatient(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	handler.OK(c, MessageDetail, view)
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	id, err := patientID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req model.UpdatePatientRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	if _, err := h.service.UpdatePatient(c.Request.Context(), id, &req); err != nil {
		_ = c.Error(err)
		return
	}
	handler.OK(c, MessageUpdated, nil)
}

func (h *Handler) DeletePatient(c *gin.Context) {
	id, err := patientID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.service.DeletePatient(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	handler.OK(c, MessageDeleted, nil)
}

// SearchPatients takes the pattern from the path or, for the bare
// /search route, from the name query parameter.
func (h *Handler) SearchPatients(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		name = c.Query("name")
	}

	patients, err := h.service.SearchPatients(c.Request.Context(), name)
	if err != nil {
		_ = c.Error(err)
		return
	}
	handler.OK(c, MessageSearched, patients)
}

func (h *Handler) ListPatientsByStatus(c *gin.Context) {
	h.respondByStatus(c, c.Param("status"))
}

func (h *Handler) listByStatus(status string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.respondByStatus(c, status)
	}
}

func (h *Handler) respondByStatus(c *gin.Context, status string) {
	patients, err := h.service.ListPatientsByStatus(c.Request.Context(), status)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewListResponse(MessageSucceeded, patients, len(patients)))
}

// patientID treats an unparsable id like an unknown one.
func patientID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NotFound("patient", err)
	}
	return id, nil
}

var numericStringType = reflect.TypeOf(model.NumericString(""))

// bindJSON decodes the body into obj. An empty body decodes as {} so that
// missing required fields surface as validation errors.
func bindJSON(c *gin.Context, obj interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}

	err := c.ShouldBindJSON(obj)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		expected := "string"
		if typeErr.Type == numericStringType {
			expected = "number"
		}
		return validator.FieldTypeError(typeErr.Field, expected)
	}
	return apperrors.BadRequest("Malformed JSON body", err)
}
