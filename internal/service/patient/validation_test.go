package patient

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-api/internal/model"
	apperrors "github.com/jwalitptl/patient-api/pkg/errors"
)

func validationFields(t *testing.T, err error) map[string][]string {
	t.Helper()
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	require.Equal(t, apperrors.ErrValidation, appErr.Code)
	return appErr.Fields
}

func TestNewValidator_CreateValid(t *testing.T) {
	assert.NoError(t, NewValidator().Validate(annRequest()))
}

func TestNewValidator_CreateMissingEverything(t *testing.T) {
	fields := validationFields(t, NewValidator().Validate(&model.CreatePatientRequest{}))

	for _, f := range []string{"name", "phone", "alamat", "status", "in_date_at"} {
		assert.Contains(t, fields, f)
	}
	assert.NotContains(t, fields, "out_date_at")
	assert.Equal(t, []string{"The in date at field is required."}, fields["in_date_at"])
}

func TestNewValidator_CreateRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *model.CreatePatientRequest)
		field  string
		msg    string
	}{
		{"unknown status", func(r *model.CreatePatientRequest) { r.Status = strPtr("unknown") }, "status", "The selected status is invalid."},
		{"non numeric phone", func(r *model.CreatePatientRequest) { r.Phone = phonePtr("08-12") }, "phone", "The phone must be a number."},
		{"phone too long", func(r *model.CreatePatientRequest) { r.Phone = phonePtr(strings.Repeat("1", 33)) }, "phone", "The phone may not be greater than 32 characters."},
		{"empty name", func(r *model.CreatePatientRequest) { r.Name = strPtr("") }, "name", "The name field must not be empty."},
		{"name too long", func(r *model.CreatePatientRequest) { r.Name = strPtr(strings.Repeat("a", 256)) }, "name", "The name may not be greater than 255 characters."},
		{"bad in date", func(r *model.CreatePatientRequest) { r.InDateAt = strPtr("yesterday") }, "in_date_at", "The in date at is not a valid date."},
		{"bad out date", func(r *model.CreatePatientRequest) { r.OutDateAt = strPtr("2021-13-40") }, "out_date_at", "The out date at is not a valid date."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := annRequest()
			tt.mutate(req)

			fields := validationFields(t, NewValidator().Validate(req))
			assert.Len(t, fields, 1)
			assert.Equal(t, []string{tt.msg}, fields[tt.field])
		})
	}
}

func TestNewValidator_LengthLimitsAreInclusive(t *testing.T) {
	req := annRequest()
	req.Name = strPtr(strings.Repeat("a", 255))
	req.Phone = phonePtr(strings.Repeat("1", 32))
	assert.NoError(t, NewValidator().Validate(req))
}

func TestNewValidator_UpdateAllOptional(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(&model.UpdatePatientRequest{}))
	assert.NoError(t, v.Validate(&model.UpdatePatientRequest{Status: strPtr("recovered")}))

	fields := validationFields(t, v.Validate(&model.UpdatePatientRequest{
		Status:   strPtr("sick"),
		InDateAt: strPtr("nope"),
		Phone:    phonePtr(strings.Repeat("9", 40)),
	}))
	assert.Len(t, fields, 3)
}
