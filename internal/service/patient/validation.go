package patient

import (
	"github.com/jwalitptl/patient-api/internal/model"
	"github.com/jwalitptl/patient-api/pkg/validator"
)

// NewValidator returns the request validator with the patient rules
// registered: patient_status and date.
func NewValidator() validator.Validator {
	return validator.New(
		validator.Rule{
			Tag:     "patient_status",
			Message: "The selected %[1]s is invalid.",
			Valid:   model.IsValidStatus,
		},
		validator.Rule{
			Tag:     "date",
			Message: "The %[1]s is not a valid date.",
			Valid: func(value string) bool {
				_, err := model.ParseDate(value)
				return err == nil
			},
		},
	)
}
