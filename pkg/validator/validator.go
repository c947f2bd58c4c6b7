package validator

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/patient-api/pkg/errors"
)

// Validator provides validation functionality
type Validator interface {
	Validate(interface{}) error
}

type structValidator struct {
	validate *validator.Validate
	messages map[string]string
}

// Rule is a custom check on string fields, registered under Tag.
// Message is a format string; %[1]s is the field label.
type Rule struct {
	Tag     string
	Message string
	Valid   func(value string) bool
}

// Messages take the field label as %[1]s and the tag parameter as %[2]s.
var defaultMessages = map[string]string{
	"required": "The %[1]s field is required.",
	"min":      "The %[1]s field must not be empty.",
	"max":      "The %[1]s may not be greater than %[2]s characters.",
	"numeric":  "The %[1]s must be a number.",
}

func New(rules ...Rule) Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	messages := make(map[string]string, len(defaultMessages)+len(rules))
	for tag, msg := range defaultMessages {
		messages[tag] = msg
	}
	for _, rule := range rules {
		valid := rule.Valid
		// Registration only fails on an empty tag.
		_ = v.RegisterValidation(rule.Tag, func(fl validator.FieldLevel) bool {
			return valid(fl.Field().String())
		})
		if rule.Message != "" {
			messages[rule.Tag] = rule.Message
		}
	}

	return &structValidator{
		validate: v,
		messages: messages,
	}
}

// Validate checks obj against its validate tags and returns an
// errors.AppError listing every failing field.
func (v *structValidator) Validate(obj interface{}) error {
	err := v.validate.Struct(obj)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return fmt.Errorf("validate request: %w", err)
	}

	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = append(fields[fe.Field()], v.message(fe))
	}
	return errors.Validation(fields)
}

func (v *structValidator) message(fe validator.FieldError) string {
	label := strings.ReplaceAll(fe.Field(), "_", " ")
	if tmpl, ok := v.messages[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, label, fe.Param())
	}
	return fmt.Sprintf("The %s field is invalid.", label)
}

// FieldTypeError converts a JSON type mismatch on a single field into a
// validation error for that field.
func FieldTypeError(field, expected string) error {
	label := strings.ReplaceAll(field, "_", " ")
	return errors.Validation(map[string][]string{
		field: {fmt.Sprintf("The %s must be a %s.", label, expected)},
	})
}
