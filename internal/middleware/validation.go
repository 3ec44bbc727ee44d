package middleware

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "agencypulse/internal/errors"
	"agencypulse/pkg/contracts/domain"
)

// Validator checks bound query structs against their validate tags and
// reports failures by query parameter name.
type Validator struct {
	validator *validator.Validate
}

// NewValidator creates a validator with the dataset-aware rules:
//
//	measure     a numeric column name
//	dimension   a categorical column name
func NewValidator() *Validator {
	v := validator.New()

	_ = v.RegisterValidation("measure", isMeasure)
	_ = v.RegisterValidation("dimension", isDimension)

	// Use query tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validator: v}
}

// ValidateStruct validates a struct and returns validation errors
func (m *Validator) ValidateStruct(v interface{}) error {
	err := m.validator.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	validationErrors := make([]apierrors.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		validationErrors = append(validationErrors, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(validationErrors)
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "measure":
		return fmt.Sprintf("%s must be a measure column, got %q", field, err.Value())
	case "dimension":
		return fmt.Sprintf("%s must be one of: %s", field, joinDimensions())
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// Custom validators

func isMeasure(fl validator.FieldLevel) bool {
	return domain.Field(fl.Field().String()).Valid()
}

func isDimension(fl validator.FieldLevel) bool {
	return domain.Dimension(fl.Field().String()).Valid()
}

func joinDimensions() string {
	names := make([]string, len(domain.Dimensions))
	for i, d := range domain.Dimensions {
		names[i] = string(d)
	}
	return strings.Join(names, ", ")
}
