package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/notes/internal/apperror"
)

// validate is safe for concurrent use and caches struct metadata, so one
// instance serves the whole package.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON name so messages match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct runs the struct's validate tags and converts the first
// failure into an apperror.ValidationFailed with a readable message.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("service: validating input: %w", err)
	}

	fe := fieldErrs[0]
	return apperror.ValidationFailed(fe.Field(), fieldMessage(fe))
}

func fieldMessage(fe validator.FieldError) string {
	label := strings.ToUpper(fe.Field()[:1]) + fe.Field()[1:]

	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return "Email must be a valid email address"
	case "min":
		if fe.Field() == "username" {
			return "Username must be between 3 and 20 characters"
		}
		return fmt.Sprintf("%s must be at least %s characters long", label, fe.Param())
	case "max":
		if fe.Field() == "username" {
			return "Username must be between 3 and 20 characters"
		}
		return fmt.Sprintf("%s must be at most %s characters long", label, fe.Param())
	default:
		return label + " is invalid"
	}
}
