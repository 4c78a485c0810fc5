// Package validation wraps go-playground/validator with user facing messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dharsanguruparan/vaultdesk/internal/apierr"
)

// New returns a validator that reports fields by their "name" tag when set.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("name"); name != "" && name != "-" {
			return name
		}
		return strings.ToLower(f.Name)
	})
	return v
}

// Struct validates s and turns failures into a Validation error whose message
// lists every problem.
func Struct(v *validator.Validate, s any) error {
	if err := v.Struct(s); err != nil {
		return apierr.New(apierr.KindValidation, 0, Describe(err))
	}
	return nil
}

// Describe renders validator errors as one line.
func Describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid input"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required", "required_if":
			parts = append(parts, field+" is required")
		case "min":
			parts = append(parts, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of: %s", field, fe.Param()))
		case "email":
			parts = append(parts, field+" must be a valid email address")
		case "eqfield":
			parts = append(parts, fmt.Sprintf("%s must match %s", field, strings.ToLower(fe.Param())))
		default:
			parts = append(parts, field+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}
