package handler

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator so Echo can call c.Validate(req).
// Field names in errors are the json tag names of the request structs.
type Validator struct {
	v *validator.Validate
}

// NewValidator returns a Validator ready to be assigned to echo.Echo.Validator.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Engine exposes the underlying validator for translation registration.
func (ev *Validator) Engine() *validator.Validate {
	return ev.v
}

// Validate satisfies the echo.Validator interface. Failures are returned as
// validator.ValidationErrors and rendered by the HTTP error handler.
func (ev *Validator) Validate(i any) error {
	return ev.v.Struct(i)
}

// FieldError attaches a domain error to a single request field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Err.Error() }

func (e *FieldError) Unwrap() error { return e.Err }

func fieldError(field string, err error) error {
	return &FieldError{Field: field, Err: err}
}
