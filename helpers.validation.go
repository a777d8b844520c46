package main

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their json names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// FieldError is a single field constraint violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors aggregates all the violations found on a request.
type FieldErrors []FieldError

// Error joins every violation on its own line.
func (fe FieldErrors) Error() string {
	lines := make([]string, 0, len(fe))
	for _, e := range fe {
		lines = append(lines, e.Field+" : "+e.Message)
	}
	return strings.Join(lines, "\n")
}

// ValidateCreateRequest checks a book creation request.
func ValidateCreateRequest(req BookCreateRequest) FieldErrors {
	return validateStruct(req)
}

// ValidateEditRequest checks a book update request.
func ValidateEditRequest(req BookEditRequest) FieldErrors {
	return validateStruct(req)
}

func validateStruct(s interface{}) FieldErrors {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{{Field: "request", Message: err.Error()}}
	}
	fieldErrors := make(FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		fieldErrors = append(fieldErrors, FieldError{Field: fe.Field(), Message: validationMessage(fe)})
	}
	return fieldErrors
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be null"
	case "notblank":
		return "must not be blank"
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		return "must be greater than or equal to " + fe.Param()
	case "max":
		return fmt.Sprintf("size must be at most %s", fe.Param())
	default:
		return "is invalid"
	}
}
