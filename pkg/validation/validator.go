package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// New returns a validator that reports fields by their JSON names.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	Configure(v)
	return v
}

// Configure registers the JSON field name resolver on an existing validator,
// such as the one backing gin's binding engine.
func Configure(v *validator.Validate) {
	v.RegisterTagNameFunc(fieldName)
}

// fieldName resolves the name used in messages: the json tag when present,
// otherwise the lowercased Go field name.
func fieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return strings.ToLower(f.Name)
	default:
		return name
	}
}

// Messages turns a validation or decoding error into client-facing messages.
func Messages(err error) []string {
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		messages := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			messages = append(messages, fieldMessage(e))
		}
		return messages
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return []string{fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type)}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return []string{"request body must be valid JSON"}
	}

	return []string{err.Error()}
}

func fieldMessage(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s should not be empty", field)
	case "min":
		if e.Param() == "1" {
			return fmt.Sprintf("%s should not be empty", field)
		}
		return fmt.Sprintf("%s must be longer than or equal to %s characters", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be shorter than or equal to %s characters", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
