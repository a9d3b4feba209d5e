package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// report json names, not Go field names
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// FieldError is a single failed validation rule.
type FieldError struct {
	Field string
	Tag   string
	Param string
}

func (e FieldError) message() string {
	switch e.Tag {
	case "required":
		return fmt.Sprintf("%s is required", e.Field)
	case "datetime":
		return fmt.Sprintf("%s must be a date formatted as YYYY-MM-DD", e.Field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", e.Field, e.Param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", e.Field, e.Param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", e.Field, e.Param)
	default:
		return fmt.Sprintf("%s failed %s validation", e.Field, e.Tag)
	}
}

// ValidationError collects the failed rules of one request.
type ValidationError struct {
	Fields []FieldError
}

func (ve *ValidationError) Error() string {
	if len(ve.Fields) == 0 {
		return "validation failed"
	}
	messages := make([]string, 0, len(ve.Fields))
	for _, f := range ve.Fields {
		messages = append(messages, f.message())
	}
	return strings.Join(messages, "; ")
}

// MissingRequired reports whether any required field was absent.
func (ve *ValidationError) MissingRequired() bool {
	for _, f := range ve.Fields {
		if f.Tag == "required" {
			return true
		}
	}
	return false
}

// ValidateStruct checks the validate tags of s. It returns nil or a *ValidationError.
func ValidateStruct(s interface{}) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("validation failed: %w", err)
	}

	ve := &ValidationError{Fields: make([]FieldError, 0, len(validationErrors))}
	for _, fe := range validationErrors {
		ve.Fields = append(ve.Fields, FieldError{
			Field: fe.Field(),
			Tag:   fe.Tag(),
			Param: fe.Param(),
		})
	}
	return ve
}
