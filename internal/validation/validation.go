// Package validation checks request structs with validator tags and turns
// failures into BAD_USER_INPUT errors that name the offending JSON fields.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/geocoder89/fraghub/internal/apperr"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

var (
	once     sync.Once
	instance *validator.Validate
)

func validate() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		// report json names instead of Go field names
		instance.RegisterTagNameFunc(func(sf reflect.StructField) string {
			name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return sf.Name
			}
			return name
		})
	})
	return instance
}

// Validate returns the raw validator result, validator.ValidationErrors on
// failed rules.
func Validate(v interface{}) error {
	return validate().Struct(v)
}

// Struct validates v and returns an *apperr.Error describing every failed field.
func Struct(v interface{}) error {
	err := Validate(v)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperr.InvalidInput(err.Error())
	}

	fields := Fields(validationErrors)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return apperr.InvalidInput("Invalid input: " + strings.Join(parts, "; "))
}

func Fields(errs validator.ValidationErrors) []FieldError {
	fields := make([]FieldError, 0, len(errs))

	for _, fieldError := range errs {
		rule := fieldError.Tag()
		param := fieldError.Param()

		fields = append(fields, FieldError{
			Field:   fieldError.Field(),
			Rule:    rule,
			Param:   param,
			Message: Message(rule, param),
		})
	}
	return fields
}

func Message(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "len":
		return "must be exactly " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
