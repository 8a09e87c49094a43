package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"movie-app/internal/rating"
)

// FieldError is one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every rejected field of one request.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError builds a single-field ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}

// NewValidator returns a validator that reports json field names and knows the
// halfstep, trimmedlen and isodate rules.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "halfstep", func(fl validator.FieldLevel) bool {
		return rating.ValidHalfStep(fl.Field().Float())
	})
	mustRegister(v, "trimmedlen", validateTrimmedLen)
	mustRegister(v, "isodate", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// validateTrimmedLen checks the rune length of the trimmed string against "min-max".
func validateTrimmedLen(fl validator.FieldLevel) bool {
	lo, hi, ok := parseRange(fl.Param())
	if !ok {
		return false
	}
	n := utf8.RuneCountInString(strings.TrimSpace(fl.Field().String()))
	return n >= lo && n <= hi
}

func parseRange(param string) (int, int, bool) {
	before, after, found := strings.Cut(param, "-")
	if !found {
		return 0, 0, false
	}
	lo, err1 := strconv.Atoi(before)
	hi, err2 := strconv.Atoi(after)
	return lo, hi, err1 == nil && err2 == nil
}

// AsValidationError converts validator output into a ValidationError. Other errors
// are returned as a single "body" field error.
func AsValidationError(err error) *ValidationError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewValidationError("body", err.Error())
	}
	out := &ValidationError{Errors: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, FieldError{Field: fieldPath(fe), Message: message(fe)})
	}
	return out
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid":
		return "must be a valid id"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("cannot exceed %s characters", fe.Param())
		}
		return "cannot exceed " + fe.Param()
	case "gt", "gte":
		return "must be at least " + fe.Param()
	case "lt", "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "halfstep":
		return "must be between 1 and 5 in steps of 0.5"
	case "trimmedlen":
		lo, hi, _ := parseRange(fe.Param())
		return fmt.Sprintf("must be between %d and %d characters", lo, hi)
	case "isodate":
		return "must be an ISO-8601 date"
	}
	return "is invalid"
}
