// ABOUTME: Input validation for records and definitions using validator struct tags.
// ABOUTME: Applied by the stores before any write reaches disk.
package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidRecord is wrapped by every validation failure.
var ErrInvalidRecord = errors.New("invalid record")

var validate = validator.New()

// ApplyDefaults fills fields that have a documented default when left empty.
func ApplyDefaults(r Record) {
	if a, ok := r.(*Activity); ok && a.Source == "" {
		a.Source = SourceManual
	}
}

// Validate checks a record's struct tags and that it carries a date.
func Validate(r Record) error {
	if r.Timestamp().IsZero() || r.DayKey().IsZero() {
		return fmt.Errorf("%w: %s: date is required", ErrInvalidRecord, r.Category())
	}
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %s: %s", ErrInvalidRecord, r.Category(), describe(err))
	}
	return nil
}

// ValidateDefinition checks a Medication or Marker.
func ValidateDefinition(def any) error {
	if err := validate.Struct(def); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRecord, describe(err))
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s %s", toSnakeCase(fe.Field()), message(fe)))
	}
	return strings.Join(msgs, "; ")
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		if fe.Kind().String() == "string" {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, c := range s {
		if c >= 'A' && c <= 'Z' {
			if i > 0 && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			b.WriteRune(c + 'a' - 'A')
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
