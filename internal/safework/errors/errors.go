// Package errors defines the error taxonomy shared by every layer of the
// service. Callers match on the sentinels with errors.Is.
package errors

import (
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound             = fmt.Errorf("not found")
	ErrValidation           = fmt.Errorf("validation failed")
	ErrReferentialIntegrity = fmt.Errorf("referential integrity violation")
	ErrInvalidCredentials   = fmt.Errorf("invalid credentials")
	ErrInvalidToken         = fmt.Errorf("invalid token")
	ErrTokenExpired         = fmt.Errorf("token expired")
	ErrAuthorizationDenied  = fmt.Errorf("authorization denied")
)

// ValidationError carries field level problems for a rejected write.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns an empty ValidationError ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Invalid is a shorthand for a ValidationError with a single problem.
func Invalid(field, problem string) *ValidationError {
	v := NewValidationError()
	v.Add(field, problem)
	return v
}

func (v *ValidationError) Add(field, problem string) {
	v.Fields[field] = append(v.Fields[field], problem)
}

// Merge copies the problems of other into v.
func (v *ValidationError) Merge(other *ValidationError) {
	if other == nil {
		return
	}
	for field, problems := range other.Fields {
		v.Fields[field] = append(v.Fields[field], problems...)
	}
}

// OrNil returns nil when no problem was recorded, so callers can
// `return v.OrNil()` without tripping over typed nil interfaces.
func (v *ValidationError) OrNil() error {
	if v == nil || len(v.Fields) == 0 {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	fields := make([]string, 0, len(v.Fields))
	for field := range v.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(v.Fields[field], ", "))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (v *ValidationError) Unwrap() error {
	return ErrValidation
}
