package incidents

import (
	"errors"
	"strings"
)

// Lookup errors.
var (
	ErrIncidentNotFound = errors.New("incident not found")
)

// Validation errors.
var (
	ErrNoData          = errors.New("no json data provided")
	ErrInvalidJSON     = errors.New("invalid json")
	ErrMissingFields   = errors.New("missing required fields")
	ErrInvalidSeverity = errors.New("invalid severity")
	ErrInvalidStatus   = errors.New("invalid status")
)

// MissingFieldsError lists required fields that were absent or blank,
// in declaration order.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return ErrMissingFields.Error() + ": " + strings.Join(e.Fields, ", ")
}

// Is reports whether target is ErrMissingFields.
func (e *MissingFieldsError) Is(target error) bool {
	return target == ErrMissingFields
}
