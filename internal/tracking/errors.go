package tracking

import (
	"errors"
	"sort"
	"strings"

	"calibration-tracker/internal/store"
)

var (
	// ErrDepartmentMismatch is returned when the acting user or the payload names a
	// department other than the one owning the target location.
	ErrDepartmentMismatch = errors.New("department mismatch")
	// ErrNotOwner is returned when an employee acts on equipment assigned to someone else.
	ErrNotOwner = errors.New("equipment is not assigned to this employee")
	// ErrRecallExhausted is returned when no free recall number could be drawn.
	ErrRecallExhausted = errors.New("could not allocate a recall number")

	ErrNotFound         = store.ErrNotFound
	ErrAlreadyReleased  = store.ErrAlreadyReleased
	ErrAlreadyCompleted = store.ErrAlreadyCompleted
	ErrDuplicateSerial  = store.ErrDuplicateSerial
	ErrOpenLoanExists   = store.ErrOpenLoanExists
	ErrNoOpenLoan       = store.ErrNoOpenLoan
)

// ValidationError reports malformed input per field. Nothing has been written when it is returned.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
