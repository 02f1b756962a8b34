package feed

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the post lifecycle
var (
	// ErrNotFound is returned when a post or user id does not resolve
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when a valid identity is not the owner of the
	// post it tries to mutate
	ErrForbidden = errors.New("not authorized")
)

// FieldError carries one field-level validation message
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates every field that failed a constraint so the API
// can surface them all at once
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// IsValidationError checks if error is a validation error
func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}
