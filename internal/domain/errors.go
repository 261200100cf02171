package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists is returned when a uniqueness rule is violated
	// (duplicate review for a user/product pair, duplicate vote)
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrForbidden is returned when the caller is not allowed to perform
	// the operation (e.g. editing someone else's review)
	ErrForbidden = errors.New("operation not allowed")

	// ErrSelfVote is returned when a review author votes on their own review
	ErrSelfVote = errors.New("cannot vote on own review")

	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
)

// FieldError describes a single failed validation rule
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries the complete list of field errors for a request.
// Validation never stops at the first failure so callers can report every
// problem at once.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}

// Messages returns the flat list of error messages
func (e *ValidationError) Messages() []string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return msgs
}

// Add appends a field error
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any rule failed
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}
