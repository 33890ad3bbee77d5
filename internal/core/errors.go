package core

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed caller input. It is never retried.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NotFoundError reports a record that is missing or owned by someone else.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// ConflictError reports a write rejected by a uniqueness or reference rule.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// StoreUnavailableError wraps an I/O failure of the record store.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable (%s): %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

func NewValidationError(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

func NewNotFoundError(resource string, id int64) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func NewConflictError(format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// Unavailable wraps err as a StoreUnavailableError unless it already carries
// one of the typed errors of this package.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsTyped(err) {
		return err
	}
	return &StoreUnavailableError{Op: op, Err: err}
}

// IsTyped reports whether err already carries one of the typed errors.
func IsTyped(err error) bool {
	var (
		ve *ValidationError
		nf *NotFoundError
		ce *ConflictError
		su *StoreUnavailableError
	)
	return errors.As(err, &ve) || errors.As(err, &nf) || errors.As(err, &ce) || errors.As(err, &su)
}
