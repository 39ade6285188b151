package services

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindNotFound    ErrorKind = "NOT_FOUND"
	KindValidation  ErrorKind = "VALIDATION_ERROR"
	KindPersistence ErrorKind = "PERSISTENCE_ERROR"
	KindNoMatch     ErrorKind = "NO_MATCH"
)

// Sentinels for errors.Is; every ServiceError matches the sentinel of its kind.
var (
	ErrNotFound    = &ServiceError{Kind: KindNotFound}
	ErrValidation  = &ServiceError{Kind: KindValidation}
	ErrPersistence = &ServiceError{Kind: KindPersistence}
	ErrNoMatch     = &ServiceError{Kind: KindNoMatch}
)

// ServiceError carries a short user-facing message. Cause is for logs only.
type ServiceError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	return ok && t.Message == "" && t.Cause == nil && t.Kind == e.Kind
}

// StatusCode maps the kind to an HTTP status.
func (e *ServiceError) StatusCode() int {
	switch e.Kind {
	case KindNotFound, KindNoMatch:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func NewNotFoundError(message string) *ServiceError {
	return &ServiceError{Kind: KindNotFound, Message: message}
}

func NewValidationError(message string) *ServiceError {
	return &ServiceError{Kind: KindValidation, Message: message}
}

func NewPersistenceError(message string, cause error) *ServiceError {
	return &ServiceError{Kind: KindPersistence, Message: message, Cause: cause}
}

func NewNoMatchError(message string) *ServiceError {
	return &ServiceError{Kind: KindNoMatch, Message: message}
}

// AsServiceError unwraps err into a ServiceError, treating anything else as
// a persistence failure with a generic message.
func AsServiceError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return NewPersistenceError("internal error", err)
}
