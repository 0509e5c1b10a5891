package domain

import (
	"errors"
	"net/http"
)

// HTTPError is implemented by errors that carry their own HTTP status and
// machine-readable code.
type HTTPError interface {
	error
	StatusCode() int
	Code() string
}

// Sentinel errors, matched with errors.Is against the typed errors below.
var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrParsing        = errors.New("file parsing error")
	ErrIO             = errors.New("file processing error")
	ErrInfrastructure = errors.New("infrastructure failure")
)

type (
	// ValidationError indicates invalid caller input.
	ValidationError struct {
		Message string
	}

	// NotFoundError indicates a referenced document or identity does not exist.
	NotFoundError struct {
		Message string
	}

	// ParsingError indicates content extraction failed for the uploaded file.
	ParsingError struct {
		Message string
		Err     error
	}

	// IOError indicates a local staging fault while handling an upload.
	IOError struct {
		Message string
		Err     error
	}

	// InfrastructureError indicates a storage or collaborator fault.
	InfrastructureError struct {
		Message string
		Err     error
	}
)

func (e *ValidationError) Error() string { return e.Message }
func (e *NotFoundError) Error() string   { return e.Message }

func (e *ParsingError) Error() string        { return withCause(e.Message, e.Err) }
func (e *IOError) Error() string             { return withCause(e.Message, e.Err) }
func (e *InfrastructureError) Error() string { return withCause(e.Message, e.Err) }

func (e *ParsingError) Unwrap() error        { return e.Err }
func (e *IOError) Unwrap() error             { return e.Err }
func (e *InfrastructureError) Unwrap() error { return e.Err }

func (e *ValidationError) StatusCode() int     { return http.StatusBadRequest }
func (e *NotFoundError) StatusCode() int       { return http.StatusNotFound }
func (e *ParsingError) StatusCode() int        { return http.StatusBadRequest }
func (e *IOError) StatusCode() int             { return http.StatusInternalServerError }
func (e *InfrastructureError) StatusCode() int { return http.StatusInternalServerError }

func (e *ValidationError) Code() string     { return "VALIDATION_ERROR" }
func (e *NotFoundError) Code() string       { return "NOT_FOUND" }
func (e *ParsingError) Code() string        { return "FILE_PARSING_ERROR" }
func (e *IOError) Code() string             { return "FILE_PROCESSING_ERROR" }
func (e *InfrastructureError) Code() string { return "INTERNAL_ERROR" }

func (e *ValidationError) Is(target error) bool     { return target == ErrValidation }
func (e *NotFoundError) Is(target error) bool       { return target == ErrNotFound }
func (e *ParsingError) Is(target error) bool        { return target == ErrParsing }
func (e *IOError) Is(target error) bool             { return target == ErrIO }
func (e *InfrastructureError) Is(target error) bool { return target == ErrInfrastructure }

// NewValidationError returns a ValidationError with the given message.
func NewValidationError(msg string) error { return &ValidationError{Message: msg} }

// NewNotFoundError returns a NotFoundError with the given message.
func NewNotFoundError(msg string) error { return &NotFoundError{Message: msg} }

// NewParsingError wraps an extraction failure.
func NewParsingError(msg string, err error) error { return &ParsingError{Message: msg, Err: err} }

// NewIOError wraps a staging failure.
func NewIOError(msg string, err error) error { return &IOError{Message: msg, Err: err} }

// NewInfrastructureError wraps a storage or collaborator failure.
func NewInfrastructureError(msg string, err error) error {
	return &InfrastructureError{Message: msg, Err: err}
}

// IsClientError reports whether err is safe to describe to the caller verbatim.
func IsClientError(err error) bool {
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode() < http.StatusInternalServerError
	}
	return false
}

func withCause(msg string, err error) string {
	if err == nil {
		return msg
	}
	return msg + ": " + err.Error()
}
