package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Status  int                 `json:"status"`
	Fields  map[string][]string `json:"fields,omitempty"`
	Err     error               `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Fetch failure taxonomy. Every remote collection failure is one of these.
var (
	ErrConnection   = New("CONNECTION_ERROR", http.StatusBadGateway, "could not reach the timetable service")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "not signed in or session expired")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusUnprocessableEntity, "validation failed")
	ErrServer       = New("SERVER_ERROR", http.StatusBadGateway, "timetable service error")
)

// Predefined errors for local API scenarios.
var (
	ErrNotFound    = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrBadRequest  = New("BAD_REQUEST", http.StatusBadRequest, "bad request")
	ErrDisabled    = New("DISABLED", http.StatusNotFound, "feature disabled")
	ErrRateLimited = New("RATE_LIMITED", http.StatusTooManyRequests, "too many requests")
	ErrInternal    = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// Reason is the coarse failure class of a fetch.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonConnection   Reason = "connection"
	ReasonUnauthorized Reason = "unauthorized"
	ReasonValidation   Reason = "validation"
	ReasonServer       Reason = "server"
)

// ReasonOf classifies err into the fetch taxonomy. Unknown errors are server errors.
func ReasonOf(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrConnection):
		return ReasonConnection
	case errors.Is(err, ErrUnauthorized):
		return ReasonUnauthorized
	case errors.Is(err, ErrValidation):
		return ReasonValidation
	default:
		return ReasonServer
	}
}

// FetchReason reports the taxonomy class of err when it is a remote fetch failure.
func FetchReason(err error) (Reason, bool) {
	for _, sentinel := range []*Error{ErrConnection, ErrUnauthorized, ErrValidation, ErrServer} {
		if errors.Is(err, sentinel) {
			return ReasonOf(err), true
		}
	}
	return ReasonNone, false
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WithFields returns a copy of err carrying field-level messages.
func WithFields(err *Error, message string, fields map[string][]string) *Error {
	clone := Clone(err, message)
	if clone == nil {
		return nil
	}
	if len(fields) > 0 {
		clone.Fields = make(map[string][]string, len(fields))
		for k, v := range fields {
			clone.Fields[k] = append([]string(nil), v...)
		}
	}
	return clone
}
