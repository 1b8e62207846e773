package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnknownMaterialType = errors.New("unknown material type")
	ErrInvalidIdentifier   = errors.New("invalid identifier")
	ErrRunNotFound         = errors.New("batch run not found")
	ErrDuplicatePOL        = errors.New("POL already exists for vendor and identifier")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidInput        = errors.New("invalid batch input")
)

// AuthError means the credentials for an external service are invalid or
// expired. It is fatal to the whole run.
type AuthError struct {
	Service string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %v", e.Service, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError creates an AuthError for service.
func NewAuthError(service string, err error) *AuthError {
	return &AuthError{Service: service, Err: err}
}

// TransientError is a retryable failure: network errors, throttling and 5xx
// responses. RetryAfter carries the server's hint when one was sent.
type TransientError struct {
	Service    string
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *TransientError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s transient failure (retry after %s): %v", e.Service, e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("%s transient failure: %v", e.Service, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError creates a TransientError. retryAfterSecs <= 0 means no hint.
func NewTransientError(service string, statusCode int, err error, retryAfterSecs int) *TransientError {
	var retryAfter time.Duration
	if retryAfterSecs > 0 {
		retryAfter = time.Duration(retryAfterSecs) * time.Second
	}
	return &TransientError{
		Service:    service,
		StatusCode: statusCode,
		RetryAfter: retryAfter,
		Err:        err,
	}
}

// FieldError names one missing or invalid POL field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every field that failed validation for one item.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Reason
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a failing field.
func (e *ValidationError) Add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

// HasErrors reports whether any field failed.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// FieldNames returns the failing field names in the order they were added.
func (e *ValidationError) FieldNames() []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return names
}

// RejectedError is a schema or business-rule rejection from the ILS. It is
// never retried.
type RejectedError struct {
	StatusCode int
	Code       string
	Reason     string
}

func (e *RejectedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("ILS rejected POL (status %d, code %s): %s", e.StatusCode, e.Code, e.Reason)
	}
	return fmt.Sprintf("ILS rejected POL (status %d): %s", e.StatusCode, e.Reason)
}

// IsAuth reports whether err is or wraps an AuthError.
func IsAuth(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsTransient reports whether err is or wraps a TransientError.
func IsTransient(err error) bool {
	var tErr *TransientError
	return errors.As(err, &tErr)
}

// RetryAfterOf returns the server retry hint carried by err, or zero.
func RetryAfterOf(err error) time.Duration {
	var tErr *TransientError
	if errors.As(err, &tErr) {
		return tErr.RetryAfter
	}
	return 0
}

// ParseRetryAfterHeader parses a Retry-After header value into seconds. Both
// the delta-seconds and HTTP-date forms are accepted. Returns 0 if the value is
// empty, invalid or already in the past.
func ParseRetryAfterHeader(val string) int {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0
	}
	if secs, err := strconv.Atoi(val); err == nil {
		if secs < 0 {
			return 0
		}
		return secs
	}
	at, err := http.ParseTime(val)
	if err != nil {
		return 0
	}
	secs := int(time.Until(at).Round(time.Second).Seconds())
	if secs < 0 {
		return 0
	}
	return secs
}
