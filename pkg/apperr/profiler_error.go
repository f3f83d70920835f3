package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Startup errors
	CodeConfigError = "CONFIG_ERROR"

	// Extraction errors
	CodeExtractionFailure = "EXTRACTION_FAILURE"
	CodeAggregationError  = "AGGREGATION_ERROR"
	CodeIngestError       = "INGEST_ERROR"

	// External lookup errors
	CodeLookupUnavailable = "LOOKUP_UNAVAILABLE"

	// Request errors
	CodeBadRequest = "BAD_REQUEST"
	CodeNotFound   = "NOT_FOUND"

	// Internal errors
	CodeInternalError = "INTERNAL_ERROR"
	CodeTimeout       = "TIMEOUT"
)

// AppError represents a structured application error
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Status  int            `json:"-"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// HTTPStatus returns the HTTP status code
func (e *AppError) HTTPStatus() int {
	return e.Status
}

// Constructor functions
func New(code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

func Wrap(err error, code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// ConfigError reports an invalid configuration value. Fatal at startup:
// the process exits before any work begins.
func ConfigError(key, reason string) *AppError {
	return &AppError{
		Code:    CodeConfigError,
		Message: fmt.Sprintf("invalid config '%s': %s", key, reason),
		Status:  http.StatusInternalServerError,
		Details: map[string]any{"key": key},
	}
}

// ExtractionFailure reports one strategy failing for one message. Never
// fatal: the chain converts it to a zero signal and moves on.
func ExtractionFailure(strategy string, err error) *AppError {
	return &AppError{
		Code:    CodeExtractionFailure,
		Message: fmt.Sprintf("extraction strategy '%s' failed", strategy),
		Status:  http.StatusInternalServerError,
		Details: map[string]any{"strategy": strategy},
		Err:     err,
	}
}

// AggregationFailed reports one field of one identity whose merge failed.
func AggregationFailed(identity, field, reason string) *AppError {
	return &AppError{
		Code:    CodeAggregationError,
		Message: fmt.Sprintf("aggregation failed for %s.%s: %s", identity, field, reason),
		Status:  http.StatusInternalServerError,
		Details: map[string]any{"identity": identity, "field": field},
	}
}

// IngestError reports a mailbox file that could not be read or parsed.
func IngestError(path string, err error) *AppError {
	return &AppError{
		Code:    CodeIngestError,
		Message: fmt.Sprintf("failed to ingest %s", path),
		Status:  http.StatusBadRequest,
		Details: map[string]any{"path": path},
		Err:     err,
	}
}

// LookupUnavailable reports an external lookup service that is down or
// circuit-broken. Strategies treat it as an extraction failure.
func LookupUnavailable(service string, err error) *AppError {
	return &AppError{
		Code:    CodeLookupUnavailable,
		Message: fmt.Sprintf("lookup service unavailable: %s", service),
		Status:  http.StatusBadGateway,
		Details: map[string]any{"service": service},
		Err:     err,
	}
}

// Request errors
func BadRequest(message string) *AppError {
	return &AppError{
		Code:    CodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
	}
}

// Internal errors
func Internal(message string) *AppError {
	if message == "" {
		message = "internal error"
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}

func InternalWithError(err error) *AppError {
	return &AppError{
		Code:    CodeInternalError,
		Message: "internal error",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func Timeout(operation string) *AppError {
	return &AppError{
		Code:    CodeTimeout,
		Message: fmt.Sprintf("operation timed out: %s", operation),
		Status:  http.StatusGatewayTimeout,
	}
}

// Helper functions
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalWithError(err)
}

func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
