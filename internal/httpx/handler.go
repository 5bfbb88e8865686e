// Package httpx is a convenience wrapper around the http.ServeMux type that
// allows us to return errors from our handlers.
// see https://blog.questionable.services/article/http-handler-error-handling-revisited/ for more details.
package httpx

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-json-experiment/json"
	"github.com/google/uuid"
)

// Machine readable error codes.
const (
	CodeInvalidParameters = "invalid_parameters"
	CodeMalformedRequest  = "malformed_request"
	CodeUnauthorized      = "unauthorized"
	CodeInsufficientScope = "insufficient_scope"
	CodeForbidden         = "forbidden_access"
	CodeNotFound          = "not_found"
	CodeActorNotFound     = "actor_not_found"
	CodeOutboxNotFound    = "outbox_not_found"
	CodeRateLimitExceeded = "rate_limit_exceeded"
	CodeInternalError     = "internal_server_error"
)

// Error is a convenience function for returning an error with an associated HTTP status code.
func Error(code int, err error) error {
	return &StatusError{Code: code, Reason: reasonFor(code), Err: err}
}

// Problem returns an error with an associated HTTP status code and machine
// readable reason. The error's message is shown to the caller.
func Problem(code int, reason string, err error) error {
	return &StatusError{Code: code, Reason: reason, Err: err}
}

// StatusError represents an error with an associated HTTP status code.
type StatusError struct {
	Code int
	// Reason is a stable, machine readable error code.
	Reason string
	Err    error
}

// Allows StatusError to satisfy the error interface.
func (se *StatusError) Error() string {
	return se.Err.Error()
}

func (se *StatusError) Unwrap() error {
	return se.Err
}

// Returns our HTTP status code.
func (se *StatusError) Status() int {
	return se.Code
}

func reasonFor(code int) string {
	switch code {
	case http.StatusBadRequest:
		return CodeInvalidParameters
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusMethodNotAllowed, http.StatusUnsupportedMediaType:
		return CodeMalformedRequest
	case http.StatusTooManyRequests:
		return CodeRateLimitExceeded
	default:
		return CodeInternalError
	}
}

// ErrorBody is the JSON document written for every failed request.
type ErrorBody struct {
	Error       string `json:"error"`
	ErrorCode   string `json:"error_code"`
	Description string `json:"description"`
	Endpoint    string `json:"endpoint"`
	Method      string `json:"method"`
	RequestID   string `json:"request_id"`
	Timestamp   string `json:"timestamp"`
}

// HandlerFunc adapts a function that returns an error to an http.HandlerFunc.
func HandlerFunc[E any](envFn func(r *http.Request) *E, fn func(*E, http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env := envFn(r)
		if err := fn(env, w, r); err != nil {
			WriteError(w, r, err)
		}
	}
}

// WriteError writes err to w as an ErrorBody. Errors which are not a
// *StatusError are reported as internal server errors without detail.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	se := new(StatusError)
	if !errors.As(err, &se) {
		se = &StatusError{
			Code:   http.StatusInternalServerError,
			Reason: CodeInternalError,
			Err:    errors.New("internal server error"),
		}
	}
	Logger(r.Context()).Info("HTTP", "method", r.Method, "path", r.URL.Path, "status", se.Status(), "error", err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(se.Status())
	json.MarshalFull(w, &ErrorBody{
		Error:       se.Reason,
		ErrorCode:   se.Reason,
		Description: se.Error(),
		Endpoint:    r.URL.Path,
		Method:      r.Method,
		RequestID:   requestID(r),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}

// requestID returns the id chi assigned to the request, or a fresh uuid.
func requestID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.New().String()
}
