package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
)

type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// ValidationError reports missing or malformed request fields.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string { return e.Message }

type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// UpstreamError wraps a backend or external-service failure. Message is
// returned to the caller; Cause is only logged.
type UpstreamError struct {
	Message string
	Cause   error
}

func (e *UpstreamError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *UpstreamError) Unwrap() error { return e.Cause }

func Validation(message string, fields ...string) error {
	return &ValidationError{Message: message, Fields: fields}
}

func Unauthenticated(message string) error {
	return &AuthenticationError{Message: message}
}

func Forbidden(message string) error {
	return &AuthorizationError{Message: message}
}

func NotFound(message string) error {
	return &NotFoundError{Message: message}
}

func Conflict(message string) error {
	return &ConflictError{Message: message}
}

func Upstream(message string, cause error) error {
	return &UpstreamError{Message: message, Cause: cause}
}

// Status maps err onto its HTTP status and error code.
func Status(err error) (int, string) {
	var (
		validation *ValidationError
		authn      *AuthenticationError
		authz      *AuthorizationError
		notFound   *NotFoundError
		conflict   *ConflictError
	)
	switch {
	case stderrors.As(err, &validation):
		return http.StatusBadRequest, ErrCodeInvalidInput
	case stderrors.As(err, &authn):
		return http.StatusUnauthorized, ErrCodeUnauthorized
	case stderrors.As(err, &authz):
		return http.StatusForbidden, ErrCodeForbidden
	case stderrors.As(err, &notFound):
		return http.StatusNotFound, ErrCodeNotFound
	case stderrors.As(err, &conflict):
		return http.StatusConflict, ErrCodeConflict
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}

// IsUpstream reports whether err is a backend failure rather than a caller error.
func IsUpstream(err error) bool {
	status, _ := Status(err)
	return status == http.StatusInternalServerError
}

// Respond writes err using the standard envelope. Unknown errors become a
// generic 500 without leaking their text.
func Respond(w http.ResponseWriter, err error) {
	status, code := Status(err)

	var details interface{}
	var validation *ValidationError
	if stderrors.As(err, &validation) && len(validation.Fields) > 0 {
		details = map[string]interface{}{"fields": validation.Fields}
	}

	WriteError(w, status, code, PublicMessage(err), details)
}

// PublicMessage is the text of err that is safe to return to a caller.
func PublicMessage(err error) string {
	var upstream *UpstreamError
	if stderrors.As(err, &upstream) {
		return upstream.Message
	}
	if status, _ := Status(err); status == http.StatusInternalServerError {
		return "Internal server error"
	}
	return err.Error()
}

func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    code,
		Details: details,
	})
}
