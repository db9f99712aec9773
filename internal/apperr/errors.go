package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies failures surfaced to screens.
type ErrorType string

const (
	TypeNetwork    ErrorType = "NETWORK_ERROR"
	TypeStatus     ErrorType = "HTTP_STATUS_ERROR"
	TypeDecode     ErrorType = "DECODE_ERROR"
	TypeValidation ErrorType = "VALIDATION_ERROR"
	TypeAuth       ErrorType = "AUTH_ERROR"
	TypeConflict   ErrorType = "CONFLICT_ERROR"
)

var (
	// ErrInFlight is returned when the same logical action is already being executed.
	ErrInFlight = errors.New("action already in progress")
	// ErrNotSignedIn is returned by operations that need an identity.
	ErrNotSignedIn = errors.New("please login first")
	// ErrForbidden is returned when the resolved role may not perform an action.
	ErrForbidden = errors.New("forbidden")
)

// Error is the common error carried through the adapter, cache and mutation layers.
// Status is 0 when no response reached the client.
type Error struct {
	Type    ErrorType         `json:"type"`
	Status  int               `json:"status,omitempty"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Cause   error             `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Network reports a transport failure (no response).
func Network(cause error) *Error {
	return &Error{Type: TypeNetwork, Message: "network error", Cause: cause}
}

// Status reports a non-2xx response.
func Status(code int, message string) *Error {
	if message == "" {
		message = http.StatusText(code)
	}
	return &Error{Type: TypeStatus, Status: code, Message: message}
}

// Decode reports a response body that was not valid JSON.
func Decode(code int, cause error) *Error {
	return &Error{Type: TypeDecode, Status: code, Message: "malformed response", Cause: cause}
}

// Validation reports form constraint violations keyed by field name.
func Validation(message string, fields map[string]string) *Error {
	return &Error{Type: TypeValidation, Message: message, Fields: fields}
}

// Auth reports a rejected credential or session. The message is shown verbatim.
func Auth(status int, message string) *Error {
	return &Error{Type: TypeAuth, Status: status, Message: message}
}

// Conflict wraps a 4xx that the caller knows means "already exists".
func Conflict(message string, cause error) *Error {
	status := StatusOf(cause)
	if status == 0 {
		status = http.StatusConflict
	}
	return &Error{Type: TypeConflict, Status: status, Message: message, Cause: cause}
}

func typeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}

func IsNetwork(err error) bool    { return typeOf(err) == TypeNetwork }
func IsStatus(err error) bool     { return typeOf(err) == TypeStatus }
func IsDecode(err error) bool     { return typeOf(err) == TypeDecode }
func IsValidation(err error) bool { return typeOf(err) == TypeValidation }
func IsAuth(err error) bool       { return typeOf(err) == TypeAuth }
func IsConflict(err error) bool   { return typeOf(err) == TypeConflict }

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// IsClientStatus reports a 4xx response.
func IsClientStatus(err error) bool {
	s := StatusOf(err)
	return s >= 400 && s < 500
}

// Message returns the user-facing text for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
