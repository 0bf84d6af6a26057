package domain

import (
	"errors"
	"net/http"
)

// Machine-readable error codes. The set is closed: handlers translate codes
// to HTTP statuses through statusByCode, so adding an error kind means adding
// a table row, not a new conditional branch.
const (
	CodeInvalidTitle    = "INVALID_TITLE"
	CodeInvalidEmail    = "INVALID_EMAIL"
	CodeInvalidPassword = "INVALID_PASSWORD"
	CodeInvalidDone     = "INVALID_DONE"
	CodeInvalidID       = "INVALID_ID"
	CodeInvalidPayload  = "INVALID_PAYLOAD"
	CodeAuthRequired    = "AUTH_REQUIRED"
	CodeAuthInvalid     = "AUTH_INVALID"
	CodeAuthFailed      = "AUTH_FAILED"
	CodeEmailExists     = "EMAIL_EXISTS"
	CodeTaskNotFound    = "TASK_NOT_FOUND"
	CodeUserNotFound    = "USER_NOT_FOUND"
	CodeInternal        = "INTERNAL"
)

var statusByCode = map[string]int{
	CodeInvalidTitle:    http.StatusBadRequest,
	CodeInvalidEmail:    http.StatusBadRequest,
	CodeInvalidPassword: http.StatusBadRequest,
	CodeInvalidDone:     http.StatusBadRequest,
	CodeInvalidID:       http.StatusBadRequest,
	CodeInvalidPayload:  http.StatusBadRequest,
	CodeAuthRequired:    http.StatusUnauthorized,
	CodeAuthInvalid:     http.StatusUnauthorized,
	CodeAuthFailed:      http.StatusUnauthorized,
	CodeEmailExists:     http.StatusConflict,
	CodeTaskNotFound:    http.StatusNotFound,
	CodeUserNotFound:    http.StatusNotFound,
	CodeInternal:        http.StatusInternalServerError,
}

// Error is a tagged domain failure carrying a machine-readable code and a
// human message. Only the service layer raises these; the HTTP layer maps
// them to statuses and never invents new semantics.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// E constructs a domain error.
func E(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// HTTPStatus resolves the error code through the status table. Unknown codes
// fall back to 500 so an unmapped error can never leak a misleading status.
func (e *Error) HTTPStatus() int {
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Predeclared errors for failures whose message never varies. Login failures
// share one value so both halves of a bad credential pair are
// indistinguishable to the caller.
var (
	ErrInvalidTitle    = E(CodeInvalidTitle, "title must be at least 3 characters")
	ErrInvalidEmail    = E(CodeInvalidEmail, "email is invalid")
	ErrInvalidPassword = E(CodeInvalidPassword, "password must be 8+ chars and include a symbol")
	ErrInvalidDone     = E(CodeInvalidDone, "done must be boolean")
	ErrInvalidID       = E(CodeInvalidID, "id must be an integer")
	ErrAuthRequired    = E(CodeAuthRequired, "missing token")
	ErrAuthInvalid     = E(CodeAuthInvalid, "invalid or expired token")
	ErrAuthFailed      = E(CodeAuthFailed, "invalid credentials")
	ErrEmailExists     = E(CodeEmailExists, "email already exists")
	ErrTaskNotFound    = E(CodeTaskNotFound, "task not found")
	ErrUserNotFound    = E(CodeUserNotFound, "user not found")
)

// AsError extracts a domain error from an error chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
