package errors

import (
	"fmt"
	"net/http"
)

const (
	CodeNotFound          = "NOT_FOUND"
	CodeValidation        = "VALIDATION_ERROR"
	CodeForbidden         = "FORBIDDEN"
	CodeConflict          = "CONFLICT"
	CodeInternal          = "INTERNAL_ERROR"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeTooEarly          = "TOO_EARLY"
	CodeRoomBusy          = "ROOM_BUSY"
	CodeConflictingUpdate = "CONFLICTING_UPDATE"
	CodeNotOngoing        = "NOT_ONGOING"
	CodeExtensionPending  = "EXTENSION_PENDING"
	CodeNoPendingExt      = "NO_PENDING_EXTENSION"
)

// AppError is the structured error surfaced to callers. Business-rule
// violations are values of this type, never panics.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus, Err: err}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{Code: CodeInvalidInput, Message: message, HTTPStatus: http.StatusBadRequest}
}

func Forbidden(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message, HTTPStatus: http.StatusForbidden}
}

func Conflict(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message, HTTPStatus: http.StatusConflict}
}

func Internal(message string, err error) *AppError {
	return &AppError{Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError, Err: err}
}

// InvalidTransition reports an action that is not legal from the current
// reservation status.
func InvalidTransition(status, action string) *AppError {
	return &AppError{
		Code:       CodeInvalidTransition,
		Message:    fmt.Sprintf("action %q is not allowed while reservation is %q", action, status),
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"status": status,
			"action": action,
		},
	}
}

// TooEarly reports a start attempted before the pre-start window opens.
func TooEarly(message string) *AppError {
	return &AppError{Code: CodeTooEarly, Message: message, HTTPStatus: http.StatusConflict}
}

// RoomBusy reports a start that would put two reservations ongoing in the
// same room.
func RoomBusy(roomID string) *AppError {
	return &AppError{
		Code:       CodeRoomBusy,
		Message:    "another reservation is already ongoing in this room",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"room_id": roomID},
	}
}

// ConflictingUpdate reports an optimistic-concurrency loss. The caller should
// re-fetch and retry; this is the only retry-safe failure.
func ConflictingUpdate(resource string) *AppError {
	return &AppError{
		Code:       CodeConflictingUpdate,
		Message:    fmt.Sprintf("%s was modified concurrently, re-fetch and retry", resource),
		HTTPStatus: http.StatusConflict,
	}
}

func NotOngoing(message string) *AppError {
	return &AppError{Code: CodeNotOngoing, Message: message, HTTPStatus: http.StatusConflict}
}

func ExtensionPending(message string) *AppError {
	return &AppError{Code: CodeExtensionPending, Message: message, HTTPStatus: http.StatusConflict}
}

func NoPendingExtension(message string) *AppError {
	return &AppError{Code: CodeNoPendingExt, Message: message, HTTPStatus: http.StatusConflict}
}

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

func AsAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}
