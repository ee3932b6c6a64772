package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the typed failure carried from the service layer to the HTTP
// layer. Code is the stable machine-readable label clients switch on, Status
// picks the response code, Message is safe to show to the caller.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the cause for errors.Is and errors.As chains.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches two catalogue entries by code, so errors.Is works across Clone
// copies and Wrap instances of the same entry.
func (e *Error) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	t, ok := target.(*Error)
	return ok && t != nil && t.Code == e.Code
}

// New creates a catalogue entry.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches a cause to a catalogue entry, keeping the original error
// reachable for logging while the client sees only code and message.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// The error catalogue. Every service failure maps onto one of these.
var (
	// Sessions and access control.
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")

	// Generic request outcomes.
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	// Signup.
	ErrEmailTaken       = New("EMAIL_TAKEN", http.StatusConflict, "email already registered")
	ErrUsernameTaken    = New("USERNAME_TAKEN", http.StatusConflict, "username is already taken")
	ErrTermsNotAccepted = New("TERMS_NOT_ACCEPTED", http.StatusPreconditionFailed, "terms and conditions must be accepted")

	// Application wizard and lifecycle.
	ErrStepIncomplete    = New("STEP_INCOMPLETE", http.StatusUnprocessableEntity, "current step is incomplete")
	ErrDraftSubmitted    = New("DRAFT_SUBMITTED", http.StatusConflict, "draft has already been submitted")
	ErrDuplicateApply    = New("DUPLICATE_APPLICATION", http.StatusConflict, "an application for this program and intake already exists")
	ErrInvalidTransition = New("INVALID_TRANSITION", http.StatusConflict, "status transition not allowed")

	// Document uploads.
	ErrFileTooLarge    = New("FILE_TOO_LARGE", http.StatusRequestEntityTooLarge, "file exceeds the maximum allowed size")
	ErrUnsupportedMIME = New("UNSUPPORTED_FILE_TYPE", http.StatusUnsupportedMediaType, "file type is not allowed")
)

// FromError normalises any error into an *Error. Unknown errors become
// internal server errors so their details never leak into a response body.
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

// Clone copies a catalogue entry with a request-specific message. The code
// and status of the entry are kept so clients can still switch on them.
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
