package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a domain error that knows its HTTP status.
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

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches on Code so clones and wrapped copies compare equal to the sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

func Wrap(err error, base *Error, message string) *Error {
	if message == "" {
		message = base.Message
	}
	return &Error{Code: base.Code, Status: base.Status, Message: message, Err: err}
}

var (
	ErrValidation            = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrUnauthenticated       = New("UNAUTHENTICATED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden             = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrNotFound              = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConflict              = New("CONFLICT", http.StatusConflict, "concurrent modification, retry")
	ErrDuplicateName         = New("DUPLICATE_NAME", http.StatusConflict, "name already exists")
	ErrInvalidTransition     = New("INVALID_TRANSITION", http.StatusConflict, "invalid status transition")
	ErrTooManyAttempts       = New("TOO_MANY_ATTEMPTS", http.StatusTooManyRequests, "too many attempts")
	ErrDependencyUnavailable = New("DEPENDENCY_UNAVAILABLE", http.StatusServiceUnavailable, "dependency unavailable")
	ErrInternal              = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// FromError normalises any error into an *Error. Unknown errors become ErrInternal.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal, "")
}

// Clone copies err with an optional message override.
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
