package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidFilterConfig = NewError("INVALID_FILTER_CONFIG", "invalid filter configuration", http.StatusBadRequest)
	ErrUnknownLevel        = NewError("UNKNOWN_LEVEL", "unknown log level", http.StatusBadRequest)
	ErrNotFound            = NewError("NOT_FOUND", "resource not found", http.StatusNotFound)
	ErrValidation          = NewError("VALIDATION_ERROR", "validation failed", http.StatusBadRequest)
	ErrInternal            = NewError("INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
	ErrCircuitOpen         = NewError("CIRCUIT_OPEN", "receiver circuit is open", http.StatusServiceUnavailable)
)

type FatalError interface {
	error
	IsFatal() bool
}

type Error struct {
	Code    string
	Message string
	Status  int
	Details map[string]interface{}
	Cause   error
	fatal   *bool
}

func NewError(code, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Status:  status,
		Details: make(map[string]interface{}),
	}
}

func (e *Error) Error() string {
	msg := e.Message

	if len(e.Details) > 0 {
		if detailMsg, ok := e.Details["message"].(string); ok && detailMsg != "" {
			msg = detailMsg
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on Code so copies made by WithCause/WithDetail still compare
// equal to the sentinel they were derived from.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func (e *Error) IsFatal() bool {
	if e.fatal != nil {
		return *e.fatal
	}

	if e.Cause != nil {
		var fatalErr FatalError
		if errors.As(e.Cause, &fatalErr) {
			return fatalErr.IsFatal()
		}
	}

	return e.Code == ErrInvalidFilterConfig.Code || e.Code == ErrValidation.Code
}

func (e *Error) WithCause(cause error) *Error {
	err := *e
	err.Cause = cause
	return &err
}

func (e *Error) WithMessage(message string) *Error {
	return e.WithDetail("message", message)
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	err := *e
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	err.Details = details
	return &err
}

func (e *Error) AsFatal() *Error {
	err := *e
	fatal := true
	err.fatal = &fatal
	return &err
}

func Wrap(err error, appErr *Error) *Error {
	if err == nil {
		return nil
	}
	return appErr.WithCause(err)
}

func InvalidFilterConfig(format string, args ...interface{}) *Error {
	return ErrInvalidFilterConfig.WithMessage(fmt.Sprintf(format, args...))
}

func IsInvalidFilterConfig(err error) bool {
	return hasCode(err, ErrInvalidFilterConfig.Code)
}

func IsUnknownLevel(err error) bool {
	return hasCode(err, ErrUnknownLevel.Code)
}

func IsNotFound(err error) bool {
	return hasCode(err, ErrNotFound.Code)
}

func IsValidation(err error) bool {
	return hasCode(err, ErrValidation.Code)
}

func IsCircuitOpen(err error) bool {
	return hasCode(err, ErrCircuitOpen.Code)
}

func hasCode(err error, code string) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func ToHTTPStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

func ToErrorResponse(err error) map[string]interface{} {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = ErrInternal.WithCause(err)
	}

	response := map[string]interface{}{
		"error":      appErr.Message,
		"error_code": appErr.Code,
	}

	if len(appErr.Details) > 0 {
		response["details"] = appErr.Details
	}

	return response
}
