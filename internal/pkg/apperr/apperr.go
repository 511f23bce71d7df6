// Package apperr is the error taxonomy shared by every module.
//
// Services return errors built with the constructors below; handlers map them
// to HTTP with HTTPStatus and Code. Anything that is not one of the known
// kinds is an internal failure.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error carries a caller-facing message and the kind it belongs to.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }
func (e *Error) Unwrap() error { return e.kind }

func newf(kind error, format string, args ...interface{}) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...interface{}) error {
	return newf(ErrValidation, format, args...)
}

// NotFoundf is also used for resources owned by another principal so that
// existence never leaks across customers.
func NotFoundf(format string, args ...interface{}) error {
	return newf(ErrNotFound, format, args...)
}

func Conflictf(format string, args ...interface{}) error {
	return newf(ErrConflict, format, args...)
}

func Unauthorizedf(format string, args ...interface{}) error {
	return newf(ErrUnauthorized, format, args...)
}

// HTTPStatus maps an error to the response status a handler should use.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Code is the machine-readable counterpart of HTTPStatus used in error bodies.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "VALIDATION"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	default:
		return "INTERNAL"
	}
}

// Body builds the JSON error payload. Internal errors never expose their text.
func Body(err error) map[string]string {
	msg := err.Error()
	if HTTPStatus(err) == http.StatusInternalServerError {
		msg = "internal server error"
	}
	return map[string]string{"error": msg, "code": Code(err)}
}
