// Package apperr defines the error kinds shared by the access-control core and
// their translation to HTTP responses.
package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrDenied           = errors.New("access denied")
	ErrDuplicatePair    = errors.New("duplicate grant for actor and facility")
	ErrDuplicateName    = errors.New("duplicate name")
	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrAuditWriteFailed = errors.New("audit write failed")
	ErrInvalid          = errors.New("invalid input")
)

// Invalid wraps a validation message so callers can match it with ErrInvalid.
func Invalid(msg string) error {
	return &invalidError{msg: msg}
}

type invalidError struct{ msg string }

func (e *invalidError) Error() string { return e.msg }
func (e *invalidError) Unwrap() error { return ErrInvalid }

// Status returns the HTTP status code for err.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicatePair), errors.Is(err, ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HTTP converts err into an echo error. Authentication and authorization
// failures always read "access denied" so a response never reveals whether the
// target exists.
func HTTP(err error) *echo.HTTPError {
	status := Status(err)
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return echo.NewHTTPError(status, "access denied")
	case http.StatusBadRequest:
		return echo.NewHTTPError(status, err.Error())
	case http.StatusNotFound:
		return echo.NewHTTPError(status, "not found")
	case http.StatusConflict:
		return echo.NewHTTPError(status, conflictMessage(err))
	case http.StatusServiceUnavailable:
		return echo.NewHTTPError(status, "service temporarily unavailable")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}

func conflictMessage(err error) string {
	if errors.Is(err, ErrDuplicatePair) {
		return ErrDuplicatePair.Error()
	}
	return "already exists"
}
