package billing

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError is a malformed or incomplete request.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Invalid(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError covers unknown plans, plans without a provider price and
// callers with no subscription on file.
type NotFoundError struct {
	Msg          string
	Unconfigured bool
}

func (e *NotFoundError) Error() string { return e.Msg }

// ProviderError is a rejection from the billing provider. Its message is
// forwarded to the caller.
type ProviderError struct {
	Op  string
	Msg string
	Err error
}

func (e *ProviderError) Error() string { return e.Msg }
func (e *ProviderError) Unwrap() error { return e.Err }

// PersistenceError is a failed mirror write. A provider side effect that
// preceded it is not rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}
func (e *PersistenceError) Unwrap() error { return e.Err }

// StatusCodes maps each error kind to an HTTP status for one endpoint.
type StatusCodes struct {
	Validation   int
	NotFound     int
	Unconfigured int
	Provider     int
	Persistence  int
	Other        int
}

var DefaultStatusCodes = StatusCodes{
	Validation:   http.StatusBadRequest,
	NotFound:     http.StatusNotFound,
	Unconfigured: http.StatusBadRequest,
	Provider:     http.StatusInternalServerError,
	Persistence:  http.StatusInternalServerError,
	Other:        http.StatusInternalServerError,
}

func (sc StatusCodes) For(err error) int {
	var (
		ve *ValidationError
		nf *NotFoundError
		pe *ProviderError
		de *PersistenceError
	)
	switch {
	case errors.As(err, &ve):
		return sc.Validation
	case errors.As(err, &nf):
		if nf.Unconfigured {
			return sc.Unconfigured
		}
		return sc.NotFound
	case errors.As(err, &pe):
		return sc.Provider
	case errors.As(err, &de):
		return sc.Persistence
	default:
		return sc.Other
	}
}
