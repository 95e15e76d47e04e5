package errdef

import (
	"errors"
	"fmt"
)

func NewForbidden(format string, a ...any) error {
	return forbidden{fmt.Errorf(format, a...)}
}

type forbidden struct{ error }

func IsForbidden(err error) bool {
	var e forbidden
	return errors.As(err, &e)
}

func NewBadRequest(format string, a ...any) error {
	return badRequest{fmt.Errorf(format, a...)}
}

type badRequest struct{ error }

func IsBadRequest(err error) bool {
	var e badRequest
	return errors.As(err, &e)
}

func NewUnauthorized(format string, a ...any) error {
	return unauthorized{fmt.Errorf(format, a...)}
}

type unauthorized struct{ error }

func IsUnauthorized(err error) bool {
	var e unauthorized
	return errors.As(err, &e)
}

// NewNotFound creates an error representing a resource that could not be found.
func NewNotFound(format string, a ...any) error {
	return notFound{fmt.Errorf(format, a...)}
}

type notFound struct{ error }

// IsNotFound returns true if err is an error representing a resource that could not be found and false otherwise.
func IsNotFound(err error) bool {
	var e notFound
	return errors.As(err, &e)
}

// NewConflict creates an error representing a conflicting state, such as a
// second live cluster for a team or a duplicate database username.
func NewConflict(format string, a ...any) error {
	return conflict{fmt.Errorf(format, a...)}
}

type conflict struct{ error }

// IsConflict returns true if err is an error representing a conflict and false otherwise.
func IsConflict(err error) bool {
	var e conflict
	return errors.As(err, &e)
}

// NewLimitExceeded creates an error representing a quota violation. Quotas are
// checked before any remote call so a violation never leaves partial remote state.
func NewLimitExceeded(format string, a ...any) error {
	return limitExceeded{fmt.Errorf(format, a...)}
}

type limitExceeded struct{ error }

func IsLimitExceeded(err error) bool {
	var e limitExceeded
	return errors.As(err, &e)
}

// NewRemoteAPI wraps a failure of the cloud control plane. The wrapped error
// carries the diagnostic detail; the HTTP layer surfaces a user-safe message instead.
func NewRemoteAPI(err error, format string, a ...any) error {
	a = append(a, err)
	return remoteAPI{fmt.Errorf(format+": %w", a...)}
}

type remoteAPI struct{ error }

func IsRemoteAPI(err error) bool {
	var e remoteAPI
	return errors.As(err, &e)
}

func NewUnsupportedMediaType(format string, a ...any) error {
	return unsupportedMediaType{fmt.Errorf(format, a...)}
}

type unsupportedMediaType struct{ error }

func IsUnsupportedMediaType(err error) bool {
	var e unsupportedMediaType
	return errors.As(err, &e)
}
