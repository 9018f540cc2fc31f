package errors

import (
	"errors"
	"fmt"
)

// Common error types for the classroom client
var (
	// Session errors
	ErrMissingToken      = errors.New("missing access token")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrSessionInvalid    = errors.New("session invalid")
	ErrNoUser            = errors.New("no user in session")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenMalformed    = errors.New("token malformed")
	ErrStorageCorrupted  = errors.New("stored session corrupted")
	ErrStorageKeyInvalid = errors.New("storage key must be 32 bytes")

	// Request errors
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotConfirmed   = errors.New("action not confirmed")
	ErrBusy           = errors.New("another request is in progress")
	ErrClosed         = errors.New("controller closed")
	ErrPageOutOfRange = errors.New("page out of range")

	// Push errors
	ErrPushUnavailable = errors.New("push updates unavailable")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
