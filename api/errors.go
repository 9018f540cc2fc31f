package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	clienterrors "github.com/jrsteele09/go-classroom-client/internal/errors"
)

// HTTPError is a non-2xx response or a transport failure.
type HTTPError struct {
	Method  string
	Path    string
	Status  int    // 0 for transport failures
	Message string // server supplied message, if any
	Err     error  // transport error, if any
}

func (e *HTTPError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrUnauthorized) true for 401 responses and
// errors.Is(err, ErrNotFound) true for 404 responses.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case clienterrors.ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case clienterrors.ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// DomainError is a 2xx response whose envelope code is not CodeSuccess.
type DomainError struct {
	Code    int
	Message string
}

func (e *DomainError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with code %d", e.Code)
	}
	return e.Message
}

// GenericErrorMessage is shown when the server gave no usable message.
const GenericErrorMessage = "Something went wrong. Please try again."

// UserMessage turns any error from this package into the text shown in an
// error banner: the server's message when there is one, otherwise fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if fallback == "" {
		fallback = GenericErrorMessage
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		if domainErr.Message != "" {
			return domainErr.Message
		}
		return fallback
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Message != "" {
			return httpErr.Message
		}
		if httpErr.Status == http.StatusUnauthorized {
			return "Your session has expired. Please sign in again."
		}
		return fallback
	}
	switch {
	case errors.Is(err, clienterrors.ErrMissingToken):
		return "You are not signed in."
	case errors.Is(err, clienterrors.ErrInvalidInput):
		return strings.TrimSuffix(err.Error(), ": "+clienterrors.ErrInvalidInput.Error())
	}
	return fallback
}
