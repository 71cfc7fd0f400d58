package nest

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAuth      = errors.New("nest authentication failed")
	ErrTransport = errors.New("nest transport error")
	ErrParse     = errors.New("nest response could not be parsed")
)

// AuthError means the credentials or the session token were rejected.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("nest authentication failed: unexpected HTTP response code %d", e.StatusCode)
}

func (e *AuthError) Is(target error) bool {
	return target == ErrAuth
}

// TransportError is a non-2xx response or a connectivity failure. StatusCode is
// zero when no response was received.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("nest transport error: %v", e.Err)
	}
	return fmt.Sprintf("nest api error %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// ParseError is a malformed payload or a payload missing a required field.
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("nest response missing required field %q", e.Field)
	}
	return fmt.Sprintf("nest response could not be parsed: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func missingField(field string) error {
	return &ParseError{Field: field}
}
