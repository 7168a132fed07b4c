// Package apperrors defines the error kinds returned by the service layers.
// Handlers map them to HTTP status codes with errors.Is.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthExchange: the upstream OAuth code exchange failed.
	ErrAuthExchange = errors.New("authorization code exchange failed")
	// ErrTokenRefresh: the upstream refresh-token exchange failed.
	ErrTokenRefresh = errors.New("token refresh failed")
	// ErrUpstreamFetch: an upstream data call failed, including mid-pagination.
	ErrUpstreamFetch = errors.New("upstream fetch failed")
	// ErrNotFound: athlete absent from the store.
	ErrNotFound = errors.New("not found")
	// ErrValidation: missing or malformed request parameters.
	ErrValidation = errors.New("validation failed")
	// ErrSession: missing, invalid or expired session credential.
	ErrSession = errors.New("invalid session")

	// ErrNoRefreshToken is a refresh failure whose message is returned to clients as is.
	ErrNoRefreshToken = fmt.Errorf("%w: %s", ErrTokenRefresh, NoRefreshTokenMessage)
)

// NoRefreshTokenMessage is the client-visible text for ErrNoRefreshToken.
const NoRefreshTokenMessage = "No refresh token"

// Wrapf wraps err under kind with extra context. The result matches both kind and err.
func Wrapf(kind, err error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if err == nil {
		return fmt.Errorf("%w: %s", kind, msg)
	}
	return fmt.Errorf("%w: %s: %w", kind, msg, err)
}

// Validation returns an ErrValidation carrying a client-safe message.
func Validation(msg string) error {
	return &ValidationError{Msg: msg}
}

// ValidationError carries a message safe to return to clients.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
