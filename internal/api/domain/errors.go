package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingAuthorization is returned when a protected route has no Authorization header
	ErrMissingAuthorization = errors.New("Unauthorized")

	// ErrInvalidToken is returned when the accounts service does not confirm a token
	ErrInvalidToken = errors.New("Invalid or expired token")

	// ErrInvalidBody is returned when a request body is not a JSON object
	ErrInvalidBody = errors.New("Request body must be a JSON object")
)

// AuthError rejects a request before it reaches a handler.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// ValidationError lists every required field that was absent or null.
type ValidationError struct {
	MissingFields []string
}

func (e *ValidationError) Error() string {
	return "Missing required fields: " + strings.Join(e.MissingFields, ", ")
}

// InvalidFieldError reports a field that is present but unusable.
type InvalidFieldError struct {
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("Invalid field %s: %s", e.Field, e.Reason)
}

// TokenDecodeError is returned when caller identity cannot be read from a token.
type TokenDecodeError struct {
	Err error
	// MissingUserID is set when the token decodes but carries no user_id claim
	MissingUserID bool
}

func (e *TokenDecodeError) Error() string {
	if e.MissingUserID {
		return "Token does not contain a user_id claim"
	}
	return "Invalid token: " + e.Err.Error()
}

func (e *TokenDecodeError) Unwrap() error {
	return e.Err
}

// UpstreamUnavailableError is returned when a backend cannot be reached at all.
// Role names the backend as the caller knows it, e.g. "auth service".
type UpstreamUnavailableError struct {
	Role string
	Err  error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Role, e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error {
	return e.Err
}

// QueueUnavailableError is returned when a job could not be handed to the broker.
type QueueUnavailableError struct {
	Queue string
	Err   error
}

func (e *QueueUnavailableError) Error() string {
	return fmt.Sprintf("failed to publish job to queue %s: %v", e.Queue, e.Err)
}

func (e *QueueUnavailableError) Unwrap() error {
	return e.Err
}
