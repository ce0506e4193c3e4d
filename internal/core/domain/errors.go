package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrIdentityNotFound   = errors.New("identity not found")
	ErrForbidden          = errors.New("access forbidden")
	ErrProtectedIdentity  = errors.New("cannot modify admin")
)

// ErrUnauthenticated is the parent of every authentication failure.
// Match with errors.Is; the wrapped reasons are safe to show to clients.
var ErrUnauthenticated = errors.New("unauthenticated")

var (
	ErrNoToken      = fmt.Errorf("%w: no token", ErrUnauthenticated)
	ErrTokenInvalid = fmt.Errorf("%w: token invalid", ErrUnauthenticated)
	ErrIdentityGone = fmt.Errorf("%w: identity not found", ErrUnauthenticated)
)

// Token verification failures. These never reach the client; the
// authenticator collapses them into ErrTokenInvalid.
var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenRevoked     = errors.New("token revoked")
)

// ValidationError reports missing or malformed input.
type ValidationError struct {
	Msg string
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Msg: msg}
}

func (e *ValidationError) Error() string { return e.Msg }

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
