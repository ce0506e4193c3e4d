package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/api/metrics"
	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

const (
	identityKey = "identity"
	claimsKey   = "session_claims"
)

// TokenExtractor pulls the raw session token off a request.
type TokenExtractor interface {
	Extract(r *http.Request) (string, bool)
}

// Authenticate rejects the request unless it carries a valid session token
// whose subject still exists. The identity stored in the context is
// redacted and carries the directory's current role.
func Authenticate(auth ports.AuthService, tokens TokenExtractor) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := authenticate(c, auth, tokens); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// OptionalAuthenticate attaches the identity when a valid token is present
// and otherwise lets the request through anonymously.
func OptionalAuthenticate(auth ports.AuthService, tokens TokenExtractor) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := authenticate(c, auth, tokens); err != nil && !errors.Is(err, domain.ErrUnauthenticated) {
				return err
			}
			return next(c)
		}
	}
}

func authenticate(c echo.Context, auth ports.AuthService, tokens TokenExtractor) error {
	raw, _ := tokens.Extract(c.Request())
	identity, claims, err := auth.Authenticate(c.Request().Context(), raw)
	metrics.TokenVerificationsTotal.WithLabelValues(verificationResult(err)).Inc()
	if err != nil {
		return err
	}
	SetIdentity(c, identity, claims)
	return nil
}

func verificationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNoToken):
		return "no_token"
	case errors.Is(err, domain.ErrIdentityGone):
		return "identity_gone"
	case errors.Is(err, domain.ErrTokenInvalid):
		return "invalid"
	default:
		return "error"
	}
}

// SetIdentity stores the authenticated identity and its token claims.
func SetIdentity(c echo.Context, identity *domain.Identity, claims *domain.SessionClaims) {
	c.Set(identityKey, identity)
	c.Set(claimsKey, claims)
}

// IdentityFrom returns the identity placed by Authenticate, if any.
func IdentityFrom(c echo.Context) (*domain.Identity, bool) {
	identity, ok := c.Get(identityKey).(*domain.Identity)
	return identity, ok && identity != nil
}

func ClaimsFrom(c echo.Context) (*domain.SessionClaims, bool) {
	claims, ok := c.Get(claimsKey).(*domain.SessionClaims)
	return claims, ok && claims != nil
}
