package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/api/metrics"
	"github.com/99minutos/identity-service/internal/core/domain"
)

// RequireRoles admits the request only when the authenticated identity holds
// one of roles. It must run after Authenticate; without an identity it
// answers as unauthenticated.
func RequireRoles(roles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(roles))
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
		names = append(names, string(r))
	}
	gate := strings.Join(names, ",")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := IdentityFrom(c)
			if !ok {
				return domain.ErrNoToken
			}
			if _, ok := allowed[identity.Role]; !ok {
				metrics.AccessDecisionsTotal.WithLabelValues(gate, "deny").Inc()
				return domain.ErrForbidden
			}
			metrics.AccessDecisionsTotal.WithLabelValues(gate, "allow").Inc()
			return next(c)
		}
	}
}
