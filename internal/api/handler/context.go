package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/api/middleware"
	"github.com/99minutos/identity-service/internal/core/domain"
)

// currentIdentity returns the caller placed in the context by the
// Authenticate middleware. A route wired without it fails closed.
func currentIdentity(c echo.Context) (*domain.Identity, error) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return nil, domain.ErrNoToken
	}
	return identity, nil
}
