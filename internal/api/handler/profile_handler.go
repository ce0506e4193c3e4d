package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/core/ports"
)

// ProfileHandler serves the caller's own account.
type ProfileHandler struct {
	identities ports.IdentityService
}

func NewProfileHandler(identities ports.IdentityService) *ProfileHandler {
	return &ProfileHandler{identities: identities}
}

// Get returns the authenticated caller.
//
// @Summary      Current profile
// @Tags         profile
// @Produce      json
// @Security     CookieAuth
// @Security     BearerAuth
// @Success      200  {object}  identityResponse
// @Failure      401  {object}  map[string]string
// @Router       /auth/profile [get]
func (h *ProfileHandler) Get(c echo.Context) error {
	me, err := currentIdentity(c)
	if err != nil {
		return err
	}
	identity, err := h.identities.Profile(c.Request().Context(), me.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toIdentityResponse(identity))
}

// Update changes the caller's name and/or password.
//
// @Summary      Update profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     CookieAuth
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Fields to change"
// @Success      200   {object}  identityResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/profile [patch]
func (h *ProfileHandler) Update(c echo.Context) error {
	me, err := currentIdentity(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	identity, err := h.identities.UpdateProfile(c.Request().Context(), me.ID, ports.UpdateProfileInput{
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toIdentityResponse(identity))
}
