package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// UserHandler serves admin account management.
type UserHandler struct {
	identities ports.IdentityService
	log        zerolog.Logger
}

func NewUserHandler(identities ports.IdentityService, log zerolog.Logger) *UserHandler {
	return &UserHandler{identities: identities, log: log}
}

// List returns a page of accounts.
//
// @Summary      List accounts
// @Tags         users
// @Produce      json
// @Security     CookieAuth
// @Security     BearerAuth
// @Param        role   query     string  false  "Filter by role"  Enums(buyer, seller, admin)
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Page size (default 20, max 100)"
// @Success      200    {object}  listUsersResponse
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Failure      403    {object}  map[string]string
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	var q listUsersQuery
	if err := c.Bind(&q); err != nil {
		return domain.NewValidationError("invalid query parameters")
	}

	res, err := h.identities.List(c.Request().Context(), ports.ListIdentitiesInput{
		Role:  q.Role,
		Page:  q.Page,
		Limit: q.Limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListUsersResponse(res))
}

// Get returns one account.
//
// @Summary      Get account
// @Tags         users
// @Produce      json
// @Security     CookieAuth
// @Security     BearerAuth
// @Param        id   path      string  true  "Account id"
// @Success      200  {object}  identityResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	identity, err := h.identities.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toIdentityResponse(identity))
}

// ChangeRole reassigns an account's role. Admin accounts cannot be changed.
//
// @Summary      Change role
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     CookieAuth
// @Security     BearerAuth
// @Param        id    path      string             true  "Account id"
// @Param        body  body      changeRoleRequest  true  "New role"
// @Success      200   {object}  identityResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /users/{id}/role [patch]
func (h *UserHandler) ChangeRole(c echo.Context) error {
	var req changeRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	identity, err := h.identities.ChangeRole(c.Request().Context(), c.Param("id"), req.Role)
	if err != nil {
		return err
	}

	if actor, err := currentIdentity(c); err == nil {
		h.log.Info().Str("actor_id", actor.ID).Str("target_id", identity.ID).Str("role", string(identity.Role)).Msg("admin changed role")
	}
	return c.JSON(http.StatusOK, toIdentityResponse(identity))
}

// Delete removes an account. Admin accounts cannot be deleted.
//
// @Summary      Delete account
// @Tags         users
// @Produce      json
// @Security     CookieAuth
// @Security     BearerAuth
// @Param        id   path      string  true  "Account id"
// @Success      200  {object}  messageResponse
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if err := h.identities.Delete(c.Request().Context(), id); err != nil {
		return err
	}

	if actor, err := currentIdentity(c); err == nil {
		h.log.Info().Str("actor_id", actor.ID).Str("target_id", id).Msg("admin deleted account")
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "user deleted"})
}
