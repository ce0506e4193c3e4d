package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/api/metrics"
	"github.com/99minutos/identity-service/internal/api/middleware"
	"github.com/99minutos/identity-service/internal/api/session"
	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// AuthHandler serves registration, login and logout.
type AuthHandler struct {
	authService ports.AuthService
	transport   *session.Transport
}

func NewAuthHandler(authService ports.AuthService, transport *session.Transport) *AuthHandler {
	return &AuthHandler{authService: authService, transport: transport}
}

// Register creates a new account.
//
// @Summary      Register a new account
// @Description  Self-registration always yields a buyer and signs the caller in. An authenticated admin may pass role and does not receive a session.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Account details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		recordAttempt("register", err)
		return err
	}

	actor, _ := middleware.IdentityFrom(c)
	res, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Actor:    actor,
	})
	recordAttempt("register", err)
	if err != nil {
		return err
	}

	resp := authResponse{User: toIdentityResponse(res.Identity)}
	if res.Token != nil {
		h.transport.Attach(c.Response(), *res.Token)
		resp.Token = res.Token.Value
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login authenticates with email and password and starts a session.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		recordAttempt("login", err)
		return err
	}

	tok, identity, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	recordAttempt("login", err)
	if err != nil {
		return err
	}

	h.transport.Attach(c.Response(), tok)
	return c.JSON(http.StatusOK, authResponse{Token: tok.Value, User: toIdentityResponse(identity)})
}

// Logout clears the session cookie.
//
// @Summary      Logout
// @Description  Clears the session cookie. When revocation is enabled the presented token is also denied until it expires.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  messageResponse
// @Failure      500  {object}  map[string]string
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	raw, _ := h.transport.Extract(c.Request())
	h.transport.Clear(c.Response())

	err := h.authService.Logout(c.Request().Context(), raw)
	recordAttempt("logout", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "logged out"})
}

func recordAttempt(op string, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrEmailTaken):
		outcome = "conflict"
	case errors.Is(err, domain.ErrInvalidCredentials), domain.IsValidation(err):
		outcome = "invalid"
	default:
		outcome = "error"
	}
	metrics.AuthAttemptsTotal.WithLabelValues(op, outcome).Inc()
}
