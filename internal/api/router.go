package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/identity-service/docs"
	"github.com/99minutos/identity-service/internal/api/handler"
	"github.com/99minutos/identity-service/internal/api/middleware"
	"github.com/99minutos/identity-service/internal/api/session"
	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Log        zerolog.Logger
	Auth       ports.AuthService
	Identities ports.IdentityService
	Transport  *session.Transport
	// ClientURL is the browser origin allowed to send credentials.
	ClientURL string
	// Checks are the readiness probes, keyed by dependency name.
	Checks map[string]handler.Check
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	if d.ClientURL != "" {
		e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
			AllowOrigins:     []string{d.ClientURL},
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
			AllowCredentials: true,
		}))
	}

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Auth, d.Transport)
	profileHandler := handler.NewProfileHandler(d.Identities)
	userHandler := handler.NewUserHandler(d.Identities, d.Log)
	healthHandler := handler.NewHealthHandler(d.Checks)

	requireAuth := middleware.Authenticate(d.Auth, d.Transport)

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register, middleware.OptionalAuthenticate(d.Auth, d.Transport))
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/profile", profileHandler.Get, requireAuth)
	auth.PATCH("/profile", profileHandler.Update, requireAuth)

	// --- Admin account management ---
	users := e.Group("/users", requireAuth, middleware.RequireRoles(domain.RoleAdmin))
	users.GET("", userHandler.List)
	users.GET("/:id", userHandler.Get)
	users.PATCH("/:id/role", userHandler.ChangeRole)
	users.DELETE("/:id", userHandler.Delete)

	// --- Role-gated access probes ---
	access := e.Group("/access", requireAuth)
	access.GET("/buyer", handler.Area("buyer"), middleware.RequireRoles(domain.RoleBuyer))
	access.GET("/seller", handler.Area("seller"), middleware.RequireRoles(domain.RoleSeller))
	access.GET("/admin", handler.Area("admin"), middleware.RequireRoles(domain.RoleAdmin))
	access.GET("/trade", handler.Area("trade"), middleware.RequireRoles(domain.RoleBuyer, domain.RoleSeller))

	// --- Health probes, metrics and docs (no auth required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= http.StatusInternalServerError {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
