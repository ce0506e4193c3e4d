package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/api/middleware"
	"github.com/99minutos/identity-service/internal/api/session"
	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*ports.RegisterResult, error)
	loginFn    func(ctx context.Context, email, password string) (domain.IssuedToken, *domain.Identity, error)
	logoutFn   func(ctx context.Context, raw string) error
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.RegisterResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (domain.IssuedToken, *domain.Identity, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Logout(ctx context.Context, raw string) error {
	return s.logoutFn(ctx, raw)
}

func (s *stubAuthService) Authenticate(context.Context, string) (*domain.Identity, *domain.SessionClaims, error) {
	return nil, nil, domain.ErrNoToken
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestAuthHandler_Register_SelfSignsIn(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		registerFn: func(_ context.Context, in ports.RegisterInput) (*ports.RegisterResult, error) {
			if in.Name != "Ann" || in.Email != "a@x.com" || in.Actor != nil {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &ports.RegisterResult{
				Identity: &domain.Identity{ID: "u1", Email: in.Email, Name: in.Name, Role: domain.RoleBuyer},
				Token:    &domain.IssuedToken{Value: "tok", ExpiresAt: time.Now().Add(time.Hour)},
			}, nil
		},
	}
	h := NewAuthHandler(stub, session.NewTransport(session.Options{}))

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/register", `{"name":"Ann","email":"a@x.com","password":"secret1"}`), rec)

	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if len(rec.Result().Cookies()) != 1 {
		t.Fatalf("expected session cookie")
	}

	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token != "tok" || resp.User.Role != "buyer" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAuthHandler_Register_AdminActorGetsNoCookie(t *testing.T) {
	e := newEcho()
	admin := &domain.Identity{ID: "root", Role: domain.RoleAdmin}
	stub := &stubAuthService{
		registerFn: func(_ context.Context, in ports.RegisterInput) (*ports.RegisterResult, error) {
			if in.Actor == nil || in.Actor.ID != "root" || in.Role != "seller" {
				t.Fatalf("expected admin actor and role, got %+v", in)
			}
			return &ports.RegisterResult{Identity: &domain.Identity{ID: "u2", Role: domain.RoleSeller}}, nil
		},
	}
	h := NewAuthHandler(stub, session.NewTransport(session.Options{}))

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/register", `{"name":"Sam","email":"s@x.com","password":"secret1","role":"seller"}`), rec)
	middleware.SetIdentity(c, admin, nil)

	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("admin-created accounts must not set a cookie")
	}
}

func TestAuthHandler_Register_ValidationError(t *testing.T) {
	e := newEcho()
	h := NewAuthHandler(&stubAuthService{
		registerFn: func(context.Context, ports.RegisterInput) (*ports.RegisterResult, error) {
			t.Fatalf("service should not be called")
			return nil, nil
		},
	}, session.NewTransport(session.Options{}))

	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/register", `{"email":"a@x.com","password":"secret1"}`), httptest.NewRecorder())

	err := h.Register(c)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ve.Msg != "name is required" {
		t.Fatalf("unexpected message %q", ve.Msg)
	}
}

func TestAuthHandler_Login_FailureSetsNoCookie(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string) (domain.IssuedToken, *domain.Identity, error) {
			return domain.IssuedToken{}, nil, domain.ErrInvalidCredentials
		},
	}
	h := NewAuthHandler(stub, session.NewTransport(session.Options{}))

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"nope"}`), rec)

	if err := h.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("failed login must not set a cookie")
	}
}

func TestAuthHandler_Logout_ClearsCookieAndPassesToken(t *testing.T) {
	e := newEcho()
	var seen string
	stub := &stubAuthService{
		logoutFn: func(_ context.Context, raw string) error {
			seen = raw
			return nil
		},
	}
	h := NewAuthHandler(stub, session.NewTransport(session.Options{}))

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "tok"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if seen != "tok" {
		t.Fatalf("expected token to reach the service, got %q", seen)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "" || cookies[0].MaxAge != -1 {
		t.Fatalf("expected cleared cookie, got %+v", cookies)
	}
}

func TestArea_RequiresIdentity(t *testing.T) {
	e := newEcho()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/access/buyer", nil), httptest.NewRecorder())

	if err := Area("buyer")(c); !errors.Is(err, domain.ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

func TestHealthHandler_Readiness(t *testing.T) {
	e := newEcho()
	h := NewHealthHandler(map[string]Check{
		"mongodb": func(context.Context) error { return nil },
		"redis":   func(context.Context) error { return errors.New("connection refused") },
	})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/ready", nil), rec)
	if err := h.Readiness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var resp readinessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Dependencies["mongodb"].Status != "ok" || resp.Dependencies["redis"].Status != "unhealthy" {
		t.Fatalf("unexpected dependencies: %+v", resp.Dependencies)
	}
}
