package ports

import (
	"context"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// RegisterInput is the registration request as seen by the core.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	// Role is honoured only when Actor is an admin.
	Role  string
	Actor *domain.Identity
}

// RegisterResult holds the created identity. Token is empty when an admin
// registered someone else.
type RegisterResult struct {
	Identity *domain.Identity
	Token    *domain.IssuedToken
}

// AuthService covers credential and session operations.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)
	Login(ctx context.Context, email, password string) (domain.IssuedToken, *domain.Identity, error)
	Logout(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*domain.Identity, *domain.SessionClaims, error)
}
