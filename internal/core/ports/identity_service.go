package ports

import (
	"context"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// UpdateProfileInput holds a self-service profile change. Nil = unchanged.
type UpdateProfileInput struct {
	Name     *string
	Password *string
}

// ListIdentitiesInput carries the parameters for the admin list endpoint.
type ListIdentitiesInput struct {
	Role  string
	Page  int
	Limit int
}

// ListIdentitiesResult is a page of redacted identities.
type ListIdentitiesResult struct {
	Items      []*domain.Identity
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// IdentityService covers profile and admin management operations.
type IdentityService interface {
	Profile(ctx context.Context, id string) (*domain.Identity, error)
	UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (*domain.Identity, error)
	List(ctx context.Context, in ListIdentitiesInput) (*ListIdentitiesResult, error)
	Get(ctx context.Context, id string) (*domain.Identity, error)
	ChangeRole(ctx context.Context, targetID, role string) (*domain.Identity, error)
	Delete(ctx context.Context, targetID string) error
}
