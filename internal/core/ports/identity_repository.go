package ports

import (
	"context"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// ListIdentitiesFilter carries the query parameters for listing identities.
type ListIdentitiesFilter struct {
	Role  domain.Role // empty = all roles
	Page  int         // 1-based
	Limit int
}

// IdentityRepository is the identity directory. Every mutation is atomic on a
// single record; email uniqueness is enforced by the implementation.
//
// Missing records return domain.ErrIdentityNotFound, duplicate emails
// domain.ErrEmailTaken and guarded mutations domain.ErrProtectedIdentity.
type IdentityRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
	FindByID(ctx context.Context, id string) (*domain.Identity, error)
	Insert(ctx context.Context, identity *domain.Identity) (*domain.Identity, error)
	UpdateFields(ctx context.Context, id string, upd domain.IdentityUpdate) (*domain.Identity, error)
	// Delete removes the record unless it holds unlessRole (empty = no guard).
	Delete(ctx context.Context, id string, unlessRole domain.Role) error
	List(ctx context.Context, filter ListIdentitiesFilter) ([]*domain.Identity, int64, error)
}
