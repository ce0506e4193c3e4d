package ports

import (
	"context"
	"time"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// PasswordHasher hashes and verifies credentials. Verify reports a mismatch
// or an unreadable hash as false with a nil error; the error is reserved for
// cancellation.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, hash string) (bool, error)
}

// TokenService issues and verifies signed session tokens.
type TokenService interface {
	Issue(identityID string, role domain.Role) (domain.IssuedToken, error)
	Verify(raw string) (*domain.SessionClaims, error)
}

// RevocationStore is the optional logout deny-list keyed by token id.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
