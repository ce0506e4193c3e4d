package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/identity-service/internal/core/ports"
)

var _ ports.RevocationStore = (*RevocationStore)(nil)

// RevocationStore records revoked token ids in Redis.
// Key format: revoked:<jti>, expiring with the token itself.
type RevocationStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRevocationStore(client *redis.Client) *RevocationStore {
	return &RevocationStore{client: client, now: time.Now}
}

// Revoke marks the token id as revoked until the given time. Tokens already
// past their expiry are not stored.
func (s *RevocationStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, key(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *RevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("revocation check: %w", err)
	}
	return n > 0, nil
}

func key(tokenID string) string {
	return "revoked:" + tokenID
}
