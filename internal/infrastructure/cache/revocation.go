// Package cache holds in-process stores backed by go-cache.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/99minutos/identity-service/internal/core/ports"
)

const cleanupInterval = 10 * time.Minute

var _ ports.RevocationStore = (*RevocationStore)(nil)

// RevocationStore keeps revoked token ids in memory until the tokens would
// have expired anyway. It is per-process; use the Redis store when running
// more than one replica.
type RevocationStore struct {
	items *gocache.Cache
	now   func() time.Time
}

func NewRevocationStore() *RevocationStore {
	return &RevocationStore{
		items: gocache.New(gocache.NoExpiration, cleanupInterval),
		now:   time.Now,
	}
}

func (s *RevocationStore) Revoke(_ context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	s.items.Set(tokenID, struct{}{}, ttl)
	return nil
}

func (s *RevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, found := s.items.Get(tokenID)
	return found, nil
}

// Len reports how many revocations are currently held.
func (s *RevocationStore) Len() int {
	return s.items.ItemCount()
}
