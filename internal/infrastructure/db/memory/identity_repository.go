// Package memory is an in-process identity directory for local development
// and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

var _ ports.IdentityRepository = (*IdentityRepository)(nil)

// IdentityRepository keeps identities in maps guarded by a single lock, which
// makes every operation atomic on its record.
type IdentityRepository struct {
	mu       sync.RWMutex
	byID     map[string]*domain.Identity
	emailIDs map[string]string // normalized email -> id
	now      func() time.Time
}

func NewIdentityRepository() *IdentityRepository {
	return &IdentityRepository{
		byID:     make(map[string]*domain.Identity),
		emailIDs: make(map[string]string),
		now:      time.Now,
	}
}

func clone(i *domain.Identity) *domain.Identity {
	c := *i
	return &c
}

func (r *IdentityRepository) FindByEmail(_ context.Context, email string) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.emailIDs[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *IdentityRepository) FindByID(_ context.Context, id string) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	return clone(identity), nil
}

func (r *IdentityRepository) Insert(_ context.Context, identity *domain.Identity) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := clone(identity)
	stored.Email = domain.NormalizeEmail(stored.Email)
	if _, exists := r.emailIDs[stored.Email]; exists {
		return nil, domain.ErrEmailTaken
	}
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.now().UTC()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}

	r.byID[stored.ID] = stored
	r.emailIDs[stored.Email] = stored.ID
	return clone(stored), nil
}

func (r *IdentityRepository) UpdateFields(_ context.Context, id string, upd domain.IdentityUpdate) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	if upd.UnlessRole != "" && identity.Role == upd.UnlessRole {
		return nil, domain.ErrProtectedIdentity
	}
	if upd.Empty() {
		return clone(identity), nil
	}

	if upd.Name != nil {
		identity.Name = *upd.Name
	}
	if upd.PasswordHash != nil {
		identity.PasswordHash = *upd.PasswordHash
	}
	if upd.Role != nil {
		identity.Role = *upd.Role
	}
	identity.UpdatedAt = r.now().UTC()
	return clone(identity), nil
}

func (r *IdentityRepository) Delete(_ context.Context, id string, unlessRole domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.byID[id]
	if !ok {
		return domain.ErrIdentityNotFound
	}
	if unlessRole != "" && identity.Role == unlessRole {
		return domain.ErrProtectedIdentity
	}

	delete(r.emailIDs, identity.Email)
	delete(r.byID, id)
	return nil
}

// List orders by creation time, then id, so pages are stable.
func (r *IdentityRepository) List(_ context.Context, f ports.ListIdentitiesFilter) ([]*domain.Identity, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*domain.Identity
	for _, identity := range r.byID {
		if f.Role != "" && identity.Role != f.Role {
			continue
		}
		matched = append(matched, clone(identity))
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))

	limit := f.Limit
	if limit <= 0 {
		limit = len(matched)
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	if limit == 0 || page-1 > len(matched)/limit {
		return []*domain.Identity{}, total, nil
	}
	skip := (page - 1) * limit
	if skip >= len(matched) {
		return []*domain.Identity{}, total, nil
	}
	end := len(matched)
	if limit < end-skip {
		end = skip + limit
	}
	return matched[skip:end], total, nil
}
