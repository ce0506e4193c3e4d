package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repository
// ---------------------------------------------------------------------------

type stubIdentityRepo struct {
	byID      map[string]*domain.Identity
	nextID    int
	insertErr error // if set, Insert returns this error
	findErr   error // if set, FindByID/FindByEmail return this error
}

func newStubIdentityRepo() *stubIdentityRepo {
	return &stubIdentityRepo{byID: make(map[string]*domain.Identity)}
}

func (r *stubIdentityRepo) put(i *domain.Identity) *domain.Identity {
	clone := *i
	r.byID[i.ID] = &clone
	return i
}

func (r *stubIdentityRepo) FindByEmail(_ context.Context, email string) (*domain.Identity, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, i := range r.byID {
		if i.Email == email {
			clone := *i
			return &clone, nil
		}
	}
	return nil, domain.ErrIdentityNotFound
}

func (r *stubIdentityRepo) FindByID(_ context.Context, id string) (*domain.Identity, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	i, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	clone := *i
	return &clone, nil
}

func (r *stubIdentityRepo) Insert(_ context.Context, i *domain.Identity) (*domain.Identity, error) {
	if r.insertErr != nil {
		return nil, r.insertErr
	}
	for _, existing := range r.byID {
		if existing.Email == i.Email {
			return nil, domain.ErrEmailTaken
		}
	}
	r.nextID++
	clone := *i
	clone.ID = fmt.Sprintf("id-%d", r.nextID)
	r.byID[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubIdentityRepo) UpdateFields(_ context.Context, id string, upd domain.IdentityUpdate) (*domain.Identity, error) {
	i, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	if upd.UnlessRole != "" && i.Role == upd.UnlessRole {
		return nil, domain.ErrProtectedIdentity
	}
	if upd.Name != nil {
		i.Name = *upd.Name
	}
	if upd.PasswordHash != nil {
		i.PasswordHash = *upd.PasswordHash
	}
	if upd.Role != nil {
		i.Role = *upd.Role
	}
	clone := *i
	return &clone, nil
}

func (r *stubIdentityRepo) Delete(_ context.Context, id string, unlessRole domain.Role) error {
	i, ok := r.byID[id]
	if !ok {
		return domain.ErrIdentityNotFound
	}
	if unlessRole != "" && i.Role == unlessRole {
		return domain.ErrProtectedIdentity
	}
	delete(r.byID, id)
	return nil
}

func (r *stubIdentityRepo) List(_ context.Context, _ ports.ListIdentitiesFilter) ([]*domain.Identity, int64, error) {
	return nil, 0, errors.New("not used")
}

// ---------------------------------------------------------------------------
// Hasher and token stubs
// ---------------------------------------------------------------------------

// stubHasher "hashes" by prefixing; it counts calls so tests can check that
// the dummy comparison ran.
type stubHasher struct {
	mu          sync.Mutex
	hashCalls   int
	verifyCalls int
	hashErr     error
	verified    []string
}

func (h *stubHasher) Hash(_ context.Context, p string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hashCalls++
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hashed:" + p, nil
}

func (h *stubHasher) Verify(_ context.Context, p, hash string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.verifyCalls++
	h.verified = append(h.verified, hash)
	return hash == "hashed:"+p, nil
}

// stubTokens issues "tok:<id>:<role>:<n>" and verifies only what it issued.
type stubTokens struct {
	now    time.Time
	ttl    time.Duration
	n      int
	issued map[string]*domain.SessionClaims
	verify func(raw string) (*domain.SessionClaims, error) // overrides the lookup when set
}

func newStubTokens(now time.Time) *stubTokens {
	return &stubTokens{now: now, ttl: time.Hour, issued: make(map[string]*domain.SessionClaims)}
}

func (s *stubTokens) Issue(id string, role domain.Role) (domain.IssuedToken, error) {
	s.n++
	jti := fmt.Sprintf("jti-%d", s.n)
	raw := strings.Join([]string{"tok", id, string(role), jti}, ":")
	claims := &domain.SessionClaims{ID: jti, Subject: id, Role: role, IssuedAt: s.now, ExpiresAt: s.now.Add(s.ttl)}
	s.issued[raw] = claims
	return domain.IssuedToken{Value: raw, ID: jti, ExpiresAt: claims.ExpiresAt}, nil
}

func (s *stubTokens) Verify(raw string) (*domain.SessionClaims, error) {
	if s.verify != nil {
		return s.verify(raw)
	}
	c, ok := s.issued[raw]
	if !ok {
		return nil, domain.ErrMalformedToken
	}
	clone := *c
	return &clone, nil
}

// stubRevocations is a map-backed deny-list.
type stubRevocations struct {
	until   map[string]time.Time
	lookErr error
}

func newStubRevocations() *stubRevocations {
	return &stubRevocations{until: make(map[string]time.Time)}
}

func (s *stubRevocations) Revoke(_ context.Context, id string, until time.Time) error {
	s.until[id] = until
	return nil
}

func (s *stubRevocations) IsRevoked(_ context.Context, id string) (bool, error) {
	if s.lookErr != nil {
		return false, s.lookErr
	}
	_, ok := s.until[id]
	return ok, nil
}
