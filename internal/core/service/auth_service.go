package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

// AuthService implements registration, login, logout and request
// authentication.
type AuthService struct {
	repo    ports.IdentityRepository
	hasher  ports.PasswordHasher
	tokens  ports.TokenService
	revoked ports.RevocationStore
	log     zerolog.Logger
	now     func() time.Time

	dummyMu   sync.Mutex
	dummyHash string
}

type AuthOption func(*AuthService)

// WithRevocationStore makes Logout deny the presented token until it expires
// and makes Authenticate consult the store. Without it logout is purely
// client-side.
func WithRevocationStore(store ports.RevocationStore) AuthOption {
	return func(s *AuthService) {
		s.revoked = store
	}
}

func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) {
		s.now = now
	}
}

func NewAuthService(
	repo ports.IdentityRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenService,
	log zerolog.Logger,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new identity. The role is buyer unless an admin actor
// asks for another one; a self-registration also gets a session token.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.RegisterResult, error) {
	name := strings.TrimSpace(in.Name)
	email := domain.NormalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return nil, domain.NewValidationError("name, email and password are required")
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, domain.NewValidationError("password must be at most 72 bytes")
	}

	actingAdmin := in.Actor.HasRole(domain.RoleAdmin)
	role := domain.DefaultRole
	if in.Role != "" {
		requested, err := domain.ParseRole(in.Role)
		if err != nil {
			return nil, err
		}
		if actingAdmin {
			role = requested
		} else if requested != domain.DefaultRole {
			s.log.Debug().Str("email", email).Str("requested_role", string(requested)).Msg("role request ignored for self-registration")
		}
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	now := s.now().UTC()
	created, err := s.repo.Insert(ctx, &domain.Identity{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	result := &ports.RegisterResult{Identity: created.Redacted()}
	if !actingAdmin {
		tok, err := s.tokens.Issue(created.ID, created.Role)
		if err != nil {
			return nil, fmt.Errorf("register: issue token: %w", err)
		}
		result.Token = &tok
	}

	ev := s.log.Info().Str("identity_id", created.ID).Str("role", string(created.Role))
	if actingAdmin {
		ev = ev.Str("actor_id", in.Actor.ID)
	}
	ev.Msg("identity registered")

	return result, nil
}

// Login checks credentials and issues a session token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.IssuedToken, *domain.Identity, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return domain.IssuedToken{}, nil, domain.NewValidationError("email and password are required")
	}

	identity, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			// Burn a comparison so response time does not reveal the miss.
			_, _ = s.hasher.Verify(ctx, password, s.placeholderHash(ctx))
			return domain.IssuedToken{}, nil, domain.ErrInvalidCredentials
		}
		return domain.IssuedToken{}, nil, fmt.Errorf("login: %w", err)
	}

	ok, err := s.hasher.Verify(ctx, password, identity.PasswordHash)
	if err != nil {
		return domain.IssuedToken{}, nil, fmt.Errorf("login: verify password: %w", err)
	}
	if !ok {
		return domain.IssuedToken{}, nil, domain.ErrInvalidCredentials
	}

	tok, err := s.tokens.Issue(identity.ID, identity.Role)
	if err != nil {
		return domain.IssuedToken{}, nil, fmt.Errorf("login: issue token: %w", err)
	}

	s.log.Info().Str("identity_id", identity.ID).Msg("login succeeded")
	return tok, identity.Redacted(), nil
}

// Logout denies the presented token when a revocation store is configured.
// Tokens that no longer verify need no entry.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	if s.revoked == nil || rawToken == "" {
		return nil
	}

	claims, err := s.tokens.Verify(rawToken)
	if err != nil {
		return nil
	}
	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt); err != nil {
		return fmt.Errorf("logout: revoke token: %w", err)
	}

	s.log.Info().Str("identity_id", claims.Subject).Str("jti", claims.ID).Msg("token revoked")
	return nil
}

// Authenticate verifies a raw token and resolves its subject from the
// directory. The returned identity carries the directory's current role.
func (s *AuthService) Authenticate(ctx context.Context, rawToken string) (*domain.Identity, *domain.SessionClaims, error) {
	if rawToken == "" {
		return nil, nil, domain.ErrNoToken
	}

	claims, err := s.tokens.Verify(rawToken)
	if err != nil {
		s.log.Warn().Err(err).Msg("session token rejected")
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrTokenInvalid, err)
	}

	if s.revoked != nil {
		revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("authenticate: revocation lookup: %w", err)
		}
		if revoked {
			s.log.Warn().Str("jti", claims.ID).Msg("revoked token presented")
			return nil, nil, fmt.Errorf("%w: %w", domain.ErrTokenInvalid, domain.ErrTokenRevoked)
		}
	}

	identity, err := s.repo.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			s.log.Warn().Str("identity_id", claims.Subject).Msg("token subject no longer exists")
			return nil, nil, domain.ErrIdentityGone
		}
		return nil, nil, fmt.Errorf("authenticate: %w", err)
	}

	return identity.Redacted(), claims, nil
}

// placeholderHash is built on first use. A failed attempt is retried on the
// next miss rather than remembered.
func (s *AuthService) placeholderHash(ctx context.Context) string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()
	if s.dummyHash != "" {
		return s.dummyHash
	}
	hash, err := s.hasher.Hash(ctx, "placeholder-password")
	if err != nil {
		s.log.Warn().Err(err).Msg("could not prepare placeholder hash")
		return ""
	}
	s.dummyHash = hash
	return hash
}
