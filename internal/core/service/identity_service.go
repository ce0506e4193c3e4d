package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// IdentityService implements profile self-service and admin management.
type IdentityService struct {
	repo   ports.IdentityRepository
	hasher ports.PasswordHasher
	log    zerolog.Logger
}

func NewIdentityService(repo ports.IdentityRepository, hasher ports.PasswordHasher, log zerolog.Logger) *IdentityService {
	return &IdentityService{repo: repo, hasher: hasher, log: log}
}

func (s *IdentityService) Profile(ctx context.Context, id string) (*domain.Identity, error) {
	return s.Get(ctx, id)
}

// UpdateProfile changes the caller's own name and/or password.
func (s *IdentityService) UpdateProfile(ctx context.Context, id string, in ports.UpdateProfileInput) (*domain.Identity, error) {
	if in.Name == nil && in.Password == nil {
		return nil, domain.NewValidationError("name or password is required")
	}

	var upd domain.IdentityUpdate
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.NewValidationError("name must not be empty")
		}
		upd.Name = &name
	}
	if in.Password != nil {
		if *in.Password == "" {
			return nil, domain.NewValidationError("password must not be empty")
		}
		if len(*in.Password) > maxPasswordBytes {
			return nil, domain.NewValidationError("password must be at most 72 bytes")
		}
		hash, err := s.hasher.Hash(ctx, *in.Password)
		if err != nil {
			return nil, fmt.Errorf("update profile: hash password: %w", err)
		}
		upd.PasswordHash = &hash
	}

	updated, err := s.repo.UpdateFields(ctx, id, upd)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.log.Info().
		Str("identity_id", id).
		Bool("name_changed", upd.Name != nil).
		Bool("password_changed", upd.PasswordHash != nil).
		Msg("profile updated")
	return updated.Redacted(), nil
}

// List returns a page of identities, optionally filtered by role.
func (s *IdentityService) List(ctx context.Context, in ports.ListIdentitiesInput) (*ports.ListIdentitiesResult, error) {
	var role domain.Role
	if in.Role != "" {
		r, err := domain.ParseRole(in.Role)
		if err != nil {
			return nil, err
		}
		role = r
	}

	page := in.Page
	if page < 1 {
		page = 1
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if page-1 > math.MaxInt/limit {
		return nil, domain.NewValidationError("page out of range")
	}

	items, total, err := s.repo.List(ctx, ports.ListIdentitiesFilter{Role: role, Page: page, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}

	redacted := make([]*domain.Identity, len(items))
	for i, item := range items {
		redacted[i] = item.Redacted()
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &ports.ListIdentitiesResult{
		Items:      redacted,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

func (s *IdentityService) Get(ctx context.Context, id string) (*domain.Identity, error) {
	identity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return identity.Redacted(), nil
}

// ChangeRole reassigns the role of a non-admin identity.
func (s *IdentityService) ChangeRole(ctx context.Context, targetID, role string) (*domain.Identity, error) {
	target, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("change role: %w", err)
	}
	if target.Role == domain.RoleAdmin {
		return nil, domain.ErrProtectedIdentity
	}

	newRole, err := domain.ParseRole(role)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateFields(ctx, targetID, domain.IdentityUpdate{
		Role:       &newRole,
		UnlessRole: domain.RoleAdmin,
	})
	if err != nil {
		return nil, fmt.Errorf("change role: %w", err)
	}

	s.log.Info().
		Str("identity_id", targetID).
		Str("from", string(target.Role)).
		Str("to", string(newRole)).
		Msg("role changed")
	return updated.Redacted(), nil
}

// Delete removes a non-admin identity.
func (s *IdentityService) Delete(ctx context.Context, targetID string) error {
	target, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	if target.Role == domain.RoleAdmin {
		return domain.ErrProtectedIdentity
	}

	if err := s.repo.Delete(ctx, targetID, domain.RoleAdmin); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}

	s.log.Info().Str("identity_id", targetID).Msg("identity deleted")
	return nil
}
