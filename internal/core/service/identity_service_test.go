package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

type mockIdentityRepo struct {
	mock.Mock
}

func (m *mockIdentityRepo) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	args := m.Called(ctx, email)
	if v := args.Get(0); v != nil {
		return v.(*domain.Identity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockIdentityRepo) FindByID(ctx context.Context, id string) (*domain.Identity, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*domain.Identity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockIdentityRepo) Insert(ctx context.Context, i *domain.Identity) (*domain.Identity, error) {
	args := m.Called(ctx, i)
	if v := args.Get(0); v != nil {
		return v.(*domain.Identity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockIdentityRepo) UpdateFields(ctx context.Context, id string, upd domain.IdentityUpdate) (*domain.Identity, error) {
	args := m.Called(ctx, id, upd)
	if v := args.Get(0); v != nil {
		return v.(*domain.Identity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockIdentityRepo) Delete(ctx context.Context, id string, unlessRole domain.Role) error {
	return m.Called(ctx, id, unlessRole).Error(0)
}

func (m *mockIdentityRepo) List(ctx context.Context, f ports.ListIdentitiesFilter) ([]*domain.Identity, int64, error) {
	args := m.Called(ctx, f)
	var items []*domain.Identity
	if v := args.Get(0); v != nil {
		items = v.([]*domain.Identity)
	}
	return items, args.Get(1).(int64), args.Error(2)
}

func newTestIdentityService() (*IdentityService, *mockIdentityRepo, *stubHasher) {
	repo := new(mockIdentityRepo)
	hasher := &stubHasher{}
	return NewIdentityService(repo, hasher, zerolog.Nop()), repo, hasher
}

func strPtr(s string) *string { return &s }

func TestIdentityService_UpdateProfile(t *testing.T) {
	svc, repo, _ := newTestIdentityService()
	ctx := context.Background()

	repo.On("UpdateFields", ctx, "u1", mock.MatchedBy(func(u domain.IdentityUpdate) bool {
		return u.Name != nil && *u.Name == "New Name" &&
			u.PasswordHash != nil && *u.PasswordHash == "hashed:newpass" &&
			u.Role == nil
	})).Return(&domain.Identity{ID: "u1", Name: "New Name", PasswordHash: "hashed:newpass"}, nil)

	got, err := svc.UpdateProfile(ctx, "u1", ports.UpdateProfileInput{Name: strPtr(" New Name "), Password: strPtr("newpass")})
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.Name)
	assert.Empty(t, got.PasswordHash)
	repo.AssertExpectations(t)
}

func TestIdentityService_UpdateProfile_Validation(t *testing.T) {
	svc, repo, _ := newTestIdentityService()
	ctx := context.Background()

	cases := []ports.UpdateProfileInput{
		{},
		{Name: strPtr("   ")},
		{Password: strPtr("")},
		{Password: strPtr(strings.Repeat("x", 73))},
	}
	for _, in := range cases {
		_, err := svc.UpdateProfile(ctx, "u1", in)
		assert.True(t, domain.IsValidation(err), "input %+v: got %v", in, err)
	}
	repo.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
}

func TestIdentityService_List_Defaults(t *testing.T) {
	svc, repo, _ := newTestIdentityService()
	ctx := context.Background()

	repo.On("List", ctx, ports.ListIdentitiesFilter{Page: 1, Limit: 20}).
		Return([]*domain.Identity{{ID: "a", PasswordHash: "h"}}, int64(41), nil)

	res, err := svc.List(ctx, ports.ListIdentitiesInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 20, res.Limit)
	assert.EqualValues(t, 41, res.Total)
	assert.Equal(t, 3, res.TotalPages)
	require.Len(t, res.Items, 1)
	assert.Empty(t, res.Items[0].PasswordHash)
}

func TestIdentityService_List_CapsLimitAndFiltersRole(t *testing.T) {
	svc, repo, _ := newTestIdentityService()
	ctx := context.Background()

	repo.On("List", ctx, ports.ListIdentitiesFilter{Role: domain.RoleSeller, Page: 2, Limit: 100}).
		Return([]*domain.Identity{}, int64(0), nil)

	res, err := svc.List(ctx, ports.ListIdentitiesInput{Role: "seller", Page: 2, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Limit)
	assert.Zero(t, res.TotalPages)
	repo.AssertExpectations(t)
}

func TestIdentityService_List_RejectsUnknownRole(t *testing.T) {
	svc, repo, _ := newTestIdentityService()

	_, err := svc.List(context.Background(), ports.ListIdentitiesInput{Role: "root"})
	assert.True(t, domain.IsValidation(err))
	repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestIdentityService_List_RejectsPageBeyondRange(t *testing.T) {
	svc, repo, _ := newTestIdentityService()

	_, err := svc.List(context.Background(), ports.ListIdentitiesInput{Page: math.MaxInt, Limit: 100})
	assert.True(t, domain.IsValidation(err))
	repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestIdentityService_Get_NotFound(t *testing.T) {
	svc, repo, _ := newTestIdentityService()
	ctx := context.Background()
	repo.On("FindByID", ctx, "missing").Return(nil, domain.ErrIdentityNotFound)

	_, err := svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)
}

func TestIdentityService_ChangeRole(t *testing.T) {
	svc, repo, _ := newTestIdentityService()
	ctx := context.Background()
	seller := domain.RoleSeller

	repo.On("FindByID", ctx, "u1").Return(&domain.Identity{ID: "u1", Role: domain.RoleBuyer}, nil)
	repo.On("UpdateFields", ctx, "u1", domain.IdentityUpdate{Role: &seller, UnlessRole: domain.RoleAdmin}).
		Return(&domain.Identity{ID: "u1", Role: domain.RoleSeller}, nil)

	got, err := svc.ChangeRole(ctx, "u1", "seller")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSeller, got.Role)
	repo.AssertExpectations(t)
}

func TestIdentityService_ChangeRole_ProtectsAdmin(t *testing.T) {
	svc, repo, _ := newTestIdentityService()
	ctx := context.Background()
	repo.On("FindByID", ctx, "root").Return(&domain.Identity{ID: "root", Role: domain.RoleAdmin}, nil)

	_, err := svc.ChangeRole(ctx, "root", "buyer")
	assert.ErrorIs(t, err, domain.ErrProtectedIdentity)
	repo.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
}

func TestIdentityService_ChangeRole_GuardCatchesConcurrentPromotion(t *testing.T) {
	svc, repo, _ := newTestIdentityService()
	ctx := context.Background()

	// The target was a buyer when read but is an admin by the time of the write.
	repo.On("FindByID", ctx, "u1").Return(&domain.Identity{ID: "u1", Role: domain.RoleBuyer}, nil)
	repo.On("UpdateFields", ctx, "u1", mock.Anything).Return(nil, domain.ErrProtectedIdentity)

	_, err := svc.ChangeRole(ctx, "u1", "seller")
	assert.ErrorIs(t, err, domain.ErrProtectedIdentity)
}

func TestIdentityService_ChangeRole_Errors(t *testing.T) {
	svc, repo, _ := newTestIdentityService()
	ctx := context.Background()
	repo.On("FindByID", ctx, "u1").Return(&domain.Identity{ID: "u1", Role: domain.RoleBuyer}, nil)
	repo.On("FindByID", ctx, "missing").Return(nil, domain.ErrIdentityNotFound)

	_, err := svc.ChangeRole(ctx, "u1", "superuser")
	assert.True(t, domain.IsValidation(err))

	_, err = svc.ChangeRole(ctx, "missing", "seller")
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)
}

func TestIdentityService_Delete(t *testing.T) {
	svc, repo, _ := newTestIdentityService()
	ctx := context.Background()

	repo.On("FindByID", ctx, "u1").Return(&domain.Identity{ID: "u1", Role: domain.RoleSeller}, nil)
	repo.On("Delete", ctx, "u1", domain.RoleAdmin).Return(nil)
	repo.On("FindByID", ctx, "root").Return(&domain.Identity{ID: "root", Role: domain.RoleAdmin}, nil)
	repo.On("FindByID", ctx, "missing").Return(nil, domain.ErrIdentityNotFound)

	require.NoError(t, svc.Delete(ctx, "u1"))
	assert.ErrorIs(t, svc.Delete(ctx, "root"), domain.ErrProtectedIdentity)
	assert.ErrorIs(t, svc.Delete(ctx, "missing"), domain.ErrIdentityNotFound)

	repo.AssertNumberOfCalls(t, "Delete", 1)
}

func TestIdentityService_Delete_SystemError(t *testing.T) {
	svc, repo, _ := newTestIdentityService()
	ctx := context.Background()
	boom := errors.New("boom")

	repo.On("FindByID", ctx, "u1").Return(&domain.Identity{ID: "u1", Role: domain.RoleBuyer}, nil)
	repo.On("Delete", ctx, "u1", domain.RoleAdmin).Return(boom)

	assert.ErrorIs(t, svc.Delete(ctx, "u1"), boom)
}
