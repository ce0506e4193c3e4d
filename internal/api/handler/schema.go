package handler

import (
	"time"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// --- Requests ---

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	// Role is honoured only for an authenticated admin.
	Role string `json:"role,omitempty" example:"seller"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	Name     *string `json:"name,omitempty"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=6,max=72"`
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required" example:"seller"`
}

type listUsersQuery struct {
	Role  string `query:"role"`
	Page  int    `query:"page"`
	Limit int    `query:"limit"`
}

// --- Responses ---

type identityResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type authResponse struct {
	Token string           `json:"token,omitempty"`
	User  identityResponse `json:"user"`
}

type listUsersResponse struct {
	Items      []identityResponse `json:"items"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type accessResponse struct {
	Role string `json:"role"`
	Area string `json:"area"`
}

// --- Mapping ---

func toIdentityResponse(i *domain.Identity) identityResponse {
	return identityResponse{
		ID:        i.ID,
		Email:     i.Email,
		Name:      i.Name,
		Role:      string(i.Role),
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

func toListUsersResponse(res *ports.ListIdentitiesResult) listUsersResponse {
	items := make([]identityResponse, 0, len(res.Items))
	for _, i := range res.Items {
		items = append(items, toIdentityResponse(i))
	}
	return listUsersResponse{
		Items:      items,
		Total:      res.Total,
		Page:       res.Page,
		Limit:      res.Limit,
		TotalPages: res.TotalPages,
	}
}
