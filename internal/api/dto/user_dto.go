package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// UserRegisterRequest payload for new users.
type UserRegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserLoginRequest payload for login. SelectedRole is optional.
type UserLoginRequest struct {
	Email        string      `json:"email"`
	Password     string      `json:"password"`
	SelectedRole domain.Role `json:"selectedRole"`
}

// GrantRolesRequest payload for admin role management.
type GrantRolesRequest struct {
	Roles []domain.Role `json:"roles"`
}

// UserResponse is the public view of a user. Role is set on login only.
type UserResponse struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Email string        `json:"email"`
	Role  domain.Role   `json:"role,omitempty"`
	Roles []domain.Role `json:"roles"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(user *domain.User) UserResponse {
	roles := make([]domain.Role, len(user.Roles))
	copy(roles, user.Roles)
	return UserResponse{ID: user.ID, Name: user.Name, Email: user.Email, Roles: roles}
}
