package dto

import (
	"github.com/spec-kit/auth-gateway/internal/domain"
)

// UserResponse is the public shape for account records.
type UserResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	IsVerified bool   `json:"is_verified"`
}

// NewUserResponse maps a domain user to its public shape.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:         user.ID.String(),
		Name:       user.Name,
		Email:      user.Email,
		IsVerified: user.IsVerified,
	}
}

// FollowResponse reports the state after a follow toggle.
type FollowResponse struct {
	Following bool `json:"following"`
}
