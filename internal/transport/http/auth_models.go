package http

import (
	"time"

	"github.com/evently/evently-api/internal/domain"
)

// AuthUser is the sanitized account representation returned by the API.
// Password and reset-token material never leave the domain struct, but an
// explicit response model keeps the contract independent of storage.
type AuthUser struct {
	ID        string    `json:"id" example:"9fd13fd2-63c5-4f29-a210-4a1a8e285f74"`
	Name      string    `json:"name" example:"Ada Organizer"`
	Email     string    `json:"email" example:"user@example.com"`
	Role      string    `json:"role" example:"organizer"`
	ImageURL  *string   `json:"user_image_url,omitempty"`
	CreatedAt time.Time `json:"created_at" example:"2024-01-01T12:00:00Z"`
	UpdatedAt time.Time `json:"updated_at" example:"2024-01-02T09:30:00Z"`
}

func buildAuthUser(user *domain.User) AuthUser {
	return AuthUser{
		ID:        user.ID.String(),
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		ImageURL:  user.ImageURL,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// RegisterRequest carries registration fields. Role is optional and may
// be "user" or "organizer"; admin is never self-assignable.
type RegisterRequest struct {
	Name     string `json:"name" example:"Ada Organizer"`
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"StrongPass23"`
	Role     string `json:"role,omitempty" example:"organizer"`
}

type LoginRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"StrongPass23"`
}

// VerifyOTPRequest carries the emailed code; the challenge token rides in
// the Authorization header.
type VerifyOTPRequest struct {
	OTP string `json:"otp" example:"483920"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"id_token"`
}

type ForgetPasswordRequest struct {
	Email string `json:"email" example:"user@example.com"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" example:"NewPass45"`
}

type UpdateProfileRequest struct {
	Name     *string `json:"name,omitempty"`
	ImageURL *string `json:"user_image_url,omitempty"`
}

type UpdateUserRoleRequest struct {
	Role string `json:"role" example:"organizer"`
}
