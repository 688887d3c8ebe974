package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
)

// ValidRole reports whether role is one of the three known account roles.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleOrganizer, RoleAdmin:
		return true
	}
	return false
}

// User is the persisted account record. Password material and reset-token
// material never serialize to JSON.
type User struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	Name             string     `db:"name" json:"name"`
	Email            string     `db:"email" json:"email"`
	Role             string     `db:"role" json:"role"`
	ImageURL         *string    `db:"user_image_url" json:"user_image_url,omitempty"`
	PasswordHash     []byte     `db:"password_hash" json:"-"`
	PasswordSalt     []byte     `db:"password_salt" json:"-"`
	ResetTokenHash   []byte     `db:"reset_token_hash" json:"-"`
	ResetTokenExpiry *time.Time `db:"reset_token_expiry" json:"-"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsOrganizer() bool {
	return u.Role == RoleOrganizer
}
