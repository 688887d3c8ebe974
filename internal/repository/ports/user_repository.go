package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/evently/evently-api/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, name, email, role string, passwordHash, passwordSalt []byte) (*domain.User, error)
	UpsertGoogleUser(ctx context.Context, email, name string, imageURL *string) (*domain.User, error)
	// FindByEmail matches the stored email exactly, case-sensitive.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindByEmailFold matches case-insensitively. Used only by the
	// password-reset request path, which is deliberately looser than login.
	FindByEmailFold(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByResetTokenHash(ctx context.Context, tokenHash []byte, now time.Time) (*domain.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name *string, imageURL *string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash, passwordSalt []byte) error
	SetResetToken(ctx context.Context, id uuid.UUID, tokenHash []byte, expiry time.Time) error
	ClearResetToken(ctx context.Context, id uuid.UUID) error
	UpdateRole(ctx context.Context, id uuid.UUID, role string) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
