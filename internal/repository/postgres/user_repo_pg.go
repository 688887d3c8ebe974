package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/evently/evently-api/internal/domain"
)

const userColumns = `id, name, email, role, user_image_url, password_hash, password_salt, reset_token_hash, reset_token_expiry, created_at, updated_at`

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, name, email, role string, passwordHash, passwordSalt []byte) (*domain.User, error) {
	const query = `
        INSERT INTO user_account (name, email, role, password_hash, password_salt)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING ` + userColumns
	row := r.db.QueryRowxContext(ctx, query, name, email, role, passwordHash, passwordSalt)
	var user domain.User
	if err := row.StructScan(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) UpsertGoogleUser(ctx context.Context, email, name string, imageURL *string) (*domain.User, error) {
	const query = `
        INSERT INTO user_account (name, email, role, user_image_url)
        VALUES ($1, $2, 'user', $3)
        ON CONFLICT (email) DO UPDATE
        SET name = COALESCE(NULLIF(EXCLUDED.name, ''), user_account.name),
            user_image_url = COALESCE(EXCLUDED.user_image_url, user_account.user_image_url),
            updated_at = NOW()
        RETURNING ` + userColumns
	row := r.db.QueryRowxContext(ctx, query, name, email, imageURL)
	var user domain.User
	if err := row.StructScan(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM user_account WHERE email = $1`
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmailFold(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM user_account WHERE LOWER(email) = LOWER($1)`
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM user_account WHERE id = $1`
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByResetTokenHash(ctx context.Context, tokenHash []byte, now time.Time) (*domain.User, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM user_account
        WHERE reset_token_hash = $1 AND reset_token_expiry >= $2`
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, tokenHash, now); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, name *string, imageURL *string) (*domain.User, error) {
	const query = `
        UPDATE user_account
        SET name = COALESCE($2, name),
            user_image_url = COALESCE($3, user_image_url),
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + userColumns
	row := r.db.QueryRowxContext(ctx, query, id, name, imageURL)
	var user domain.User
	if err := row.StructScan(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash, passwordSalt []byte) error {
	const query = `
        UPDATE user_account
        SET password_hash = $2,
            password_salt = $3,
            updated_at = NOW()
        WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, passwordHash, passwordSalt)
	return err
}

func (r *UserRepository) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash []byte, expiry time.Time) error {
	const query = `
        UPDATE user_account
        SET reset_token_hash = $2,
            reset_token_expiry = $3,
            updated_at = NOW()
        WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, tokenHash, expiry)
	return err
}

func (r *UserRepository) ClearResetToken(ctx context.Context, id uuid.UUID) error {
	const query = `
        UPDATE user_account
        SET reset_token_hash = NULL,
            reset_token_expiry = NULL,
            updated_at = NOW()
        WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *UserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role string) (*domain.User, error) {
	const query = `
        UPDATE user_account
        SET role = $2,
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + userColumns
	row := r.db.QueryRowxContext(ctx, query, id, role)
	var user domain.User
	if err := row.StructScan(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM user_account
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2`
	users := []domain.User{}
	if err := r.db.SelectContext(ctx, &users, query, limit, offset); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM user_account WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
