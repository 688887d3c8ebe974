package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"google.golang.org/api/idtoken"

	"github.com/evently/evently-api/internal/domain"
	"github.com/evently/evently-api/internal/repository/ports"
	"github.com/evently/evently-api/internal/util"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password;
	// callers must surface an identical message for either so account
	// existence never leaks through the login endpoint.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailDelivery      = errors.New("verification email could not be sent")
	ErrChallengeExpired   = errors.New("verification session expired")
	ErrInvalidChallenge   = errors.New("invalid verification attempt")
	ErrAccountNotFound    = errors.New("account no longer exists")
	ErrInvalidOTP         = errors.New("invalid or expired verification code")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrEmailAlreadyUsed   = errors.New("email already registered")
	ErrEmailNotFound      = errors.New("no account with that email")
	ErrPasswordTooWeak    = errors.New("password too weak")
	ErrInvalidRole        = errors.New("invalid role")
	ErrGoogleDisabled     = errors.New("google sign-in not configured")
)

// Mailer is the outbound-email collaborator of the auth core.
type Mailer interface {
	SendOTP(ctx context.Context, email, otp string) error
	SendPasswordReset(ctx context.Context, email, resetURL string) error
}

// AuthResult is returned once an account is fully authenticated.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// LoginChallenge is the intermediate result of the password step: the
// caller must complete OTP verification before any session exists. All
// challenge state lives inside the signed TempToken.
type LoginChallenge struct {
	TempToken string
	Email     string
	ExpiresAt time.Time
}

type AuthService struct {
	users           ports.UserRepository
	jwt             *util.JWTManager
	mailer          Mailer
	googleAudience  string
	frontendBaseURL string
	resetTTL        time.Duration
}

func NewAuthService(users ports.UserRepository, jwt *util.JWTManager, mailer Mailer, googleAudience, frontendBaseURL string, resetTTL time.Duration) *AuthService {
	return &AuthService{
		users:           users,
		jwt:             jwt,
		mailer:          mailer,
		googleAudience:  googleAudience,
		frontendBaseURL: frontendBaseURL,
		resetTTL:        resetTTL,
	}
}

// Register creates an account and issues a session token immediately;
// registration is not MFA-gated. The admin role is never self-assignable.
func (s *AuthService) Register(ctx context.Context, name, email, password, role string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return nil, errors.New("name and email are required")
	}

	if role == "" {
		role = domain.RoleUser
	}
	if role == domain.RoleAdmin || !domain.ValidRole(role) {
		return nil, ErrInvalidRole
	}

	if err := util.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPasswordTooWeak, err)
	}

	hash, salt, err := util.DerivePassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, name, email, role, hash, salt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailAlreadyUsed
		}
		return nil, err
	}

	return s.issueSession(user)
}

// Login performs the password step of the two-step login. On success it
// generates an OTP, embeds the OTP digest in a short-lived signed
// challenge token, and emails the plaintext code. The token is withheld
// whenever the email did not go out.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginChallenge, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if notFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !util.VerifyPassword(password, user.PasswordSalt, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.issueChallenge(ctx, user)
}

// VerifyOTP completes the MFA step. The challenge token remains valid for
// further attempts until its own expiry; there is no attempt counter and
// no single-use marking.
func (s *AuthService) VerifyOTP(ctx context.Context, tempToken, otp string) (*AuthResult, error) {
	claims, err := s.parseChallenge(tempToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if notFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	if !util.VerifyOTP(otp, claims.OTPHash, claims.Email) {
		return nil, ErrInvalidOTP
	}

	return s.issueSession(user)
}

// ResendOTP validates the presented challenge and replaces it with a
// fresh OTP and a fresh token whose window starts now. The superseded
// token is not revoked; it stays independently valid until it expires.
func (s *AuthService) ResendOTP(ctx context.Context, tempToken string) (*LoginChallenge, error) {
	claims, err := s.parseChallenge(tempToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if notFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return s.issueChallenge(ctx, user)
}

// LoginWithGoogle exchanges a verified Google ID token for a session.
// This path bypasses the password and email-OTP steps: possession of a
// valid Google identity stands in for both factors.
func (s *AuthService) LoginWithGoogle(ctx context.Context, idTok string) (*AuthResult, error) {
	if s.googleAudience == "" {
		return nil, ErrGoogleDisabled
	}
	payload, err := idtoken.Validate(ctx, idTok, s.googleAudience)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	name, _ := payload.Claims["name"].(string)
	var picture *string
	if p, _ := payload.Claims["picture"].(string); p != "" {
		picture = &p
	}

	user, err := s.users.UpsertGoogleUser(ctx, email, name, picture)
	if err != nil {
		return nil, err
	}
	return s.issueSession(user)
}

// RequestPasswordReset starts the reset flow. Lookup is case-insensitive,
// deliberately looser than login. Absence of the account is reported to
// the caller (source behavior; an enumeration trade-off, not unified with
// the login path). A failed email send rolls the stored token back so no
// reset window dangles without a notified user.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmailFold(ctx, email)
	if err != nil {
		if notFound(err) {
			return ErrEmailNotFound
		}
		return err
	}

	rawToken, err := util.GenerateResetToken()
	if err != nil {
		return err
	}
	expiry := time.Now().Add(s.resetTTL)
	if err := s.users.SetResetToken(ctx, user.ID, util.HashResetToken(rawToken), expiry); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/reset-password/%s", strings.TrimRight(s.frontendBaseURL, "/"), rawToken)
	if err := s.mailer.SendPasswordReset(ctx, user.Email, resetURL); err != nil {
		log.Printf("auth: password reset email to %s failed: %v", user.Email, err)
		if clearErr := s.users.ClearResetToken(ctx, user.ID); clearErr != nil {
			log.Printf("auth: rollback reset token for %s failed: %v", user.ID, clearErr)
		}
		return ErrEmailDelivery
	}
	return nil
}

// ResetPassword consumes a reset token. The stored token hash and expiry
// are cleared on success, so a second presentation of the same token
// fails.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	user, err := s.users.FindByResetTokenHash(ctx, util.HashResetToken(rawToken), time.Now())
	if err != nil {
		if notFound(err) {
			return ErrInvalidResetToken
		}
		return err
	}

	if err := util.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %s", ErrPasswordTooWeak, err)
	}

	hash, salt, err := util.DerivePassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, salt); err != nil {
		return err
	}
	return s.users.ClearResetToken(ctx, user.ID)
}

// Authenticate resolves a bearer session token to its live account.
// Challenge tokens never pass: a pending-MFA login is not a session.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.jwt.ParseSession(token)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if notFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if notFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, id uuid.UUID, name *string, imageURL *string) (*domain.User, error) {
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, errors.New("name cannot be empty")
		}
		name = &trimmed
	}
	user, err := s.users.UpdateProfile(ctx, id, name, imageURL)
	if err != nil {
		if notFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.users.List(ctx, limit, offset)
}

func (s *AuthService) UpdateUserRole(ctx context.Context, id uuid.UUID, role string) (*domain.User, error) {
	if !domain.ValidRole(role) {
		return nil, ErrInvalidRole
	}
	user, err := s.users.UpdateRole(ctx, id, role)
	if err != nil {
		if notFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.users.Delete(ctx, id)
}

func (s *AuthService) issueSession(user *domain.User) (*AuthResult, error) {
	token, expiresAt, err := s.jwt.GenerateSession(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) issueChallenge(ctx context.Context, user *domain.User) (*LoginChallenge, error) {
	otp, err := util.GenerateOTP()
	if err != nil {
		return nil, err
	}
	otpHash := util.HashOTP(otp, user.Email)

	tempToken, expiresAt, err := s.jwt.GenerateChallenge(user.ID, user.Email, otpHash)
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendOTP(ctx, user.Email, otp); err != nil {
		log.Printf("auth: OTP email to %s failed: %v", user.Email, err)
		return nil, ErrEmailDelivery
	}

	return &LoginChallenge{TempToken: tempToken, Email: user.Email, ExpiresAt: expiresAt}, nil
}

// parseChallenge separates "token unusable, start over" from "token fine
// but not a challenge". Expired and malformed tokens collapse into the
// former so the caller cannot tell which it was.
func (s *AuthService) parseChallenge(tempToken string) (*util.ChallengeClaims, error) {
	claims, err := s.jwt.ParseChallenge(tempToken)
	if err != nil {
		if errors.Is(err, util.ErrNotAChallenge) {
			return nil, ErrInvalidChallenge
		}
		return nil, ErrChallengeExpired
	}
	return claims, nil
}

func notFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
