package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/evently/evently-api/internal/domain"
	"github.com/evently/evently-api/internal/util"
)

type fakeUserRepo struct {
	usersByID    map[uuid.UUID]*domain.User
	createErr    error
	findErr      error
	setTokenErr  error
	updatePwdErr error

	setTokenCalls   int
	clearTokenCalls int
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{usersByID: map[uuid.UUID]*domain.User{}}
	for _, u := range users {
		repo.usersByID[u.ID] = u
	}
	return repo
}

func (f *fakeUserRepo) Create(ctx context.Context, name, email, role string, passwordHash, passwordSalt []byte) (*domain.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, u := range f.usersByID {
		if u.Email == email {
			return nil, &pgconn.PgError{Code: "23505"}
		}
	}
	user := &domain.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: append([]byte(nil), passwordHash...),
		PasswordSalt: append([]byte(nil), passwordSalt...),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	f.usersByID[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) UpsertGoogleUser(ctx context.Context, email, name string, imageURL *string) (*domain.User, error) {
	for _, u := range f.usersByID {
		if u.Email == email {
			return u, nil
		}
	}
	user := &domain.User{ID: uuid.New(), Name: name, Email: email, Role: domain.RoleUser, ImageURL: imageURL}
	f.usersByID[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, u := range f.usersByID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) FindByEmailFold(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range f.usersByID {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if u, ok := f.usersByID[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) FindByResetTokenHash(ctx context.Context, tokenHash []byte, now time.Time) (*domain.User, error) {
	for _, u := range f.usersByID {
		if len(u.ResetTokenHash) == 0 || u.ResetTokenExpiry == nil {
			continue
		}
		if string(u.ResetTokenHash) == string(tokenHash) && !u.ResetTokenExpiry.Before(now) {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, name *string, imageURL *string) (*domain.User, error) {
	u, ok := f.usersByID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if name != nil {
		u.Name = *name
	}
	if imageURL != nil {
		u.ImageURL = imageURL
	}
	return u, nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash, passwordSalt []byte) error {
	if f.updatePwdErr != nil {
		return f.updatePwdErr
	}
	u, ok := f.usersByID[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = append([]byte(nil), passwordHash...)
	u.PasswordSalt = append([]byte(nil), passwordSalt...)
	return nil
}

func (f *fakeUserRepo) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash []byte, expiry time.Time) error {
	if f.setTokenErr != nil {
		return f.setTokenErr
	}
	u, ok := f.usersByID[id]
	if !ok {
		return sql.ErrNoRows
	}
	f.setTokenCalls++
	u.ResetTokenHash = append([]byte(nil), tokenHash...)
	u.ResetTokenExpiry = &expiry
	return nil
}

func (f *fakeUserRepo) ClearResetToken(ctx context.Context, id uuid.UUID) error {
	u, ok := f.usersByID[id]
	if !ok {
		return sql.ErrNoRows
	}
	f.clearTokenCalls++
	u.ResetTokenHash = nil
	u.ResetTokenExpiry = nil
	return nil
}

func (f *fakeUserRepo) UpdateRole(ctx context.Context, id uuid.UUID, role string) (*domain.User, error) {
	u, ok := f.usersByID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	u.Role = role
	return u, nil
}

func (f *fakeUserRepo) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	out := []domain.User{}
	for _, u := range f.usersByID {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.usersByID, id)
	return nil
}

type fakeMailer struct {
	otps      []string
	otpEmails []string
	resetURLs []string
	sendErr   error
}

func (f *fakeMailer) SendOTP(ctx context.Context, email, otp string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.otpEmails = append(f.otpEmails, email)
	f.otps = append(f.otps, otp)
	return nil
}

func (f *fakeMailer) SendPasswordReset(ctx context.Context, email, resetURL string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.resetURLs = append(f.resetURLs, resetURL)
	return nil
}

func (f *fakeMailer) lastOTP(t *testing.T) string {
	t.Helper()
	if len(f.otps) == 0 {
		t.Fatal("no OTP was emailed")
	}
	return f.otps[len(f.otps)-1]
}

func seedUser(t *testing.T, email, password, role string) *domain.User {
	t.Helper()
	hash, salt, err := util.DerivePassword(password)
	if err != nil {
		t.Fatalf("derive password: %v", err)
	}
	return &domain.User{
		ID:           uuid.New(),
		Name:         "Test User",
		Email:        email,
		Role:         role,
		PasswordHash: hash,
		PasswordSalt: salt,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

func newAuthServiceForTests(users *fakeUserRepo, mailer *fakeMailer, challengeTTL time.Duration) *AuthService {
	jwt := util.NewJWTManager("test-secret", time.Hour, challengeTTL)
	return NewAuthService(users, jwt, mailer, "", "https://evently.example.com", 10*time.Minute)
}

func TestLoginIssuesChallengeNotSession(t *testing.T) {
	ctx := context.Background()
	user := seedUser(t, "a@x.com", "secretPass1", domain.RoleUser)
	users := newFakeUserRepo(user)
	mailer := &fakeMailer{}
	svc := newAuthServiceForTests(users, mailer, 10*time.Minute)

	challenge, err := svc.Login(ctx, "a@x.com", "secretPass1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if challenge.TempToken == "" || challenge.Email != "a@x.com" {
		t.Fatalf("unexpected challenge: %+v", challenge)
	}
	if len(mailer.otps) != 1 || mailer.otpEmails[0] != "a@x.com" {
		t.Fatalf("expected exactly one OTP email to the account, got %+v", mailer.otpEmails)
	}

	// The temp token must not grant a session.
	if _, err := svc.Authenticate(ctx, challenge.TempToken); err == nil {
		t.Fatal("challenge token must not authenticate as a session")
	}
}

func TestLoginUnknownEmailAndWrongPasswordIndistinguishable(t *testing.T) {
	ctx := context.Background()
	user := seedUser(t, "a@x.com", "secretPass1", domain.RoleUser)
	users := newFakeUserRepo(user)
	mailer := &fakeMailer{}
	svc := newAuthServiceForTests(users, mailer, 10*time.Minute)

	_, errUnknown := svc.Login(ctx, "nobody@x.com", "secretPass1")
	_, errWrongPwd := svc.Login(ctx, "a@x.com", "wrongPass1")

	if !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", errUnknown)
	}
	if !errors.Is(errWrongPwd, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", errWrongPwd)
	}
	if errUnknown.Error() != errWrongPwd.Error() {
		t.Fatal("unknown-email and wrong-password errors must be identical")
	}
	if len(mailer.otps) != 0 {
		t.Fatal("no OTP should be sent for failed logins")
	}
}

func TestLoginEmailLookupIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	user := seedUser(t, "A@X.com", "secretPass1", domain.RoleUser)
	users := newFakeUserRepo(user)
	svc := newAuthServiceForTests(users, &fakeMailer{}, 10*time.Minute)

	if _, err := svc.Login(ctx, "a@x.com", "secretPass1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("login lookup must be exact-match, got %v", err)
	}
}

func TestLoginMailFailureWithholdsToken(t *testing.T) {
	ctx := context.Background()
	user := seedUser(t, "a@x.com", "secretPass1", domain.RoleUser)
	users := newFakeUserRepo(user)
	mailer := &fakeMailer{sendErr: errors.New("smtp down")}
	svc := newAuthServiceForTests(users, mailer, 10*time.Minute)

	challenge, err := svc.Login(ctx, "a@x.com", "secretPass1")
	if !errors.Is(err, ErrEmailDelivery) {
		t.Fatalf("expected ErrEmailDelivery, got %v", err)
	}
	if challenge != nil {
		t.Fatal("challenge token must be withheld when the OTP email failed")
	}
}

func TestVerifyOTPHappyPath(t *testing.T) {
	ctx := context.Background()
	user := seedUser(t, "a@x.com", "secretPass1", domain.RoleOrganizer)
	users := newFakeUserRepo(user)
	mailer := &fakeMailer{}
	svc := newAuthServiceForTests(users, mailer, 10*time.Minute)

	challenge, err := svc.Login(ctx, "a@x.com", "secretPass1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := svc.VerifyOTP(ctx, challenge.TempToken, mailer.lastOTP(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Token == "" || result.User.ID != user.ID {
		t.Fatalf("unexpected result: %+v", result)
	}

	// The issued token is a real session.
	authed, err := svc.Authenticate(ctx, result.Token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if authed.ID != user.ID || authed.Role != domain.RoleOrganizer {
		t.Fatalf("unexpected authenticated user: %+v", authed)
	}
}

func TestVerifyOTPWrongCodeIsRetryable(t *testing.T) {
	ctx := context.Background()
	user := seedUser(t, "a@x.com", "secretPass1", domain.RoleUser)
	users := newFakeUserRepo(user)
	mailer := &fakeMailer{}
	svc := newAuthServiceForTests(users, mailer, 10*time.Minute)

	challenge, err := svc.Login(ctx, "a@x.com", "secretPass1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	otp := mailer.lastOTP(t)
	wrong := "000000"
	if wrong == otp {
		wrong = "000001"
	}

	if _, err := svc.VerifyOTP(ctx, challenge.TempToken, wrong); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("expected ErrInvalidOTP, got %v", err)
	}
	// The same challenge is still usable afterwards.
	if _, err := svc.VerifyOTP(ctx, challenge.TempToken, otp); err != nil {
		t.Fatalf("expected retry with correct code to succeed, got %v", err)
	}
}

func TestVerifyOTPExpiredChallengeBeatsWrongCode(t *testing.T) {
	ctx := context.Background()
	user := seedUser(t, "a@x.com", "secretPass1", domain.RoleUser)
	users := newFakeUserRepo(user)
	mailer := &fakeMailer{}
	// Negative TTL mints already-expired challenges.
	svc := newAuthServiceForTests(users, mailer, -time.Minute)

	challenge, err := svc.Login(ctx, "a@x.com", "secretPass1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Even the correct code must report expiry, not an OTP mismatch.
	if _, err := svc.VerifyOTP(ctx, challenge.TempToken, mailer.lastOTP(t)); !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("expected ErrChallengeExpired, got %v", err)
	}
	if _, err := svc.ResendOTP(ctx, challenge.TempToken); !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("expected ErrChallengeExpired on resend, got %v", err)
	}
}

func TestVerifyOTPGarbageTokenLooksExpired(t *testing.T) {
	ctx := context.Background()
	svc := newAuthServiceForTests(newFakeUserRepo(), &fakeMailer{}, 10*time.Minute)

	if _, err := svc.VerifyOTP(ctx, "not-a-token", "123456"); !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("malformed and expired tokens must be indistinguishable, got %v", err)
	}
}

func TestVerifyOTPSessionTokenRejected(t *testing.T) {
	ctx := context.Background()
	user := seedUser(t, "a@x.com", "secretPass1", domain.RoleUser)
	users := newFakeUserRepo(user)
	mailer := &fakeMailer{}
	svc := newAuthServiceForTests(users, mailer, 10*time.Minute)

	challenge, err := svc.Login(ctx, "a@x.com", "secretPass1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := svc.VerifyOTP(ctx, challenge.TempToken, mailer.lastOTP(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.VerifyOTP(ctx, result.Token, mailer.lastOTP(t)); !errors.Is(err, ErrInvalidChallenge) {
		t.Fatalf("a session token is not a valid challenge, got %v", err)
	}
}

func TestVerifyOTPAccountDeletedMidFlow(t *testing.T) {
	ctx := context.Background()
	user := seedUser(t, "a@x.com", "secretPass1", domain.RoleUser)
	users := newFakeUserRepo(user)
	mailer := &fakeMailer{}
	svc := newAuthServiceForTests(users, mailer, 10*time.Minute)

	challenge, err := svc.Login(ctx, "a@x.com", "secretPass1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	delete(users.usersByID, user.ID)

	if _, err := svc.VerifyOTP(ctx, challenge.TempToken, mailer.lastOTP(t)); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestResendOTPSupersedesButDoesNotRevoke(t *testing.T) {
	ctx := context.Background()
	user := seedUser(t, "a@x.com", "secretPass1", domain.RoleUser)
	users := newFakeUserRepo(user)
	mailer := &fakeMailer{}
	svc := newAuthServiceForTests(users, mailer, 10*time.Minute)

	first, err := svc.Login(ctx, "a@x.com", "secretPass1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	firstOTP := mailer.lastOTP(t)

	time.Sleep(5 * time.Millisecond)
	second, err := svc.ResendOTP(ctx, first.TempToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	secondOTP := mailer.lastOTP(t)

	if second.TempToken == first.TempToken {
		t.Fatal("resend must issue a fresh challenge token")
	}
	if len(mailer.otps) != 2 {
		t.Fatalf("expected two OTP emails, got %d", len(mailer.otps))
	}
	if !second.ExpiresAt.After(first.ExpiresAt) {
		t.Fatal("resent challenge window must be measured from the resend call")
	}

	// The new code belongs to the new token, not the old one.
	if firstOTP != secondOTP {
		if _, err := svc.VerifyOTP(ctx, second.TempToken, firstOTP); !errors.Is(err, ErrInvalidOTP) {
			t.Fatalf("old code must not satisfy the new challenge, got %v", err)
		}
	}
	if _, err := svc.VerifyOTP(ctx, second.TempToken, secondOTP); err != nil {
		t.Fatalf("new code must satisfy the new challenge, got %v", err)
	}

	// The superseded token is not revoked: its own code still completes it.
	if _, err := svc.VerifyOTP(ctx, first.TempToken, firstOTP); err != nil {
		t.Fatalf("superseded challenge should remain valid until expiry, got %v", err)
	}
}

func TestRegisterSuccess(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserRepo()
	svc := newAuthServiceForTests(users, &fakeMailer{}, 10*time.Minute)

	result, err := svc.Register(ctx, "Ada", "ada@x.com", "StrongPass1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.User.Role != domain.RoleUser {
		t.Fatalf("expected default role user, got %q", result.User.Role)
	}
	if result.Token == "" {
		t.Fatal("register should issue a session token directly")
	}
	if _, err := svc.Authenticate(ctx, result.Token); err != nil {
		t.Fatalf("registered session should authenticate, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	user := seedUser(t, "ada@x.com", "StrongPass1", domain.RoleUser)
	users := newFakeUserRepo(user)
	svc := newAuthServiceForTests(users, &fakeMailer{}, 10*time.Minute)

	if _, err := svc.Register(ctx, "Ada", "ada@x.com", "StrongPass1", ""); !errors.Is(err, ErrEmailAlreadyUsed) {
		t.Fatalf("expected ErrEmailAlreadyUsed, got %v", err)
	}
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	ctx := context.Background()
	svc := newAuthServiceForTests(newFakeUserRepo(), &fakeMailer{}, 10*time.Minute)

	if _, err := svc.Register(ctx, "Eve", "eve@x.com", "StrongPass1", domain.RoleAdmin); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestRegisterWeakPassword(t *testing.T) {
	ctx := context.Background()
	svc := newAuthServiceForTests(newFakeUserRepo(), &fakeMailer{}, 10*time.Minute)

	if _, err := svc.Register(ctx, "Ada", "ada@x.com", "weak", ""); !errors.Is(err, ErrPasswordTooWeak) {
		t.Fatalf("expected ErrPasswordTooWeak, got %v", err)
	}
}

func TestRequestPasswordResetCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	user := seedUser(t, "Ada@X.com", "StrongPass1", domain.RoleUser)
	users := newFakeUserRepo(user)
	mailer := &fakeMailer{}
	svc := newAuthServiceForTests(users, mailer, 10*time.Minute)

	if err := svc.RequestPasswordReset(ctx, "ada@x.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(user.ResetTokenHash) == 0 || user.ResetTokenExpiry == nil {
		t.Fatal("expected reset token hash and expiry to be stored")
	}
	if len(mailer.resetURLs) != 1 || !strings.Contains(mailer.resetURLs[0], "/reset-password/") {
		t.Fatalf("expected a reset URL to be emailed, got %v", mailer.resetURLs)
	}
	if strings.Contains(mailer.resetURLs[0], string(user.ResetTokenHash)) {
		t.Fatal("the stored digest must never appear in the email")
	}
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	ctx := context.Background()
	svc := newAuthServiceForTests(newFakeUserRepo(), &fakeMailer{}, 10*time.Minute)

	if err := svc.RequestPasswordReset(ctx, "nobody@x.com"); !errors.Is(err, ErrEmailNotFound) {
		t.Fatalf("expected ErrEmailNotFound, got %v", err)
	}
}

func TestRequestPasswordResetMailFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	user := seedUser(t, "ada@x.com", "StrongPass1", domain.RoleUser)
	users := newFakeUserRepo(user)
	mailer := &fakeMailer{sendErr: errors.New("smtp down")}
	svc := newAuthServiceForTests(users, mailer, 10*time.Minute)

	if err := svc.RequestPasswordReset(ctx, "ada@x.com"); !errors.Is(err, ErrEmailDelivery) {
		t.Fatalf("expected ErrEmailDelivery, got %v", err)
	}
	if len(user.ResetTokenHash) != 0 || user.ResetTokenExpiry != nil {
		t.Fatal("a failed reset email must not leave a dangling reset window")
	}
	if users.clearTokenCalls != 1 {
		t.Fatalf("expected exactly one rollback, got %d", users.clearTokenCalls)
	}
}

func TestResetPasswordRoundTripAndSingleUse(t *testing.T) {
	ctx := context.Background()
	user := seedUser(t, "ada@x.com", "OldPass123", domain.RoleUser)
	users := newFakeUserRepo(user)
	mailer := &fakeMailer{}
	svc := newAuthServiceForTests(users, mailer, 10*time.Minute)

	if err := svc.RequestPasswordReset(ctx, "ada@x.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	url := mailer.resetURLs[0]
	rawToken := url[strings.LastIndex(url, "/")+1:]

	if err := svc.ResetPassword(ctx, rawToken, "NewPass456"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Old password no longer authenticates; new one does.
	if _, err := svc.Login(ctx, "ada@x.com", "OldPass123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password to be rejected, got %v", err)
	}
	if _, err := svc.Login(ctx, "ada@x.com", "NewPass456"); err != nil {
		t.Fatalf("expected new password to work, got %v", err)
	}

	// Token is consumed.
	if err := svc.ResetPassword(ctx, rawToken, "OtherPass789"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expected second use of reset token to fail, got %v", err)
	}
}

func TestResetPasswordExpiredToken(t *testing.T) {
	ctx := context.Background()
	user := seedUser(t, "ada@x.com", "OldPass123", domain.RoleUser)
	users := newFakeUserRepo(user)
	mailer := &fakeMailer{}
	svc := newAuthServiceForTests(users, mailer, 10*time.Minute)

	if err := svc.RequestPasswordReset(ctx, "ada@x.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	url := mailer.resetURLs[0]
	rawToken := url[strings.LastIndex(url, "/")+1:]

	expired := time.Now().Add(-time.Minute)
	user.ResetTokenExpiry = &expired

	if err := svc.ResetPassword(ctx, rawToken, "NewPass456"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestResetPasswordUnknownToken(t *testing.T) {
	ctx := context.Background()
	svc := newAuthServiceForTests(newFakeUserRepo(), &fakeMailer{}, 10*time.Minute)

	if err := svc.ResetPassword(ctx, "deadbeef", "NewPass456"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expected ErrInvalidResetToken, got %v", err)
	}
}
