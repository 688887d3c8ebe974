package util

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenInvalid  = errors.New("invalid token")
	ErrNotAChallenge = errors.New("token is not an MFA challenge")
	ErrNotASession   = errors.New("token is not a session token")
)

// SessionClaims is the payload of a full session token, issued only after
// password and OTP verification (or Google sign-in) both succeed.
type SessionClaims struct {
	UserID uuid.UUID `json:"sub"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

// ChallengeClaims is the payload of the short-lived MFA challenge token
// handed out after the password check. The OTP itself is never embedded,
// only its per-email digest; the token is the sole record of the
// challenge — nothing is persisted server-side.
type ChallengeClaims struct {
	UserID     uuid.UUID `json:"sub"`
	Email      string    `json:"email"`
	OTPHash    string    `json:"otp_hash"`
	PendingMFA bool      `json:"pending_mfa"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	secret       []byte
	sessionTTL   time.Duration
	challengeTTL time.Duration
}

func NewJWTManager(secret string, sessionTTL, challengeTTL time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), sessionTTL: sessionTTL, challengeTTL: challengeTTL}
}

// GenerateSession signs a long-lived session token for an authenticated
// account.
func (m *JWTManager) GenerateSession(userID uuid.UUID, email, role string) (string, time.Time, error) {
	expiresAt := time.Now().Add(m.sessionTTL)
	claims := SessionClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// GenerateChallenge signs an MFA challenge token carrying the OTP digest.
// Its window is measured from now, so a resent challenge gets a fresh
// window regardless of when the login started.
func (m *JWTManager) GenerateChallenge(userID uuid.UUID, email, otpHash string) (string, time.Time, error) {
	expiresAt := time.Now().Add(m.challengeTTL)
	claims := ChallengeClaims{
		UserID:     userID,
		Email:      email,
		OTPHash:    otpHash,
		PendingMFA: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseSession validates a session token. Challenge tokens are rejected
// even though they share the signing key: a pending-MFA token must never
// authenticate a request.
func (m *JWTManager) ParseSession(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := m.parse(tokenString, claims); err != nil {
		return nil, err
	}
	var probe ChallengeClaims
	if err := m.parse(tokenString, &probe); err == nil && probe.PendingMFA {
		return nil, ErrNotASession
	}
	return claims, nil
}

// ParseChallenge validates an MFA challenge token. Expired and malformed
// tokens are deliberately indistinguishable to the caller.
func (m *JWTManager) ParseChallenge(tokenString string) (*ChallengeClaims, error) {
	claims := &ChallengeClaims{}
	if err := m.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if !claims.PendingMFA || claims.OTPHash == "" {
		return nil, ErrNotAChallenge
	}
	return claims, nil
}

func (m *JWTManager) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}
