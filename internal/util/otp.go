package util

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/big"
)

// OTPDigits is the fixed length of verification codes sent by email.
const OTPDigits = 6

// GenerateOTP returns a 6-digit decimal code drawn uniformly from
// [100000, 999999] using crypto/rand.
func GenerateOTP() (string, error) {
	const span = 900000
	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return "", err
	}
	code := n.Int64() + 100000
	digits := make([]byte, 0, OTPDigits)
	for div := int64(100000); div >= 1; div /= 10 {
		digits = append(digits, byte('0'+(code/div)%10))
	}
	return string(digits), nil
}

// HashOTP derives a hex digest over the code concatenated with the account
// email. The email acts as a per-account binder: the same code hashes
// differently for different accounts. Deterministic, so a later submission
// can be recomputed and compared.
func HashOTP(otp, email string) string {
	sum := sha256.Sum256([]byte(otp + email))
	return hex.EncodeToString(sum[:])
}

// VerifyOTP recomputes the digest for candidate and compares it against
// storedHash in constant time.
func VerifyOTP(candidate, storedHash, email string) bool {
	if candidate == "" || storedHash == "" {
		return false
	}
	computed := HashOTP(candidate, email)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
