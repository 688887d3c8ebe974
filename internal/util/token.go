package util

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

const resetTokenBytes = 32

// GenerateResetToken returns a random opaque token for password-reset
// links. Only its digest is ever persisted.
func GenerateResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashResetToken derives the digest stored on the account record.
func HashResetToken(raw string) []byte {
	sum := sha256.Sum256([]byte(raw))
	return sum[:]
}

// VerifyResetToken compares a presented token against the stored digest in
// constant time.
func VerifyResetToken(raw string, storedHash []byte) bool {
	if raw == "" || len(storedHash) == 0 {
		return false
	}
	computed := HashResetToken(raw)
	return subtle.ConstantTimeCompare(computed, storedHash) == 1
}
