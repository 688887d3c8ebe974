package util

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"unicode"

	"golang.org/x/crypto/argon2"
)

const (
	saltLength   = 16
	hashLength   = 32
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// ValidatePassword enforces the account password policy: at least 8
// characters with at least one letter and one digit.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters long")
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return errors.New("password must include at least one letter and one number")
	}
	return nil
}

// DerivePassword hashes a password with a fresh random salt.
func DerivePassword(password string) (hash, salt []byte, err error) {
	if len(password) == 0 {
		return nil, nil, errors.New("password cannot be empty")
	}
	salt = make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, err
	}
	hash = argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, hashLength)
	return hash, salt, nil
}

// VerifyPassword recomputes the argon2 digest and compares it against the
// stored one in constant time.
func VerifyPassword(password string, salt, expectedHash []byte) bool {
	if len(password) == 0 || len(salt) == 0 || len(expectedHash) == 0 {
		return false
	}
	candidate := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, hashLength)
	return subtle.ConstantTimeCompare(candidate, expectedHash) == 1
}
