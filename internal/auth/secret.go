package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid operator credentials")
	ErrWeakSecret         = errors.New("secret must be at least 8 characters")
)

// HashSecret hashes an operator secret for storage.
func HashSecret(secret string) (string, error) {
	if len(secret) < 8 {
		return "", ErrWeakSecret
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifySecret compares a stored hash with a presented secret.
func VerifySecret(hash, secret string) error {
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}
