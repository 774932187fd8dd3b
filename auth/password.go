package auth

import (
	"errors"
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/crypto/bcrypt"
)

// Monitoring password parameters.
const (
	// PasswordLength matches 16 random bytes rendered URL-safe.
	PasswordLength = 22

	// PasswordCost is the bcrypt work factor for stored passwords.
	PasswordCost = 12

	passwordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
)

// GeneratePassword returns a new random URL-safe password.
func GeneratePassword() (string, error) {
	pw, err := nanoid.Generate(passwordAlphabet, PasswordLength)
	if err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return pw, nil
}

// HashPassword returns the bcrypt hash of plaintext at PasswordCost.
// Every call uses a fresh salt, so hashing the same plaintext twice yields
// different strings that both verify.
func HashPassword(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether plaintext matches hash.
func VerifyPassword(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
