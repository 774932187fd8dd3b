package auth

import "errors"

var (
	// ErrSecretTooShort rejects HS256 secrets below MinSecretLength.
	ErrSecretTooShort = errors.New("onboarding API secret is shorter than 32 bytes")
	ErrInvalidToken   = errors.New("service token rejected")
	ErrTokenExpired   = errors.New("service token has expired")

	ErrEmptyPassword    = errors.New("cannot hash an empty password")
	ErrPasswordMismatch = errors.New("password does not match stored hash")
)
