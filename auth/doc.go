// Package auth provides the credential helpers used during onboarding.
//
// This package includes:
//   - Monitoring user passwords: generation (URL-safe, 22 characters) and
//     bcrypt hashing
//   - Short-lived HS256 service tokens for the provisioning API
//   - Secret fingerprints for logs
//
// # Passwords
//
//	plain, err := auth.GeneratePassword()
//	hash, err := auth.HashPassword(plain)
//
// # Service tokens
//
//	cfg := auth.JWTConfig{
//	    Secret: []byte(secret),
//	    Issuer: "qonboard",
//	}
//	token, err := auth.GenerateServiceToken(cfg, "OPS-123", "app.quilr.ai", "USA POC")
package auth
