package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns a short, non-reversible identifier for a secret so
// logs can tell two secrets apart without revealing either.
func Fingerprint(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:6])
}
