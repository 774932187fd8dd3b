package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	nanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultServiceTokenTTL bounds how long a provisioning call token is valid.
const DefaultServiceTokenTTL = 5 * time.Minute

// MinSecretLength is the shortest accepted HS256 signing key.
const MinSecretLength = 32

// JWTConfig holds configuration for service token generation and validation.
type JWTConfig struct {
	// Secret is the HMAC signing key, at least MinSecretLength bytes.
	Secret []byte

	// Issuer is the token issuer, e.g. "qonboard".
	Issuer string

	// TTL is the token lifetime. Defaults to DefaultServiceTokenTTL.
	TTL time.Duration
}

func (c JWTConfig) ttl() time.Duration {
	if c.TTL == 0 {
		return DefaultServiceTokenTTL
	}
	return c.TTL
}

// ServiceClaims identifies the operator tool and the environment a
// provisioning call targets.
type ServiceClaims struct {
	jwt.RegisteredClaims
	Environment string `json:"env,omitempty"`
}

// GenerateServiceToken creates a short-lived HS256 token for subject with
// the target environment domain as audience.
func GenerateServiceToken(cfg JWTConfig, subject, audience, env string) (string, error) {
	if len(cfg.Secret) < MinSecretLength {
		return "", ErrSecretTooShort
	}

	tokenID, err := nanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}

	now := time.Now()
	claims := ServiceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.ttl())),
			ID:        tokenID,
		},
		Environment: env,
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}

// ValidateServiceToken parses and validates a service token.
func ValidateServiceToken(cfg JWTConfig, tokenString string) (*ServiceClaims, error) {
	claims := &ServiceClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return cfg.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if cfg.Issuer != "" {
		issuer, err := token.Claims.GetIssuer()
		if err != nil || issuer != cfg.Issuer {
			return nil, ErrInvalidToken
		}
	}

	return claims, nil
}
