package token

import (
	"fmt"
	"time"

	"auth-bridge/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest accepted HMAC secret.
const MinSecretLength = 32

// JWTConfig holds JWT generation configuration.
type JWTConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// serviceClaims represents the JWT claims handed to downstream services.
type serviceClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// JWTIssuer generates service tokens.
// Implements domain.TokenIssuer.
type JWTIssuer struct {
	cfg JWTConfig
	now func() time.Time
}

// NewJWTIssuer creates a new JWT issuer. The secret is checked here so a
// misconfigured deployment fails at startup rather than on the first sync.
func NewJWTIssuer(cfg JWTConfig) (*JWTIssuer, error) {
	if cfg.Secret == "" {
		return nil, domain.ErrSigningSecretMissing
	}
	if len(cfg.Secret) < MinSecretLength {
		return nil, domain.ErrSigningSecretWeak
	}
	return &JWTIssuer{cfg: cfg, now: time.Now}, nil
}

// IssueServiceToken signs {sub, email, name} with HS256.
func (j *JWTIssuer) IssueServiceToken(user domain.User) (*domain.ServiceToken, error) {
	now := j.now()
	expiresAt := now.Add(j.cfg.TTL)
	claims := serviceClaims{
		Email: user.Email,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.cfg.Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(j.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTokenGeneration, err)
	}

	return &domain.ServiceToken{Value: signed, IssuedAt: now, ExpiresAt: expiresAt}, nil
}
