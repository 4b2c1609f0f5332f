package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carried in access tokens. TenantID scopes every authenticated request.
type Claims struct {
	TenantID string `json:"tid"`
	jwt.RegisteredClaims
}

// TokenSigner issues and verifies HMAC-signed access tokens.
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenSigner builds a signer; ttl bounds access token lifetime.
func NewTokenSigner(secret string, ttl time.Duration) *TokenSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenSigner{secret: []byte(secret), ttl: ttl}
}

// Sign issues a token for the given user scoped to its tenant.
func (s *TokenSigner) Sign(userID, tenantID uuid.UUID) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("auth: signing secret not configured")
	}
	now := time.Now()
	claims := Claims{
		TenantID: tenantID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns the tenant it is scoped to.
func (s *TokenSigner) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("auth: invalid token")
	}
	if _, err := uuid.Parse(claims.TenantID); err != nil {
		return nil, errors.New("auth: token missing tenant scope")
	}
	return claims, nil
}
