// Package auth issues and verifies the signed, stateless access tokens that
// bind a request to a user id.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/nexakey/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenValidity is the lifetime of an access token unless configured otherwise.
const DefaultTokenValidity = 24 * time.Hour

// Claims carries the registered claims; the user id travels in Subject.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService signs tokens with a process-wide HMAC key fixed at construction.
type TokenService struct {
	secretKey        []byte
	validityDuration time.Duration
	now              func() time.Time
}

// NewTokenService constructs a TokenService. A non-positive validity falls
// back to DefaultTokenValidity.
func NewTokenService(secretKey string, validityDuration time.Duration) *TokenService {
	if validityDuration <= 0 {
		validityDuration = DefaultTokenValidity
	}
	return &TokenService{
		secretKey:        []byte(secretKey),
		validityDuration: validityDuration,
		now:              time.Now,
	}
}

// Issue returns a signed token with subject userID expiring at now + validity.
func (s *TokenService) Issue(userID string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.validityDuration)),
		},
	})

	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return tokenString, nil
}

// Verify checks the signature and expiry and returns the subject.
// It fails with common.ErrTokenExpired once now >= exp and with
// common.ErrInvalidToken for every other defect.
func (s *TokenService) Verify(tokenString string) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}
