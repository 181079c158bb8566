// Package auth contains password hashing and the signed token service used
// for access tokens and email verification links.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Purpose separates token namespaces: a token minted for one purpose never
// decodes as another, even if the secrets were configured identically.
type Purpose string

const (
	PurposeAccess            Purpose = "access_token"
	PurposeEmailVerification Purpose = "email_verification"
)

// Claims holds the registered claims plus the token purpose.
type Claims struct {
	jwt.RegisteredClaims
	Purpose Purpose `json:"scope"`
}

type policy struct {
	secret []byte
	ttl    time.Duration
}

// TokenService issues and decodes HS256 tokens with a separate secret and
// lifetime per Purpose.
type TokenService struct {
	policies map[Purpose]policy
	now      func() time.Time
}

// TokenServiceOption customizes a TokenService.
type TokenServiceOption func(*TokenService)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) TokenServiceOption {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService builds a service with the access and email verification
// policies.
func NewTokenService(accessSecret string, accessTTL time.Duration, emailSecret string, emailTTL time.Duration, opts ...TokenServiceOption) *TokenService {
	s := &TokenService{
		policies: map[Purpose]policy{
			PurposeAccess:            {secret: []byte(accessSecret), ttl: accessTTL},
			PurposeEmailVerification: {secret: []byte(emailSecret), ttl: emailTTL},
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the configured lifetime for purpose.
func (s *TokenService) TTL(purpose Purpose) time.Duration {
	return s.policies[purpose].ttl
}

// Issue signs a token for subject with the purpose's default lifetime.
func (s *TokenService) Issue(purpose Purpose, subject string) (string, error) {
	p, ok := s.policies[purpose]
	if !ok {
		return "", fmt.Errorf("unknown token purpose %q", purpose)
	}
	return s.IssueWithTTL(purpose, subject, p.ttl)
}

// IssueWithTTL signs a token for subject that expires ttl from now.
func (s *TokenService) IssueWithTTL(purpose Purpose, subject string, ttl time.Duration) (string, error) {
	p, ok := s.policies[purpose]
	if !ok {
		return "", fmt.Errorf("unknown token purpose %q", purpose)
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Purpose: purpose,
	})

	tokenString, err := token.SignedString(p.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Decode validates signature, expiry and purpose and returns the subject.
// Every failure matches common.ErrInvalidToken; expired tokens additionally
// match common.ErrTokenExpired.
func (s *TokenService) Decode(tokenString string, purpose Purpose) (string, error) {
	p, ok := s.policies[purpose]
	if !ok {
		return "", fmt.Errorf("%w: unknown purpose %q", common.ErrInvalidToken, purpose)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: %w", common.ErrInvalidToken, common.ErrTokenExpired)
		}
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid {
		return "", common.ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return "", fmt.Errorf("%w: purpose mismatch", common.ErrInvalidToken)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: empty subject", common.ErrInvalidToken)
	}

	return claims.Subject, nil
}
