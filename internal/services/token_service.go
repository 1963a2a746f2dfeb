package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL applies when Issue is called without a ttl.
const DefaultTokenTTL = 15 * time.Minute

// TokenService issues and decodes signed access tokens whose subject is
// the user's email.
type TokenService struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
}

func NewTokenService(secret, algorithm string) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	return &TokenService{secret: []byte(secret), method: method, now: time.Now}, nil
}

// Issue signs a token for subject that expires ttl from now.
func (s *TokenService) Issue(subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := s.now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies signature and expiry and returns the subject claim.
func (s *TokenService) Decode(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidCredentials
	}
	return SubjectFromClaims(parsed.Claims)
}

// SubjectFromClaims extracts a non-empty "sub" claim from claims that also
// carry an "exp". Tokens without an expiry never validate.
func SubjectFromClaims(claims jwt.Claims) (string, error) {
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return "", ErrInvalidCredentials
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidCredentials
	}
	return sub, nil
}
