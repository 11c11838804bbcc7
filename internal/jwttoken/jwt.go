// Package jwttoken signs and verifies the HS256 bearer tokens guarding the
// admin API. Verification pins the signing method, issuer, and audience, so
// tokens minted for other ConvoCommerce services never open this one.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain-errors"
)

// Claims carried by an operator token. Role decides what the admin gate
// lets through; the rest is standard.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Service mints and verifies operator tokens with a shared HMAC key.
type Service struct {
	key      []byte
	issuer   string
	audience string
	parser   *jwt.Parser
}

// New builds a Service whose verification accepts only HS256 tokens issued
// by issuer for audience, with a required expiry.
func New(signingKey, issuer, audience string) *Service {
	return &Service{
		key:      []byte(signingKey),
		issuer:   issuer,
		audience: audience,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithAudience(audience),
			jwt.WithExpirationRequired(),
		),
	}
}

// Mint issues a signed token for subject with the given role. The running
// service only verifies; minting exists for operator tooling and tests.
func (s *Service) Mint(subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.key)
}

// Verify checks raw against the pinned method, key, issuer, and audience.
// Every failure maps to CodeUnauthorized; only expiry gets its own message
// since callers can act on it.
func (s *Service) Verify(raw string) (*Claims, error) {
	var claims Claims
	_, err := s.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	switch {
	case err == nil:
		return &claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
	default:
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
}

// Identity reports who a valid token belongs to and the role it grants. Its
// shape matches the admin middleware's verifier, so wiring is a method value.
func (s *Service) Identity(raw string) (subject, role string, err error) {
	claims, err := s.Verify(raw)
	if err != nil {
		return "", "", err
	}
	return claims.Subject, claims.Role, nil
}
