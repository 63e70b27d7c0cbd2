package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ton-dice-backend/internal/core/ports"
	"ton-dice-backend/pkg/apperror"
)

// jwtTokenService issues and validates HS256 session tokens for players.
type jwtTokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewJWTTokenService creates a token service.
func NewJWTTokenService(secret string, ttl time.Duration, issuer string) ports.TokenService {
	return &jwtTokenService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
	}
}

// Generate issues a signed token for the account and returns it with its
// expiry time.
func (s *jwtTokenService) Generate(accountID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)

	claims := jwt.MapClaims{
		"sub": accountID,
		"iss": s.issuer,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate parses and verifies a token, returning the embedded claims.
func (s *jwtTokenService) Validate(tokenString string) (*ports.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperror.ErrInvalidToken()
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperror.ErrInvalidToken()
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, apperror.ErrInvalidToken()
	}

	return &ports.TokenClaims{AccountID: sub}, nil
}
