// Package auth issues and checks bearer tokens, hashes passwords, and keeps
// the list of tokens revoked by logout.
//
// A token is an HS256 JWT:
//
//	{"sub":"<user id>","jti":"<uuid>","iss":"recipebox","iat":...,"exp":...}
//
// "sub" identifies the user. "jti" identifies this particular token so that
// logout can revoke it without touching the user's other sessions.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "recipebox"

// minSecretLen is the shortest HMAC secret accepted.
const minSecretLen = 16

// ErrTokenExpired is returned by Validate for a well-formed token past its expiry.
var ErrTokenExpired = errors.New("auth: token expired")

// Claims is what a valid token proves about the caller.
type Claims struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

// TokenService signs and verifies access tokens with a shared secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService. ttl is the lifetime of every token
// it issues.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", minSecretLen)
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token TTL must be positive")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Generate signs a fresh token for userID.
func (s *TokenService) Generate(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("auth: cannot issue a token without a subject")
	}
	issuedAt := s.now()

	c := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   userID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature, algorithm, issuer and expiry of tokenStr.
//
// Only HS256 is accepted, which rules out "alg: none" and RS/HS confusion.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	var rc jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&rc,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("auth: invalid token")
	}
	if rc.Subject == "" {
		return nil, errors.New("auth: token has no subject")
	}
	if rc.ID == "" {
		return nil, errors.New("auth: token has no id")
	}

	return &Claims{
		UserID:    rc.Subject,
		TokenID:   rc.ID,
		ExpiresAt: rc.ExpiresAt.Time,
	}, nil
}
