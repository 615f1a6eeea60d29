// Package auth provides session token issuance/verification, password
// hashing, and the cookie-based request authentication middleware.
//
// Sessions are stateless: the token is a signed JWT carrying the user's
// email and an absolute expiry, verified without any server-side lookup.
// Logout only clears the client cookie — an already-issued token stays
// valid until its embedded expiry if replayed. Callers must treat token
// verification, not cookie presence, as the source of truth.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the embedded token expiry: 5 hours from issuance.
//
// Note this diverges from CookieMaxAge (1 hour). The transport cookie
// expires first; a captured token outlives it.
const TokenTTL = 5 * time.Hour

// CookieMaxAge is the transport cookie's own, shorter expiry.
const CookieMaxAge = time.Hour

const issuer = "motomeet"

// TokenService signs and verifies session tokens with an HMAC secret.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload. The Subject claim carries the user's email —
// the identity key for every downstream operation.
type claims struct {
	jwt.RegisteredClaims
}

// Issue creates and signs a session token asserting the given email,
// expiring TokenTTL from now.
func (s *TokenService) Issue(email string) (string, error) {
	return s.IssueWithDuration(email, TokenTTL)
}

// IssueWithDuration creates a token with a custom expiry. Used in tests to
// produce already-expired tokens.
func (s *TokenService) IssueWithDuration(email string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Verify parses and verifies a token string, returning the email it asserts.
//
// Any failure — bad signature, malformed payload, wrong algorithm, wrong
// issuer, expiry breach — yields an error and no identity. There is no
// partial result: a caller either gets the email or nothing.
func (s *TokenService) Verify(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			// Pin the algorithm; prevents "none"/RS256 confusion attacks.
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return c.Subject, nil
}
