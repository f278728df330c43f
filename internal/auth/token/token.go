// Package token issues and verifies the stateless bearer tokens that are
// the gateway's only authentication proof. There is no server-side session
// or revocation list; the 12 hour TTL bounds the blast radius of a leak.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TTL is the fixed token lifetime. Claims are a snapshot taken at issuance;
// every endpoint that mutates an identity-relevant field reissues so callers
// can refresh their snapshot.
const TTL = 12 * time.Hour

var (
	// ErrMalformed covers a missing Authorization header or one that is not
	// in "Bearer <token>" form.
	ErrMalformed = errors.New("malformed authorization header")
	// ErrInvalid covers a bad signature or corrupt token structure.
	ErrInvalid = errors.New("invalid token")
	// ErrExpired covers a structurally valid token past its expiry.
	ErrExpired = errors.New("token expired")
)

// Identity is the claim set embedded in every token.
type Identity struct {
	AccountID   string
	Role        string
	NationalID  string
	Email       string
	DisplayName string
	// RequiresRUT mirrors NationalID == "" for clients that gate business
	// creation on it without decoding the claim themselves.
	RequiresRUT bool
}

// Claims is the JWT payload. RequiresRUT is derived, not stored.
type Claims struct {
	Role        string `json:"role"`
	NationalID  string `json:"national_id,omitempty"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies tokens with a process-wide HMAC secret.
type Issuer struct {
	signingKey []byte
	issuer     string
}

func NewIssuer(signingKey, issuer string) *Issuer {
	return &Issuer{signingKey: []byte(signingKey), issuer: issuer}
}

// Issue signs a token for the given identity with the fixed TTL.
func (s *Issuer) Issue(ident Identity) (string, error) {
	return s.IssueAt(ident, time.Now())
}

// IssueAt is Issue with an explicit issuance time, for tests that need to
// produce already-expired tokens.
func (s *Issuer) IssueAt(ident Identity, now time.Time) (string, error) {
	claims := Claims{
		Role:        ident.Role,
		NationalID:  ident.NationalID,
		Email:       ident.Email,
		DisplayName: ident.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.AccountID,
			ExpiresAt: jwt.NewNumericDate(now.Add(TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

// Verify parses and validates a raw token string.
func (s *Issuer) Verify(tokenString string) (Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpired
		}
		return Identity{}, ErrInvalid
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Identity{}, ErrInvalid
	}
	return Identity{
		AccountID:   claims.Subject,
		Role:        claims.Role,
		NationalID:  claims.NationalID,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		RequiresRUT: claims.NationalID == "",
	}, nil
}

// VerifyHeader extracts the bearer token from an Authorization header value
// and verifies it. An absent or non-Bearer header yields ErrMalformed.
func (s *Issuer) VerifyHeader(authHeader string) (Identity, error) {
	raw, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || raw == "" {
		return Identity{}, ErrMalformed
	}
	return s.Verify(raw)
}
