// ABOUTME: Operator tokens for the Query API, issued and checked by an Authority
// ABOUTME: Tokens are HS256 JWTs bound to this gateway's issuer, audience and scopes

package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// Issuer is the iss claim on every token this gateway mints.
	Issuer = "convo-gateway"
	// Audience is the aud claim; a token for another service is rejected.
	Audience = "convo-gateway/query-api"

	// ScopeCloseConversation allows POST /conversations/{id}/close/.
	ScopeCloseConversation = "conversations:close"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
	ErrNoScopes     = errors.New("token needs at least one scope")
)

// Claims is the payload of an operator token. Scope is a space separated
// list, the same shape OAuth 2.0 uses.
type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// Scopes returns the granted scopes.
func (c *Claims) Scopes() []string {
	return strings.Fields(c.Scope)
}

// HasScope reports whether the token grants scope.
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes(), scope)
}

// TokenVerifier checks a raw bearer token and returns its claims.
type TokenVerifier interface {
	Verify(tokenString string) (*Claims, error)
}

// Authority issues and verifies operator tokens with a shared HS256 secret.
type Authority struct {
	secret []byte
	now    func() time.Time
}

// NewAuthority creates an Authority signing with secret.
func NewAuthority(secret []byte) *Authority {
	return &Authority{secret: secret, now: time.Now}
}

// Issue mints a token for subject carrying scopes, valid for ttl.
func (a *Authority) Issue(subject string, scopes []string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	if len(scopes) == 0 {
		return "", ErrNoScopes
	}

	now := a.now()
	claims := &Claims{
		Scope: strings.Join(scopes, " "),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify checks signature, algorithm, expiry, issuer and audience, and
// requires a subject. Scope checks are left to the caller.
func (a *Authority) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			return a.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	return claims, nil
}
