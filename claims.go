package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// TokenClaims is the subset of access-token claims the client side cares
// about. The identity service owns validation; the client only reads.
type TokenClaims struct {
	jwt.RegisteredClaims
	UID      string `json:"uid,omitempty"`
	UserRole string `json:"role,omitempty"`
}

// UserID returns the user ID
func (c *TokenClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject
}

// Expires returns the token expiry, zero when the claim is absent.
func (c *TokenClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// DecodeTokenClaims parses the access token WITHOUT verifying its signature.
// The client never holds the signing key; a decoded expiry informs refresh
// scheduling, it does not grant trust.
func DecodeTokenClaims(token string) (*TokenClaims, error) {
	claims := new(TokenClaims)
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to decode access token")
	}
	return claims, nil
}

// TokenExpiresWithin reports whether the token expires inside the leeway
// window. Undecodable tokens count as expiring, so callers refresh rather
// than keep sending a credential the service will reject anyway. Tokens
// without an exp claim never expire.
func TokenExpiresWithin(token string, leeway time.Duration) bool {
	if token == "" {
		return true
	}
	claims, err := DecodeTokenClaims(token)
	if err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return time.Until(claims.ExpiresAt.Time) <= leeway
}
