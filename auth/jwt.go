package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the claims read from an access token.
type TokenClaims struct {
	Subject   string
	Email     string
	Roles     []string
	ExpiresAt time.Time
	IssuedAt  time.Time

	// Raw holds every claim as decoded.
	Raw map[string]any
}

// Expired reports whether the token has expired at now. Tokens without an
// exp claim never expire.
func (c *TokenClaims) Expired(now time.Time) bool {
	if c == nil || c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt)
}

// IsJWT reports whether token has the three-segment shape of a JWT.
func IsJWT(token string) bool {
	return strings.Count(token, ".") == 2
}

// ParseToken decodes the claims of a JWT without verifying its signature.
// Tokens that are not JWTs return ErrTokenMalformed; callers treat those
// as opaque.
func ParseToken(token string) (*TokenClaims, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if !IsJWT(token) {
		return nil, ErrTokenMalformed
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	out := &TokenClaims{Raw: make(map[string]any, len(claims))}
	for k, v := range claims {
		out.Raw[k] = v
	}

	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	if out.Subject == "" {
		out.Subject = stringClaim(claims, "id")
	}
	out.Email = stringClaim(claims, "email")
	out.Roles = rolesClaim(claims)

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	return out, nil
}

func stringClaim(claims jwt.MapClaims, name string) string {
	s, _ := claims[name].(string)
	return s
}

// rolesClaim accepts "roles" as a list or a single string, and "role" as a
// fallback.
func rolesClaim(claims jwt.MapClaims) []string {
	for _, name := range []string{"roles", "role"} {
		switch v := claims[name].(type) {
		case string:
			if v != "" {
				return []string{v}
			}
		case []any:
			out := make([]string, 0, len(v))
			for _, r := range v {
				if s, ok := r.(string); ok {
					out = append(out, s)
				}
			}
			return out
		}
	}
	return nil
}
