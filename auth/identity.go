package auth

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Role is an admin role as issued by the API.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleSales  Role = "sales"
	RoleHR     Role = "hr"
	RoleSuper  Role = "super"
	RoleCoach  Role = "coach"
)

// Roles lists every role the API knows, least privileged first.
var Roles = []Role{RoleViewer, RoleCoach, RoleSales, RoleHR, RoleSuper}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return slices.Contains(Roles, r)
}

// ParseRole parses a role name, ignoring case and surrounding space.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// ParseRoles parses a list of role names.
func ParseRoles(names []string) ([]Role, error) {
	out := make([]Role, 0, len(names))
	for _, n := range names {
		r, err := ParseRole(n)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Identity is the signed-in admin.
type Identity struct {
	// Principal is the admin ID.
	Principal string
	Email     string
	Name      string

	// Roles are the admin's roles. Unknown role names from the token are
	// dropped.
	Roles []Role

	ExpiresAt time.Time
	IssuedAt  time.Time
}

// NewIdentity combines the login profile with token claims. Claims may be
// nil for opaque tokens; profile fields win over claim fields.
func NewIdentity(id, email, name string, claims *TokenClaims) *Identity {
	ident := &Identity{Principal: id, Email: email, Name: name}
	if claims == nil {
		return ident
	}
	if ident.Principal == "" {
		ident.Principal = claims.Subject
	}
	if ident.Email == "" {
		ident.Email = claims.Email
	}
	for _, r := range claims.Roles {
		if role, err := ParseRole(r); err == nil {
			ident.Roles = append(ident.Roles, role)
		}
	}
	ident.ExpiresAt = claims.ExpiresAt
	ident.IssuedAt = claims.IssuedAt
	return ident
}

// HasRole checks if the identity has a specific role.
func (id *Identity) HasRole(role Role) bool {
	return slices.Contains(id.Roles, role)
}

// IsExpired reports whether the identity's token has expired at now. An
// identity without an expiry never expires.
func (id *Identity) IsExpired(now time.Time) bool {
	if id.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(id.ExpiresAt)
}
